package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/docvault/docvault/internal/core/domain"
)

type EmbeddingRepository struct {
	db *sql.DB
}

func NewEmbeddingRepository(db *sql.DB) *EmbeddingRepository {
	return &EmbeddingRepository{db: db}
}

func (r *EmbeddingRepository) DeleteByDocument(ctx context.Context, documentID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM document_embeddings WHERE document_id = $1`, documentID)
	if err != nil {
		return fmt.Errorf("delete embeddings: %w", err)
	}
	return nil
}

// InsertBatch writes one batch of embedding rows in a single transaction so
// a mid-batch failure never leaves half a batch behind.
func (r *EmbeddingRepository) InsertBatch(ctx context.Context, records []domain.EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO document_embeddings (id, document_id, chunk_text, chunk_index, chunk_type, metadata, token_count, embedding)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		metadata, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("marshal chunk metadata: %w", err)
		}
		_, err = stmt.ExecContext(ctx,
			rec.ID, rec.DocumentID, rec.ChunkText, rec.ChunkIndex, rec.ChunkType,
			metadata, rec.TokenCount, pgvector.NewVector(rec.Vector),
		)
		if err != nil {
			return fmt.Errorf("insert embedding %d: %w", rec.ChunkIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert tx: %w", err)
	}
	return nil
}

// Match runs the backend similarity function. Results arrive ordered by
// cosine distance; importance re-weighting happens in the usecase layer.
func (r *EmbeddingRepository) Match(ctx context.Context, query []float32, threshold float64, count int, ownerID string) ([]domain.SearchMatch, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, document_id, chunk_text, chunk_index, metadata, similarity
FROM match_document_embeddings($1, $2, $3, $4)
`, pgvector.NewVector(query), threshold, count, ownerID)
	if err != nil {
		return nil, fmt.Errorf("match embeddings: %w", err)
	}
	defer rows.Close()

	var matches []domain.SearchMatch
	for rows.Next() {
		var m domain.SearchMatch
		var metadataRaw []byte
		if err := rows.Scan(&m.EmbeddingID, &m.DocumentID, &m.ChunkText, &m.ChunkIndex, &metadataRaw, &m.Similarity); err != nil {
			return nil, fmt.Errorf("scan match: %w", err)
		}
		if len(metadataRaw) > 0 {
			if err := json.Unmarshal(metadataRaw, &m.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal chunk metadata: %w", err)
			}
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate matches: %w", err)
	}
	return matches, nil
}
