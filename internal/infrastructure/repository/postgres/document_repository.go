package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/docvault/docvault/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	size_bytes BIGINT NOT NULL DEFAULT 0,
	storage_path TEXT NOT NULL,
	document_type TEXT NOT NULL DEFAULT '',
	ocr_status TEXT NOT NULL,
	processed_text TEXT,
	ocr_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
	error_message TEXT,
	uploaded_at TIMESTAMPTZ NOT NULL,
	processed_at TIMESTAMPTZ,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_owner ON documents(owner_id, uploaded_at DESC);
CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(ocr_status);

CREATE TABLE IF NOT EXISTS document_embeddings (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	chunk_text TEXT NOT NULL,
	chunk_index INT NOT NULL,
	chunk_type TEXT NOT NULL DEFAULT 'text',
	metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	token_count INT NOT NULL DEFAULT 0,
	embedding vector(1536) NOT NULL,
	UNIQUE (document_id, chunk_index)
);

CREATE INDEX IF NOT EXISTS idx_embeddings_document ON document_embeddings(document_id);

CREATE OR REPLACE FUNCTION match_document_embeddings(
	query_embedding vector(1536),
	similarity_threshold double precision,
	match_count int,
	owner text
) RETURNS TABLE (
	id text,
	document_id text,
	chunk_text text,
	chunk_index int,
	metadata jsonb,
	similarity double precision
) LANGUAGE sql STABLE AS $$
	SELECT e.id, e.document_id, e.chunk_text, e.chunk_index, e.metadata,
		1 - (e.embedding <=> query_embedding) AS similarity
	FROM document_embeddings e
	JOIN documents d ON d.id = e.document_id
	WHERE d.owner_id = owner
		AND 1 - (e.embedding <=> query_embedding) >= similarity_threshold
	ORDER BY e.embedding <=> query_embedding
	LIMIT match_count
$$;
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

const documentColumns = `id, owner_id, filename, mime_type, size_bytes, storage_path, document_type, ocr_status, COALESCE(processed_text, ''), ocr_confidence, COALESCE(error_message, ''), uploaded_at, processed_at, updated_at`

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO documents (
	id, owner_id, filename, mime_type, size_bytes, storage_path, document_type, ocr_status, error_message, uploaded_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
		doc.ID, doc.OwnerID, doc.Filename, doc.MimeType, doc.SizeBytes, doc.StoragePath,
		doc.DocumentType, string(doc.OCRStatus), doc.Error, doc.UploadedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE id = $1
`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", err)
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Document, error) {
	out := make(map[string]*domain.Document, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE id = ANY($1)
`, ids)
	if err != nil {
		return nil, fmt.Errorf("query documents by ids: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out[doc.ID] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (r *DocumentRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE owner_id = $1
ORDER BY uploaded_at DESC
`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.OCRStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET ocr_status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return requireRow(res, id)
}

// SaveExtraction persists terminal extraction output. processed_text is only
// writable for statuses that carry text.
func (r *DocumentRepository) SaveExtraction(ctx context.Context, id string, status domain.OCRStatus, text string, confidence float64) error {
	if !status.HasText() {
		return domain.WrapError(domain.ErrInvalidInput, "save extraction", fmt.Errorf("status %s cannot carry text", status))
	}
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET ocr_status = $2, processed_text = $3, ocr_confidence = $4, error_message = '', processed_at = $5, updated_at = $5
WHERE id = $1
`, id, string(status), text, confidence, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save extraction: %w", err)
	}
	return requireRow(res, id)
}

// ResetForRetry puts a document back at the start of the pipeline, clearing
// any text so the non-terminal states never carry stale output.
func (r *DocumentRepository) ResetForRetry(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET ocr_status = $2, processed_text = NULL, ocr_confidence = 0, error_message = '', processed_at = NULL, updated_at = $3
WHERE id = $1
`, id, string(domain.StatusPending), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("reset document: %w", err)
	}
	return requireRow(res, id)
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return requireRow(res, id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var status string
	var processedAt sql.NullTime

	err := row.Scan(
		&doc.ID, &doc.OwnerID, &doc.Filename, &doc.MimeType, &doc.SizeBytes, &doc.StoragePath,
		&doc.DocumentType, &status, &doc.ProcessedText, &doc.Confidence, &doc.Error,
		&doc.UploadedAt, &processedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.OCRStatus = domain.OCRStatus(status)
	if processedAt.Valid {
		t := processedAt.Time
		doc.ProcessedAt = &t
	}
	return &doc, nil
}

func requireRow(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, "update document", fmt.Errorf("no row for id %s", id))
	}
	return nil
}
