package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/docvault/docvault/internal/core/domain"
	"github.com/docvault/docvault/internal/core/ports"
)

// ReplaceEmbeddingsUseCase rebuilds the full embedding set for a document:
// delete everything, then insert fresh rows batch by batch. Individual chunk
// failures are tolerated; the document keeps whatever embedded successfully.
type ReplaceEmbeddingsUseCase struct {
	chunker    ports.Chunker
	embedder   ports.Embedder
	embeddings ports.EmbeddingRepository
	policy     RankingPolicy
	batchSize  int
	pacer      *rate.Limiter
}

func NewReplaceEmbeddingsUseCase(
	chunker ports.Chunker,
	embedder ports.Embedder,
	embeddings ports.EmbeddingRepository,
	policy RankingPolicy,
	batchSize int,
	batchDelay time.Duration,
) *ReplaceEmbeddingsUseCase {
	if batchSize <= 0 {
		batchSize = 5
	}
	if batchDelay <= 0 {
		batchDelay = 500 * time.Millisecond
	}
	return &ReplaceEmbeddingsUseCase{
		chunker:    chunker,
		embedder:   embedder,
		embeddings: embeddings,
		policy:     policy,
		batchSize:  batchSize,
		// burst 1 with one initial token: the first batch runs immediately,
		// every later batch waits out the inter-batch delay.
		pacer: rate.NewLimiter(rate.Every(batchDelay), 1),
	}
}

// Replace chunks the text, embeds it in paced batches and swaps the stored
// rows. Returns the number of rows persisted.
func (uc *ReplaceEmbeddingsUseCase) Replace(ctx context.Context, doc *domain.Document, text string) (int, error) {
	chunks := uc.chunker.Chunk(text)
	if len(chunks) == 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "replace embeddings", errors.New("no chunks produced"))
	}
	tagged := TagImportance(chunks, uc.policy)

	if err := uc.embeddings.DeleteByDocument(ctx, doc.ID); err != nil {
		return 0, fmt.Errorf("clear embeddings: %w", err)
	}

	total := 0
	for start := 0; start < len(tagged); start += uc.batchSize {
		if err := uc.pacer.Wait(ctx); err != nil {
			return total, err
		}

		end := start + uc.batchSize
		if end > len(tagged) {
			end = len(tagged)
		}
		batch := tagged[start:end]

		vectors := make([][]float32, len(batch))
		g, gctx := errgroup.WithContext(ctx)
		for i := range batch {
			g.Go(func() error {
				vector, err := uc.embedder.Embed(gctx, batch[i].Text)
				if err != nil {
					// Skip the chunk; the rest of the batch still lands.
					slog.WarnContext(gctx, "chunk_embed_failed",
						"document_id", doc.ID,
						"chunk_index", batch[i].Index,
						"error", err,
					)
					return nil
				}
				vectors[i] = vector
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return total, err
		}

		records := make([]domain.EmbeddingRecord, 0, len(batch))
		for i, chunk := range batch {
			if vectors[i] == nil {
				continue
			}
			records = append(records, domain.EmbeddingRecord{
				ID:         uuid.NewString(),
				DocumentID: doc.ID,
				ChunkText:  chunk.Text,
				ChunkIndex: chunk.Index,
				ChunkType:  domain.ChunkTypeText,
				Metadata: domain.ChunkMetadata{
					Importance:   string(chunk.Importance),
					DocumentType: doc.DocumentType,
					Title:        doc.Filename,
					ChunkIndex:   chunk.Index,
					TotalChunks:  len(tagged),
				},
				TokenCount: chunk.TokenCount,
				Vector:     vectors[i],
			})
		}
		if len(records) == 0 {
			continue
		}
		if err := uc.embeddings.InsertBatch(ctx, records); err != nil {
			slog.ErrorContext(ctx, "embedding_batch_insert_failed",
				"document_id", doc.ID,
				"batch_start", start,
				"error", err,
			)
			continue
		}
		total += len(records)
	}

	slog.InfoContext(ctx, "embeddings_replaced",
		"document_id", doc.ID,
		"chunks", len(tagged),
		"persisted", total,
	)
	return total, nil
}
