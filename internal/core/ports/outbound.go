package ports

import (
	"context"
	"io"
	"time"

	"github.com/docvault/docvault/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Document, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.OCRStatus, errMessage string) error
	SaveExtraction(ctx context.Context, id string, status domain.OCRStatus, text string, confidence float64) error
	ResetForRetry(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// EmbeddingRepository persists chunk embeddings and answers similarity queries.
type EmbeddingRepository interface {
	DeleteByDocument(ctx context.Context, documentID string) error
	InsertBatch(ctx context.Context, records []domain.EmbeddingRecord) error
	Match(ctx context.Context, query []float32, threshold float64, count int, ownerID string) ([]domain.SearchMatch, error)
}

// ObjectStorage stores source document blobs.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader, contentType string) error
	Download(ctx context.Context, key string) ([]byte, error)
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Remove(ctx context.Context, key string) error
}

// MessageQueue publishes/consumes extraction jobs.
type MessageQueue interface {
	PublishExtractJob(ctx context.Context, documentID string) error
	SubscribeExtractJobs(ctx context.Context, handler func(context.Context, string) error) error
}

// OCRClient submits asynchronous OCR jobs and fetches their state.
type OCRClient interface {
	SubmitJob(ctx context.Context, fileURL string) (string, error)
	FetchJob(ctx context.Context, jobID string) (*domain.OCRJob, error)
}

// TextReformatter cleans up raw OCR output without altering its content.
type TextReformatter interface {
	Reformat(ctx context.Context, text string) (string, error)
}

// Embedder builds a fixed-dimension vector for one text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Chunker splits processed text into embedding-sized segments.
type Chunker interface {
	Chunk(text string) []string
}

// LocalExtractor extracts text from a blob without calling the OCR provider.
type LocalExtractor interface {
	Extract(ctx context.Context, filename, mimeType string, data []byte) (string, error)
}
