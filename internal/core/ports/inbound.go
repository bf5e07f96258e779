package ports

import (
	"context"
	"io"

	"github.com/docvault/docvault/internal/core/domain"
)

// DocumentUploader is the inbound contract for document upload orchestration.
type DocumentUploader interface {
	Upload(ctx context.Context, upload domain.Upload, body io.Reader) (*domain.Document, error)
	Delete(ctx context.Context, id, ownerID string) error
	Retry(ctx context.Context, id, ownerID string) (*domain.Document, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous text extraction.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// DocumentSearcher is the inbound contract for semantic search over processed text.
type DocumentSearcher interface {
	Search(ctx context.Context, req domain.SearchRequest) ([]domain.SearchResult, error)
}
