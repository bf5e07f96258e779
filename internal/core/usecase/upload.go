package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/docvault/docvault/internal/core/domain"
	"github.com/docvault/docvault/internal/core/ports"
)

// UploadDocumentUseCase owns the document lifecycle outside the extraction
// pipeline: accepting uploads, deleting documents and requeueing retries.
type UploadDocumentUseCase struct {
	docs       ports.DocumentRepository
	embeddings ports.EmbeddingRepository
	storage    ports.ObjectStorage
	queue      ports.MessageQueue
}

func NewUploadDocumentUseCase(
	docs ports.DocumentRepository,
	embeddings ports.EmbeddingRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *UploadDocumentUseCase {
	return &UploadDocumentUseCase{
		docs:       docs,
		embeddings: embeddings,
		storage:    storage,
		queue:      queue,
	}
}

// Upload stores the blob, creates the pending document row and publishes an
// extraction job. The caller gets the row back immediately; extraction runs
// asynchronously on the worker.
func (uc *UploadDocumentUseCase) Upload(ctx context.Context, upload domain.Upload, body io.Reader) (*domain.Document, error) {
	if upload.OwnerID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("owner id is required"))
	}
	if upload.Filename == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("filename is required"))
	}
	if body == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("body is required"))
	}

	now := time.Now().UTC()
	doc := &domain.Document{
		ID:           uuid.NewString(),
		OwnerID:      upload.OwnerID,
		Filename:     upload.Filename,
		MimeType:     upload.MimeType,
		SizeBytes:    upload.SizeBytes,
		DocumentType: upload.DocumentType,
		OCRStatus:    domain.StatusPending,
		UploadedAt:   now,
		UpdatedAt:    now,
	}
	doc.StoragePath = path.Join(doc.OwnerID, doc.ID, doc.Filename)

	if err := uc.storage.Save(ctx, doc.StoragePath, body, doc.MimeType); err != nil {
		return nil, fmt.Errorf("store blob: %w", err)
	}
	if err := uc.docs.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}
	if err := uc.queue.PublishExtractJob(ctx, doc.ID); err != nil {
		// The row exists; an operator retry can still pick it up.
		slog.ErrorContext(ctx, "extract_job_publish_failed", "document_id", doc.ID, "error", err)
	}

	slog.InfoContext(ctx, "document_uploaded",
		"document_id", doc.ID,
		"owner_id", doc.OwnerID,
		"filename", doc.Filename,
		"size_bytes", doc.SizeBytes,
	)
	return doc, nil
}

// Delete removes embeddings, the blob and the row, in that order. Embedding
// rows also cascade with the row; deleting them first just keeps search
// results clean if the blob removal fails midway.
func (uc *UploadDocumentUseCase) Delete(ctx context.Context, id, ownerID string) error {
	doc, err := uc.docs.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if doc.OwnerID != ownerID {
		return domain.WrapError(domain.ErrUnauthorized, "delete document", fmt.Errorf("document %s is not owned by caller", id))
	}

	if err := uc.embeddings.DeleteByDocument(ctx, id); err != nil {
		return fmt.Errorf("delete embeddings: %w", err)
	}
	if err := uc.storage.Remove(ctx, doc.StoragePath); err != nil {
		slog.WarnContext(ctx, "blob_delete_failed", "document_id", id, "error", err)
	}
	if err := uc.docs.Delete(ctx, id); err != nil {
		return err
	}

	slog.InfoContext(ctx, "document_deleted", "document_id", id, "owner_id", ownerID)
	return nil
}

// Retry resets a document to pending and requeues it. Reprocessing is
// idempotent because the pipeline replaces embeddings wholesale.
func (uc *UploadDocumentUseCase) Retry(ctx context.Context, id, ownerID string) (*domain.Document, error) {
	doc, err := uc.docs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != ownerID {
		return nil, domain.WrapError(domain.ErrUnauthorized, "retry document", fmt.Errorf("document %s is not owned by caller", id))
	}

	if err := uc.docs.ResetForRetry(ctx, id); err != nil {
		return nil, err
	}
	if err := uc.queue.PublishExtractJob(ctx, id); err != nil {
		return nil, fmt.Errorf("publish retry job: %w", err)
	}

	slog.InfoContext(ctx, "document_retry_requested", "document_id", id, "owner_id", ownerID)
	doc.OCRStatus = domain.StatusPending
	doc.ProcessedText = ""
	doc.Confidence = 0
	doc.Error = ""
	doc.ProcessedAt = nil
	return doc, nil
}
