package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/docvault/docvault/internal/core/domain"
)

func newUploadHarness(repo *fakeDocumentRepo, embeddings *fakeEmbeddingRepo, storage *fakeStorage, queue *fakeQueue) *UploadDocumentUseCase {
	return NewUploadDocumentUseCase(repo, embeddings, storage, queue)
}

func TestUploadCreatesPendingDocumentAndPublishes(t *testing.T) {
	repo := newFakeDocumentRepo()
	storage := &fakeStorage{}
	queue := &fakeQueue{}
	uc := newUploadHarness(repo, &fakeEmbeddingRepo{}, storage, queue)

	doc, err := uc.Upload(context.Background(), domain.Upload{
		OwnerID:   "owner-1",
		Filename:  "scan.pdf",
		MimeType:  "application/pdf",
		SizeBytes: 9,
	}, strings.NewReader("pdf-bytes"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if doc.OCRStatus != domain.StatusPending {
		t.Fatalf("expected pending status, got %s", doc.OCRStatus)
	}
	if doc.ID == "" || doc.StoragePath == "" {
		t.Fatalf("expected id and storage path, got %+v", doc)
	}
	if len(storage.saved) != 1 || storage.saved[0] != doc.StoragePath {
		t.Fatalf("expected blob saved at %s, got %v", doc.StoragePath, storage.saved)
	}
	if len(queue.published) != 1 || queue.published[0] != doc.ID {
		t.Fatalf("expected extract job published, got %v", queue.published)
	}
	if _, err := repo.GetByID(context.Background(), doc.ID); err != nil {
		t.Fatalf("expected row created: %v", err)
	}
}

func TestUploadRequiresOwner(t *testing.T) {
	uc := newUploadHarness(newFakeDocumentRepo(), &fakeEmbeddingRepo{}, &fakeStorage{}, &fakeQueue{})

	_, err := uc.Upload(context.Background(), domain.Upload{Filename: "scan.pdf"}, strings.NewReader("x"))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestUploadSucceedsWhenPublishFails(t *testing.T) {
	repo := newFakeDocumentRepo()
	queue := &fakeQueue{failPublish: errors.New("nats down")}
	uc := newUploadHarness(repo, &fakeEmbeddingRepo{}, &fakeStorage{}, queue)

	doc, err := uc.Upload(context.Background(), domain.Upload{
		OwnerID: "owner-1", Filename: "scan.pdf", MimeType: "application/pdf",
	}, strings.NewReader("x"))
	if err != nil {
		t.Fatalf("expected upload to survive publish failure, got %v", err)
	}
	if _, err := repo.GetByID(context.Background(), doc.ID); err != nil {
		t.Fatalf("expected row kept for later retry: %v", err)
	}
}

func TestDeleteRemovesEmbeddingsBlobAndRow(t *testing.T) {
	doc := testDocument()
	repo := newFakeDocumentRepo(doc)
	embeddings := &fakeEmbeddingRepo{}
	storage := &fakeStorage{blobs: map[string][]byte{doc.StoragePath: []byte("x")}}
	uc := newUploadHarness(repo, embeddings, storage, &fakeQueue{})

	if err := uc.Delete(context.Background(), doc.ID, doc.OwnerID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(embeddings.deleteCalls) != 1 {
		t.Fatalf("expected embeddings cleared, got %v", embeddings.deleteCalls)
	}
	if len(storage.removed) != 1 || storage.removed[0] != doc.StoragePath {
		t.Fatalf("expected blob removed, got %v", storage.removed)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != doc.ID {
		t.Fatalf("expected row deleted, got %v", repo.deleted)
	}
}

func TestDeleteRejectsForeignOwner(t *testing.T) {
	doc := testDocument()
	repo := newFakeDocumentRepo(doc)
	uc := newUploadHarness(repo, &fakeEmbeddingRepo{}, &fakeStorage{}, &fakeQueue{})

	err := uc.Delete(context.Background(), doc.ID, "someone-else")
	if !domain.IsKind(err, domain.ErrUnauthorized) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
	if len(repo.deleted) != 0 {
		t.Fatalf("must not delete foreign documents")
	}
}

func TestRetryResetsAndRequeues(t *testing.T) {
	doc := testDocument()
	doc.OCRStatus = domain.StatusFailed
	doc.Error = "ocr job failed"
	repo := newFakeDocumentRepo(doc)
	queue := &fakeQueue{}
	uc := newUploadHarness(repo, &fakeEmbeddingRepo{}, &fakeStorage{}, queue)

	got, err := uc.Retry(context.Background(), doc.ID, doc.OwnerID)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got.OCRStatus != domain.StatusPending || got.ProcessedText != "" || got.Error != "" {
		t.Fatalf("expected reset document, got %+v", got)
	}
	if len(repo.resetCalls) != 1 {
		t.Fatalf("expected repository reset, got %v", repo.resetCalls)
	}
	if len(queue.published) != 1 || queue.published[0] != doc.ID {
		t.Fatalf("expected retry job published, got %v", queue.published)
	}
}

func TestRetryUnknownDocument(t *testing.T) {
	uc := newUploadHarness(newFakeDocumentRepo(), &fakeEmbeddingRepo{}, &fakeStorage{}, &fakeQueue{})

	_, err := uc.Retry(context.Background(), "missing", "owner-1")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}
