package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/docvault/docvault/internal/core/domain"
)

func manyChunks(n int) []string {
	chunks := make([]string, n)
	for i := range chunks {
		chunks[i] = fmt.Sprintf("chunk number %d with some body text", i)
	}
	return chunks
}

func newIndexer(chunks []string, embedder *fakeEmbedder, repo *fakeEmbeddingRepo) *ReplaceEmbeddingsUseCase {
	return NewReplaceEmbeddingsUseCase(
		&fakeChunker{chunks: chunks},
		embedder,
		repo,
		DefaultRankingPolicy(),
		5,
		time.Millisecond,
	)
}

func TestReplaceDeletesBeforeInserting(t *testing.T) {
	repo := &fakeEmbeddingRepo{}
	uc := newIndexer(manyChunks(3), &fakeEmbedder{}, repo)
	doc := &domain.Document{ID: "doc-1", Filename: "scan.pdf", DocumentType: "invoice"}

	count, err := uc.Replace(context.Background(), doc, "text")
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 persisted rows, got %d", count)
	}
	if len(repo.deleteCalls) != 1 || repo.deleteCalls[0] != "doc-1" {
		t.Fatalf("expected one delete for doc-1, got %v", repo.deleteCalls)
	}

	records := repo.inserted()
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	for i, rec := range records {
		if rec.ChunkIndex != i {
			t.Fatalf("expected chunk index %d, got %d", i, rec.ChunkIndex)
		}
		if rec.ChunkType != domain.ChunkTypeText {
			t.Fatalf("expected chunk_type text, got %s", rec.ChunkType)
		}
		if rec.Metadata.TotalChunks != 3 || rec.Metadata.DocumentType != "invoice" || rec.Metadata.Title != "scan.pdf" {
			t.Fatalf("unexpected metadata: %+v", rec.Metadata)
		}
		if rec.TokenCount <= 0 {
			t.Fatalf("expected positive token count")
		}
	}
}

func TestReplaceBatchesBySize(t *testing.T) {
	repo := &fakeEmbeddingRepo{}
	uc := newIndexer(manyChunks(12), &fakeEmbedder{}, repo)

	count, err := uc.Replace(context.Background(), &domain.Document{ID: "doc-1"}, "text")
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if count != 12 {
		t.Fatalf("expected 12 rows, got %d", count)
	}
	if len(repo.batches) != 3 {
		t.Fatalf("expected 3 batches of 5/5/2, got %d", len(repo.batches))
	}
	if len(repo.batches[0]) != 5 || len(repo.batches[1]) != 5 || len(repo.batches[2]) != 2 {
		t.Fatalf("unexpected batch sizes: %d/%d/%d", len(repo.batches[0]), len(repo.batches[1]), len(repo.batches[2]))
	}
}

func TestReplaceSkipsFailedChunks(t *testing.T) {
	chunks := manyChunks(4)
	embedder := &fakeEmbedder{failFor: map[string]error{chunks[1]: errors.New("rate limited")}}
	repo := &fakeEmbeddingRepo{}
	uc := newIndexer(chunks, embedder, repo)

	count, err := uc.Replace(context.Background(), &domain.Document{ID: "doc-1"}, "text")
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3 rows after one skip, got %d", count)
	}
	indexes := map[int]bool{}
	for _, rec := range repo.inserted() {
		indexes[rec.ChunkIndex] = true
	}
	if indexes[1] {
		t.Fatalf("expected chunk 1 to be skipped")
	}
	if !indexes[0] || !indexes[2] || !indexes[3] {
		t.Fatalf("expected remaining chunks persisted, got %v", indexes)
	}
}

func TestReplaceRejectsTextThatYieldsNoChunks(t *testing.T) {
	repo := &fakeEmbeddingRepo{}
	uc := newIndexer(nil, &fakeEmbedder{}, repo)

	_, err := uc.Replace(context.Background(), &domain.Document{ID: "doc-1"}, "")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
	if len(repo.deleteCalls) != 0 {
		t.Fatalf("must not clear embeddings when no chunks are produced")
	}
}

func TestReplaceStopsWhenClearFails(t *testing.T) {
	repo := &fakeEmbeddingRepo{failDelete: errors.New("db down")}
	uc := newIndexer(manyChunks(2), &fakeEmbedder{}, repo)

	_, err := uc.Replace(context.Background(), &domain.Document{ID: "doc-1"}, "text")
	if err == nil {
		t.Fatalf("expected error when clearing fails")
	}
	if len(repo.inserted()) != 0 {
		t.Fatalf("must not insert after failed clear")
	}
}

func TestReplaceTagsImportanceAcrossChunks(t *testing.T) {
	chunks := []string{
		"opening chunk",
		"second chunk",
		"middle chunk with nothing special",
		"this chunk mentions the totals line",
		"closing chunk",
	}
	repo := &fakeEmbeddingRepo{}
	uc := newIndexer(chunks, &fakeEmbedder{}, repo)

	if _, err := uc.Replace(context.Background(), &domain.Document{ID: "doc-1"}, "text"); err != nil {
		t.Fatalf("replace: %v", err)
	}

	byIndex := map[int]string{}
	for _, rec := range repo.inserted() {
		byIndex[rec.ChunkIndex] = rec.Metadata.Importance
	}
	if byIndex[0] != "high" || byIndex[1] != "high" {
		t.Fatalf("expected leading chunks high, got %v", byIndex)
	}
	if byIndex[3] != "high" {
		t.Fatalf("expected keyword chunk high, got %v", byIndex)
	}
	if byIndex[4] != "low" {
		t.Fatalf("expected trailing chunk low, got %v", byIndex)
	}
	if byIndex[2] != "medium" {
		t.Fatalf("expected middle chunk medium, got %v", byIndex)
	}
}
