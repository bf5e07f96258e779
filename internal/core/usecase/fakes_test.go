package usecase

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/docvault/docvault/internal/core/domain"
)

type statusCall struct {
	id     string
	status domain.OCRStatus
	errMsg string
}

type saveCall struct {
	id         string
	status     domain.OCRStatus
	text       string
	confidence float64
}

type fakeDocumentRepo struct {
	mu          sync.Mutex
	docs        map[string]*domain.Document
	statusCalls []statusCall
	saveCalls   []saveCall
	resetCalls  []string
	deleted     []string
	failUpdate  error
	failSave    error
}

func newFakeDocumentRepo(docs ...*domain.Document) *fakeDocumentRepo {
	repo := &fakeDocumentRepo{docs: make(map[string]*domain.Document)}
	for _, d := range docs {
		repo.docs[d.ID] = d
	}
	return repo
}

func (f *fakeDocumentRepo) Create(_ context.Context, doc *domain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeDocumentRepo) GetByID(_ context.Context, id string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("no doc %s", id))
	}
	copied := *doc
	return &copied, nil
}

func (f *fakeDocumentRepo) GetByIDs(_ context.Context, ids []string) (map[string]*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]*domain.Document, len(ids))
	for _, id := range ids {
		if doc, ok := f.docs[id]; ok {
			copied := *doc
			out[id] = &copied
		}
	}
	return out, nil
}

func (f *fakeDocumentRepo) ListByOwner(_ context.Context, ownerID string) ([]domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var docs []domain.Document
	for _, d := range f.docs {
		if d.OwnerID == ownerID {
			docs = append(docs, *d)
		}
	}
	return docs, nil
}

func (f *fakeDocumentRepo) UpdateStatus(_ context.Context, id string, status domain.OCRStatus, errMessage string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdate != nil {
		return f.failUpdate
	}
	f.statusCalls = append(f.statusCalls, statusCall{id: id, status: status, errMsg: errMessage})
	if doc, ok := f.docs[id]; ok {
		doc.OCRStatus = status
		doc.Error = errMessage
	}
	return nil
}

func (f *fakeDocumentRepo) SaveExtraction(_ context.Context, id string, status domain.OCRStatus, text string, confidence float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSave != nil {
		return f.failSave
	}
	f.saveCalls = append(f.saveCalls, saveCall{id: id, status: status, text: text, confidence: confidence})
	if doc, ok := f.docs[id]; ok {
		doc.OCRStatus = status
		doc.ProcessedText = text
		doc.Confidence = confidence
		now := time.Now().UTC()
		doc.ProcessedAt = &now
	}
	return nil
}

func (f *fakeDocumentRepo) ResetForRetry(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resetCalls = append(f.resetCalls, id)
	if doc, ok := f.docs[id]; ok {
		doc.OCRStatus = domain.StatusPending
		doc.ProcessedText = ""
		doc.ProcessedAt = nil
	}
	return nil
}

func (f *fakeDocumentRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	delete(f.docs, id)
	return nil
}

type fakeEmbeddingRepo struct {
	mu          sync.Mutex
	deleteCalls []string
	batches     [][]domain.EmbeddingRecord
	matches     []domain.SearchMatch
	failDelete  error
	failInsert  error
}

func (f *fakeEmbeddingRepo) DeleteByDocument(_ context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete != nil {
		return f.failDelete
	}
	f.deleteCalls = append(f.deleteCalls, documentID)
	return nil
}

func (f *fakeEmbeddingRepo) InsertBatch(_ context.Context, records []domain.EmbeddingRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInsert != nil {
		return f.failInsert
	}
	f.batches = append(f.batches, records)
	return nil
}

func (f *fakeEmbeddingRepo) Match(_ context.Context, _ []float32, _ float64, _ int, _ string) ([]domain.SearchMatch, error) {
	return f.matches, nil
}

func (f *fakeEmbeddingRepo) inserted() []domain.EmbeddingRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []domain.EmbeddingRecord
	for _, b := range f.batches {
		all = append(all, b...)
	}
	return all
}

type fakeStorage struct {
	blobs        map[string][]byte
	saved        []string
	removed      []string
	signedURL    string
	failDownload error
	failSign     error
}

func (f *fakeStorage) Save(_ context.Context, key string, data io.Reader, _ string) error {
	if f.blobs == nil {
		f.blobs = make(map[string][]byte)
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.blobs[key] = raw
	f.saved = append(f.saved, key)
	return nil
}

func (f *fakeStorage) Download(_ context.Context, key string) ([]byte, error) {
	if f.failDownload != nil {
		return nil, f.failDownload
	}
	return f.blobs[key], nil
}

func (f *fakeStorage) SignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if f.failSign != nil {
		return "", f.failSign
	}
	if f.signedURL != "" {
		return f.signedURL, nil
	}
	return "https://signed.example/" + key, nil
}

func (f *fakeStorage) Remove(_ context.Context, key string) error {
	f.removed = append(f.removed, key)
	delete(f.blobs, key)
	return nil
}

type fakeQueue struct {
	published   []string
	failPublish error
}

func (f *fakeQueue) PublishExtractJob(_ context.Context, documentID string) error {
	if f.failPublish != nil {
		return f.failPublish
	}
	f.published = append(f.published, documentID)
	return nil
}

func (f *fakeQueue) SubscribeExtractJobs(context.Context, func(context.Context, string) error) error {
	return nil
}

type fakeOCR struct {
	submitID   string
	submitErr  error
	jobStates  []*domain.OCRJob
	fetchCalls int
	fetchErr   error
}

func (f *fakeOCR) SubmitJob(context.Context, string) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	if f.submitID == "" {
		return "job-1", nil
	}
	return f.submitID, nil
}

func (f *fakeOCR) FetchJob(_ context.Context, _ string) (*domain.OCRJob, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	idx := f.fetchCalls
	f.fetchCalls++
	if idx >= len(f.jobStates) {
		idx = len(f.jobStates) - 1
	}
	return f.jobStates[idx], nil
}

type fakeReformatter struct {
	out   string
	err   error
	calls int
}

func (f *fakeReformatter) Reformat(_ context.Context, text string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	if f.out == "" {
		return text, nil
	}
	return f.out, nil
}

type fakeLocalExtractor struct {
	text string
	err  error
}

func (f *fakeLocalExtractor) Extract(context.Context, string, string, []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type fakeEmbedder struct {
	mu      sync.Mutex
	calls   []string
	failFor map[string]error
	vector  []float32
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, text)
	if err, ok := f.failFor[text]; ok {
		return nil, err
	}
	if f.vector != nil {
		return f.vector, nil
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeChunker struct {
	chunks []string
}

func (f *fakeChunker) Chunk(string) []string {
	return f.chunks
}
