package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/docvault/docvault/internal/core/domain"
	"github.com/docvault/docvault/internal/core/ports"
	"github.com/docvault/docvault/internal/observability/metrics"
)

const ownerIDHeader = "X-Owner-Id"

type Options struct {
	RateLimitRPS   int
	RateLimitBurst int
	MaxInFlight    int
	InFlightWait   time.Duration
	MaxUploadBytes int64
}

type Router struct {
	uploader ports.DocumentUploader
	searcher ports.DocumentSearcher
	repo     ports.DocumentRepository
	metrics  *metrics.HTTPServerMetrics
	opts     Options
}

func NewRouter(
	uploader ports.DocumentUploader,
	searcher ports.DocumentSearcher,
	repo ports.DocumentRepository,
	serverMetrics *metrics.HTTPServerMetrics,
	opts Options,
) *Router {
	return &Router{
		uploader: uploader,
		searcher: searcher,
		repo:     repo,
		metrics:  serverMetrics,
		opts:     opts,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents", rt.documents)
	mux.HandleFunc("/v1/documents/", rt.documentByID)
	mux.HandleFunc("/v1/search", rt.search)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.opts.MaxInFlight, rt.opts.InFlightWait)
	handler = rateLimitMiddleware(handler, rt.opts.RateLimitRPS, rt.opts.RateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("api", handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) documents(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.uploadDocument(w, r)
	case http.MethodGet:
		rt.listDocuments(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := rt.ownerID(w, r)
	if !ok {
		return
	}

	if rt.opts.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.opts.MaxUploadBytes)
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.uploader.Upload(r.Context(), domain.Upload{
		OwnerID:      ownerID,
		Filename:     fileHeader.Filename,
		MimeType:     fileHeader.Header.Get("Content-Type"),
		DocumentType: strings.TrimSpace(r.FormValue("document_type")),
		SizeBytes:    fileHeader.Size,
	}, file)
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordUpload("api", fileHeader.Size)
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := rt.ownerID(w, r)
	if !ok {
		return
	}

	docs, err := rt.repo.ListByOwner(r.Context(), ownerID)
	if err != nil {
		writeError(w, err)
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs, "count": len(docs)})
}

func (rt *Router) documentByID(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := rt.ownerID(w, r)
	if !ok {
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	if action == "retry" {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		doc, err := rt.uploader.Retry(r.Context(), id, ownerID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, doc)
		return
	}
	if action != "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown resource"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		doc, err := rt.repo.GetByID(r.Context(), id)
		if err != nil {
			writeError(w, err)
			return
		}
		if doc.OwnerID != ownerID {
			// Foreign documents are indistinguishable from missing ones.
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "document not found"})
			return
		}
		writeJSON(w, http.StatusOK, doc)
	case http.MethodDelete:
		if err := rt.uploader.Delete(r.Context(), id, ownerID); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	ownerID, ok := rt.ownerID(w, r)
	if !ok {
		return
	}

	var req struct {
		Query        string  `json:"query"`
		Limit        int     `json:"limit"`
		MinScore     float64 `json:"min_score"`
		DocumentType string  `json:"document_type"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	start := time.Now()
	results, err := rt.searcher.Search(r.Context(), domain.SearchRequest{
		OwnerID:      ownerID,
		Query:        req.Query,
		Limit:        req.Limit,
		MinScore:     req.MinScore,
		DocumentType: req.DocumentType,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordSearch("api", len(results), time.Since(start))
	}
	if results == nil {
		results = []domain.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results, "count": len(results)})
}

func (rt *Router) ownerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	ownerID := strings.TrimSpace(r.Header.Get(ownerIDHeader))
	if ownerID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "header " + ownerIDHeader + " is required"})
		return "", false
	}
	return ownerID, true
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
