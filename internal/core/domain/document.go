package domain

import "time"

type OCRStatus string

const (
	StatusPending    OCRStatus = "pending"
	StatusProcessing OCRStatus = "processing"
	StatusCompleted  OCRStatus = "completed"
	StatusFailed     OCRStatus = "failed"
	StatusFallback   OCRStatus = "fallback"
)

// Terminal reports whether no further pipeline transitions are expected
// without an explicit operator retry.
func (s OCRStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusFallback
}

// HasText reports whether processed_text may be set for this status.
func (s OCRStatus) HasText() bool {
	return s == StatusCompleted || s == StatusFallback
}

// Upload describes an incoming file before a Document row exists.
type Upload struct {
	OwnerID      string
	Filename     string
	MimeType     string
	DocumentType string
	SizeBytes    int64
}

type Document struct {
	ID            string     `json:"id"`
	OwnerID       string     `json:"owner_id"`
	Filename      string     `json:"filename"`
	MimeType      string     `json:"mime_type"`
	SizeBytes     int64      `json:"size_bytes"`
	StoragePath   string     `json:"storage_path"`
	DocumentType  string     `json:"document_type,omitempty"`
	OCRStatus     OCRStatus  `json:"ocr_status"`
	ProcessedText string     `json:"processed_text,omitempty"`
	Confidence    float64    `json:"ocr_confidence,omitempty"`
	Error         string     `json:"error,omitempty"`
	UploadedAt    time.Time  `json:"uploaded_at"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
