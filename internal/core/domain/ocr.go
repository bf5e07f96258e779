package domain

import "strings"

type OCRJobStatus string

const (
	OCRJobQueued     OCRJobStatus = "queued"
	OCRJobProcessing OCRJobStatus = "processing"
	OCRJobFinished   OCRJobStatus = "finished"
	OCRJobFailed     OCRJobStatus = "failed"
)

type OCRJob struct {
	ID     string
	Status OCRJobStatus
	Error  string
	Result *OCRResult
}

// OCRResult carries every text fragment the provider may return. Fields are
// merged in declaration order; any of them may be empty depending on the
// provider and document type.
type OCRResult struct {
	RawText    string
	Text       string
	Segments   []string
	Tables     []string
	Metadata   string
	Confidence float64
}

// MergedText joins all non-empty fragments with blank lines, raw text first.
func (r *OCRResult) MergedText() string {
	if r == nil {
		return ""
	}
	fragments := make([]string, 0, 4+len(r.Segments)+len(r.Tables))
	fragments = append(fragments, r.RawText, r.Text)
	fragments = append(fragments, r.Segments...)
	fragments = append(fragments, r.Tables...)
	fragments = append(fragments, r.Metadata)

	parts := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, "\n\n")
}
