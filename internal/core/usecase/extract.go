package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/docvault/docvault/internal/core/domain"
	"github.com/docvault/docvault/internal/core/ports"
	"github.com/docvault/docvault/internal/infrastructure/poll"
)

// NoTextPlaceholder is persisted when a finished OCR job yields nothing.
const NoTextPlaceholder = "No text could be extracted from this document."

// minReformatChars gates the LLM cleanup pass; shorter outputs are stored raw.
const minReformatChars = 50

// ExtractDocumentUseCase runs the per-document pipeline:
// pending -> processing -> {completed, failed, fallback}.
type ExtractDocumentUseCase struct {
	docs        ports.DocumentRepository
	storage     ports.ObjectStorage
	ocr         ports.OCRClient
	reformatter ports.TextReformatter
	local       ports.LocalExtractor
	indexer     *ReplaceEmbeddingsUseCase
	signedTTL   time.Duration
	pollCfg     poll.Config
}

func NewExtractDocumentUseCase(
	docs ports.DocumentRepository,
	storage ports.ObjectStorage,
	ocr ports.OCRClient,
	reformatter ports.TextReformatter,
	local ports.LocalExtractor,
	indexer *ReplaceEmbeddingsUseCase,
	signedTTL time.Duration,
	pollCfg poll.Config,
) *ExtractDocumentUseCase {
	if signedTTL <= 0 {
		signedTTL = time.Hour
	}
	return &ExtractDocumentUseCase{
		docs:        docs,
		storage:     storage,
		ocr:         ocr,
		reformatter: reformatter,
		local:       local,
		indexer:     indexer,
		signedTTL:   signedTTL,
		pollCfg:     pollCfg,
	}
}

func (uc *ExtractDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return err
	}

	if err := uc.docs.UpdateStatus(ctx, doc.ID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	text, confidence, status, err := uc.extract(ctx, doc)
	if err != nil {
		return uc.markFailed(ctx, doc.ID, err)
	}

	if err := uc.docs.SaveExtraction(ctx, doc.ID, status, text, confidence); err != nil {
		return uc.markFailed(ctx, doc.ID, err)
	}
	slog.InfoContext(ctx, "document_extracted",
		"document_id", doc.ID,
		"status", string(status),
		"text_chars", len(text),
		"confidence", confidence,
	)

	// Embedding is decoupled: a failure here never reverts the document's
	// extraction status.
	if _, err := uc.indexer.Replace(ctx, doc, text); err != nil {
		slog.ErrorContext(ctx, "embedding_index_failed", "document_id", doc.ID, "error", err)
	}
	return nil
}

func (uc *ExtractDocumentUseCase) extract(ctx context.Context, doc *domain.Document) (string, float64, domain.OCRStatus, error) {
	data, err := uc.storage.Download(ctx, doc.StoragePath)
	if err != nil {
		return "", 0, "", domain.WrapError(domain.ErrFileNotFound, "download blob", err)
	}
	if len(data) == 0 {
		return "", 0, "", domain.WrapError(domain.ErrFileNotFound, "download blob", errors.New("blob is empty"))
	}

	fileURL, err := uc.storage.SignedURL(ctx, doc.StoragePath, uc.signedTTL)
	if err != nil {
		return "", 0, "", fmt.Errorf("sign download url: %w", err)
	}

	jobID, err := uc.ocr.SubmitJob(ctx, fileURL)
	if err != nil {
		// Provider unreachable: try extracting on the worker before giving up.
		return uc.localFallback(ctx, doc, data, err)
	}

	job, err := poll.Until(ctx, uc.pollCfg, func(ctx context.Context) (*domain.OCRJob, bool, error) {
		job, fetchErr := uc.ocr.FetchJob(ctx, jobID)
		if fetchErr != nil {
			// Transient fetch errors burn an attempt but do not abort.
			slog.WarnContext(ctx, "ocr_poll_failed", "document_id", doc.ID, "job_id", jobID, "error", fetchErr)
			return nil, false, nil
		}
		switch job.Status {
		case domain.OCRJobFinished:
			return job, true, nil
		case domain.OCRJobFailed:
			return nil, false, domain.WrapError(domain.ErrOCRFailed, "ocr job", errors.New(job.Error))
		default:
			return nil, false, nil
		}
	})
	if err != nil {
		if errors.Is(err, poll.ErrAttemptsExhausted) {
			err = domain.WrapError(domain.ErrOCRTimeout, "ocr poll", err)
		}
		return "", 0, "", err
	}

	merged := job.Result.MergedText()
	confidence := 0.0
	if job.Result != nil {
		confidence = job.Result.Confidence
	}
	if strings.TrimSpace(merged) == "" {
		merged = NoTextPlaceholder
	}

	if len(merged) > minReformatChars {
		formatted, rerr := uc.reformatter.Reformat(ctx, merged)
		if rerr != nil || strings.TrimSpace(formatted) == "" {
			// Silent fallback: raw merged text is always usable.
			slog.WarnContext(ctx, "reformat_skipped", "document_id", doc.ID, "error", rerr)
		} else {
			merged = formatted
		}
	}

	return merged, confidence, domain.StatusCompleted, nil
}

// localFallback answers an unreachable OCR provider with on-worker
// extraction. Success yields the fallback status; failure surfaces the
// original submit error.
func (uc *ExtractDocumentUseCase) localFallback(ctx context.Context, doc *domain.Document, data []byte, submitErr error) (string, float64, domain.OCRStatus, error) {
	text, err := uc.local.Extract(ctx, doc.Filename, doc.MimeType, data)
	if err != nil || strings.TrimSpace(text) == "" {
		slog.WarnContext(ctx, "local_extract_failed", "document_id", doc.ID, "error", err)
		return "", 0, "", fmt.Errorf("ocr submit: %w", submitErr)
	}

	slog.InfoContext(ctx, "local_extract_fallback", "document_id", doc.ID, "text_chars", len(text))
	return text, 0, domain.StatusFallback, nil
}

func (uc *ExtractDocumentUseCase) markFailed(ctx context.Context, documentID string, cause error) error {
	if err := uc.docs.UpdateStatus(ctx, documentID, domain.StatusFailed, cause.Error()); err != nil {
		return fmt.Errorf("mark failed after %v: %w", cause, err)
	}
	return cause
}
