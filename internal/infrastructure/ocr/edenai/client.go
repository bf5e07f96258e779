// Package edenai submits asynchronous OCR jobs to an Eden-AI-style provider
// API and maps the polled results into domain types.
package edenai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/docvault/docvault/internal/core/domain"
	"github.com/docvault/docvault/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	apiKey     string
	provider   string
	language   string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Config struct {
	BaseURL  string
	APIKey   string
	Provider string
	Language string
	Timeout  time.Duration
	Executor *resilience.Executor
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.WrapError(domain.ErrMissingConfig, "ocr client", errors.New("api key is empty"))
	}
	if cfg.Provider == "" {
		cfg.Provider = "amazon"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		provider:   cfg.Provider,
		language:   cfg.Language,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		executor:   cfg.Executor,
	}, nil
}

type submitRequest struct {
	Providers        string `json:"providers"`
	Language         string `json:"language"`
	FileURL          string `json:"file_url"`
	Mode             string `json:"mode"`
	ExtractLayout    bool   `json:"extract_layout"`
	ExtractTables    bool   `json:"extract_tables"`
	ExtractFigures   bool   `json:"extract_figures"`
	ExtractHeaders   bool   `json:"extract_headers"`
	ExtractFootnotes bool   `json:"extract_footnotes"`
	ExtractMetadata  bool   `json:"extract_metadata"`
}

type submitResponse struct {
	PublicID string `json:"public_id"`
}

// SubmitJob enqueues an accurate-mode OCR job for a presigned file URL and
// returns the provider job ID.
func (c *Client) SubmitJob(ctx context.Context, fileURL string) (string, error) {
	request := submitRequest{
		Providers:        c.provider,
		Language:         c.language,
		FileURL:          fileURL,
		Mode:             "accurate",
		ExtractLayout:    true,
		ExtractTables:    true,
		ExtractFigures:   true,
		ExtractHeaders:   true,
		ExtractFootnotes: true,
		ExtractMetadata:  true,
	}

	var response submitResponse
	call := func(ctx context.Context) error {
		return c.postJSON(ctx, "/ocr/ocr_async", request, &response, "ocr_submit")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "edenai.submit", call, classifyProviderError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded("ocr submit", err)
	}
	if response.PublicID == "" {
		return "", fmt.Errorf("ocr submit: response carries no job id")
	}
	return response.PublicID, nil
}

type jobResponse struct {
	Status  string `json:"status"`
	Error   string `json:"error"`
	Results map[string]struct {
		RawText string `json:"raw_text"`
		Text    string `json:"text"`
		Pages   []struct {
			Text string `json:"text"`
		} `json:"pages"`
		Tables     []json.RawMessage `json:"tables"`
		Metadata   json.RawMessage   `json:"metadata"`
		Confidence float64           `json:"confidence"`
	} `json:"results"`
}

// FetchJob reads the current state of a submitted job. Poll-loop callers
// decide what to do with non-terminal states; this method never retries.
func (c *Client) FetchJob(ctx context.Context, jobID string) (*domain.OCRJob, error) {
	var response jobResponse
	if err := c.getJSON(ctx, "/ocr/ocr_async/"+jobID, &response, "ocr_fetch"); err != nil {
		return nil, err
	}

	job := &domain.OCRJob{
		ID:     jobID,
		Status: mapJobStatus(response.Status),
		Error:  response.Error,
	}
	if job.Status != domain.OCRJobFinished {
		return job, nil
	}

	result, ok := response.Results[c.provider]
	if !ok {
		for _, r := range response.Results {
			result = r
			break
		}
	}

	out := &domain.OCRResult{
		RawText:    result.RawText,
		Text:       result.Text,
		Confidence: result.Confidence,
	}
	for _, page := range result.Pages {
		if strings.TrimSpace(page.Text) != "" {
			out.Segments = append(out.Segments, page.Text)
		}
	}
	for _, table := range result.Tables {
		out.Tables = append(out.Tables, string(table))
	}
	if len(result.Metadata) > 0 && string(result.Metadata) != "null" {
		out.Metadata = string(result.Metadata)
	}
	job.Result = out
	return job, nil
}

func mapJobStatus(status string) domain.OCRJobStatus {
	switch strings.ToLower(status) {
	case "finished", "succeeded":
		return domain.OCRJobFinished
	case "failed", "error":
		return domain.OCRJobFailed
	case "processing", "running":
		return domain.OCRJobProcessing
	default:
		return domain.OCRJobQueued
	}
}
