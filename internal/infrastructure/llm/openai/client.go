// Package openai talks to an OpenAI-compatible API for embeddings and for
// the OCR text reformatting pass.
package openai

import (
	"context"
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
	chatModel  string
	embedModel string
	dimensions int
	httpClient *http.Client
	executor   *resilience.Executor
}

type Config struct {
	BaseURL    string
	APIKey     string
	ChatModel  string
	EmbedModel string
	Dimensions int
	Executor   *resilience.Executor
}

func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.WrapError(domain.ErrMissingConfig, "openai client", errors.New("api key is empty"))
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 1536
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		chatModel:  cfg.ChatModel,
		embedModel: cfg.EmbedModel,
		dimensions: cfg.Dimensions,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   cfg.Executor,
	}, nil
}

type embeddingRequest struct {
	Model      string `json:"model"`
	Input      string `json:"input"`
	Dimensions int    `json:"dimensions,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns a vector for one text. The resilient client path is tried
// first; on failure a single raw HTTP request to the same endpoint serves as
// a last-resort fallback before giving up.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrEmptyInput, "embed", errors.New("blank text"))
	}

	vector, err := c.embedResilient(ctx, text)
	if err != nil {
		fallbackVector, fallbackErr := c.embedDirect(ctx, text)
		if fallbackErr != nil {
			return nil, wrapTemporaryIfNeeded("embed", err)
		}
		vector = fallbackVector
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("embed: provider returned empty vector")
	}
	return vector, nil
}

func (c *Client) embedResilient(ctx context.Context, text string) ([]float32, error) {
	var response embeddingResponse
	call := func(ctx context.Context) error {
		return c.postJSON(ctx, "/embeddings", embeddingRequest{
			Model:      c.embedModel,
			Input:      text,
			Dimensions: c.dimensions,
		}, &response, "embed")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "openai.embed", call, classifyOpenAIError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}
	if len(response.Data) == 0 {
		return nil, fmt.Errorf("embed: response carries no data")
	}
	return response.Data[0].Embedding, nil
}

// embedDirect bypasses the executor entirely: one plain request, no retries,
// no breaker accounting.
func (c *Client) embedDirect(ctx context.Context, text string) ([]float32, error) {
	var response embeddingResponse
	err := c.postJSON(ctx, "/embeddings", embeddingRequest{
		Model: c.embedModel,
		Input: text,
	}, &response, "embed_fallback")
	if err != nil {
		return nil, err
	}
	if len(response.Data) == 0 {
		return nil, fmt.Errorf("embed fallback: response carries no data")
	}
	return response.Data[0].Embedding, nil
}

const reformatSystemPrompt = "You clean up OCR output. Preserve every word, number and symbol exactly. " +
	"Fix characters the OCR misread, restore punctuation and paragraph breaks. " +
	"Never summarize, omit or reinterpret anything. Return only the cleaned text."

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Reformat runs one formatting pass over merged OCR text. Callers treat any
// error as a signal to keep the raw text.
func (c *Client) Reformat(ctx context.Context, text string) (string, error) {
	var response chatResponse
	call := func(ctx context.Context) error {
		return c.postJSON(ctx, "/chat/completions", chatRequest{
			Model: c.chatModel,
			Messages: []chatMessage{
				{Role: "system", Content: reformatSystemPrompt},
				{Role: "user", Content: text},
			},
			Temperature: 0,
		}, &response, "reformat")
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "openai.reformat", call, classifyOpenAIError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", wrapTemporaryIfNeeded("reformat", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("reformat: response carries no choices")
	}
	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
