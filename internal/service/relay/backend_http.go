package relay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/sjson"

	"github.com/zhouzirui/gemini-relay/backend/internal/config"
)

// HTTPBackend calls a text-generation endpoint directly with a bearer token.
type HTTPBackend struct {
	client     *http.Client
	url        string
	apiKey     string
	promptPath string
	extractors []Extractor
}

// NewHTTPBackend builds the default backend. A nil client selects a fresh
// http.Client using cfg.Timeout (zero keeps the transport default).
func NewHTTPBackend(cfg config.UpstreamConfig, client *http.Client) *HTTPBackend {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	promptPath := cfg.PromptPath
	if promptPath == "" {
		promptPath = config.DefaultPromptPath
	}

	url := cfg.URL
	if url == "" {
		url = config.DefaultUpstreamURL
	}

	return &HTTPBackend{
		client:     client,
		url:        url,
		apiKey:     cfg.APIKey,
		promptPath: promptPath,
		extractors: DefaultExtractors,
	}
}

// Credential names the env var holding the bearer token.
func (b *HTTPBackend) Credential() string {
	return config.UpstreamKeyEnv
}

// Configured reports whether a bearer token is available.
func (b *HTTPBackend) Configured() bool {
	return b.apiKey != ""
}

// Complete sends one POST upstream and normalizes the reply.
func (b *HTTPBackend) Complete(ctx context.Context, prompt string) (string, error) {
	payload, err := b.buildRequestBody(prompt)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.apiKey)

	resp, err := b.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read upstream response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &UpstreamError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return Normalize(body, b.extractors)
}

func (b *HTTPBackend) buildRequestBody(prompt string) ([]byte, error) {
	payload, err := sjson.SetBytes([]byte(`{}`), b.promptPath, prompt)
	if err != nil {
		return nil, fmt.Errorf("build upstream payload at %q: %w", b.promptPath, err)
	}
	return payload, nil
}
