package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	relayModel "github.com/zhouzirui/gemini-relay/backend/internal/model/relay"
	relayService "github.com/zhouzirui/gemini-relay/backend/internal/service/relay"
)

// DefaultEndpoint is the relay route the widget talks to.
const DefaultEndpoint = "/api/gemini"

// Relay sends one prompt and returns the reply text.
type Relay interface {
	Send(ctx context.Context, prompt string) (string, error)
}

// replyExtractors is narrower than the relay's own list: it expects {reply}
// but still tolerates an un-normalized {output:[{content}]} body.
var replyExtractors = []relayService.Extractor{
	relayService.FieldExtractor("reply"),
	relayService.FieldExtractor("output.0.content"),
}

// RelayClient posts prompts to the relay over HTTP.
type RelayClient struct {
	endpoint string
	client   *http.Client
}

// NewRelayClient targets endpoint, e.g. "http://localhost:3000/api/gemini".
func NewRelayClient(endpoint string, client *http.Client) *RelayClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &RelayClient{endpoint: endpoint, client: client}
}

// Send returns the reply or an error carrying the relay's response text
// (falling back to the status text when the body is empty).
func (c *RelayClient) Send(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(relayModel.GenerateRequest{Prompt: prompt})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if text := string(body); text != "" {
			return "", errors.New(text)
		}
		return "", errors.New(statusText(resp))
	}

	reply, err := relayService.Normalize(body, replyExtractors)
	if err != nil {
		return "", fmt.Errorf("decode relay response: %w", err)
	}
	return reply, nil
}

func statusText(resp *http.Response) string {
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return strings.TrimSpace(resp.Status)
}
