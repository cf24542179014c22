package relay

import (
	"context"
	"log"
)

// Backend is one way of turning a prompt into reply text.
type Backend interface {
	// Credential names the configuration entry the backend needs.
	Credential() string
	Configured() bool
	Complete(ctx context.Context, prompt string) (string, error)
}

// Service relays a single prompt to the configured backend. It holds no
// per-request state and never retries.
type Service struct {
	backend Backend
}

// NewService creates a relay service on top of backend.
func NewService(backend Backend) *Service {
	return &Service{backend: backend}
}

// Generate validates the prompt, checks the credential and performs exactly one
// backend call.
func (s *Service) Generate(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", ErrPromptRequired
	}

	if !s.backend.Configured() {
		return "", &CredentialError{Name: s.backend.Credential()}
	}

	reply, err := s.backend.Complete(ctx, prompt)
	if err != nil {
		return "", err
	}

	log.Printf("[relay] generated reply prompt_len=%d reply_len=%d", len(prompt), len(reply))
	return reply, nil
}
