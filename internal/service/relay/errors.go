package relay

import (
	"errors"
	"fmt"
)

// ErrPromptRequired is returned when a request carries no usable prompt.
var ErrPromptRequired = errors.New("prompt is required")

// CredentialError reports that the active backend has no server-side credential.
type CredentialError struct {
	Name string
}

func (e *CredentialError) Error() string {
	return fmt.Sprintf("%s not configured on server", e.Name)
}

// UpstreamError wraps a non-2xx upstream response. Body is kept verbatim.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d", e.StatusCode)
}
