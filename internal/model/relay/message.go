package relay

// GenerateRequest is the body accepted by POST /api/gemini.
type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

// GenerateResponse carries the normalized upstream reply.
type GenerateResponse struct {
	Reply string `json:"reply"`
}

// ErrorResponse is returned on every failure path. Detail is only set for
// upstream errors and holds the raw upstream body.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// SocketResponse answers exactly one prompt frame received over the websocket
// transport. Status mirrors the HTTP status the same prompt would have produced
// on POST /api/gemini.
type SocketResponse struct {
	ID     string `json:"id"`
	Status int    `json:"status"`
	Reply  string `json:"reply,omitempty"`
	Error  string `json:"error,omitempty"`
	Detail string `json:"detail,omitempty"`
}
