// Package widget models the chat widget without a browser: an explicit State
// value, pure reducers that return a new State, and a separate view step.
package widget

import (
	"strings"

	"github.com/google/uuid"
)

// Role identifies who authored a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// LoadingText is shown while a relay call is in flight.
const LoadingText = "Pensando..."

// ErrorPrefix starts every rendered failure.
const ErrorPrefix = "Error: "

// Message is one transcript entry.
type Message struct {
	ID      string
	Role    Role
	Text    string
	Loading bool
	Error   bool
}

// State is the whole widget: panel visibility, input field and transcript.
type State struct {
	PanelOpen    bool
	InputFocused bool
	Input        string
	Transcript   []Message
}

// Key is a keyboard event. Name uses browser key names ("k", "Escape").
type Key struct {
	Name string
	Ctrl bool
	Meta bool
}

// TogglePanel opens a closed panel (moving focus to the input) or closes an
// open one.
func (s State) TogglePanel() State {
	if s.PanelOpen {
		s.PanelOpen = false
		return s
	}
	s.PanelOpen = true
	s.InputFocused = true
	return s
}

// ClosePanel closes the panel; a no-op when already closed.
func (s State) ClosePanel() State {
	s.PanelOpen = false
	return s
}

// SetInput replaces the input field text.
func (s State) SetInput(text string) State {
	s.Input = text
	return s
}

// HandleKey applies the global shortcuts. Ctrl/Cmd+K toggles the panel and
// Escape clears and blurs the input without closing the panel.
func (s State) HandleKey(k Key) State {
	switch {
	case (k.Ctrl || k.Meta) && strings.EqualFold(k.Name, "k"):
		return s.TogglePanel()
	case k.Name == "Escape" && s.InputFocused:
		s.Input = ""
		s.InputFocused = false
		return s
	default:
		return s
	}
}

// Submit records a user prompt. It returns the trimmed prompt and the ID of
// the loading placeholder that the eventual Settle call must remove; ok is
// false, and the state unchanged, for empty or whitespace-only text.
func (s State) Submit(text string) (next State, prompt string, loadingID string, ok bool) {
	prompt = strings.TrimSpace(text)
	if prompt == "" {
		return s, "", "", false
	}

	loadingID = uuid.NewString()
	s.Transcript = appendMessages(s.Transcript,
		Message{ID: uuid.NewString(), Role: RoleUser, Text: prompt},
		Message{ID: loadingID, Role: RoleAssistant, Text: LoadingText, Loading: true},
	)
	s.Input = ""
	return s, prompt, loadingID, true
}

// Settle removes the placeholder loadingID and appends the outcome of the
// relay call: the reply, or the error rendered with ErrorPrefix.
func (s State) Settle(loadingID, reply string, err error) State {
	transcript := make([]Message, 0, len(s.Transcript)+1)
	for _, msg := range s.Transcript {
		if msg.ID == loadingID {
			continue
		}
		transcript = append(transcript, msg)
	}

	outcome := Message{ID: uuid.NewString(), Role: RoleAssistant, Text: reply}
	if err != nil {
		outcome.Text = ErrorPrefix + err.Error()
		outcome.Error = true
	}

	s.Transcript = append(transcript, outcome)
	return s
}

// Pending counts loading placeholders still in the transcript.
func (s State) Pending() int {
	n := 0
	for _, msg := range s.Transcript {
		if msg.Loading {
			n++
		}
	}
	return n
}

// appendMessages copies before appending so earlier State values never share
// a backing array with later ones.
func appendMessages(transcript []Message, msgs ...Message) []Message {
	out := make([]Message, 0, len(transcript)+len(msgs))
	out = append(out, transcript...)
	return append(out, msgs...)
}
