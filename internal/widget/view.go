package widget

import (
	"fmt"
	"io"
	"strings"
)

func label(role Role) string {
	if role == RoleUser {
		return "you"
	}
	return "bot"
}

// Format renders the full widget as plain text.
func Format(s State) string {
	var b strings.Builder
	if !s.PanelOpen {
		b.WriteString("[chat closed]\n")
		return b.String()
	}

	b.WriteString("[chat open]\n")
	for _, msg := range s.Transcript {
		fmt.Fprintf(&b, "%s> %s\n", label(msg.Role), msg.Text)
	}
	if s.InputFocused {
		fmt.Fprintf(&b, "> %s_\n", s.Input)
	}
	return b.String()
}

// LineView prints each settled transcript message once, as it appears.
// Loading placeholders are not printed.
type LineView struct {
	out     io.Writer
	printed map[string]bool
}

// NewLineView writes to out.
func NewLineView(out io.Writer) *LineView {
	return &LineView{out: out, printed: make(map[string]bool)}
}

func (v *LineView) Render(s State) {
	for _, msg := range s.Transcript {
		if msg.Loading || v.printed[msg.ID] {
			continue
		}
		v.printed[msg.ID] = true
		fmt.Fprintf(v.out, "%s> %s\n", label(msg.Role), msg.Text)
	}
}
