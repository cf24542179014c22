package relay

import (
	"errors"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// ErrInvalidJSON is returned when an upstream body cannot be parsed as JSON.
var ErrInvalidJSON = errors.New("upstream response is not valid JSON")

// Extractor pulls a reply out of a JSON document. ok is false when the shape
// it understands is not present.
type Extractor func(body []byte) (reply string, ok bool)

// DefaultExtractors lists the known upstream response shapes in priority order.
var DefaultExtractors = []Extractor{
	FieldExtractor("candidates.0.content"),
	FieldExtractor("output.0.content"),
	FieldExtractor("response"),
}

// FieldExtractor matches a gjson path whose value is present and truthy.
func FieldExtractor(path string) Extractor {
	return func(body []byte) (string, bool) {
		result := gjson.GetBytes(body, path)
		if !truthy(result) {
			return "", false
		}
		return resultText(result), true
	}
}

// Normalize applies extractors in order and returns the first hit. When none
// match, the compacted body itself is the reply.
func Normalize(body []byte, extractors []Extractor) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", ErrInvalidJSON
	}

	for _, extract := range extractors {
		if reply, ok := extract(body); ok {
			return reply, nil
		}
	}

	return string(pretty.Ugly(body)), nil
}

// truthy mirrors JavaScript truthiness: missing, null, false, 0 and "" are
// absent.
func truthy(r gjson.Result) bool {
	switch r.Type {
	case gjson.String:
		return r.Str != ""
	case gjson.Number:
		return r.Num != 0
	case gjson.True, gjson.JSON:
		return true
	default:
		return false
	}
}

func resultText(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.JSON:
		if text, ok := partsText(r); ok {
			return text
		}
		return string(pretty.Ugly([]byte(r.Raw)))
	default:
		return r.Raw
	}
}

// partsText flattens a Gemini content object {"parts":[{"text":...}]}.
func partsText(r gjson.Result) (string, bool) {
	if !r.IsObject() {
		return "", false
	}

	parts := r.Get("parts")
	if !parts.IsArray() {
		return "", false
	}

	var (
		builder strings.Builder
		found   bool
	)
	parts.ForEach(func(_, part gjson.Result) bool {
		text := part.Get("text")
		if text.Type == gjson.String {
			builder.WriteString(text.Str)
			found = true
		}
		return true
	})

	return builder.String(), found
}

// PromptFromJSON reads the "prompt" field from a request body. Absent or falsy
// values, and bodies that are not JSON at all, yield ErrPromptRequired.
func PromptFromJSON(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", ErrPromptRequired
	}

	prompt := gjson.GetBytes(body, "prompt")
	if !truthy(prompt) {
		return "", ErrPromptRequired
	}

	if prompt.Type == gjson.String {
		return prompt.Str, nil
	}
	return prompt.Raw, nil
}
