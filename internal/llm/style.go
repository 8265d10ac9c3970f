package llm

import (
	"errors"
	"fmt"
	"strings"
)

// Style selects the instruction template handed to the summarizer.
type Style string

const (
	StyleConcise  Style = "concise"
	StyleDetailed Style = "detailed"
	StyleBullet   Style = "bullet"
)

// ErrUnknownStyle is returned for style values outside the supported set.
// Unknown values fail closed before any provider call is made.
var ErrUnknownStyle = errors.New("unknown summary style")

// ParseStyle validates a raw style value.
func ParseStyle(raw string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(raw))) {
	case StyleConcise:
		return StyleConcise, nil
	case StyleDetailed:
		return StyleDetailed, nil
	case StyleBullet:
		return StyleBullet, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStyle, raw)
	}
}

// Instruction returns the style-specific instruction template. The switch is
// exhaustive over the style enum; a value that slipped past ParseStyle is an
// error, never an undefined prompt.
func (s Style) Instruction() (string, error) {
	switch s {
	case StyleConcise:
		return "Summarize the following document in two or three sentences. Keep only the essential points.", nil
	case StyleDetailed:
		return "Write a thorough summary of the following document. Cover every major section and preserve important details, figures, and names.", nil
	case StyleBullet:
		return "Summarize the following document as a bullet list. One bullet per key point, each bullet a single short sentence.", nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStyle, string(s))
	}
}

// BuildPrompt combines the style instruction and the document text.
func BuildPrompt(text string, style Style) (string, error) {
	instruction, err := style.Instruction()
	if err != nil {
		return "", err
	}
	return instruction + "\n\n---\n\n" + text, nil
}
