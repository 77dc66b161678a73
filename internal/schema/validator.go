// Package schema validates transcript events at the provider boundary.
package schema

import (
	"errors"
	"strings"
	"unicode/utf8"

	"live-caption-service/internal/models"
)

var (
	ErrEmptyTranscript = errors.New("empty transcript")
	ErrInvalidUTF8     = errors.New("transcript is not valid UTF-8")
	ErrTooLong         = errors.New("transcript exceeds maximum length")
)

// DefaultMaxRunes bounds a single transcript.
const DefaultMaxRunes = 4096

type Validator struct {
	maxRunes int
}

func New() *Validator {
	return &Validator{maxRunes: DefaultMaxRunes}
}

// Validate returns ev with its transcript trimmed, or the reason it is unusable.
func (v *Validator) Validate(ev models.TranscriptEvent) (models.TranscriptEvent, error) {
	if !utf8.ValidString(ev.Transcript) {
		return ev, ErrInvalidUTF8
	}
	ev.Transcript = strings.TrimSpace(ev.Transcript)
	if ev.Transcript == "" {
		return ev, ErrEmptyTranscript
	}
	if v.maxRunes > 0 && utf8.RuneCountInString(ev.Transcript) > v.maxRunes {
		return ev, ErrTooLong
	}
	return ev, nil
}

// Reason is a short label for metrics.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyTranscript):
		return "empty"
	case errors.Is(err, ErrInvalidUTF8):
		return "invalid_utf8"
	case errors.Is(err, ErrTooLong):
		return "too_long"
	default:
		return "other"
	}
}
