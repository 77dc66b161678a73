// Package translate defines the translation backend used for sentences.
package translate

import (
	"context"
	"errors"
)

// ErrEmptyTranslation is returned when the backend produced no text.
var ErrEmptyTranslation = errors.New("translation is empty")

// Translator maps a source sentence to its translation.
// Implementations must be safe for concurrent use.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

// Func adapts a function to the Translator interface.
type Func func(ctx context.Context, text string) (string, error)

func (f Func) Translate(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}
