package llm

import (
	"context"
	"errors"
	"fmt"
)

// Completer sends a single prompt to a text-completion provider and returns the reply text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

var (
	// ErrNotConfigured is returned when no provider credentials were supplied.
	ErrNotConfigured = errors.New("llm provider not configured")

	// ErrEmptyCompletion is returned when the provider answered without any text.
	ErrEmptyCompletion = errors.New("llm returned empty completion")
)

// Unconfigured fails every call with ErrNotConfigured. Dev setups without
// credentials still boot; pipelines fail at the structuring stage with a clear reason.
type Unconfigured struct {
	Provider string
}

// Complete returns ErrNotConfigured.
func (u Unconfigured) Complete(ctx context.Context, prompt string) (string, error) {
	if u.Provider == "" {
		return "", ErrNotConfigured
	}
	return "", fmt.Errorf("%w: provider %s", ErrNotConfigured, u.Provider)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}
