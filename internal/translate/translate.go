// Package translate implements the translation backends: a stateless remote
// service client and a locally loaded neural model. The dispatch loop only
// sees the Translator interface.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.klb.dev/cliplingo/internal/lang"
)

// Translator converts text from a source to a target language.
type Translator interface {
	// Name identifies the backend in logs.
	Name() string

	// Translate returns text rendered in target. source may be lang.Auto.
	// Failures are returned as *Error.
	Translate(ctx context.Context, text string, source, target lang.Code) (string, error)

	// Close releases backend resources.
	Close() error
}

var (
	// ErrUnsupported is returned for language pairs a backend cannot serve.
	ErrUnsupported = errors.New("unsupported language")
	// ErrBackend covers transport, protocol and model failures.
	ErrBackend = errors.New("translation backend failure")
	// ErrEmptyResult is returned when the backend answers with no text.
	ErrEmptyResult = errors.New("empty translation")
)

// Error is the typed failure returned by every backend.
type Error struct {
	Backend string
	Err     error
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %v", e.Backend, e.Err) }

func (e *Error) Unwrap() error { return e.Err }

func fail(backend string, kind error, format string, args ...any) error {
	return &Error{Backend: backend, Err: fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))}
}

// sameText reports whether a translation is a no-op of its input.
func sameText(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
