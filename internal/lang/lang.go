// Package lang defines the abstract language code used between the dispatch
// loop, the language identifier and the translation backends, plus the
// whatlanggo-based identifier.
package lang

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
)

// Code is a lower-case ISO 639-1 language code.
type Code string

// Auto asks the translator to detect the source language itself.
const Auto Code = "auto"

// ErrUndetermined is returned when no reliable language guess exists.
var ErrUndetermined = errors.New("language undetermined")

// Parse normalizes user supplied tags: "EN", "en-US" and "en_us" all
// become "en". "auto" and "" map to Auto.
func Parse(s string) (Code, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if i := strings.IndexAny(s, "-_"); i >= 0 {
		s = s[:i]
	}
	switch {
	case s == "" || s == string(Auto):
		return Auto, nil
	case len(s) != 2 || !isLetters(s):
		return "", fmt.Errorf("invalid language code %q", s)
	}
	return Code(s), nil
}

func isLetters(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// IsAuto reports whether c requests automatic detection.
func (c Code) IsAuto() bool { return c == Auto || c == "" }

func (c Code) String() string {
	if c == "" {
		return string(Auto)
	}
	return string(c)
}

// Identifier guesses the language of a text.
type Identifier interface {
	Detect(text string) (Code, error)
}

// minDetectRunes is the shortest input handed to the detector; shorter
// strings produce noise.
const minDetectRunes = 3

// Whatlang is an Identifier backed by whatlanggo's trigram models.
type Whatlang struct {
	// RequireReliable rejects guesses whatlanggo marks as unreliable.
	RequireReliable bool
}

// NewWhatlang returns an Identifier that only accepts reliable guesses. Short
// snippets usually fail it; callers fall back to Auto. A zero Whatlang
// returns the best guess whatever its confidence.
func NewWhatlang() *Whatlang {
	return &Whatlang{RequireReliable: true}
}

func (w *Whatlang) Detect(text string) (Code, error) {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < minDetectRunes {
		return "", ErrUndetermined
	}
	info := whatlanggo.Detect(text)
	if w.RequireReliable && !info.IsReliable() {
		return "", fmt.Errorf("%w: best guess %s (confidence %.2f)", ErrUndetermined, info.Lang.String(), info.Confidence)
	}
	code := info.Lang.Iso6391()
	if code == "" {
		return "", fmt.Errorf("%w: %s has no ISO 639-1 code", ErrUndetermined, info.Lang.String())
	}
	return Code(code), nil
}
