// Package clip provides a unified interface to the system clipboard.
// Build constraints select the implementation:
//
//	clip_system.go   macOS, Windows and Linux via golang.design/x/clipboard
//	clip_other.go    headless stub for every other platform
//
// A headless backend is also returned when the display server is unavailable.
package clip

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/disintegration/imaging"
)

// Kind tags the content of a Payload.
type Kind int

const (
	KindEmpty Kind = iota
	KindImage
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindText:
		return "text"
	default:
		return "empty"
	}
}

// Image is a decoded clipboard image.
type Image struct {
	// Pixels holds NRGBA bytes, row-major, 4 bytes per pixel.
	Pixels []byte
	Width  int
	Height int
	// Encoded is the image as it was read from the clipboard (PNG).
	Encoded []byte
}

// Payload is the content of one clipboard poll.
type Payload struct {
	Kind  Kind
	Image Image
	Text  string
}

// Empty is the zero Payload.
var Empty = Payload{}

// IsEmpty reports whether p carries no usable content.
func (p Payload) IsEmpty() bool { return p.Kind == KindEmpty }

// TextPayload returns a text Payload, or Empty for whitespace-only text.
func TextPayload(s string) Payload {
	if strings.TrimSpace(s) == "" {
		return Empty
	}
	return Payload{Kind: KindText, Text: s}
}

// DecodeImage decodes encoded image bytes into an image Payload with
// canonical NRGBA pixels.
func DecodeImage(encoded []byte) (Payload, error) {
	img, err := imaging.Decode(bytes.NewReader(encoded))
	if err != nil {
		return Empty, fmt.Errorf("decode clipboard image: %w", err)
	}
	nrgba := imaging.Clone(img)
	b := nrgba.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return Empty, nil
	}
	return Payload{
		Kind: KindImage,
		Image: Image{
			Pixels:  nrgba.Pix,
			Width:   b.Dx(),
			Height:  b.Dy(),
			Encoded: encoded,
		},
	}, nil
}

// Backend is the interface that all clipboard implementations satisfy.
type Backend interface {
	// Name returns a human-readable name for the backend.
	Name() string

	// Read returns the current clipboard content. An image takes priority
	// over text held at the same time. Returns Empty when the clipboard holds
	// neither a decodable image nor non-blank text.
	Read() (Payload, error)

	// WriteText replaces the clipboard content with s.
	WriteText(s string) error

	// Close releases any resources held by the backend.
	Close()
}
