package ocr

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"go.klb.dev/cliplingo/internal/clip"
)

var (
	// ErrExtraction wraps every recognition failure.
	ErrExtraction = errors.New("text extraction failed")
	// ErrNoText is returned when recognition succeeds but finds nothing.
	ErrNoText = errors.New("no text found in image")
)

// Options configures the Tesseract extractor.
type Options struct {
	// Languages are Tesseract language codes, e.g. "eng", "fra". Default "eng".
	Languages []string
	// TessdataPrefix overrides the tessdata directory. Empty uses the system default.
	TessdataPrefix string
	// MinHeight triggers upscaling for shorter images. 0 uses DefaultMinHeight.
	MinHeight int
	// Threshold binarizes the grayscale image at this level. 0 disables it.
	Threshold uint8
}

// Tesseract extracts text with libtesseract.
type Tesseract struct {
	opts Options
}

// NewTesseract returns an extractor with defaults applied.
func NewTesseract(opts Options) *Tesseract {
	if len(opts.Languages) == 0 {
		opts.Languages = []string{"eng"}
	}
	if opts.MinHeight == 0 {
		opts.MinHeight = DefaultMinHeight
	}
	return &Tesseract{opts: opts}
}

// Languages returns the configured recognition languages.
func (t *Tesseract) Languages() []string { return t.opts.Languages }

// Extract runs OCR over img. The context is checked before the engine
// starts; a running recognition cannot be interrupted.
func (t *Tesseract) Extract(ctx context.Context, img clip.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := Preprocess(img, t.opts.MinHeight, t.opts.Threshold)
	if err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if t.opts.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(t.opts.TessdataPrefix); err != nil {
			return "", fmt.Errorf("%w: set tessdata path: %v", ErrExtraction, err)
		}
	}
	if err := client.SetLanguage(t.opts.Languages...); err != nil {
		return "", fmt.Errorf("%w: set language: %v", ErrExtraction, err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		return "", fmt.Errorf("%w: set page segmentation: %v", ErrExtraction, err)
	}
	if err := client.SetImageFromBytes(data); err != nil {
		return "", fmt.Errorf("%w: set image: %v", ErrExtraction, err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}

// Version returns the linked Tesseract version.
func Version() string {
	return gosseract.Version()
}
