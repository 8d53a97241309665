package ocr

import (
	"bytes"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"

	"go.klb.dev/cliplingo/internal/clip"
)

// DefaultMinHeight is the height below which images are upscaled.
const DefaultMinHeight = 64

// maxUpscale caps the resize factor for tiny images.
const maxUpscale = 4

// toImage wraps clipboard pixels without copying them.
func toImage(img clip.Image) (*image.NRGBA, error) {
	if img.Width <= 0 || img.Height <= 0 {
		return nil, fmt.Errorf("%w: empty image", ErrExtraction)
	}
	if len(img.Pixels) != img.Width*img.Height*4 {
		return nil, fmt.Errorf("%w: pixel buffer is %d bytes, want %d",
			ErrExtraction, len(img.Pixels), img.Width*img.Height*4)
	}
	return &image.NRGBA{
		Pix:    img.Pixels,
		Stride: img.Width * 4,
		Rect:   image.Rect(0, 0, img.Width, img.Height),
	}, nil
}

// Preprocess prepares a clipboard image for recognition and returns it
// encoded as PNG.
func Preprocess(img clip.Image, minHeight int, threshold uint8) ([]byte, error) {
	src, err := toImage(img)
	if err != nil {
		return nil, err
	}

	var out image.Image = src
	if minHeight > 0 && img.Height < minHeight {
		h := minHeight
		if h > img.Height*maxUpscale {
			h = img.Height * maxUpscale
		}
		out = imaging.Resize(out, 0, h, imaging.Lanczos)
	}
	out = imaging.Grayscale(out)
	if threshold > 0 {
		out = segment.Threshold(out, threshold)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		return nil, fmt.Errorf("%w: encode: %v", ErrExtraction, err)
	}
	return buf.Bytes(), nil
}
