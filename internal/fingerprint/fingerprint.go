// Package fingerprint computes change-detection digests of clipboard payloads.
//
// The canonical byte form of a payload is:
//
//	image: "img" | width (uint32 BE) | height (uint32 BE) | NRGBA pixels
//	text:  "txt" | UTF-8 bytes
//
// and the digest is xxhash64 of that stream. It is not a security primitive.
package fingerprint

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/cespare/xxhash/v2"

	"go.klb.dev/cliplingo/internal/clip"
)

// Size is the digest length in bytes.
const Size = 8

// Fingerprint is a fixed-size content digest.
type Fingerprint [Size]byte

func (f Fingerprint) String() string { return hex.EncodeToString(f[:]) }

// Of returns the fingerprint of p. Callers filter out empty payloads.
func Of(p clip.Payload) Fingerprint {
	d := xxhash.New()
	switch p.Kind {
	case clip.KindImage:
		var dims [8]byte
		binary.BigEndian.PutUint32(dims[:4], uint32(p.Image.Width))
		binary.BigEndian.PutUint32(dims[4:], uint32(p.Image.Height))
		_, _ = d.WriteString("img")
		_, _ = d.Write(dims[:])
		_, _ = d.Write(p.Image.Pixels)
	case clip.KindText:
		_, _ = d.WriteString("txt")
		_, _ = d.WriteString(p.Text)
	}
	var f Fingerprint
	binary.BigEndian.PutUint64(f[:], d.Sum64())
	return f
}

// OfText is shorthand for the fingerprint of a text payload holding s.
func OfText(s string) Fingerprint {
	return Of(clip.Payload{Kind: clip.KindText, Text: s})
}
