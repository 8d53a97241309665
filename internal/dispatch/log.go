package dispatch

import (
	"context"
	"log/slog"

	"go.klb.dev/cliplingo/internal/clip"
	"go.klb.dev/cliplingo/internal/fingerprint"
	"go.klb.dev/cliplingo/internal/logging"
)

// logPayload logs a clipboard event at INFO (kind, fingerprint) and DEBUG
// (text preview, or image dimensions and size).
func logPayload(event string, p clip.Payload, fp fingerprint.Fingerprint) {
	slog.Info(event, "kind", p.Kind.String(), "fingerprint", fp.String())

	if !slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	switch p.Kind {
	case clip.KindText:
		slog.Debug("clipboard payload", "kind", "text", "preview", logging.Preview(p.Text))
	case clip.KindImage:
		slog.Debug("clipboard payload",
			"kind", "image",
			"width", p.Image.Width,
			"height", p.Image.Height,
			"size_bytes", len(p.Image.Encoded),
		)
	}
}
