//go:build darwin || windows || linux

package clip

import (
	"log/slog"
	"sync"

	"golang.design/x/clipboard"
)

type systemBackend struct {
	writeMu sync.Mutex
}

// New returns the system clipboard backend, or a headless no-op backend if
// the display environment is unavailable (e.g. a headless server without X11
// or Wayland). clipboard.Init is called here rather than in init() so that
// sub-commands that never touch the clipboard don't log spurious warnings.
func New() Backend {
	if err := clipboard.Init(); err != nil {
		slog.Warn("clipboard unavailable, running headless", "err", err)
		return headlessBackend{}
	}
	return &systemBackend{}
}

func (b *systemBackend) Name() string { return "system clipboard (golang.design)" }

func (b *systemBackend) Read() (Payload, error) {
	if img := clipboard.Read(clipboard.FmtImage); len(img) > 0 {
		return DecodeImage(img)
	}
	if text := clipboard.Read(clipboard.FmtText); len(text) > 0 {
		return TextPayload(string(text)), nil
	}
	return Empty, nil
}

// WriteText serializes writes; completed jobs may finish concurrently.
func (b *systemBackend) WriteText(s string) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	clipboard.Write(clipboard.FmtText, []byte(s))
	return nil
}

func (b *systemBackend) Close() {}
