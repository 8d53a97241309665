package clip

import "errors"

// ErrHeadless is returned by writes to the headless backend.
var ErrHeadless = errors.New("no clipboard available (headless)")

// headlessBackend is a no-op clipboard backend for environments without a
// display server (headless Linux servers, containers, etc.).
// It always reads Empty and refuses writes.
type headlessBackend struct{}

func (headlessBackend) Name() string             { return "headless (no-op)" }
func (headlessBackend) Read() (Payload, error)   { return Empty, nil }
func (headlessBackend) WriteText(_ string) error { return ErrHeadless }
func (headlessBackend) Close()                   {}
