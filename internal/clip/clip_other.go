//go:build !darwin && !windows && !linux

package clip

// New returns a no-op backend suitable for headless platforms.
func New() Backend {
	return headlessBackend{}
}
