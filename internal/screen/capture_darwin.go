//go:build darwin

package screen

import "context"

type darwinBackend struct{}

// -x: no sound, -t png, -m: main display only
func (darwinBackend) captureRaw(ctx context.Context, file string) error {
	return runTool(ctx, "screencapture", "-x", "-t", "png", "-m", file)
}

// New creates a platform-specific screen capturer
func New() Capturer {
	return newBase(darwinBackend{})
}
