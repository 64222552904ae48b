// Package screen captures the desktop through the platform's screenshot tool.
package screen

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"os/exec"

	apperr "github.com/GriffinCanCode/autoui/internal/errors"
	"github.com/GriffinCanCode/autoui/internal/vision"
)

// Capturer grabs full-screen and region screenshots.
type Capturer interface {
	CaptureScreen(ctx context.Context) (image.Image, error)
	CaptureRegion(ctx context.Context, r image.Rectangle) (image.Image, error)
	Close()
}

// backend produces one encoded full-screen image per call.
type backend interface {
	captureRaw(ctx context.Context, file string) error
}

// baseCapturer decodes backend output and derives region captures by
// cropping, so both capture kinds share one coordinate space.
type baseCapturer struct {
	backend
	tempDir string
}

func newBase(b backend) *baseCapturer {
	tmpDir, err := os.MkdirTemp("", "autoui-screen-*")
	if err != nil {
		slog.Error("failed to create temp dir", "error", err)
		tmpDir = os.TempDir()
	}
	return &baseCapturer{backend: b, tempDir: tmpDir}
}

// CaptureScreen is safe for concurrent use: each call gets its own file.
func (c *baseCapturer) CaptureScreen(ctx context.Context) (image.Image, error) {
	f, err := os.CreateTemp(c.tempDir, "screenshot-*.png")
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CaptureFailure, "create screenshot file")
	}
	tmpFile := f.Name()
	f.Close()
	defer os.Remove(tmpFile)

	if err := c.captureRaw(ctx, tmpFile); err != nil {
		return nil, apperr.Wrap(err, apperr.CaptureFailure, "capture screen")
	}
	img, err := vision.Load(tmpFile)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CaptureFailure, "read screenshot")
	}
	return img, nil
}

func (c *baseCapturer) CaptureRegion(ctx context.Context, r image.Rectangle) (image.Image, error) {
	full, err := c.CaptureScreen(ctx)
	if err != nil {
		return nil, err
	}
	region, err := vision.Crop(full, r)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CaptureFailure, "crop region")
	}
	return region, nil
}

func (c *baseCapturer) Close() {
	if c.tempDir != "" && c.tempDir != os.TempDir() {
		os.RemoveAll(c.tempDir)
	}
}

// runTool runs a screenshot command, folding stderr into the error.
func runTool(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return nil
}
