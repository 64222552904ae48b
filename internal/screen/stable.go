package screen

import (
	"context"
	"image"
	"log/slog"
	"time"

	"github.com/corona10/goimagehash"
)

// StableOptions tune WaitStable.
type StableOptions struct {
	// Interval between captures.
	Interval time.Duration
	// MaxDistance is the pHash Hamming distance still treated as unchanged.
	MaxDistance int
	// Frames is how many consecutive unchanged comparisons count as stable.
	Frames int
}

func DefaultStableOptions() StableOptions {
	return StableOptions{Interval: 250 * time.Millisecond, MaxDistance: 2, Frames: 2}
}

// WaitStable captures the screen until it stops changing or timeout
// elapses, and returns the last capture. stable is false when the deadline
// hit first.
func WaitStable(ctx context.Context, c Capturer, timeout time.Duration, opts StableOptions) (img image.Image, stable bool, err error) {
	def := DefaultStableOptions()
	if opts.Interval <= 0 {
		opts.Interval = def.Interval
	}
	if opts.Frames <= 0 {
		opts.Frames = def.Frames
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	var (
		lastHash *goimagehash.ImageHash
		similar  int
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		img, err = c.CaptureScreen(ctx)
		if err != nil {
			return nil, false, err
		}

		hash, herr := goimagehash.PerceptionHash(img)
		switch {
		case herr != nil:
			hash, similar = nil, 0
		case lastHash != nil:
			if dist, derr := lastHash.Distance(hash); derr == nil && dist <= opts.MaxDistance {
				similar++
			} else {
				similar = 0
			}
		}
		lastHash = hash

		if similar >= opts.Frames {
			return img, true, nil
		}
		if !time.Now().Before(deadline) {
			slog.Debug("screen still changing at deadline", "timeout", timeout)
			return img, false, nil
		}

		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-ticker.C:
		}
	}
}
