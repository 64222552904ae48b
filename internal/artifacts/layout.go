// Package artifacts owns the on-disk layout for screenshots, diff maps,
// marked-up comparison images and run reports.
package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"
)

const (
	ScreenshotsDir    = "screenshots"
	DifferencesDir    = "differences"
	MatchableAreasDir = "matchable_areas"
	ReportsDir        = "reports"
)

// Layout resolves artifact paths beneath a root directory.
type Layout struct {
	Root string

	seq *atomic.Uint64
}

// New returns a layout rooted at root. Call Ensure before writing.
func New(root string) Layout {
	return Layout{Root: root, seq: new(atomic.Uint64)}
}

// Ensure creates the root and every artifact subdirectory.
func (l Layout) Ensure() error {
	for _, dir := range []string{ScreenshotsDir, DifferencesDir, MatchableAreasDir, ReportsDir} {
		if err := os.MkdirAll(filepath.Join(l.Root, dir), 0o755); err != nil {
			return fmt.Errorf("create artifact dir %s: %w", dir, err)
		}
	}
	return nil
}

func (l Layout) Screenshots() string    { return filepath.Join(l.Root, ScreenshotsDir) }
func (l Layout) Differences() string    { return filepath.Join(l.Root, DifferencesDir) }
func (l Layout) MatchableAreas() string { return filepath.Join(l.Root, MatchableAreasDir) }
func (l Layout) Reports() string        { return filepath.Join(l.Root, ReportsDir) }

// Screenshot returns a fresh path under screenshots/ for description.
func (l Layout) Screenshot(description string, at time.Time) string {
	return filepath.Join(l.Screenshots(), l.FileName(description, at))
}

// FileName builds "<sanitized>_<unix millis>_<seq>.png". The sequence
// keeps names unique when two captures land in the same millisecond.
func (l Layout) FileName(description string, at time.Time) string {
	var n uint64
	if l.seq != nil {
		n = l.seq.Add(1)
	}
	return fmt.Sprintf("%s_%d_%03d.png", Sanitize(description), at.UnixMilli(), n)
}

// Sanitize replaces spaces with underscores and strips dots and path
// separators, so a description can be embedded in a file name.
func Sanitize(description string) string {
	s := strings.TrimSpace(description)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.NewReplacer(".", "", "/", "", "\\", "", ":", "").Replace(s)
	if s == "" {
		return "capture"
	}
	return s
}

// Stem returns the file name of path without directory or extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
