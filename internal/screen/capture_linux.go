//go:build linux

package screen

import (
	"context"
	"errors"
	"os/exec"
)

var errNoTool = errors.New("no screenshot tool found (install scrot, gnome-screenshot or imagemagick)")

type linuxBackend struct {
	lookPath func(string) (string, error)
}

func (l linuxBackend) captureRaw(ctx context.Context, file string) error {
	argv, err := l.command(file)
	if err != nil {
		return err
	}
	return runTool(ctx, argv[0], argv[1:]...)
}

// command picks the first installed tool; scrot and import grab the whole
// X screen, which matches the recorder's virtual-desktop coordinates.
func (l linuxBackend) command(file string) ([]string, error) {
	candidates := [][]string{
		{"scrot", "-o", "-z", file},
		{"import", "-window", "root", file},
		{"gnome-screenshot", "-f", file},
	}
	for _, c := range candidates {
		if _, err := l.lookPath(c[0]); err == nil {
			return c, nil
		}
	}
	return nil, errNoTool
}

// New creates a platform-specific screen capturer
func New() Capturer {
	return newBase(linuxBackend{lookPath: exec.LookPath})
}
