package main

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperr "github.com/GriffinCanCode/autoui/internal/errors"
	"github.com/GriffinCanCode/autoui/internal/session"
)

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func textured(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x*7 + y*13) % 256)})
		}
	}
	return img
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestCompareCommand(t *testing.T) {
	dir := t.TempDir()
	ref := filepath.Join(dir, "ref.png")
	same := filepath.Join(dir, "same.png")
	changed := filepath.Join(dir, "changed.png")

	img := textured(40, 40)
	writePNG(t, ref, img)
	writePNG(t, same, img)

	alt := textured(40, 40)
	for y := 10; y < 30; y++ {
		for x := 10; x < 30; x++ {
			alt.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	writePNG(t, changed, alt)

	artifactsDir := filepath.Join(dir, "artifacts")
	out, err := run(t, "--artifacts", artifactsDir, "compare", ref, same)
	if err != nil {
		t.Fatalf("identical compare: %v", err)
	}
	if !strings.Contains(out, "PASS") {
		t.Errorf("output missing pass verdict:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(artifactsDir, "reports")); err != nil {
		t.Errorf("artifact layout not created: %v", err)
	}

	if _, err := run(t, "--artifacts", artifactsDir, "compare", ref, changed); !errors.Is(err, errMismatch) {
		t.Errorf("changed compare err = %v, want errMismatch", err)
	}
}

func TestCompareRequiresTwoArgs(t *testing.T) {
	if _, err := run(t, "--artifacts", t.TempDir(), "compare", "only-one.png"); err == nil {
		t.Error("expected argument error")
	}
}

func TestInvalidLogFormat(t *testing.T) {
	if _, err := run(t, "--artifacts", t.TempDir(), "--log-format", "xml", "compare", "a", "b"); err == nil {
		t.Error("expected unsupported log format error")
	}
}

func TestLoadSteps(t *testing.T) {
	dir := t.TempDir()
	scenario := filepath.Join(dir, "scenario.json")
	if err := os.WriteFile(scenario, []byte(`{"elements":[
		{"name":"submit","type":"button","action":"click","target_text":"Submit","description":"press submit"},
		{"name":"name","type":"input","action":"type","text":"hello","description":"enter name"}
	]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	sessionPath := filepath.Join(dir, "session.json")
	s := &session.Session{Elements: []session.Action{{
		Kind: session.KindClick, Timestamp: 0.5,
		Coordinates: &session.Point{X: 10, Y: 20}, Button: "left",
		MonitorIndex: 1, Screenshot: filepath.Join(dir, "shot.png"),
	}}}
	if err := s.Save(sessionPath); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name        string
		sessionPath string
		args        []string
		wantSteps   int
		wantErr     bool
	}{
		{"scenario", "", []string{scenario}, 2, false},
		{"session", sessionPath, nil, 1, false},
		{"both", sessionPath, []string{scenario}, 0, true},
		{"neither", "", nil, 0, true},
		{"missing scenario", "", []string{filepath.Join(dir, "nope.json")}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, steps, err := loadSteps(tt.sessionPath, tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(steps) != tt.wantSteps {
				t.Errorf("steps = %d, want %d", len(steps), tt.wantSteps)
			}
		})
	}

	if _, _, err := loadSteps("", []string{filepath.Join(dir, "nope.json")}); !apperr.IsCode(err, apperr.InvalidSession) {
		t.Errorf("missing scenario code = %v, want InvalidSession", apperr.CodeOf(err))
	}
}

func TestMissingEnvFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := run(t, "--env", filepath.Join(dir, "absent.env"), "--artifacts", dir, "compare", "a.png", "b.png"); err == nil {
		t.Error("a named env file that does not exist should fail the command")
	}
}
