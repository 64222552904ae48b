package verify

import (
	"context"
	"encoding/json"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/GriffinCanCode/autoui/internal/artifacts"
	apperr "github.com/GriffinCanCode/autoui/internal/errors"
	"github.com/GriffinCanCode/autoui/internal/vision"
)

func solid(w, h int, v uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func textured(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x*29 + y*53 + (x*y)%17) % 256)
			img.Set(x, y, color.RGBA{R: v, G: 255 - v, B: uint8(x * 4), A: 255})
		}
	}
	return img
}

func newEngine(t *testing.T) (*Engine, artifacts.Layout) {
	t.Helper()
	layout := artifacts.New(t.TempDir())
	if err := layout.Ensure(); err != nil {
		t.Fatal(err)
	}
	return NewEngine(layout, vision.DefaultWindow), layout
}

func save(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := vision.Save(path, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCompareIdentical(t *testing.T) {
	e, _ := newEngine(t)
	dir := t.TempDir()
	img := textured(64, 48)
	ref := save(t, dir, "ref.png", img)
	cand := save(t, dir, "cand.png", img)

	res, err := e.Compare(context.Background(), ref, cand, DefaultThreshold)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if res.Score != 1 {
		t.Errorf("score = %.17g, want exactly 1", res.Score)
	}
	if !res.Passed || len(res.DiffRegions) != 0 {
		t.Errorf("identical images: passed=%v regions=%v", res.Passed, res.DiffRegions)
	}
	if res.HashDistance != 0 {
		t.Errorf("hash distance = %d, want 0", res.HashDistance)
	}
	for _, p := range []string{res.Artifacts.MarkedReference, res.Artifacts.MarkedCandidate, res.Artifacts.DiffMap} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("artifact %s: %v", p, err)
		}
	}
	if !strings.HasPrefix(filepath.Base(res.Artifacts.MarkedReference), "ref_reference_") {
		t.Errorf("marked reference name = %s", res.Artifacts.MarkedReference)
	}
}

func TestCompareBlockChange(t *testing.T) {
	e, layout := newEngine(t)
	ref := solid(30, 30, 128)
	cand := solid(30, 30, 128)
	block := image.Rect(10, 10, 20, 20)
	for y := block.Min.Y; y < block.Max.Y; y++ {
		for x := block.Min.X; x < block.Max.X; x++ {
			cand.Set(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}

	res, err := e.CompareImages(context.Background(), ref, cand, "block", DefaultThreshold)
	if err != nil {
		t.Fatal(err)
	}
	if res.Passed {
		t.Errorf("score %.3f passed, want fail", res.Score)
	}
	if len(res.DiffRegions) != 1 {
		t.Fatalf("regions = %v, want exactly one", res.DiffRegions)
	}
	if r := res.DiffRegions[0]; !block.In(r) || !r.In(block.Inset(-4)) {
		t.Errorf("region %v does not approximate block %v", r, block)
	}

	marked, err := vision.Load(res.Artifacts.MarkedCandidate)
	if err != nil {
		t.Fatal(err)
	}
	r := res.DiffRegions[0]
	if got := color.RGBAModel.Convert(marked.At(r.Min.X, r.Min.Y)).(color.RGBA); got != vision.Highlight {
		t.Errorf("region corner colour = %v, want highlight", got)
	}
	if filepath.Dir(res.Artifacts.DiffMap) != layout.Differences() {
		t.Errorf("diff map written to %s", res.Artifacts.DiffMap)
	}
}

func TestCompareResizesCandidate(t *testing.T) {
	e, _ := newEngine(t)
	res, err := e.CompareImages(context.Background(), solid(40, 30, 90), solid(80, 60, 90), "resized", DefaultThreshold)
	if err != nil {
		t.Fatal(err)
	}
	if res.Score < 0.99 || !res.Passed {
		t.Errorf("scaled copy scored %.4f", res.Score)
	}
	marked, err := vision.Load(res.Artifacts.MarkedCandidate)
	if err != nil {
		t.Fatal(err)
	}
	if marked.Bounds().Size() != image.Pt(40, 30) {
		t.Errorf("candidate artifact size = %v, want reference size", marked.Bounds().Size())
	}
}

func TestCompareErrors(t *testing.T) {
	e, _ := newEngine(t)
	dir := t.TempDir()
	good := save(t, dir, "good.png", solid(10, 10, 0))
	garbage := filepath.Join(dir, "garbage.png")
	if err := os.WriteFile(garbage, []byte("not a png"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := e.Compare(context.Background(), filepath.Join(dir, "missing.png"), good, DefaultThreshold); !apperr.IsCode(err, apperr.ImageUnreadable) {
		t.Errorf("missing reference err = %v", err)
	}
	if _, err := e.Compare(context.Background(), good, garbage, DefaultThreshold); !apperr.IsCode(err, apperr.ImageUnreadable) {
		t.Errorf("garbage candidate err = %v", err)
	}
	empty := image.NewRGBA(image.Rect(0, 0, 0, 0))
	if _, err := e.CompareImages(context.Background(), solid(10, 10, 0), empty, "empty", DefaultThreshold); !apperr.IsCode(err, apperr.DimensionMismatch) {
		t.Errorf("zero-size err = %v, want DimensionMismatch", err)
	}
}

func TestResultJSON(t *testing.T) {
	r := Result{Score: 0.5, DiffRegions: []image.Rectangle{image.Rect(1, 2, 3, 4)}, HashDistance: 7}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"diff_regions":[[1,2,3,4]]`) {
		t.Errorf("json = %s", data)
	}
}
