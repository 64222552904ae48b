package screen

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperr "github.com/GriffinCanCode/autoui/internal/errors"
	"github.com/GriffinCanCode/autoui/internal/vision"
)

// fileBackend writes a fixed image, or fails.
type fileBackend struct {
	img   image.Image
	err   error
	calls int
}

func (f *fileBackend) captureRaw(_ context.Context, file string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	return vision.Save(file, f.img)
}

func desktop() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 200; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), A: 255})
		}
	}
	return img
}

func TestCaptureScreen(t *testing.T) {
	c := newBase(&fileBackend{img: desktop()})
	defer c.Close()

	img, err := c.CaptureScreen(context.Background())
	if err != nil {
		t.Fatalf("CaptureScreen: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 200, 100) {
		t.Errorf("bounds = %v", img.Bounds())
	}
}

func TestCaptureRegionCropsAndClips(t *testing.T) {
	c := newBase(&fileBackend{img: desktop()})
	defer c.Close()

	img, err := c.CaptureRegion(context.Background(), image.Rect(150, 60, 260, 140))
	if err != nil {
		t.Fatalf("CaptureRegion: %v", err)
	}
	if img.Bounds() != image.Rect(0, 0, 50, 40) {
		t.Errorf("region bounds = %v, want clipped 50x40", img.Bounds())
	}
	r, g, _, _ := img.At(0, 0).RGBA()
	if r>>8 != 150 || g>>8 != 60 {
		t.Errorf("region origin pixel = (%d,%d), want (150,60)", r>>8, g>>8)
	}
}

func TestCaptureFailureCode(t *testing.T) {
	c := newBase(&fileBackend{err: errors.New("no display")})
	defer c.Close()

	if _, err := c.CaptureScreen(context.Background()); !apperr.IsCode(err, apperr.CaptureFailure) {
		t.Errorf("err = %v, want CaptureFailure", err)
	}

	ok := newBase(&fileBackend{img: desktop()})
	defer ok.Close()
	if _, err := ok.CaptureRegion(context.Background(), image.Rect(500, 500, 600, 600)); !apperr.IsCode(err, apperr.CaptureFailure) {
		t.Errorf("off-screen region err = %v, want CaptureFailure", err)
	}
}

// slowBackend writes a differently sized image per call and holds the file
// for a while, so overlapping captures would see each other's output.
type slowBackend struct {
	next atomic.Int32
}

func (s *slowBackend) captureRaw(_ context.Context, file string) error {
	n := int(s.next.Add(1))
	if err := vision.Save(file, image.NewGray(image.Rect(0, 0, 10+n, 10))); err != nil {
		return err
	}
	time.Sleep(time.Duration(n%3) * 5 * time.Millisecond)
	return nil
}

func TestConcurrentCaptures(t *testing.T) {
	c := newBase(&slowBackend{})
	defer c.Close()

	const calls = 8
	widths := make(chan int, calls)
	var wg sync.WaitGroup
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			img, err := c.CaptureScreen(context.Background())
			if err != nil {
				t.Errorf("CaptureScreen: %v", err)
				return
			}
			widths <- img.Bounds().Dx()
		}()
	}
	wg.Wait()
	close(widths)

	seen := map[int]bool{}
	for w := range widths {
		if seen[w] {
			t.Errorf("two captures returned the same %dpx image", w)
		}
		seen[w] = true
	}
	if len(seen) != calls {
		t.Errorf("distinct captures = %d, want %d", len(seen), calls)
	}

	left, err := os.ReadDir(c.tempDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Errorf("temp files left behind: %d", len(left))
	}
}

func TestCloseRemovesTempDir(t *testing.T) {
	c := newBase(&fileBackend{img: desktop()})
	dir := c.tempDir
	c.Close()
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("temp directory should be removed after Close")
	}
}

func TestMonitorIndex(t *testing.T) {
	tests := []struct {
		x, width, want int
	}{
		{0, 1920, 1},
		{1919, 1920, 1},
		{1920, 1920, 2},
		{4000, 1920, 3},
		{-50, 1920, 1},
		{100, 0, 1},
	}
	for _, tt := range tests {
		if got := MonitorIndex(tt.x, tt.width); got != tt.want {
			t.Errorf("MonitorIndex(%d, %d) = %d, want %d", tt.x, tt.width, got, tt.want)
		}
	}
}
