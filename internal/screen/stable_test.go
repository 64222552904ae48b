package screen

import (
	"context"
	"errors"
	"image"
	"math/rand"
	"testing"
	"time"
)

// sequenceCapturer replays frames, repeating the last one.
type sequenceCapturer struct {
	frames []image.Image
	calls  int
	err    error
}

func (s *sequenceCapturer) CaptureScreen(context.Context) (image.Image, error) {
	if s.err != nil {
		return nil, s.err
	}
	i := s.calls
	if i >= len(s.frames) {
		i = len(s.frames) - 1
	}
	s.calls++
	return s.frames[i], nil
}

func (s *sequenceCapturer) CaptureRegion(ctx context.Context, _ image.Rectangle) (image.Image, error) {
	return s.CaptureScreen(ctx)
}

func (s *sequenceCapturer) Close() {}

func noise(seed int64) *image.Gray {
	r := rand.New(rand.NewSource(seed))
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = uint8(r.Intn(256))
	}
	return img
}

var fast = StableOptions{Interval: time.Millisecond, MaxDistance: 2, Frames: 2}

func TestWaitStableIdenticalFrames(t *testing.T) {
	c := &sequenceCapturer{frames: []image.Image{noise(1)}}

	img, stable, err := WaitStable(context.Background(), c, time.Second, fast)
	if err != nil {
		t.Fatalf("WaitStable: %v", err)
	}
	if !stable || img == nil {
		t.Fatalf("stable = %v, img = %v", stable, img)
	}
	if c.calls != 3 {
		t.Errorf("captures = %d, want 3", c.calls)
	}
}

func TestWaitStableAfterChanges(t *testing.T) {
	a, b := noise(1), noise(2)
	c := &sequenceCapturer{frames: []image.Image{a, b, a, b}}

	img, stable, err := WaitStable(context.Background(), c, time.Second, fast)
	if err != nil {
		t.Fatalf("WaitStable: %v", err)
	}
	if !stable {
		t.Fatal("expected stable once frames stop changing")
	}
	if img != image.Image(b) {
		t.Error("returned frame should be the settled one")
	}
	if c.calls != 6 {
		t.Errorf("captures = %d, want 6", c.calls)
	}
}

func TestWaitStableDeadline(t *testing.T) {
	frames := make([]image.Image, 0, 1000)
	for i := 0; i < cap(frames); i++ {
		frames = append(frames, noise(int64(i)))
	}
	c := &sequenceCapturer{frames: frames}

	img, stable, err := WaitStable(context.Background(), c, 20*time.Millisecond, fast)
	if err != nil {
		t.Fatalf("WaitStable: %v", err)
	}
	if stable {
		t.Error("changing screen reported stable")
	}
	if img == nil {
		t.Error("deadline should still return the last capture")
	}
}

func TestWaitStableZeroTimeoutCapturesOnce(t *testing.T) {
	c := &sequenceCapturer{frames: []image.Image{noise(1)}}

	if _, _, err := WaitStable(context.Background(), c, 0, fast); err != nil {
		t.Fatal(err)
	}
	if c.calls != 1 {
		t.Errorf("captures = %d, want 1", c.calls)
	}
}

func TestWaitStableErrors(t *testing.T) {
	boom := errors.New("boom")
	if _, _, err := WaitStable(context.Background(), &sequenceCapturer{err: boom}, time.Second, fast); !errors.Is(err, boom) {
		t.Errorf("err = %v, want capture error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &sequenceCapturer{frames: []image.Image{noise(1)}}
	if _, _, err := WaitStable(ctx, c, time.Second, fast); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if c.calls != 0 {
		t.Errorf("captures after cancel = %d, want 0", c.calls)
	}
}
