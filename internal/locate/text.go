package locate

import (
	"context"
	"image"

	apperr "github.com/GriffinCanCode/autoui/internal/errors"
	"github.com/GriffinCanCode/autoui/internal/ocr"
	"github.com/GriffinCanCode/autoui/internal/screen"
)

// TextLocator finds visible text on screen through OCR.
type TextLocator struct {
	capturer   screen.Capturer
	recognizer ocr.Recognizer
}

func NewTextLocator(c screen.Capturer, r ocr.Recognizer) *TextLocator {
	return &TextLocator{capturer: c, recognizer: r}
}

func (l *TextLocator) Locate(ctx context.Context, target string) (Result, error) {
	shot, err := l.capturer.CaptureScreen(ctx)
	if err != nil {
		return Result{}, err
	}
	return l.LocateIn(ctx, shot, target)
}

// LocateIn returns the centre of the first span whose text equals target.
func (l *TextLocator) LocateIn(ctx context.Context, shot image.Image, target string) (Result, error) {
	spans, err := l.recognizer.Recognize(ctx, shot)
	if err != nil {
		return Result{}, err
	}
	for _, s := range spans {
		if !s.Matches(target) {
			continue
		}
		b := s.Bounds()
		return Result{
			Coordinates: image.Pt((b.Min.X+b.Max.X)/2, (b.Min.Y+b.Max.Y)/2),
			Confidence:  clamp01(s.Confidence),
			Source:      SourceText,
		}, nil
	}
	return Result{}, apperr.Newf(apperr.TextNotFound, "text %q not on screen", target).
		WithMetadata("spans", ocr.Join(spans))
}
