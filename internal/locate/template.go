package locate

import (
	"context"
	"image"
	"strconv"

	apperr "github.com/GriffinCanCode/autoui/internal/errors"
	"github.com/GriffinCanCode/autoui/internal/screen"
	"github.com/GriffinCanCode/autoui/internal/vision"
)

// DefaultTemplateFloor is the lowest score accepted as a template match.
const DefaultTemplateFloor = 0.5

// TemplateLocator finds a reference image on screen.
type TemplateLocator struct {
	capturer screen.Capturer
	matcher  vision.Matcher
	floor    float64
}

func NewTemplateLocator(c screen.Capturer, m vision.Matcher, floor float64) *TemplateLocator {
	return &TemplateLocator{capturer: c, matcher: m, floor: floor}
}

// Locate captures the full screen and matches the template at path.
func (l *TemplateLocator) Locate(ctx context.Context, path string) (Result, error) {
	shot, err := l.capturer.CaptureScreen(ctx)
	if err != nil {
		return Result{}, err
	}
	return l.LocateIn(shot, path)
}

// LocateIn matches the template at path inside an existing capture.
func (l *TemplateLocator) LocateIn(shot image.Image, path string) (Result, error) {
	templ, err := vision.Load(path)
	if err != nil {
		return Result{}, apperr.Wrapf(err, apperr.TemplateNotFound, "load template %s", path)
	}
	return l.MatchIn(shot, templ)
}

// MatchIn matches an in-memory template inside an existing capture.
func (l *TemplateLocator) MatchIn(shot, templ image.Image) (Result, error) {
	m, err := l.matcher.MatchTemplate(shot, templ)
	if err != nil {
		return Result{}, apperr.Wrap(err, apperr.TemplateNotFound, "match template")
	}
	score := clamp01(m.Score)
	if score < l.floor {
		return Result{}, apperr.Newf(apperr.TemplateNotFound, "best score %.3f below floor %.2f", score, l.floor).
			WithMetadata("x", strconv.Itoa(m.Center().X)).
			WithMetadata("y", strconv.Itoa(m.Center().Y))
	}
	return Result{Coordinates: m.Center(), Confidence: score, Source: SourceTemplate}, nil
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}
