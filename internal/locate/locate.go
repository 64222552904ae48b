// Package locate resolves an element descriptor to one screen coordinate by
// fusing template matching with OCR.
package locate

import (
	"context"
	stderrors "errors"
	"image"
	"log/slog"
	"strconv"

	apperr "github.com/GriffinCanCode/autoui/internal/errors"
	"github.com/GriffinCanCode/autoui/internal/screen"
	"github.com/GriffinCanCode/autoui/internal/trace"
)

// Source names which signal produced a Result.
type Source string

const (
	SourceTemplate Source = "template"
	SourceText     Source = "text"
	SourceFused    Source = "fused"
)

// Result is a resolved coordinate with provenance.
type Result struct {
	Coordinates image.Point `json:"coordinates"`
	Confidence  float64     `json:"confidence"`
	Source      Source      `json:"source"`
}

// Descriptor identifies an element by a reference image, visible text, or both.
type Descriptor struct {
	TemplateImage string
	TargetText    string
}

func (d Descriptor) Empty() bool { return d.TemplateImage == "" && d.TargetText == "" }

// Policy holds the fusion thresholds.
type Policy struct {
	AcceptThreshold float64
	ProximityPx     int
}

func DefaultPolicy() Policy {
	return Policy{AcceptThreshold: 0.75, ProximityPx: 50}
}

// ElementLocator fuses TemplateLocator and TextLocator results.
type ElementLocator struct {
	capturer screen.Capturer
	template *TemplateLocator
	text     *TextLocator
	policy   Policy
}

// NewElementLocator builds a locator. text may be nil when no OCR backend is
// configured; text descriptors then never produce a result.
func NewElementLocator(c screen.Capturer, template *TemplateLocator, text *TextLocator, policy Policy) *ElementLocator {
	return &ElementLocator{capturer: c, template: template, text: text, policy: policy}
}

// Locate captures the screen once and runs every lookup the descriptor asks
// for against that capture.
func (l *ElementLocator) Locate(ctx context.Context, d Descriptor) (Result, error) {
	if d.Empty() {
		return Result{}, apperr.New(apperr.InvalidArgument, "empty element descriptor")
	}
	ctx, span := trace.StartSpan(ctx, "locate")
	defer span.End()
	log := trace.Logger(ctx)

	shot, err := l.capturer.CaptureScreen(ctx)
	if err != nil {
		return Result{}, err
	}

	var (
		tmpl, txt       *Result
		tmplErr, txtErr error
	)
	if d.TemplateImage != "" {
		if r, err := l.template.LocateIn(shot, d.TemplateImage); err != nil {
			tmplErr = err
			log.Debug("template lookup missed", "template", d.TemplateImage, "error", err)
		} else {
			tmpl = &r
		}
	}
	if d.TargetText != "" {
		if l.text == nil {
			txtErr = apperr.New(apperr.OCRUnavailable, "no OCR backend configured")
		} else if r, err := l.text.LocateIn(ctx, shot, d.TargetText); err != nil {
			txtErr = err
			log.Debug("text lookup missed", "text", d.TargetText, "error", err)
		} else {
			txt = &r
		}
	}

	res, err := l.policy.Decide(tmpl, txt)
	if err != nil {
		if apperr.IsCode(err, apperr.NotFound) {
			if cause := stderrors.Join(tmplErr, txtErr); cause != nil {
				err = apperr.Wrap(cause, apperr.NotFound, "element not found")
			}
		}
		span.SetAttr("error", apperr.CodeOf(err).String())
		return Result{}, err
	}
	span.SetAttr("source", string(res.Source))
	span.SetAttr("confidence", res.Confidence)
	log.Info("element located",
		slog.String("source", string(res.Source)),
		slog.Int("x", res.Coordinates.X),
		slog.Int("y", res.Coordinates.Y),
		slog.Float64("confidence", res.Confidence),
	)
	return res, nil
}

// Decide applies the fixed priority: confident text, then confident
// template, then the midpoint of two nearby results. nil means the lookup
// produced nothing.
func (p Policy) Decide(tmpl, txt *Result) (Result, error) {
	if txt != nil && txt.Confidence >= p.AcceptThreshold {
		return *txt, nil
	}
	if tmpl != nil && tmpl.Confidence >= p.AcceptThreshold {
		return *tmpl, nil
	}
	if tmpl != nil && txt != nil {
		dx := abs(tmpl.Coordinates.X - txt.Coordinates.X)
		dy := abs(tmpl.Coordinates.Y - txt.Coordinates.Y)
		if dx < p.ProximityPx && dy < p.ProximityPx {
			return Result{
				Coordinates: image.Pt(
					(tmpl.Coordinates.X+txt.Coordinates.X)/2,
					(tmpl.Coordinates.Y+txt.Coordinates.Y)/2,
				),
				Confidence: (tmpl.Confidence + txt.Confidence) / 2,
				Source:     SourceFused,
			}, nil
		}
		return Result{}, apperr.Newf(apperr.AmbiguousLocalization,
			"template and text candidates %v and %v are %dx%d px apart", tmpl.Coordinates, txt.Coordinates, dx, dy).
			WithMetadata("proximity_px", strconv.Itoa(p.ProximityPx))
	}
	return Result{}, apperr.New(apperr.NotFound, "no candidate above threshold")
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
