// Package replay drives an application through a sequence of steps and
// verifies the screen after each one.
package replay

import (
	"context"
	"image"
	"log/slog"
	"time"

	"github.com/GriffinCanCode/autoui/internal/artifacts"
	apperr "github.com/GriffinCanCode/autoui/internal/errors"
	"github.com/GriffinCanCode/autoui/internal/input"
	"github.com/GriffinCanCode/autoui/internal/locate"
	"github.com/GriffinCanCode/autoui/internal/screen"
	"github.com/GriffinCanCode/autoui/internal/session"
	"github.com/GriffinCanCode/autoui/internal/trace"
	"github.com/GriffinCanCode/autoui/internal/verify"
	"github.com/GriffinCanCode/autoui/internal/vision"
)

// parkPosition is where the pointer rests just before each click.
var parkPosition = image.Pt(10, 10)

type Locator interface {
	Locate(ctx context.Context, d locate.Descriptor) (locate.Result, error)
}

// Relocator finds a template image on the live screen.
type Relocator interface {
	Locate(ctx context.Context, templatePath string) (locate.Result, error)
}

type Verifier interface {
	Compare(ctx context.Context, referencePath, candidatePath string, threshold float64) (*verify.Result, error)
	CompareImages(ctx context.Context, ref, cand image.Image, label string, threshold float64) (*verify.Result, error)
}

// Observer is notified as steps complete.
type Observer interface {
	StepCompleted(r StepResult)
	RunFinished(r *Report)
}

type Options struct {
	SettleDelay     time.Duration
	VerifyThreshold float64
	// RelocateThreshold is the template confidence a recorded click needs
	// before its relocated point replaces the recorded coordinates.
	RelocateThreshold float64
	// Stable, when set, ends the settle wait as soon as the screen stops
	// changing. SettleDelay then bounds the wait instead of fixing it.
	Stable *screen.StableOptions
}

// DefaultRelocateThreshold is the minimum relocation confidence.
const DefaultRelocateThreshold = 0.8

func DefaultOptions() Options {
	return Options{
		SettleDelay:       5 * time.Second,
		VerifyThreshold:   verify.DefaultThreshold,
		RelocateThreshold: DefaultRelocateThreshold,
	}
}

type Engine struct {
	locator   Locator
	relocator Relocator
	injector  input.Injector
	capturer  screen.Capturer
	verifier  Verifier
	layout    artifacts.Layout
	opts      Options
	observer  Observer

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds an engine. relocator may be nil, in which case recorded
// clicks always use their recorded coordinates.
func New(loc Locator, reloc Relocator, inj input.Injector, c screen.Capturer, v Verifier, layout artifacts.Layout, opts Options) *Engine {
	if opts.VerifyThreshold <= 0 {
		opts.VerifyThreshold = verify.DefaultThreshold
	}
	if opts.RelocateThreshold <= 0 {
		opts.RelocateThreshold = DefaultRelocateThreshold
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	}
	return &Engine{
		locator:   loc,
		relocator: reloc,
		injector:  inj,
		capturer:  c,
		verifier:  v,
		layout:    layout,
		opts:      opts,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

func (e *Engine) WithObserver(o Observer) *Engine {
	e.observer = o
	return e
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run executes steps in order. Step failures are recorded and the run
// continues; only cancellation ends it early. The report is written under
// the layout's reports directory.
func (e *Engine) Run(ctx context.Context, source string, steps []Step) (*Report, error) {
	ctx, tc := trace.EnsureContext(ctx)
	log := trace.Logger(ctx)
	report := &Report{RunID: tc.RunID, Input: source, StartedAt: e.now(), Steps: make([]StepResult, 0, len(steps))}
	log.Info("replay started", "input", source, "steps", len(steps))

	for i, st := range steps {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}
		res := e.runStep(ctx, i, st)
		report.Steps = append(report.Steps, res)
		if e.observer != nil {
			e.observer.StepCompleted(res)
		}
	}
	report.FinishedAt = e.now()
	report.summarize()

	path, err := report.Save(e.layout.Reports())
	if err != nil {
		log.Error("failed to save report", "error", err)
	} else {
		log.Info("replay finished",
			"report", path,
			"passed", report.Summary.Passed,
			"failed", report.Summary.Failed,
			"executed", report.Summary.Executed,
		)
	}
	if e.observer != nil {
		e.observer.RunFinished(report)
	}
	if report.Cancelled {
		return report, apperr.Wrap(ctx.Err(), apperr.Cancelled, "replay cancelled")
	}
	return report, err
}

func (e *Engine) runStep(ctx context.Context, index int, st Step) (res StepResult) {
	ctx, span := trace.StartSpan(ctx, "replay_step")
	span.SetAttr("step", st.Name)
	started := e.now()
	log := trace.Logger(ctx).With("step", st.Name, "kind", st.Kind)

	res = StepResult{Index: index, Name: st.Name, Kind: st.Kind, Status: StatusExecuted}
	defer func() {
		res.DurationMS = e.now().Sub(started).Milliseconds()
		span.SetAttr("status", string(res.Status))
		span.End()
	}()
	fail := func(err error) StepResult {
		res.Status = StatusFailed
		res.Error = err.Error()
		res.ErrorCode = apperr.CodeOf(err).String()
		log.Warn("step failed", "code", res.ErrorCode, "error", err)
		return res
	}

	pt, err := e.resolve(ctx, st, &res)
	if err != nil {
		return fail(err)
	}
	if pt != nil {
		res.Coordinates = &session.Point{X: pt.X, Y: pt.Y}
	}
	if err := e.inject(ctx, st, pt); err != nil {
		return fail(err)
	}
	shot, err := e.settle(ctx)
	if err != nil {
		return fail(err)
	}
	res.Screenshot = e.layout.Screenshot(st.Name, e.now())
	if err := vision.Save(res.Screenshot, shot); err != nil {
		return fail(apperr.Wrap(err, apperr.Internal, "save screenshot"))
	}

	verified := false
	if st.ExpectedOutput != "" {
		vr, err := e.verifier.Compare(ctx, st.ExpectedOutput, res.Screenshot, e.opts.VerifyThreshold)
		if err != nil {
			return fail(err)
		}
		res.Verification = vr
		verified = true
	}
	if st.RegionReference != "" && !st.Region.Empty() {
		vr, err := e.verifyRegion(ctx, st, shot)
		if err != nil {
			return fail(err)
		}
		res.RegionVerification = vr
		verified = true
	}
	if verified {
		res.Status = StatusPassed
		if (res.Verification != nil && !res.Verification.Passed) ||
			(res.RegionVerification != nil && !res.RegionVerification.Passed) {
			res.Status = StatusFailed
		}
	}
	log.Info("step finished", "status", res.Status)
	return res
}

// settle waits for the application to react and returns the capture
// that the step is verified against.
func (e *Engine) settle(ctx context.Context) (image.Image, error) {
	if e.opts.Stable == nil {
		if err := e.sleep(ctx, e.opts.SettleDelay); err != nil {
			return nil, apperr.Wrap(err, apperr.Cancelled, "settle")
		}
		return e.capturer.CaptureScreen(ctx)
	}

	shot, stable, err := screen.WaitStable(ctx, e.capturer, e.opts.SettleDelay, *e.opts.Stable)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperr.Wrap(err, apperr.Cancelled, "settle")
		}
		return nil, err
	}
	trace.Logger(ctx).Debug("screen settled", "stable", stable)
	return shot, nil
}

// resolve picks the coordinate for a step: the element locator for steps
// with a descriptor, template relocation for recorded clicks, then the
// recorded coordinates. Keyboard steps without any target return nil.
func (e *Engine) resolve(ctx context.Context, st Step, res *StepResult) (*image.Point, error) {
	if !st.Target.Empty() {
		r, err := e.locator.Locate(ctx, st.Target)
		if err != nil {
			return nil, err
		}
		res.Source, res.Confidence = r.Source, r.Confidence
		return &r.Coordinates, nil
	}
	if st.Relocate != "" && e.relocator != nil {
		r, err := e.relocator.Locate(ctx, st.Relocate)
		if err == nil && r.Confidence < e.opts.RelocateThreshold {
			err = apperr.Newf(apperr.TemplateNotFound, "relocation confidence %.2f below %.2f",
				r.Confidence, e.opts.RelocateThreshold)
		}
		if err == nil {
			p := r.Coordinates.Add(st.Offset)
			res.Source, res.Confidence = r.Source, r.Confidence
			return &p, nil
		}
		if st.Coordinates == nil {
			return nil, err
		}
		res.Fallback = "relocation failed, using recorded coordinates: " + err.Error()
		trace.Logger(ctx).Warn("relocation failed, using recorded coordinates", "step", st.Name, "error", err)
	}
	if st.Coordinates != nil {
		p := *st.Coordinates
		res.Source = SourceRecorded
		return &p, nil
	}
	if st.pointer() {
		return nil, apperr.Newf(apperr.InvalidArgument, "%s step %q has no target", st.Kind, st.Name)
	}
	return nil, nil
}

func (e *Engine) inject(ctx context.Context, st Step, pt *image.Point) error {
	click := func() error {
		if err := e.injector.Move(ctx, parkPosition.X, parkPosition.Y); err != nil {
			slog.Debug("could not park pointer", "error", err)
		}
		return e.injector.Click(ctx, pt.X, pt.Y, st.Button)
	}

	switch st.Kind {
	case session.KindClick:
		return click()
	case session.KindScroll:
		return e.injector.Scroll(ctx, pt.X, pt.Y, st.Delta)
	case session.KindType:
		if pt != nil {
			if err := click(); err != nil {
				return err
			}
		}
		return e.injector.Type(ctx, st.Text)
	case session.KindKeyPress:
		if pt != nil {
			if err := click(); err != nil {
				return err
			}
		}
		return e.injector.KeyPress(ctx, st.Key)
	}
	return apperr.Newf(apperr.InvalidArgument, "unknown step kind %q", st.Kind)
}

func (e *Engine) verifyRegion(ctx context.Context, st Step, shot image.Image) (*verify.Result, error) {
	ref, err := vision.Load(st.RegionReference)
	if err != nil {
		return nil, apperr.Wrapf(err, apperr.ImageUnreadable, "region reference %s", st.RegionReference)
	}
	region, err := vision.Crop(shot, st.Region)
	if err != nil {
		return nil, apperr.Wrapf(err, apperr.CaptureFailure, "region %v", st.Region)
	}
	return e.verifier.CompareImages(ctx, ref, region, artifacts.Sanitize(st.Name)+"_region", e.opts.VerifyThreshold)
}
