// Package recorder turns global input events into a session of timestamped
// actions, each paired with the screenshot taken right after it.
package recorder

import (
	"context"
	"image"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/GriffinCanCode/autoui/internal/artifacts"
	apperr "github.com/GriffinCanCode/autoui/internal/errors"
	"github.com/GriffinCanCode/autoui/internal/input"
	"github.com/GriffinCanCode/autoui/internal/screen"
	"github.com/GriffinCanCode/autoui/internal/session"
	"github.com/GriffinCanCode/autoui/internal/syncx"
	"github.com/GriffinCanCode/autoui/internal/trace"
	"github.com/GriffinCanCode/autoui/internal/vision"
)

// Phase is the recorder lifecycle state. Stopped is terminal.
type Phase int

const (
	Idle Phase = iota
	Recording
	Stopped
)

func (p Phase) String() string {
	return [...]string{"idle", "recording", "stopped"}[p]
}

type Options struct {
	IdleTimeLimit time.Duration
	BoxMargin     int
	MonitorWidth  int
	StopKey       string
}

func DefaultOptions() Options {
	return Options{
		IdleTimeLimit: 5 * time.Second,
		BoxMargin:     50,
		MonitorWidth:  1920,
		StopKey:       "esc",
	}
}

// Observer is notified of recorded actions and of the stop.
type Observer interface {
	ActionRecorded(index int, a session.Action)
	RecordingStopped(cause session.StopCause, total int)
}

// state is everything shared between the listener goroutines, the idle
// watcher and the caller. It lives behind one guard.
type state struct {
	phase       Phase
	startTime   time.Time
	lastAction  time.Time
	box         *session.BoundingBox
	lastMonitor int
	actions     []session.Action
	cause       session.StopCause
	cancel      context.CancelFunc
	listening   bool
}

type Recorder struct {
	listener input.Listener
	capturer screen.Capturer
	layout   artifacts.Layout
	opts     Options
	observer Observer
	now      func() time.Time

	state    *syncx.Guard[state]
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(l input.Listener, c screen.Capturer, layout artifacts.Layout, opts Options) *Recorder {
	def := DefaultOptions()
	if opts.IdleTimeLimit <= 0 {
		opts.IdleTimeLimit = def.IdleTimeLimit
	}
	if opts.MonitorWidth <= 0 {
		opts.MonitorWidth = def.MonitorWidth
	}
	if opts.StopKey == "" {
		opts.StopKey = def.StopKey
	}
	opts.StopKey = input.NormalizeKey(opts.StopKey)
	return &Recorder{
		listener: l,
		capturer: c,
		layout:   layout,
		opts:     opts,
		now:      time.Now,
		state:    syncx.NewGuard(state{phase: Idle}),
		done:     make(chan struct{}),
	}
}

// WithObserver registers an observer. Call before Start.
func (r *Recorder) WithObserver(o Observer) *Recorder {
	r.observer = o
	return r
}

// Start begins recording. It is valid only once, from Idle.
func (r *Recorder) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	now := r.now()
	err := syncx.Apply(r.state, func(s *state) error {
		if s.phase != Idle {
			return apperr.Newf(apperr.InvalidState, "start while %s", s.phase)
		}
		s.phase = Recording
		s.startTime = now
		s.lastAction = now
		s.cancel = cancel
		return nil
	})
	if err != nil {
		cancel()
		return err
	}

	pointers, keys, err := r.listener.Start(ctx)
	if err != nil {
		cancel()
		r.state.Do(func(s *state) {
			s.phase = Idle
			s.cancel = nil
		})
		return apperr.Wrap(err, apperr.Internal, "start input listener")
	}
	r.state.Do(func(s *state) { s.listening = true })

	r.wg.Add(3)
	go r.pointerLoop(ctx, pointers)
	go r.keyLoop(ctx, keys)
	go r.idleWatch(ctx)

	trace.Logger(ctx).Info("recording started",
		"idle_time_limit", r.opts.IdleTimeLimit,
		"stop_key", r.opts.StopKey,
	)
	return nil
}

// Stop ends the recording. Safe to call more than once and from any
// goroutine, including the recorder's own.
func (r *Recorder) Stop() {
	r.stop(session.StopRequested)
}

func (r *Recorder) stop(cause session.StopCause) {
	r.stopOnce.Do(func() {
		var (
			cancel    context.CancelFunc
			listening bool
			total     int
		)
		r.state.Do(func(s *state) {
			s.phase = Stopped
			s.cause = cause
			cancel, listening, total = s.cancel, s.listening, len(s.actions)
		})
		if cancel != nil {
			cancel()
		}
		if listening {
			r.listener.Stop()
		}
		close(r.done)

		slog.Info("recording stopped", "cause", cause, "actions", total)
		if r.observer != nil {
			r.observer.RecordingStopped(cause, total)
		}
	})
}

// Done is closed once the recorder has stopped.
func (r *Recorder) Done() <-chan struct{} { return r.done }

// Wait blocks until the recorder stops and its goroutines exit.
func (r *Recorder) Wait() {
	<-r.done
	r.wg.Wait()
}

func (r *Recorder) Phase() Phase {
	return syncx.Apply(r.state, func(s *state) Phase { return s.phase })
}

// Actions returns a copy of the actions recorded so far.
func (r *Recorder) Actions() []session.Action {
	return syncx.Apply(r.state, func(s *state) []session.Action {
		return append([]session.Action(nil), s.actions...)
	})
}

// Session snapshots the recording.
func (r *Recorder) Session() *session.Session {
	return syncx.Apply(r.state, func(s *state) *session.Session {
		out := &session.Session{
			Elements: append([]session.Action{}, s.actions...),
			Metadata: session.Metadata{
				IdleTimeLimit: r.opts.IdleTimeLimit.Seconds(),
				TotalActions:  len(s.actions),
				StopCause:     s.cause,
			},
		}
		if !s.startTime.IsZero() {
			out.Metadata.StartTime = float64(s.startTime.UnixNano()) / 1e9
		}
		if s.box != nil {
			b := *s.box
			out.BoundingBox = &b
		}
		return out
	})
}

// Save writes the session to path. Valid only once stopped.
func (r *Recorder) Save(path string) error {
	if p := r.Phase(); p != Stopped {
		return apperr.Newf(apperr.InvalidState, "save while %s", p)
	}
	if err := r.Session().Save(path); err != nil {
		return err
	}
	slog.Info("session saved", "path", path)
	return nil
}

// idleWatch stops the recorder once no action has arrived for the idle
// limit. The timer is re-armed from the latest action time.
func (r *Recorder) idleWatch(ctx context.Context) {
	defer r.wg.Done()
	timer := time.NewTimer(r.opts.IdleTimeLimit)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			r.stop(session.StopCancelled)
			return
		case <-timer.C:
			remaining := syncx.Apply(r.state, func(s *state) time.Duration {
				return s.lastAction.Add(r.opts.IdleTimeLimit).Sub(r.now())
			})
			if remaining <= 0 {
				r.stop(session.StopIdleTimeout)
				return
			}
			timer.Reset(remaining)
		}
	}
}

func (r *Recorder) pointerLoop(ctx context.Context, ch <-chan input.PointerEvent) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			r.handlePointer(ctx, ev)
		}
	}
}

func (r *Recorder) keyLoop(ctx context.Context, ch <-chan input.KeyEvent) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			r.handleKey(ctx, ev)
		}
	}
}

// pending is what an event handler needs from shared state.
type pending struct {
	ok      bool
	start   time.Time
	box     *session.BoundingBox
	monitor int
}

func (r *Recorder) handlePointer(ctx context.Context, ev input.PointerEvent) {
	at := r.now()
	p := syncx.Apply(r.state, func(s *state) pending {
		if s.phase != Recording {
			return pending{}
		}
		s.lastAction = at
		s.box = s.box.Expand(ev.X, ev.Y, r.opts.BoxMargin)
		s.lastMonitor = screen.MonitorIndex(ev.X, r.opts.MonitorWidth)
		b := *s.box
		return pending{ok: true, start: s.startTime, box: &b, monitor: s.lastMonitor}
	})
	if !p.ok {
		return
	}

	a := session.Action{
		Coordinates:  &session.Point{X: ev.X, Y: ev.Y},
		MonitorIndex: p.monitor,
		Timestamp:    at.Sub(p.start).Seconds(),
	}
	switch ev.Kind {
	case input.PointerScroll:
		a.Kind = session.KindScroll
		a.Delta = ev.Delta
	default:
		a.Kind = session.KindClick
		a.Button = ev.Button
	}
	r.record(ctx, a, p.box, at)
}

func (r *Recorder) handleKey(ctx context.Context, ev input.KeyEvent) {
	name := input.NormalizeKey(ev.Name)
	if name == r.opts.StopKey {
		r.stop(session.StopKey)
		return
	}

	at := r.now()
	p := syncx.Apply(r.state, func(s *state) pending {
		if s.phase != Recording {
			return pending{}
		}
		s.lastAction = at
		m := s.lastMonitor
		if m < 1 {
			m = 1
		}
		var b *session.BoundingBox
		if s.box != nil {
			c := *s.box
			b = &c
		}
		return pending{ok: true, start: s.startTime, box: b, monitor: m}
	})
	if !p.ok {
		return
	}

	a := session.Action{MonitorIndex: p.monitor, Timestamp: at.Sub(p.start).Seconds()}
	if ev.Printable() {
		a.Kind = session.KindType
		a.Text = string(ev.Char)
	} else {
		a.Kind = session.KindKeyPress
		a.Key = name
	}
	r.record(ctx, a, p.box, at)
}

// record captures the post-event screenshots outside the lock, then appends
// the action if the recorder is still recording.
func (r *Recorder) record(ctx context.Context, a session.Action, box *session.BoundingBox, at time.Time) {
	log := trace.Logger(ctx)
	full, err := r.capturer.CaptureScreen(ctx)
	if err != nil {
		log.Warn("dropping action, screenshot failed", "kind", a.Kind, "error", err)
		return
	}
	a.Screenshot = r.layout.Screenshot(string(a.Kind), at)
	if err := vision.Save(a.Screenshot, full); err != nil {
		log.Warn("dropping action, screenshot not saved", "kind", a.Kind, "error", err)
		return
	}
	if box != nil {
		r.attachRegion(ctx, &a, full, *box, at)
	}

	index := syncx.Apply(r.state, func(s *state) int {
		if s.phase != Recording {
			return -1
		}
		i := sort.Search(len(s.actions), func(i int) bool { return s.actions[i].Timestamp > a.Timestamp })
		s.actions = append(s.actions, session.Action{})
		copy(s.actions[i+1:], s.actions[i:])
		s.actions[i] = a
		return i
	})
	if index < 0 {
		log.Debug("discarding action captured after stop", "kind", a.Kind)
		return
	}
	log.Debug("action recorded", "kind", a.Kind, "index", index, "timestamp", a.Timestamp)
	if r.observer != nil {
		r.observer.ActionRecorded(index, a)
	}
}

func (r *Recorder) attachRegion(ctx context.Context, a *session.Action, full image.Image, box session.BoundingBox, at time.Time) {
	clipped := box.Rect().Intersect(full.Bounds())
	region, err := vision.Crop(full, clipped)
	if err != nil {
		trace.Logger(ctx).Debug("bounding box outside capture", "box", box.Rect(), "error", err)
		return
	}
	path := r.layout.Screenshot(string(a.Kind)+" region", at)
	if err := vision.Save(path, region); err != nil {
		trace.Logger(ctx).Warn("region screenshot not saved", "error", err)
		return
	}
	a.RegionScreenshot = path
	a.Region = &session.BoundingBox{MinX: clipped.Min.X, MinY: clipped.Min.Y, MaxX: clipped.Max.X, MaxY: clipped.Max.Y}
}
