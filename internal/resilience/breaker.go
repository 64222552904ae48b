// Package resilience guards calls to external collaborators that can go
// away mid-run, such as the OCR sidecar.
package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State represents circuit breaker state
type State uint32

const (
	Closed   State = iota // normal operation
	Open                  // failing fast
	HalfOpen              // probing recovery
)

func (s State) String() string {
	return [...]string{"closed", "open", "half-open"}[s]
}

// ErrOpen matches any OpenError via errors.Is.
var ErrOpen = errors.New("circuit breaker open")

// OpenError is returned while a breaker rejects calls.
type OpenError struct {
	Name    string
	RetryIn time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("%s circuit open, next probe in %s", e.Name, e.RetryIn.Round(time.Millisecond))
}

func (e *OpenError) Is(target error) bool { return target == ErrOpen }

// Breaker fails fast after repeated failures of one collaborator.
// It never retries: a rejected or failed call is the caller's to report.
type Breaker struct {
	name string
	cfg  Config
	now  func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	probes   int
	openedAt time.Time
}

// New creates a named breaker; the name appears in logs and errors.
func New(name string, cfg Config) *Breaker {
	return &Breaker{name: name, cfg: cfg.withDefaults(), now: time.Now}
}

// Allow returns nil if a call may proceed, or an *OpenError. The first
// call after the reset timeout is let through as a half-open probe.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Open {
		return nil
	}
	elapsed := b.now().Sub(b.openedAt)
	if elapsed >= b.cfg.ResetTimeout {
		b.setState(HalfOpen)
		return nil
	}
	return &OpenError{Name: b.name, RetryIn: b.cfg.ResetTimeout - elapsed}
}

func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case HalfOpen:
		b.probes++
		if b.probes >= b.cfg.HalfOpenSuccesses {
			b.setState(Closed)
		}
	case Closed:
		b.failures = 0
	}
}

func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case HalfOpen:
		b.setState(Open)
	case Closed:
		b.failures++
		if b.failures >= b.cfg.Threshold {
			b.setState(Open)
		}
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// setState requires b.mu.
func (b *Breaker) setState(to State) {
	if b.state == to {
		return
	}
	log := slog.With("breaker", b.name, "from", b.state.String())
	if to == Open {
		b.openedAt = b.now()
		log.Warn("circuit breaker opened", "failures", b.failures, "reset_timeout", b.cfg.ResetTimeout)
	} else {
		log.Info("circuit breaker " + to.String())
	}
	b.state = to
	b.failures, b.probes = 0, 0
}

// Call runs fn under b. counts decides which errors count against the
// breaker; nil counts all of them.
func Call[T any](b *Breaker, fn func() (T, error), counts func(error) bool) (T, error) {
	var zero T
	if err := b.Allow(); err != nil {
		return zero, err
	}
	result, err := fn()
	if err != nil {
		if counts == nil || counts(err) {
			b.Failure()
		}
		return zero, err
	}
	b.Success()
	return result, nil
}
