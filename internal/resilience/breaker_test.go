package resilience

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeClock lets tests cross the reset timeout without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(cfg Config) (*Breaker, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	b := New("ocr", cfg)
	b.now = clock.now
	return b, clock
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	b, clock := newTestBreaker(Config{Threshold: 3, ResetTimeout: time.Minute, HalfOpenSuccesses: 2})
	if b.State() != Closed {
		t.Fatalf("initial state = %v, want Closed", b.State())
	}
	for i := 0; i < 3; i++ {
		b.Failure()
	}
	if b.State() != Open {
		t.Fatalf("state = %v, want Open", b.State())
	}

	clock.advance(20 * time.Second)
	err := b.Allow()
	if !errors.Is(err, ErrOpen) {
		t.Fatalf("Allow() = %v, want ErrOpen", err)
	}
	var open *OpenError
	if !errors.As(err, &open) || open.Name != "ocr" || open.RetryIn != 40*time.Second {
		t.Errorf("open error = %+v", open)
	}
}

func TestSuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(Config{Threshold: 2, ResetTimeout: time.Hour, HalfOpenSuccesses: 1})
	b.Failure()
	b.Success()
	b.Failure()
	if b.State() != Closed {
		t.Errorf("state = %v, non-consecutive failures should not open", b.State())
	}
}

func TestBreakerRecovery(t *testing.T) {
	tests := []struct {
		name      string
		successes int
		failAfter bool
		want      State
	}{
		{"closes after enough successes", 2, false, Closed},
		{"stays half-open below quota", 1, false, HalfOpen},
		{"reopens on half-open failure", 0, true, Open},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, clock := newTestBreaker(Config{Threshold: 1, ResetTimeout: time.Second, HalfOpenSuccesses: 2})
			b.Failure()
			clock.advance(2 * time.Second)

			if err := b.Allow(); err != nil {
				t.Fatalf("Allow() after reset timeout = %v", err)
			}
			if b.State() != HalfOpen {
				t.Fatalf("state = %v, want HalfOpen", b.State())
			}
			for i := 0; i < tt.successes; i++ {
				b.Success()
			}
			if tt.failAfter {
				b.Failure()
			}
			if b.State() != tt.want {
				t.Errorf("state = %v, want %v", b.State(), tt.want)
			}
		})
	}
}

func TestCallNeverRetries(t *testing.T) {
	b, _ := newTestBreaker(Config{Threshold: 2, ResetTimeout: time.Hour, HalfOpenSuccesses: 1})

	got, err := Call(b, func() (int, error) { return 42, nil }, nil)
	if err != nil || got != 42 {
		t.Fatalf("Call = (%d, %v), want (42, nil)", got, err)
	}

	sidecarDown := errors.New("connection refused")
	calls := 0
	for i := 0; i < 3; i++ {
		_, err := Call(b, func() (int, error) {
			calls++
			return 0, sidecarDown
		}, nil)
		if i < 2 && err != sidecarDown {
			t.Errorf("call %d = %v, want %v", i, err, sidecarDown)
		}
		if i == 2 && !errors.Is(err, ErrOpen) {
			t.Errorf("call %d = %v, want ErrOpen", i, err)
		}
	}
	if calls != 2 {
		t.Errorf("fn ran %d times, want 2", calls)
	}
}

func TestCallFilter(t *testing.T) {
	b, _ := newTestBreaker(Config{Threshold: 1, ResetTimeout: time.Hour, HalfOpenSuccesses: 1})

	badInput := errors.New("bad image")
	_, err := Call(b, func() (int, error) { return 0, badInput },
		func(err error) bool { return err != badInput })
	if err != badInput {
		t.Fatalf("err = %v, want %v", err, badInput)
	}
	if b.State() != Closed {
		t.Error("filtered errors must not trip the breaker")
	}
}

func TestBreakerConcurrentSafety(t *testing.T) {
	b := New("concurrent", Config{Threshold: 100, ResetTimeout: time.Second, HalfOpenSuccesses: 10})
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = b.Allow()
			if i%2 == 0 {
				b.Success()
			} else {
				b.Failure()
			}
		}(i)
	}
	wg.Wait()
	_ = b.State()
}

func TestStateString(t *testing.T) {
	tests := []struct {
		s    State
		want string
	}{
		{Closed, "closed"},
		{Open, "open"},
		{HalfOpen, "half-open"},
	}
	for _, tt := range tests {
		if got := tt.s.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.s, got, tt.want)
		}
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	if cfg != DefaultConfig() {
		t.Errorf("withDefaults() = %+v, want %+v", cfg, DefaultConfig())
	}
	if SidecarConfig().HalfOpenSuccesses != 1 {
		t.Error("sidecar breaker should close after a single probe")
	}
}
