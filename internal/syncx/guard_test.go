package syncx

import (
	"sync"
	"testing"
)

func read[T any](g *Guard[T]) T {
	return Apply(g, func(v *T) T { return *v })
}

func TestGuardDo(t *testing.T) {
	type state struct {
		phase   string
		actions []string
	}
	g := NewGuard(state{phase: "idle"})
	g.Do(func(s *state) {
		s.phase = "recording"
		s.actions = append(s.actions, "click")
	})

	got := read(g)
	if got.phase != "recording" || len(got.actions) != 1 {
		t.Errorf("state = %+v", got)
	}
}

func TestApplyCheckAndSet(t *testing.T) {
	g := NewGuard("idle")
	start := func() bool {
		return Apply(g, func(p *string) bool {
			if *p != "idle" {
				return false
			}
			*p = "recording"
			return true
		})
	}
	if !start() {
		t.Fatal("first start rejected")
	}
	if start() {
		t.Error("second start accepted")
	}
	if got := read(g); got != "recording" {
		t.Errorf("phase = %q", got)
	}
}

func TestGuardConcurrentSafety(t *testing.T) {
	g := NewGuard(0)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			g.Do(func(v *int) { *v++ })
		}()
		go func() {
			defer wg.Done()
			_ = read(g)
		}()
	}
	wg.Wait()

	if got := read(g); got != 100 {
		t.Errorf("value = %d, want 100", got)
	}
}
