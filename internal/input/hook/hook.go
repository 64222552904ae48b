// Package hook implements input.Listener on top of the libuiohook global
// hook, which sees pointer and keyboard events for the whole desktop.
package hook

import (
	"context"
	"log/slog"
	"sync"

	gohook "github.com/robotn/gohook"

	"github.com/GriffinCanCode/autoui/internal/input"
)

const (
	bufferSize = 256

	// charUndefined is libuiohook's keychar for keys without a character.
	charUndefined = 0xFFFF
)

// Listener demuxes the process-wide hook stream into pointer and key channels.
// Only one Listener may be started per process.
type Listener struct {
	mu      sync.Mutex
	started bool
	stop    chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

func New() *Listener {
	return &Listener{stop: make(chan struct{})}
}

func (l *Listener) Start(ctx context.Context) (<-chan input.PointerEvent, <-chan input.KeyEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.started {
		return nil, nil, errAlreadyStarted
	}
	l.started = true

	events := gohook.Start()
	pointers := make(chan input.PointerEvent, bufferSize)
	keys := make(chan input.KeyEvent, bufferSize)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		defer close(pointers)
		defer close(keys)
		for {
			select {
			case <-ctx.Done():
				l.Stop()
				return
			case <-l.stop:
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				l.dispatch(ev, pointers, keys)
			}
		}
	}()

	slog.Debug("global input hook started")
	return pointers, keys, nil
}

func (l *Listener) dispatch(ev gohook.Event, pointers chan<- input.PointerEvent, keys chan<- input.KeyEvent) {
	if pe, ok := pointerEvent(ev); ok {
		select {
		case pointers <- pe:
		case <-l.stop:
		}
		return
	}
	if ke, ok := keyEvent(ev); ok {
		select {
		case keys <- ke:
		case <-l.stop:
		}
	}
}

// Stop ends the hook. Safe to call more than once.
func (l *Listener) Stop() {
	l.once.Do(func() {
		close(l.stop)
		gohook.End()
		slog.Debug("global input hook stopped")
	})
}

// pointerEvent maps presses and wheel turns; releases and motion are ignored.
func pointerEvent(ev gohook.Event) (input.PointerEvent, bool) {
	switch ev.Kind {
	case gohook.MouseHold:
		return input.PointerEvent{
			Kind:   input.PointerPress,
			X:      int(ev.X),
			Y:      int(ev.Y),
			Button: buttonName(ev.Button),
		}, true
	case gohook.MouseWheel:
		if ev.Rotation == 0 {
			return input.PointerEvent{}, false
		}
		// libuiohook reports positive rotation for scrolling down.
		return input.PointerEvent{
			Kind:  input.PointerScroll,
			X:     int(ev.X),
			Y:     int(ev.Y),
			Delta: -int(ev.Rotation),
		}, true
	}
	return input.PointerEvent{}, false
}

func buttonName(b uint16) string {
	switch b {
	case 2:
		return input.ButtonRight
	case 3:
		return input.ButtonMiddle
	default:
		return input.ButtonLeft
	}
}

// keyEvent maps typed characters (KeyDown) and named keys (KeyHold).
// KeyHold for a printable key is dropped so it is not reported twice;
// space and control characters arrive only as named keys.
func keyEvent(ev gohook.Event) (input.KeyEvent, bool) {
	switch ev.Kind {
	case gohook.KeyDown:
		if ev.Keychar == charUndefined || ev.Keychar <= ' ' {
			return input.KeyEvent{}, false
		}
		return input.KeyEvent{Name: string(ev.Keychar), Char: ev.Keychar}, true
	case gohook.KeyHold:
		name := gohook.RawcodetoKeychar(ev.Rawcode)
		if len([]rune(name)) <= 1 {
			return input.KeyEvent{}, false
		}
		return input.KeyEvent{Name: input.NormalizeKey(name)}, true
	}
	return input.KeyEvent{}, false
}
