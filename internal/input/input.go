// Package input injects synthetic pointer and keyboard events and defines
// the event stream a global input listener delivers to the recorder.
package input

import (
	"context"
	"strings"
)

// Injector drives the pointer and keyboard of the local desktop.
type Injector interface {
	Move(ctx context.Context, x, y int) error
	Click(ctx context.Context, x, y int, button string) error
	Type(ctx context.Context, text string) error
	KeyPress(ctx context.Context, key string) error
	Scroll(ctx context.Context, x, y, delta int) error
}

// Pointer button names as recorded in sessions.
const (
	ButtonLeft   = "left"
	ButtonRight  = "right"
	ButtonMiddle = "middle"
)

// PointerKind distinguishes pointer events.
type PointerKind int

const (
	PointerPress PointerKind = iota
	PointerScroll
)

// PointerEvent is a button press or wheel turn at screen coordinates.
type PointerEvent struct {
	Kind   PointerKind
	X, Y   int
	Button string
	Delta  int // wheel notches, positive scrolls up
}

// KeyEvent is a key press. Printable keys carry Char; named keys such as
// "enter" or "esc" carry only Name.
type KeyEvent struct {
	Name string
	Char rune
}

// Printable reports whether the key produced a character.
func (k KeyEvent) Printable() bool {
	return k.Char != 0 && len([]rune(k.Name)) <= 1
}

// Listener delivers global input events until Stop or ctx cancellation.
// Pointer and keyboard events arrive on separate channels, and both
// channels are closed when the listener shuts down.
type Listener interface {
	Start(ctx context.Context) (<-chan PointerEvent, <-chan KeyEvent, error)
	Stop()
}

// NormalizeKey lower-cases a key name and folds common aliases.
func NormalizeKey(name string) string {
	if name == " " {
		return "space"
	}
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "escape":
		return "esc"
	case "return":
		return "enter"
	case "del":
		return "delete"
	case "bksp", "back_space":
		return "backspace"
	}
	return n
}
