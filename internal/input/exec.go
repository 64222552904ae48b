package input

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"

	apperr "github.com/GriffinCanCode/autoui/internal/errors"
)

// runner executes an external command; swapped out in tests.
type runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return nil
}

// commandSet turns each operation into an argv for one tool.
type commandSet interface {
	move(x, y int) ([]string, error)
	click(x, y int, button string) ([]string, error)
	typeText(text string) ([]string, error)
	key(name string) ([]string, error)
	scroll(x, y, delta int) ([]string, error)
}

// ExecInjector injects input by shelling out to xdotool (X11) or
// cliclick (macOS).
type ExecInjector struct {
	cmds commandSet
	run  runner
}

// NewExecInjector returns the injector for the current platform.
func NewExecInjector() (*ExecInjector, error) {
	switch runtime.GOOS {
	case "linux", "freebsd", "openbsd":
		return &ExecInjector{cmds: xdotool{}, run: execRunner}, nil
	case "darwin":
		return &ExecInjector{cmds: cliclick{}, run: execRunner}, nil
	default:
		return nil, apperr.Newf(apperr.InjectionFailure, "no input injection backend for %s", runtime.GOOS)
	}
}

func (e *ExecInjector) exec(ctx context.Context, op string, argv []string, err error) error {
	if err != nil {
		return apperr.Wrapf(err, apperr.InjectionFailure, "%s", op)
	}
	if err := e.run(ctx, argv[0], argv[1:]...); err != nil {
		return apperr.Wrapf(err, apperr.InjectionFailure, "%s", op)
	}
	return nil
}

func (e *ExecInjector) Move(ctx context.Context, x, y int) error {
	argv, err := e.cmds.move(x, y)
	return e.exec(ctx, "move", argv, err)
}

func (e *ExecInjector) Click(ctx context.Context, x, y int, button string) error {
	argv, err := e.cmds.click(x, y, button)
	return e.exec(ctx, "click", argv, err)
}

func (e *ExecInjector) Type(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	argv, err := e.cmds.typeText(text)
	return e.exec(ctx, "type", argv, err)
}

func (e *ExecInjector) KeyPress(ctx context.Context, key string) error {
	argv, err := e.cmds.key(key)
	return e.exec(ctx, "key "+key, argv, err)
}

func (e *ExecInjector) Scroll(ctx context.Context, x, y, delta int) error {
	if delta == 0 {
		return nil
	}
	argv, err := e.cmds.scroll(x, y, delta)
	return e.exec(ctx, "scroll", argv, err)
}

type xdotool struct{}

var xdotoolButtons = map[string]string{ButtonLeft: "1", ButtonMiddle: "2", ButtonRight: "3", "": "1"}

// xdotoolKeys maps recorded key names to X keysyms.
var xdotoolKeys = map[string]string{
	"enter": "Return", "esc": "Escape", "tab": "Tab", "space": "space",
	"backspace": "BackSpace", "delete": "Delete", "insert": "Insert",
	"up": "Up", "down": "Down", "left": "Left", "right": "Right",
	"home": "Home", "end": "End", "pageup": "Prior", "pagedown": "Next",
	"shift": "shift", "ctrl": "ctrl", "control": "ctrl", "alt": "alt",
	"cmd": "super", "super": "super", "capslock": "Caps_Lock",
}

func (xdotool) move(x, y int) ([]string, error) {
	return []string{"xdotool", "mousemove", strconv.Itoa(x), strconv.Itoa(y)}, nil
}

func (xdotool) click(x, y int, button string) ([]string, error) {
	b, ok := xdotoolButtons[button]
	if !ok {
		return nil, fmt.Errorf("unknown button %q", button)
	}
	return []string{"xdotool", "mousemove", strconv.Itoa(x), strconv.Itoa(y), "click", b}, nil
}

func (xdotool) typeText(text string) ([]string, error) {
	return []string{"xdotool", "type", "--delay", "12", "--", text}, nil
}

func (xdotool) key(name string) ([]string, error) {
	n := NormalizeKey(name)
	if k, ok := xdotoolKeys[n]; ok {
		n = k
	} else if len(n) > 1 && n[0] == 'f' {
		if _, err := strconv.Atoi(n[1:]); err == nil {
			n = "F" + n[1:]
		}
	}
	if n == "" {
		return nil, fmt.Errorf("empty key name")
	}
	return []string{"xdotool", "key", "--", n}, nil
}

// scroll clicks wheel button 4 (up) or 5 (down) once per notch.
func (xdotool) scroll(x, y, delta int) ([]string, error) {
	b, n := "4", delta
	if delta < 0 {
		b, n = "5", -delta
	}
	return []string{"xdotool", "mousemove", strconv.Itoa(x), strconv.Itoa(y), "click", "--repeat", strconv.Itoa(n), b}, nil
}

type cliclick struct{}

var cliclickKeys = map[string]string{
	"enter": "return", "esc": "esc", "tab": "tab", "space": "space",
	"backspace": "delete", "delete": "fwd-delete", "up": "arrow-up",
	"down": "arrow-down", "left": "arrow-left", "right": "arrow-right",
	"home": "home", "end": "end", "pageup": "page-up", "pagedown": "page-down",
}

func point(x, y int) string { return strconv.Itoa(x) + "," + strconv.Itoa(y) }

func (cliclick) move(x, y int) ([]string, error) {
	return []string{"cliclick", "m:" + point(x, y)}, nil
}

func (cliclick) click(x, y int, button string) ([]string, error) {
	switch button {
	case ButtonLeft, "":
		return []string{"cliclick", "c:" + point(x, y)}, nil
	case ButtonRight:
		return []string{"cliclick", "rc:" + point(x, y)}, nil
	}
	return nil, fmt.Errorf("cliclick cannot press %q button", button)
}

func (cliclick) typeText(text string) ([]string, error) {
	return []string{"cliclick", "t:" + text}, nil
}

func (cliclick) key(name string) ([]string, error) {
	n := NormalizeKey(name)
	if k, ok := cliclickKeys[n]; ok {
		return []string{"cliclick", "kp:" + k}, nil
	}
	if len([]rune(n)) == 1 {
		return []string{"cliclick", "t:" + n}, nil
	}
	return nil, fmt.Errorf("cliclick has no key %q", name)
}

func (cliclick) scroll(int, int, int) ([]string, error) {
	return nil, fmt.Errorf("cliclick does not support scrolling")
}
