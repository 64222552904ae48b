// Package session defines recorded sessions and hand-written scenarios, the
// two inputs the replay engine accepts.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	apperr "github.com/GriffinCanCode/autoui/internal/errors"
)

// Kind is the type of a recorded action.
type Kind string

const (
	KindClick    Kind = "click"
	KindType     Kind = "type"
	KindScroll   Kind = "scroll"
	KindKeyPress Kind = "key_press"
)

// StopCause records why a recording ended.
type StopCause string

const (
	StopIdleTimeout StopCause = "idle_timeout"
	StopKey         StopCause = "stop_key"
	StopRequested   StopCause = "requested"
	StopCancelled   StopCause = "cancelled"
)

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Element describes how to find an action's target on screen.
type Element struct {
	TemplateImage string `json:"template_image,omitempty"`
	TargetText    string `json:"target_text,omitempty"`
}

// Action is one recorded input event.
type Action struct {
	Kind             Kind         `json:"kind"`
	Coordinates      *Point       `json:"coordinates,omitempty"`
	Button           string       `json:"button,omitempty"`
	Text             string       `json:"text,omitempty"`
	Delta            int          `json:"delta,omitempty"`
	Key              string       `json:"key,omitempty"`
	MonitorIndex     int          `json:"monitor_index"`
	Timestamp        float64      `json:"timestamp"` // seconds since recording started
	Screenshot       string       `json:"screenshot"`
	RegionScreenshot string       `json:"region_screenshot,omitempty"`
	Region           *BoundingBox `json:"region,omitempty"`
	Element          *Element     `json:"element,omitempty"`
	ExpectedOutput   string       `json:"expected_output,omitempty"`
}

type Metadata struct {
	StartTime     float64   `json:"start_time"`      // unix seconds
	IdleTimeLimit float64   `json:"idle_time_limit"` // seconds
	TotalActions  int       `json:"total_actions"`
	StopCause     StopCause `json:"stop_cause,omitempty"`
}

// Session is a complete recording. Elements are in replay order.
type Session struct {
	BoundingBox *BoundingBox `json:"bounding_box"`
	Elements    []Action     `json:"elements"`
	Metadata    Metadata     `json:"metadata"`
}

// Validate checks the invariants every loaded session must satisfy.
func (s *Session) Validate() error {
	for i, a := range s.Elements {
		if err := a.validate(); err != nil {
			return apperr.Wrapf(err, apperr.InvalidSession, "element %d", i).
				WithMetadata("kind", string(a.Kind))
		}
	}
	return nil
}

func (a Action) validate() error {
	switch a.Kind {
	case KindClick, KindScroll:
		if a.Coordinates == nil {
			return fmt.Errorf("%s action has no coordinates", a.Kind)
		}
	case KindType, KindKeyPress:
	default:
		return fmt.Errorf("unknown action kind %q", a.Kind)
	}
	if a.MonitorIndex < 1 {
		return fmt.Errorf("monitor_index %d < 1", a.MonitorIndex)
	}
	if a.Screenshot == "" {
		return fmt.Errorf("missing screenshot")
	}
	return nil
}

// Load reads and validates a session file. Any violation is fatal.
func Load(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrapf(err, apperr.InvalidSession, "read session %s", path)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, apperr.Wrapf(err, apperr.InvalidSession, "parse session %s", path)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Save writes the session as indented JSON, creating parent directories.
func (s *Session) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return apperr.Wrap(err, apperr.Internal, "encode session")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperr.Wrapf(err, apperr.Internal, "create %s", dir)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperr.Wrapf(err, apperr.Internal, "write session %s", path)
	}
	return nil
}
