package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	apperr "github.com/GriffinCanCode/autoui/internal/errors"
)

// Scenario actions.
const (
	ActionClick  = "click"
	ActionKey    = "key"
	ActionType   = "type"
	ActionScroll = "scroll"
)

// ScenarioElement is one hand-written replay step.
type ScenarioElement struct {
	Name           string `json:"name"`
	Type           string `json:"type"`
	Action         string `json:"action"`
	ElementImage   string `json:"element_image,omitempty"`
	TargetText     string `json:"target_text,omitempty"`
	ExpectedOutput string `json:"expected_output,omitempty"`
	Description    string `json:"description"`
	Key            string `json:"key,omitempty"`
	Text           string `json:"text,omitempty"`
	Delta          int    `json:"delta,omitempty"`
	Button         string `json:"button,omitempty"`
}

// HasDescriptor reports whether the element can be located on screen.
func (e ScenarioElement) HasDescriptor() bool {
	return e.ElementImage != "" || e.TargetText != ""
}

type Scenario struct {
	Elements []ScenarioElement `json:"elements"`
}

func (s *Scenario) Validate() error {
	for i, e := range s.Elements {
		if err := e.validate(); err != nil {
			return apperr.Wrapf(err, apperr.InvalidSession, "scenario element %d (%s)", i, e.Name)
		}
	}
	return nil
}

func (e ScenarioElement) validate() error {
	switch e.Action {
	case ActionClick, ActionScroll:
		if !e.HasDescriptor() {
			return fmt.Errorf("%s needs element_image or target_text", e.Action)
		}
	case ActionKey:
		if e.Key == "" {
			return fmt.Errorf("key action without key")
		}
	case ActionType:
		if e.Text == "" {
			return fmt.Errorf("type action without text")
		}
	default:
		return fmt.Errorf("unknown action %q", e.Action)
	}
	return nil
}

// LoadScenario reads and validates a scenario file. Relative image paths
// are resolved against the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrapf(err, apperr.InvalidSession, "read scenario %s", path)
	}
	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, apperr.Wrapf(err, apperr.InvalidSession, "parse scenario %s", path)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	for i := range s.Elements {
		e := &s.Elements[i]
		e.ElementImage = resolve(dir, e.ElementImage)
		e.ExpectedOutput = resolve(dir, e.ExpectedOutput)
	}
	return &s, nil
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
