package replay

import (
	"fmt"
	"image"

	"github.com/GriffinCanCode/autoui/internal/input"
	"github.com/GriffinCanCode/autoui/internal/locate"
	"github.com/GriffinCanCode/autoui/internal/session"
)

// Step is one replayable action, built from either a session or a scenario.
type Step struct {
	Name        string
	Description string
	Kind        session.Kind

	// Target is resolved through the element locator when set.
	Target locate.Descriptor
	// Relocate is a template of the area around a recorded click; the
	// located centre plus Offset replaces Coordinates when it matches.
	Relocate string
	Offset   image.Point
	// Coordinates are the recorded position, used directly or as fallback.
	Coordinates *image.Point

	Button string
	Text   string
	Key    string
	Delta  int

	ExpectedOutput string
	// RegionReference is compared against the same Region of the
	// post-action capture.
	RegionReference string
	Region          image.Rectangle
}

func (s Step) pointer() bool {
	return s.Kind == session.KindClick || s.Kind == session.KindScroll
}

// StepsFromSession converts recorded actions into steps. The recorded
// screenshot becomes each step's expected output.
func StepsFromSession(s *session.Session) []Step {
	steps := make([]Step, 0, len(s.Elements))
	for i, a := range s.Elements {
		st := Step{
			Name:           fmt.Sprintf("%s_%d", a.Kind, i+1),
			Kind:           a.Kind,
			Button:         a.Button,
			Text:           a.Text,
			Key:            a.Key,
			Delta:          a.Delta,
			ExpectedOutput: a.ExpectedOutput,
		}
		st.Description = fmt.Sprintf("recorded %s at %.2fs", a.Kind, a.Timestamp)
		if st.ExpectedOutput == "" {
			st.ExpectedOutput = a.Screenshot
		}
		if a.Coordinates != nil {
			p := image.Pt(a.Coordinates.X, a.Coordinates.Y)
			st.Coordinates = &p
		}
		if a.Element != nil {
			st.Target = locate.Descriptor{TemplateImage: a.Element.TemplateImage, TargetText: a.Element.TargetText}
		}
		if a.RegionScreenshot != "" && a.Region != nil {
			r := a.Region.Rect()
			st.RegionReference = a.RegionScreenshot
			st.Region = r
			if st.pointer() && st.Coordinates != nil && st.Target.Empty() {
				st.Relocate = a.RegionScreenshot
				st.Offset = st.Coordinates.Sub(image.Pt(r.Min.X+r.Dx()/2, r.Min.Y+r.Dy()/2))
			}
		}
		steps = append(steps, st)
	}
	return steps
}

var scenarioKinds = map[string]session.Kind{
	session.ActionClick:  session.KindClick,
	session.ActionKey:    session.KindKeyPress,
	session.ActionType:   session.KindType,
	session.ActionScroll: session.KindScroll,
}

// StepsFromScenario converts a validated scenario into steps.
func StepsFromScenario(sc *session.Scenario) []Step {
	steps := make([]Step, 0, len(sc.Elements))
	for i, e := range sc.Elements {
		st := Step{
			Name:           e.Name,
			Description:    e.Description,
			Kind:           scenarioKinds[e.Action],
			Target:         locate.Descriptor{TemplateImage: e.ElementImage, TargetText: e.TargetText},
			Button:         e.Button,
			Text:           e.Text,
			Key:            e.Key,
			Delta:          e.Delta,
			ExpectedOutput: e.ExpectedOutput,
		}
		if st.Name == "" {
			st.Name = fmt.Sprintf("step_%d", i+1)
		}
		if st.Description == "" {
			st.Description = st.Name
		}
		if st.Kind == session.KindClick && st.Button == "" {
			st.Button = input.ButtonLeft
		}
		steps = append(steps, st)
	}
	return steps
}
