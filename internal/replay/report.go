package replay

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	apperr "github.com/GriffinCanCode/autoui/internal/errors"
	"github.com/GriffinCanCode/autoui/internal/locate"
	"github.com/GriffinCanCode/autoui/internal/session"
	"github.com/GriffinCanCode/autoui/internal/verify"
)

// Status is the outcome of one step.
type Status string

const (
	StatusPassed   Status = "passed"
	StatusFailed   Status = "failed"
	StatusExecuted Status = "executed" // ran, nothing to verify
)

// SourceRecorded marks coordinates taken straight from the session.
const SourceRecorded locate.Source = "recorded"

type StepResult struct {
	Index              int            `json:"index"`
	Name               string         `json:"name"`
	Kind               session.Kind   `json:"kind"`
	Status             Status         `json:"status"`
	Coordinates        *session.Point `json:"coordinates,omitempty"`
	Source             locate.Source  `json:"source,omitempty"`
	Confidence         float64        `json:"confidence,omitempty"`
	Screenshot         string         `json:"screenshot,omitempty"`
	Verification       *verify.Result `json:"verification,omitempty"`
	RegionVerification *verify.Result `json:"region_verification,omitempty"`
	Fallback           string         `json:"fallback,omitempty"`
	Error              string         `json:"error,omitempty"`
	ErrorCode          string         `json:"error_code,omitempty"`
	DurationMS         int64          `json:"duration_ms"`
}

type Summary struct {
	Total    int `json:"total"`
	Passed   int `json:"passed"`
	Failed   int `json:"failed"`
	Executed int `json:"executed"`
}

type Report struct {
	RunID      string       `json:"run_id"`
	Input      string       `json:"input,omitempty"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Steps      []StepResult `json:"steps"`
	Summary    Summary      `json:"summary"`
	Cancelled  bool         `json:"cancelled,omitempty"`
}

// OK reports whether no step failed.
func (r *Report) OK() bool { return r.Summary.Failed == 0 && !r.Cancelled }

func (r *Report) summarize() {
	s := Summary{Total: len(r.Steps)}
	for _, st := range r.Steps {
		switch st.Status {
		case StatusPassed:
			s.Passed++
		case StatusFailed:
			s.Failed++
		default:
			s.Executed++
		}
	}
	r.Summary = s
}

// Save writes the report as report_<run id>.json under dir.
func (r *Report) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", apperr.Wrapf(err, apperr.Internal, "create %s", dir)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", apperr.Wrap(err, apperr.Internal, "encode report")
	}
	path := filepath.Join(dir, "report_"+r.RunID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", apperr.Wrapf(err, apperr.Internal, "write report %s", path)
	}
	return path, nil
}
