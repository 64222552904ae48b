package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/GriffinCanCode/autoui/internal/locate"
	"github.com/GriffinCanCode/autoui/internal/replay"
	"github.com/GriffinCanCode/autoui/internal/session"
	"github.com/GriffinCanCode/autoui/internal/verify"
)

func statusBadge(s replay.Status) string {
	switch s {
	case replay.StatusPassed:
		return PassStyle.Render("PASS")
	case replay.StatusFailed:
		return FailStyle.Render("FAIL")
	default:
		return ExecutedStyle.Render("RAN ")
	}
}

func verdict(passed bool) string {
	if passed {
		return PassStyle.Render("PASS")
	}
	return FailStyle.Render("FAIL")
}

// RenderReport formats a replay report as one line per step plus a summary box.
func RenderReport(r *replay.Report) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Replay "+r.RunID) + "\n")
	if r.Input != "" {
		b.WriteString(DimStyle.Render(r.Input) + "\n")
	}
	b.WriteString("\n")

	for _, st := range r.Steps {
		line := fmt.Sprintf("%s %3d  %-24s %-9s", statusBadge(st.Status), st.Index+1, st.Name, st.Kind)
		if st.Coordinates != nil {
			line += DimStyle.Render(fmt.Sprintf(" (%d,%d)", st.Coordinates.X, st.Coordinates.Y))
		}
		if st.Source != "" {
			line += DimStyle.Render(" via " + string(st.Source))
		}
		if st.Verification != nil {
			line += fmt.Sprintf("  ssim %.3f", st.Verification.Score)
			if n := len(st.Verification.DiffRegions); n > 0 {
				line += fmt.Sprintf(", %d region(s)", n)
			}
		}
		b.WriteString(line + "\n")
		if st.Fallback != "" {
			b.WriteString("       " + DimStyle.Render(st.Fallback) + "\n")
		}
		if st.Error != "" {
			b.WriteString("       " + ErrorTextStyle.Render(st.Error) + "\n")
		}
	}

	s := r.Summary
	summary := lipgloss.JoinHorizontal(lipgloss.Top,
		LabelStyle.Render("total"), fmt.Sprintf("%d   ", s.Total),
		PassStyle.Render("passed "), fmt.Sprintf("%d   ", s.Passed),
		FailStyle.Render("failed "), fmt.Sprintf("%d   ", s.Failed),
		ExecutedStyle.Render("executed "), fmt.Sprintf("%d", s.Executed),
	)
	if r.Cancelled {
		summary += "\n" + ErrorTextStyle.Render("run cancelled")
	}
	b.WriteString("\n" + BoxStyle.Render(summary) + "\n")
	return b.String()
}

// RenderComparison formats a single verification result.
func RenderComparison(res *verify.Result) string {
	rows := []string{
		fmt.Sprintf("%s %s", LabelStyle.Render("result"), verdict(res.Passed)),
		fmt.Sprintf("%s %.4f", LabelStyle.Render("ssim"), res.Score),
		fmt.Sprintf("%s %d", LabelStyle.Render("regions"), len(res.DiffRegions)),
	}
	if res.HashDistance >= 0 {
		rows = append(rows, fmt.Sprintf("%s %d", LabelStyle.Render("phash"), res.HashDistance))
	}
	for _, r := range res.DiffRegions {
		rows = append(rows, DimStyle.Render(fmt.Sprintf("  [%d %d %d %d]", r.Min.X, r.Min.Y, r.Max.X, r.Max.Y)))
	}
	rows = append(rows,
		DimStyle.Render(res.Artifacts.MarkedReference),
		DimStyle.Render(res.Artifacts.MarkedCandidate),
		DimStyle.Render(res.Artifacts.DiffMap),
	)
	return BoxStyle.Render(strings.Join(rows, "\n")) + "\n"
}

// RenderLocation formats a located element.
func RenderLocation(r locate.Result) string {
	return fmt.Sprintf("%s (%d, %d) %s\n",
		PassStyle.Render("found"),
		r.Coordinates.X, r.Coordinates.Y,
		DimStyle.Render(fmt.Sprintf("via %s, confidence %.2f", r.Source, r.Confidence)),
	)
}

// RenderSession summarizes a finished recording.
func RenderSession(s *session.Session, path string) string {
	counts := map[session.Kind]int{}
	for _, a := range s.Elements {
		counts[a.Kind]++
	}
	rows := []string{
		TitleStyle.Render("Recording saved"),
		DimStyle.Render(path),
		fmt.Sprintf("%s %d", LabelStyle.Render("actions"), len(s.Elements)),
	}
	for _, k := range []session.Kind{session.KindClick, session.KindType, session.KindKeyPress, session.KindScroll} {
		if counts[k] > 0 {
			rows = append(rows, fmt.Sprintf("  %-10s %d", k, counts[k]))
		}
	}
	if s.Metadata.StopCause != "" {
		rows = append(rows, fmt.Sprintf("%s %s", LabelStyle.Render("stopped"), s.Metadata.StopCause))
	}
	return BoxStyle.Render(strings.Join(rows, "\n")) + "\n"
}
