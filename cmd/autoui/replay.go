package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/autoui/internal/input"
	"github.com/GriffinCanCode/autoui/internal/replay"
	"github.com/GriffinCanCode/autoui/internal/screen"
	"github.com/GriffinCanCode/autoui/internal/session"
	"github.com/GriffinCanCode/autoui/internal/trace"
	"github.com/GriffinCanCode/autoui/internal/ui"
	"github.com/GriffinCanCode/autoui/internal/verify"
)

var errStepsFailed = errors.New("replay had failed steps")

func (a *app) replayCmd() *cobra.Command {
	var (
		sessionPath string
		settle      float64
		threshold   float64
		untilStable bool
	)
	cmd := &cobra.Command{
		Use:   "replay [scenario.json]",
		Short: "Replay a scenario or a recorded session and verify each step",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, steps, err := loadSteps(sessionPath, args)
			if err != nil {
				return err
			}

			opts := replay.Options{
				SettleDelay:       a.cfg.SettleDelay,
				VerifyThreshold:   a.cfg.VerifyThreshold,
				RelocateThreshold: a.cfg.RelocateThreshold,
			}
			if cmd.Flags().Changed("settle") {
				opts.SettleDelay = seconds(settle)
			}
			if cmd.Flags().Changed("threshold") {
				opts.VerifyThreshold = threshold
			}
			if untilStable {
				stable := screen.DefaultStableOptions()
				opts.Stable = &stable
			}

			capturer := screen.New()
			defer capturer.Close()
			locs, err := a.newLocators(capturer)
			if err != nil {
				return err
			}
			defer locs.Close()
			injector, err := input.NewExecInjector()
			if err != nil {
				return err
			}

			ctx, tc := trace.EnsureContext(cmd.Context())
			engine := replay.New(locs.element, locs.template, injector, capturer,
				verify.NewEngine(a.layout, a.cfg.SSIMWindow), a.layout, opts)
			if hub := a.startWatch(ctx); hub != nil {
				hub.SetRunID(tc.RunID)
				engine.WithObserver(hub)
			}

			report, runErr := engine.Run(ctx, source, steps)
			if report != nil {
				fmt.Fprint(cmd.OutOrStdout(), ui.RenderReport(report))
			}
			if runErr != nil {
				return runErr
			}
			if !report.OK() {
				return errStepsFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&sessionPath, "session", "", "replay a recorded session instead of a scenario")
	cmd.Flags().Float64Var(&settle, "settle", 0, "seconds to wait after each action before capturing")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "minimum SSIM score for a step to pass")
	cmd.Flags().BoolVar(&untilStable, "until-stable", false, "stop waiting once the screen stops changing, bounded by the settle delay")
	return cmd
}

// loadSteps reads either the --session file or the positional scenario.
func loadSteps(sessionPath string, args []string) (string, []replay.Step, error) {
	switch {
	case sessionPath != "" && len(args) > 0:
		return "", nil, errors.New("pass either a scenario or --session, not both")
	case sessionPath != "":
		s, err := session.Load(sessionPath)
		if err != nil {
			return "", nil, err
		}
		return sessionPath, replay.StepsFromSession(s), nil
	case len(args) == 1:
		sc, err := session.LoadScenario(args[0])
		if err != nil {
			return "", nil, err
		}
		return args[0], replay.StepsFromScenario(sc), nil
	default:
		return "", nil, errors.New("a scenario file or --session is required")
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
