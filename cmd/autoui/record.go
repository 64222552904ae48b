package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/autoui/internal/input/hook"
	"github.com/GriffinCanCode/autoui/internal/recorder"
	"github.com/GriffinCanCode/autoui/internal/screen"
	"github.com/GriffinCanCode/autoui/internal/ui"
)

func (a *app) recordCmd() *cobra.Command {
	var (
		out     string
		idle    time.Duration
		margin  int
		stopKey string
	)
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record mouse and keyboard actions into a session file",
		Long: "Record mouse and keyboard actions with a screenshot per action. " +
			"Recording stops after the idle limit, on the stop key, or on Ctrl-C.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			opts := recorder.Options{
				IdleTimeLimit: a.cfg.IdleTimeLimit,
				BoxMargin:     a.cfg.BoxMargin,
				MonitorWidth:  a.cfg.MonitorWidth,
				StopKey:       a.cfg.StopKey,
			}
			if cmd.Flags().Changed("idle") {
				opts.IdleTimeLimit = idle
			}
			if cmd.Flags().Changed("margin") {
				opts.BoxMargin = margin
			}
			if stopKey != "" {
				opts.StopKey = stopKey
			}

			capturer := screen.New()
			defer capturer.Close()

			rec := recorder.New(hook.New(), capturer, a.layout, opts)
			if hub := a.startWatch(ctx); hub != nil {
				rec.WithObserver(hub)
			}
			if err := rec.Start(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Recording. Press %s or stay idle for %s to stop.\n", opts.StopKey, opts.IdleTimeLimit)

			rec.Wait()
			if err := rec.Save(out); err != nil {
				slog.Error("failed to save session", "path", out, "error", err)
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), ui.RenderSession(rec.Session(), out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "session.json", "session file to write")
	cmd.Flags().DurationVar(&idle, "idle", 0, "stop after this long without input")
	cmd.Flags().IntVar(&margin, "margin", 0, "bounding box margin in pixels")
	cmd.Flags().StringVar(&stopKey, "stop-key", "", "key that ends the recording")
	return cmd
}
