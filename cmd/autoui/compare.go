package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/autoui/internal/ui"
	"github.com/GriffinCanCode/autoui/internal/verify"
)

var errMismatch = errors.New("images differ")

func (a *app) compareCmd() *cobra.Command {
	var threshold float64
	cmd := &cobra.Command{
		Use:   "compare <reference> <candidate>",
		Short: "Compare two screenshots with SSIM and write diff artifacts",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("threshold") {
				threshold = a.cfg.VerifyThreshold
			}
			engine := verify.NewEngine(a.layout, a.cfg.SSIMWindow)
			res, err := engine.Compare(cmd.Context(), args[0], args[1], threshold)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), ui.RenderComparison(res))
			if !res.Passed {
				return errMismatch
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&threshold, "threshold", verify.DefaultThreshold, "minimum SSIM score to pass")
	return cmd
}
