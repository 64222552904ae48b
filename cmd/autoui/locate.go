package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/autoui/internal/locate"
	"github.com/GriffinCanCode/autoui/internal/screen"
	"github.com/GriffinCanCode/autoui/internal/ui"
)

func (a *app) locateCmd() *cobra.Command {
	var d locate.Descriptor
	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Find an element on screen by template image and/or visible text",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			capturer := screen.New()
			defer capturer.Close()
			locs, err := a.newLocators(capturer)
			if err != nil {
				return err
			}
			defer locs.Close()

			res, err := locs.element.Locate(cmd.Context(), d)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), ui.RenderLocation(res))
			return nil
		},
	}
	cmd.Flags().StringVar(&d.TemplateImage, "template", "", "template image to match")
	cmd.Flags().StringVar(&d.TargetText, "text", "", "text to find with OCR")
	return cmd
}
