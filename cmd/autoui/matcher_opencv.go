//go:build opencv

package main

import (
	"github.com/GriffinCanCode/autoui/internal/vision"
	"github.com/GriffinCanCode/autoui/internal/vision/opencv"
)

func newMatcher() (vision.Matcher, func()) {
	return opencv.New(), func() {}
}
