//go:build !opencv

package main

import "github.com/GriffinCanCode/autoui/internal/vision"

func newMatcher() (vision.Matcher, func()) {
	return vision.DefaultMatcher(), func() {}
}
