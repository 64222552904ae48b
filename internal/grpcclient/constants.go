package grpcclient

import "time"

const (
	// OCRRecognizeMethod is the full method name served by the sidecar.
	OCRRecognizeMethod = "/autoui.ocr.v1.OCRService/Recognize"

	DefaultKeepaliveTime    = 10 * time.Second
	DefaultKeepaliveTimeout = 3 * time.Second
	DefaultCallTimeout      = 10 * time.Second

	// MaxImageBytes bounds request size; full-screen PNGs of 5K displays fit.
	MaxImageBytes = 64 << 20
)
