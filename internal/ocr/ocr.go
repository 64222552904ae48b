// Package ocr defines recognized-text spans as produced by the OCR sidecar.
package ocr

import (
	"context"
	"image"
	"strings"
)

// Span is one recognized piece of text. Quad lists the corners clockwise
// from top-left; rotated text yields a non-rectangular quad.
type Span struct {
	Quad       [4]image.Point
	Text       string
	Confidence float64
}

// Bounds returns the axis-aligned rectangle enclosing the quad.
func (s Span) Bounds() image.Rectangle {
	r := image.Rectangle{Min: s.Quad[0], Max: s.Quad[0]}
	for _, p := range s.Quad[1:] {
		r.Min.X = min(r.Min.X, p.X)
		r.Min.Y = min(r.Min.Y, p.Y)
		r.Max.X = max(r.Max.X, p.X)
		r.Max.Y = max(r.Max.Y, p.Y)
	}
	return r
}

// Matches reports whether the span's text equals target after trimming
// whitespace, ignoring case.
func (s Span) Matches(target string) bool {
	return strings.EqualFold(strings.TrimSpace(s.Text), strings.TrimSpace(target))
}

// Recognizer extracts text spans from an image.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) ([]Span, error)
}

// Join returns the recognized texts separated by single spaces.
func Join(spans []Span) string {
	parts := make([]string, 0, len(spans))
	for _, s := range spans {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}
