// Package verify decides whether two captures show the same UI state and
// marks the regions where they differ.
package verify

import (
	"context"
	"encoding/json"
	"image"
	"path/filepath"
	"time"

	"github.com/GriffinCanCode/autoui/internal/artifacts"
	apperr "github.com/GriffinCanCode/autoui/internal/errors"
	"github.com/GriffinCanCode/autoui/internal/trace"
	"github.com/GriffinCanCode/autoui/internal/vision"
)

// DefaultThreshold is the SSIM score a comparison must reach to pass.
const DefaultThreshold = 0.8

const outlineThickness = 2

// Artifacts are the files written for one comparison.
type Artifacts struct {
	MarkedReference string `json:"marked_reference"`
	MarkedCandidate string `json:"marked_candidate"`
	DiffMap         string `json:"diff_map"`
}

type Result struct {
	Score        float64
	Passed       bool
	DiffRegions  []image.Rectangle
	Artifacts    Artifacts
	HashDistance int // perceptual hash distance, -1 when unavailable
}

// MarshalJSON encodes regions as [minX, minY, maxX, maxY].
func (r Result) MarshalJSON() ([]byte, error) {
	regions := make([][4]int, len(r.DiffRegions))
	for i, d := range r.DiffRegions {
		regions[i] = [4]int{d.Min.X, d.Min.Y, d.Max.X, d.Max.Y}
	}
	return json.Marshal(struct {
		Score        float64   `json:"score"`
		Passed       bool      `json:"passed"`
		DiffRegions  [][4]int  `json:"diff_regions"`
		Artifacts    Artifacts `json:"artifacts"`
		HashDistance int       `json:"hash_distance"`
	}{r.Score, r.Passed, regions, r.Artifacts, r.HashDistance})
}

// Engine runs comparisons and writes their artifacts beneath a layout.
type Engine struct {
	layout artifacts.Layout
	window int
	now    func() time.Time
}

func NewEngine(layout artifacts.Layout, window int) *Engine {
	if window <= 0 {
		window = vision.DefaultWindow
	}
	return &Engine{layout: layout, window: window, now: time.Now}
}

// Compare loads both images and compares them.
func (e *Engine) Compare(ctx context.Context, referencePath, candidatePath string, threshold float64) (*Result, error) {
	ref, err := vision.Load(referencePath)
	if err != nil {
		return nil, apperr.Wrapf(err, apperr.ImageUnreadable, "reference %s", referencePath)
	}
	cand, err := vision.Load(candidatePath)
	if err != nil {
		return nil, apperr.Wrapf(err, apperr.ImageUnreadable, "candidate %s", candidatePath)
	}
	return e.CompareImages(ctx, ref, cand, artifacts.Stem(referencePath), threshold)
}

// CompareImages compares in-memory images. label prefixes artifact names.
// The candidate is resized to the reference's dimensions when they differ.
func (e *Engine) CompareImages(ctx context.Context, ref, cand image.Image, label string, threshold float64) (*Result, error) {
	ctx, span := trace.StartSpan(ctx, "verify")
	defer span.End()
	log := trace.Logger(ctx)

	rb, cb := ref.Bounds(), cand.Bounds()
	if rb.Empty() || cb.Empty() {
		return nil, apperr.Newf(apperr.DimensionMismatch, "cannot reconcile %dx%d with %dx%d", rb.Dx(), rb.Dy(), cb.Dx(), cb.Dy())
	}
	if rb.Size() != cb.Size() {
		resized, err := vision.Resize(cand, rb.Dx(), rb.Dy())
		if err != nil {
			return nil, apperr.Wrap(err, apperr.DimensionMismatch, "resize candidate")
		}
		log.Debug("resized candidate", "from", cb.Size(), "to", rb.Size())
		cand = resized
	}

	score, simMap, err := vision.SSIM(vision.Gray(ref), vision.Gray(cand), e.window)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.DimensionMismatch, "ssim")
	}
	diffMap := simMap.ToGray8()
	regions := vision.ExternalRegions(vision.DissimilarMask(diffMap, threshold))

	res := &Result{
		Score:        score,
		Passed:       score >= threshold,
		DiffRegions:  regions,
		HashDistance: -1,
	}
	if d, err := vision.HashDistance(ref, cand); err == nil {
		res.HashDistance = d
	} else {
		log.Warn("perceptual hash failed", "error", err)
	}

	if res.Artifacts, err = e.writeArtifacts(label, ref, cand, diffMap, regions); err != nil {
		return nil, err
	}

	span.SetAttr("score", score)
	span.SetAttr("regions", len(regions))
	log.Info("comparison finished",
		"label", label,
		"score", score,
		"passed", res.Passed,
		"regions", len(regions),
		"hash_distance", res.HashDistance,
	)
	return res, nil
}

func (e *Engine) writeArtifacts(label string, ref, cand image.Image, diffMap *image.Gray, regions []image.Rectangle) (Artifacts, error) {
	now := e.now()
	a := Artifacts{
		MarkedReference: filepath.Join(e.layout.MatchableAreas(), e.layout.FileName(label+" reference", now)),
		MarkedCandidate: filepath.Join(e.layout.MatchableAreas(), e.layout.FileName(label+" candidate", now)),
		DiffMap:         filepath.Join(e.layout.Differences(), e.layout.FileName(label+" diff", now)),
	}
	writes := []struct {
		path string
		img  image.Image
	}{
		{a.MarkedReference, vision.DrawRects(ref, regions, vision.Highlight, outlineThickness)},
		{a.MarkedCandidate, vision.DrawRects(cand, regions, vision.Highlight, outlineThickness)},
		{a.DiffMap, diffMap},
	}
	for _, w := range writes {
		if err := vision.Save(w.path, w.img); err != nil {
			return Artifacts{}, apperr.Wrapf(err, apperr.Internal, "write artifact %s", w.path)
		}
	}
	return a, nil
}
