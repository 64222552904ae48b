//go:build opencv

// Package opencv provides an OpenCV-backed vision.Matcher. It is compiled
// only with the opencv build tag because gocv needs cgo and OpenCV 4.
package opencv

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/GriffinCanCode/autoui/internal/vision"
)

// Matcher runs cv::matchTemplate with TM_CCOEFF_NORMED on grayscale mats.
type Matcher struct{}

func New() *Matcher { return &Matcher{} }

func (Matcher) MatchTemplate(img, templ image.Image) (vision.Match, error) {
	src, err := grayMat(img)
	if err != nil {
		return vision.Match{}, err
	}
	defer src.Close()
	tpl, err := grayMat(templ)
	if err != nil {
		return vision.Match{}, err
	}
	defer tpl.Close()

	if tpl.Cols() > src.Cols() || tpl.Rows() > src.Rows() {
		return vision.Match{}, fmt.Errorf("match: template %dx%d larger than image %dx%d",
			tpl.Cols(), tpl.Rows(), src.Cols(), src.Rows())
	}

	result := gocv.NewMat()
	defer result.Close()
	mask := gocv.NewMat()
	defer mask.Close()

	gocv.MatchTemplate(src, tpl, &result, gocv.TmCcoeffNormed, mask)
	_, maxVal, _, maxLoc := gocv.MinMaxLoc(result)

	return vision.Match{
		TopLeft: maxLoc,
		Size:    image.Pt(tpl.Cols(), tpl.Rows()),
		Score:   float64(maxVal),
	}, nil
}

func grayMat(img image.Image) (gocv.Mat, error) {
	mat, err := gocv.ImageGrayToMatGray(vision.Gray(img))
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("convert image to mat: %w", err)
	}
	return mat, nil
}
