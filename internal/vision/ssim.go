package vision

import (
	"fmt"
	"image"
	"math"
)

const (
	ssimK1        = 0.01
	ssimK2        = 0.03
	ssimDataRange = 255.0

	// DefaultWindow is the side of the uniform SSIM window.
	DefaultWindow = 7
)

// SSIMMap is a per-pixel structural similarity map.
type SSIMMap struct {
	Width, Height int
	Values        []float64 // row-major
}

// At returns the similarity at (x, y).
func (m *SSIMMap) At(x, y int) float64 { return m.Values[y*m.Width+x] }

// SSIM computes the mean structural similarity of two equally sized
// grayscale images with a uniform window of side win and the full map.
// Local statistics use sample covariance over the window with reflected
// borders; the mean ignores a border of win/2 pixels.
func SSIM(a, b *image.Gray, win int) (float64, *SSIMMap, error) {
	w, h := a.Rect.Dx(), a.Rect.Dy()
	if w != b.Rect.Dx() || h != b.Rect.Dy() {
		return 0, nil, fmt.Errorf("ssim: size mismatch %dx%d vs %dx%d", w, h, b.Rect.Dx(), b.Rect.Dy())
	}
	if w == 0 || h == 0 {
		return 0, nil, fmt.Errorf("ssim: empty image")
	}
	win = fitWindow(win, w, h)

	x := toFloat(a)
	y := toFloat(b)
	xx := make([]float64, len(x))
	yy := make([]float64, len(x))
	xy := make([]float64, len(x))
	for i := range x {
		xx[i] = x[i] * x[i]
		yy[i] = y[i] * y[i]
		xy[i] = x[i] * y[i]
	}

	ux := boxMean(x, w, h, win)
	uy := boxMean(y, w, h, win)
	uxx := boxMean(xx, w, h, win)
	uyy := boxMean(yy, w, h, win)
	uxy := boxMean(xy, w, h, win)

	np := float64(win * win)
	covNorm := 1.0
	if np > 1 {
		covNorm = np / (np - 1)
	}
	c1 := math.Pow(ssimK1*ssimDataRange, 2)
	c2 := math.Pow(ssimK2*ssimDataRange, 2)

	m := &SSIMMap{Width: w, Height: h, Values: make([]float64, len(x))}
	for i := range m.Values {
		// explicit float64 conversions keep the compiler from fusing
		// multiply-adds, so identical inputs yield exactly 1
		vx := covNorm * (uxx[i] - float64(ux[i]*ux[i]))
		vy := covNorm * (uyy[i] - float64(uy[i]*uy[i]))
		vxy := covNorm * (uxy[i] - float64(ux[i]*uy[i]))

		a1 := float64(2*ux[i]*uy[i]) + c1
		a2 := float64(2*vxy) + c2
		b1 := float64(ux[i]*ux[i]) + float64(uy[i]*uy[i]) + c1
		b2 := vx + vy + c2
		m.Values[i] = (a1 * a2) / (b1 * b2)
	}

	pad := (win - 1) / 2
	x0, y0, x1, y1 := pad, pad, w-pad, h-pad
	if x1 <= x0 || y1 <= y0 {
		x0, y0, x1, y1 = 0, 0, w, h
	}
	var sum float64
	for yy := y0; yy < y1; yy++ {
		for xx := x0; xx < x1; xx++ {
			sum += m.At(xx, yy)
		}
	}
	return sum / float64((x1-x0)*(y1-y0)), m, nil
}

// fitWindow shrinks win to the largest odd size that fits the image.
func fitWindow(win, w, h int) int {
	if win < 1 {
		win = DefaultWindow
	}
	if win%2 == 0 {
		win--
	}
	for win > 1 && (win > w || win > h) {
		win -= 2
	}
	return win
}

func toFloat(g *image.Gray) []float64 {
	w, h := g.Rect.Dx(), g.Rect.Dy()
	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+w]
		for x, v := range row {
			out[y*w+x] = float64(v)
		}
	}
	return out
}

// reflect maps i into [0, n) mirroring at the edges (d c b a | a b c d | d c b a).
func reflect(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - 1 - i
	}
	return i
}

// boxMean averages v over a win x win window centred on every pixel using
// a summed-area table over the reflect-padded plane.
func boxMean(v []float64, w, h, win int) []float64 {
	pad := win / 2
	pw, ph := w+2*pad, h+2*pad
	sat := make([]float64, (pw+1)*(ph+1))
	for y := 0; y < ph; y++ {
		sy := reflect(y-pad, h)
		var rowSum float64
		for x := 0; x < pw; x++ {
			rowSum += v[sy*w+reflect(x-pad, w)]
			sat[(y+1)*(pw+1)+x+1] = sat[y*(pw+1)+x+1] + rowSum
		}
	}

	n := float64(win * win)
	out := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			x0, y0, x1, y1 := x, y, x+win, y+win
			s := sat[y1*(pw+1)+x1] - sat[y0*(pw+1)+x1] - sat[y1*(pw+1)+x0] + sat[y0*(pw+1)+x0]
			out[y*w+x] = s / n
		}
	}
	return out
}

// ToGray8 clamps the map to [0,1] and scales it to 8 bits (truncating).
func (m *SSIMMap) ToGray8() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, v := range m.Values {
		switch {
		case v <= 0:
			g.Pix[i] = 0
		case v >= 1:
			g.Pix[i] = 255
		default:
			g.Pix[i] = uint8(v * 255)
		}
	}
	return g
}
