package vision

import (
	"fmt"
	"image"
	"math"
	"sort"
)

// Match is the best placement of a template inside a larger image.
type Match struct {
	TopLeft image.Point
	Size    image.Point
	Score   float64 // normalized cross-correlation in [-1, 1]
}

// Center returns the centre of the matched area.
func (m Match) Center() image.Point {
	return image.Pt(m.TopLeft.X+m.Size.X/2, m.TopLeft.Y+m.Size.Y/2)
}

// Matcher finds the best placement of templ inside img.
type Matcher interface {
	MatchTemplate(img, templ image.Image) (Match, error)
}

// minDetailRetained is the share of per-pixel template variance the coarse
// level must keep. Below it the template's detail (thin strokes, checker
// patterns) was averaged away and coarse scores say nothing about placement.
const minDetailRetained = 0.2

// NCCMatcher scores placements with the mean-subtracted normalized
// cross-correlation coefficient. Large searches run coarse-to-fine: a
// downsampled pass nominates distinct candidates that are refined at full
// resolution. Templates whose detail does not survive downsampling are
// searched exhaustively.
type NCCMatcher struct {
	// PyramidMinSide is the smallest template side that enables the coarse
	// pass; zero disables it.
	PyramidMinSide int
	// Candidates is how many coarse peaks are refined.
	Candidates int
}

// DefaultMatcher returns the matcher used when OpenCV is not compiled in.
func DefaultMatcher() *NCCMatcher {
	return &NCCMatcher{PyramidMinSide: 24, Candidates: 5}
}

func (m *NCCMatcher) MatchTemplate(img, templ image.Image) (Match, error) {
	src := newPlane(Gray(img))
	tpl := newPlane(Gray(templ))
	if tpl.w == 0 || tpl.h == 0 {
		return Match{}, fmt.Errorf("match: empty template")
	}
	if tpl.w > src.w || tpl.h > src.h {
		return Match{}, fmt.Errorf("match: template %dx%d larger than image %dx%d", tpl.w, tpl.h, src.w, src.h)
	}

	size := image.Pt(tpl.w, tpl.h)
	full := image.Rect(0, 0, src.w-tpl.w+1, src.h-tpl.h+1)
	exhaustive := func() (Match, error) {
		best := bestOf(nccSearch(src, tpl, full), 1)
		return Match{TopLeft: best[0].p, Size: size, Score: best[0].score}, nil
	}

	factor := m.pyramidFactor(tpl)
	if factor <= 1 {
		return exhaustive()
	}
	coarseTpl := tpl.downsample(factor)
	if fine := tpl.variance(); fine > 0 && coarseTpl.variance() < minDetailRetained*fine {
		return exhaustive()
	}

	coarseSrc := src.downsample(factor)
	coarse := nccSearch(coarseSrc, coarseTpl, image.Rect(0, 0, coarseSrc.w-coarseTpl.w+1, coarseSrc.h-coarseTpl.h+1))

	n := m.Candidates
	if n < 1 {
		n = 1
	}
	// peaks closer than half the coarse template would refine the same spot
	spacing := max(1, min(coarseTpl.w, coarseTpl.h)/2)
	result := Match{Size: size, Score: math.Inf(-1)}
	for _, c := range peaks(coarse, n, spacing) {
		cx, cy := c.p.X*factor, c.p.Y*factor
		window := image.Rect(cx-factor*2, cy-factor*2, cx+factor*2+1, cy+factor*2+1).
			Intersect(full)
		for _, s := range bestOf(nccSearch(src, tpl, window), 1) {
			if s.score > result.Score {
				result.TopLeft, result.Score = s.p, s.score
			}
		}
	}
	return result, nil
}

func (m *NCCMatcher) pyramidFactor(tpl *plane) int {
	if m.PyramidMinSide <= 0 {
		return 1
	}
	side := min(tpl.w, tpl.h)
	factor := 1
	for side/(factor*2) >= m.PyramidMinSide/2 && factor < 8 {
		factor *= 2
	}
	if side < m.PyramidMinSide {
		return 1
	}
	return factor
}

// plane is a grayscale image as float64 with summed-area tables for
// window sums and sums of squares.
type plane struct {
	w, h  int
	v     []float64
	sum   []float64
	sumSq []float64
}

func newPlane(g *image.Gray) *plane {
	p := &plane{w: g.Rect.Dx(), h: g.Rect.Dy(), v: toFloat(g)}
	p.tables()
	return p
}

func (p *plane) tables() {
	stride := p.w + 1
	p.sum = make([]float64, stride*(p.h+1))
	p.sumSq = make([]float64, stride*(p.h+1))
	for y := 0; y < p.h; y++ {
		var rs, rq float64
		for x := 0; x < p.w; x++ {
			v := p.v[y*p.w+x]
			rs += v
			rq += v * v
			p.sum[(y+1)*stride+x+1] = p.sum[y*stride+x+1] + rs
			p.sumSq[(y+1)*stride+x+1] = p.sumSq[y*stride+x+1] + rq
		}
	}
}

func (p *plane) window(t []float64, x, y, w, h int) float64 {
	stride := p.w + 1
	return t[(y+h)*stride+x+w] - t[y*stride+x+w] - t[(y+h)*stride+x] + t[y*stride+x]
}

// downsample averages factor x factor blocks.
func (p *plane) downsample(factor int) *plane {
	w, h := p.w/factor, p.h/factor
	out := &plane{w: w, h: h, v: make([]float64, w*h)}
	area := float64(factor * factor)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			out.v[y*w+x] = p.window(p.sum, x*factor, y*factor, factor, factor) / area
		}
	}
	out.tables()
	return out
}

// variance is the per-pixel variance of the whole plane.
func (p *plane) variance() float64 {
	n := float64(p.w * p.h)
	if n == 0 {
		return 0
	}
	s := p.window(p.sum, 0, 0, p.w, p.h)
	sq := p.window(p.sumSq, 0, 0, p.w, p.h)
	return math.Max(0, sq/n-(s/n)*(s/n))
}

type scored struct {
	p     image.Point
	score float64
}

// nccSearch scores every top-left placement in area.
func nccSearch(src, tpl *plane, area image.Rectangle) []scored {
	n := float64(tpl.w * tpl.h)
	var tMean float64
	for _, v := range tpl.v {
		tMean += v
	}
	tMean /= n
	tz := make([]float64, len(tpl.v))
	var tVar float64
	for i, v := range tpl.v {
		tz[i] = v - tMean
		tVar += tz[i] * tz[i]
	}

	out := make([]scored, 0, area.Dx()*area.Dy())
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			s := src.window(src.sum, x, y, tpl.w, tpl.h)
			sq := src.window(src.sumSq, x, y, tpl.w, tpl.h)
			iVar := sq - s*s/n

			// sum(tz) == 0, so the cross term needs only raw window pixels
			var cross float64
			for ty := 0; ty < tpl.h; ty++ {
				row := src.v[(y+ty)*src.w+x : (y+ty)*src.w+x+tpl.w]
				trow := tz[ty*tpl.w : (ty+1)*tpl.w]
				for tx, tv := range trow {
					cross += tv * row[tx]
				}
			}
			out = append(out, scored{p: image.Pt(x, y), score: nccScore(cross, tVar, iVar)})
		}
	}
	return out
}

// nccScore follows the TM_CCOEFF_NORMED conventions for flat inputs: two
// flat patches match perfectly, one flat patch against texture scores zero.
func nccScore(cross, tVar, iVar float64) float64 {
	const eps = 1e-9
	switch {
	case tVar < eps && iVar < eps:
		return 1
	case tVar < eps || iVar < eps:
		return 0
	}
	score := cross / math.Sqrt(tVar*iVar)
	return math.Max(-1, math.Min(1, score))
}

// bestOf returns the n highest scores in descending order; earlier
// placements win ties.
func bestOf(all []scored, n int) []scored {
	top := make([]scored, 0, n)
	for _, c := range all {
		if len(top) == n && c.score <= top[n-1].score {
			continue
		}
		i := sort.Search(len(top), func(i int) bool { return top[i].score < c.score })
		if len(top) < n {
			top = append(top, scored{})
		}
		copy(top[i+1:], top[i:len(top)-1])
		top[i] = c
	}
	return top
}

// peaks returns up to n high scores in descending order, skipping any
// placement within spacing (Chebyshev distance) of one already taken.
func peaks(all []scored, n, spacing int) []scored {
	sorted := make([]scored, len(all))
	copy(sorted, all)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].score > sorted[j].score })

	top := make([]scored, 0, n)
	for _, c := range sorted {
		if len(top) == n {
			break
		}
		near := false
		for _, t := range top {
			if max(abs(c.p.X-t.p.X), abs(c.p.Y-t.p.Y)) < spacing {
				near = true
				break
			}
		}
		if !near {
			top = append(top, c)
		}
	}
	return top
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
