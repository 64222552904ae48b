package vision

import (
	"image"
	"sort"
)

// DissimilarMask marks pixels of an 8-bit similarity map at or below
// 255*(1-threshold): 255 where dissimilar, 0 elsewhere.
func DissimilarMask(sim *image.Gray, threshold float64) *image.Gray {
	cut := 255 * (1 - threshold)
	mask := image.NewGray(sim.Rect)
	for i, v := range sim.Pix {
		if float64(v) <= cut {
			mask.Pix[i] = 255
		}
	}
	return mask
}

// ExternalRegions returns bounding rectangles of the outermost foreground
// blobs in mask. Foreground is 8-connected; a blob that sits entirely inside
// a hole of another blob is not external and is dropped. Results are sorted
// top-to-bottom, then left-to-right.
func ExternalRegions(mask *image.Gray) []image.Rectangle {
	w, h := mask.Rect.Dx(), mask.Rect.Dy()
	if w == 0 || h == 0 {
		return nil
	}
	fg := func(x, y int) bool { return mask.Pix[y*mask.Stride+x] != 0 }

	// outer background: 4-connected background reachable from the border
	outer := make([]bool, w*h)
	var stack []int
	push := func(x, y int) {
		if x < 0 || y < 0 || x >= w || y >= h {
			return
		}
		i := y*w + x
		if outer[i] || fg(x, y) {
			return
		}
		outer[i] = true
		stack = append(stack, i)
	}
	for x := 0; x < w; x++ {
		push(x, 0)
		push(x, h-1)
	}
	for y := 0; y < h; y++ {
		push(0, y)
		push(w-1, y)
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		push(x+1, y)
		push(x-1, y)
		push(x, y+1)
		push(x, y-1)
	}

	touchesOuter := func(x, y int) bool {
		if x == 0 || y == 0 || x == w-1 || y == h-1 {
			return true
		}
		return outer[y*w+x-1] || outer[y*w+x+1] || outer[(y-1)*w+x] || outer[(y+1)*w+x]
	}

	label := make([]bool, w*h)
	var regions []image.Rectangle
	for sy := 0; sy < h; sy++ {
		for sx := 0; sx < w; sx++ {
			if !fg(sx, sy) || label[sy*w+sx] {
				continue
			}
			r := image.Rect(sx, sy, sx+1, sy+1)
			external := false
			label[sy*w+sx] = true
			stack = append(stack[:0], sy*w+sx)
			for len(stack) > 0 {
				i := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				x, y := i%w, i/w
				r = r.Union(image.Rect(x, y, x+1, y+1))
				if !external && touchesOuter(x, y) {
					external = true
				}
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						nx, ny := x+dx, y+dy
						if nx < 0 || ny < 0 || nx >= w || ny >= h {
							continue
						}
						j := ny*w + nx
						if !label[j] && fg(nx, ny) {
							label[j] = true
							stack = append(stack, j)
						}
					}
				}
			}
			if external {
				regions = append(regions, r)
			}
		}
	}

	sort.Slice(regions, func(i, j int) bool {
		if regions[i].Min.Y != regions[j].Min.Y {
			return regions[i].Min.Y < regions[j].Min.Y
		}
		return regions[i].Min.X < regions[j].Min.X
	})
	return regions
}
