package vision

import (
	"image"
	"image/color"
)

// patterned returns a deterministic textured RGBA image.
func patterned(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x*37 + y*91 + (x*y)%29) % 256)
			img.Set(x, y, color.RGBA{R: v, G: uint8((int(v) * 3) % 256), B: uint8(255 - v), A: 255})
		}
	}
	return img
}

func solidGray(w, h int, v uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

func fillGray(g *image.Gray, r image.Rectangle, v uint8) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			g.SetGray(x, y, color.Gray{Y: v})
		}
	}
}
