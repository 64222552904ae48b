package vision

import (
	"image"

	"github.com/corona10/goimagehash"
)

// HashDistance returns the Hamming distance between the perceptual hashes
// of a and b. Zero means the images are perceptually indistinguishable.
func HashDistance(a, b image.Image) (int, error) {
	ha, err := goimagehash.PerceptionHash(a)
	if err != nil {
		return 0, err
	}
	hb, err := goimagehash.PerceptionHash(b)
	if err != nil {
		return 0, err
	}
	return ha.Distance(hb)
}
