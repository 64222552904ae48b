package session

import (
	"encoding/json"
	"fmt"
	"image"
)

// BoundingBox is the area covering every recorded pointer position plus a
// margin. It serializes as [minX, minY, maxX, maxY].
type BoundingBox struct {
	MinX, MinY, MaxX, MaxY int
}

// Expand returns the smallest box covering b and the square of side
// 2*margin centred on (x, y). A nil b starts a new box. The result never
// shrinks relative to b.
func (b *BoundingBox) Expand(x, y, margin int) *BoundingBox {
	next := BoundingBox{MinX: x - margin, MinY: y - margin, MaxX: x + margin, MaxY: y + margin}
	if b != nil {
		next.MinX = min(next.MinX, b.MinX)
		next.MinY = min(next.MinY, b.MinY)
		next.MaxX = max(next.MaxX, b.MaxX)
		next.MaxY = max(next.MaxY, b.MaxY)
	}
	return &next
}

// Rect converts the box to an image rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.MinX, b.MinY, b.MaxX, b.MaxY)
}

// Center returns the centre of the box.
func (b BoundingBox) Center() image.Point {
	return image.Pt((b.MinX+b.MaxX)/2, (b.MinY+b.MaxY)/2)
}

// Contains reports whether r lies entirely inside b.
func (b BoundingBox) Contains(r BoundingBox) bool {
	return b.MinX <= r.MinX && b.MinY <= r.MinY && b.MaxX >= r.MaxX && b.MaxY >= r.MaxY
}

func (b BoundingBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]int{b.MinX, b.MinY, b.MaxX, b.MaxY})
}

func (b *BoundingBox) UnmarshalJSON(data []byte) error {
	var v [4]int
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("bounding box: %w", err)
	}
	if v[0] > v[2] || v[1] > v[3] {
		return fmt.Errorf("bounding box %v: min exceeds max", v)
	}
	*b = BoundingBox{MinX: v[0], MinY: v[1], MaxX: v[2], MaxY: v[3]}
	return nil
}
