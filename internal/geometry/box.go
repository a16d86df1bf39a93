package geometry

import (
	"fmt"
	"math"
)

// BoundingBox is an axis-aligned box in pixel coordinates. A box is valid
// when X2 > X1 and Y2 > Y1.
type BoundingBox struct {
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
	Confidence float64 `json:"confidence"`
	ClassID    *int    `json:"class_id,omitempty"`
}

// NewBox builds a box with confidence 1 and no class.
func NewBox(x1, y1, x2, y2 float64) BoundingBox {
	return BoundingBox{X1: x1, Y1: y1, X2: x2, Y2: y2, Confidence: 1}
}

// Width returns X2-X1.
func (b BoundingBox) Width() float64 { return b.X2 - b.X1 }

// Height returns Y2-Y1.
func (b BoundingBox) Height() float64 { return b.Y2 - b.Y1 }

// Area returns the box area, or 0 for an invalid box.
func (b BoundingBox) Area() float64 {
	if !b.Valid() {
		return 0
	}
	return b.Width() * b.Height()
}

// Valid reports whether the box has positive width and height.
func (b BoundingBox) Valid() bool {
	return b.X2 > b.X1 && b.Y2 > b.Y1
}

// Translate shifts the box by (dx, dy). No clipping is applied.
func (b BoundingBox) Translate(dx, dy float64) BoundingBox {
	b.X1 += dx
	b.X2 += dx
	b.Y1 += dy
	b.Y2 += dy
	return b
}

// Expand grows the box by r on every side.
func (b BoundingBox) Expand(r float64) BoundingBox {
	b.X1 -= r
	b.Y1 -= r
	b.X2 += r
	b.Y2 += r
	return b
}

// Clip clamps the box to the frame [0,width]x[0,height]. A box lying
// entirely outside the frame comes back invalid.
func (b BoundingBox) Clip(width, height int) BoundingBox {
	w, h := float64(width), float64(height)
	b.X1 = clamp(b.X1, 0, w)
	b.X2 = clamp(b.X2, 0, w)
	b.Y1 = clamp(b.Y1, 0, h)
	b.Y2 = clamp(b.Y2, 0, h)
	return b
}

// PixelBounds returns the half-open pixel rectangle [x0,x1)x[y0,y1) covered
// by the box inside a width x height frame. Fractional edges are widened to
// the enclosing pixel.
func (b BoundingBox) PixelBounds(width, height int) (x0, y0, x1, y1 int) {
	x0 = clampInt(int(math.Floor(b.X1)), 0, width)
	y0 = clampInt(int(math.Floor(b.Y1)), 0, height)
	x1 = clampInt(int(math.Ceil(b.X2)), 0, width)
	y1 = clampInt(int(math.Ceil(b.Y2)), 0, height)
	return x0, y0, x1, y1
}

// IoU returns the intersection over union of two boxes.
func (b BoundingBox) IoU(o BoundingBox) float64 {
	ix1 := math.Max(b.X1, o.X1)
	iy1 := math.Max(b.Y1, o.Y1)
	ix2 := math.Min(b.X2, o.X2)
	iy2 := math.Min(b.Y2, o.Y2)
	inter := BoundingBox{X1: ix1, Y1: iy1, X2: ix2, Y2: iy2}.Area()
	union := b.Area() + o.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("(%.1f,%.1f,%.1f,%.1f)", b.X1, b.Y1, b.X2, b.Y2)
}

// ROISet is the unordered set of boxes for one frame.
type ROISet []BoundingBox

// Clone returns an independent copy of the set.
func (s ROISet) Clone() ROISet {
	if s == nil {
		return nil
	}
	out := make(ROISet, len(s))
	copy(out, s)
	return out
}

// Areas returns the area of every box in set order.
func (s ROISet) Areas() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Area()
	}
	return out
}

// FilterConfidence returns the boxes whose confidence is at least min.
func (s ROISet) FilterConfidence(min float64) ROISet {
	out := make(ROISet, 0, len(s))
	for _, b := range s {
		if b.Confidence >= min {
			out = append(out, b)
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
