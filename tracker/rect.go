package tracker

import (
	"math"
)

// Rect is a bounding box in top-left/width/height form using float32
// coordinates, matching the detection output space
type Rect struct {
	X      float32
	Y      float32
	Width  float32
	Height float32
}

// NewRect creates a Rect from top-left coordinates and dimensions
func NewRect(x, y, width, height float32) Rect {
	return Rect{X: x, Y: y, Width: width, Height: height}
}

// BRX returns the bottom-right x coordinate
func (r Rect) BRX() float32 {
	return r.X + r.Width
}

// BRY returns the bottom-right y coordinate
func (r Rect) BRY() float32 {
	return r.Y + r.Height
}

// Xyah converts the rectangle to center x, center y, aspect ratio and
// height form, the state space used by the Kalman filter
func (r Rect) Xyah() [4]float64 {
	return [4]float64{
		float64(r.X + r.Width/2),
		float64(r.Y + r.Height/2),
		float64(r.Width) / float64(r.Height),
		float64(r.Height),
	}
}

// RectFromXyah converts center x, center y, aspect ratio, height form
// back to a Rect
func RectFromXyah(xyah [4]float64) Rect {
	w := xyah[2] * xyah[3]
	return NewRect(
		float32(xyah[0]-w/2),
		float32(xyah[1]-xyah[3]/2),
		float32(w),
		float32(xyah[3]),
	)
}

// IoU returns the Intersection over Union of two rectangles, in [0,1]
func (r Rect) IoU(other Rect) float32 {

	iw := math.Min(float64(r.BRX()), float64(other.BRX())) -
		math.Max(float64(r.X), float64(other.X))

	if iw <= 0 {
		return 0
	}

	ih := math.Min(float64(r.BRY()), float64(other.BRY())) -
		math.Max(float64(r.Y), float64(other.Y))

	if ih <= 0 {
		return 0
	}

	inter := iw * ih
	union := float64(r.Width)*float64(r.Height) +
		float64(other.Width)*float64(other.Height) - inter

	if union <= 0 {
		return 0
	}

	return float32(inter / union)
}
