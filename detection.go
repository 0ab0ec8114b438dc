package zebraproc

// Box is an axis aligned bounding box in source frame pixel coordinates
type Box struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Right returns the exclusive right edge of the box
func (b Box) Right() int {
	return b.X + b.Width
}

// Bottom returns the exclusive bottom edge of the box
func (b Box) Bottom() int {
	return b.Y + b.Height
}

// Clamp restricts the box to lie within a frame of the given dimensions.
// A box entirely outside the frame collapses to zero size on its edge
func (b Box) Clamp(frameWidth, frameHeight int) Box {
	x1 := clampInt(b.X, 0, frameWidth)
	y1 := clampInt(b.Y, 0, frameHeight)
	x2 := clampInt(b.X+b.Width, 0, frameWidth)
	y2 := clampInt(b.Y+b.Height, 0, frameHeight)

	return Box{
		X:      x1,
		Y:      y1,
		Width:  x2 - x1,
		Height: y2 - y1,
	}
}

func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Detection is a single bounding box prediction for one frame
type Detection struct {
	// Box is the object location in source frame coordinates
	Box Box
	// Confidence is the model score in the range [0,1]
	Confidence float32
	// Class is the model class index of the detected object
	Class int
	// TrackID is the stable identity assigned by the tracker, zero when
	// tracking is disabled or no identity has been assigned
	TrackID int
}

// Detector is anything that can produce detections for a frame.  The
// implementation holds its model in memory for the duration of a run and
// is initialized once per run, not per frame
type Detector interface {
	// Detect returns the detections found in the frame.  Boxes lie
	// within frame bounds and scores are within [0,1].  A frame the
	// model cannot process yields an *InferenceError
	Detect(frame *Frame) ([]Detection, error)
	// Close releases the model handle
	Close() error
}
