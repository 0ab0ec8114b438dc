package tracker

// Track is a stable identity linking detections of the same subject
// across frames.  Identifiers are unique and monotonically assigned and
// never change once assigned
type Track struct {
	// ID is the unique track identifier
	ID int
	// Class is the model class of the most recent matched detection
	Class int
	// Confidence is the score of the most recent matched detection
	Confidence float32
	// Rect is the most recently observed bounding box
	Rect Rect
	// Predicted is the motion model's box estimate for the current frame
	Predicted Rect
	// StartFrame is the frame the track was first observed on
	StartFrame int
	// LastFrame is the most recent frame the track matched a detection on
	LastFrame int
	// Detection is the index of the matched detection in the current
	// frame's input, -1 when the track went unmatched this frame
	Detection int

	// consecutive frames without a match
	lost int
	// motion filter state
	state *KalmanState
}

// Matched reports whether the track matched a detection on the current
// frame
func (t *Track) Matched() bool {
	return t.Detection >= 0
}
