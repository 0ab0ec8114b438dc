package tracker

// Object is a single frame detection handed to the tracker for identity
// assignment
type Object struct {
	// Rect is the bounding box of the detected object
	Rect Rect
	// Confidence is the detection score of the object
	Confidence float32
	// Class is the model class of the detected object
	Class int
}

// NewObject is a constructor function for the Object struct
func NewObject(rect Rect, class int, confidence float32) Object {
	return Object{
		Rect:       rect,
		Class:      class,
		Confidence: confidence,
	}
}
