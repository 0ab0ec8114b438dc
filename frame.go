package zebraproc

import (
	"gocv.io/x/gocv"
)

// Frame is a single decoded video frame.  It is owned transiently by the
// pipeline for one iteration and must be closed once written and reported
type Frame struct {
	// Mat is the decoded BGR image buffer
	Mat gocv.Mat
	// Index is the zero based position of the frame in the video
	Index int
	// Timestamp is the frame presentation time in seconds
	Timestamp float64
}

// Close frees the underlying image buffer.  Safe to call on a nil frame
func (f *Frame) Close() error {
	if f == nil {
		return nil
	}
	return f.Mat.Close()
}

// Clone returns a deep copy of the frame with its own image buffer
func (f *Frame) Clone() *Frame {
	return &Frame{
		Mat:       f.Mat.Clone(),
		Index:     f.Index,
		Timestamp: f.Timestamp,
	}
}
