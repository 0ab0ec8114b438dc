/*
Package video wraps OpenCV video decode and encode behind the pipeline's
Frame type.  The Reader yields a lazy, finite, forward only sequence of
frames in strictly increasing time order.  The Writer encodes annotated
frames back into an output container and finalizes it on every exit path
so an aborted run still leaves a playable, if truncated, file.
*/
package video

import (
	"os"
)

// Meta describes the properties of an opened video stream
type Meta struct {
	// Width of a frame in pixels
	Width int
	// Height of a frame in pixels
	Height int
	// FPS is the container reported frame rate
	FPS float64
	// FrameCount is the container reported number of frames, zero when
	// the container does not report one
	FrameCount int
}

// defaultFPS is used when the container reports no frame rate
const defaultFPS = 30.0

// statPath reports whether the file exists before handing it to the
// decoder, so a missing file is distinguishable from a corrupt one
func statPath(path string) error {
	_, err := os.Stat(path)
	return err
}
