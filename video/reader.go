package video

import (
	"io"

	"gocv.io/x/gocv"

	zebraproc "github.com/zebratools/go-zebraproc"
)

// Reader decodes frames from a video file one at a time.  It is forward
// only and not restartable, reopen the file to read it again
type Reader struct {
	path   string
	cap    *gocv.VideoCapture
	meta   Meta
	next   int
	closed bool
}

// Open opens the video at path for reading.  It returns an
// *zebraproc.UnreadableMediaError when the file is missing, corrupt or
// in an unsupported container
func Open(path string) (*Reader, error) {

	if err := statPath(path); err != nil {
		return nil, &zebraproc.UnreadableMediaError{Path: path, Err: err}
	}

	cap, err := gocv.VideoCaptureFile(path)

	if err != nil {
		return nil, &zebraproc.UnreadableMediaError{Path: path, Err: err}
	}

	if !cap.IsOpened() {
		cap.Close()
		return nil, &zebraproc.UnreadableMediaError{Path: path}
	}

	meta := Meta{
		Width:      int(cap.Get(gocv.VideoCaptureFrameWidth)),
		Height:     int(cap.Get(gocv.VideoCaptureFrameHeight)),
		FPS:        cap.Get(gocv.VideoCaptureFPS),
		FrameCount: int(cap.Get(gocv.VideoCaptureFrameCount)),
	}

	if meta.FPS <= 0 {
		meta.FPS = defaultFPS
	}

	return &Reader{
		path: path,
		cap:  cap,
		meta: meta,
	}, nil
}

// Meta returns the properties of the opened video
func (r *Reader) Meta() Meta {
	return r.meta
}

// Next decodes and returns the next frame.  It returns io.EOF at end of
// stream.  The caller owns the returned frame and must close it
func (r *Reader) Next() (*zebraproc.Frame, error) {

	if r.closed {
		return nil, io.EOF
	}

	img := gocv.NewMat()

	if ok := r.cap.Read(&img); !ok {
		img.Close()
		return nil, io.EOF
	}

	if img.Empty() {
		img.Close()
		return nil, io.EOF
	}

	frame := &zebraproc.Frame{
		Mat:       img,
		Index:     r.next,
		Timestamp: float64(r.next) / r.meta.FPS,
	}

	r.next++

	return frame, nil
}

// Close releases the underlying capture.  Safe to call more than once
func (r *Reader) Close() error {

	if r.closed {
		return nil
	}

	r.closed = true

	return r.cap.Close()
}

// Probe opens a video just long enough to report its properties
func Probe(path string) (Meta, error) {

	r, err := Open(path)

	if err != nil {
		return Meta{}, err
	}

	defer r.Close()

	return r.Meta(), nil
}
