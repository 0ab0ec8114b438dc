package video

import (
	"image"

	"gocv.io/x/gocv"

	zebraproc "github.com/zebratools/go-zebraproc"
)

// DefaultCodec is the FourCC used when the caller does not choose one
const DefaultCodec = "mp4v"

// Writer encodes frames into an output video file
type Writer struct {
	path   string
	w      *gocv.VideoWriter
	size   image.Point
	closed bool
}

// NewWriter creates an output video at path using the given FourCC codec
// and the source stream's frame rate and resolution.  It returns an
// *zebraproc.EncodingError when the path is not writable or the codec is
// unsupported on the host
func NewWriter(path, codec string, meta Meta) (*Writer, error) {

	if codec == "" {
		codec = DefaultCodec
	}

	w, err := gocv.VideoWriterFile(path, codec, meta.FPS,
		meta.Width, meta.Height, true)

	if err != nil {
		return nil, &zebraproc.EncodingError{Path: path, Err: err}
	}

	if !w.IsOpened() {
		w.Close()
		return nil, &zebraproc.EncodingError{Path: path}
	}

	return &Writer{
		path: path,
		w:    w,
		size: image.Pt(meta.Width, meta.Height),
	}, nil
}

// Write encodes one frame.  Frames must match the resolution the writer
// was opened with
func (w *Writer) Write(frame *zebraproc.Frame) error {

	if frame.Mat.Cols() != w.size.X || frame.Mat.Rows() != w.size.Y {
		return &zebraproc.EncodingError{Path: w.path}
	}

	if err := w.w.Write(frame.Mat); err != nil {
		return &zebraproc.EncodingError{Path: w.path, Err: err}
	}

	return nil
}

// Close finalizes the output container.  Safe to call more than once,
// including after a partial run
func (w *Writer) Close() error {

	if w.closed {
		return nil
	}

	w.closed = true

	if err := w.w.Close(); err != nil {
		return &zebraproc.EncodingError{Path: w.path, Err: err}
	}

	return nil
}
