package zebraproc

import (
	"fmt"
)

// UnreadableMediaError indicates the input video file is missing, corrupt,
// or in a container/codec the host decoder does not support
type UnreadableMediaError struct {
	// Path is the input file that could not be read
	Path string
	// Err is the underlying decoder error, may be nil
	Err error
}

func (e *UnreadableMediaError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("unreadable media %s", e.Path)
	}
	return fmt.Sprintf("unreadable media %s: %v", e.Path, e.Err)
}

func (e *UnreadableMediaError) Unwrap() error {
	return e.Err
}

// InferenceError indicates the detector failed on a single frame.  The
// pipeline logs these and skips the frame rather than aborting the run
type InferenceError struct {
	// FrameIndex is the frame the detector failed on
	FrameIndex int
	// Err is the underlying model error, may be nil
	Err error
}

func (e *InferenceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("inference failed on frame %d", e.FrameIndex)
	}
	return fmt.Sprintf("inference failed on frame %d: %v", e.FrameIndex, e.Err)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}

// EncodingError indicates the output video could not be written, either
// the path is not writable or the chosen codec is unsupported on the host
type EncodingError struct {
	// Path is the output file being encoded
	Path string
	// Err is the underlying encoder error, may be nil
	Err error
}

func (e *EncodingError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("encoding failed for %s", e.Path)
	}
	return fmt.Sprintf("encoding failed for %s: %v", e.Path, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// ConfigurationError indicates invalid run arguments such as an empty
// path or an unknown report format
type ConfigurationError struct {
	// Field is the argument name that failed validation
	Field string
	// Reason describes why the value was rejected
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Reason)
}
