package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// JSONExporter accumulates frame reports and writes the complete
// document on Close through a temporary file renamed into place, so the
// target path never holds a partial document
type JSONExporter struct {
	path   string
	frames []FrameReport
	closed bool
}

// NewJSON returns an exporter that will write to path on Close
func NewJSON(path string) *JSONExporter {
	return &JSONExporter{path: path}
}

// AddFrame records the detections of one processed frame
func (e *JSONExporter) AddFrame(frame FrameReport) error {

	// serialize empty frames as [] rather than null
	if frame.Detections == nil {
		frame.Detections = []DetectionRecord{}
	}

	e.frames = append(e.frames, frame)

	return nil
}

// Close writes the accumulated document.  Safe to call more than once,
// only the first call writes
func (e *JSONExporter) Close() error {

	if e.closed {
		return nil
	}

	e.closed = true

	frames := e.frames

	if frames == nil {
		frames = []FrameReport{}
	}

	data, err := json.MarshalIndent(frames, "", "  ")

	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(e.path), ".report-*.json")

	if err != nil {
		return fmt.Errorf("creating report temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing report: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing report temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), e.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("moving report into place: %w", err)
	}

	return nil
}

// ReadJSON parses a JSON report back into frame reports
func ReadJSON(path string) ([]FrameReport, error) {

	data, err := os.ReadFile(path)

	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}

	var frames []FrameReport

	if err := json.Unmarshal(data, &frames); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}

	return frames, nil
}
