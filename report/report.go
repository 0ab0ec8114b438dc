/*
Package report serializes per frame detection records to CSV or JSON.

The CSV exporter streams, every frame is flushed as it arrives so an
aborted run still leaves a valid file holding all frames written so far.
The JSON exporter accumulates and writes the complete document through a
temporary file renamed into place on Close, so the target path either
holds a complete valid document or nothing at all.
*/
package report

import (
	"fmt"
	"strings"

	zebraproc "github.com/zebratools/go-zebraproc"
)

// Format selects the report serialization format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat parses a format name, csv or json
func ParseFormat(s string) (Format, error) {

	switch strings.ToLower(s) {
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	}

	return "", &zebraproc.ConfigurationError{
		Field:  "report_format",
		Reason: fmt.Sprintf("unknown format %q, use csv or json", s),
	}
}

// DetectionRecord is one detection of a frame as written to the report
type DetectionRecord struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
	// TrackID is absent/empty when tracking is disabled
	TrackID int `json:"track_id,omitempty"`
}

// FrameReport groups the detections of one processed frame
type FrameReport struct {
	FrameIndex int               `json:"frame_index"`
	Timestamp  float64           `json:"timestamp"`
	Detections []DetectionRecord `json:"detections"`
}

// Row is one flat (frame, detection) record, the CSV row shape
type Row struct {
	FrameIndex int
	Timestamp  float64
	X          int
	Y          int
	Width      int
	Height     int
	Confidence float64
	TrackID    int
}

// Exporter accumulates frame reports during a run and serializes them.
// Frames must be added in increasing frame index order
type Exporter interface {
	// AddFrame records the detections of one processed frame
	AddFrame(frame FrameReport) error
	// Close finalizes the report file
	Close() error
}

// NewExporter returns an exporter writing to path in the given format
func NewExporter(path string, format Format) (Exporter, error) {

	switch format {
	case FormatCSV:
		return NewCSV(path)
	case FormatJSON:
		return NewJSON(path), nil
	}

	return nil, &zebraproc.ConfigurationError{
		Field:  "report_format",
		Reason: fmt.Sprintf("unknown format %q", format),
	}
}
