package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// csvHeader is the stable column order of the CSV report
var csvHeader = []string{
	"frame_index", "timestamp", "x", "y", "width", "height",
	"confidence", "track_id",
}

// CSVExporter streams detection rows to a CSV file, flushing after every
// frame so a partial run leaves a valid file
type CSVExporter struct {
	f      *os.File
	w      *csv.Writer
	closed bool
}

// NewCSV creates the report file at path and writes the header
func NewCSV(path string) (*CSVExporter, error) {

	f, err := os.Create(path)

	if err != nil {
		return nil, fmt.Errorf("creating report file: %w", err)
	}

	w := csv.NewWriter(f)

	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing report header: %w", err)
	}

	w.Flush()

	if err := w.Error(); err != nil {
		f.Close()
		return nil, fmt.Errorf("flushing report header: %w", err)
	}

	return &CSVExporter{f: f, w: w}, nil
}

// AddFrame writes one row per detection and flushes.  Frames with no
// detections contribute no rows
func (e *CSVExporter) AddFrame(frame FrameReport) error {

	for _, det := range frame.Detections {

		trackID := ""

		if det.TrackID > 0 {
			trackID = strconv.Itoa(det.TrackID)
		}

		row := []string{
			strconv.Itoa(frame.FrameIndex),
			strconv.FormatFloat(frame.Timestamp, 'f', -1, 64),
			strconv.Itoa(det.X),
			strconv.Itoa(det.Y),
			strconv.Itoa(det.Width),
			strconv.Itoa(det.Height),
			strconv.FormatFloat(det.Confidence, 'f', -1, 64),
			trackID,
		}

		if err := e.w.Write(row); err != nil {
			return fmt.Errorf("writing report row: %w", err)
		}
	}

	e.w.Flush()

	if err := e.w.Error(); err != nil {
		return fmt.Errorf("flushing report: %w", err)
	}

	return nil
}

// Close flushes and closes the report file.  Safe to call more than once
func (e *CSVExporter) Close() error {

	if e.closed {
		return nil
	}

	e.closed = true

	e.w.Flush()

	if err := e.w.Error(); err != nil {
		e.f.Close()
		return fmt.Errorf("flushing report: %w", err)
	}

	return e.f.Close()
}

// ReadCSV parses a CSV report back into flat rows
func ReadCSV(path string) ([]Row, error) {

	f, err := os.Open(path)

	if err != nil {
		return nil, fmt.Errorf("opening report: %w", err)
	}

	defer f.Close()

	r := csv.NewReader(f)

	records, err := r.ReadAll()

	if err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("report %s has no header", path)
	}

	var rows []Row

	for _, rec := range records[1:] {

		if len(rec) != len(csvHeader) {
			return nil, fmt.Errorf("report row has %d fields, want %d",
				len(rec), len(csvHeader))
		}

		var row Row
		var err error

		if row.FrameIndex, err = strconv.Atoi(rec[0]); err != nil {
			return nil, fmt.Errorf("parsing frame_index: %w", err)
		}

		if row.Timestamp, err = strconv.ParseFloat(rec[1], 64); err != nil {
			return nil, fmt.Errorf("parsing timestamp: %w", err)
		}

		if row.X, err = strconv.Atoi(rec[2]); err != nil {
			return nil, fmt.Errorf("parsing x: %w", err)
		}

		if row.Y, err = strconv.Atoi(rec[3]); err != nil {
			return nil, fmt.Errorf("parsing y: %w", err)
		}

		if row.Width, err = strconv.Atoi(rec[4]); err != nil {
			return nil, fmt.Errorf("parsing width: %w", err)
		}

		if row.Height, err = strconv.Atoi(rec[5]); err != nil {
			return nil, fmt.Errorf("parsing height: %w", err)
		}

		if row.Confidence, err = strconv.ParseFloat(rec[6], 64); err != nil {
			return nil, fmt.Errorf("parsing confidence: %w", err)
		}

		if rec[7] != "" {
			if row.TrackID, err = strconv.Atoi(rec[7]); err != nil {
				return nil, fmt.Errorf("parsing track_id: %w", err)
			}
		}

		rows = append(rows, row)
	}

	return rows, nil
}
