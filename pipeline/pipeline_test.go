package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	zebraproc "github.com/zebratools/go-zebraproc"
	"github.com/zebratools/go-zebraproc/report"
	"github.com/zebratools/go-zebraproc/video"
)

// stubSource yields synthetic frames without touching a decoder
type stubSource struct {
	frames  int
	next    int
	meta    video.Meta
	closed  bool
	nextErr error
}

func newStubSource(frames int) *stubSource {
	return &stubSource{
		frames: frames,
		meta: video.Meta{
			Width: 640, Height: 480, FPS: 30, FrameCount: frames,
		},
	}
}

func (s *stubSource) Meta() video.Meta {
	return s.meta
}

func (s *stubSource) Next() (*zebraproc.Frame, error) {

	if s.nextErr != nil && s.next == s.frames/2 {
		return nil, s.nextErr
	}

	if s.next >= s.frames {
		return nil, io.EOF
	}

	f := &zebraproc.Frame{
		Index:     s.next,
		Timestamp: float64(s.next) / s.meta.FPS,
	}

	s.next++

	return f, nil
}

func (s *stubSource) Close() error {
	s.closed = true
	return nil
}

// stubSink records written frame indices
type stubSink struct {
	written []int
	closed  bool
	failAt  int
}

func newStubSink() *stubSink {
	return &stubSink{failAt: -1}
}

func (s *stubSink) Write(f *zebraproc.Frame) error {

	if s.failAt >= 0 && f.Index == s.failAt {
		return &zebraproc.EncodingError{Path: "stub"}
	}

	s.written = append(s.written, f.Index)

	return nil
}

func (s *stubSink) Close() error {
	s.closed = true
	return nil
}

// stubDetector returns scripted detections per frame index
type stubDetector struct {
	detect func(frame *zebraproc.Frame) ([]zebraproc.Detection, error)
	closed bool
}

func (d *stubDetector) Detect(frame *zebraproc.Frame) ([]zebraproc.Detection, error) {
	return d.detect(frame)
}

func (d *stubDetector) Close() error {
	d.closed = true
	return nil
}

// oneZebra scripts a single constant position detection on every frame
func oneZebra(frame *zebraproc.Frame) ([]zebraproc.Detection, error) {
	return []zebraproc.Detection{
		{
			Box:        zebraproc.Box{X: 100, Y: 80, Width: 120, Height: 90},
			Confidence: 0.9,
			Class:      0,
		},
	}, nil
}

// newTestPipeline wires a pipeline onto stub collaborators
func newTestPipeline(det zebraproc.Detector, src *stubSource, sink *stubSink,
	opts ...Option) *Pipeline {

	p := New(det, opts...)

	p.openSource = func(string) (frameSource, error) {
		return src, nil
	}

	p.openSink = func(string, string, video.Meta) (frameSink, error) {
		return sink, nil
	}

	// stub frames carry no pixel data to clone or draw on
	p.annotate = func(f *zebraproc.Frame, _ []zebraproc.Detection) *zebraproc.Frame {
		return &zebraproc.Frame{Index: f.Index, Timestamp: f.Timestamp}
	}

	return p
}

func testJob(t *testing.T, format report.Format) Job {
	dir := t.TempDir()
	return Job{
		InputPath:        "in.mp4",
		OutputVideoPath:  filepath.Join(dir, "out.mp4"),
		OutputReportPath: filepath.Join(dir, "report."+string(format)),
		ReportFormat:     format,
	}
}

func TestProcessHappyPath(t *testing.T) {

	src := newStubSource(10)
	sink := newStubSink()
	det := &stubDetector{detect: oneZebra}

	var states []State

	p := newTestPipeline(det, src, sink, WithProgress(func(pr Progress) {
		if len(states) == 0 || states[len(states)-1] != pr.State {
			states = append(states, pr.State)
		}
	}))

	job := testJob(t, report.FormatCSV)
	job.EnableTracking = true

	result, err := p.Process(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, 10, result.FramesProcessed)
	assert.Equal(t, 0, result.FramesSkipped)
	assert.Equal(t, 10, result.Detections)
	assert.Equal(t, 1, result.Tracks)
	assert.False(t, result.Canceled)

	assert.Equal(t, StateDone, p.State())
	assert.Equal(t, []State{
		StateInitializing, StateProcessing, StateFinalizing, StateDone,
	}, states)

	assert.Len(t, sink.written, 10)
	assert.True(t, sink.closed)
	assert.True(t, src.closed)

	rows, err := report.ReadCSV(job.OutputReportPath)
	require.NoError(t, err)
	require.Len(t, rows, 10)

	for i, row := range rows {
		assert.Equal(t, i, row.FrameIndex)
		assert.Equal(t, 1, row.TrackID)

		if i > 0 {
			assert.GreaterOrEqual(t, row.FrameIndex, rows[i-1].FrameIndex)
		}
	}
}

func TestProcessCancellation(t *testing.T) {

	src := newStubSource(10)
	sink := newStubSink()
	det := &stubDetector{detect: oneZebra}

	ctx, cancel := context.WithCancel(context.Background())

	p := newTestPipeline(det, src, sink, WithProgress(func(pr Progress) {
		// stop after the fifth frame has been processed
		if pr.State == StateProcessing && pr.FrameIndex == 4 {
			cancel()
		}
	}))

	job := testJob(t, report.FormatJSON)

	result, err := p.Process(ctx, job)
	require.NoError(t, err)

	// graceful partial completion, not a failure
	assert.Equal(t, StateDone, p.State())
	assert.True(t, result.Canceled)
	assert.Equal(t, 5, result.FramesProcessed)
	assert.Len(t, sink.written, 5)
	assert.True(t, sink.closed)

	frames, err := report.ReadJSON(job.OutputReportPath)
	require.NoError(t, err)
	assert.Len(t, frames, 5)
}

func TestProcessSkipsInferenceFailures(t *testing.T) {

	src := newStubSource(10)
	sink := newStubSink()

	det := &stubDetector{detect: func(f *zebraproc.Frame) ([]zebraproc.Detection, error) {
		if f.Index == 3 {
			return nil, &zebraproc.InferenceError{FrameIndex: f.Index}
		}
		return oneZebra(f)
	}}

	p := newTestPipeline(det, src, sink)

	job := testJob(t, report.FormatJSON)

	result, err := p.Process(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, 10, result.FramesProcessed)
	assert.Equal(t, 1, result.FramesSkipped)
	assert.Equal(t, 9, result.Detections)

	// the skipped frame is still written and still reported, with zero
	// detections
	assert.Len(t, sink.written, 10)

	frames, err := report.ReadJSON(job.OutputReportPath)
	require.NoError(t, err)
	require.Len(t, frames, 10)
	assert.Empty(t, frames[3].Detections)
	assert.Len(t, frames[2].Detections, 1)
}

func TestProcessFatalDetectorError(t *testing.T) {

	src := newStubSource(10)
	sink := newStubSink()

	det := &stubDetector{detect: func(f *zebraproc.Frame) ([]zebraproc.Detection, error) {
		if f.Index == 2 {
			return nil, errors.New("model handle lost")
		}
		return oneZebra(f)
	}}

	p := newTestPipeline(det, src, sink)

	_, err := p.Process(context.Background(), testJob(t, report.FormatCSV))
	require.Error(t, err)

	assert.Equal(t, StateFailed, p.State())

	// all resources are released before the error surfaces
	assert.True(t, src.closed)
	assert.True(t, sink.closed)
}

func TestProcessUnreadableInput(t *testing.T) {

	det := &stubDetector{detect: oneZebra}

	p := New(det)

	sinkOpened := false

	p.openSource = func(path string) (frameSource, error) {
		return nil, &zebraproc.UnreadableMediaError{Path: path}
	}

	p.openSink = func(string, string, video.Meta) (frameSink, error) {
		sinkOpened = true
		return newStubSink(), nil
	}

	_, err := p.Process(context.Background(), testJob(t, report.FormatCSV))
	require.Error(t, err)

	var mediaErr *zebraproc.UnreadableMediaError
	assert.True(t, errors.As(err, &mediaErr))

	assert.Equal(t, StateFailed, p.State())

	// no output file is opened when the input cannot be read
	assert.False(t, sinkOpened)
}

func TestProcessWriteFailure(t *testing.T) {

	src := newStubSource(10)
	sink := newStubSink()
	sink.failAt = 4

	det := &stubDetector{detect: oneZebra}

	p := newTestPipeline(det, src, sink)

	_, err := p.Process(context.Background(), testJob(t, report.FormatCSV))
	require.Error(t, err)

	var encErr *zebraproc.EncodingError
	assert.True(t, errors.As(err, &encErr))

	assert.Equal(t, StateFailed, p.State())
	assert.True(t, src.closed)
	assert.True(t, sink.closed)
}

func TestProcessReadFailureMidStream(t *testing.T) {

	src := newStubSource(10)
	src.nextErr = &zebraproc.UnreadableMediaError{Path: "in.mp4"}
	sink := newStubSink()

	det := &stubDetector{detect: oneZebra}

	p := newTestPipeline(det, src, sink)

	job := testJob(t, report.FormatCSV)

	_, err := p.Process(context.Background(), job)
	require.Error(t, err)
	assert.Equal(t, StateFailed, p.State())

	// partial report rows written before the failure are retained
	rows, readErr := report.ReadCSV(job.OutputReportPath)
	require.NoError(t, readErr)
	assert.Len(t, rows, 5)
}

func TestProcessValidation(t *testing.T) {

	det := &stubDetector{detect: oneZebra}

	tests := []struct {
		name string
		job  Job
	}{
		{"empty input", Job{
			OutputVideoPath:  "o.mp4",
			OutputReportPath: "r.csv",
			ReportFormat:     report.FormatCSV,
		}},
		{"empty output video", Job{
			InputPath:        "i.mp4",
			OutputReportPath: "r.csv",
			ReportFormat:     report.FormatCSV,
		}},
		{"empty report path", Job{
			InputPath:       "i.mp4",
			OutputVideoPath: "o.mp4",
			ReportFormat:    report.FormatCSV,
		}},
		{"bad format", Job{
			InputPath:        "i.mp4",
			OutputVideoPath:  "o.mp4",
			OutputReportPath: "r.xml",
			ReportFormat:     report.Format("xml"),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(det)

			_, err := p.Process(context.Background(), tt.job)
			require.Error(t, err)

			var cfgErr *zebraproc.ConfigurationError
			assert.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, StateFailed, p.State())
		})
	}
}

func TestProcessNoDetector(t *testing.T) {

	p := New(nil)

	_, err := p.Process(context.Background(), testJob(t, report.FormatCSV))
	require.Error(t, err)

	var cfgErr *zebraproc.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestProcessTrackingDisabled(t *testing.T) {

	src := newStubSource(4)
	sink := newStubSink()
	det := &stubDetector{detect: oneZebra}

	p := newTestPipeline(det, src, sink)

	job := testJob(t, report.FormatCSV)

	result, err := p.Process(context.Background(), job)
	require.NoError(t, err)

	assert.Equal(t, 0, result.Tracks)

	rows, err := report.ReadCSV(job.OutputReportPath)
	require.NoError(t, err)

	for _, row := range rows {
		assert.Equal(t, 0, row.TrackID)
	}
}

func TestProcessDeterministic(t *testing.T) {

	run := func() []report.Row {
		src := newStubSource(6)
		sink := newStubSink()

		// two subjects drifting apart
		det := &stubDetector{detect: func(f *zebraproc.Frame) ([]zebraproc.Detection, error) {
			return []zebraproc.Detection{
				{Box: zebraproc.Box{X: 100 + f.Index*4, Y: 100, Width: 80, Height: 60}, Confidence: 0.9},
				{Box: zebraproc.Box{X: 400 - f.Index*4, Y: 300, Width: 80, Height: 60}, Confidence: 0.8},
			}, nil
		}}

		p := newTestPipeline(det, src, sink)

		job := testJob(t, report.FormatCSV)
		job.EnableTracking = true

		_, err := p.Process(context.Background(), job)
		require.NoError(t, err)

		rows, err := report.ReadCSV(job.OutputReportPath)
		require.NoError(t, err)

		return rows
	}

	a := run()
	b := run()

	assert.Equal(t, a, b)

	// the two simultaneously visible subjects never share an identifier
	for i := 0; i < len(a); i += 2 {
		assert.NotEqual(t, a[i].TrackID, a[i+1].TrackID,
			fmt.Sprintf("frame %d shares a track id", a[i].FrameIndex))
	}
}

func TestStateString(t *testing.T) {

	for s, want := range map[State]string{
		StateIdle:         "idle",
		StateInitializing: "initializing",
		StateProcessing:   "processing",
		StateFinalizing:   "finalizing",
		StateDone:         "done",
		StateFailed:       "failed",
	} {
		assert.Equal(t, want, s.String())
	}
}
