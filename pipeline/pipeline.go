/*
Package pipeline is the composition root driving the per frame
read -> detect -> track -> annotate -> write loop over a video.  It
owns the run state machine, resource lifecycle and the progress event
boundary the GUI shell or CLI front end observes.

Control flow is strictly linear per video, frames are processed one at a
time in order.  Cancellation is observed once per frame boundary, a
canceled run finalizes with whatever partial results have accumulated
rather than discarding them.
*/
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	zebraproc "github.com/zebratools/go-zebraproc"
	"github.com/zebratools/go-zebraproc/render"
	"github.com/zebratools/go-zebraproc/report"
	"github.com/zebratools/go-zebraproc/tracker"
	"github.com/zebratools/go-zebraproc/video"
)

// State is the run state of a Pipeline
type State int

const (
	StateIdle State = iota
	StateInitializing
	StateProcessing
	StateFinalizing
	StateDone
	StateFailed
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateProcessing:
		return "processing"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Job describes one video processing run
type Job struct {
	// InputPath is the source video file
	InputPath string
	// OutputVideoPath is where the annotated video is written
	OutputVideoPath string
	// OutputReportPath is where the detection report is written
	OutputReportPath string
	// ReportFormat selects CSV or JSON for the report
	ReportFormat report.Format
	// EnableTracking turns on cross frame identity assignment
	EnableTracking bool
	// Codec is the output video FourCC, empty selects the default
	Codec string
}

// Progress is one progress event emitted to the front end, once per
// state change and once per processed frame
type Progress struct {
	// RunID identifies the run the event belongs to
	RunID uuid.UUID
	// State is the pipeline state at the time of the event
	State State
	// FrameIndex is the most recently processed frame, -1 before the
	// first frame
	FrameIndex int
	// TotalFrames is the container reported frame count, zero when the
	// container does not report one
	TotalFrames int
	// Detections is the cumulative detection count of the run
	Detections int
}

// Result summarizes a completed run
type Result struct {
	// RunID identifies the run
	RunID uuid.UUID
	// FramesProcessed is the number of frames read and written
	FramesProcessed int
	// FramesSkipped is the number of frames the detector failed on
	FramesSkipped int
	// Detections is the total number of detections recorded
	Detections int
	// Tracks is the number of track identities assigned, zero when
	// tracking was disabled
	Tracks int
	// Canceled reports the run was stopped early at a frame boundary
	Canceled bool
}

// frameSource yields decoded frames, the Reader seam
type frameSource interface {
	Meta() video.Meta
	Next() (*zebraproc.Frame, error)
	Close() error
}

// frameSink consumes annotated frames, the Writer seam
type frameSink interface {
	Write(*zebraproc.Frame) error
	Close() error
}

// Pipeline drives video processing runs.  A Pipeline is not safe for
// concurrent Process calls, run one video at a time
type Pipeline struct {
	detector   zebraproc.Detector
	logger     *zap.Logger
	onProgress func(Progress)
	classNames []string
	font       render.Font
	thickness  int
	minIoU     float32
	maxLost    int

	// collaborator seams, replaced in tests
	openSource  func(path string) (frameSource, error)
	openSink    func(path, codec string, meta video.Meta) (frameSink, error)
	newExporter func(path string, format report.Format) (report.Exporter, error)
	annotate    func(*zebraproc.Frame, []zebraproc.Detection) *zebraproc.Frame

	mu    sync.Mutex
	state State
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLogger sets the logger, the default discards everything
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithProgress sets the progress event callback
func WithProgress(fn func(Progress)) Option {
	return func(p *Pipeline) {
		p.onProgress = fn
	}
}

// WithClassNames sets the class names used in overlay labels
func WithClassNames(names []string) Option {
	return func(p *Pipeline) {
		p.classNames = names
	}
}

// WithTrackerParams overrides the tracker matching threshold and
// retirement age, zero keeps the defaults
func WithTrackerParams(minIoU float32, maxLost int) Option {
	return func(p *Pipeline) {
		p.minIoU = minIoU
		p.maxLost = maxLost
	}
}

// WithFont sets the overlay label font
func WithFont(font render.Font) Option {
	return func(p *Pipeline) {
		p.font = font
	}
}

// New returns a Pipeline that detects with det
func New(det zebraproc.Detector, opts ...Option) *Pipeline {

	p := &Pipeline{
		detector:  det,
		logger:    zap.NewNop(),
		font:      render.DefaultFont(),
		thickness: 2,
		state:     StateIdle,
	}

	p.openSource = func(path string) (frameSource, error) {
		return video.Open(path)
	}

	p.openSink = func(path, codec string, meta video.Meta) (frameSink, error) {
		return video.NewWriter(path, codec, meta)
	}

	p.newExporter = report.NewExporter

	p.annotate = func(f *zebraproc.Frame, dets []zebraproc.Detection) *zebraproc.Frame {
		return render.Annotate(f, dets, p.classNames, p.font, p.thickness)
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// State returns the current run state
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Process runs one video through the pipeline.  It blocks until the run
// reaches Done or Failed.  Cancel ctx to stop the run at the next frame
// boundary, keeping partial results.  Partial output files are retained
// on failure so the caller can inspect how far processing got
func (p *Pipeline) Process(ctx context.Context, job Job) (*Result, error) {

	runID := uuid.New()
	log := p.logger.With(zap.String("run_id", runID.String()))

	progress := Progress{RunID: runID, FrameIndex: -1}

	if err := p.validate(job); err != nil {
		p.setState(StateFailed, &progress)
		return nil, err
	}

	p.setState(StateInitializing, &progress)

	log.Info("opening input video", zap.String("path", job.InputPath))

	src, err := p.openSource(job.InputPath)

	if err != nil {
		p.setState(StateFailed, &progress)
		return nil, err
	}

	meta := src.Meta()
	progress.TotalFrames = meta.FrameCount

	log.Info("input opened",
		zap.Int("width", meta.Width),
		zap.Int("height", meta.Height),
		zap.Float64("fps", meta.FPS),
		zap.Int("frames", meta.FrameCount))

	sink, err := p.openSink(job.OutputVideoPath, job.Codec, meta)

	if err != nil {
		src.Close()
		p.setState(StateFailed, &progress)
		return nil, err
	}

	exporter, err := p.newExporter(job.OutputReportPath, job.ReportFormat)

	if err != nil {
		sink.Close()
		src.Close()
		p.setState(StateFailed, &progress)
		return nil, err
	}

	var trk *tracker.IOUTracker

	if job.EnableTracking {
		trk = tracker.NewIOUTracker(p.minIoU, p.maxLost)
	}

	// release everything before surfacing an error, keeping whatever
	// partial output files exist
	fail := func(err error) (*Result, error) {
		exporter.Close()
		sink.Close()
		src.Close()
		p.setState(StateFailed, &progress)
		log.Error("run failed", zap.Error(err))
		return nil, err
	}

	p.setState(StateProcessing, &progress)

	result := &Result{RunID: runID}

	for {

		// cancellation is observed once per frame boundary
		if ctx.Err() != nil {
			result.Canceled = true
			log.Info("run canceled", zap.Int("frames", result.FramesProcessed))
			break
		}

		frame, err := src.Next()

		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return fail(fmt.Errorf("reading frame: %w", err))
		}

		frameIndex := frame.Index
		timestamp := frame.Timestamp

		detections, err := p.detector.Detect(frame)

		if err != nil {
			var infErr *zebraproc.InferenceError

			if !errors.As(err, &infErr) {
				frame.Close()
				return fail(fmt.Errorf("detector: %w", err))
			}

			// an unprocessable frame is logged and recorded with zero
			// detections, wildlife footage has occasional bad frames
			log.Warn("skipping unprocessable frame",
				zap.Int("frame", frameIndex), zap.Error(err))

			result.FramesSkipped++
			detections = nil
		}

		if trk != nil {
			assignTracks(trk, detections)
		}

		annotated := p.annotate(frame, detections)

		werr := sink.Write(annotated)

		annotated.Close()
		frame.Close()

		if werr != nil {
			return fail(werr)
		}

		if err := exporter.AddFrame(frameReport(frameIndex, timestamp, detections)); err != nil {
			return fail(fmt.Errorf("report: %w", err))
		}

		result.FramesProcessed++
		result.Detections += len(detections)

		progress.FrameIndex = frameIndex
		progress.Detections = result.Detections
		p.emit(progress)
	}

	p.setState(StateFinalizing, &progress)

	if err := exporter.Close(); err != nil {
		sink.Close()
		src.Close()
		p.setState(StateFailed, &progress)
		return nil, fmt.Errorf("finalizing report: %w", err)
	}

	if err := sink.Close(); err != nil {
		src.Close()
		p.setState(StateFailed, &progress)
		return nil, err
	}

	if err := src.Close(); err != nil {
		p.setState(StateFailed, &progress)
		return nil, err
	}

	if trk != nil {
		result.Tracks = trk.Assigned()
	}

	p.setState(StateDone, &progress)

	log.Info("run complete",
		zap.Int("frames", result.FramesProcessed),
		zap.Int("skipped", result.FramesSkipped),
		zap.Int("detections", result.Detections),
		zap.Int("tracks", result.Tracks),
		zap.Bool("canceled", result.Canceled))

	return result, nil
}

// validate rejects bad run arguments before any resource is opened
func (p *Pipeline) validate(job Job) error {

	if p.detector == nil {
		return &zebraproc.ConfigurationError{
			Field: "detector", Reason: "no detector configured",
		}
	}

	if job.InputPath == "" {
		return &zebraproc.ConfigurationError{
			Field: "input_path", Reason: "must not be empty",
		}
	}

	if job.OutputVideoPath == "" {
		return &zebraproc.ConfigurationError{
			Field: "output_video_path", Reason: "must not be empty",
		}
	}

	if job.OutputReportPath == "" {
		return &zebraproc.ConfigurationError{
			Field: "output_report_path", Reason: "must not be empty",
		}
	}

	switch job.ReportFormat {
	case report.FormatCSV, report.FormatJSON:
	default:
		return &zebraproc.ConfigurationError{
			Field:  "report_format",
			Reason: fmt.Sprintf("unknown format %q", job.ReportFormat),
		}
	}

	return nil
}

// setState moves the state machine and emits the change
func (p *Pipeline) setState(s State, progress *Progress) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()

	progress.State = s
	p.emit(*progress)
}

func (p *Pipeline) emit(progress Progress) {
	if p.onProgress != nil {
		p.onProgress(progress)
	}
}

// assignTracks runs the tracker over one frame's detections and writes
// the assigned identities back onto them.  Called every frame, also
// with zero detections, so open tracks age and retire
func assignTracks(trk *tracker.IOUTracker, detections []zebraproc.Detection) {

	objects := make([]tracker.Object, len(detections))

	for i, d := range detections {
		objects[i] = tracker.NewObject(
			tracker.NewRect(
				float32(d.Box.X), float32(d.Box.Y),
				float32(d.Box.Width), float32(d.Box.Height)),
			d.Class, d.Confidence)
	}

	for _, m := range trk.Update(objects) {
		if m.Matched() {
			detections[m.Detection].TrackID = m.ID
		}
	}
}

// frameReport converts one frame's detections into report records
func frameReport(index int, timestamp float64, detections []zebraproc.Detection) report.FrameReport {

	records := make([]report.DetectionRecord, 0, len(detections))

	for _, d := range detections {
		records = append(records, report.DetectionRecord{
			X:          d.Box.X,
			Y:          d.Box.Y,
			Width:      d.Box.Width,
			Height:     d.Box.Height,
			Confidence: float64(d.Confidence),
			TrackID:    d.TrackID,
		})
	}

	return report.FrameReport{
		FrameIndex: index,
		Timestamp:  timestamp,
		Detections: records,
	}
}
