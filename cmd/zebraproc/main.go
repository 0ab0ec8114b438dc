/*
zebraproc runs zebra detection and tracking over a video file, writing
an annotated copy of the video plus a per frame detection report.

Usage:

	zebraproc -i safari.mp4 -o annotated.mp4 -r report.csv -track

Model and label paths default from the environment, see Config.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"

	"github.com/zebratools/go-zebraproc/detect"
	"github.com/zebratools/go-zebraproc/pipeline"
	"github.com/zebratools/go-zebraproc/report"
)

// Config holds deployment level defaults, overridable per run by flags
type Config struct {
	ModelFile string  `env:"ZEBRAPROC_MODEL"     envDefault:"yolov8n.onnx"`
	LabelFile string  `env:"ZEBRAPROC_LABELS"    envDefault:""`
	Codec     string  `env:"ZEBRAPROC_CODEC"     envDefault:"mp4v"`
	LogLevel  string  `env:"ZEBRAPROC_LOG_LEVEL" envDefault:"info"`
	MinIoU    float64 `env:"ZEBRAPROC_MIN_IOU"   envDefault:"0.3"`
	MaxLost   int     `env:"ZEBRAPROC_MAX_LOST"  envDefault:"30"`
}

func main() {

	cfg := Config{}

	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "parsing environment: %v\n", err)
		os.Exit(2)
	}

	inputPath := flag.String("i", "", "Input video file to process")
	outputPath := flag.String("o", "", "Output annotated video file")
	reportPath := flag.String("r", "", "Output detection report file")
	format := flag.String("f", "", "Report format, csv or json, inferred from the report file extension when empty")
	track := flag.Bool("track", false, "Assign persistent track identifiers across frames")
	allClasses := flag.Bool("all-classes", false, "Detect all model classes instead of zebras only")
	modelFile := flag.String("m", cfg.ModelFile, "YOLOv8 ONNX model file")
	labelFile := flag.String("l", cfg.LabelFile, "Class label file, one name per line")
	flag.Parse()

	log, err := newLogger(cfg.LogLevel)

	if err != nil {
		fmt.Fprintf(os.Stderr, "initializing logger: %v\n", err)
		os.Exit(2)
	}

	defer log.Sync()

	if *inputPath == "" || *outputPath == "" || *reportPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	reportFormat, err := resolveFormat(*format, *reportPath)

	if err != nil {
		log.Fatal("bad report format", zap.Error(err))
	}

	params := detect.ZebraParams()

	if *allClasses {
		params = detect.COCOParams()
	}

	var classNames []string

	if *labelFile != "" {
		classNames, err = detect.LoadClassNames(*labelFile)

		if err != nil {
			log.Fatal("loading class labels", zap.Error(err))
		}
	}

	log.Info("loading model", zap.String("model", *modelFile))

	detector, err := detect.NewYOLO(*modelFile, params)

	if err != nil {
		log.Fatal("loading model", zap.Error(err))
	}

	defer detector.Close()

	// Ctrl-C finalizes the run at the next frame boundary keeping
	// partial outputs
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(detector,
		pipeline.WithLogger(log),
		pipeline.WithClassNames(classNames),
		pipeline.WithTrackerParams(float32(cfg.MinIoU), cfg.MaxLost),
		pipeline.WithProgress(progressLogger(log)),
	)

	result, err := p.Process(ctx, pipeline.Job{
		InputPath:        *inputPath,
		OutputVideoPath:  *outputPath,
		OutputReportPath: *reportPath,
		ReportFormat:     reportFormat,
		EnableTracking:   *track,
		Codec:            cfg.Codec,
	})

	if err != nil {
		log.Fatal("processing failed", zap.Error(err))
	}

	log.Info("finished",
		zap.Int("frames", result.FramesProcessed),
		zap.Int("skipped", result.FramesSkipped),
		zap.Int("detections", result.Detections),
		zap.Int("tracks", result.Tracks),
		zap.Bool("canceled", result.Canceled))
}

// newLogger builds a console logger at the given level
func newLogger(level string) (*zap.Logger, error) {

	lvl, err := zap.ParseAtomicLevel(level)

	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", level, err)
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = lvl
	zcfg.Encoding = "console"

	return zcfg.Build()
}

// resolveFormat picks the report format from the flag, or from the
// report file extension when the flag is empty
func resolveFormat(flagValue, path string) (report.Format, error) {

	if flagValue != "" {
		return report.ParseFormat(flagValue)
	}

	if idx := strings.LastIndex(path, "."); idx >= 0 {
		if f, err := report.ParseFormat(path[idx+1:]); err == nil {
			return f, nil
		}
	}

	return report.FormatCSV, nil
}

// progressLogger reports processing progress every progressEvery frames
func progressLogger(log *zap.Logger) func(pipeline.Progress) {

	const progressEvery = 100

	return func(pr pipeline.Progress) {

		if pr.State != pipeline.StateProcessing || pr.FrameIndex < 0 {
			return
		}

		if (pr.FrameIndex+1)%progressEvery != 0 {
			return
		}

		log.Info("progress",
			zap.Int("frame", pr.FrameIndex+1),
			zap.Int("total", pr.TotalFrames),
			zap.Int("detections", pr.Detections))
	}
}
