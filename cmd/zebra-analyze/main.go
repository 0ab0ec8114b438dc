/*
zebra-analyze scans a video for exposure clipping.  It prints per frame
luminance statistics, ranks the worst clipped frames, and can write the
statistics to CSV and a zebra striped preview clip for visual review.

Usage:

	zebra-analyze -video safari.mp4 -top 25 -csv stats.csv
	zebra-analyze -video safari.mp4 -clip preview.mp4 -mode over
*/
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/zebratools/go-zebraproc/exposure"
	"github.com/zebratools/go-zebraproc/render"
	"github.com/zebratools/go-zebraproc/video"
)

func main() {

	videoPath := flag.String("video", "", "Path to input video")
	black := flag.Int("black", render.DefaultBlackPoint, "Black point, pixels at or below count as crushed")
	white := flag.Int("white", render.DefaultWhitePoint, "White point, pixels at or above count as blown")
	maxFrames := flag.Int("max-frames", 0, "Cap analysis at N frames, 0 analyzes all")
	top := flag.Int("top", 25, "How many worst frames to print, 0 prints all")
	metricName := flag.String("metric", "combined", "Ranking metric, combined, over or under")
	minClip := flag.Float64("min-clip", 0.0, "Only rank frames clipping at least this percent")
	csvPath := flag.String("csv", "", "Write per frame statistics to this CSV file")
	clipPath := flag.String("clip", "", "Write a zebra striped preview clip to this file")
	clipMode := flag.String("mode", "both", "Preview stripe mode, over, under or both")
	flag.Parse()

	if *videoPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*videoPath, uint8(*black), uint8(*white), *maxFrames,
		*top, *metricName, *minClip, *csvPath, *clipPath, *clipMode); err != nil {
		fmt.Fprintf(os.Stderr, "zebra-analyze: %v\n", err)
		os.Exit(1)
	}
}

func run(videoPath string, black, white uint8, maxFrames, top int,
	metricName string, minClip float64, csvPath, clipPath,
	clipMode string) error {

	metric, err := exposure.ParseMetric(metricName)

	if err != nil {
		return err
	}

	mode, err := render.ParseZebraMode(clipMode)

	if err != nil {
		return err
	}

	reader, err := video.Open(videoPath)

	if err != nil {
		return err
	}

	defer reader.Close()

	meta := reader.Meta()

	fmt.Printf("# Video: %s\n", videoPath)
	fmt.Printf("# Size: %dx%d | FPS: %.3f | Frames: %d\n",
		meta.Width, meta.Height, meta.FPS, meta.FrameCount)
	fmt.Printf("# Thresholds: black=%d, white=%d\n", black, white)
	fmt.Println("frame_idx, mean_Y, pct_under, pct_over")

	var writer *video.Writer

	if clipPath != "" {

		writer, err = video.NewWriter(clipPath, video.DefaultCodec, meta)

		if err != nil {
			return err
		}

		defer writer.Close()
	}

	var records []exposure.FrameRecord
	phase := 0

	for {

		frame, err := reader.Next()

		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return err
		}

		stats, err := exposure.MatStats(&frame.Mat, black, white)

		if err != nil {
			frame.Close()
			return fmt.Errorf("frame %d: %w", frame.Index, err)
		}

		fmt.Printf("%d, %.2f, %.2f, %.2f\n",
			frame.Index, stats.MeanY, stats.PctUnder, stats.PctOver)

		records = append(records, exposure.FrameRecord{
			Index: frame.Index,
			Stats: stats,
		})

		if writer != nil {

			// stats come first, the stripes overwrite clipped pixels
			if err := render.ZebraStripes(&frame.Mat, mode, black, white, phase); err != nil {
				frame.Close()
				return fmt.Errorf("frame %d: %w", frame.Index, err)
			}

			phase = (phase + render.DefaultPhaseStep) % 10000

			if err := writer.Write(frame); err != nil {
				frame.Close()
				return err
			}
		}

		frame.Close()

		if maxFrames > 0 && len(records) >= maxFrames {
			break
		}
	}

	fmt.Printf("\n# Processed %d frames total.\n", len(records))

	printRanking(records, metric, minClip, top)

	if csvPath != "" {

		if err := exposure.WriteStatsCSV(csvPath, records); err != nil {
			return err
		}

		fmt.Printf("\n# Wrote CSV: %s\n", csvPath)
	}

	if clipPath != "" {
		fmt.Printf("\n# Wrote preview clip: %s\n", clipPath)
	}

	return nil
}

// printRanking prints the worst clipped frames under the chosen metric
func printRanking(records []exposure.FrameRecord, metric exposure.Metric,
	minClip float64, top int) {

	if len(records) == 0 {
		return
	}

	ranked := exposure.Rank(records, metric, minClip, top)

	label := map[exposure.Metric]string{
		exposure.MetricCombined: "total clipped (under+over)",
		exposure.MetricOver:     "overexposed",
		exposure.MetricUnder:    "black-crushed",
	}[metric]

	fmt.Printf("\n# Worst %d frames by %s (>= %.1f%%):\n",
		len(ranked), label, minClip)

	for _, r := range ranked {
		fmt.Printf("  frame %d: %.2f%%\n", r.Index, r.Score)
	}
}
