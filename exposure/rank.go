package exposure

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// FrameRecord is the luminance statistics of one frame of a run
type FrameRecord struct {
	// Index is the zero based frame position
	Index int
	// Stats are the frame's luminance statistics
	Stats Stats
}

// Metric selects how frames are scored when ranking
type Metric int

const (
	// MetricCombined scores by total clipped percentage, under plus over
	MetricCombined Metric = iota
	// MetricOver scores by over-exposed percentage only
	MetricOver
	// MetricUnder scores by black-crushed percentage only
	MetricUnder
)

// ParseMetric parses a metric name, one of combined, over or under
func ParseMetric(s string) (Metric, error) {

	switch strings.ToLower(s) {
	case "combined", "":
		return MetricCombined, nil
	case "over":
		return MetricOver, nil
	case "under":
		return MetricUnder, nil
	}

	return MetricCombined, fmt.Errorf("unknown metric %q", s)
}

// Score returns a record's value under the given metric
func (r FrameRecord) Score(m Metric) float64 {

	switch m {
	case MetricOver:
		return r.Stats.PctOver
	case MetricUnder:
		return r.Stats.PctUnder
	default:
		return r.Stats.PctUnder + r.Stats.PctOver
	}
}

// Ranked is one entry of a worst frames ranking
type Ranked struct {
	// Index is the frame position
	Index int
	// Score is the frame's value under the chosen metric
	Score float64
}

// Rank orders frames from worst to best under the given metric, dropping
// frames scoring below minClip and cutting the list to top entries.  A
// top of zero or less keeps all qualifying frames.  Ties keep frame
// order
func Rank(records []FrameRecord, metric Metric, minClip float64, top int) []Ranked {

	ranked := make([]Ranked, 0, len(records))

	for _, r := range records {

		score := r.Score(metric)

		if score < minClip {
			continue
		}

		ranked = append(ranked, Ranked{Index: r.Index, Score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	if top > 0 && len(ranked) > top {
		ranked = ranked[:top]
	}

	return ranked
}

// WriteStatsCSV writes per frame luminance statistics to a CSV file with
// columns frame_idx, mean_y, pct_under, pct_over
func WriteStatsCSV(path string, records []FrameRecord) error {

	f, err := os.Create(path)

	if err != nil {
		return fmt.Errorf("creating stats file: %w", err)
	}

	w := csv.NewWriter(f)

	if err := w.Write([]string{"frame_idx", "mean_y", "pct_under", "pct_over"}); err != nil {
		f.Close()
		return fmt.Errorf("writing stats header: %w", err)
	}

	for _, r := range records {
		row := []string{
			strconv.Itoa(r.Index),
			strconv.FormatFloat(r.Stats.MeanY, 'f', 4, 64),
			strconv.FormatFloat(r.Stats.PctUnder, 'f', 4, 64),
			strconv.FormatFloat(r.Stats.PctOver, 'f', 4, 64),
		}

		if err := w.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("writing stats row: %w", err)
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flushing stats file: %w", err)
	}

	return f.Close()
}
