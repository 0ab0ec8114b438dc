package exposure

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

// solid builds a packed BGR buffer of n pixels with the given components
func solid(n int, b, g, r byte) []byte {
	buf := make([]byte, n*3)
	for i := 0; i < n*3; i += 3 {
		buf[i] = b
		buf[i+1] = g
		buf[i+2] = r
	}
	return buf
}

func TestFrameStatsBlackFrame(t *testing.T) {

	s := FrameStats(solid(100, 0, 0, 0), 16, 235)

	if s.MeanY != 0 {
		t.Errorf("MeanY = %f, want 0", s.MeanY)
	}

	if s.PctUnder != 100 {
		t.Errorf("PctUnder = %f, want 100", s.PctUnder)
	}

	if s.PctOver != 0 {
		t.Errorf("PctOver = %f, want 0", s.PctOver)
	}
}

func TestFrameStatsWhiteFrame(t *testing.T) {

	s := FrameStats(solid(100, 255, 255, 255), 16, 235)

	if math.Abs(s.MeanY-255) > 1e-6 {
		t.Errorf("MeanY = %f, want 255", s.MeanY)
	}

	if s.PctOver != 100 || s.PctUnder != 0 {
		t.Errorf("PctOver/PctUnder = %f/%f, want 100/0", s.PctOver, s.PctUnder)
	}
}

func TestFrameStatsLumaWeights(t *testing.T) {

	// pure green carries the bulk of BT.709 luma
	s := FrameStats(solid(10, 0, 255, 0), 16, 235)

	want := 0.7152 * 255

	if math.Abs(s.MeanY-want) > 1e-6 {
		t.Errorf("green MeanY = %f, want %f", s.MeanY, want)
	}

	// pure blue carries very little
	s = FrameStats(solid(10, 255, 0, 0), 16, 235)

	want = 0.0722 * 255

	if math.Abs(s.MeanY-want) > 1e-6 {
		t.Errorf("blue MeanY = %f, want %f", s.MeanY, want)
	}

	if s.PctUnder != 0 {
		t.Errorf("blue PctUnder = %f, want 0 (luma above black point)", s.PctUnder)
	}
}

func TestFrameStatsMixed(t *testing.T) {

	// half the pixels crushed, half mid gray
	buf := append(solid(50, 0, 0, 0), solid(50, 128, 128, 128)...)

	s := FrameStats(buf, 16, 235)

	if s.PctUnder != 50 {
		t.Errorf("PctUnder = %f, want 50", s.PctUnder)
	}

	if s.PctOver != 0 {
		t.Errorf("PctOver = %f, want 0", s.PctOver)
	}
}

func TestFrameStatsEmpty(t *testing.T) {

	s := FrameStats(nil, 16, 235)

	if s.MeanY != 0 || s.PctUnder != 0 || s.PctOver != 0 {
		t.Errorf("empty buffer stats = %+v, want zeros", s)
	}
}

func TestRank(t *testing.T) {

	records := []FrameRecord{
		{Index: 0, Stats: Stats{PctUnder: 1, PctOver: 2}},
		{Index: 1, Stats: Stats{PctUnder: 10, PctOver: 30}},
		{Index: 2, Stats: Stats{PctUnder: 5, PctOver: 5}},
		{Index: 3, Stats: Stats{PctUnder: 0, PctOver: 0}},
	}

	ranked := Rank(records, MetricCombined, 0, 0)

	if len(ranked) != 4 {
		t.Fatalf("ranked %d frames, want 4", len(ranked))
	}

	wantOrder := []int{1, 2, 0, 3}

	for i, want := range wantOrder {
		if ranked[i].Index != want {
			t.Errorf("position %d: frame %d, want %d", i, ranked[i].Index, want)
		}
	}
}

func TestRankFilterAndTop(t *testing.T) {

	records := []FrameRecord{
		{Index: 0, Stats: Stats{PctOver: 50}},
		{Index: 1, Stats: Stats{PctOver: 1}},
		{Index: 2, Stats: Stats{PctOver: 20}},
		{Index: 3, Stats: Stats{PctOver: 30}},
	}

	ranked := Rank(records, MetricOver, 10, 2)

	if len(ranked) != 2 {
		t.Fatalf("ranked %d frames, want 2", len(ranked))
	}

	if ranked[0].Index != 0 || ranked[1].Index != 3 {
		t.Errorf("top frames = %d,%d, want 0,3", ranked[0].Index, ranked[1].Index)
	}
}

func TestRankMetricUnder(t *testing.T) {

	records := []FrameRecord{
		{Index: 0, Stats: Stats{PctUnder: 5, PctOver: 90}},
		{Index: 1, Stats: Stats{PctUnder: 50, PctOver: 0}},
	}

	ranked := Rank(records, MetricUnder, 0, 0)

	if ranked[0].Index != 1 {
		t.Errorf("worst frame by under = %d, want 1", ranked[0].Index)
	}
}

func TestParseMetric(t *testing.T) {

	for in, want := range map[string]Metric{
		"combined": MetricCombined,
		"Over":     MetricOver,
		"under":    MetricUnder,
		"":         MetricCombined,
	} {
		got, err := ParseMetric(in)

		if err != nil {
			t.Errorf("ParseMetric(%q) error: %v", in, err)
			continue
		}

		if got != want {
			t.Errorf("ParseMetric(%q) = %v, want %v", in, got, want)
		}
	}

	if _, err := ParseMetric("worst"); err == nil {
		t.Error("ParseMetric(worst) did not fail")
	}
}

func TestWriteStatsCSV(t *testing.T) {

	path := filepath.Join(t.TempDir(), "stats.csv")

	records := []FrameRecord{
		{Index: 0, Stats: Stats{MeanY: 120.5, PctUnder: 1.25, PctOver: 0}},
		{Index: 1, Stats: Stats{MeanY: 200, PctUnder: 0, PctOver: 42.5}},
	}

	if err := WriteStatsCSV(path, records); err != nil {
		t.Fatalf("WriteStatsCSV failed: %v", err)
	}

	data, err := os.ReadFile(path)

	if err != nil {
		t.Fatalf("reading stats file: %v", err)
	}

	got := string(data)
	want := "frame_idx,mean_y,pct_under,pct_over\n" +
		"0,120.5000,1.2500,0.0000\n" +
		"1,200.0000,0.0000,42.5000\n"

	if got != want {
		t.Errorf("stats file content:\n%s\nwant:\n%s", got, want)
	}
}
