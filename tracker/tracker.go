/*
Package tracker assigns stable identities to detections across frames
using positional continuity.  Matching is greedy on Intersection over
Union against a constant velocity Kalman prediction of each open track,
preferring the highest overlap and, on equal overlap, the lowest (oldest)
track identifier.  A track retires after a configurable number of
consecutive frames without a match.  The tracker is deterministic given
the same detection sequence.
*/
package tracker

import (
	"sort"
)

const (
	// DefaultMinIoU is the minimum overlap for a detection to be
	// considered a continuation of an open track
	DefaultMinIoU = 0.3
	// DefaultMaxLost is the number of consecutive unmatched frames
	// before an open track is retired
	DefaultMaxLost = 30
)

// IOUTracker matches per frame detections to open tracks
type IOUTracker struct {
	// minimum IoU for an association
	minIoU float32
	// consecutive unmatched frames before retirement
	maxLost int
	// frame counter, increments on every Update call
	frame int
	// counter for assigning unique track IDs
	nextID int
	// currently open tracks in ascending ID order
	open []*Track
	// shared motion filter
	kf *KalmanFilter
}

// NewIOUTracker initializes and returns a new IOUTracker.  Passing zero
// for either parameter selects its default
func NewIOUTracker(minIoU float32, maxLost int) *IOUTracker {

	if minIoU <= 0 {
		minIoU = DefaultMinIoU
	}

	if maxLost <= 0 {
		maxLost = DefaultMaxLost
	}

	return &IOUTracker{
		minIoU:  minIoU,
		maxLost: maxLost,
		kf:      NewKalmanFilter(1.0/20, 1.0/160),
	}
}

// Reset clears all track state and restarts identifier assignment
func (t *IOUTracker) Reset() {
	t.frame = 0
	t.nextID = 0
	t.open = nil
}

// candidate is one possible track/detection association
type candidate struct {
	iou    float32
	track  int
	object int
}

// Update advances the tracker by one frame and returns the tracks that
// matched a detection this frame, in ascending ID order.  Each returned
// track's Detection field indexes into objects
func (t *IOUTracker) Update(objects []Object) []*Track {

	t.frame++

	// predict each open track's position for this frame
	for _, trk := range t.open {
		t.kf.Predict(trk.state)
		trk.Predicted = RectFromXyah(trk.state.Xyah())
		trk.Detection = -1
	}

	// collect associations above the overlap threshold
	var cands []candidate

	for ti, trk := range t.open {
		for oi, obj := range objects {
			if iou := trk.Predicted.IoU(obj.Rect); iou >= t.minIoU {
				cands = append(cands, candidate{iou: iou, track: ti, object: oi})
			}
		}
	}

	// best overlap first, on ties the lowest track ID wins, then the
	// earliest detection
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].iou != cands[j].iou {
			return cands[i].iou > cands[j].iou
		}
		if t.open[cands[i].track].ID != t.open[cands[j].track].ID {
			return t.open[cands[i].track].ID < t.open[cands[j].track].ID
		}
		return cands[i].object < cands[j].object
	})

	usedTrack := make([]bool, len(t.open))
	usedObject := make([]bool, len(objects))

	var matched []*Track

	for _, c := range cands {

		if usedTrack[c.track] || usedObject[c.object] {
			continue
		}

		usedTrack[c.track] = true
		usedObject[c.object] = true

		trk := t.open[c.track]
		obj := objects[c.object]

		if err := t.kf.Update(trk.state, obj.Rect.Xyah()); err != nil {
			// degenerate covariance, reseed the filter on the raw
			// measurement and keep the track alive
			trk.state = t.kf.Initiate(obj.Rect.Xyah())
		}

		trk.Rect = obj.Rect
		trk.Confidence = obj.Confidence
		trk.Class = obj.Class
		trk.LastFrame = t.frame
		trk.Detection = c.object
		trk.lost = 0

		matched = append(matched, trk)
	}

	// open a new track for every unmatched detection, in detection order
	// so identifier assignment stays monotonic and deterministic
	for oi, obj := range objects {

		if usedObject[oi] {
			continue
		}

		t.nextID++

		trk := &Track{
			ID:         t.nextID,
			Class:      obj.Class,
			Confidence: obj.Confidence,
			Rect:       obj.Rect,
			Predicted:  obj.Rect,
			StartFrame: t.frame,
			LastFrame:  t.frame,
			Detection:  oi,
			state:      t.kf.Initiate(obj.Rect.Xyah()),
		}

		t.open = append(t.open, trk)
		matched = append(matched, trk)
	}

	// age unmatched tracks and retire those lost for too long
	keep := t.open[:0]

	for _, trk := range t.open {

		if !trk.Matched() {
			trk.lost++

			if trk.lost >= t.maxLost {
				continue
			}
		}

		keep = append(keep, trk)
	}

	t.open = keep

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].ID < matched[j].ID
	})

	return matched
}

// Assigned returns the number of track identifiers handed out so far
func (t *IOUTracker) Assigned() int {
	return t.nextID
}

// OpenTracks returns the tracks still eligible for matching, in
// ascending ID order
func (t *IOUTracker) OpenTracks() []*Track {
	out := make([]*Track, len(t.open))
	copy(out, t.open)
	return out
}
