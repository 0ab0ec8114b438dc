package tracker

import (
	"testing"
)

// zebraBox builds a detection roughly the shape of a standing zebra
func zebraBox(x, y float32) Object {
	return NewObject(NewRect(x, y, 120, 80), 0, 0.9)
}

// TestSingleTrackSpan runs a 10 frame sequence with one subject present
// at a roughly constant position on frames 2 through 8 and expects
// exactly one track spanning those frames
func TestSingleTrackSpan(t *testing.T) {

	trk := NewIOUTracker(0, 0)

	for frame := 1; frame <= 10; frame++ {

		var objects []Object

		if frame >= 2 && frame <= 8 {
			// small jitter to mimic real detections
			jitter := float32(frame%3 - 1)
			objects = append(objects, zebraBox(200+jitter, 150))
		}

		matched := trk.Update(objects)

		if frame >= 2 && frame <= 8 {
			if len(matched) != 1 {
				t.Fatalf("frame %d: matched %d tracks, want 1", frame, len(matched))
			}
			if matched[0].ID != 1 {
				t.Fatalf("frame %d: track ID %d, want 1", frame, matched[0].ID)
			}
		} else if len(matched) != 0 {
			t.Fatalf("frame %d: matched %d tracks, want 0", frame, len(matched))
		}
	}

	open := trk.OpenTracks()

	if len(open) != 1 {
		t.Fatalf("open tracks = %d, want 1", len(open))
	}

	if open[0].StartFrame != 2 || open[0].LastFrame != 8 {
		t.Errorf("track spans frames %d-%d, want 2-8",
			open[0].StartFrame, open[0].LastFrame)
	}
}

// TestUniqueIDsPerFrame checks two simultaneously visible subjects never
// share an identifier and keep their identifiers across frames
func TestUniqueIDsPerFrame(t *testing.T) {

	trk := NewIOUTracker(0, 0)

	for frame := 1; frame <= 6; frame++ {

		objects := []Object{
			zebraBox(100, 100),
			zebraBox(500, 300),
		}

		matched := trk.Update(objects)

		if len(matched) != 2 {
			t.Fatalf("frame %d: matched %d tracks, want 2", frame, len(matched))
		}

		if matched[0].ID == matched[1].ID {
			t.Fatalf("frame %d: duplicate track ID %d", frame, matched[0].ID)
		}

		if matched[0].ID != 1 || matched[1].ID != 2 {
			t.Fatalf("frame %d: IDs changed to %d,%d, want 1,2",
				frame, matched[0].ID, matched[1].ID)
		}
	}
}

// TestTieBreakLowestID checks that when two tracks overlap a detection
// equally well the oldest (lowest ID) track wins the match
func TestTieBreakLowestID(t *testing.T) {

	trk := NewIOUTracker(0, 0)

	// two identical detections open tracks 1 and 2 at the same position
	trk.Update([]Object{
		zebraBox(100, 100),
		zebraBox(100, 100),
	})

	// one detection at that position matches both tracks equally
	matched := trk.Update([]Object{
		zebraBox(100, 100),
	})

	if len(matched) != 1 {
		t.Fatalf("matched %d tracks, want 1", len(matched))
	}

	if matched[0].ID != 1 {
		t.Errorf("matched track ID %d, want 1 (lowest)", matched[0].ID)
	}
}

// TestRetirement checks a track retires after the configured number of
// consecutive unmatched frames and a reappearing subject gets a new ID
func TestRetirement(t *testing.T) {

	trk := NewIOUTracker(0, 2)

	trk.Update([]Object{zebraBox(100, 100)})

	// two empty frames retire the track
	trk.Update(nil)
	trk.Update(nil)

	if open := trk.OpenTracks(); len(open) != 0 {
		t.Fatalf("open tracks = %d, want 0 after retirement", len(open))
	}

	// the subject reappearing opens a fresh identity
	matched := trk.Update([]Object{zebraBox(100, 100)})

	if len(matched) != 1 {
		t.Fatalf("matched %d tracks, want 1", len(matched))
	}

	if matched[0].ID != 2 {
		t.Errorf("reappearing subject got ID %d, want 2", matched[0].ID)
	}
}

// TestMovingSubject checks a subject moving at constant velocity keeps
// its identity, the motion model carrying the prediction forward
func TestMovingSubject(t *testing.T) {

	trk := NewIOUTracker(0, 0)

	for frame := 0; frame < 10; frame++ {

		matched := trk.Update([]Object{
			zebraBox(float32(100+frame*8), 100),
		})

		if len(matched) != 1 {
			t.Fatalf("frame %d: matched %d tracks, want 1", frame, len(matched))
		}

		if matched[0].ID != 1 {
			t.Fatalf("frame %d: track ID %d, want 1", frame, matched[0].ID)
		}
	}
}

// TestDeterministicSequence runs the same detection sequence twice and
// expects identical assignments
func TestDeterministicSequence(t *testing.T) {

	sequence := [][]Object{
		{zebraBox(100, 100), zebraBox(400, 200)},
		{zebraBox(110, 100), zebraBox(390, 205)},
		{zebraBox(120, 102)},
		{zebraBox(130, 104), zebraBox(380, 210)},
	}

	run := func() []int {
		trk := NewIOUTracker(0, 0)
		var ids []int

		for _, objects := range sequence {
			for _, m := range trk.Update(objects) {
				ids = append(ids, m.ID, m.Detection)
			}
		}

		return ids
	}

	a := run()
	b := run()

	if len(a) != len(b) {
		t.Fatalf("runs differ in length: %d vs %d", len(a), len(b))
	}

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("runs differ at %d: %d vs %d", i, a[i], b[i])
		}
	}
}

// TestReset checks identifier assignment restarts after a reset
func TestReset(t *testing.T) {

	trk := NewIOUTracker(0, 0)

	trk.Update([]Object{zebraBox(100, 100)})
	trk.Reset()

	matched := trk.Update([]Object{zebraBox(100, 100)})

	if len(matched) != 1 {
		t.Fatalf("after reset got %d tracks, want 1", len(matched))
	}

	if matched[0].ID != 1 {
		t.Errorf("after reset first ID = %d, want 1", matched[0].ID)
	}
}
