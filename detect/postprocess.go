package detect

import (
	"math"
	"sort"
)

// rawBox is a decoded candidate in input tensor space, center form
type rawBox struct {
	cx    float32
	cy    float32
	w     float32
	h     float32
	score float32
	class int
}

// decodeYOLOv8 extracts candidate boxes from a YOLOv8 output tensor laid
// out as [4+classNum][anchors] row major, keeping the best scoring class
// per anchor when it clears the box threshold
func decodeYOLOv8(data []float32, classNum, anchors int, boxThresh float32) []rawBox {

	var boxes []rawBox

	for i := 0; i < anchors; i++ {

		bestClass := -1
		bestScore := float32(0)

		for c := 0; c < classNum; c++ {
			score := data[(4+c)*anchors+i]

			if score > bestScore {
				bestScore = score
				bestClass = c
			}
		}

		if bestClass < 0 || bestScore < boxThresh {
			continue
		}

		boxes = append(boxes, rawBox{
			cx:    data[0*anchors+i],
			cy:    data[1*anchors+i],
			w:     data[2*anchors+i],
			h:     data[3*anchors+i],
			score: bestScore,
			class: bestClass,
		})
	}

	return boxes
}

// boxOverlap works out the Intersection over Union of two center form
// boxes
func boxOverlap(a, b rawBox) float32 {

	ax1, ay1 := float64(a.cx-a.w/2), float64(a.cy-a.h/2)
	ax2, ay2 := float64(a.cx+a.w/2), float64(a.cy+a.h/2)
	bx1, by1 := float64(b.cx-b.w/2), float64(b.cy-b.h/2)
	bx2, by2 := float64(b.cx+b.w/2), float64(b.cy+b.h/2)

	w := math.Max(0, math.Min(ax2, bx2)-math.Max(ax1, bx1))
	h := math.Max(0, math.Min(ay2, by2)-math.Max(ay1, by1))

	inter := w * h
	union := float64(a.w)*float64(a.h) + float64(b.w)*float64(b.h) - inter

	if union <= 0 {
		return 0
	}

	return float32(inter / union)
}

// nonMaxSuppress drops candidates of the same class that overlap a
// higher scoring candidate beyond the threshold.  Output is ordered by
// descending score, ties kept in decode order for determinism
func nonMaxSuppress(boxes []rawBox, thresh float32) []rawBox {

	order := make([]int, len(boxes))

	for i := range order {
		order[i] = i
	}

	sort.SliceStable(order, func(i, j int) bool {
		return boxes[order[i]].score > boxes[order[j]].score
	})

	suppressed := make([]bool, len(boxes))

	var keep []rawBox

	for i, oi := range order {

		if suppressed[oi] {
			continue
		}

		keep = append(keep, boxes[oi])

		for _, oj := range order[i+1:] {

			if suppressed[oj] || boxes[oj].class != boxes[oi].class {
				continue
			}

			if boxOverlap(boxes[oi], boxes[oj]) > thresh {
				suppressed[oj] = true
			}
		}
	}

	return keep
}
