/*
Package exposure analyzes frame luminance for clipping.  It computes
BT.709 luma per pixel, reports the mean level and the percentage of
pixels crushed below the black point or blown above the white point,
and ranks the worst frames of a run for review.
*/
package exposure

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Stats summarizes the luminance of one frame
type Stats struct {
	// MeanY is the mean BT.709 luma over the frame, range ~0..255
	MeanY float64
	// PctUnder is the percentage of pixels at or below the black point,
	// 0..100
	PctUnder float64
	// PctOver is the percentage of pixels at or above the white point,
	// 0..100
	PctOver float64
}

// FrameStats computes luminance statistics over a packed BGR buffer.
// Luma is BT.709: Y = 0.2126 R + 0.7152 G + 0.0722 B
func FrameStats(bgr []byte, black, white uint8) Stats {

	n := len(bgr) / 3

	if n == 0 {
		return Stats{}
	}

	var sum float64
	var under, over int

	for i := 0; i < n*3; i += 3 {

		y := 0.2126*float64(bgr[i+2]) +
			0.7152*float64(bgr[i+1]) +
			0.0722*float64(bgr[i])

		sum += y

		if y <= float64(black) {
			under++
		}

		if y >= float64(white) {
			over++
		}
	}

	return Stats{
		MeanY:    sum / float64(n),
		PctUnder: 100.0 * float64(under) / float64(n),
		PctOver:  100.0 * float64(over) / float64(n),
	}
}

// MatStats computes luminance statistics for a decoded BGR frame
func MatStats(img *gocv.Mat, black, white uint8) (Stats, error) {

	data, err := img.DataPtrUint8()

	if err != nil {
		return Stats{}, fmt.Errorf("accessing frame pixels: %w", err)
	}

	return FrameStats(data, black, white), nil
}
