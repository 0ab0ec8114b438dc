package render

import (
	"fmt"
	"strings"

	"gocv.io/x/gocv"
)

// ZebraMode selects which clipped regions receive stripes
type ZebraMode int

const (
	// ZebraBoth stripes both crushed blacks and blown highlights
	ZebraBoth ZebraMode = iota
	// ZebraOver stripes only pixels at or above the white point
	ZebraOver
	// ZebraUnder stripes only pixels at or below the black point
	ZebraUnder
)

const (
	// DefaultBlackPoint is the luma at or below which a pixel counts as
	// crushed, broadcast legal range black
	DefaultBlackPoint = 16
	// DefaultWhitePoint is the luma at or above which a pixel counts as
	// blown, broadcast legal range white
	DefaultWhitePoint = 235
	// DefaultPhaseStep is how far the stripes advance per frame
	DefaultPhaseStep = 2

	// stripe band width in pixels
	stripeWidth = 4
)

// ParseZebraMode parses a mode name, one of Over, Under or Both
func ParseZebraMode(s string) (ZebraMode, error) {

	switch strings.ToLower(s) {
	case "over":
		return ZebraOver, nil
	case "under":
		return ZebraUnder, nil
	case "both", "":
		return ZebraBoth, nil
	}

	return ZebraBoth, fmt.Errorf("unknown zebra mode %q", s)
}

// ZebraStripes burns an animated diagonal stripe pattern over the
// clipped regions of a BGR frame, in place.  Advance phase by
// DefaultPhaseStep each frame to animate the stripes
func ZebraStripes(img *gocv.Mat, mode ZebraMode, black, white uint8, phase int) error {

	data, err := img.DataPtrUint8()

	if err != nil {
		return fmt.Errorf("accessing frame pixels: %w", err)
	}

	overlayStripes(data, img.Cols(), img.Rows(), mode, black, white, phase)

	return nil
}

// overlayStripes is the pixel loop behind ZebraStripes, operating on a
// packed BGR buffer.  Blown highlights get black stripes, crushed blacks
// get white stripes, so the stripes stay visible against the clipping
// they mark
func overlayStripes(bgr []byte, width, height int, mode ZebraMode,
	black, white uint8, phase int) {

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {

			// only pixels on a stripe band are touched
			if ((x+y+phase)/stripeWidth)%2 != 0 {
				continue
			}

			i := (y*width + x) * 3
			luma := lumaB709(bgr[i], bgr[i+1], bgr[i+2])

			switch {
			case luma >= float32(white) && mode != ZebraUnder:
				bgr[i] = 0
				bgr[i+1] = 0
				bgr[i+2] = 0

			case luma <= float32(black) && mode != ZebraOver:
				bgr[i] = 255
				bgr[i+1] = 255
				bgr[i+2] = 255
			}
		}
	}
}

// lumaB709 computes BT.709 luma from 8 bit BGR components, range ~0..255
func lumaB709(b, g, r uint8) float32 {
	return 0.2126*float32(r) + 0.7152*float32(g) + 0.0722*float32(b)
}
