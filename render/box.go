/*
Package render draws annotation overlays onto video frames, bounding
boxes with class/confidence labels and track identifiers, plus the
camera style zebra stripe exposure overlay.  The Annotate entry point
never mutates the input frame, it returns a new frame with the overlays
burned in.
*/
package render

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	zebraproc "github.com/zebratools/go-zebraproc"
)

// boxLabel records the label drawing details for a single box so all
// labels can be painted as the top most layer
type boxLabel struct {
	rect    image.Rectangle
	clr     color.RGBA
	text    string
	textPos image.Point
}

// Annotate returns a copy of the frame with detection overlays burned
// in.  The input frame is left untouched, callers needing the original
// keep their reference to it
func Annotate(frame *zebraproc.Frame, detections []zebraproc.Detection,
	classNames []string, font Font, lineThickness int) *zebraproc.Frame {

	out := frame.Clone()
	DetectionBoxes(&out.Mat, detections, classNames, font, lineThickness)

	return out
}

// DetectionBoxes renders bounding boxes and labels for the detections
// directly onto img.  Detections carrying a track ID are colored by
// identity so a subject keeps its color across frames, untracked ones
// cycle the palette by position
func DetectionBoxes(img *gocv.Mat, detections []zebraproc.Detection,
	classNames []string, font Font, lineThickness int) {

	boxLabels := make([]boxLabel, 0, len(detections))

	for i, det := range detections {

		useClr := TrackColor(det.TrackID)

		if det.TrackID == 0 {
			useClr = TrackColor(i)
		}

		rect := image.Rect(det.Box.X, det.Box.Y,
			det.Box.Right(), det.Box.Bottom())

		gocv.Rectangle(img, rect, useClr, lineThickness)

		text := labelText(det, classNames)
		textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)

		centerX := det.Box.X + (textSize.X / 2) + font.LeftPad - (lineThickness / 2)

		labelPosition := image.Pt(centerX-textSize.X/2, det.Box.Y-font.BottomPad)

		// box the text gets written on
		bRect := image.Rect(centerX-textSize.X/2-font.LeftPad,
			det.Box.Y-textSize.Y-font.TopPad-font.BottomPad,
			centerX+textSize.X/2+font.RightPad, det.Box.Y)

		boxLabels = append(boxLabels, boxLabel{
			rect:    bRect,
			clr:     useClr,
			text:    text,
			textPos: labelPosition,
		})
	}

	// draw all labels after the boxes so they sit on the top most layer
	for _, bl := range boxLabels {
		gocv.Rectangle(img, bl.rect, bl.clr, -1)

		gocv.PutTextWithParams(img, bl.text, bl.textPos,
			font.Face, font.Scale, font.Color, font.Thickness,
			font.LineType, false)
	}
}

// labelText builds the label for a detection, the class name and score,
// plus the track identity when one has been assigned
func labelText(det zebraproc.Detection, classNames []string) string {

	name := "object"

	if det.Class >= 0 && det.Class < len(classNames) {
		name = classNames[det.Class]
	}

	if det.TrackID > 0 {
		return fmt.Sprintf("%s #%d %.2f", name, det.TrackID, det.Confidence)
	}

	return fmt.Sprintf("%s %.2f", name, det.Confidence)
}
