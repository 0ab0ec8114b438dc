package detect

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"

	zebraproc "github.com/zebratools/go-zebraproc"
)

// Letterbox scales a source frame to the model input size while keeping
// its aspect ratio, padding the remainder with neutral gray.  It also
// maps detection boxes from input tensor space back to source frame
// coordinates
type Letterbox struct {
	// source frame dimensions
	srcWidth  int
	srcHeight int
	// model input dimensions
	dstWidth  int
	dstHeight int
	// scale factor applied to the source image
	scale float32
	// padding added after scaling
	xPad int
	yPad int
	// scaled dimensions before padding
	resizeWidth  int
	resizeHeight int
	// scratch Mat reused between frames, allocated on first use
	scratch    gocv.Mat
	hasScratch bool
}

// NewLetterbox returns a letterbox for scaling frames of the given source
// size to the given model input size
func NewLetterbox(srcWidth, srcHeight, dstWidth, dstHeight int) *Letterbox {

	l := &Letterbox{
		srcWidth:  srcWidth,
		srcHeight: srcHeight,
		dstWidth:  dstWidth,
		dstHeight: dstHeight,
	}

	wScale := float32(dstWidth) / float32(srcWidth)
	hScale := float32(dstHeight) / float32(srcHeight)

	l.scale = wScale

	if hScale < wScale {
		l.scale = hScale
	}

	l.resizeWidth = int(float32(srcWidth) * l.scale)
	l.resizeHeight = int(float32(srcHeight) * l.scale)
	l.xPad = (dstWidth - l.resizeWidth) / 2
	l.yPad = (dstHeight - l.resizeHeight) / 2

	return l
}

// Apply scales src into dst at the model input size
func (l *Letterbox) Apply(src gocv.Mat, dst *gocv.Mat) {

	if !l.hasScratch {
		l.scratch = gocv.NewMat()
		l.hasScratch = true
	}

	gocv.Resize(src, &l.scratch,
		image.Pt(l.resizeWidth, l.resizeHeight), 0, 0,
		gocv.InterpolationLinear)

	gocv.CopyMakeBorder(l.scratch, dst,
		l.yPad, l.dstHeight-l.resizeHeight-l.yPad,
		l.xPad, l.dstWidth-l.resizeWidth-l.xPad,
		gocv.BorderConstant,
		color.RGBA{R: 114, G: 114, B: 114, A: 0})
}

// Translate maps a center form box in input tensor space back to a
// top-left box in source frame pixels
func (l *Letterbox) Translate(cx, cy, w, h float32) zebraproc.Box {

	x := (cx - w/2 - float32(l.xPad)) / l.scale
	y := (cy - h/2 - float32(l.yPad)) / l.scale

	return zebraproc.Box{
		X:      int(x),
		Y:      int(y),
		Width:  int(w / l.scale),
		Height: int(h / l.scale),
	}
}

// Fits reports whether the letterbox was built for frames of the given
// source size
func (l *Letterbox) Fits(srcWidth, srcHeight int) bool {
	return l.srcWidth == srcWidth && l.srcHeight == srcHeight
}

// Close frees the scratch buffer
func (l *Letterbox) Close() error {

	if !l.hasScratch {
		return nil
	}

	l.hasScratch = false

	return l.scratch.Close()
}
