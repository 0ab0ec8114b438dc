/*
Package detect runs object detection model inference on video frames
using the OpenCV DNN module.  The YOLO detector owns frame resizing and
normalization, callers hand it raw decoded frames.  The model is loaded
once per processing run and held in memory, it is expensive to
reinitialize per frame.
*/
package detect

import (
	"errors"
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"

	zebraproc "github.com/zebratools/go-zebraproc"
)

// ZebraClassID is the zebra class index in the COCO dataset
const ZebraClassID = 22

// Params defines the model configuration used for inference and post
// processing
type Params struct {
	// BoxThreshold is the minimum score for a candidate box to be
	// considered at all
	BoxThreshold float32
	// NMSThreshold is the maximum allowed Intersection over Union
	// between two boxes of the same class for both to be kept
	NMSThreshold float32
	// ClassNum is the number of classes the model was trained with
	ClassNum int
	// InputSize is the square model input dimension in pixels
	InputSize int
	// Classes restricts results to the given class indices, nil keeps
	// all classes
	Classes []int
}

// ZebraParams returns parameters for a YOLOv8 model trained on the COCO
// dataset with results restricted to the zebra class
func ZebraParams() Params {
	p := COCOParams()
	p.Classes = []int{ZebraClassID}
	return p
}

// COCOParams returns parameters for a YOLOv8 model trained on the COCO
// dataset keeping all 80 classes
func COCOParams() Params {
	return Params{
		BoxThreshold: 0.25,
		NMSThreshold: 0.45,
		ClassNum:     80,
		InputSize:    640,
	}
}

// YOLO performs zebra detection using a YOLOv8 ONNX model loaded into
// the OpenCV DNN runtime.  It implements zebraproc.Detector
type YOLO struct {
	net       gocv.Net
	params    Params
	letterbox *Letterbox
	closed    bool
}

// NewYOLO loads the ONNX model at modelPath and prepares it for CPU
// inference
func NewYOLO(modelPath string, p Params) (*YOLO, error) {

	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model file %s: %w", modelPath, err)
	}

	net := gocv.ReadNetFromONNX(modelPath)

	if net.Empty() {
		return nil, fmt.Errorf("failed loading model %s", modelPath)
	}

	if err := net.SetPreferableBackend(gocv.NetBackendDefault); err != nil {
		net.Close()
		return nil, fmt.Errorf("setting network backend: %w", err)
	}

	if err := net.SetPreferableTarget(gocv.NetTargetCPU); err != nil {
		net.Close()
		return nil, fmt.Errorf("setting network target: %w", err)
	}

	return &YOLO{
		net:    net,
		params: p,
	}, nil
}

// Detect runs inference on one frame and returns the detections found.
// Boxes are clamped to frame bounds and scores clamped to [0,1]
func (y *YOLO) Detect(frame *zebraproc.Frame) ([]zebraproc.Detection, error) {

	if frame == nil || frame.Mat.Empty() {
		return nil, &zebraproc.InferenceError{
			FrameIndex: frameIndex(frame),
			Err:        errors.New("empty frame"),
		}
	}

	srcWidth := frame.Mat.Cols()
	srcHeight := frame.Mat.Rows()

	if y.letterbox == nil || !y.letterbox.Fits(srcWidth, srcHeight) {
		if y.letterbox != nil {
			y.letterbox.Close()
		}
		y.letterbox = NewLetterbox(srcWidth, srcHeight,
			y.params.InputSize, y.params.InputSize)
	}

	input := gocv.NewMat()
	defer input.Close()

	y.letterbox.Apply(frame.Mat, &input)

	blob := gocv.BlobFromImage(input, 1.0/255.0,
		image.Pt(y.params.InputSize, y.params.InputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	y.net.SetInput(blob, "")

	out := y.net.Forward("")
	defer out.Close()

	data, err := out.DataPtrFloat32()

	if err != nil {
		return nil, &zebraproc.InferenceError{
			FrameIndex: frame.Index,
			Err:        fmt.Errorf("reading output tensor: %w", err),
		}
	}

	anchors := len(data) / (4 + y.params.ClassNum)

	if anchors == 0 || len(data) != anchors*(4+y.params.ClassNum) {
		return nil, &zebraproc.InferenceError{
			FrameIndex: frame.Index,
			Err:        fmt.Errorf("unexpected output tensor size %d", len(data)),
		}
	}

	boxes := decodeYOLOv8(data, y.params.ClassNum, anchors, y.params.BoxThreshold)
	boxes = nonMaxSuppress(boxes, y.params.NMSThreshold)

	var detections []zebraproc.Detection

	for _, b := range boxes {

		if !y.wantClass(b.class) {
			continue
		}

		box := y.letterbox.Translate(b.cx, b.cy, b.w, b.h).
			Clamp(srcWidth, srcHeight)

		if box.Width <= 0 || box.Height <= 0 {
			continue
		}

		score := b.score

		if score > 1 {
			score = 1
		}

		detections = append(detections, zebraproc.Detection{
			Box:        box,
			Confidence: score,
			Class:      b.class,
		})
	}

	return detections, nil
}

// wantClass reports whether results of the given class are kept
func (y *YOLO) wantClass(class int) bool {

	if len(y.params.Classes) == 0 {
		return true
	}

	for _, c := range y.params.Classes {
		if c == class {
			return true
		}
	}

	return false
}

// Close releases the model and scratch buffers
func (y *YOLO) Close() error {

	if y.closed {
		return nil
	}

	y.closed = true

	if y.letterbox != nil {
		y.letterbox.Close()
	}

	return y.net.Close()
}

func frameIndex(frame *zebraproc.Frame) int {
	if frame == nil {
		return -1
	}
	return frame.Index
}
