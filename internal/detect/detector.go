package detect

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/tallyvid/tallyvid/internal/mempool"
	"github.com/tallyvid/tallyvid/internal/onnx"
	"github.com/tallyvid/tallyvid/internal/utils"
)

const (
	// DefaultIoUThreshold is the NMS overlap threshold.
	DefaultIoUThreshold = 0.5

	// DefaultNumRows is the table row count the outlier filter assumes,
	// question rows plus the total row.
	DefaultNumRows = 9

	// outlierXRatio bounds the left edge of a valid detection relative to
	// the crop width; characters start in the left portion of the column.
	outlierXRatio = 0.8

	// predictionStride is the per-detection element count in the raw model
	// output: x1, y1, x2, y2, confidence, class.
	predictionStride = 6
)

// Inferencer abstracts the detector model so tests can script predictions.
type Inferencer interface {
	Run(t onnx.Tensor) ([]float32, []int64, error)
}

// Detector locates character bounding boxes in a table crop.
type Detector struct {
	model        Inferencer
	iouThreshold float64
	numRows      int
	owned        *onnx.Session
}

// New loads the ONNX character detector from modelPath.
func New(modelPath string, numThreads int, iouThreshold float64, numRows int) (*Detector, error) {
	session, err := onnx.NewSession(modelPath, numThreads)
	if err != nil {
		return nil, fmt.Errorf("init character detector: %w", err)
	}
	d := NewWithModel(session, iouThreshold, numRows)
	d.owned = session
	slog.Debug("character detector initialized", "model_path", modelPath)
	return d, nil
}

// NewWithModel wraps an existing model, typically a test double.
func NewWithModel(model Inferencer, iouThreshold float64, numRows int) *Detector {
	if iouThreshold <= 0 {
		iouThreshold = DefaultIoUThreshold
	}
	if numRows <= 0 {
		numRows = DefaultNumRows
	}
	return &Detector{model: model, iouThreshold: iouThreshold, numRows: numRows}
}

// Detect returns the surviving character detections in crop coordinates.
func (d *Detector) Detect(img image.Image) ([]Detection, error) {
	return d.DetectWith(img, d.iouThreshold, d.numRows)
}

// DetectWith is Detect with per-call NMS and outlier-filter parameters.
// Non-positive values fall back to the configured ones.
func (d *Detector) DetectWith(img image.Image, iouThreshold float64, numRows int) ([]Detection, error) {
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	if iouThreshold <= 0 {
		iouThreshold = d.iouThreshold
	}
	if numRows <= 0 {
		numRows = d.numRows
	}
	lb := Letterbox(img, InputSize)

	data, w, h, err := utils.NormalizeScale(lb.Image)
	if err != nil {
		return nil, fmt.Errorf("detector preprocessing failed: %w", err)
	}
	defer mempool.PutFloat32(data)

	tensor, err := onnx.NewImageTensor(data, 3, h, w)
	if err != nil {
		return nil, fmt.Errorf("detector tensor failed: %w", err)
	}
	out, shape, err := d.model.Run(tensor)
	if err != nil {
		return nil, fmt.Errorf("detector inference failed: %w", err)
	}

	dets, err := parsePredictions(out, shape)
	if err != nil {
		return nil, err
	}
	dets = NonMaxSuppression(dets, iouThreshold)

	b := img.Bounds()
	dets = ScaleToOriginal(dets, lb, float64(b.Dx()), float64(b.Dy()))
	dets = FilterOutliers(dets, b.Dx(), b.Dy(), numRows)
	return dets, nil
}

// Close releases the owned model session, if any.
func (d *Detector) Close() error {
	if d.owned != nil {
		return d.owned.Close()
	}
	return nil
}

// parsePredictions flattens the raw model output into detections. The output
// is N rows of [x1 y1 x2 y2 conf class], with an optional leading batch dim.
func parsePredictions(out []float32, shape []int64) ([]Detection, error) {
	dims := shape
	if len(dims) == 3 && dims[0] == 1 {
		dims = dims[1:]
	}
	if len(dims) != 2 || dims[1] != predictionStride {
		return nil, fmt.Errorf("unexpected detector output shape %v", shape)
	}
	n := int(dims[0])
	if len(out) < n*predictionStride {
		return nil, fmt.Errorf("detector output too short: %d values for %d rows", len(out), n)
	}

	dets := make([]Detection, 0, n)
	for i := range n {
		row := out[i*predictionStride:]
		dets = append(dets, Detection{
			Box: utils.NewBox(
				float64(row[0]), float64(row[1]),
				float64(row[2]), float64(row[3])),
			Confidence: row[4],
			ClassID:    int(row[5]),
		})
	}
	return dets, nil
}

// ScaleToOriginal maps letterboxed detections back to source coordinates:
// undo the padding, undo the scale, clamp to the image.
func ScaleToOriginal(dets []Detection, lb LetterboxResult, w, h float64) []Detection {
	out := make([]Detection, 0, len(dets))
	for _, d := range dets {
		box := utils.NewBox(
			(d.Box.MinX-float64(lb.PadX))/lb.Ratio,
			(d.Box.MinY-float64(lb.PadY))/lb.Ratio,
			(d.Box.MaxX-float64(lb.PadX))/lb.Ratio,
			(d.Box.MaxY-float64(lb.PadY))/lb.Ratio,
		).Clamp(w, h)
		out = append(out, Detection{Box: box, Confidence: d.Confidence, ClassID: d.ClassID})
	}
	return out
}

// FilterOutliers drops detections outside the expected score column: the
// left edge must fall in the left portion of the crop and below the header
// band at the top.
func FilterOutliers(dets []Detection, w, h, numRows int) []Detection {
	xThreshold := float64(w) * outlierXRatio
	yThreshold := float64(h / (numRows + 1))

	kept := make([]Detection, 0, len(dets))
	for _, d := range dets {
		if d.Box.MinX < xThreshold && d.Box.MinY > yThreshold {
			kept = append(kept, d)
		}
	}
	return kept
}
