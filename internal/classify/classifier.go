// Package classify assigns a symbol to each detected character crop using
// the digit classifier model. Crops are resized to the model input and
// normalized with the statistics of the classifier's training data.
package classify

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/tallyvid/tallyvid/internal/detect"
	"github.com/tallyvid/tallyvid/internal/mempool"
	"github.com/tallyvid/tallyvid/internal/onnx"
	"github.com/tallyvid/tallyvid/internal/utils"
)

const inputSize = 224

// Normalization statistics measured on the classifier's training set.
var (
	classifierMean = [3]float32{0.7138324946621879, 0.6752742936984362, 0.6944984441793525}
	classifierStd  = [3]float32{0.06064024192479617, 0.08277346212477447, 0.07542827455486965}
)

// indexToSymbol maps model output indices to characters. The decimal point
// sits at index 2 because the model was trained with class 10 there.
var indexToSymbol = map[int]rune{
	0:  '0',
	1:  '1',
	2:  '.',
	3:  '2',
	4:  '3',
	5:  '4',
	6:  '5',
	7:  '6',
	8:  '7',
	9:  '8',
	10: '9',
}

// Character is a classified detection in crop coordinates.
type Character struct {
	Symbol rune
	Box    utils.Box
}

// IsDigit reports whether the character is a digit rather than a decimal
// point.
func (c Character) IsDigit() bool { return c.Symbol >= '0' && c.Symbol <= '9' }

// Inferencer abstracts the classifier model so tests can script predictions.
type Inferencer interface {
	Run(t onnx.Tensor) ([]float32, []int64, error)
}

// Classifier recognizes individual character crops.
type Classifier struct {
	model Inferencer
	owned *onnx.Session
}

// New loads the ONNX character classifier from modelPath.
func New(modelPath string, numThreads int) (*Classifier, error) {
	session, err := onnx.NewSession(modelPath, numThreads)
	if err != nil {
		return nil, fmt.Errorf("init character classifier: %w", err)
	}
	slog.Debug("character classifier initialized", "model_path", modelPath)
	return &Classifier{model: session, owned: session}, nil
}

// NewWithModel wraps an existing model, typically a test double.
func NewWithModel(model Inferencer) *Classifier {
	return &Classifier{model: model}
}

// ClassifyAll recognizes every detection against the source crop. Empty
// crops and predictions outside the symbol table are dropped silently; those
// come from boxes clamped to nothing or from classes the model reserves.
func (c *Classifier) ClassifyAll(img image.Image, dets []detect.Detection) ([]Character, error) {
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	chars := make([]Character, 0, len(dets))
	for _, det := range dets {
		rect := det.Box.ToRect(img.Bounds())
		if rect.Dx() == 0 || rect.Dy() == 0 {
			continue
		}
		symbol, ok, err := c.classifyCrop(utils.CropImageRect(img, rect))
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		chars = append(chars, Character{
			Symbol: symbol,
			Box: utils.NewBox(
				float64(rect.Min.X), float64(rect.Min.Y),
				float64(rect.Max.X), float64(rect.Max.Y)),
		})
	}
	return chars, nil
}

// classifyCrop runs one crop through the model. ok is false for predictions
// with no symbol mapping.
func (c *Classifier) classifyCrop(crop image.Image) (rune, bool, error) {
	resized := utils.ResizeExact(crop, inputSize, inputSize)
	data, w, h, err := utils.NormalizeMeanStd(resized, classifierMean, classifierStd)
	if err != nil {
		return 0, false, fmt.Errorf("classifier preprocessing failed: %w", err)
	}
	defer mempool.PutFloat32(data)

	tensor, err := onnx.NewImageTensor(data, 3, h, w)
	if err != nil {
		return 0, false, fmt.Errorf("classifier tensor failed: %w", err)
	}
	logits, _, err := c.model.Run(tensor)
	if err != nil {
		return 0, false, fmt.Errorf("classifier inference failed: %w", err)
	}

	symbol, ok := indexToSymbol[onnx.ArgMax(logits)]
	return symbol, ok, nil
}

// Close releases the owned model session, if any.
func (c *Classifier) Close() error {
	if c.owned != nil {
		return c.owned.Close()
	}
	return nil
}
