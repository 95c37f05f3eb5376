// Package frames filters sampled video frames down to booklet candidates:
// an external binary classifier marks frames whose score table is visible,
// consecutive relevant frames are grouped into runs, and the sharpest frame
// of each run is selected.
package frames

import (
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/tallyvid/tallyvid/internal/mempool"
	"github.com/tallyvid/tallyvid/internal/onnx"
	"github.com/tallyvid/tallyvid/internal/utils"
	"github.com/tallyvid/tallyvid/internal/video"
)

// Classifier input geometry and normalization. The relevance model is a
// standard ImageNet-pretrained backbone, so it expects ImageNet statistics.
const relevanceInputSize = 224

// relevantClass is the model output index meaning "table visible".
const relevantClass = 1

var (
	imageNetMean = [3]float32{0.485, 0.456, 0.406}
	imageNetStd  = [3]float32{0.229, 0.224, 0.225}
)

// RelevanceModel decides whether a frame shows a visible score table.
// Production wraps the external ONNX classifier; tests script the answers.
type RelevanceModel interface {
	Relevant(img image.Image) (bool, error)
}

// Classifier is the ONNX-backed RelevanceModel.
type Classifier struct {
	session *onnx.Session
}

// NewClassifier loads the frame-relevance model from modelPath.
func NewClassifier(modelPath string, numThreads int) (*Classifier, error) {
	session, err := onnx.NewSession(modelPath, numThreads)
	if err != nil {
		return nil, fmt.Errorf("init relevance classifier: %w", err)
	}
	slog.Debug("relevance classifier initialized", "model_path", modelPath)
	return &Classifier{session: session}, nil
}

// Relevant classifies a single frame.
func (c *Classifier) Relevant(img image.Image) (bool, error) {
	if img == nil {
		return false, errors.New("input image is nil")
	}
	resized := utils.ResizeExact(img, relevanceInputSize, relevanceInputSize)
	data, w, h, err := utils.NormalizeMeanStd(resized, imageNetMean, imageNetStd)
	if err != nil {
		return false, fmt.Errorf("relevance preprocessing failed: %w", err)
	}
	defer mempool.PutFloat32(data)

	tensor, err := onnx.NewImageTensor(data, 3, h, w)
	if err != nil {
		return false, fmt.Errorf("relevance tensor failed: %w", err)
	}
	logits, _, err := c.session.Run(tensor)
	if err != nil {
		return false, fmt.Errorf("relevance inference failed: %w", err)
	}
	return onnx.ArgMax(logits) == relevantClass, nil
}

// Close releases the underlying model session.
func (c *Classifier) Close() error { return c.session.Close() }

// Run is a maximal consecutive sequence of frames classified as relevant.
type Run struct {
	Frames []*video.Frame
}

// Empty reports whether the run holds no frames.
func (r *Run) Empty() bool { return r == nil || len(r.Frames) == 0 }

// Collector groups consecutive relevant frames into runs. Add buffers a
// relevant frame; Flush closes the current run when a non-relevant frame is
// seen or the stream ends.
type Collector struct {
	buffer []*video.Frame
}

// Add appends a relevant frame to the open run.
func (c *Collector) Add(f *video.Frame) {
	c.buffer = append(c.buffer, f)
}

// Flush closes and returns the current run, or nil when no frames are
// buffered. The collector is ready for a new run afterwards.
func (c *Collector) Flush() *Run {
	if len(c.buffer) == 0 {
		return nil
	}
	run := &Run{Frames: c.buffer}
	c.buffer = nil
	return run
}
