// Package pipeline wires the processing stages into a single entry point:
// frame selection, table localization, character detection, character
// classification and score assembly.
package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/tallyvid/tallyvid/internal/classify"
	"github.com/tallyvid/tallyvid/internal/detect"
	"github.com/tallyvid/tallyvid/internal/frames"
	"github.com/tallyvid/tallyvid/internal/models"
	"github.com/tallyvid/tallyvid/internal/video"
)

// Config holds configuration for the pipeline and its components.
type Config struct {
	ModelsDir      string
	NumThreads     int // intra-op threads per model session, 0 for runtime default
	Stride         int // sample every N-th frame in stride mode
	IoUThreshold   float64
	QuestionAmount int
	NumRows        int // table rows including the total row
}

// DefaultConfig returns a pipeline config with component defaults.
func DefaultConfig() Config {
	return Config{
		ModelsDir:      models.GetModelsDir(""),
		NumThreads:     0,
		Stride:         10,
		IoUThreshold:   detect.DefaultIoUThreshold,
		QuestionAmount: 8,
		NumRows:        detect.DefaultNumRows,
	}
}

// Builder constructs a Pipeline with fluent configuration.
type Builder struct {
	cfg Config
}

// NewBuilder creates a new pipeline builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithModelsDir sets the directory holding the ONNX model files.
func (b *Builder) WithModelsDir(dir string) *Builder {
	if dir != "" {
		b.cfg.ModelsDir = dir
	}
	return b
}

// WithThreads sets intra-op thread counts for all model sessions (if >0).
func (b *Builder) WithThreads(n int) *Builder {
	if n > 0 {
		b.cfg.NumThreads = n
	}
	return b
}

// WithStride sets the frame sampling stride (if >0).
func (b *Builder) WithStride(n int) *Builder {
	if n > 0 {
		b.cfg.Stride = n
	}
	return b
}

// WithIoUThreshold sets the NMS overlap threshold (if >0).
func (b *Builder) WithIoUThreshold(iou float64) *Builder {
	if iou > 0 {
		b.cfg.IoUThreshold = iou
	}
	return b
}

// WithQuestionAmount sets the number of question values to emit (if >0).
func (b *Builder) WithQuestionAmount(n int) *Builder {
	if n > 0 {
		b.cfg.QuestionAmount = n
	}
	return b
}

// WithNumRows sets the table row count including the total row (if >1).
func (b *Builder) WithNumRows(n int) *Builder {
	if n > 1 {
		b.cfg.NumRows = n
	}
	return b
}

// Pipeline runs the full video-to-scores flow. Safe for sequential use; the
// model sessions serialize concurrent calls internally.
type Pipeline struct {
	cfg        Config
	Relevance  frames.RelevanceModel
	Detector   *detect.Detector
	Classifier *classify.Classifier

	relevanceCloser interface{ Close() error }
	openVideo       func(ctx context.Context, path string, opts video.Options) (video.Source, error)
}

// Build initializes the pipeline components, loading all three models.
func (b *Builder) Build() (*Pipeline, error) {
	cfg := b.cfg

	relevance, err := frames.NewClassifier(models.RelevancePath(cfg.ModelsDir), cfg.NumThreads)
	if err != nil {
		return nil, err
	}
	detector, err := detect.New(models.DetectorPath(cfg.ModelsDir), cfg.NumThreads,
		cfg.IoUThreshold, cfg.NumRows)
	if err != nil {
		relevance.Close()
		return nil, err
	}
	classifier, err := classify.New(models.ClassifierPath(cfg.ModelsDir), cfg.NumThreads)
	if err != nil {
		relevance.Close()
		detector.Close()
		return nil, err
	}

	slog.Info("pipeline initialized",
		"models_dir", cfg.ModelsDir,
		"stride", cfg.Stride,
		"question_amount", cfg.QuestionAmount)

	return &Pipeline{
		cfg:             cfg,
		Relevance:       relevance,
		Detector:        detector,
		Classifier:      classifier,
		relevanceCloser: relevance,
		openVideo:       video.Open,
	}, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Close releases all model sessions. Safe to call more than once.
func (p *Pipeline) Close() error {
	var firstErr error
	if p.relevanceCloser != nil {
		if err := p.relevanceCloser.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.relevanceCloser = nil
	}
	if p.Detector != nil {
		if err := p.Detector.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.Detector = nil
	}
	if p.Classifier != nil {
		if err := p.Classifier.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		p.Classifier = nil
	}
	return firstErr
}

var errClosed = errors.New("pipeline is closed")
