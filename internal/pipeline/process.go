package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"

	"github.com/tallyvid/tallyvid/internal/assemble"
	"github.com/tallyvid/tallyvid/internal/frames"
	"github.com/tallyvid/tallyvid/internal/stats"
	"github.com/tallyvid/tallyvid/internal/table"
	"github.com/tallyvid/tallyvid/internal/video"
)

// ProgressFunc reports sampling progress: the index of the frame just
// visited and the total frame count, 0 when the container does not report
// one.
type ProgressFunc func(frameIndex int, frameCount int64)

// Options override pipeline defaults for a single Process call. Zero values
// fall back to the configured defaults. When TimestampsMS is non-empty only
// those frames are decoded and relevance filtering is skipped.
type Options struct {
	QuestionAmount int
	Stride         int
	TimestampsMS   []int64
	IoUThreshold   float64
	NumRows        int
	Progress       ProgressFunc
}

// Result is the output of one processed video.
type Result struct {
	Scores     []assemble.Score `json:"scores"`
	Statistics stats.Statistics `json:"statistics"`
	Timings    Timings          `json:"timings"`
}

// Process runs the full pipeline on the video at videoPath. One score is
// produced per visible booklet, one booklet per run of relevant frames.
func (p *Pipeline) Process(ctx context.Context, videoPath string, opts Options) (*Result, error) {
	if p.Detector == nil || p.Classifier == nil || p.Relevance == nil {
		return nil, errClosed
	}
	if opts.QuestionAmount <= 0 {
		opts.QuestionAmount = p.cfg.QuestionAmount
	}
	if opts.Stride <= 0 {
		opts.Stride = p.cfg.Stride
	}
	if opts.IoUThreshold <= 0 {
		opts.IoUThreshold = p.cfg.IoUThreshold
	}
	if opts.NumRows <= 1 {
		opts.NumRows = p.cfg.NumRows
	}

	timer := newStageTimer()

	crops, err := p.selectCrops(ctx, videoPath, opts, timer)
	if err != nil {
		return nil, err
	}
	slog.Debug("frame selection done", "crops", len(crops))

	scores := make([]assemble.Score, 0, len(crops))
	for _, crop := range crops {
		score, err := p.scoreCrop(crop, opts, timer)
		if err != nil {
			return nil, err
		}
		scores = append(scores, score)
	}

	statistics := stats.Aggregate(scores, opts.QuestionAmount)
	return &Result{
		Scores:     scores,
		Statistics: statistics,
		Timings:    timer.finish(),
	}, nil
}

// ProcessImage scores a single still image instead of a video. The frame is
// used as-is: no relevance filtering and no sharpness selection.
func (p *Pipeline) ProcessImage(img image.Image, opts Options) (*Result, error) {
	if p.Detector == nil || p.Classifier == nil {
		return nil, errClosed
	}
	if opts.QuestionAmount <= 0 {
		opts.QuestionAmount = p.cfg.QuestionAmount
	}
	if opts.IoUThreshold <= 0 {
		opts.IoUThreshold = p.cfg.IoUThreshold
	}
	if opts.NumRows <= 1 {
		opts.NumRows = p.cfg.NumRows
	}

	timer := newStageTimer()
	timer.start()
	crop, err := table.Extract(img)
	timer.stop(&timer.timings.Crop)
	if err != nil {
		return nil, err
	}

	score, err := p.scoreCrop(crop, opts, timer)
	if err != nil {
		return nil, err
	}

	scores := []assemble.Score{score}
	return &Result{
		Scores:     scores,
		Statistics: stats.Aggregate(scores, opts.QuestionAmount),
		Timings:    timer.finish(),
	}, nil
}

// RecomputeStatistics re-aggregates previously produced scores, for example
// after manual correction of individual values. Totals are recomputed from
// the question values.
func RecomputeStatistics(scores []assemble.Score, questionAmount int) stats.Statistics {
	return stats.Aggregate(scores, questionAmount)
}

// selectCrops decodes the video and returns one perspective-corrected table
// crop per booklet. In timestamp mode every requested frame is cropped
// directly; in stride mode runs of relevant frames are reduced to their
// sharpest member first.
func (p *Pipeline) selectCrops(ctx context.Context, videoPath string,
	opts Options, timer *stageTimer,
) ([]*image.NRGBA, error) {
	timer.start()
	source, err := p.openVideo(ctx, videoPath, video.Options{
		Stride:       opts.Stride,
		TimestampsMS: opts.TimestampsMS,
	})
	if err != nil {
		timer.stop(&timer.timings.Selection)
		return nil, err
	}
	defer source.Close()
	timer.stop(&timer.timings.Selection)

	byTimestamp := len(opts.TimestampsMS) > 0
	frameCount := source.Meta().FrameCount

	var crops []*image.NRGBA
	var collector frames.Collector

	flushRun := func() error {
		run := collector.Flush()
		if run.Empty() {
			return nil
		}
		timer.start()
		best := frames.SelectSharpest(run.Frames)
		timer.stop(&timer.timings.Selection)
		return appendCrop(&crops, best.Image, timer)
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		timer.start()
		frame, err := source.Next()
		timer.stop(&timer.timings.Selection)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", videoPath, err)
		}
		if opts.Progress != nil {
			opts.Progress(frame.Index, frameCount)
		}

		if byTimestamp {
			if err := appendCrop(&crops, frame.Image, timer); err != nil {
				return nil, err
			}
			continue
		}

		timer.start()
		relevant, err := p.Relevance.Relevant(frame.Image)
		timer.stop(&timer.timings.Selection)
		if err != nil {
			return nil, err
		}
		if relevant {
			collector.Add(frame)
			continue
		}
		if err := flushRun(); err != nil {
			return nil, err
		}
	}

	if !byTimestamp {
		if err := flushRun(); err != nil {
			return nil, err
		}
	}
	return crops, nil
}

// appendCrop localizes the table in img and appends the crop. Frames without
// a table are skipped.
func appendCrop(crops *[]*image.NRGBA, img image.Image, timer *stageTimer) error {
	timer.start()
	crop, err := table.Extract(img)
	timer.stop(&timer.timings.Crop)
	if errors.Is(err, table.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	*crops = append(*crops, crop)
	return nil
}

// scoreCrop runs detection, classification and assembly on one table crop.
func (p *Pipeline) scoreCrop(crop *image.NRGBA, opts Options,
	timer *stageTimer,
) (assemble.Score, error) {
	timer.start()
	dets, err := p.Detector.DetectWith(crop, opts.IoUThreshold, opts.NumRows)
	timer.stop(&timer.timings.Detection)
	if err != nil {
		return assemble.Score{}, err
	}

	timer.start()
	chars, err := p.Classifier.ClassifyAll(crop, dets)
	timer.stop(&timer.timings.Classification)
	if err != nil {
		return assemble.Score{}, err
	}

	timer.start()
	score := assemble.Assemble(chars, opts.QuestionAmount, opts.NumRows)
	timer.stop(&timer.timings.Assembly)
	return score, nil
}
