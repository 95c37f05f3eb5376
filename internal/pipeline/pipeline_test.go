package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tallyvid/tallyvid/internal/assemble"
	"github.com/tallyvid/tallyvid/internal/classify"
	"github.com/tallyvid/tallyvid/internal/detect"
	"github.com/tallyvid/tallyvid/internal/table"
	"github.com/tallyvid/tallyvid/internal/testutil"
	"github.com/tallyvid/tallyvid/internal/video"
)

// scriptedRelevance replays a fixed relevance verdict per frame.
type scriptedRelevance struct {
	verdicts []bool
	calls    int
	err      error
}

func (s *scriptedRelevance) Relevant(img image.Image) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	if s.calls >= len(s.verdicts) {
		return false, errors.New("scripted relevance exhausted")
	}
	v := s.verdicts[s.calls]
	s.calls++
	return v, nil
}

func tableFrame(index int) *video.Frame {
	return &video.Frame{
		Image: testutil.NewTableFrame(200, 200, image.Rect(20, 30, 180, 170)),
		Index: index,
	}
}

// newTestPipeline wires a pipeline from test doubles. The detector model must
// be scripted with one output per expected crop.
func newTestPipeline(relevance *scriptedRelevance, detectorModel *testutil.ScriptedModel,
	source *testutil.FakeSource,
) *Pipeline {
	return &Pipeline{
		cfg:        DefaultConfig(),
		Relevance:  relevance,
		Detector:   detect.NewWithModel(detectorModel, 0, 0),
		Classifier: classify.NewWithModel(&testutil.ScriptedModel{}),
		openVideo: func(ctx context.Context, path string, opts video.Options) (video.Source, error) {
			return source, nil
		},
	}
}

func emptyDetections(n int) *testutil.ScriptedModel {
	m := &testutil.ScriptedModel{}
	for range n {
		m.Script(nil, []int64{1, 0, 6})
	}
	return m
}

func TestProcess_OneScorePerRelevantRun(t *testing.T) {
	source := &testutil.FakeSource{
		MetaValue: video.Meta{Width: 200, Height: 200, FPS: 30, FrameCount: 50},
		Frames: []*video.Frame{
			tableFrame(0), tableFrame(10), // first booklet
			tableFrame(20),                // irrelevant, ends the run
			tableFrame(30), tableFrame(40), // second booklet
		},
	}
	relevance := &scriptedRelevance{verdicts: []bool{true, true, false, true, true}}
	p := newTestPipeline(relevance, emptyDetections(2), source)

	result, err := p.Process(context.Background(), "booklets.mp4", Options{})
	require.NoError(t, err)
	require.Len(t, result.Scores, 2)

	for _, s := range result.Scores {
		assert.Equal(t, assemble.ZeroScore(8), s)
	}
	assert.Equal(t, 2, result.Statistics.Count)
	assert.True(t, source.Closed)
	assert.Equal(t, 5, relevance.calls)
}

func TestProcess_EndToEndReadsScores(t *testing.T) {
	frame := tableFrame(0)

	// Script detections in the letterbox frame of the actual table crop so
	// the detector's inverse mapping lands on crop-local boxes.
	crop, err := table.Extract(frame.Image)
	require.NoError(t, err)
	require.Equal(t, image.Point{}, crop.Bounds().Min)
	lb := detect.Letterbox(crop, detect.InputSize)
	row := func(x1, y1, x2, y2, conf float64) [6]float32 {
		return [6]float32{
			float32(x1*lb.Ratio + float64(lb.PadX)),
			float32(y1*lb.Ratio + float64(lb.PadY)),
			float32(x2*lb.Ratio + float64(lb.PadX)),
			float32(y2*lb.Ratio + float64(lb.PadY)),
			float32(conf), 0,
		}
	}

	// "1","0" on the first question row, "2","0" on the total row.
	out, shape := testutil.DetectionRows(
		row(10, 20, 18, 36, 0.95),
		row(22, 20, 30, 36, 0.90),
		row(10, 120, 18, 136, 0.85),
		row(22, 120, 30, 136, 0.80),
	)
	detectorModel := (&testutil.ScriptedModel{}).Script(out, shape)
	classifierModel := (&testutil.ScriptedModel{}).
		Script(testutil.ClassLogits(1), []int64{1, 11}).
		Script(testutil.ClassLogits(0), []int64{1, 11}).
		Script(testutil.ClassLogits(3), []int64{1, 11}).
		Script(testutil.ClassLogits(0), []int64{1, 11})

	source := &testutil.FakeSource{
		MetaValue: video.Meta{Width: 200, Height: 200, FPS: 30, FrameCount: 1},
		Frames:    []*video.Frame{frame},
	}
	p := newTestPipeline(&scriptedRelevance{verdicts: []bool{true}}, detectorModel, source)
	p.Classifier = classify.NewWithModel(classifierModel)

	result, err := p.Process(context.Background(), "booklets.mp4", Options{QuestionAmount: 1})
	require.NoError(t, err)
	require.Len(t, result.Scores, 1)

	// Every detection must reach the classifier.
	assert.Equal(t, 4, classifierModel.Calls)
	assert.InDelta(t, 10, result.Scores[0].Questions[0], 1e-9)
	// Aggregation rewrites the handwritten total as the question sum.
	assert.InDelta(t, 10, result.Scores[0].Total, 1e-9)
	assert.Equal(t, 1, result.Statistics.Count)
	assert.InDelta(t, 10, result.Statistics.Mean, 1e-9)
}

func TestProcess_TimestampModeSkipsRelevance(t *testing.T) {
	source := &testutil.FakeSource{
		MetaValue: video.Meta{Width: 200, Height: 200, FPS: 30},
		Frames:    []*video.Frame{tableFrame(30), tableFrame(90)},
	}
	// Any relevance call fails the run.
	relevance := &scriptedRelevance{err: errors.New("relevance must not run in timestamp mode")}
	p := newTestPipeline(relevance, emptyDetections(2), source)

	result, err := p.Process(context.Background(), "booklets.mp4", Options{
		TimestampsMS: []int64{1000, 3000},
	})
	require.NoError(t, err)
	assert.Len(t, result.Scores, 2)
	assert.Zero(t, relevance.calls)
}

func TestProcess_SkipsFramesWithoutTable(t *testing.T) {
	blank := &video.Frame{Image: testutil.NewUniformImage(200, 200, color.White), Index: 0}
	source := &testutil.FakeSource{Frames: []*video.Frame{blank}}
	relevance := &scriptedRelevance{verdicts: []bool{true}}
	p := newTestPipeline(relevance, emptyDetections(0), source)

	result, err := p.Process(context.Background(), "booklets.mp4", Options{})
	require.NoError(t, err)
	assert.Empty(t, result.Scores)
	assert.Zero(t, result.Statistics.Count)
}

func TestProcess_ReportsProgress(t *testing.T) {
	source := &testutil.FakeSource{
		MetaValue: video.Meta{FrameCount: 42},
		Frames:    []*video.Frame{tableFrame(0), tableFrame(10)},
	}
	relevance := &scriptedRelevance{verdicts: []bool{false, false}}
	p := newTestPipeline(relevance, emptyDetections(0), source)

	var indexes []int
	var counts []int64
	_, err := p.Process(context.Background(), "booklets.mp4", Options{
		Progress: func(frameIndex int, frameCount int64) {
			indexes = append(indexes, frameIndex)
			counts = append(counts, frameCount)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 10}, indexes)
	assert.Equal(t, []int64{42, 42}, counts)
}

func TestProcess_ContextCanceled(t *testing.T) {
	source := &testutil.FakeSource{Frames: []*video.Frame{tableFrame(0)}}
	p := newTestPipeline(&scriptedRelevance{verdicts: []bool{true}}, emptyDetections(0), source)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Process(ctx, "booklets.mp4", Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, source.Closed)
}

func TestProcess_OpenError(t *testing.T) {
	p := newTestPipeline(&scriptedRelevance{}, emptyDetections(0), nil)
	p.openVideo = func(ctx context.Context, path string, opts video.Options) (video.Source, error) {
		return nil, errors.New("no such file")
	}

	_, err := p.Process(context.Background(), "missing.mp4", Options{})
	assert.Error(t, err)
}

func TestProcess_Closed(t *testing.T) {
	p := newTestPipeline(&scriptedRelevance{}, emptyDetections(0), &testutil.FakeSource{})
	require.NoError(t, p.Close())

	_, err := p.Process(context.Background(), "booklets.mp4", Options{})
	assert.ErrorIs(t, err, errClosed)
}

func TestProcess_OptionOverrides(t *testing.T) {
	source := &testutil.FakeSource{Frames: []*video.Frame{tableFrame(0)}}
	relevance := &scriptedRelevance{verdicts: []bool{true}}
	p := newTestPipeline(relevance, emptyDetections(1), source)

	result, err := p.Process(context.Background(), "booklets.mp4", Options{QuestionAmount: 3})
	require.NoError(t, err)
	require.Len(t, result.Scores, 1)
	assert.Len(t, result.Scores[0].Questions, 3)
	assert.Len(t, result.Statistics.QuestionStats, 3)
}

func TestProcessImage(t *testing.T) {
	p := newTestPipeline(&scriptedRelevance{}, emptyDetections(1), nil)

	img := testutil.NewTableFrame(200, 200, image.Rect(20, 30, 180, 170))
	result, err := p.ProcessImage(img, Options{QuestionAmount: 4})
	require.NoError(t, err)
	require.Len(t, result.Scores, 1)
	assert.Equal(t, assemble.ZeroScore(4), result.Scores[0])
	assert.Equal(t, 1, result.Statistics.Count)
}

func TestProcessImage_NoTable(t *testing.T) {
	p := newTestPipeline(&scriptedRelevance{}, emptyDetections(0), nil)

	img := testutil.NewUniformImage(100, 100, color.White)
	_, err := p.ProcessImage(img, Options{})
	assert.Error(t, err)
}

func TestRecomputeStatistics(t *testing.T) {
	scores := []assemble.Score{
		{Questions: []float64{1, 2}, Total: 99},
		{Questions: []float64{2, 3}, Total: 99},
	}

	statistics := RecomputeStatistics(scores, 2)
	assert.InDelta(t, 3, scores[0].Total, 1e-9)
	assert.InDelta(t, 5, scores[1].Total, 1e-9)
	assert.InDelta(t, 4, statistics.Mean, 1e-9)
}

func TestBuilderOptions(t *testing.T) {
	b := NewBuilder().
		WithModelsDir("/opt/models").
		WithThreads(4).
		WithStride(5).
		WithIoUThreshold(0.3).
		WithQuestionAmount(6).
		WithNumRows(7)

	assert.Equal(t, "/opt/models", b.cfg.ModelsDir)
	assert.Equal(t, 4, b.cfg.NumThreads)
	assert.Equal(t, 5, b.cfg.Stride)
	assert.InDelta(t, 0.3, b.cfg.IoUThreshold, 1e-9)
	assert.Equal(t, 6, b.cfg.QuestionAmount)
	assert.Equal(t, 7, b.cfg.NumRows)
}

func TestBuilderIgnoresInvalidValues(t *testing.T) {
	def := DefaultConfig()
	b := NewBuilder().
		WithModelsDir("").
		WithThreads(-1).
		WithStride(0).
		WithIoUThreshold(0).
		WithQuestionAmount(0).
		WithNumRows(1)

	assert.Equal(t, def, b.cfg)
}
