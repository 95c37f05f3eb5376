package pipeline

import (
	"time"
)

// Timings breaks the wall-clock cost of one Process call into stages.
// Selection covers decoding, relevance classification and sharpness ranking;
// Others is whatever the named stages do not account for.
type Timings struct {
	Selection      time.Duration `json:"selection"`
	Crop           time.Duration `json:"crop"`
	Detection      time.Duration `json:"detection"`
	Classification time.Duration `json:"classification"`
	Assembly       time.Duration `json:"assembly"`
	Others         time.Duration `json:"others"`
	Total          time.Duration `json:"total"`
}

// stageTimer accumulates per-stage durations across many small intervals.
type stageTimer struct {
	started time.Time
	total   time.Time
	timings Timings
}

func newStageTimer() *stageTimer {
	now := time.Now()
	return &stageTimer{total: now}
}

func (t *stageTimer) start() { t.started = time.Now() }

func (t *stageTimer) stop(stage *time.Duration) {
	*stage += time.Since(t.started)
}

// finish closes the total and derives the unattributed remainder.
func (t *stageTimer) finish() Timings {
	t.timings.Total = time.Since(t.total)
	measured := t.timings.Selection + t.timings.Crop + t.timings.Detection +
		t.timings.Classification + t.timings.Assembly
	t.timings.Others = t.timings.Total - measured
	return t.timings
}
