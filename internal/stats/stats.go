// Package stats aggregates booklet scores into summary statistics for the
// whole batch and per question.
package stats

import (
	"math"
	"sort"
	"strconv"

	"github.com/tallyvid/tallyvid/internal/assemble"
)

// Summary holds the descriptive statistics of one series of values.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Statistics describes a batch of booklets: the totals series plus one
// summary per question.
type Statistics struct {
	Summary
	QuestionStats map[string]Summary `json:"question_stats"`
}

// Aggregate computes batch statistics over the scores. Each booklet's total
// is recomputed as the sum of its question values first; the stored total is
// updated in place so scores and statistics stay consistent. Handwritten
// totals are less reliable than the per-question values they should equal.
func Aggregate(scores []assemble.Score, questionAmount int) Statistics {
	totals := make([]float64, 0, len(scores))
	questionSeries := make([][]float64, questionAmount)

	for i := range scores {
		var sum float64
		for q := range questionAmount {
			v := 0.0
			if q < len(scores[i].Questions) {
				v = scores[i].Questions[q]
			}
			questionSeries[q] = append(questionSeries[q], v)
			sum += v
		}
		scores[i].Total = sum
		totals = append(totals, sum)
	}

	stats := Statistics{
		Summary:       Summarize(totals),
		QuestionStats: make(map[string]Summary, questionAmount),
	}
	for q := range questionAmount {
		stats.QuestionStats[questionKey(q)] = Summarize(questionSeries[q])
	}
	return stats
}

// Summarize computes the summary of one series. An empty series yields all
// zeros.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}

	var sum float64
	minV, maxV := values[0], values[0]
	for _, v := range values {
		sum += v
		minV = math.Min(minV, v)
		maxV = math.Max(maxV, v)
	}
	mean := sum / float64(len(values))

	var variance float64
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(values))

	return Summary{
		Count:  len(values),
		Mean:   mean,
		Median: median(values),
		StdDev: math.Sqrt(variance),
		Min:    minV,
		Max:    maxV,
	}
}

// median returns the middle value, averaging the two central values for even
// lengths.
func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func questionKey(i int) string {
	return "question_" + strconv.Itoa(i+1)
}
