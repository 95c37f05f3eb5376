package detect

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/tallyvid/tallyvid/internal/utils"
)

// genDetection generates a random 10x10 detection.
func genDetection() gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(0, 190),
		gen.Float64Range(0, 190),
		gen.Float64Range(0.1, 1.0),
	).Map(func(vals []interface{}) Detection {
		mx, ok := vals[0].(float64)
		if !ok {
			panic("expected float64")
		}
		my, ok := vals[1].(float64)
		if !ok {
			panic("expected float64")
		}
		conf, ok := vals[2].(float64)
		if !ok {
			panic("expected float64")
		}
		return Detection{
			Box:        utils.NewBox(mx, my, mx+10, my+10),
			Confidence: float32(conf),
		}
	})
}

func genDetections() gopter.Gen {
	return gen.SliceOfN(20, genDetection())
}

// TestNonMaxSuppression_OutputSorted verifies NMS output is sorted by confidence.
func TestNonMaxSuppression_OutputSorted(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("NMS output is sorted by confidence (descending)", prop.ForAll(
		func(dets []Detection, iouThreshold float64) bool {
			kept := NonMaxSuppression(dets, iouThreshold)
			for i := 1; i < len(kept); i++ {
				if kept[i].Confidence > kept[i-1].Confidence {
					return false
				}
			}
			return true
		},
		genDetections(),
		gen.Float64Range(0.1, 0.9),
	))

	properties.TestingRun(t)
}

// TestNonMaxSuppression_NoHighOverlap verifies no kept pair exceeds the threshold.
func TestNonMaxSuppression_NoHighOverlap(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("kept detections have IoU below threshold", prop.ForAll(
		func(dets []Detection, iouThreshold float64) bool {
			kept := NonMaxSuppression(dets, iouThreshold)
			for i := range kept {
				for j := i + 1; j < len(kept); j++ {
					if utils.IoU(kept[i].Box, kept[j].Box) > iouThreshold {
						return false
					}
				}
			}
			return true
		},
		genDetections(),
		gen.Float64Range(0.1, 0.9),
	))

	properties.TestingRun(t)
}

// TestNonMaxSuppression_OutputSubset verifies output is a subset of the input.
func TestNonMaxSuppression_OutputSubset(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("NMS output is subset of input", prop.ForAll(
		func(dets []Detection, iouThreshold float64) bool {
			kept := NonMaxSuppression(dets, iouThreshold)
			if len(kept) > len(dets) {
				return false
			}
			for _, k := range kept {
				found := false
				for _, d := range dets {
					if k == d {
						found = true
						break
					}
				}
				if !found {
					return false
				}
			}
			return true
		},
		genDetections(),
		gen.Float64Range(0.1, 0.9),
	))

	properties.TestingRun(t)
}

// TestNonMaxSuppression_SingleDetection verifies a lone detection survives.
func TestNonMaxSuppression_SingleDetection(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("single detection is always kept", prop.ForAll(
		func(det Detection, iouThreshold float64) bool {
			kept := NonMaxSuppression([]Detection{det}, iouThreshold)
			return len(kept) == 1 && kept[0] == det
		},
		genDetection(),
		gen.Float64Range(0.1, 0.9),
	))

	properties.TestingRun(t)
}
