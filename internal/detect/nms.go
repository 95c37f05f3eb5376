package detect

import (
	"sort"

	"github.com/tallyvid/tallyvid/internal/utils"
)

// Detection is a single character candidate in image coordinates.
type Detection struct {
	Box        utils.Box
	Confidence float32
	ClassID    int
}

// NonMaxSuppression greedily keeps the highest-confidence detections and
// suppresses any remaining box whose IoU with a kept box exceeds the
// threshold. Class-agnostic; input order is not preserved.
func NonMaxSuppression(dets []Detection, iouThreshold float64) []Detection {
	if len(dets) <= 1 {
		return dets
	}
	sorted := make([]Detection, len(dets))
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := make([]Detection, 0, len(sorted))
	suppressed := make([]bool, len(sorted))
	for i, d := range sorted {
		if suppressed[i] {
			continue
		}
		kept = append(kept, d)
		for j := i + 1; j < len(sorted); j++ {
			if suppressed[j] {
				continue
			}
			if utils.IoU(d.Box, sorted[j].Box) > iouThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}
