package assemble

import "sort"

// epsHeightFactor scales the average digit height into the clustering
// radius. Digits of one handwritten row scatter vertically by less than
// three quarters of a digit height.
const epsHeightFactor = 0.75

// clusterRowCenters groups 1-D values into density clusters: after sorting,
// values chain into one cluster while consecutive gaps stay within eps.
// Returns the mean of each cluster. With eps <= 0 every value is its own
// cluster.
func clusterRowCenters(values []float64, eps float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	var centers []float64
	start := 0
	sum := sorted[0]
	for i := 1; i < len(sorted); i++ {
		if sorted[i]-sorted[i-1] > eps {
			centers = append(centers, sum/float64(i-start))
			start = i
			sum = 0
		}
		sum += sorted[i]
	}
	centers = append(centers, sum/float64(len(sorted)-start))
	return centers
}
