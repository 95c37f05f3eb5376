package assemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClusterRowCenters(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		eps    float64
		want   []float64
	}{
		{
			name:   "two tight groups",
			values: []float64{10, 12, 11, 50, 52},
			eps:    5,
			want:   []float64{11, 51},
		},
		{
			name:   "chained values merge",
			values: []float64{0, 4, 8, 12},
			eps:    4,
			want:   []float64{6},
		},
		{
			name:   "single value",
			values: []float64{7},
			eps:    3,
			want:   []float64{7},
		},
		{
			name:   "zero eps splits everything",
			values: []float64{3, 1, 2},
			eps:    0,
			want:   []float64{1, 2, 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clusterRowCenters(tt.values, tt.eps)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-9)
			}
		})
	}
}

func TestClusterRowCenters_Empty(t *testing.T) {
	assert.Nil(t, clusterRowCenters(nil, 5))
}
