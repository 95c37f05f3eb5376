package video

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimestampToIndex(t *testing.T) {
	tests := []struct {
		name string
		tsMS int64
		fps  float64
		want int
	}{
		{"zero", 0, 30, 0},
		{"exact second", 1000, 30, 30},
		{"rounds nearest", 1017, 30, 31},
		{"ntsc rate", 1000, 29.97, 30},
		{"fallback fps", 2000, 0, 60},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TimestampToIndex(tt.tsMS, tt.fps))
		})
	}
}

func TestParseFrameRate(t *testing.T) {
	assert.InDelta(t, 25.0, parseFrameRate("25/1"), 1e-9)
	assert.InDelta(t, 29.97, parseFrameRate("30000/1001"), 1e-2)
	assert.InDelta(t, 30.0, parseFrameRate("30"), 1e-9)
	assert.Zero(t, parseFrameRate("30/0"))
	assert.Zero(t, parseFrameRate("a/b"))
}

func TestDrain(t *testing.T) {
	src := bytes.NewReader(make([]byte, 1000))
	buf := make([]byte, 64)

	require.NoError(t, drain(src, buf, 1000))
	assert.Equal(t, 0, src.Len())

	err := drain(bytes.NewReader(make([]byte, 10)), buf, 20)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestEofOr(t *testing.T) {
	assert.Equal(t, io.EOF, eofOr(io.EOF))
	assert.Equal(t, io.EOF, eofOr(io.ErrUnexpectedEOF))
	assert.Equal(t, io.ErrClosedPipe, eofOr(io.ErrClosedPipe))
}
