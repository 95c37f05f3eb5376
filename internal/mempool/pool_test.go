package mempool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeClass(t *testing.T) {
	assert.Equal(t, 1024, sizeClass(1))
	assert.Equal(t, 1024, sizeClass(1024))
	assert.Equal(t, 2048, sizeClass(1025))
	assert.Equal(t, 4096, sizeClass(3100))
}

func TestGetFloat32_ZeroedAfterReuse(t *testing.T) {
	buf := GetFloat32(100)
	require.Len(t, buf, 100)
	for i := range buf {
		buf[i] = float32(i) + 1
	}
	PutFloat32(buf)

	again := GetFloat32(100)
	require.Len(t, again, 100)
	for i, v := range again {
		assert.Zerof(t, v, "index %d not zeroed", i)
	}
	PutFloat32(again)
}

func TestGetBool_ZeroedAfterReuse(t *testing.T) {
	buf := GetBool(50)
	require.Len(t, buf, 50)
	for i := range buf {
		buf[i] = true
	}
	PutBool(buf)

	again := GetBool(50)
	require.Len(t, again, 50)
	for _, v := range again {
		assert.False(t, v)
	}
	PutBool(again)
}

func TestPutNil(t *testing.T) {
	assert.NotPanics(t, func() {
		PutFloat32(nil)
		PutBool(nil)
	})
}
