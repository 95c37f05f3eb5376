package utils

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tallyvid/tallyvid/internal/mempool"
)

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestToGray(t *testing.T) {
	img := solidImage(4, 4, color.NRGBA{255, 0, 0, 255})
	gray := ToGray(img)
	require.Equal(t, image.Rect(0, 0, 4, 4), gray.Bounds())
	// Pure red maps to the luma weight of the red channel.
	assert.InDelta(t, 76, int(gray.Pix[0]), 1)
}

func TestResizeExact(t *testing.T) {
	img := solidImage(10, 20, color.NRGBA{100, 100, 100, 255})
	out := ResizeExact(img, 7, 3)
	assert.Equal(t, 7, out.Bounds().Dx())
	assert.Equal(t, 3, out.Bounds().Dy())
}

func TestNormalizeMeanStd(t *testing.T) {
	img := solidImage(2, 2, color.NRGBA{255, 0, 128, 255})
	mean := [3]float32{0.5, 0.5, 0.5}
	std := [3]float32{0.5, 0.5, 0.5}

	data, w, h, err := NormalizeMeanStd(img, mean, std)
	require.NoError(t, err)
	defer mempool.PutFloat32(data)

	assert.Equal(t, 2, w)
	assert.Equal(t, 2, h)
	require.GreaterOrEqual(t, len(data), 12)

	// Channel planes: R then G then B.
	assert.InDelta(t, 1.0, data[0], 1e-3)
	assert.InDelta(t, -1.0, data[4], 1e-3)
	assert.InDelta(t, 0.0, data[8], 5e-3)
}

func TestNormalizeMeanStd_Errors(t *testing.T) {
	_, _, _, err := NormalizeMeanStd(nil, [3]float32{0, 0, 0}, [3]float32{1, 1, 1})
	require.Error(t, err)
	var ipErr *ImageProcessingError
	assert.ErrorAs(t, err, &ipErr)

	img := solidImage(2, 2, color.NRGBA{0, 0, 0, 255})
	_, _, _, err = NormalizeMeanStd(img, [3]float32{0, 0, 0}, [3]float32{1, 0, 1})
	assert.Error(t, err)
}

func TestNormalizeScale(t *testing.T) {
	img := solidImage(2, 2, color.NRGBA{51, 102, 204, 255})
	data, _, _, err := NormalizeScale(img)
	require.NoError(t, err)
	defer mempool.PutFloat32(data)

	assert.InDelta(t, 0.2, data[0], 1e-3)
	assert.InDelta(t, 0.4, data[4], 1e-3)
	assert.InDelta(t, 0.8, data[8], 1e-3)
}

func TestCropImageRect(t *testing.T) {
	img := solidImage(10, 10, color.NRGBA{10, 20, 30, 255})
	crop := CropImageRect(img, image.Rect(2, 3, 8, 7))
	assert.Equal(t, 6, crop.Bounds().Dx())
	assert.Equal(t, 4, crop.Bounds().Dy())

	empty := CropImageRect(img, image.Rect(20, 20, 30, 30))
	assert.Equal(t, 0, empty.Bounds().Dx())
}

func TestCropImageBox(t *testing.T) {
	img := solidImage(10, 10, color.NRGBA{10, 20, 30, 255})
	crop := CropImageBox(img, NewBox(1.2, 1.2, 4.8, 3.6))
	assert.Equal(t, 4, crop.Bounds().Dx())
	assert.Equal(t, 3, crop.Bounds().Dy())
}
