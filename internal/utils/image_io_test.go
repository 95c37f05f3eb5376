package utils

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSupportedImage(t *testing.T) {
	assert.True(t, IsSupportedImage("booklet.jpg"))
	assert.True(t, IsSupportedImage("BOOKLET.PNG"))
	assert.True(t, IsSupportedImage("scan.bmp"))
	assert.False(t, IsSupportedImage("movie.mp4"))
	assert.False(t, IsSupportedImage("noext"))
}

func TestSavePNGAndLoadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "crop.png")
	img := solidImage(8, 6, color.NRGBA{10, 200, 30, 255})

	require.NoError(t, SavePNG(path, img))

	loaded, err := LoadImage(path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 8, 6), loaded.Bounds())
}

func TestLoadImage_Errors(t *testing.T) {
	_, err := LoadImage("")
	require.Error(t, err)

	_, err = LoadImage("scores.txt")
	var ipErr *ImageProcessingError
	assert.ErrorAs(t, err, &ipErr)

	_, err = LoadImage(filepath.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}

func TestSavePNG_NilImage(t *testing.T) {
	assert.Error(t, SavePNG(filepath.Join(t.TempDir(), "x.png"), nil))
}
