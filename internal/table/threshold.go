// Package table localizes the score table in a frame and produces a
// perspective-corrected crop of its score column. Localization is classical
// vision: adaptive thresholding, external contours, minimum-area rectangle,
// homography warp.
package table

import (
	"image"
	"math"

	"github.com/tallyvid/tallyvid/internal/mempool"
)

const (
	blurKernelSize      = 5
	thresholdWindowSize = 11
	thresholdOffset     = 2.0
)

// gaussianKernel builds a normalized 1-D Gaussian kernel. A non-positive
// sigma falls back to the conventional size-derived value.
func gaussianKernel(size int, sigma float64) []float64 {
	if sigma <= 0 {
		sigma = 0.3*(float64(size-1)*0.5-1) + 0.8
	}
	kernel := make([]float64, size)
	half := size / 2
	var sum float64
	for i := range kernel {
		d := float64(i - half)
		kernel[i] = math.Exp(-d * d / (2 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

// gaussianBlur applies a separable Gaussian blur to a grayscale image.
// Borders are handled by clamping sample coordinates.
func gaussianBlur(gray *image.Gray, size int) *image.Gray {
	kernel := gaussianKernel(size, 0)
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	half := size / 2

	tmp := make([]float64, w*h)
	for y := range h {
		row := y * gray.Stride
		for x := range w {
			var acc float64
			for k, kv := range kernel {
				sx := clampIndex(x+k-half, w)
				acc += kv * float64(gray.Pix[row+sx])
			}
			tmp[y*w+x] = acc
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			var acc float64
			for k, kv := range kernel {
				sy := clampIndex(y+k-half, h)
				acc += kv * tmp[sy*w+x]
			}
			out.Pix[y*out.Stride+x] = uint8(acc + 0.5)
		}
	}
	return out
}

// adaptiveThresholdInv binarizes a grayscale image against a local
// Gaussian-weighted mean. A pixel is foreground when it is darker than its
// neighborhood mean minus the offset, which flips ink to true on bright
// paper. The returned mask is pooled; the caller must mempool.PutBool it.
func adaptiveThresholdInv(gray *image.Gray, window int, offset float64) []bool {
	kernel := gaussianKernel(window, 0)
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	half := window / 2

	// Separable weighted mean, horizontal then vertical.
	tmp := make([]float64, w*h)
	for y := range h {
		row := y * gray.Stride
		for x := range w {
			var acc float64
			for k, kv := range kernel {
				sx := clampIndex(x+k-half, w)
				acc += kv * float64(gray.Pix[row+sx])
			}
			tmp[y*w+x] = acc
		}
	}

	mask := mempool.GetBool(w * h)
	for y := range h {
		row := y * gray.Stride
		for x := range w {
			var mean float64
			for k, kv := range kernel {
				sy := clampIndex(y+k-half, h)
				mean += kv * tmp[sy*w+x]
			}
			mask[y*w+x] = float64(gray.Pix[row+x]) <= mean-offset
		}
	}
	return mask
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
