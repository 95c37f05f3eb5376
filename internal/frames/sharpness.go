package frames

import (
	"image"

	"github.com/tallyvid/tallyvid/internal/utils"
	"github.com/tallyvid/tallyvid/internal/video"
)

// Sharpness scores an image by the variance of its Laplacian response. Higher
// means sharper; motion blur flattens intensity gradients and drives the
// variance toward zero.
func Sharpness(img image.Image) float64 {
	gray := utils.ToGray(img)
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	// 4-neighbor Laplacian over interior pixels. Single pass accumulating
	// sum and sum of squares; variance follows from the two moments.
	var sum, sumSq float64
	n := 0
	for y := 1; y < h-1; y++ {
		rowOff := y * gray.Stride
		for x := 1; x < w-1; x++ {
			i := rowOff + x
			c := int(gray.Pix[i])
			lap := float64(4*c -
				int(gray.Pix[i-gray.Stride]) -
				int(gray.Pix[i+gray.Stride]) -
				int(gray.Pix[i-1]) -
				int(gray.Pix[i+1]))
			sum += lap
			sumSq += lap * lap
			n++
		}
	}
	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean
}

// SelectSharpest returns the frame with the highest sharpness score. Ties
// resolve to the earliest frame; an empty slice yields nil.
func SelectSharpest(fs []*video.Frame) *video.Frame {
	var best *video.Frame
	bestScore := -1.0
	for _, f := range fs {
		score := Sharpness(f.Image)
		if score > bestScore {
			best = f
			bestScore = score
		}
	}
	return best
}
