// Package detect runs the character detector on a table crop. The crop is
// letterboxed to the model's square input, raw predictions are reduced by
// non-maximum suppression, mapped back to crop coordinates and filtered for
// spatial outliers.
package detect

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
)

// InputSize is the square side length the detector was trained on.
const InputSize = 1280

// padColor is the conventional letterbox fill.
var padColor = color.NRGBA{114, 114, 114, 255}

// LetterboxResult records the geometry of a letterbox operation so that
// detections can be mapped back to the source image.
type LetterboxResult struct {
	Image *image.NRGBA
	Ratio float64
	PadX  int
	PadY  int
}

// Letterbox scales img to fit a size x size square preserving aspect ratio
// and pads the remainder with neutral gray, split evenly on both sides.
func Letterbox(img image.Image, size int) LetterboxResult {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := w
	if h > longest {
		longest = h
	}
	ratio := float64(size) / float64(longest)
	newW := int(float64(w) * ratio)
	newH := int(float64(h) * ratio)

	resized := imaging.Resize(img, newW, newH, imaging.Linear)

	padX := (size - newW) / 2
	padY := (size - newH) / 2

	out := image.NewNRGBA(image.Rect(0, 0, size, size))
	draw.Draw(out, out.Bounds(), image.NewUniform(padColor), image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(padX, padY, padX+newW, padY+newH), resized, resized.Bounds().Min, draw.Src)

	return LetterboxResult{Image: out, Ratio: ratio, PadX: padX, PadY: padY}
}
