// Package testutil provides synthetic images, scripted model doubles and a
// scripted video source for tests. Nothing here touches ONNX Runtime or
// ffmpeg.
package testutil

import (
	"image"
	"image/color"
	"image/draw"
)

// NewUniformImage returns a w x h image filled with c.
func NewUniformImage(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

// FillRect paints the rectangle r of img with c.
func FillRect(img *image.NRGBA, r image.Rectangle, c color.Color) {
	draw.Draw(img, r, image.NewUniform(c), image.Point{}, draw.Src)
}

// NewTableFrame returns a bright frame with one large dark axis-aligned
// rectangle covering the given region, enough contrast for adaptive
// thresholding to segment it as the score table.
func NewTableFrame(w, h int, table image.Rectangle) *image.NRGBA {
	img := NewUniformImage(w, h, color.NRGBA{235, 235, 235, 255})
	FillRect(img, table, color.NRGBA{30, 30, 30, 255})
	return img
}

// NewNoisyImage returns an image with a deterministic high-frequency
// checkerboard, useful as a "sharp" frame.
func NewNoisyImage(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			v := uint8(0)
			if (x+y)%2 == 0 {
				v = 255
			}
			img.SetNRGBA(x, y, color.NRGBA{v, v, v, 255})
		}
	}
	return img
}
