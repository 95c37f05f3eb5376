package utils

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/tallyvid/tallyvid/internal/mempool"
)

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// ToGray converts an image to 8-bit grayscale using the standard luma weights.
func ToGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

// ResizeExact resizes an image to exactly w x h using Lanczos resampling,
// ignoring aspect ratio. Fixed-shape model inputs use this.
func ResizeExact(img image.Image, w, h int) image.Image {
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

// NormalizeMeanStd converts an image to a float32 NCHW tensor, scaling pixels
// to 0-1 and applying per-channel mean/std normalization. The returned buffer
// comes from the shared pool; the caller must release it via
// mempool.PutFloat32 once the tensor has been consumed.
func NormalizeMeanStd(img image.Image, mean, std [3]float32) ([]float32, int, int, error) {
	if img == nil {
		return nil, 0, 0, &ImageProcessingError{Operation: "normalize", Err: errors.New("input image is nil")}
	}
	for _, s := range std {
		if s == 0 {
			return nil, 0, 0, &ImageProcessingError{Operation: "normalize", Err: errors.New("zero std channel")}
		}
	}

	nrgba := imaging.Clone(img)
	bounds := nrgba.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, 0, 0, &ImageProcessingError{Operation: "normalize", Err: errors.New("invalid image dimensions")}
	}

	data := mempool.GetFloat32(3 * width * height)
	plane := width * height
	for y := range height {
		for x := range width {
			r, g, b, _ := nrgba.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			idx := y*width + x
			data[idx] = (float32(r>>8)/255.0 - mean[0]) / std[0]
			data[plane+idx] = (float32(g>>8)/255.0 - mean[1]) / std[1]
			data[2*plane+idx] = (float32(b>>8)/255.0 - mean[2]) / std[2]
		}
	}
	return data, width, height, nil
}

// NormalizeScale converts an image to a float32 NCHW tensor with pixels
// scaled to 0-1 and no mean/std adjustment. The detector input uses this.
// The buffer must be released via mempool.PutFloat32.
func NormalizeScale(img image.Image) ([]float32, int, int, error) {
	return NormalizeMeanStd(img, [3]float32{0, 0, 0}, [3]float32{1, 1, 1})
}

// CropImageRect crops an image to the given rectangle.
func CropImageRect(img image.Image, rect image.Rectangle) image.Image {
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return imaging.New(0, 0, color.Transparent)
	}
	return imaging.Crop(img, rect)
}

// CropImageBox crops an image using a float Box.
func CropImageBox(img image.Image, box Box) image.Image {
	return CropImageRect(img, box.ToRect(img.Bounds()))
}
