package table

import (
	"image"
	"image/color"

	"github.com/tallyvid/tallyvid/internal/utils"
)

// computeHomography computes the 3x3 matrix H mapping p[i] -> q[i], with
// h22 fixed to 1. Returns false for degenerate point configurations.
func computeHomography(p, q [4]utils.Point) ([9]float64, bool) {
	// 8x8 system A*h = b for the unknowns h00..h21.
	A := [8][8]float64{}
	b := [8]float64{}
	for i := range 4 {
		X, Y := p[i].X, p[i].Y
		x, y := q[i].X, q[i].Y
		r := 2 * i
		// x' = (h00 X + h01 Y + h02)/(h20 X + h21 Y + 1)
		A[r][0] = X
		A[r][1] = Y
		A[r][2] = 1
		A[r][6] = -X * x
		A[r][7] = -Y * x
		b[r] = x
		// y' = (h10 X + h11 Y + h12)/(h20 X + h21 Y + 1)
		A[r+1][3] = X
		A[r+1][4] = Y
		A[r+1][5] = 1
		A[r+1][6] = -X * y
		A[r+1][7] = -Y * y
		b[r+1] = y
	}

	h, ok := solve8x8(A, b)
	if !ok {
		return [9]float64{}, false
	}
	return [9]float64{h[0], h[1], h[2], h[3], h[4], h[5], h[6], h[7], 1}, true
}

// solve8x8 solves the linear system by Gauss-Jordan elimination with partial
// pivoting.
func solve8x8(a [8][8]float64, b [8]float64) ([8]float64, bool) {
	matrix := a
	vector := b

	for col := range 8 {
		pivot := col
		maxAbs := absF(matrix[col][col])
		for r := col + 1; r < 8; r++ {
			if v := absF(matrix[r][col]); v > maxAbs {
				maxAbs = v
				pivot = r
			}
		}
		if maxAbs == 0 {
			return [8]float64{}, false
		}
		if pivot != col {
			matrix[col], matrix[pivot] = matrix[pivot], matrix[col]
			vector[col], vector[pivot] = vector[pivot], vector[col]
		}
		div := matrix[col][col]
		for c := col; c < 8; c++ {
			matrix[col][c] /= div
		}
		vector[col] /= div
		for r := range 8 {
			if r == col {
				continue
			}
			factor := matrix[r][col]
			if factor == 0 {
				continue
			}
			for c := col; c < 8; c++ {
				matrix[r][c] -= factor * matrix[col][c]
			}
			vector[r] -= factor * vector[col]
		}
	}
	return vector, true
}

func applyHomography(h [9]float64, x, y float64) (float64, float64) {
	denom := h[6]*x + h[7]*y + h[8]
	if denom == 0 {
		return -1e9, -1e9
	}
	return (h[0]*x + h[1]*y + h[2]) / denom, (h[3]*x + h[4]*y + h[5]) / denom
}

// warpPerspective maps the quadrilateral srcQuad (ordered TL, TR, BR, BL)
// onto a dstW x dstH rectangle using inverse homography with bilinear
// sampling. Samples outside the source map to black.
func warpPerspective(src image.Image, srcQuad [4]utils.Point, dstW, dstH int) *image.NRGBA {
	if dstW <= 0 || dstH <= 0 {
		return nil
	}
	dst := [4]utils.Point{
		{X: 0, Y: 0},
		{X: float64(dstW - 1), Y: 0},
		{X: float64(dstW - 1), Y: float64(dstH - 1)},
		{X: 0, Y: float64(dstH - 1)},
	}
	H, ok := computeHomography(dst, srcQuad)
	if !ok {
		return nil
	}

	out := image.NewNRGBA(image.Rect(0, 0, dstW, dstH))
	sb := src.Bounds()
	for y := range dstH {
		for x := range dstW {
			sx, sy := applyHomography(H, float64(x), float64(y))
			c := bilinearSample(src, sx+float64(sb.Min.X), sy+float64(sb.Min.Y))
			out.Set(x, y, c)
		}
	}
	return out
}

func bilinearSample(src image.Image, x, y float64) color.Color {
	b := src.Bounds()
	if x < float64(b.Min.X) || y < float64(b.Min.Y) || x > float64(b.Max.X-1) || y > float64(b.Max.Y-1) {
		return color.NRGBA{0, 0, 0, 255}
	}
	x0 := int(x)
	y0 := int(y)
	x1 := x0 + 1
	y1 := y0 + 1
	if x1 >= b.Max.X {
		x1 = b.Max.X - 1
	}
	if y1 >= b.Max.Y {
		y1 = b.Max.Y - 1
	}
	fx := x - float64(x0)
	fy := y - float64(y0)
	c00 := toFloats(src.At(x0, y0))
	c10 := toFloats(src.At(x1, y0))
	c01 := toFloats(src.At(x0, y1))
	c11 := toFloats(src.At(x1, y1))
	r := lerp(lerp(c00.r, c10.r, fx), lerp(c01.r, c11.r, fx), fy)
	g := lerp(lerp(c00.g, c10.g, fx), lerp(c01.g, c11.g, fx), fy)
	bl := lerp(lerp(c00.b, c10.b, fx), lerp(c01.b, c11.b, fx), fy)
	return color.NRGBA{uint8(r + 0.5), uint8(g + 0.5), uint8(bl + 0.5), 255}
}

type floatRGB struct{ r, g, b float64 }

func toFloats(c color.Color) floatRGB {
	r, g, b, _ := c.RGBA()
	return floatRGB{r: float64(r >> 8), g: float64(g >> 8), b: float64(b >> 8)}
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
