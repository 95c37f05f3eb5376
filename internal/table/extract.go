package table

import (
	"errors"
	"image"
	"log/slog"
	"math"

	"github.com/disintegration/imaging"
	"github.com/tallyvid/tallyvid/internal/mempool"
	"github.com/tallyvid/tallyvid/internal/utils"
)

// ErrNotFound reports that no contour in the frame qualifies as a score
// table. Frames that trigger it are skipped, not fatal.
var ErrNotFound = errors.New("score table not found")

// MinAreaRatio is the smallest fraction of the frame a contour must cover to
// be considered the table. Relative so it holds across video resolutions.
const MinAreaRatio = 0.05

// Extract localizes the score table in a frame and returns a perspective
// corrected crop of its right half, where the handwritten scores live.
func Extract(img image.Image) (*image.NRGBA, error) {
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, ErrNotFound
	}

	gray := utils.ToGray(img)
	blurred := gaussianBlur(gray, blurKernelSize)
	mask := adaptiveThresholdInv(blurred, thresholdWindowSize, thresholdOffset)
	contours := externalContours(mask, w, h)
	mempool.PutBool(mask)

	minArea := float64(w*h) * MinAreaRatio
	for _, cnt := range contours {
		if cnt.area < minArea {
			// Sorted by area, nothing below qualifies either.
			break
		}
		crop, ok := warpContour(img, cnt)
		if !ok {
			continue
		}
		return crop, nil
	}

	slog.Debug("no table contour above area threshold",
		"contours", len(contours), "min_area", minArea)
	return nil, ErrNotFound
}

// warpContour fits a minimum-area rectangle to the contour, warps it to an
// axis-aligned rectangle and crops the right half. Returns false when the
// geometry degenerates.
func warpContour(img image.Image, cnt contour) (*image.NRGBA, bool) {
	rect := utils.MinimumAreaRectangle(cnt.points)
	if len(rect) != 4 {
		return nil, false
	}
	quad := utils.OrderQuadCorners(rect)
	tl, tr, br, bl := quad[0], quad[1], quad[2], quad[3]

	dstW := int(math.Max(utils.EdgeLength(br, bl), utils.EdgeLength(tr, tl)))
	dstH := int(math.Max(utils.EdgeLength(tr, br), utils.EdgeLength(tl, bl)))
	if dstW < 2 || dstH < 1 {
		return nil, false
	}

	warped := warpPerspective(img, quad, dstW, dstH)
	if warped == nil {
		return nil, false
	}

	// Scores occupy the right half of the table. Detections and classifier
	// boxes are crop-local, so the crop must start at the origin.
	half := dstW / 2
	crop := imaging.Crop(warped, image.Rect(half, 0, dstW, dstH))
	cb := crop.Bounds()
	if cb.Dx() == 0 || cb.Dy() == 0 {
		return nil, false
	}
	return crop, true
}
