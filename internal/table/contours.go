package table

import (
	"container/list"
	"math"
	"sort"

	"github.com/tallyvid/tallyvid/internal/utils"
)

// contour is the traced outer boundary of one connected foreground component.
type contour struct {
	points []utils.Point
	area   float64
}

type componentBounds struct {
	minX, minY, maxX, maxY int
}

// externalContours labels 8-connected components in the mask, traces each
// outer boundary and returns the contours sorted by enclosed area, largest
// first.
func externalContours(mask []bool, w, h int) []contour {
	labels := make([]int, w*h)
	var bounds []componentBounds
	label := 0

	for y := range h {
		for x := range w {
			idx := y*w + x
			if mask[idx] && labels[idx] == 0 {
				label++
				bounds = append(bounds, floodFill(mask, labels, w, h, x, y, label))
			}
		}
	}

	contours := make([]contour, 0, len(bounds))
	for i, cb := range bounds {
		pts := traceBoundary(labels, w, h, i+1, cb)
		if len(pts) < 3 {
			continue
		}
		contours = append(contours, contour{points: pts, area: polygonArea(pts)})
	}
	sort.Slice(contours, func(i, j int) bool {
		return contours[i].area > contours[j].area
	})
	return contours
}

// floodFill labels one 8-connected component via BFS and returns its bounds.
func floodFill(mask []bool, labels []int, w, h, startX, startY, label int) componentBounds {
	cb := componentBounds{minX: startX, minY: startY, maxX: startX, maxY: startY}
	q := list.New()
	q.PushBack(startY*w + startX)
	labels[startY*w+startX] = label

	for q.Len() > 0 {
		e := q.Front()
		q.Remove(e)
		ci, ok := e.Value.(int)
		if !ok {
			continue
		}
		cx, cy := ci%w, ci/w
		if cx < cb.minX {
			cb.minX = cx
		}
		if cy < cb.minY {
			cb.minY = cy
		}
		if cx > cb.maxX {
			cb.maxX = cx
		}
		if cy > cb.maxY {
			cb.maxY = cy
		}
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 {
					continue
				}
				nx, ny := cx+dx, cy+dy
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				ni := ny*w + nx
				if mask[ni] && labels[ni] == 0 {
					labels[ni] = label
					q.PushBack(ni)
				}
			}
		}
	}
	return cb
}

// traceBoundary walks the outer boundary of a labeled component using
// Moore-Neighbor tracing. Points are pixel centers; collinear runs are
// collapsed.
func traceBoundary(labels []int, w, h, label int, cb componentBounds) []utils.Point {
	sx, sy := -1, -1
	for y := cb.minY; y <= cb.maxY && sx == -1; y++ {
		for x := cb.minX; x <= cb.maxX; x++ {
			if labels[y*w+x] == label {
				sx, sy = x, y
				break
			}
		}
	}
	if sx == -1 {
		return nil
	}

	isLabel := func(x, y int) bool {
		return x >= 0 && y >= 0 && x < w && y < h && labels[y*w+x] == label
	}

	pts := make([]utils.Point, 0, 64)
	addPoint := func(x, y int) {
		p := utils.Point{X: float64(x), Y: float64(y)}
		n := len(pts)
		if n >= 2 {
			a, b := pts[n-2], pts[n-1]
			cross := (b.X-a.X)*(p.Y-b.Y) - (b.Y-a.Y)*(p.X-b.X)
			if cross == 0 {
				pts = pts[:n-1]
			}
		}
		pts = append(pts, p)
	}

	// 8-neighborhood clockwise: E, SE, S, SW, W, NW, N, NE.
	ndx := [8]int{1, 1, 0, -1, -1, -1, 0, 1}
	ndy := [8]int{0, 1, 1, 1, 0, -1, -1, -1}
	dirIndex := func(dx, dy int) int {
		for i := range 8 {
			if ndx[i] == dx && ndy[i] == dy {
				return i
			}
		}
		return 0
	}

	cx, cy := sx, sy
	bx, by := sx-1, sy
	startCx, startCy, startBx, startBy := cx, cy, bx, by
	addPoint(cx, cy)

	maxSteps := w*h*4 + 8
	for steps := 0; steps < maxSteps; steps++ {
		start := (dirIndex(bx-cx, by-cy) + 1) % 8
		found := false
		for k := range 8 {
			i := (start + k) % 8
			tx, ty := cx+ndx[i], cy+ndy[i]
			if isLabel(tx, ty) {
				bx, by = cx, cy
				cx, cy = tx, ty
				found = true
				break
			}
			bx, by = tx, ty
		}
		if !found {
			break
		}
		if len(pts) == 0 || pts[len(pts)-1].X != float64(cx) || pts[len(pts)-1].Y != float64(cy) {
			addPoint(cx, cy)
		}
		if cx == startCx && cy == startCy && bx == startBx && by == startBy {
			break
		}
	}
	if n := len(pts); n >= 2 && pts[0] == pts[n-1] {
		pts = pts[:n-1]
	}
	return pts
}

// polygonArea is the shoelace area of a closed polygon.
func polygonArea(pts []utils.Point) float64 {
	if len(pts) < 3 {
		return 0
	}
	var sum float64
	for i, p := range pts {
		q := pts[(i+1)%len(pts)]
		sum += p.X*q.Y - q.X*p.Y
	}
	return math.Abs(sum) / 2
}
