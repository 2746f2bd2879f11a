package engine

import (
	"github.com/mydraw/mydraw/internal/document"
)

// HandleRadius is how close a pointer must be to a selection corner to grab it.
const HandleRadius = 12.0

// SelectAt returns the index of the topmost shape containing p.
// Shapes are tested in reverse order since later shapes paint on top.
func SelectAt(shapes []document.Shape, p document.Point) (int, bool) {
	for i := len(shapes) - 1; i >= 0; i-- {
		if shapes[i].Contains(p) {
			return i, true
		}
	}
	return -1, false
}

// HandleAt returns the corner handle of box nearest to p, if one lies within
// radius.
func HandleAt(box document.Rect, p document.Point, radius float64) (Handle, bool) {
	best, found := HandleTopLeft, false
	bestDist := radius
	for h := HandleTopLeft; h <= HandleBottomRight; h++ {
		if d := Corner(box, h).Dist(p); d <= bestDist {
			best, bestDist, found = h, d, true
		}
	}
	return best, found
}

// Handles returns the four corner handle positions of box, indexed by Handle.
func Handles(box document.Rect) [4]document.Point {
	var out [4]document.Point
	for h := HandleTopLeft; h <= HandleBottomRight; h++ {
		out[h] = Corner(box, h)
	}
	return out
}
