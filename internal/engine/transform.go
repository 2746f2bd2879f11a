package engine

import (
	"errors"
	"fmt"
	"math"

	"github.com/mydraw/mydraw/internal/document"
)

// ErrTransformRejected is returned for degenerate resizes. The shape the
// caller holds is left as it was.
var ErrTransformRejected = errors.New("transform rejected")

const (
	// MinResizeDimension is the smallest size a resize may produce on either axis.
	MinResizeDimension = 5.0
	// MinSourceDimension is the smallest source size a scale factor can be
	// derived from.
	MinSourceDimension = 0.1
)

// Handle identifies a corner of a shape's logical bounding box.
type Handle int

const (
	HandleTopLeft Handle = iota
	HandleTopRight
	HandleBottomLeft
	HandleBottomRight
)

func (h Handle) Valid() bool { return h >= HandleTopLeft && h <= HandleBottomRight }

// Opposite returns the diagonal corner, which is the resize anchor.
func (h Handle) Opposite() Handle { return HandleBottomRight - h }

func (h Handle) String() string {
	switch h {
	case HandleTopLeft:
		return "topLeft"
	case HandleTopRight:
		return "topRight"
	case HandleBottomLeft:
		return "bottomLeft"
	case HandleBottomRight:
		return "bottomRight"
	}
	return fmt.Sprintf("handle(%d)", int(h))
}

// Corner returns the position of handle h on the box.
func Corner(box document.Rect, h Handle) document.Point {
	return box.Corner(int(h))
}

// Move translates every coordinate of s by delta.
func Move(s document.Shape, delta document.Point) document.Shape {
	return applyMatrix(s, Translate(delta.X, delta.Y))
}

// Resize drags handle h of the shape's logical bounding box to the point
// to, keeping the opposite corner fixed. Circles and squares scale
// uniformly. No dimension shrinks below MinResizeDimension.
func Resize(s document.Shape, h Handle, to document.Point) (document.Shape, error) {
	if !h.Valid() {
		return s, fmt.Errorf("%w: unknown handle %d", ErrTransformRejected, int(h))
	}

	box := s.LogicalBounds()
	anchor := Corner(box, h.Opposite())
	from := Corner(box, h)

	oldW, oldH := from.X-anchor.X, from.Y-anchor.Y
	newW, newH := to.X-anchor.X, to.Y-anchor.Y
	if math.Abs(oldW) < MinSourceDimension || math.Abs(oldH) < MinSourceDimension {
		return s, fmt.Errorf("%w: %s box is collapsed", ErrTransformRejected, s.Kind)
	}

	sx := clampScale(newW/oldW, oldW)
	sy := clampScale(newH/oldH, oldH)

	if s.Kind == document.KindCircle || s.Kind == document.KindSquare {
		u := sx
		if math.Abs(newH-oldH) > math.Abs(newW-oldW) {
			u = sy
		}
		u = clampScale(u, math.Min(math.Abs(oldW), math.Abs(oldH)))
		sx, sy = u, u
	}

	if !usableScale(sx) || !usableScale(sy) {
		return s, fmt.Errorf("%w: scale %v x %v", ErrTransformRejected, sx, sy)
	}

	return applyMatrix(s, ScaleAbout(sx, sy, anchor)), nil
}

// clampScale keeps |old * scale| >= MinResizeDimension, preserving the sign.
func clampScale(scale, old float64) float64 {
	if math.Abs(old*scale) < MinResizeDimension {
		return math.Copysign(MinResizeDimension/math.Abs(old), scale)
	}
	return scale
}

func usableScale(f float64) bool {
	return f != 0 && !math.IsNaN(f) && !math.IsInf(f, 0)
}
