package document

import "math"

// HitTolerance widens every containment test so thin strokes stay selectable.
const HitTolerance = 5.0

// squareEnd returns the sign-preserving far corner of a Square.
func (s Shape) squareEnd() Point {
	dx, dy := s.End.X-s.Start.X, s.End.Y-s.Start.Y
	side := math.Max(math.Abs(dx), math.Abs(dy))
	return Point{X: s.Start.X + sign(dx)*side, Y: s.Start.Y + sign(dy)*side}
}

// Radius is the circle radius, |End-Start|. Only meaningful for KindCircle.
func (s Shape) Radius() float64 {
	return s.Start.Dist(s.End)
}

// LogicalBounds is the type-specific box resize operates on. It differs from
// Bounds in that no stroke inflation is applied.
func (s Shape) LogicalBounds() Rect {
	switch s.Kind {
	case KindCircle:
		r := s.Radius()
		return Rect{
			Min: Point{X: s.Start.X - r, Y: s.Start.Y - r},
			Max: Point{X: s.Start.X + r, Y: s.Start.Y + r},
		}
	case KindSquare:
		return RectFromPoints(s.Start, s.squareEnd())
	case KindFreehand:
		if len(s.Points) > 0 {
			return boundsOf(s.Points)
		}
	}
	return RectFromPoints(s.Start, s.End)
}

// Bounds is the rendered extent of the shape, grown by the stroke width on
// every side so the outline and its anti-aliased edge are covered.
func (s Shape) Bounds() Rect {
	return s.LogicalBounds().Inflate(float64(s.StrokeWidth))
}

// Contains reports whether p hits the shape, using HitTolerance around the
// stroke and, for filled shapes, the interior as well.
func (s Shape) Contains(p Point) bool {
	reach := float64(s.StrokeWidth)/2 + HitTolerance
	switch s.Kind {
	case KindPoint:
		return p.Dist(s.Start) <= reach
	case KindLine:
		return segmentDistance(p, s.Start, s.End) <= reach
	case KindFreehand:
		return polylineContains(s.Points, p, reach)
	case KindRectangle, KindSquare:
		r := s.LogicalBounds()
		if !r.Inflate(reach).Contains(p) {
			return false
		}
		return s.Filled() || !r.Inflate(-reach).Contains(p)
	case KindCircle:
		r := s.Radius()
		return ellipseContains(s.Start, r, r, p, reach, s.Filled())
	case KindEllipse:
		b := s.LogicalBounds()
		return ellipseContains(b.Center(), b.Width()/2, b.Height()/2, p, reach, s.Filled())
	}
	return false
}

func polylineContains(pts []Point, p Point, reach float64) bool {
	switch len(pts) {
	case 0:
		return false
	case 1:
		return p.Dist(pts[0]) <= reach
	}
	for i := 1; i < len(pts); i++ {
		if segmentDistance(p, pts[i-1], pts[i]) <= reach {
			return true
		}
	}
	return false
}

// ellipseContains tests p against the unit-normalized ellipse centered at c.
// The tolerance band is scaled by the minor radius.
func ellipseContains(c Point, rx, ry float64, p Point, reach float64, filled bool) bool {
	minR := math.Min(rx, ry)
	if minR <= 0 {
		// Collapsed to a point or a segment.
		if rx <= 0 && ry <= 0 {
			return p.Dist(c) <= reach
		}
		a := Point{X: c.X - rx, Y: c.Y - ry}
		b := Point{X: c.X + rx, Y: c.Y + ry}
		return segmentDistance(p, a, b) <= reach
	}
	nx := (p.X - c.X) / rx
	ny := (p.Y - c.Y) / ry
	d := math.Sqrt(nx*nx + ny*ny)
	band := reach / minR
	if filled {
		return d <= 1+band
	}
	return math.Abs(d-1) <= band
}

func sign(f float64) float64 {
	if f < 0 {
		return -1
	}
	return 1
}
