package document

import "math"

// NewSampleDrawing returns one shape of every kind laid out on a 640x360
// canvas, in painter's order.
func NewSampleDrawing() []Shape {
	outline := Style{StrokeColor: ARGB(0xFF, 0x1A, 0x1A, 0x2E), StrokeWidth: 3}
	filled := Style{
		StrokeColor: ARGB(0xFF, 0x4A, 0x90, 0xD9),
		FillColor:   ARGB(0x80, 0x4A, 0x90, 0xD9),
		StrokeWidth: 2,
	}
	accent := Style{
		StrokeColor: ARGB(0xFF, 0xE9, 0x45, 0x60),
		FillColor:   ARGB(0xFF, 0xF5, 0xA6, 0x23),
		StrokeWidth: 4,
	}

	rect := NewShape(KindRectangle, filled, Pt(40, 40))
	rect.End = Pt(220, 140)

	square := NewShape(KindSquare, accent, Pt(260, 40))
	square.End = Pt(340, 110)

	circle := NewShape(KindCircle, outline, Pt(460, 90))
	circle.End = Pt(510, 90)

	ellipse := NewShape(KindEllipse, filled, Pt(40, 180))
	ellipse.End = Pt(240, 280)

	line := NewShape(KindLine, outline, Pt(280, 180))
	line.End = Pt(420, 300)

	point := NewShape(KindPoint, accent, Pt(460, 200))

	// A sine wave sampled densely enough that thinning keeps most points.
	wave := NewShape(KindFreehand, outline, Pt(440, 300))
	for x := 440.0; x <= 600; x += 4 {
		wave.AddPoint(Pt(x, 300+20*math.Sin((x-440)/16)))
	}

	return []Shape{rect, square, circle, ellipse, line, point, wave}
}
