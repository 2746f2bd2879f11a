package document

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func rectShape(fill Color) Shape {
	s := NewShape(KindRectangle, Style{StrokeColor: Black, FillColor: fill, StrokeWidth: 2}, Pt(10, 10))
	s.End = Pt(100, 50)
	return s
}

func TestRectangleBoundsInflatedByStroke(t *testing.T) {
	got := rectShape(Transparent).Bounds()
	want := Rect{Min: Pt(8, 8), Max: Pt(102, 52)}
	if got != want {
		t.Fatalf("Bounds() = %+v, want %+v", got, want)
	}
}

func TestRectangleInteriorRequiresFill(t *testing.T) {
	center := Pt(55, 30)
	if rectShape(Transparent).Contains(center) {
		t.Error("unfilled rectangle should not contain its interior")
	}
	if !rectShape(ARGB(0x01, 0xFF, 0, 0)).Contains(center) {
		t.Error("filled rectangle should contain its interior")
	}
}

func TestRectangleBorderBand(t *testing.T) {
	s := rectShape(Transparent)
	cases := []struct {
		p    Point
		want bool
	}{
		{Pt(10, 30), true},  // on the left edge
		{Pt(4, 30), true},   // inside the tolerance band outside
		{Pt(15, 30), true},  // inside the tolerance band inside
		{Pt(3, 30), false},  // beyond w/2 + tolerance
		{Pt(17, 30), false}, // past the inner band
	}
	for _, c := range cases {
		if got := s.Contains(c.p); got != c.want {
			t.Errorf("Contains(%v) = %v, want %v", c.p, got, c.want)
		}
	}
}

func TestLineContainsWithinTolerance(t *testing.T) {
	s := NewShape(KindLine, Style{StrokeColor: Black, StrokeWidth: 4}, Pt(0, 0))
	s.End = Pt(100, 0)

	if !s.Contains(Pt(50, 2)) {
		t.Error("point at strokeWidth/2 should be contained")
	}
	if s.Contains(Pt(50, 2+6)) {
		t.Error("point at strokeWidth/2 + 6 should not be contained")
	}
	// The projection is clamped, so points past the end measure to the endpoint.
	if !s.Contains(Pt(106, 0)) {
		t.Error("point just past the endpoint should be contained")
	}
	if s.Contains(Pt(110, 0)) {
		t.Error("point beyond the endpoint reach should not be contained")
	}
}

func TestCircleContains(t *testing.T) {
	s := NewShape(KindCircle, Style{StrokeColor: Black, StrokeWidth: 2}, Pt(0, 0))
	s.End = Pt(50, 0)

	if !s.Contains(Pt(0, 50)) {
		t.Error("point on the circle should be contained")
	}
	if s.Contains(Pt(0, 0)) {
		t.Error("center of an unfilled circle should not be contained")
	}
	if s.Contains(Pt(60, 0)) {
		t.Error("point outside the band should not be contained")
	}

	s.FillColor = White
	if !s.Contains(Pt(0, 0)) {
		t.Error("center of a filled circle should be contained")
	}
}

func TestEllipseContains(t *testing.T) {
	s := NewShape(KindEllipse, Style{StrokeColor: Black, StrokeWidth: 2}, Pt(0, 0))
	s.End = Pt(100, 50)

	if !s.Contains(Pt(100, 25)) {
		t.Error("point on the ellipse should be contained")
	}
	if s.Contains(Pt(50, 25)) {
		t.Error("center of an unfilled ellipse should not be contained")
	}
	s.FillColor = White
	if !s.Contains(Pt(50, 25)) {
		t.Error("center of a filled ellipse should be contained")
	}
}

func TestDegenerateEllipseFallsBackToSegment(t *testing.T) {
	s := NewShape(KindEllipse, Style{StrokeColor: Black, StrokeWidth: 2}, Pt(0, 0))
	s.End = Pt(100, 0)
	if !s.Contains(Pt(50, 3)) {
		t.Error("flat ellipse should behave like its segment")
	}
}

func TestSquareLogicalBoundsPreservesSign(t *testing.T) {
	s := NewShape(KindSquare, DefaultStyle(), Pt(0, 0))
	s.End = Pt(10, -30)
	got := s.LogicalBounds()
	want := Rect{Min: Pt(0, -30), Max: Pt(30, 0)}
	if got != want {
		t.Fatalf("LogicalBounds() = %+v, want %+v", got, want)
	}
}

func TestCircleLogicalBoundsCircumscribes(t *testing.T) {
	s := NewShape(KindCircle, DefaultStyle(), Pt(10, 10))
	s.End = Pt(13, 14)
	got := s.LogicalBounds()
	want := Rect{Min: Pt(5, 5), Max: Pt(15, 15)}
	if got != want {
		t.Fatalf("LogicalBounds() = %+v, want %+v", got, want)
	}
}

func TestFreehandThinning(t *testing.T) {
	s := NewShape(KindFreehand, DefaultStyle(), Pt(0, 0))
	if s.AddPoint(Pt(1, 1)) {
		t.Error("point closer than the threshold should be rejected")
	}
	if !s.AddPoint(Pt(2.5, 0)) {
		t.Error("point exactly at the threshold should be accepted")
	}
	if !s.AddPoint(Pt(10, 0)) {
		t.Error("distant point should be accepted")
	}
	if len(s.Points) != 3 {
		t.Fatalf("len(Points) = %d, want 3", len(s.Points))
	}
	if s.Start != Pt(0, 0) || s.End != Pt(10, 0) {
		t.Errorf("start/end = %v/%v, want first/last point", s.Start, s.End)
	}

	b := s.LogicalBounds()
	if b.Min != Pt(0, 0) || b.Max != Pt(10, 0) {
		t.Errorf("LogicalBounds() = %+v", b)
	}
	if !s.Contains(Pt(5, 4)) {
		t.Error("point near the polyline should be contained")
	}
}

func TestAddPointIgnoredForOtherKinds(t *testing.T) {
	s := NewShape(KindLine, DefaultStyle(), Pt(0, 0))
	if s.AddPoint(Pt(50, 50)) {
		t.Fatal("AddPoint on a line should be ignored")
	}
	if s.Points != nil {
		t.Fatal("line should not carry points")
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := NewShape(KindFreehand, DefaultStyle(), Pt(0, 0))
	s.AddPoint(Pt(10, 0))
	c := s.Clone()
	c.Points[0] = Pt(99, 99)
	if s.Points[0] != Pt(0, 0) {
		t.Fatal("Clone shares the points slice")
	}
	if c.ID != s.ID {
		t.Fatal("Clone must keep the ID")
	}
}

func TestValidate(t *testing.T) {
	ok := NewShape(KindLine, DefaultStyle(), Pt(0, 0))
	if err := ok.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	bad := []Shape{
		func() Shape { s := ok; s.StrokeWidth = 0; return s }(),
		func() Shape { s := ok; s.StrokeWidth = float32(math.NaN()); return s }(),
		func() Shape { s := ok; s.End = Pt(math.Inf(1), 0); return s }(),
		func() Shape { s := ok; s.Kind = Kind(42); return s }(),
		func() Shape { s := ok; s.Kind = KindFreehand; s.Points = nil; return s }(),
	}
	for i, s := range bad {
		if err := s.Validate(); !errors.Is(err, ErrInvalidShape) {
			t.Errorf("case %d: Validate() = %v, want ErrInvalidShape", i, err)
		}
	}
}

func TestColor(t *testing.T) {
	c := ARGB(0x80, 0x11, 0x22, 0x33)
	if c != Color(0x80112233) {
		t.Fatalf("ARGB = %#x", uint32(c))
	}
	if c.A() != 0x80 || c.R() != 0x11 || c.G() != 0x22 || c.B() != 0x33 {
		t.Fatalf("channels = %d %d %d %d", c.A(), c.R(), c.G(), c.B())
	}
	if got := Black.CSS(); got != "rgba(0,0,0,1)" {
		t.Errorf("CSS() = %q", got)
	}

	parsed, err := ParseColor("#112233")
	if err != nil {
		t.Fatalf("ParseColor: %v", err)
	}
	if parsed != Color(0xFF112233) {
		t.Errorf("ParseColor(#112233) = %#x", uint32(parsed))
	}
	if parsed.Hex() != "#FF112233" {
		t.Errorf("Hex() = %q", parsed.Hex())
	}
	if _, err := ParseColor("#12345"); err == nil {
		t.Error("expected error for malformed color")
	}
}

func TestKindJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		K Kind `json:"k"`
	}{KindEllipse})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"k":"ellipse"}` {
		t.Fatalf("got %s", data)
	}

	var out struct {
		K Kind `json:"k"`
	}
	if err := json.Unmarshal([]byte(`{"k":"Freehand"}`), &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if out.K != KindFreehand {
		t.Fatalf("got %v", out.K)
	}
}

func TestSampleDrawingCoversEveryKind(t *testing.T) {
	seen := map[Kind]bool{}
	for _, s := range NewSampleDrawing() {
		if err := s.Validate(); err != nil {
			t.Errorf("sample %s: %v", s.Kind, err)
		}
		seen[s.Kind] = true
	}
	for _, k := range Kinds() {
		if !seen[k] {
			t.Errorf("sample drawing is missing %s", k)
		}
	}
}
