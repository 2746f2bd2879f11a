package document

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/mydraw/mydraw/internal/typeid"
)

var ErrInvalidShape = errors.New("invalid shape")

// Kind is the shape discriminant. Its numeric value is also the record type
// byte of the .mydraw format, so existing values must never be renumbered.
type Kind uint8

const (
	KindPoint Kind = iota
	KindLine
	KindCircle
	KindEllipse
	KindSquare
	KindRectangle
	KindFreehand
)

var kindNames = [...]string{
	KindPoint:     "point",
	KindLine:      "line",
	KindCircle:    "circle",
	KindEllipse:   "ellipse",
	KindSquare:    "square",
	KindRectangle: "rectangle",
	KindFreehand:  "freehand",
}

// Kinds lists every shape kind in discriminant order.
func Kinds() []Kind {
	return []Kind{KindPoint, KindLine, KindCircle, KindEllipse, KindSquare, KindRectangle, KindFreehand}
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool { return k <= KindFreehand }

func (k Kind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
	return kindNames[k]
}

// ParseKind maps a kind name back to its Kind.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if strings.EqualFold(k.String(), s) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown shape kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("unknown shape kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Color is a 32-bit ARGB color. Alpha 0 on a fill color means "no fill".
type Color uint32

// ARGB packs the four channels into a Color.
func ARGB(a, r, g, b uint8) Color {
	return Color(uint32(a)<<24 | uint32(r)<<16 | uint32(g)<<8 | uint32(b))
}

func (c Color) A() uint8 { return uint8(c >> 24) }
func (c Color) R() uint8 { return uint8(c >> 16) }
func (c Color) G() uint8 { return uint8(c >> 8) }
func (c Color) B() uint8 { return uint8(c) }

// NRGBA converts the color for image/color consumers.
func (c Color) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R(), G: c.G(), B: c.B(), A: c.A()}
}

// CSS renders the color the way a Canvas2D context expects it.
func (c Color) CSS() string {
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", c.R(), c.G(), c.B(),
		strconv.FormatFloat(float64(c.A())/255, 'f', -1, 64))
}

// Hex renders the color as #AARRGGBB.
func (c Color) Hex() string {
	return fmt.Sprintf("#%08X", uint32(c))
}

// ParseColor accepts #RRGGBB (opaque) or #AARRGGBB.
func ParseColor(s string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(h) {
	case 6:
		h = "FF" + h
	case 8:
	default:
		return 0, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color(v), nil
}

var (
	Black       = ARGB(0xFF, 0, 0, 0)
	White       = ARGB(0xFF, 0xFF, 0xFF, 0xFF)
	Transparent = Color(0)
)

// Style holds the paint attributes shared by every shape.
type Style struct {
	StrokeColor Color   `json:"strokeColor"`
	FillColor   Color   `json:"fillColor"`
	StrokeWidth float32 `json:"strokeWidth"`
}

// DefaultStyle is a 2-unit black outline without fill.
func DefaultStyle() Style {
	return Style{StrokeColor: Black, FillColor: Transparent, StrokeWidth: 2}
}

// Shape is a drawable primitive. It is a value type: transforms return a
// new Shape carrying the same ID rather than mutating shared state.
//
// For KindFreehand, Points holds the sampled polyline and Start/End mirror
// its first and last point. Other kinds leave Points nil.
type Shape struct {
	ID          string  `json:"id"`
	Kind        Kind    `json:"kind"`
	StrokeColor Color   `json:"strokeColor"`
	FillColor   Color   `json:"fillColor"`
	StrokeWidth float32 `json:"strokeWidth"`
	Start       Point   `json:"start"`
	End         Point   `json:"end"`
	Points      []Point `json:"points,omitempty"`
	Selected    bool    `json:"selected"`
}

// FreehandMinDistance is the thinning threshold for freehand sampling.
const FreehandMinDistance = 2.5

// NewShape creates a shape of the given kind anchored at start, with a fresh ID.
func NewShape(kind Kind, style Style, start Point) Shape {
	s := Shape{
		ID:          typeid.NewShapeID(),
		Kind:        kind,
		StrokeColor: style.StrokeColor,
		FillColor:   style.FillColor,
		StrokeWidth: style.StrokeWidth,
		Start:       start,
		End:         start,
	}
	if kind == KindFreehand {
		s.Points = []Point{start}
	}
	return s
}

// NewFreehand builds a committed freehand shape from an existing, non-empty
// point sequence. The shape takes ownership of pts; no thinning is applied.
func NewFreehand(style Style, pts []Point) Shape {
	s := NewShape(KindFreehand, style, pts[0])
	s.Points = pts
	s.End = pts[len(pts)-1]
	return s
}

// Style returns the paint attributes of the shape.
func (s Shape) Style() Style {
	return Style{StrokeColor: s.StrokeColor, FillColor: s.FillColor, StrokeWidth: s.StrokeWidth}
}

// Filled reports whether the interior is painted.
func (s Shape) Filled() bool { return s.FillColor.A() > 0 }

// Clone returns a deep copy of the shape.
func (s Shape) Clone() Shape {
	if s.Points != nil {
		s.Points = append([]Point(nil), s.Points...)
	}
	return s
}

// AddPoint appends p to an in-progress freehand stroke if it is at least
// FreehandMinDistance away from the last accepted point. It reports whether
// the point was accepted. Non-freehand shapes ignore the call.
func (s *Shape) AddPoint(p Point) bool {
	if s.Kind != KindFreehand {
		return false
	}
	if n := len(s.Points); n > 0 && s.Points[n-1].Dist(p) < FreehandMinDistance {
		return false
	}
	s.Points = append(s.Points, p)
	s.Start = s.Points[0]
	s.End = p
	return true
}

// Validate checks the invariants every persisted shape must hold.
func (s Shape) Validate() error {
	if !s.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %d", ErrInvalidShape, uint8(s.Kind))
	}
	w := float64(s.StrokeWidth)
	if math.IsNaN(w) || math.IsInf(w, 0) || w <= 0 {
		return fmt.Errorf("%w: stroke width %v", ErrInvalidShape, s.StrokeWidth)
	}
	if s.Kind == KindFreehand {
		if len(s.Points) == 0 {
			return fmt.Errorf("%w: freehand without points", ErrInvalidShape)
		}
		for _, p := range s.Points {
			if !p.IsFinite() {
				return fmt.Errorf("%w: non-finite point", ErrInvalidShape)
			}
		}
		return nil
	}
	if !s.Start.IsFinite() || !s.End.IsFinite() {
		return fmt.Errorf("%w: non-finite coordinate", ErrInvalidShape)
	}
	return nil
}

// CloneAll deep-copies a shape list.
func CloneAll(shapes []Shape) []Shape {
	if shapes == nil {
		return nil
	}
	out := make([]Shape, len(shapes))
	for i, s := range shapes {
		out[i] = s.Clone()
	}
	return out
}
