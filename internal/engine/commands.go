package engine

import (
	"encoding/json"
	"math"

	"github.com/mydraw/mydraw/internal/document"
)

// DrawCommand represents a single drawing operation for a renderer to execute.
// Renderers receive a list of these and replay them on a Canvas2D context,
// a raster context or a PDF page.
type DrawCommand struct {
	Op          string         `json:"op"`                    // Operation: "path"
	ShapeID     string         `json:"shapeId,omitempty"`     // For hit correlation
	Kind        string         `json:"kind,omitempty"`        // Shape kind name
	Path        []PathCommand  `json:"path,omitempty"`        // Path data for "path" ops
	Closed      bool           `json:"closed,omitempty"`      // Path encloses an area
	Fill        string         `json:"fill,omitempty"`        // Fill color
	Stroke      string         `json:"stroke,omitempty"`      // Stroke color
	StrokeWidth float64        `json:"strokeWidth,omitempty"` // Stroke width
	Dot         float64        `json:"dot,omitempty"`         // Radius of a point shape
	FillColor   document.Color `json:"-"`
	StrokeColor document.Color `json:"-"`
}

// PathCommand represents a single path segment for rendering.
// Format matches Canvas2D: ["M", x, y], ["L", x, y], ["C", x1, y1, x2, y2, x, y], ["Z"].
type PathCommand []interface{}

// DrawCommands generates a draw command buffer from a shape list.
// Commands are in painter's order (back to front).
func DrawCommands(shapes []document.Shape) []DrawCommand {
	commands := make([]DrawCommand, 0, len(shapes))
	for _, s := range shapes {
		commands = append(commands, CompileShape(s))
	}
	return commands
}

// CompileShape is the draw capability of a single shape.
func CompileShape(s document.Shape) DrawCommand {
	cmd := DrawCommand{
		Op:          "path",
		ShapeID:     s.ID,
		Kind:        s.Kind.String(),
		StrokeWidth: float64(s.StrokeWidth),
		StrokeColor: s.StrokeColor,
	}

	switch s.Kind {
	case document.KindPoint:
		// A dot is a filled disc as wide as the stroke.
		r := math.Max(float64(s.StrokeWidth)/2, 0.5)
		cmd.Dot = r
		cmd.Path = ellipsePath(s.Start, r, r)
		cmd.Closed = true
		cmd.FillColor = s.StrokeColor
		cmd.StrokeWidth = 0
		cmd.StrokeColor = document.Transparent
	case document.KindLine:
		cmd.Path = []PathCommand{
			{"M", s.Start.X, s.Start.Y},
			{"L", s.End.X, s.End.Y},
		}
	case document.KindFreehand:
		cmd.Path = polylinePath(s.Points)
	case document.KindRectangle, document.KindSquare:
		cmd.Path = rectPath(s.LogicalBounds())
		cmd.Closed = true
	case document.KindCircle:
		r := s.Radius()
		cmd.Path = ellipsePath(s.Start, r, r)
		cmd.Closed = true
	case document.KindEllipse:
		b := s.LogicalBounds()
		cmd.Path = ellipsePath(b.Center(), b.Width()/2, b.Height()/2)
		cmd.Closed = true
	}

	if cmd.Closed && s.Kind != document.KindPoint && s.Filled() {
		cmd.FillColor = s.FillColor
	}
	if cmd.FillColor.A() > 0 {
		cmd.Fill = cmd.FillColor.CSS()
	}
	if cmd.StrokeColor.A() > 0 && cmd.StrokeWidth > 0 {
		cmd.Stroke = cmd.StrokeColor.CSS()
	}
	return cmd
}

// rectPath generates path commands for a rectangle.
func rectPath(r document.Rect) []PathCommand {
	return []PathCommand{
		{"M", r.Min.X, r.Min.Y},
		{"L", r.Max.X, r.Min.Y},
		{"L", r.Max.X, r.Max.Y},
		{"L", r.Min.X, r.Max.Y},
		{"Z"},
	}
}

// ellipsePath generates path commands for an ellipse using bezier curves.
func ellipsePath(c document.Point, rx, ry float64) []PathCommand {
	// Magic number for bezier approximation of a circle/ellipse
	// k = 4 * (sqrt(2) - 1) / 3 ≈ 0.5522847498
	k := 0.5522847498
	kx, ky := rx*k, ry*k
	x, y := c.X, c.Y

	// Four bezier curves to approximate an ellipse
	return []PathCommand{
		{"M", x + rx, y},
		{"C", x + rx, y + ky, x + kx, y + ry, x, y + ry},
		{"C", x - kx, y + ry, x - rx, y + ky, x - rx, y},
		{"C", x - rx, y - ky, x - kx, y - ry, x, y - ry},
		{"C", x + kx, y - ry, x + rx, y - ky, x + rx, y},
		{"Z"},
	}
}

func polylinePath(pts []document.Point) []PathCommand {
	if len(pts) == 0 {
		return nil
	}
	path := make([]PathCommand, 0, len(pts)+1)
	path = append(path, PathCommand{"M", pts[0].X, pts[0].Y})
	if len(pts) == 1 {
		// Zero-length segment; round caps turn it into a dot.
		return append(path, PathCommand{"L", pts[0].X, pts[0].Y})
	}
	for _, p := range pts[1:] {
		path = append(path, PathCommand{"L", p.X, p.Y})
	}
	return path
}

// DrawCommandsToJSON serializes draw commands to JSON.
func DrawCommandsToJSON(commands []DrawCommand) (string, error) {
	data, err := json.Marshal(commands)
	if err != nil {
		return "[]", err
	}
	return string(data), nil
}

// ToFloat64 converts a path operand to float64.
func ToFloat64(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
