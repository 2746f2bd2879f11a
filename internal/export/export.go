package export

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/mydraw/mydraw/internal/document"
	"github.com/mydraw/mydraw/internal/engine"
)

var (
	ErrUnknownFormat = errors.New("unknown export format")
	ErrInvalidSize   = errors.New("invalid export size")
)

// Format names an export backend.
type Format string

const (
	FormatPNG   Format = "png"
	FormatPDF   Format = "pdf"
	FormatThumb Format = "thumb"
)

const (
	// MaxDimension bounds the width and height of any export.
	MaxDimension = 8192

	ThumbWidth  = 256
	ThumbHeight = 192

	margin = 16.0
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPNG, FormatPDF, FormatThumb:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// ContentType is the MIME type of the bytes a format produces.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "image/png"
}

// Extension is the file extension for the format, dot included.
func (f Format) Extension() string {
	if f == FormatPDF {
		return ".pdf"
	}
	return ".png"
}

// Options controls the output canvas.
type Options struct {
	Width      int
	Height     int
	Background document.Color
}

func DefaultOptions() Options {
	return Options{
		Width:      1024,
		Height:     768,
		Background: document.ARGB(0xFF, 0xFF, 0xFF, 0xFF),
	}
}

func (o Options) validate() error {
	if o.Width <= 0 || o.Height <= 0 || o.Width > MaxDimension || o.Height > MaxDimension {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, o.Width, o.Height)
	}
	return nil
}

// Write renders shapes in the given format.
func Write(w io.Writer, f Format, shapes []document.Shape, opts Options) error {
	switch f {
	case FormatPNG:
		return WritePNG(w, shapes, opts)
	case FormatPDF:
		return WritePDF(w, shapes, opts)
	case FormatThumb:
		return WriteThumbnail(w, shapes, opts)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// Fit maps drawing coordinates onto a width x height canvas. A drawing that
// already lies inside the canvas keeps its coordinates; otherwise it is
// shifted and uniformly scaled down to fit within a margin.
func Fit(shapes []document.Shape, width, height float64) engine.Matrix2D {
	if len(shapes) == 0 {
		return engine.Identity()
	}
	box := shapes[0].Bounds()
	for _, s := range shapes[1:] {
		box = box.Union(s.Bounds())
	}
	if box.Min.X >= 0 && box.Min.Y >= 0 && box.Max.X <= width && box.Max.Y <= height {
		return engine.Identity()
	}

	scale := 1.0
	availW, availH := width-2*margin, height-2*margin
	if availW <= 0 || availH <= 0 {
		availW, availH = width, height
	}
	if box.Width() > 0 {
		scale = math.Min(scale, availW/box.Width())
	}
	if box.Height() > 0 {
		scale = math.Min(scale, availH/box.Height())
	}

	c := box.Center()
	return engine.Translate(width/2, height/2).
		Multiply(engine.Scale(scale, scale)).
		Multiply(engine.Translate(-c.X, -c.Y))
}

// pathSink receives replayed path segments in output coordinates.
type pathSink interface {
	MoveTo(x, y float64)
	LineTo(x, y float64)
	CubicTo(c1x, c1y, c2x, c2y, x, y float64)
	ClosePath()
}

// replay feeds a draw command's path through m into sink.
func replay(path []engine.PathCommand, m engine.Matrix2D, sink pathSink) {
	identity := m.IsIdentity()
	pt := func(cmd engine.PathCommand, i int) document.Point {
		p := document.Pt(engine.ToFloat64(cmd[i]), engine.ToFloat64(cmd[i+1]))
		if identity {
			return p
		}
		return m.TransformPoint(p)
	}
	for _, cmd := range path {
		if len(cmd) == 0 {
			continue
		}
		op, _ := cmd[0].(string)
		switch {
		case op == "M" && len(cmd) >= 3:
			p := pt(cmd, 1)
			sink.MoveTo(p.X, p.Y)
		case op == "L" && len(cmd) >= 3:
			p := pt(cmd, 1)
			sink.LineTo(p.X, p.Y)
		case op == "C" && len(cmd) >= 7:
			c1, c2, p := pt(cmd, 1), pt(cmd, 3), pt(cmd, 5)
			sink.CubicTo(c1.X, c1.Y, c2.X, c2.Y, p.X, p.Y)
		case op == "Z":
			sink.ClosePath()
		}
	}
}

// lineScale is the factor a uniform matrix applies to stroke widths.
func lineScale(m engine.Matrix2D) float64 {
	return math.Sqrt(math.Abs(m.Determinant()))
}
