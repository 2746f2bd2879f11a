package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/mydraw/mydraw/internal/document"
	"github.com/mydraw/mydraw/internal/engine"
)

// WritePDF renders shapes as vector paths on a single page measuring
// opts.Width x opts.Height points.
func WritePDF(w io.Writer, shapes []document.Shape, opts Options) error {
	if err := opts.validate(); err != nil {
		return err
	}
	width, height := float64(opts.Width), float64(opts.Height)

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: width, Ht: height},
	})
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	pdf.SetLineCapStyle("round")
	pdf.SetLineJoinStyle("round")

	if opts.Background.A() > 0 {
		setAlpha(pdf, opts.Background)
		pdf.SetFillColor(int(opts.Background.R()), int(opts.Background.G()), int(opts.Background.B()))
		pdf.Rect(0, 0, width, height, "F")
	}

	m := Fit(shapes, width, height)
	k := lineScale(m)
	sink := pdfPath{pdf}

	for _, cmd := range engine.DrawCommands(shapes) {
		if cmd.Fill != "" {
			setAlpha(pdf, cmd.FillColor)
			pdf.SetFillColor(int(cmd.FillColor.R()), int(cmd.FillColor.G()), int(cmd.FillColor.B()))
			replay(cmd.Path, m, sink)
			pdf.DrawPath("F")
		}
		if cmd.Stroke != "" {
			setAlpha(pdf, cmd.StrokeColor)
			pdf.SetDrawColor(int(cmd.StrokeColor.R()), int(cmd.StrokeColor.G()), int(cmd.StrokeColor.B()))
			pdf.SetLineWidth(cmd.StrokeWidth * k)
			replay(cmd.Path, m, sink)
			pdf.DrawPath("D")
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func setAlpha(pdf *gofpdf.Fpdf, c document.Color) {
	pdf.SetAlpha(float64(c.A())/255, "Normal")
}

// pdfPath adapts gofpdf's path builder to the replay sink.
type pdfPath struct {
	pdf *gofpdf.Fpdf
}

func (p pdfPath) MoveTo(x, y float64) { p.pdf.MoveTo(x, y) }
func (p pdfPath) LineTo(x, y float64) { p.pdf.LineTo(x, y) }
func (p pdfPath) ClosePath()          { p.pdf.ClosePath() }

func (p pdfPath) CubicTo(c1x, c1y, c2x, c2y, x, y float64) {
	p.pdf.CurveBezierCubicTo(c1x, c1y, c2x, c2y, x, y)
}
