package export

import (
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/gogpu/gg"
	xdraw "golang.org/x/image/draw"

	"github.com/mydraw/mydraw/internal/document"
	"github.com/mydraw/mydraw/internal/engine"
)

// Rasterize paints shapes onto a new image of opts.Width x opts.Height.
func Rasterize(shapes []document.Shape, opts Options) (image.Image, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	dc := gg.NewContext(opts.Width, opts.Height)
	defer dc.Close()

	dc.ClearWithColor(rgba(opts.Background))
	dc.SetLineCap(gg.LineCapRound)
	dc.SetLineJoin(gg.LineJoinRound)

	m := Fit(shapes, float64(opts.Width), float64(opts.Height))
	k := lineScale(m)

	for _, cmd := range engine.DrawCommands(shapes) {
		if err := paint(dc, cmd, m, k); err != nil {
			return nil, fmt.Errorf("paint %s %s: %w", cmd.Kind, cmd.ShapeID, err)
		}
	}
	return dc.Image(), nil
}

func paint(dc *gg.Context, cmd engine.DrawCommand, m engine.Matrix2D, k float64) error {
	fill := cmd.Fill != ""
	stroke := cmd.Stroke != ""
	if !fill && !stroke {
		return nil
	}

	dc.ClearPath()
	replay(cmd.Path, m, dc)

	if fill {
		dc.SetColor(rgba(cmd.FillColor))
		if !stroke {
			return dc.Fill()
		}
		if err := dc.FillPreserve(); err != nil {
			return err
		}
	}
	dc.SetColor(rgba(cmd.StrokeColor))
	dc.SetLineWidth(cmd.StrokeWidth * k)
	return dc.Stroke()
}

// rgba keeps the channels straight (non-premultiplied).
func rgba(c document.Color) gg.RGBA {
	return gg.RGBA2(float64(c.R())/255, float64(c.G())/255, float64(c.B())/255, float64(c.A())/255)
}

// WritePNG rasterizes shapes and encodes the image as PNG.
func WritePNG(w io.Writer, shapes []document.Shape, opts Options) error {
	img, err := Rasterize(shapes, opts)
	if err != nil {
		return err
	}
	return png.Encode(w, img)
}

// Thumbnail scales img down to fit within maxW x maxH, keeping its aspect
// ratio. Images already small enough are returned as they are.
func Thumbnail(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	if b.Dx() <= maxW && b.Dy() <= maxH {
		return img
	}
	w, h := maxW, b.Dy()*maxW/b.Dx()
	if h > maxH {
		w, h = b.Dx()*maxH/b.Dy(), maxH
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}

// WriteThumbnail renders at opts size and encodes a PNG thumbnail no larger
// than ThumbWidth x ThumbHeight.
func WriteThumbnail(w io.Writer, shapes []document.Shape, opts Options) error {
	img, err := Rasterize(shapes, opts)
	if err != nil {
		return err
	}
	return png.Encode(w, Thumbnail(img, ThumbWidth, ThumbHeight))
}
