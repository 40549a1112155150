// SPDX-License-Identifier: MIT
package render

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"audioscope/internal/view"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgsvg"
)

// ErrClosed is returned when encoding an artifact after Close.
var ErrClosed = errors.New("artifact is closed")

// Figure is a plot bound to a view kind, a size and a raster resolution.
// It renders on every Encode, so it is cheap to hold and to replace.
type Figure struct {
	kind   view.Kind
	plot   *plot.Plot
	width  vg.Length
	height vg.Length
	dpi    int
}

var _ view.Artifact = (*Figure)(nil)

func newFigure(kind view.Kind, p *plot.Plot, size Size, dpi int) *Figure {
	return &Figure{
		kind:   kind,
		plot:   p,
		width:  vg.Length(size.Width) * vg.Inch,
		height: vg.Length(size.Height) * vg.Inch,
		dpi:    dpi,
	}
}

// Kind implements view.Artifact.
func (f *Figure) Kind() view.Kind { return f.kind }

// Title returns the plot title.
func (f *Figure) Title() string {
	if f.plot == nil {
		return ""
	}
	return f.plot.Title.Text
}

// Encode implements view.Artifact. Raster formats use the figure's DPI.
func (f *Figure) Encode(w io.Writer, format string) error {
	if f.plot == nil {
		return ErrClosed
	}

	var out io.WriterTo
	switch format {
	case "svg":
		c := vgsvg.New(f.width, f.height)
		f.draw(c)
		out = c
	case "png", "jpg", "jpeg", "tif", "tiff":
		c := vgimg.NewWith(
			vgimg.UseWH(f.width, f.height),
			vgimg.UseDPI(f.dpi),
			vgimg.UseBackgroundColor(color.White),
		)
		f.draw(c)
		switch format {
		case "png":
			out = vgimg.PngCanvas{Canvas: c}
		case "jpg", "jpeg":
			out = vgimg.JpegCanvas{Canvas: c}
		default:
			out = vgimg.TiffCanvas{Canvas: c}
		}
	default:
		return fmt.Errorf("%w: %q", view.ErrUnsupportedFormat, format)
	}

	if _, err := out.WriteTo(w); err != nil {
		return fmt.Errorf("encoding %s: %w", format, err)
	}
	return nil
}

func (f *Figure) draw(c vg.CanvasSizer) {
	f.plot.Draw(draw.New(c))
}

// Close implements view.Artifact.
func (f *Figure) Close() error {
	f.plot = nil
	return nil
}
