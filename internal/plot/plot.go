// Package plot renders swath points as a scatter image colored by value.
package plot

import (
	"fmt"
	"image/color"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	gplot "gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/rtm0/aodsubset/internal/swath"
)

// Options controls the rendered image.
type Options struct {
	// Output is the image path. The extension picks the format: png, jpg,
	// svg, pdf, eps or tif.
	Output string
	Title  string
	Width  vg.Length
	Height vg.Length
	// PointRadius is the glyph radius of every point.
	PointRadius vg.Length
}

// DefaultOptions returns a 10x6 inch PNG named africa.png.
func DefaultOptions() Options {
	return Options{
		Output:      "africa.png",
		Width:       10 * vg.Inch,
		Height:      6 * vg.Inch,
		PointRadius: vg.Points(1.5),
	}
}

var formats = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".svg": true,
	".pdf": true, ".eps": true, ".tif": true, ".tiff": true,
}

// Scatter draws yField against xField for every point of d and writes the
// image to opts.Output.
func Scatter(d *swath.Dataset, xField, yField string, opts Options) error {
	if opts.Output == "" {
		return eris.New("plot: output path is required")
	}
	if !formats[strings.ToLower(filepath.Ext(opts.Output))] {
		return eris.Errorf("plot: unsupported image format %q", filepath.Ext(opts.Output))
	}
	xs, err := d.Field(xField)
	if err != nil {
		return eris.Wrap(err, "plot: x axis")
	}
	ys, err := d.Field(yField)
	if err != nil {
		return eris.Wrap(err, "plot: y axis")
	}

	p := gplot.New()
	p.Title.Text = opts.Title
	if p.Title.Text == "" {
		p.Title.Text = fmt.Sprintf("%s (%d points)", d.Name, d.Len())
	}
	p.X.Label.Text = xField
	p.Y.Label.Text = yField
	p.Add(plotter.NewGrid())

	if d.Len() > 0 {
		s, err := scatter(xs, ys, d.Value, opts.PointRadius)
		if err != nil {
			return err
		}
		p.Add(s)
	}

	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = DefaultOptions().Width
	}
	if height <= 0 {
		height = DefaultOptions().Height
	}
	if err := p.Save(width, height, opts.Output); err != nil {
		return eris.Wrapf(err, "plot: save %s", opts.Output)
	}

	zap.L().Info("plot: saved", zap.String("output", opts.Output), zap.Int("points", d.Len()))
	return nil
}

func scatter(xs, ys, values []float64, radius vg.Length) (*plotter.Scatter, error) {
	xys := make(plotter.XYs, len(xs))
	for i := range xys {
		xys[i].X = xs[i]
		xys[i].Y = ys[i]
	}
	s, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, eris.Wrap(err, "plot: scatter")
	}

	cm := moreland.ExtendedBlackBody()
	lo, hi := floats.Min(values), floats.Max(values)
	if hi <= lo {
		hi = lo + 1
	}
	cm.SetMin(lo)
	cm.SetMax(hi)

	if radius <= 0 {
		radius = DefaultOptions().PointRadius
	}
	s.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		var c color.Color = color.Black
		if v, err := cm.At(values[i]); err == nil {
			c = v
		}
		return draw.GlyphStyle{Color: c, Radius: radius, Shape: draw.CircleGlyph{}}
	}
	return s, nil
}
