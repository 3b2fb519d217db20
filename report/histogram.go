// Package report summarizes point clouds and volumes as static images and
// HTML pages.
package report

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/soypat/pointvol"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Colorer maps a scalar value to an opaque color.
// *colormap.TransferFunction implements it.
type Colorer interface {
	Color(v float64) color.NRGBA
}

const (
	histWidth  = 6 * vg.Inch
	histHeight = 4 * vg.Inch
)

// HistogramPlot returns a histogram of the volume samples with bins bars.
// Bars are filled with the color c assigns to the bin center. c may be nil.
func HistogramPlot(vol *pointvol.Volume, bins int, c Colorer) *plot.Plot {
	dividers, counts := vol.Histogram(bins)
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Volume histogram (%d samples)", vol.Len())
	p.X.Label.Text = "value"
	p.Y.Label.Text = "count"
	width := dividers[1] - dividers[0]
	for i, n := range counts {
		if n == 0 {
			continue
		}
		lo, hi := dividers[i], dividers[i+1]
		fill := color.Color(color.Gray{Y: 128})
		if c != nil {
			col := c.Color(lo + width/2)
			col.A = 255
			fill = col
		}
		h := &plotter.Histogram{
			Bins:      []plotter.HistogramBin{{Min: lo, Max: hi, Weight: n}},
			Width:     width,
			FillColor: fill,
			LineStyle: plotter.DefaultLineStyle,
		}
		h.LineStyle.Width = vg.Points(0.5)
		p.Add(h)
	}
	lo, hi := vol.Range()
	if math.IsNaN(lo) {
		lo, hi = dividers[0], dividers[bins]
	}
	p.X.Min, p.X.Max = lo, hi
	if hi == lo {
		p.X.Max = lo + 1
	}
	p.Y.Min = 0
	return p
}

// WriteHistogram encodes the histogram plot of vol as a PNG to w.
func WriteHistogram(w io.Writer, vol *pointvol.Volume, bins int, c Colorer) error {
	wt, err := HistogramPlot(vol, bins, c).WriterTo(histWidth, histHeight, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// HistogramPNG saves the histogram plot of vol as a PNG file.
func HistogramPNG(path string, vol *pointvol.Volume, bins int, c Colorer) error {
	return HistogramPlot(vol, bins, c).Save(histWidth, histHeight, path)
}
