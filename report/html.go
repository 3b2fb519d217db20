package report

import (
	"fmt"
	"image/color"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/soypat/pointvol"
	"gonum.org/v1/plot/palette"
)

// HTMLOptions configure WriteHTML.
type HTMLOptions struct {
	Title string
	// Bins is the amount of histogram bars. Zero means 32.
	Bins int
	// MaxPoints caps the points drawn in the scatter chart by striding the
	// cloud. Zero means all points.
	MaxPoints int
	// Colors is used for the scatter visual map. Nil uses a default ramp.
	Colors palette.ColorMap
	// AssetsHost overrides where the echarts javascript is loaded from.
	AssetsHost string
}

// WriteHTML writes a page with a scatter chart of the cloud projected on
// the XY plane colored by scalar, and a histogram of the volume samples.
// Either cloud or vol may be nil.
func WriteHTML(w io.Writer, cloud *pointvol.PointCloud, vol *pointvol.Volume, o HTMLOptions) error {
	if cloud == nil && vol == nil {
		return fmt.Errorf("nothing to report")
	}
	if o.Bins <= 0 {
		o.Bins = 32
	}
	if o.Title == "" {
		o.Title = "pointvol"
	}
	page := components.NewPage()
	if o.AssetsHost != "" {
		page.SetAssetsHost(o.AssetsHost)
	}
	if cloud != nil && cloud.Len() > 0 {
		page.AddCharts(cloudScatter(cloud, o))
	}
	if vol != nil {
		page.AddCharts(volumeBar(vol, o))
	}
	return page.Render(w)
}

func cloudScatter(cloud *pointvol.PointCloud, o HTMLOptions) *charts.Scatter {
	stride := 1
	if o.MaxPoints > 0 && cloud.Len() > o.MaxPoints {
		stride = (cloud.Len() + o.MaxPoints - 1) / o.MaxPoints
	}
	hasScalars := len(cloud.Scalars) == cloud.Len()
	data := make([]opts.ScatterData, 0, cloud.Len()/stride+1)
	for i := 0; i < cloud.Len(); i += stride {
		p := cloud.Points[i]
		s := 0.0
		if hasScalars {
			s = cloud.Scalars[i]
		}
		data = append(data, opts.ScatterData{Value: []interface{}{p.X, p.Y, s}})
	}
	bb := cloud.Bounds()
	scatter := charts.NewScatter()
	global := []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{PageTitle: o.Title, Width: "720px", Height: "640px", AssetsHost: o.AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Point cloud", Subtitle: fmt.Sprintf("points=%d stride=%d", cloud.Len(), stride)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: bb.Min.X, Max: bb.Max.X, Name: "X", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: bb.Min.Y, Max: bb.Max.Y, Name: "Y", NameLocation: "middle", NameGap: 30}),
	}
	if hasScalars {
		lo, hi := cloud.ScalarRange()
		global = append(global, charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(lo),
			Max:        float32(hi),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: hexRamp(o.Colors, 10)},
		}))
	}
	scatter.SetGlobalOptions(global...)
	scatter.AddSeries("points", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))
	return scatter
}

func volumeBar(vol *pointvol.Volume, o HTMLOptions) *charts.Bar {
	dividers, counts := vol.Histogram(o.Bins)
	x := make([]string, len(counts))
	y := make([]opts.BarData, len(counts))
	for i, n := range counts {
		x[i] = fmt.Sprintf("%.3g", (dividers[i]+dividers[i+1])/2)
		y[i] = opts.BarData{Value: n}
	}
	dims := vol.Dims()
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "720px", Height: "420px", AssetsHost: o.AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: "Volume histogram", Subtitle: fmt.Sprintf("dims=%dx%dx%d", dims[0], dims[1], dims[2])}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).AddSeries("samples", y)
	return bar
}

var defaultRamp = []string{"#3b4cc0", "#7396f5", "#b0cbfc", "#dcdddd", "#f6bfa5", "#ea7b60", "#b40426"}

// hexRamp samples n colors of cm as #rrggbb strings.
func hexRamp(cm palette.ColorMap, n int) []string {
	if cm == nil {
		return defaultRamp
	}
	out := make([]string, 0, n)
	for _, c := range cm.Palette(n).Colors() {
		nc := color.NRGBAModel.Convert(c).(color.NRGBA)
		out = append(out, fmt.Sprintf("#%02x%02x%02x", nc.R, nc.G, nc.B))
	}
	return out
}
