package report

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/noisemap/internal/noise/aggregate"
)

const echartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// MaxChartReceivers caps the number of series of a spectra chart.
const MaxChartReceivers = 32

// WriteSpectra renders an HTML bar chart with one series per receiver and
// one bar per band. Receivers beyond MaxChartReceivers are left out.
func WriteSpectra(w io.Writer, title string, levels []aggregate.ReceiverLevel, freqs []int, unit string) error {
	x := make([]string, len(freqs))
	for i, f := range freqs {
		x[i] = strconv.Itoa(f)
	}

	shown := levels
	if len(shown) > MaxChartReceivers {
		shown = shown[:MaxChartReceivers]
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "720px", AssetsHost: echartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: fmt.Sprintf("receivers=%d shown=%d unit=%s", len(levels), len(shown), unit)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Hz", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: unit, NameLocation: "middle", NameGap: 30}),
	)
	bar.SetXAxis(x)
	for _, l := range shown {
		bar.AddSeries(fmt.Sprintf("receiver %d", l.ID), barData(l.Levels, len(freqs)))
	}
	if err := bar.Render(w); err != nil {
		return fmt.Errorf("render spectra: %w", err)
	}
	return nil
}

// barData pads or trims levels to n bars; silent bands become gaps.
func barData(levels []float64, n int) []opts.BarData {
	out := make([]opts.BarData, n)
	for i := range out {
		if i >= len(levels) || math.IsInf(levels[i], 0) || math.IsNaN(levels[i]) {
			out[i] = opts.BarData{Value: "-"}
			continue
		}
		out[i] = opts.BarData{Value: math.Round(levels[i]*100) / 100}
	}
	return out
}
