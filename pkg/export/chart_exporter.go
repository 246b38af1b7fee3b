package export

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// ChartExporter draws the best penalty per generation as an HTML line chart.
type ChartExporter struct{}

// NewChartExporter builds a convergence chart exporter.
func NewChartExporter() *ChartExporter {
	return &ChartExporter{}
}

func (e *ChartExporter) ContentType() string { return "text/html; charset=utf-8" }
func (e *ChartExporter) Extension() string   { return "html" }

// Render produces a standalone HTML page.
func (e *ChartExporter) Render(doc Document) ([]byte, error) {
	if len(doc.History) == 0 {
		return nil, fmt.Errorf("chart requires a non-empty history")
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: doc.Title, Subtitle: "best penalty per generation"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "generation"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "penalty", SplitLine: &opts.SplitLine{Show: opts.Bool(true)}}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)

	xs := make([]string, len(doc.History))
	points := make([]opts.LineData, len(doc.History))
	for i, p := range doc.History {
		xs[i] = strconv.Itoa(i)
		points[i] = opts.LineData{Value: p}
	}
	line.SetXAxis(xs).AddSeries("best penalty", points)

	buf := &bytes.Buffer{}
	if err := line.Render(buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}
