package workout

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/rbmap/pkg/safeconv"
)

const (
	yamlIndent  = 2
	chartWidth  = "100%"
	chartHeight = "450px"
	lineWidth   = 2
)

// RenderText writes a human-readable summary of the report.
func RenderText(w io.Writer, report *Report) error {
	status := color.New(color.FgGreen).Sprint("PASS")

	switch report.Status {
	case StatusFail:
		status = color.New(color.FgRed).Sprint("FAIL")
	case StatusCancelled:
		status = color.New(color.FgYellow).Sprint("CANCELLED")
	case StatusPass:
	}

	_, err := fmt.Fprintf(w, "workout %s: seed %d, %s ops over %s keys in %s\n",
		status, report.Settings.Seed, humanize.Comma(int64(report.TotalOps())),
		humanize.Comma(int64(report.Settings.KeySpace)), report.Duration)
	if err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	ops := table.NewWriter()
	ops.SetOutputMirror(w)
	ops.SetStyle(table.StyleLight)
	ops.AppendHeader(table.Row{"Operation", "Total", "Hits", "Misses", "Per op"})

	for _, row := range []struct {
		name  string
		stats OpStats
	}{
		{OpInsert, report.Inserts},
		{OpRemove, report.Removes},
		{OpGet, report.Gets},
	} {
		ops.AppendRow(table.Row{
			row.name,
			humanize.Comma(int64(row.stats.Total)),
			humanize.Comma(int64(row.stats.Hits)),
			humanize.Comma(int64(row.stats.Misses())),
			row.stats.PerOp(),
		})
	}

	ops.Render()

	tree := table.NewWriter()
	tree.SetOutputMirror(w)
	tree.SetStyle(table.StyleLight)
	tree.AppendHeader(table.Row{"Metric", "Value"})
	tree.AppendRows([]table.Row{
		{"Drained", humanize.Comma(int64(report.Drained))},
		{"Checks", humanize.Comma(int64(report.Checks))},
		{"Max size", humanize.Comma(int64(report.MaxSize))},
		{"Max height", report.MaxHeight},
		{"Rotations", humanize.Comma(safeconv.MustUint64ToInt64(report.Rotations))},
		{"Insert fixups", humanize.Comma(safeconv.MustUint64ToInt64(report.InsertFixups))},
		{"Delete fixups", humanize.Comma(safeconv.MustUint64ToInt64(report.DeleteFixups))},
		{"Arena slots", humanize.Comma(int64(report.ArenaSlots))},
		{"Hibernations", humanize.Comma(int64(report.Hibernations))},
		{"Hibernated size", humanize.Bytes(safeconv.MustIntToUint64(report.HibernatedBytes))},
	})
	tree.Render()

	if report.Error != "" {
		_, err = color.New(color.FgRed).Fprintf(w, "%s\n", report.Error)
		if err != nil {
			return fmt.Errorf("write error: %w", err)
		}
	}

	return nil
}

// RenderYAML writes the report as YAML.
func RenderYAML(w io.Writer, report *Report) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(yamlIndent)

	err := enc.Encode(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	return enc.Close()
}

// RenderJSON writes the report as indented JSON.
func RenderJSON(w io.Writer, report *Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	return nil
}

// RenderPlot writes an HTML page charting the tree shape over the run and
// the operation mix.
func RenderPlot(w io.Writer, report *Report) error {
	page := components.NewPage()
	page.PageTitle = "rbmap workout"
	page.AddCharts(shapeChart(report), opsChart(report))

	err := page.Render(w)
	if err != nil {
		return fmt.Errorf("render plot: %w", err)
	}

	return nil
}

// WritePlot renders the plot into the file at path.
func WritePlot(path string, report *Report) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create plot file: %w", err)
	}

	err = RenderPlot(file, report)
	if err != nil {
		file.Close()

		return err
	}

	return file.Close()
}

// heightBound is the largest height a red-black tree with size entries can have.
func heightBound(size int) float64 {
	return 2 * math.Log2(float64(size)+1)
}

func shapeChart(report *Report) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Tree shape",
			Subtitle: fmt.Sprintf("seed %d", report.Settings.Seed),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Operation"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)

	labels := make([]string, len(report.Samples))
	size := make([]opts.LineData, len(report.Samples))
	height := make([]opts.LineData, len(report.Samples))
	blackHeight := make([]opts.LineData, len(report.Samples))
	bound := make([]opts.LineData, len(report.Samples))

	for idx, smp := range report.Samples {
		labels[idx] = strconv.Itoa(smp.Op)
		size[idx] = opts.LineData{Value: smp.Size}
		height[idx] = opts.LineData{Value: smp.Height}
		blackHeight[idx] = opts.LineData{Value: smp.BlackHeight}
		bound[idx] = opts.LineData{Value: math.Round(heightBound(smp.Size)*100) / 100}
	}

	line.SetXAxis(labels).
		AddSeries("Height", height, charts.WithLineStyleOpts(opts.LineStyle{Width: lineWidth})).
		AddSeries("Black height", blackHeight).
		AddSeries("2·log2(n+1)", bound, charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed"})).
		AddSeries("Size", size, charts.WithLineChartOpts(opts.LineChart{YAxisIndex: 1}))

	line.ExtendYAxis(opts.YAxis{Name: "Entries"})

	return line
}

func opsChart(report *Report) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: "Operations"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
	)

	all := []OpStats{report.Inserts, report.Removes, report.Gets}
	hits := make([]opts.BarData, len(all))
	misses := make([]opts.BarData, len(all))

	for idx, stats := range all {
		hits[idx] = opts.BarData{Value: stats.Hits}
		misses[idx] = opts.BarData{Value: stats.Misses()}
	}

	bar.SetXAxis([]string{OpInsert, OpRemove, OpGet}).
		AddSeries("Hit", hits, charts.WithBarChartOpts(opts.BarChart{Stack: "ops"})).
		AddSeries("Miss", misses, charts.WithBarChartOpts(opts.BarChart{Stack: "ops"}))

	return bar
}
