// Package charts renders the report statistics as PNG images. Charts are
// terminal sinks: nothing downstream consumes them.
package charts

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"log/slog"

	"github.com/user/truestory/lib/stats"
	"github.com/wcharczuk/go-chart/v2"
)

// ErrNoData is returned when a chart has nothing to draw.
var ErrNoData = errors.New("no data for chart")

// Names lists the charts this package can produce.
func Names() []string {
	return []string{
		"category_distribution.png",
		"people_vs_events.png",
		"top_occupations.png",
		"revenue_by_year.png",
	}
}

// Render draws the named chart from the report into w.
func Render(report *stats.Report, name string, w io.Writer) error {
	switch name {
	case "category_distribution.png":
		return renderCategoryDistribution(report, w)
	case "people_vs_events.png":
		return renderPeopleVsEvents(report, w)
	case "top_occupations.png":
		return renderTopOccupations(report, w)
	case "revenue_by_year.png":
		return renderRevenueByYear(report, w)
	default:
		return fmt.Errorf("unknown chart %q", name)
	}
}

// RenderAll writes every chart that has data into dir and returns the file
// paths it produced. A chart with nothing to show is skipped, not an error.
func RenderAll(report *stats.Report, dir string, logger *slog.Logger) ([]string, error) {
	var written []string
	for _, name := range Names() {
		path := filepath.Join(dir, name)

		f, err := os.Create(path)
		if err != nil {
			return written, fmt.Errorf("failed to create chart file: %w", err)
		}

		err = Render(report, name, f)
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
		if errors.Is(err, ErrNoData) {
			logger.Info("Skipping chart with no data", slog.String("chart", name))
			_ = os.Remove(path)
			continue
		}
		if err != nil {
			return written, fmt.Errorf("failed to render %s: %w", name, err)
		}

		logger.Info("Wrote chart", slog.String("path", path))
		written = append(written, path)
	}
	return written, nil
}

// barRange pins the value axis to [0, max]. Without an explicit range,
// go-chart refuses to render a bar set whose values are all equal (a
// zero-width auto range), which is exactly what a store with one category or
// one occupation produces.
func barRange(bars []chart.Value) chart.YAxis {
	max := 0.0
	for _, b := range bars {
		if b.Value > max {
			max = b.Value
		}
	}
	return chart.YAxis{
		Range: &chart.ContinuousRange{Min: 0, Max: max},
	}
}

// renderCategoryDistribution is a bar chart of movie counts per category.
func renderCategoryDistribution(report *stats.Report, w io.Writer) error {
	if len(report.CategoryCounts) == 0 {
		return ErrNoData
	}

	bars := make([]chart.Value, 0, len(report.CategoryCounts))
	for _, cc := range report.CategoryCounts {
		bars = append(bars, chart.Value{Label: cc.Category, Value: float64(cc.Count)})
	}

	graph := chart.BarChart{
		Title:    "Movies by Subject Category",
		Width:    1024,
		Height:   512,
		BarWidth: 50,
		YAxis:    barRange(bars),
		Bars:     bars,
	}
	return graph.Render(chart.PNG, w)
}

// renderPeopleVsEvents is a pie chart of person-subject vs event-subject
// movies.
func renderPeopleVsEvents(report *stats.Report, w io.Writer) error {
	if report.PeopleCount+report.EventCount == 0 {
		return ErrNoData
	}

	graph := chart.PieChart{
		Title:  "People vs Events",
		Width:  512,
		Height: 512,
		Values: []chart.Value{
			{Label: "About People", Value: float64(report.PeopleCount)},
			{Label: "About Events/Books", Value: float64(report.EventCount)},
		},
	}
	return graph.Render(chart.PNG, w)
}

// renderTopOccupations is a bar chart of the ten most common occupations.
func renderTopOccupations(report *stats.Report, w io.Writer) error {
	if len(report.TopOccupations) == 0 {
		return ErrNoData
	}

	bars := make([]chart.Value, 0, len(report.TopOccupations))
	for _, oc := range report.TopOccupations {
		bars = append(bars, chart.Value{Label: oc.Occupation, Value: float64(oc.Count)})
	}

	graph := chart.BarChart{
		Title:    "Top Occupations",
		Width:    1024,
		Height:   512,
		BarWidth: 50,
		YAxis:    barRange(bars),
		Bars:     bars,
	}
	return graph.Render(chart.PNG, w)
}

// renderRevenueByYear plots average and max revenue per release year.
func renderRevenueByYear(report *stats.Report, w io.Writer) error {
	// A single point can't make a line.
	if len(report.Years) < 2 {
		return ErrNoData
	}

	years := make([]float64, 0, len(report.Years))
	avgs := make([]float64, 0, len(report.Years))
	maxes := make([]float64, 0, len(report.Years))
	for _, y := range report.Years {
		years = append(years, float64(y.Year))
		avgs = append(avgs, y.AvgMillions)
		maxes = append(maxes, y.MaxMillions)
	}

	graph := chart.Chart{
		Title:  "Revenue by Release Year (millions USD)",
		Width:  1024,
		Height: 512,
		XAxis:  chart.XAxis{Name: "Year"},
		YAxis:  chart.YAxis{Name: "Revenue ($M)"},
		Series: []chart.Series{
			chart.ContinuousSeries{Name: "Average", XValues: years, YValues: avgs},
			chart.ContinuousSeries{Name: "Max", XValues: years, YValues: maxes},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return graph.Render(chart.PNG, w)
}
