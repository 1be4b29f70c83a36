// Package chart renders query results as PNG artifacts.
//
// Shape selection is automatic: a date-like column yields a line chart of
// the first numeric column over time, a "category" column yields a bar
// chart, and anything else falls back to a single summary bar. Only these
// fixed shapes exist; this is not a general-purpose charting layer.
package chart

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Chart records one rendered artifact.
type Chart struct {
	ChartID int
	Kind    string // "line" or "bar"
	Path    string
}

// Renderer persists charts under <artifactsDir>/charts with ascending ids.
// Not safe for concurrent use.
type Renderer struct {
	artifactsDir string
	nextChartID  int
}

// NewRenderer creates a renderer rooted at artifactsDir.
func NewRenderer(artifactsDir string) *Renderer {
	return &Renderer{artifactsDir: artifactsDir, nextChartID: 1}
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// Render draws one chart for a tabular result and writes
// charts/chart_<id>.png. It never fails on shape selection; an empty or
// non-numeric result degrades to a zero-valued summary bar.
func (r *Renderer) Render(columns []string, rows [][]string) (*Chart, error) {
	chartID := r.nextChartID
	r.nextChartID++

	path := filepath.Join(r.artifactsDir, "charts", fmt.Sprintf("chart_%d.png", chartID))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create chart directory: %w", err)
	}

	p := plot.New()
	kind := "bar"

	if dateCol := detectDateColumn(columns, rows); dateCol >= 0 {
		if metricCol := firstNumericColumn(columns, rows, dateCol); metricCol >= 0 {
			drawLine(p, columns, rows, dateCol, metricCol)
			kind = "line"
		}
	}
	if kind == "bar" {
		if err := drawBar(p, columns, rows); err != nil {
			return nil, err
		}
	}

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return nil, fmt.Errorf("save chart %d: %w", chartID, err)
	}
	return &Chart{ChartID: chartID, Kind: kind, Path: path}, nil
}

func drawLine(p *plot.Plot, columns []string, rows [][]string, dateCol, metricCol int) {
	type point struct {
		t time.Time
		v float64
	}
	var points []point
	for _, row := range rows {
		if dateCol >= len(row) || metricCol >= len(row) {
			continue
		}
		ts, ok := parseDate(row[dateCol])
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[metricCol]), 64)
		if err != nil {
			continue
		}
		points = append(points, point{t: ts, v: v})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].t.Before(points[j].t) })

	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i].X = float64(pt.t.Unix())
		xys[i].Y = pt.v
	}

	p.Title.Text = fmt.Sprintf("%s over time", columns[metricCol])
	p.X.Label.Text = columns[dateCol]
	p.Y.Label.Text = columns[metricCol]
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}

	line, err := plotter.NewLine(xys)
	if err == nil {
		p.Add(line)
	}
}

func drawBar(p *plot.Plot, columns []string, rows [][]string) error {
	if catCol := indexOf(columns, "category"); catCol >= 0 {
		if metricCol := firstNumericColumn(columns, rows, catCol); metricCol >= 0 {
			labels := make([]string, 0, len(rows))
			values := make(plotter.Values, 0, len(rows))
			for _, row := range rows {
				if catCol >= len(row) || metricCol >= len(row) {
					continue
				}
				v, err := strconv.ParseFloat(strings.TrimSpace(row[metricCol]), 64)
				if err != nil {
					continue
				}
				labels = append(labels, row[catCol])
				values = append(values, v)
			}
			p.Title.Text = fmt.Sprintf("%s by category", columns[metricCol])
			p.X.Label.Text = "Category"
			p.Y.Label.Text = columns[metricCol]
			return addBars(p, values, labels)
		}
	}

	// Single-bar summary of the first numeric value, or zero.
	value := 0.0
	title := "Summary metric"
	if metricCol := firstNumericColumn(columns, rows, -1); metricCol >= 0 && len(rows) > 0 {
		if v, err := strconv.ParseFloat(strings.TrimSpace(rows[0][metricCol]), 64); err == nil {
			value = v
		}
	}
	p.Title.Text = title
	return addBars(p, plotter.Values{value}, []string{"value"})
}

func addBars(p *plot.Plot, values plotter.Values, labels []string) error {
	bars, err := plotter.NewBarChart(values, vg.Points(20))
	if err != nil {
		return fmt.Errorf("build bar chart: %w", err)
	}
	p.Add(bars)
	p.NominalX(labels...)
	return nil
}

// detectDateColumn returns the first column whose name contains "date" or
// "time" and whose values mostly parse as dates, or -1.
func detectDateColumn(columns []string, rows [][]string) int {
	for i, name := range columns {
		lower := strings.ToLower(name)
		if !strings.Contains(lower, "date") && !strings.Contains(lower, "time") {
			continue
		}
		parsed, seen := 0, 0
		for _, row := range rows {
			if i >= len(row) || strings.TrimSpace(row[i]) == "" {
				continue
			}
			seen++
			if _, ok := parseDate(row[i]); ok {
				parsed++
			}
		}
		if seen > 0 && parsed*2 > seen {
			return i
		}
	}
	return -1
}

// firstNumericColumn returns the first column other than exclude whose
// non-empty values all parse as numbers, or -1.
func firstNumericColumn(columns []string, rows [][]string, exclude int) int {
	for i := range columns {
		if i == exclude {
			continue
		}
		seen, numeric := 0, true
		for _, row := range rows {
			if i >= len(row) || strings.TrimSpace(row[i]) == "" {
				continue
			}
			seen++
			if _, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64); err != nil {
				numeric = false
				break
			}
		}
		if seen > 0 && numeric {
			return i
		}
	}
	return -1
}

func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

func indexOf(values []string, want string) int {
	for i, v := range values {
		if v == want {
			return i
		}
	}
	return -1
}
