package chart

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender_BarByCategory(t *testing.T) {
	dir := t.TempDir()
	r := NewRenderer(dir)

	chart, err := r.Render(
		[]string{"category", "avg_units"},
		[][]string{{"A", "10"}, {"B", "12.5"}},
	)
	require.NoError(t, err)

	assert.Equal(t, 1, chart.ChartID)
	assert.Equal(t, "bar", chart.Kind)
	assert.Equal(t, filepath.Join(dir, "charts", "chart_1.png"), chart.Path)

	info, err := os.Stat(chart.Path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestRender_LineOverDate(t *testing.T) {
	r := NewRenderer(t.TempDir())

	chart, err := r.Render(
		[]string{"date", "revenue"},
		[][]string{
			{"2024-01-03", "30"},
			{"2024-01-01", "10"},
			{"2024-01-02", "20"},
		},
	)
	require.NoError(t, err)
	assert.Equal(t, "line", chart.Kind)
}

func TestRender_SingleBarFallback(t *testing.T) {
	r := NewRenderer(t.TempDir())

	chart, err := r.Render([]string{"avg_units", "total_units"}, [][]string{{"11.25", "45"}})
	require.NoError(t, err)
	assert.Equal(t, "bar", chart.Kind)
	assert.FileExists(t, chart.Path)
}

func TestRender_EmptyResult(t *testing.T) {
	r := NewRenderer(t.TempDir())

	chart, err := r.Render([]string{"count"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "bar", chart.Kind)
	assert.FileExists(t, chart.Path)
}

func TestRender_ChartIDsAscend(t *testing.T) {
	r := NewRenderer(t.TempDir())

	first, err := r.Render([]string{"count"}, [][]string{{"1"}})
	require.NoError(t, err)
	second, err := r.Render([]string{"count"}, [][]string{{"2"}})
	require.NoError(t, err)

	assert.Equal(t, 1, first.ChartID)
	assert.Equal(t, 2, second.ChartID)
	assert.Contains(t, second.Path, "chart_2.png")
}

func TestDetectDateColumn(t *testing.T) {
	rows := [][]string{{"2024-01-01", "x"}, {"2024-01-02", "y"}}
	assert.Equal(t, 0, detectDateColumn([]string{"date", "note"}, rows))

	// Name matches but values do not parse as dates.
	assert.Equal(t, -1, detectDateColumn([]string{"update_time"}, [][]string{{"soon"}, {"later"}}))

	// Values parse but the name never hints at time.
	assert.Equal(t, -1, detectDateColumn([]string{"label"}, rows))
}
