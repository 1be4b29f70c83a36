package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_ClassifiesColumns(t *testing.T) {
	input := "region,units,note,date\nnorth,10,ok,2024-01-01\nsouth,12.5,,2024-01-02\n"

	table, err := Read(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []string{"region", "units", "note", "date"}, table.Headers)
	assert.Equal(t, []string{"units"}, table.NumericColumns())
	assert.Equal(t, []string{"region", "note", "date"}, table.CategoricalColumns())

	schema := table.Schema()
	require.Len(t, schema, 4)
	assert.Equal(t, Column{Name: "units", Kind: KindNumeric}, schema[1])
	assert.Equal(t, Column{Name: "note", Kind: KindText}, schema[2])
}

func TestRead_EmptyValuesDoNotBreakNumeric(t *testing.T) {
	input := "value\n\n10\n"
	table, err := Read(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"value"}, table.NumericColumns())
}

func TestRead_HeaderOnly(t *testing.T) {
	table, err := Read(strings.NewReader("a,b\n"))
	require.NoError(t, err)
	assert.Empty(t, table.Rows)
	// No values observed, so nothing is classified numeric.
	assert.Empty(t, table.NumericColumns())
}

func TestRead_NoHeader(t *testing.T) {
	_, err := Read(strings.NewReader(""))
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
}

func TestLoad_FromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("category,value\nA,10\nB,12\n"), 0o644))

	table, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"value"}, table.NumericColumns())
}

func TestMarkdown(t *testing.T) {
	table := &Table{
		Headers: []string{"category", "value"},
		Rows:    [][]string{{"A", "10"}, {"B", "12"}, {"C", "14"}},
	}

	got := table.Markdown(2)
	want := "| category | value |\n| --- | --- |\n| A | 10 |\n| B | 12 |\n"
	assert.Equal(t, want, got)
}

func TestRenderMarkdown_EscapesPipes(t *testing.T) {
	got := RenderMarkdown([]string{"note"}, [][]string{{"a|b"}})
	assert.Contains(t, got, `a\|b`)
}
