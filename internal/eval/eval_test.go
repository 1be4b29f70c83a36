package eval

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeEvalData(t *testing.T, dir string) string {
	t.Helper()
	dataPath := filepath.Join(dir, "data.csv")
	csvData := "region,units\nnorth,10\nsouth,12\neast,8\n"
	require.NoError(t, os.WriteFile(dataPath, []byte(csvData), 0o644))
	return dataPath
}

func readResults(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestRun_DefaultQuestionsAllPass(t *testing.T) {
	dir := t.TempDir()
	dataPath := writeEvalData(t, dir)
	outDir := filepath.Join(dir, "eval")

	summary, err := Run(context.Background(), Options{
		DataPath:  dataPath,
		OutputDir: outDir,
	})
	require.NoError(t, err)
	require.Len(t, summary.Results, 2)
	assert.True(t, summary.Passed())

	for _, r := range summary.Results {
		assert.Equal(t, "pass", r.Status)
		assert.Equal(t, 1, r.SQLCount)
		assert.Equal(t, 1, r.ChartCount)
		assert.FileExists(t, r.ReportPath)
		assert.FileExists(t, r.TracePath)
	}

	rows := readResults(t, summary.ResultsPath)
	require.Len(t, rows, 3)
	assert.Equal(t, resultsHeader, rows[0])
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "pass", rows[1][2])
}

func TestRun_FailureDoesNotAbortRemaining(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "eval")

	summary, err := Run(context.Background(), Options{
		DataPath:  filepath.Join(dir, "missing.csv"),
		OutputDir: outDir,
	})
	require.NoError(t, err)
	require.Len(t, summary.Results, 2)
	assert.False(t, summary.Passed())

	for _, r := range summary.Results {
		assert.Equal(t, "fail", r.Status)
		assert.NotEmpty(t, r.Err)
	}

	rows := readResults(t, summary.ResultsPath)
	require.Len(t, rows, 3)
	assert.Equal(t, "fail", rows[1][2])
	assert.Equal(t, "fail", rows[2][2])
}

func TestRun_CustomQuestions(t *testing.T) {
	dir := t.TempDir()
	dataPath := writeEvalData(t, dir)

	summary, err := Run(context.Background(), Options{
		DataPath:  dataPath,
		OutputDir: filepath.Join(dir, "eval"),
		Questions: []Question{{ID: 7, Text: "Compare units by region."}},
	})
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, 7, summary.Results[0].QuestionID)
	assert.Contains(t, summary.Results[0].ReportPath, "report_7.md")
}

func TestLoadQuestions_YAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "questions.yaml")
	content := "- id: 1\n  question: Which region leads on revenue?\n- question: Summarize the data.\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	questions, err := LoadQuestions(path)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, 1, questions[0].ID)
	assert.Equal(t, "Which region leads on revenue?", questions[0].Text)
	assert.Equal(t, 2, questions[1].ID)
}

func TestLoadQuestions_JSONL(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "questions.jsonl")
	content := `{"id": 3, "question": "Trend of units over time?"}` + "\n\n" +
		`{"question": "Why did revenue drop?"}` + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	questions, err := LoadQuestions(path)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, 3, questions[0].ID)
	assert.Equal(t, 2, questions[1].ID)
}

func TestLoadQuestions_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("unsupported extension", func(t *testing.T) {
		path := filepath.Join(dir, "questions.txt")
		require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))
		_, err := LoadQuestions(path)
		assert.ErrorContains(t, err, "unsupported questions format")
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.yaml")
		require.NoError(t, os.WriteFile(path, []byte(""), 0o644))
		_, err := LoadQuestions(path)
		assert.ErrorContains(t, err, "no questions")
	})

	t.Run("blank question text", func(t *testing.T) {
		path := filepath.Join(dir, "blank.yaml")
		require.NoError(t, os.WriteFile(path, []byte("- question: \"\"\n"), 0o644))
		_, err := LoadQuestions(path)
		assert.ErrorContains(t, err, "empty text")
	})
}
