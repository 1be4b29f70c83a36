// Package eval runs a batch of questions through the full pipeline and
// writes a results.csv scorecard. Each question gets its own report, trace,
// and artifacts directory so failures can be replayed in isolation.
package eval

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/quarrylabs/quarry/internal/runner"
)

// Question is one evaluation case.
type Question struct {
	ID   int    `yaml:"id" json:"id"`
	Text string `yaml:"question" json:"question"`
}

// DefaultQuestions is the built-in evaluation set used when no question
// file is supplied.
func DefaultQuestions() []Question {
	return []Question{
		{ID: 1, Text: "Which region has the highest average units?"},
		{ID: 2, Text: "Summarize overall performance across categories."},
	}
}

// Result is one row of the scorecard.
type Result struct {
	QuestionID int
	Question   string
	Status     string // "pass" or "fail"
	RuntimeMS  int64
	SQLCount   int
	ChartCount int
	ReportPath string
	TracePath  string
	Err        string
}

// Summary aggregates a completed evaluation.
type Summary struct {
	Results     []Result
	ResultsPath string
}

// Passed reports whether every question passed.
func (s Summary) Passed() bool {
	for _, r := range s.Results {
		if r.Status != "pass" {
			return false
		}
	}
	return len(s.Results) > 0
}

// Options configure an evaluation run.
type Options struct {
	DataPath  string
	OutputDir string
	Questions []Question // nil means DefaultQuestions
	MaxRows   int
}

// Run evaluates every question sequentially. A failing question is recorded
// as a fail row and never aborts the remaining questions; Run returns an
// error only when the harness itself cannot write its outputs.
func Run(ctx context.Context, opts Options) (*Summary, error) {
	questions := opts.Questions
	if len(questions) == 0 {
		questions = DefaultQuestions()
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	summary := &Summary{ResultsPath: filepath.Join(opts.OutputDir, "results.csv")}
	for _, q := range questions {
		summary.Results = append(summary.Results, evaluate(ctx, opts, q))
	}
	if err := writeResults(summary.ResultsPath, summary.Results); err != nil {
		return nil, err
	}
	return summary, nil
}

func evaluate(ctx context.Context, opts Options, q Question) Result {
	result := Result{
		QuestionID: q.ID,
		Question:   q.Text,
		ReportPath: filepath.Join(opts.OutputDir, fmt.Sprintf("report_%d.md", q.ID)),
		TracePath:  filepath.Join(opts.OutputDir, fmt.Sprintf("trace_%d.jsonl", q.ID)),
	}
	started := time.Now()
	artifacts, err := runner.Run(ctx, runner.Options{
		Question:     q.Text,
		DataPath:     opts.DataPath,
		ReportPath:   result.ReportPath,
		TracePath:    result.TracePath,
		ArtifactsDir: filepath.Join(opts.OutputDir, fmt.Sprintf("artifacts_%d", q.ID)),
		MaxRows:      opts.MaxRows,
	})
	result.RuntimeMS = time.Since(started).Milliseconds()
	if err != nil {
		result.Status = "fail"
		result.Err = err.Error()
		return result
	}
	result.SQLCount = artifacts.SQLCount
	result.ChartCount = artifacts.ChartCount
	if err := checkOutputs(result.ReportPath, result.TracePath, artifacts.ChartPath); err != nil {
		result.Status = "fail"
		result.Err = err.Error()
		return result
	}
	result.Status = "pass"
	return result
}

// checkOutputs verifies the run left its promised files on disk.
func checkOutputs(reportPath, tracePath, chartPath string) error {
	for _, path := range []string{reportPath, tracePath, chartPath} {
		if path == "" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("expected output missing: %s", path)
		}
		if info.Size() == 0 {
			return fmt.Errorf("expected output empty: %s", path)
		}
	}
	return nil
}

var resultsHeader = []string{
	"question_id", "question", "status", "runtime_ms",
	"sql_count", "chart_count", "report_path", "trace_path", "error",
}

func writeResults(path string, results []Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create results file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(resultsHeader); err != nil {
		return fmt.Errorf("write results header: %w", err)
	}
	for _, r := range results {
		row := []string{
			strconv.Itoa(r.QuestionID),
			r.Question,
			r.Status,
			strconv.FormatInt(r.RuntimeMS, 10),
			strconv.Itoa(r.SQLCount),
			strconv.Itoa(r.ChartCount),
			r.ReportPath,
			r.TracePath,
			r.Err,
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write results row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush results: %w", err)
	}
	return f.Close()
}
