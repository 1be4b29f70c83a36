// Package runner sequences one question through plan compilation, query
// execution, chart rendering, trace emission, and report synthesis.
//
// The runner owns the trace logger for the run's lifetime and guarantees a
// flush on every exit path. Errors are never swallowed: an error trace event
// is recorded with the failure message, the trace is flushed, and the error
// is returned to the caller.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/quarrylabs/quarry/internal/chart"
	"github.com/quarrylabs/quarry/internal/dataset"
	"github.com/quarrylabs/quarry/internal/planner"
	"github.com/quarrylabs/quarry/internal/query"
	"github.com/quarrylabs/quarry/internal/report"
	"github.com/quarrylabs/quarry/internal/trace"
)

// Options locate the inputs and outputs of one run.
type Options struct {
	Question     string
	DataPath     string
	ReportPath   string
	TracePath    string
	ArtifactsDir string
	MaxRows      int // 0 means query.DefaultMaxRows
}

// Artifacts summarize a completed run.
type Artifacts struct {
	RunID           string
	Plan            planner.Plan // keyword plan, pre-refinement
	ExecutedSQL     string
	TablePath       string
	ChartPath       string
	ReportPath      string
	TracePath       string
	Recommendations []string
	SQLCount        int
	ChartCount      int
}

// Run executes one question end to end. The trace file at opts.TracePath is
// written on success and on failure alike.
func Run(ctx context.Context, opts Options) (artifacts *Artifacts, err error) {
	logger := trace.NewLogger(opts.TracePath)
	defer func() {
		if flushErr := logger.Flush(); flushErr != nil && err == nil {
			err = flushErr
		}
	}()

	artifacts, err = execute(ctx, logger, opts)
	if err != nil {
		logger.Record(trace.EventError, map[string]any{"error": err.Error()})
		return nil, err
	}
	return artifacts, nil
}

func execute(ctx context.Context, logger *trace.Logger, opts Options) (*Artifacts, error) {
	runID := uuid.Must(uuid.NewV7()).String()

	table, err := dataset.Load(opts.DataPath)
	if err != nil {
		return nil, err
	}
	numericCols := table.NumericColumns()
	categoricalCols := table.CategoricalColumns()

	compiled := planner.Compile(opts.Question)
	refined := planner.Refine(compiled, numericCols, categoricalCols)

	plannerOutput, err := planToPayload(compiled)
	if err != nil {
		return nil, err
	}
	logger.Record(trace.EventPlan, map[string]any{
		"run_id":           runID,
		"question":         opts.Question,
		"data_path":        opts.DataPath,
		"headers":          table.Headers,
		"numeric_cols":     numericCols,
		"categorical_cols": categoricalCols,
		"steps":            planSteps(table.Headers),
		"planner_output":   plannerOutput,
	})

	sqlRunner, err := query.NewRunner(table, opts.ArtifactsDir, opts.MaxRows)
	if err != nil {
		return nil, err
	}
	defer sqlRunner.Close()

	sqlAction, ok := firstSQLAction(refined)
	if !ok {
		return nil, fmt.Errorf("plan has no SQL action")
	}
	result, err := sqlRunner.Run(ctx, sqlAction.Query)
	if err != nil {
		return nil, err
	}
	logger.Record(trace.EventSQLCall, map[string]any{
		"query_id":     result.QueryID,
		"query":        sqlAction.Query,
		"prepared_sql": result.SQL,
	})
	logger.Record(trace.EventSQLResult, map[string]any{
		"query_id":   result.QueryID,
		"row_count":  len(result.Rows),
		"table_path": result.TablePath,
	})

	renderer := chart.NewRenderer(opts.ArtifactsDir)
	rendered, err := renderer.Render(result.Columns, result.Rows)
	if err != nil {
		return nil, err
	}
	logger.Record(trace.EventChartCall, map[string]any{
		"chart_id": rendered.ChartID,
		"query_id": result.QueryID,
		"kind":     rendered.Kind,
	})
	logger.Record(trace.EventChartSaved, map[string]any{
		"chart_id":   rendered.ChartID,
		"chart_path": rendered.Path,
	})

	recommendations := buildRecommendations(result)

	// The synthesizer reads the finalized trace file, so everything recorded
	// up to here has to be durable before it runs. The deferred flush later
	// rewrites the same content plus the report_written event.
	if err := logger.Flush(); err != nil {
		return nil, err
	}
	if err := report.Synthesize(report.Options{
		ReportPath: opts.ReportPath,
		TracePath:  opts.TracePath,
		DataPath:   opts.DataPath,
		Question:   opts.Question,
	}); err != nil {
		return nil, err
	}
	logger.Record(trace.EventReportWritten, map[string]any{
		"report_path": opts.ReportPath,
	})

	return &Artifacts{
		RunID:           runID,
		Plan:            compiled,
		ExecutedSQL:     result.SQL,
		TablePath:       result.TablePath,
		ChartPath:       rendered.Path,
		ReportPath:      opts.ReportPath,
		TracePath:       opts.TracePath,
		Recommendations: recommendations,
		SQLCount:        1,
		ChartCount:      1,
	}, nil
}

// planSteps is the human-readable step list recorded with the plan event.
func planSteps(headers []string) []string {
	return []string{
		fmt.Sprintf("Review columns available: %s.", strings.Join(headers, ", ")),
		"Aggregate key metrics with SQL against the data table.",
		"Visualize the most relevant metric with a simple chart.",
		"Summarize findings and provide recommendations.",
	}
}

// buildRecommendations derives the run's recommendation list. When the
// result carries a category column and at least one row, the lead
// recommendation names the top row's category; otherwise generic text.
func buildRecommendations(result *query.Result) []string {
	recommendations := []string{
		"Double down on the strongest-performing category based on average metrics.",
		"Investigate drivers behind lower-performing categories and run targeted experiments.",
		"Monitor trends weekly and refresh the analysis with updated data.",
	}
	catCol := -1
	for i, name := range result.Columns {
		if name == "category" {
			catCol = i
			break
		}
	}
	if catCol >= 0 && len(result.Rows) > 0 && catCol < len(result.Rows[0]) {
		recommendations[0] = fmt.Sprintf(
			"Prioritize the %s category, which leads on average performance.", result.Rows[0][catCol])
	}
	return recommendations
}

func firstSQLAction(p planner.Plan) (planner.Action, bool) {
	for _, action := range p.Actions {
		if action.Tool == planner.ToolSQL {
			return action, true
		}
	}
	return planner.Action{}, false
}

// planToPayload converts a plan to JSON-native types so the trace payload
// round-trips identically through the trace file.
func planToPayload(p planner.Plan) (map[string]any, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode plan: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode plan payload: %w", err)
	}
	return payload, nil
}
