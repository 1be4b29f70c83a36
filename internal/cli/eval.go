package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/quarrylabs/quarry/internal/eval"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	DataPath      string
	OutputDir     string
	QuestionsPath string
	MaxRows       int
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Run the evaluation harness over a question set",
		Long: `Run every evaluation question through the full pipeline and write a
results.csv scorecard plus per-question reports, traces, and artifacts.

A failing question is recorded and the remaining questions still run.
The command exits non-zero when any question fails.

Example:
  quarry eval --data sales.csv
  quarry eval --data sales.csv --questions questions.yaml --output-dir eval_out`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.DataPath, "data", "", "path to CSV dataset")
	cmd.Flags().StringVar(&opts.OutputDir, "output-dir", "", "directory for evaluation outputs")
	cmd.Flags().StringVar(&opts.QuestionsPath, "questions", "", "YAML or JSONL question set (defaults to the built-in set)")
	cmd.Flags().IntVar(&opts.MaxRows, "max-rows", 0, "row limit enforced on SQL results")

	return cmd
}

func runEval(cmd *cobra.Command, opts *EvalOptions) error {
	cfg := opts.Config
	dataPath := firstNonEmpty(opts.DataPath, cfg.DataPath)
	if dataPath == "" {
		return NewExitError(ExitCommandError, "no dataset: pass --data or set data in quarry.yaml")
	}

	var questions []eval.Question
	if opts.QuestionsPath != "" {
		loaded, err := eval.LoadQuestions(opts.QuestionsPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load questions", err)
		}
		questions = loaded
	}

	maxRows := opts.MaxRows
	if maxRows == 0 {
		maxRows = cfg.MaxRows
	}
	evalOpts := eval.Options{
		DataPath:  dataPath,
		OutputDir: firstNonEmpty(opts.OutputDir, cfg.OutputDir),
		Questions: questions,
		MaxRows:   maxRows,
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	slog.Info("eval starting", "data", dataPath, "output_dir", evalOpts.OutputDir)
	summary, err := eval.Run(ctx, evalOpts)
	if err != nil {
		return WrapExitError(ExitCommandError, "eval harness error", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		if err := formatter.Success(evalSummaryData(summary)); err != nil {
			return err
		}
	} else {
		lines := make([]string, 0, len(summary.Results)+1)
		for _, r := range summary.Results {
			line := fmt.Sprintf("[%s] question %d: %s (%d ms)", r.Status, r.QuestionID, r.Question, r.RuntimeMS)
			if r.Err != "" {
				line += " error: " + r.Err
			}
			lines = append(lines, line)
		}
		lines = append(lines, fmt.Sprintf("Results written to %s", summary.ResultsPath))
		if err := formatter.Success(lines); err != nil {
			return err
		}
	}

	if !summary.Passed() {
		return NewExitError(ExitFailure, "one or more evaluation questions failed")
	}
	return nil
}

func evalSummaryData(summary *eval.Summary) map[string]any {
	results := make([]map[string]any, 0, len(summary.Results))
	for _, r := range summary.Results {
		results = append(results, map[string]any{
			"question_id": r.QuestionID,
			"question":    r.Question,
			"status":      r.Status,
			"runtime_ms":  r.RuntimeMS,
			"sql_count":   r.SQLCount,
			"chart_count": r.ChartCount,
			"report_path": r.ReportPath,
			"trace_path":  r.TracePath,
			"error":       r.Err,
		})
	}
	return map[string]any{
		"passed":       summary.Passed(),
		"results":      results,
		"results_path": summary.ResultsPath,
	}
}
