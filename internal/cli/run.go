package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quarrylabs/quarry/internal/runner"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Question     string
	DataPath     string
	ReportPath   string
	TracePath    string
	ArtifactsDir string
	MaxRows      int
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Answer one question against a CSV dataset",
		Long: `Compile a natural-language question into a deterministic plan, execute
its SQL against the dataset, render a chart, and write a markdown report.

Every step is recorded to an append-only trace log, and the report is
synthesized from that trace rather than from in-memory state.

Example:
  quarry run --data sales.csv --question "Which region has the highest average units?"
  quarry run --data sales.csv --question "Compare revenue by region" --report-path out/report.md`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuestion(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Question, "question", "q", "", "question to answer (required)")
	cmd.Flags().StringVar(&opts.DataPath, "data", "", "path to CSV dataset")
	cmd.Flags().StringVar(&opts.ReportPath, "report-path", "", "where to write the markdown report")
	cmd.Flags().StringVar(&opts.TracePath, "trace-path", "", "where to write the trace log")
	cmd.Flags().StringVar(&opts.ArtifactsDir, "artifacts-dir", "", "directory for table and chart artifacts")
	cmd.Flags().IntVar(&opts.MaxRows, "max-rows", 0, "row limit enforced on SQL results")
	_ = cmd.MarkFlagRequired("question")

	return cmd
}

func runQuestion(cmd *cobra.Command, opts *RunOptions) error {
	cfg := opts.Config
	dataPath := firstNonEmpty(opts.DataPath, cfg.DataPath)
	if dataPath == "" {
		return NewExitError(ExitCommandError, "no dataset: pass --data or set data in quarry.yaml")
	}
	maxRows := opts.MaxRows
	if maxRows == 0 {
		maxRows = cfg.MaxRows
	}

	runOpts := runner.Options{
		Question:     opts.Question,
		DataPath:     dataPath,
		ReportPath:   firstNonEmpty(opts.ReportPath, cfg.ReportPath),
		TracePath:    firstNonEmpty(opts.TracePath, cfg.TracePath),
		ArtifactsDir: firstNonEmpty(opts.ArtifactsDir, cfg.ArtifactsDir),
		MaxRows:      maxRows,
	}

	ctx, cancel := signalContext(cmd)
	defer cancel()

	slog.Info("run starting", "question", opts.Question, "data", dataPath)
	artifacts, err := runner.Run(ctx, runOpts)
	if err != nil {
		return WrapExitError(ExitFailure, "run failed", err)
	}
	slog.Info("run complete", "run_id", artifacts.RunID, "report", artifacts.ReportPath)

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return formatter.Success(map[string]any{
			"run_id":          artifacts.RunID,
			"report_path":     artifacts.ReportPath,
			"trace_path":      artifacts.TracePath,
			"chart_path":      artifacts.ChartPath,
			"table_path":      artifacts.TablePath,
			"sql":             artifacts.ExecutedSQL,
			"recommendations": artifacts.Recommendations,
		})
	}

	lines := []string{
		fmt.Sprintf("Report written to %s", artifacts.ReportPath),
		fmt.Sprintf("Trace written to %s", artifacts.TracePath),
		fmt.Sprintf("Chart saved to %s", artifacts.ChartPath),
		"Recommendations:",
	}
	for _, rec := range artifacts.Recommendations {
		lines = append(lines, "  - "+rec)
	}
	return formatter.Success(lines)
}

// signalContext derives a context cancelled on SIGINT/SIGTERM from the
// command's context so a long query can be interrupted cleanly.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
