package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/quarrylabs/quarry/internal/report"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	TracePath  string
	ReportPath string
	DataPath   string
	Question   string
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Resynthesize a report from an existing trace",
		Long: `Rebuild the markdown report for a past run from its trace log and the
artifacts it references. Running it twice against the same trace yields a
byte-identical report.

--data and --question are only needed when the trace predates its plan
event or the run failed before recording one.

Example:
  quarry report --trace trace_log.jsonl
  quarry report --trace eval_results/trace_2.jsonl --report-path replayed.md`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.TracePath, "trace", "", "path to trace log (required)")
	cmd.Flags().StringVar(&opts.ReportPath, "report-path", "", "where to write the markdown report")
	cmd.Flags().StringVar(&opts.DataPath, "data", "", "dataset path override for the appendix schema snapshot")
	cmd.Flags().StringVarP(&opts.Question, "question", "q", "", "question override when the trace has no plan event")
	_ = cmd.MarkFlagRequired("trace")

	return cmd
}

func runReport(cmd *cobra.Command, opts *ReportOptions) error {
	cfg := opts.Config
	reportPath := firstNonEmpty(opts.ReportPath, cfg.ReportPath)

	slog.Info("synthesizing report", "trace", opts.TracePath, "report", reportPath)
	err := report.Synthesize(report.Options{
		ReportPath: reportPath,
		TracePath:  opts.TracePath,
		DataPath:   opts.DataPath,
		Question:   opts.Question,
	})
	if err != nil {
		if report.IsGeneration(err) {
			return WrapExitError(ExitFailure, "report synthesis failed", err)
		}
		return WrapExitError(ExitCommandError, "report synthesis error", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
	if opts.Format == "json" {
		return formatter.Success(map[string]any{
			"report_path": reportPath,
			"trace_path":  opts.TracePath,
		})
	}
	return formatter.Success(fmt.Sprintf("Report written to %s", reportPath))
}
