// Package report synthesizes a markdown analysis report from a finalized
// trace file and the artifacts it references.
//
// Synthesis is intentionally decoupled from the run that produced the trace:
// it consumes only the trace events, the persisted table and chart artifacts,
// and the raw data file. Given the same unmodified inputs it produces
// byte-identical output, so a report can always be rebuilt out-of-band and
// checked against the evidence trail.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/quarrylabs/quarry/internal/dataset"
	"github.com/quarrylabs/quarry/internal/trace"
)

// DefaultPreviewRows is how many rows each diagnostics table preview shows.
const DefaultPreviewRows = 5

// maxFindingQueries caps how many reconstructed queries become findings.
const maxFindingQueries = 5

// Options configure one synthesis. DataPath and Question override the values
// recovered from the trace's plan event; they are required only when the
// trace carries neither.
type Options struct {
	ReportPath  string
	TracePath   string
	DataPath    string
	Question    string
	PreviewRows int
}

// Synthesize rebuilds the markdown report for a run from its trace.
// It fails with a GenerationError when the trace is missing, empty, or
// yields no SQL results, and with an ArtifactMissingError listing every
// referenced artifact absent from disk.
func Synthesize(opts Options) error {
	previewRows := opts.PreviewRows
	if previewRows <= 0 {
		previewRows = DefaultPreviewRows
	}

	events, err := loadTrace(opts.TracePath)
	if err != nil {
		return err
	}

	params, found := extractParams(events)
	dataPath, question := opts.DataPath, opts.Question
	if found {
		if dataPath == "" {
			dataPath = params.DataPath
		}
		if question == "" {
			question = params.Question
		}
	}
	if dataPath == "" || question == "" {
		return &GenerationError{Message: "report generation requires a data path and question"}
	}

	queries := extractQueries(events)
	if len(queries) == 0 {
		return &GenerationError{Message: "no SQL results found in trace to build findings"}
	}
	plannerSummary := extractPlannerSummary(events)

	if err := validateArtifacts(queries); err != nil {
		return err
	}

	findings, referenced, err := buildFindings(queries, opts.ReportPath)
	if err != nil {
		return err
	}

	body, err := render(renderInput{
		reportPath:     opts.ReportPath,
		tracePath:      opts.TracePath,
		dataPath:       dataPath,
		question:       question,
		previewRows:    previewRows,
		queries:        queries,
		referenced:     referenced,
		findings:       findings,
		plannerSummary: plannerSummary,
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(opts.ReportPath), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	if err := os.WriteFile(opts.ReportPath, []byte(body), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func loadTrace(tracePath string) ([]trace.Event, error) {
	if _, err := os.Stat(tracePath); err != nil {
		return nil, &GenerationError{Message: "trace file not found: " + tracePath, Err: err}
	}
	events, err := trace.ReadFile(tracePath)
	if err != nil {
		return nil, &GenerationError{Message: "unreadable trace", Err: err}
	}
	if len(events) == 0 {
		return nil, &GenerationError{Message: "trace file is empty: " + tracePath}
	}
	return events, nil
}

// validateArtifacts checks existence of every referenced table and chart,
// collecting all missing paths into one combined failure.
func validateArtifacts(queries []TraceQuery) error {
	var missing []string
	for _, q := range queries {
		if _, err := os.Stat(q.TablePath); err != nil {
			missing = append(missing, q.TablePath)
		}
		if q.ChartPath != "" {
			if _, err := os.Stat(q.ChartPath); err != nil {
				missing = append(missing, q.ChartPath)
			}
		}
	}
	if len(missing) > 0 {
		return &ArtifactMissingError{Paths: missing}
	}
	return nil
}

// finding is one Key Findings bullet plus the ids it cites.
type finding struct {
	id   string
	text string
}

// buildFindings derives the Key Findings list. With three or more
// reconstructed queries each of the first five yields one row/column summary
// finding. With fewer, exactly three findings are built from the first
// query: a row/column summary, a first-row sample (or an explicit no-data
// note), and a column listing.
func buildFindings(queries []TraceQuery, reportPath string) ([]finding, []TraceQuery, error) {
	referenced := queries
	if len(referenced) > maxFindingQueries {
		referenced = referenced[:maxFindingQueries]
	}

	build := func(id string, q TraceQuery, detail string) finding {
		text := fmt.Sprintf("%s: %s Table: [%s](%s). Trace query id: %d.",
			id, detail, displayArtifactPath(q.TablePath), relativeLink(reportPath, q.TablePath), q.QueryID)
		if q.ChartPath != "" {
			text += fmt.Sprintf(" Chart: [%s](%s).",
				displayArtifactPath(q.ChartPath), relativeLink(reportPath, q.ChartPath))
		}
		return finding{id: id, text: text}
	}

	if len(referenced) >= 3 {
		findings := make([]finding, 0, len(referenced))
		for i, q := range referenced {
			table, err := dataset.Load(q.TablePath)
			if err != nil {
				return nil, nil, &GenerationError{Message: "unreadable table artifact", Err: err}
			}
			detail := fmt.Sprintf("Query %d returned %d row(s) across %d column(s).",
				q.QueryID, len(table.Rows), len(table.Headers))
			findings = append(findings, build(fmt.Sprintf("F%d", i+1), q, detail))
		}
		return findings, referenced, nil
	}

	q := referenced[0]
	table, err := dataset.Load(q.TablePath)
	if err != nil {
		return nil, nil, &GenerationError{Message: "unreadable table artifact", Err: err}
	}

	findings := make([]finding, 0, 3)
	findings = append(findings, build("F1", q, fmt.Sprintf(
		"Query %d returned %d row(s) across %d column(s).", q.QueryID, len(table.Rows), len(table.Headers))))

	sample := "The first row contains no data."
	if len(table.Rows) > 0 {
		pairs := make([]string, 0, len(table.Headers))
		for i, header := range table.Headers {
			value := ""
			if i < len(table.Rows[0]) {
				value = table.Rows[0][i]
			}
			pairs = append(pairs, fmt.Sprintf("%s=%s", header, value))
		}
		sample = "Sample of the first row: " + strings.Join(pairs, ", ") + "."
	}
	findings = append(findings, build("F2", q, sample))

	findings = append(findings, build("F3", q, fmt.Sprintf(
		"The table includes the following columns: %s.", strings.Join(table.Headers, ", "))))

	return findings, referenced, nil
}

// displayArtifactPath shortens a path to its artifacts/-relative suffix for
// display labels. Paths outside an artifacts directory pass through.
func displayArtifactPath(path string) string {
	slashed := filepath.ToSlash(path)
	if idx := strings.LastIndex(slashed, "artifacts/"); idx >= 0 {
		return slashed[idx:]
	}
	return slashed
}

// relativeLink renders target relative to the report's own directory so the
// report remains valid wherever the output tree is moved as a whole.
func relativeLink(reportPath, target string) string {
	reportDir, err := filepath.Abs(filepath.Dir(reportPath))
	if err != nil {
		return filepath.ToSlash(target)
	}
	absTarget, err := filepath.Abs(target)
	if err != nil {
		return filepath.ToSlash(target)
	}
	rel, err := filepath.Rel(reportDir, absTarget)
	if err != nil {
		return filepath.ToSlash(target)
	}
	return filepath.ToSlash(rel)
}
