package report

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/quarrylabs/quarry/internal/dataset"
)

type renderInput struct {
	reportPath     string
	tracePath      string
	dataPath       string
	question       string
	previewRows    int
	queries        []TraceQuery
	referenced     []TraceQuery
	findings       []finding
	plannerSummary map[string]any
}

// render assembles the report sections in their fixed order: Executive
// Summary, Key Findings, Planner Summary, Diagnostics, Recommendations,
// Appendix, Trace. The order and the per-section templates are part of the
// report contract.
func render(in renderInput) (string, error) {
	var b strings.Builder

	b.WriteString("# Latest Analysis Report\n\n")

	b.WriteString("## Executive Summary\n")
	chartCount := 0
	for _, q := range in.queries {
		if q.ChartPath != "" {
			chartCount++
		}
	}
	fmt.Fprintf(&b, "- Analyzed %d query result(s) from artifacts.\n", len(in.queries))
	fmt.Fprintf(&b, "- Generated %d chart(s) for visualization.\n", chartCount)
	b.WriteString("- Report compiled deterministically from trace logs and artifacts.\n\n")

	b.WriteString("## Key Findings\n")
	for _, f := range in.findings {
		fmt.Fprintf(&b, "- %s\n", f.text)
	}
	b.WriteString("\n")

	b.WriteString("## Planner Summary\n")
	writePlannerSummary(&b, in.plannerSummary)
	b.WriteString("\n")

	b.WriteString("## Diagnostics\n")
	for _, q := range in.referenced {
		table, err := dataset.Load(q.TablePath)
		if err != nil {
			return "", &GenerationError{Message: "unreadable table artifact", Err: err}
		}
		fmt.Fprintf(&b, "### Table Preview: %s\n", displayArtifactPath(q.TablePath))
		b.WriteString(table.Markdown(in.previewRows))
		b.WriteString("\n")
	}
	b.WriteString("### Charts\n")
	for _, q := range in.referenced {
		if q.ChartPath != "" {
			fmt.Fprintf(&b, "- [%s](%s)\n",
				displayArtifactPath(q.ChartPath), relativeLink(in.reportPath, q.ChartPath))
		}
	}
	b.WriteString("\n")

	b.WriteString("## Recommendations\n")
	first := in.findings[0].id
	last := in.findings[len(in.findings)-1].id
	fmt.Fprintf(&b, "- Validate the leading trend highlighted in %s with follow-up analysis.\n", first)
	fmt.Fprintf(&b, "- Prioritize data quality checks for metrics underpinning %s.\n", last)
	fmt.Fprintf(&b, "- Share results with stakeholders and align next steps based on %s.\n", first)
	b.WriteString("\n")

	b.WriteString("## Appendix\n")
	b.WriteString("### SQL Queries\n")
	for _, q := range in.queries {
		fmt.Fprintf(&b, "#### Query %d\n", q.QueryID)
		b.WriteString("```sql\n")
		fmt.Fprintf(&b, "%s\n", q.SQL)
		b.WriteString("```\n\n")
	}

	b.WriteString("### Parameters\n")
	fmt.Fprintf(&b, "- Data path: %s\n", in.dataPath)
	fmt.Fprintf(&b, "- Question: %s\n\n", in.question)

	b.WriteString("### Schema Snapshot\n")
	source, err := dataset.Load(in.dataPath)
	if err != nil {
		return "", &GenerationError{Message: "unreadable data source", Err: err}
	}
	schemaRows := make([][]string, 0, len(source.Headers))
	for _, col := range source.Schema() {
		schemaRows = append(schemaRows, []string{col.Name, string(col.Kind)})
	}
	b.WriteString(dataset.RenderMarkdown([]string{"column", "type"}, schemaRows))
	b.WriteString("\n")

	b.WriteString("### Trace\n")
	fmt.Fprintf(&b, "- Trace file: [%s](%s)\n",
		filepath.ToSlash(in.tracePath), relativeLink(in.reportPath, in.tracePath))

	return b.String(), nil
}

// writePlannerSummary emits intent/metrics/dimensions bullets from the
// reconstructed planner output, or a single unavailable marker.
func writePlannerSummary(b *strings.Builder, summary map[string]any) {
	if summary == nil {
		b.WriteString("- Intent: unavailable\n")
		return
	}
	wrote := false
	if intent, ok := summary["intent"].(string); ok {
		fmt.Fprintf(b, "- Intent: %s\n", intent)
		wrote = true
	}
	if metrics, ok := stringList(summary["metrics"]); ok {
		fmt.Fprintf(b, "- Metrics: %s\n", strings.Join(metrics, ", "))
		wrote = true
	}
	if dimensions, ok := stringList(summary["dimensions"]); ok {
		fmt.Fprintf(b, "- Dimensions: %s\n", strings.Join(dimensions, ", "))
		wrote = true
	}
	if !wrote {
		b.WriteString("- Intent: unavailable\n")
	}
}

// stringList coerces a decoded JSON array into strings. Non-string elements
// are rendered with fmt for resilience against hand-edited traces.
func stringList(v any) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		return list, true
	case []any:
		out := make([]string, len(list))
		for i, elem := range list {
			if s, ok := elem.(string); ok {
				out[i] = s
			} else {
				out[i] = fmt.Sprintf("%v", elem)
			}
		}
		return out, true
	default:
		return nil, false
	}
}
