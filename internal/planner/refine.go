package planner

import "fmt"

// Refine adapts a compiled plan to the columns that actually exist in the
// dataset. The keyword plan is authoritative for the plan contract; refinement
// only narrows metric and dimension choices to real columns so the SQL action
// is executable as-is.
//
// Selection rules:
//   - metric column: first plan metric that is a numeric column, else the
//     first numeric column.
//   - group column: first plan dimension that is a categorical column, else
//     the first categorical column.
//
// The refined SQL aliases the group column to "category" so downstream
// recommendation and chart rules can key on a stable name. Refine is as
// deterministic as Compile: same plan and schema, same result.
func Refine(p Plan, numericCols, categoricalCols []string) Plan {
	metric := pickColumn(p.Metrics, numericCols)
	group := pickColumn(p.Dimensions, categoricalCols)

	refined := p
	refined.Metrics = cloneStrings(p.Metrics)
	refined.Dimensions = cloneStrings(p.Dimensions)
	refined.Hypotheses = cloneStrings(p.Hypotheses)
	refined.Actions = make([]Action, len(p.Actions))
	copy(refined.Actions, p.Actions)

	sql, yAxis := refinedQuery(metric, group)
	for i := range refined.Actions {
		switch refined.Actions[i].Tool {
		case ToolSQL:
			refined.Actions[i].Query = sql
		case ToolChart:
			if group != "" {
				refined.Actions[i].X = "category"
			}
			refined.Actions[i].Y = yAxis
		}
	}
	return refined
}

// refinedQuery builds the execution SQL for the chosen columns and returns
// it with the alias of the leading aggregate.
func refinedQuery(metric, group string) (sql, yAxis string) {
	switch {
	case metric != "" && group != "":
		avg := "avg_" + metric
		return fmt.Sprintf(
			"SELECT %s AS category, ROUND(AVG(%s), 2) AS %s, SUM(%s) AS total_%s FROM data GROUP BY %s ORDER BY %s DESC",
			group, metric, avg, metric, metric, group, avg,
		), avg
	case metric != "":
		avg := "avg_" + metric
		return fmt.Sprintf(
			"SELECT ROUND(AVG(%s), 2) AS %s, SUM(%s) AS total_%s FROM data",
			metric, avg, metric, metric,
		), avg
	default:
		return "SELECT COUNT(*) AS row_count FROM data", "row_count"
	}
}

// pickColumn returns the first preferred name present in available, else the
// first available column, else "".
func pickColumn(preferred, available []string) string {
	for _, want := range preferred {
		if contains(available, want) {
			return want
		}
	}
	if len(available) > 0 {
		return available[0]
	}
	return ""
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
