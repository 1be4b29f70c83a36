package report

import (
	"sort"

	"github.com/quarrylabs/quarry/internal/trace"
)

// TraceQuery is one query reconstructed from a trace: the implicit join of
// sql_call, sql_result and, when present, chart_call plus chart_saved events
// on their embedded ids. It is derived state, never stored.
type TraceQuery struct {
	QueryID   int
	SQL       string
	TablePath string
	ChartPath string // empty when no chart maps to this query
}

// Params are the run inputs recovered from the trace.
type Params struct {
	DataPath string
	Question string
}

// extractParams pulls (data_path, question) from the first plan event that
// carries both as strings.
func extractParams(events []trace.Event) (Params, bool) {
	for _, event := range events {
		if event.EventType != trace.EventPlan {
			continue
		}
		dataPath, okData := event.Payload["data_path"].(string)
		question, okQuestion := event.Payload["question"].(string)
		if okData && okQuestion {
			return Params{DataPath: dataPath, Question: question}, true
		}
	}
	return Params{}, false
}

// extractQueries joins the four event types into ordered TraceQuery records.
// sql_result anchors the join: a query without a result is not reportable.
// At most one chart maps to a query; the first matching chart id wins.
func extractQueries(events []trace.Event) []TraceQuery {
	sqlByID := map[int]string{}
	tableByID := map[int]string{}
	chartByID := map[int]string{}
	chartQuery := map[int]int{}
	var chartOrder []int

	for _, event := range events {
		switch event.EventType {
		case trace.EventSQLCall:
			queryID, ok := payloadInt(event.Payload, "query_id")
			if !ok {
				continue
			}
			if sql, ok := event.Payload["prepared_sql"].(string); ok && sql != "" {
				sqlByID[queryID] = sql
			} else if sql, ok := event.Payload["query"].(string); ok {
				sqlByID[queryID] = sql
			}
		case trace.EventSQLResult:
			queryID, okID := payloadInt(event.Payload, "query_id")
			tablePath, okPath := event.Payload["table_path"].(string)
			if okID && okPath {
				tableByID[queryID] = tablePath
			}
		case trace.EventChartCall:
			chartID, okChart := payloadInt(event.Payload, "chart_id")
			queryID, okQuery := payloadInt(event.Payload, "query_id")
			if okChart && okQuery {
				if _, exists := chartQuery[chartID]; !exists {
					chartQuery[chartID] = queryID
					chartOrder = append(chartOrder, chartID)
				}
			}
		case trace.EventChartSaved:
			chartID, okChart := payloadInt(event.Payload, "chart_id")
			chartPath, okPath := event.Payload["chart_path"].(string)
			if okChart && okPath {
				chartByID[chartID] = chartPath
			}
		}
	}

	queryIDs := make([]int, 0, len(tableByID))
	for queryID := range tableByID {
		queryIDs = append(queryIDs, queryID)
	}
	sort.Ints(queryIDs)

	queries := make([]TraceQuery, 0, len(queryIDs))
	for _, queryID := range queryIDs {
		tq := TraceQuery{
			QueryID:   queryID,
			SQL:       sqlByID[queryID],
			TablePath: tableByID[queryID],
		}
		for _, chartID := range chartOrder {
			if chartQuery[chartID] == queryID {
				if path, ok := chartByID[chartID]; ok {
					tq.ChartPath = path
					break
				}
			}
		}
		queries = append(queries, tq)
	}
	return queries
}

// extractPlannerSummary finds the compiled plan: a dedicated planner event's
// payload, else a planner_output object nested in a plan event.
func extractPlannerSummary(events []trace.Event) map[string]any {
	for _, event := range events {
		if event.EventType == "planner" && event.Payload != nil {
			return event.Payload
		}
	}
	for _, event := range events {
		if event.EventType != trace.EventPlan {
			continue
		}
		if output, ok := event.Payload["planner_output"].(map[string]any); ok {
			return output
		}
	}
	return nil
}

// payloadInt reads an integer id from a decoded JSON payload, where numbers
// arrive as float64.
func payloadInt(payload map[string]any, key string) (int, bool) {
	switch v := payload[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	case int64:
		return int(v), true
	default:
		return 0, false
	}
}
