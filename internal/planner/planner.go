// Package planner compiles free-text analytical questions into structured,
// deterministic analysis plans.
//
// The compiler is pure data plus a pure function: fixed ordered keyword
// tables drive intent, metric, dimension and grain classification, and
// table declaration order decides every tie-break. Two calls with the same
// question text produce deeply equal plans and byte-identical JSON.
package planner

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Intent classifies the analytical purpose of a question.
type Intent string

const (
	IntentTrend        Intent = "trend"
	IntentComparison   Intent = "comparison"
	IntentFunnel       Intent = "funnel"
	IntentSegmentation Intent = "segmentation"
	IntentAnomaly      Intent = "anomaly"
	IntentAttribution  Intent = "attribution"
	IntentSummary      Intent = "summary"
)

// Tool identifies the capability an action targets.
type Tool string

const (
	ToolSQL   Tool = "sql"
	ToolChart Tool = "chart"
)

// TimeWindow bounds a plan to an optional date range and grain.
// Absent fields are nil, never empty strings.
type TimeWindow struct {
	Start *string `json:"start"`
	End   *string `json:"end"`
	Grain *string `json:"grain"`
}

// Action is one step of a plan's execution surface.
// A plan contains exactly one SQL action (first) and at most one chart
// action (second, only for trend/comparison/segmentation intents).
type Action struct {
	Tool  Tool   `json:"tool"`
	Query string `json:"query,omitempty"`
	Limit int    `json:"limit,omitempty"`
	Kind  string `json:"kind,omitempty"`
	X     string `json:"x,omitempty"`
	Y     string `json:"y,omitempty"`
}

// Plan is the compiled form of a question. Immutable once produced.
type Plan struct {
	Intent     Intent     `json:"intent"`
	Metrics    []string   `json:"metrics"`
	Dimensions []string   `json:"dimensions"`
	TimeWindow TimeWindow `json:"time_window"`
	Hypotheses []string   `json:"hypotheses"`
	Actions    []Action   `json:"actions"`
}

// DefaultRowLimit caps every generated SQL action.
const DefaultRowLimit = 200

// Keyword tables are ordered association lists, not maps: iteration order
// decides tie-breaks, and that ordering contract is part of the plan schema.

type intentRule struct {
	intent   Intent
	keywords []string
}

var intentRules = []intentRule{
	{IntentTrend, []string{"trend", "over time", "over the", "growth", "increase", "decrease"}},
	{IntentComparison, []string{"compare", "vs", "versus", "difference", "relative"}},
	{IntentFunnel, []string{"funnel", "conversion", "drop-off", "step"}},
	{IntentSegmentation, []string{"breakdown", "segment", "by ", "group by", "grouped"}},
	{IntentAnomaly, []string{"anomaly", "spike", "dip", "outlier", "unexpected"}},
	{IntentAttribution, []string{"attribution", "driver", "cause", "impact", "contribution"}},
}

type taggedKeywords struct {
	tag      string
	keywords []string
}

var metricRules = []taggedKeywords{
	{"revenue", []string{"revenue", "sales"}},
	{"users", []string{"users", "active users"}},
	{"sessions", []string{"sessions", "visits"}},
	{"orders", []string{"orders", "purchases"}},
	{"conversion_rate", []string{"conversion rate", "conversion"}},
	{"churn", []string{"churn"}},
	{"retention", []string{"retention"}},
	{"clicks", []string{"clicks"}},
	{"signups", []string{"signups", "registrations"}},
}

var dimensionRules = []taggedKeywords{
	{"country", []string{"country", "countries"}},
	{"region", []string{"region"}},
	{"device", []string{"device", "mobile", "desktop"}},
	{"channel", []string{"channel", "source", "campaign"}},
	{"product", []string{"product"}},
	{"category", []string{"category"}},
	{"plan", []string{"plan", "tier"}},
	{"segment", []string{"segment", "cohort"}},
}

var grainRules = []taggedKeywords{
	{"daily", []string{"daily", "day"}},
	{"weekly", []string{"weekly", "week"}},
	{"monthly", []string{"monthly", "month"}},
	{"quarterly", []string{"quarterly", "quarter"}},
	{"yearly", []string{"yearly", "year"}},
}

var hypothesisBank = map[Intent][]string{
	IntentTrend: {
		"Seasonality or calendar effects are driving the trend.",
		"Changes in acquisition volume are influencing the metric.",
	},
	IntentComparison: {
		"Differences in user mix explain the gap between cohorts.",
		"Pricing or promotion changes caused the variance.",
	},
	IntentSegmentation: {
		"Customer behavior varies significantly by segment.",
		"Operational differences across segments drive performance changes.",
	},
	IntentFunnel: {
		"A specific funnel step has a higher-than-expected drop-off.",
		"Traffic quality differences are affecting conversion rates.",
	},
	IntentAnomaly: {
		"A data quality issue created the observed spike or dip.",
		"A one-time event shifted the metric temporarily.",
	},
	IntentAttribution: {
		"One channel contributes disproportionately to the outcome.",
		"Recent campaigns shifted attribution mix toward a single driver.",
	},
	IntentSummary: {
		"Overall performance is driven by the largest customer cohorts.",
		"Top-performing segments dominate the aggregate metric.",
	},
}

var datePattern = regexp.MustCompile(`\b(20\d{2}-\d{2}-\d{2})\b`)

// Compile turns a question into a plan. It is total: every input string,
// including one matching no keyword table at all, yields a complete plan
// with defaults. Compile never fails.
func Compile(question string) Plan {
	normalized := Normalize(question)
	intent := detectIntent(normalized)
	metrics := detectMetrics(normalized)
	dimensions := detectDimensions(normalized, intent)
	window := detectTimeWindow(normalized)
	return Plan{
		Intent:     intent,
		Metrics:    metrics,
		Dimensions: dimensions,
		TimeWindow: window,
		Hypotheses: append([]string(nil), hypothesisBank[intent][:2]...),
		Actions:    buildActions(intent, metrics, dimensions, window),
	}
}

// Normalize applies NFC normalization, trims, lowercases, and collapses
// whitespace runs to single spaces. NFC happens first so keyword matching
// sees one canonical byte form for visually identical text.
func Normalize(question string) string {
	s := norm.NFC.String(question)
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}

func detectIntent(normalized string) Intent {
	for _, rule := range intentRules {
		for _, kw := range rule.keywords {
			if strings.Contains(normalized, kw) {
				return rule.intent
			}
		}
	}
	if strings.Contains(normalized, " by ") {
		return IntentSegmentation
	}
	return IntentSummary
}

// collectTags returns every tag whose keyword list matches, in table order.
func collectTags(normalized string, rules []taggedKeywords) []string {
	var tags []string
	for _, rule := range rules {
		for _, kw := range rule.keywords {
			if strings.Contains(normalized, kw) {
				tags = append(tags, rule.tag)
				break
			}
		}
	}
	return tags
}

func detectMetrics(normalized string) []string {
	metrics := collectTags(normalized, metricRules)
	if len(metrics) == 0 {
		metrics = []string{"count"}
	}
	return metrics
}

func detectDimensions(normalized string, intent Intent) []string {
	dimensions := collectTags(normalized, dimensionRules)
	if intent == IntentTrend && !contains(dimensions, "date") {
		dimensions = append(dimensions, "date")
	}
	return dimensions
}

func detectTimeWindow(normalized string) TimeWindow {
	var window TimeWindow
	dates := datePattern.FindAllString(normalized, -1)
	if len(dates) > 0 {
		window.Start = &dates[0]
	}
	if len(dates) > 1 {
		window.End = &dates[1]
	}
	for _, rule := range grainRules {
		for _, kw := range rule.keywords {
			if strings.Contains(normalized, kw) {
				grain := rule.tag
				window.Grain = &grain
				return window
			}
		}
	}
	return window
}

func buildActions(intent Intent, metrics, dimensions []string, window TimeWindow) []Action {
	actions := []Action{{
		Tool:  ToolSQL,
		Query: buildQuery(metrics, dimensions, window),
		Limit: DefaultRowLimit,
	}}
	if intent == IntentTrend || intent == IntentComparison || intent == IntentSegmentation {
		x := "category"
		if len(dimensions) > 0 {
			x = dimensions[0]
		}
		kind := "bar"
		if intent == IntentTrend {
			kind = "line"
		}
		actions = append(actions, Action{
			Tool: ToolChart,
			Kind: kind,
			X:    x,
			Y:    metricAlias(metrics[0]),
		})
	}
	return actions
}

// buildQuery assembles a single SELECT over the virtual table "data":
// dimensions first, then one aggregate expression per metric, time-window
// bounds ANDed into WHERE, GROUP BY the dimension list when non-empty.
func buildQuery(metrics, dimensions []string, window TimeWindow) string {
	parts := make([]string, 0, len(dimensions)+len(metrics))
	parts = append(parts, dimensions...)
	for _, metric := range metrics {
		parts = append(parts, metricExpression(metric))
	}
	query := "SELECT " + strings.Join(parts, ", ") + " FROM data"

	var filters []string
	if window.Start != nil {
		filters = append(filters, fmt.Sprintf("date >= '%s'", *window.Start))
	}
	if window.End != nil {
		filters = append(filters, fmt.Sprintf("date <= '%s'", *window.End))
	}
	if len(filters) > 0 {
		query += " WHERE " + strings.Join(filters, " AND ")
	}
	if len(dimensions) > 0 {
		query += " GROUP BY " + strings.Join(dimensions, ", ")
	}
	return query
}

func metricExpression(metric string) string {
	if metric == "count" {
		return "COUNT(*) AS count"
	}
	return fmt.Sprintf("SUM(%s) AS %s", metric, metricAlias(metric))
}

func metricAlias(metric string) string {
	return metric
}

func contains(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}
