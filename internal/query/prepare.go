package query

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// DefaultMaxRows caps result sets when a query carries no LIMIT clause,
// and clamps an existing LIMIT that exceeds it.
const DefaultMaxRows = 200

// ValidationError reports a statement rejected by the safety gate.
// Validation failures are fatal to the run and never retried.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "query validation failed: " + e.Reason
}

// IsValidation reports whether err is a query validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// forbiddenKeywords are rejected as whole words, case-insensitive, anywhere
// in the statement. SELECT-only access to the virtual table is the contract.
var forbiddenKeywords = []string{
	"CREATE", "INSERT", "UPDATE", "DELETE", "DROP",
	"ALTER", "COPY", "ATTACH", "DETACH", "PRAGMA",
}

var (
	forbiddenPattern = regexp.MustCompile(`(?i)\b(` + strings.Join(forbiddenKeywords, "|") + `)\b`)
	limitPattern     = regexp.MustCompile(`(?i)\blimit\s+(\d+)\b`)
)

// Prepare validates a statement and normalizes its row limit.
//
// Rejected: statements not starting with SELECT (case-insensitive),
// multi-statement input, and any forbidden keyword. Accepted statements get
// LIMIT maxRows appended when absent; an existing LIMIT larger than maxRows
// is clamped down, a smaller one is left alone.
func Prepare(query string, maxRows int) (string, error) {
	stripped := strings.TrimSpace(query)
	if !strings.HasPrefix(strings.ToLower(stripped), "select") {
		return "", &ValidationError{Reason: "only SELECT statements are permitted"}
	}
	if strings.Contains(strings.TrimSuffix(stripped, ";"), ";") {
		return "", &ValidationError{Reason: "multiple SQL statements are not permitted"}
	}
	if match := forbiddenPattern.FindString(stripped); match != "" {
		return "", &ValidationError{
			Reason: fmt.Sprintf("forbidden SQL keyword detected: %s", strings.ToUpper(match)),
		}
	}

	stripped = strings.TrimSpace(strings.TrimSuffix(stripped, ";"))

	// Only the first LIMIT clause is inspected and, when too large, rewritten;
	// a subquery's inner LIMIT further along is left untouched.
	if loc := limitPattern.FindStringSubmatchIndex(stripped); loc != nil {
		value, err := strconv.Atoi(stripped[loc[2]:loc[3]])
		if err == nil && value > maxRows {
			stripped = stripped[:loc[0]] + fmt.Sprintf("LIMIT %d", maxRows) + stripped[loc[1]:]
		}
		return stripped, nil
	}
	return fmt.Sprintf("%s LIMIT %d", stripped, maxRows), nil
}
