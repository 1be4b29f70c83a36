// Package trace implements the append-only event log for a single run.
//
// Events accumulate in an in-memory buffer owned by the run orchestrator and
// are written out as newline-delimited JSON by Flush. The trace file is the
// single source of truth for report reconstruction: no event is ever removed
// or reordered after being recorded.
package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Event types emitted during a run.
const (
	EventPlan          = "plan"
	EventSQLCall       = "sql_call"
	EventSQLResult     = "sql_result"
	EventChartCall     = "chart_call"
	EventChartSaved    = "chart_saved"
	EventReportWritten = "report_written"
	EventError         = "error"
)

// Event is one timestamped, typed entry in a run's trace.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	EventType string         `json:"event_type"`
	Payload   map[string]any `json:"payload"`
}

// Logger buffers events in memory and writes them to a file on Flush.
//
// Flush is idempotent: it always rewrites the file with the complete
// accumulated buffer, so calling it again after more events were recorded
// produces a superset, never a duplicate suffix.
type Logger struct {
	path   string
	events []Event

	// Clock supplies event timestamps. Overridable for deterministic tests.
	Clock func() time.Time
}

// NewLogger creates a logger that flushes to path.
func NewLogger(path string) *Logger {
	return &Logger{
		path:  path,
		Clock: time.Now,
	}
}

// Record appends one timestamped event to the buffer.
func (l *Logger) Record(eventType string, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	l.events = append(l.events, Event{
		Timestamp: l.Clock().UTC(),
		EventType: eventType,
		Payload:   payload,
	})
}

// Events returns the buffered events in emission order.
func (l *Logger) Events() []Event {
	return l.events
}

// Path returns the flush destination.
func (l *Logger) Path() string {
	return l.path
}

// Flush writes the buffer as newline-delimited JSON records, creating parent
// directories as needed. The file is truncated and rewritten on every call.
func (l *Logger) Flush() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("create trace directory: %w", err)
	}

	f, err := os.Create(l.path)
	if err != nil {
		return fmt.Errorf("create trace file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for i, event := range l.events {
		if err := enc.Encode(event); err != nil {
			return fmt.Errorf("encode trace event %d: %w", i, err)
		}
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close trace file: %w", err)
	}
	return nil
}
