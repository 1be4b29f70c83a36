package trace

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
}

func TestLogger_RecordPreservesOrder(t *testing.T) {
	logger := NewLogger(filepath.Join(t.TempDir(), "trace.jsonl"))
	logger.Clock = fixedClock

	logger.Record(EventPlan, map[string]any{"question": "q"})
	logger.Record(EventSQLCall, map[string]any{"query_id": 1})
	logger.Record(EventSQLResult, map[string]any{"query_id": 1})

	events := logger.Events()
	require.Len(t, events, 3)
	assert.Equal(t, EventPlan, events[0].EventType)
	assert.Equal(t, EventSQLCall, events[1].EventType)
	assert.Equal(t, EventSQLResult, events[2].EventType)
}

func TestLogger_FlushRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "trace.jsonl")
	logger := NewLogger(path)
	logger.Clock = fixedClock

	logger.Record(EventPlan, map[string]any{"question": "what happened"})
	logger.Record(EventError, map[string]any{"error": "boom"})
	require.NoError(t, logger.Flush())

	events, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventPlan, events[0].EventType)
	assert.Equal(t, "what happened", events[0].Payload["question"])
	assert.Equal(t, fixedClock(), events[0].Timestamp)
	assert.Equal(t, "boom", events[1].Payload["error"])
}

func TestLogger_FlushIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	logger := NewLogger(path)
	logger.Clock = fixedClock

	logger.Record(EventPlan, nil)
	require.NoError(t, logger.Flush())
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	// Repeated flush overwrites with the same accumulated content.
	require.NoError(t, logger.Flush())
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// A flush after more events rewrites the whole buffer, no duplicates.
	logger.Record(EventReportWritten, map[string]any{"report_path": "r.md"})
	require.NoError(t, logger.Flush())
	events, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestRead_SkipsBlankLines(t *testing.T) {
	input := `{"timestamp":"2024-06-01T12:00:00Z","event_type":"plan","payload":{}}

{"timestamp":"2024-06-01T12:00:01Z","event_type":"sql_call","payload":{"query_id":1}}
`
	events, err := Read(strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestRead_MalformedLineIsFatal(t *testing.T) {
	input := `{"timestamp":"2024-06-01T12:00:00Z","event_type":"plan","payload":{}}
not json at all
`
	_, err := Read(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "absent.jsonl"))
	require.Error(t, err)
}
