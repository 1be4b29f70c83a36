package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadFile parses a trace file into its ordered event list.
// Blank lines are skipped; a non-blank line that fails to parse is a fatal
// error, since a half-readable trace cannot back a verifiable report.
func ReadFile(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	defer f.Close()

	events, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("read trace file %s: %w", path, err)
	}
	return events, nil
}

// Read parses newline-delimited JSON events from r, preserving order.
func Read(r io.Reader) ([]Event, error) {
	var events []Event

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		var event Event
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			return nil, fmt.Errorf("malformed trace event on line %d: %w", lineNo, err)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan trace: %w", err)
	}
	return events, nil
}
