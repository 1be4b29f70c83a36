package eval

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadQuestions reads an evaluation question set from a YAML file
// (a list of {id, question} mappings) or a JSONL file (one object per
// line). Questions without an id are numbered by position.
func LoadQuestions(path string) ([]Question, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read questions file: %w", err)
	}

	var questions []Question
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &questions); err != nil {
			return nil, fmt.Errorf("parse questions yaml: %w", err)
		}
	case ".jsonl":
		questions, err = parseJSONL(raw)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported questions format: %s", filepath.Ext(path))
	}

	if len(questions) == 0 {
		return nil, fmt.Errorf("questions file %s contains no questions", path)
	}
	for i := range questions {
		if questions[i].ID == 0 {
			questions[i].ID = i + 1
		}
		if strings.TrimSpace(questions[i].Text) == "" {
			return nil, fmt.Errorf("question %d has empty text", questions[i].ID)
		}
	}
	return questions, nil
}

func parseJSONL(raw []byte) ([]Question, error) {
	var questions []Question
	scanner := bufio.NewScanner(strings.NewReader(string(raw)))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var q Question
		if err := json.Unmarshal([]byte(text), &q); err != nil {
			return nil, fmt.Errorf("parse questions jsonl line %d: %w", line, err)
		}
		questions = append(questions, q)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan questions file: %w", err)
	}
	return questions, nil
}
