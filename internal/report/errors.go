package report

import (
	"errors"
	"fmt"
	"strings"
)

// GenerationError reports that a report could not be synthesized: the trace
// is missing, empty, or inconsistent, or required parameters are absent.
type GenerationError struct {
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("report generation failed: %s: %v", e.Message, e.Err)
	}
	return "report generation failed: " + e.Message
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// ArtifactMissingError aggregates every referenced artifact path that does
// not exist on disk. Validation collects the full list instead of failing on
// the first missing file.
type ArtifactMissingError struct {
	Paths []string
}

func (e *ArtifactMissingError) Error() string {
	return "missing required artifacts: " + strings.Join(e.Paths, ", ")
}

// IsGeneration reports whether err is any report synthesis failure.
func IsGeneration(err error) bool {
	var ge *GenerationError
	var ae *ArtifactMissingError
	return errors.As(err, &ge) || errors.As(err, &ae)
}

// IsArtifactMissing reports whether err is a missing-artifact failure.
func IsArtifactMissing(err error) bool {
	var ae *ArtifactMissingError
	return errors.As(err, &ae)
}
