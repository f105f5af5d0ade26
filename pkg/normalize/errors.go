// Package normalize converts raw tool and plugin output into canonical,
// schema-versioned Finding records, deduplicating within one project+run.
package normalize

import (
	"errors"
	"fmt"
)

// ErrInvalidDetectorID indicates a source id that does not match the
// detector id pattern.
var ErrInvalidDetectorID = errors.New("invalid detector id")

// SeverityMappingError reports a raw severity value outside the fixed
// mapping table. Unknown severities are rejected, never defaulted: silent
// defaulting would corrupt risk prioritization downstream.
type SeverityMappingError struct {
	Value  string
	Source string
}

func (e *SeverityMappingError) Error() string {
	return fmt.Sprintf("severity %q from source %s has no canonical mapping", e.Value, e.Source)
}

// SchemaValidationError reports the field on which a candidate finding
// failed schema validation. Such findings are never persisted.
type SchemaValidationError struct {
	Field string
	Err   error
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("finding schema validation failed on field %s: %v", e.Field, e.Err)
}

func (e *SchemaValidationError) Unwrap() error {
	return e.Err
}
