package services

import (
	"fmt"
	"strings"
)

// Violation is a single field-level failure reported by schema validation.
type Violation struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

func (v Violation) String() string {
	return v.Path + ": " + v.Reason
}

// ConfigurationError means a required credential or setting is absent.
// It is fatal and never retried.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string { return e.Msg }

// ProviderError wraps a failed transcription or completion call.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *ProviderError) Unwrap() error { return e.Err }

// ParseError means model output was not valid JSON after sanitization.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string { return "model output is not valid JSON: " + e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError means parsed model output did not satisfy the structural
// contract. The full violation list is kept for diagnostics.
type SchemaError struct {
	Schema     string
	Violations []Violation
}

func (e *SchemaError) Error() string {
	parts := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		parts[i] = v.String()
	}
	return fmt.Sprintf("%s output failed validation: %s", e.Schema, strings.Join(parts, "; "))
}
