// Package errors provides the error types used across the sdcusage pipeline.
// The run model is fail-fast: every stage surfaces the first error it sees
// and the process terminates without publishing. Typed errors exist so the
// CLI can distinguish startup configuration problems from mid-run endpoint
// failures when choosing exit messaging.
package errors

import (
	"errors"
	"fmt"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Sentinel errors for programmatic checks via errors.Is.
var (
	// ErrConfiguration indicates invalid or missing startup configuration,
	// detected before any network activity.
	ErrConfiguration = errors.New("configuration error")

	// ErrTransport indicates a non-success response from a remote endpoint.
	ErrTransport = errors.New("transport error")

	// ErrDataShape indicates a response that parsed but is missing a
	// required field or carries a malformed value.
	ErrDataShape = errors.New("data shape error")

	// ErrTokenMissing indicates the WCQS token file could not be read.
	ErrTokenMissing = errors.New("token file missing")
)

// ConfigError reports invalid or absent configuration. It is always fatal
// at startup, before the pipeline has touched the network.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfiguration
}

// NewConfigError creates a new ConfigError.
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{Component: component, Message: message, Err: err}
}

// APIError reports a non-success response from WCQS or the wiki API.
// Any APIError aborts the run; there are no retries and no partial reports.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Endpoint, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support.
func (e *APIError) Is(target error) bool {
	return target == ErrTransport
}

// NewAPIError creates a new APIError.
func NewAPIError(endpoint string, statusCode int, message string) *APIError {
	return &APIError{Endpoint: endpoint, StatusCode: statusCode, Message: message}
}

// DataShapeError reports a binding row missing a required variable or
// carrying a value the pipeline cannot interpret. The original tool let
// such rows propagate as empty strings into prefix stripping; here they
// fail the run cleanly instead.
type DataShapeError struct {
	Variable string
	Value    string
	Message  string
}

// Error implements the error interface.
func (e *DataShapeError) Error() string {
	if e.Variable != "" {
		return fmt.Sprintf("malformed binding for %s: %s", e.Variable, e.Message)
	}
	return fmt.Sprintf("malformed binding: %s", e.Message)
}

// Is implements errors.Is support.
func (e *DataShapeError) Is(target error) bool {
	return target == ErrDataShape
}

// NewDataShapeError creates a new DataShapeError.
func NewDataShapeError(variable, value, message string) *DataShapeError {
	return &DataShapeError{Variable: variable, Value: value, Message: message}
}

// IOError represents an error during local I/O operations.
type IOError struct {
	Operation string // "read", "write", "create", "open", "close"
	Path      string
	Err       error
}

// Error implements the error interface.
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("IO error during %s: %v", e.Operation, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError.
func NewIOError(operation, path string, err error) *IOError {
	return &IOError{Operation: operation, Path: path, Err: err}
}

// ParseError represents a failure to parse structured data, such as a
// SPARQL JSON payload or a deletion timestamp.
type ParseError struct {
	Format  string // "json", "yaml", "timestamp", ...
	Input   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Input != "" {
		return fmt.Sprintf("%s parse error for %q: %s", e.Format, e.Input, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError.
func NewParseError(format, input, message string, err error) *ParseError {
	return &ParseError{Format: format, Input: input, Message: message, Err: err}
}

// Helper functions for error checking.

// IsConfiguration checks if an error is a configuration error.
func IsConfiguration(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// IsTransport checks if an error is a transport error.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTransport)
}

// IsDataShape checks if an error is a data shape error.
func IsDataShape(err error) bool {
	return errors.Is(err, ErrDataShape)
}

// Helper wrapping functions for common patterns.

// WrapIO wraps an error as an IOError.
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError.
func WrapParse(format, input string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, input, err.Error(), err)
}

// WrapAPI wraps an error as an APIError.
func WrapAPI(endpoint string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{Endpoint: endpoint, StatusCode: statusCode, Message: err.Error(), Err: err}
}
