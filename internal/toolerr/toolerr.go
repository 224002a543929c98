// Package toolerr defines the failures a tool can report back to the host.
// They never reach the protocol error channel; the dispatcher renders them as
// text content.
package toolerr

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ValidationError reports a missing or malformed tool argument.
type ValidationError struct {
	Tool   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid arguments for %s: %s", e.Tool, e.Reason)
	}
	return fmt.Sprintf("invalid argument %q for %s: %s", e.Field, e.Tool, e.Reason)
}

// Invalid is shorthand for building a ValidationError.
func Invalid(tool, field, format string, args ...any) *ValidationError {
	return &ValidationError{Tool: tool, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ConfigError reports a required environment value that is not set.
type ConfigError struct {
	Key string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing required environment variable: %s", e.Key)
}

// maxBodyInError bounds how much of an upstream body is echoed back.
const maxBodyInError = 2048

// UpstreamError reports a failed call to an external collaborator. Either
// Status/Body (non-2xx response) or Err (the collaborator failed outright) is set.
type UpstreamError struct {
	Service string
	Status  int
	Body    string
	Err     error
}

// NewUpstreamError captures a non-2xx response from service.
func NewUpstreamError(service string, status int, body []byte) *UpstreamError {
	text := strings.TrimSpace(string(body))
	if len(text) > maxBodyInError {
		cut := maxBodyInError
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "..."
	}
	return &UpstreamError{Service: service, Status: status, Body: text}
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s error: %v", e.Service, e.Err)
	}
	return fmt.Sprintf("%s API error (%d): %s", e.Service, e.Status, e.Body)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
