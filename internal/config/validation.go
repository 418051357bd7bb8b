package config

import (
	"fmt"
	"strings"
)

// ValidationError represents a validation error with context
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add adds a new validation error
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// Validate checks the configuration for values the launcher cannot work with.
func (c Config) Validate() error {
	var errs ValidationErrors

	if strings.TrimSpace(c.InstallDir) == "" {
		errs.Add("installDir", "is required")
	}
	if owner, repo, ok := strings.Cut(c.Release.Repository, "/"); !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		errs.Add("release.repository", "must have the form owner/repo", c.Release.Repository)
	}
	if c.Readiness.Interval <= 0 {
		errs.Add("readiness.interval", "must be positive", c.Readiness.Interval)
	}
	if c.Readiness.Timeout <= 0 {
		errs.Add("readiness.timeout", "must be positive", c.Readiness.Timeout)
	}
	if c.Readiness.Interval > c.Readiness.Timeout {
		errs.Add("readiness.interval", "must not exceed readiness.timeout", c.Readiness.Interval)
	}
	if c.VersionProbeTimeout <= 0 {
		errs.Add("versionProbeTimeout", "must be positive", c.VersionProbeTimeout)
	}
	if c.ShutdownGrace < 0 {
		errs.Add("shutdownGrace", "must not be negative", c.ShutdownGrace)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs.Add("log.format", "must be text or json", c.Log.Format)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
