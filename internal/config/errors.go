package config

import (
	"fmt"
	"path/filepath"
)

// ConfigurationError represents a structured error that occurs during configuration loading
type ConfigurationError struct {
	FilePath  string // Full path to the file that caused the error
	FileName  string // Base name of the file
	ErrorType string // Type of error (parse, validation, io)
	Err       error
}

// Error implements the error interface
func (ce ConfigurationError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", ce.ErrorType, ce.FileName, ce.Err)
}

func (ce ConfigurationError) Unwrap() error {
	return ce.Err
}

func newFileError(path, errorType string, err error) ConfigurationError {
	return ConfigurationError{
		FilePath:  path,
		FileName:  filepath.Base(path),
		ErrorType: errorType,
		Err:       err,
	}
}
