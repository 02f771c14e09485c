package procurement

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyQuery     = errors.New("query is empty")
	ErrInvalidWebsite = errors.New("invalid website")
	ErrFileNotFound   = errors.New("file not found")
	ErrFileRead       = errors.New("file read error")
	// ErrUnparseable means the service answered with nothing usable.
	ErrUnparseable = errors.New("unparseable service output")
)

// PlanningError is returned by Plan when no website list can be produced.
type PlanningError struct {
	Query string
	Err   error
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("planning %q: %v", e.Query, e.Err)
}

func (e *PlanningError) Unwrap() error { return e.Err }

// ExtractionError is a failed extraction for one unit of work. Inside a
// batch it is absorbed; from a single-call operation it is returned.
type ExtractionError struct {
	Operation string
	Target    string
	Err       error
}

func (e *ExtractionError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("%s extraction: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("%s extraction for %s: %v", e.Operation, e.Target, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// IntelParsingError means the service answered but the answer lacks a
// required field or carries an out-of-range value.
type IntelParsingError struct {
	Field string
	Err   error
}

func (e *IntelParsingError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("market intelligence: %v", e.Err)
	}
	return fmt.Sprintf("market intelligence field %s: %v", e.Field, e.Err)
}

func (e *IntelParsingError) Unwrap() error { return e.Err }

// DocumentUploadError is returned when a compliance document cannot be read
// or registered. No handle accompanies it.
type DocumentUploadError struct {
	Path string
	Err  error
}

func (e *DocumentUploadError) Error() string {
	return fmt.Sprintf("upload compliance document %s: %v", e.Path, e.Err)
}

func (e *DocumentUploadError) Unwrap() error { return e.Err }

// DocumentNotReadyError is returned when a compliance check has no Ready
// document to run against.
type DocumentNotReadyError struct {
	FileID string
}

func (e *DocumentNotReadyError) Error() string {
	if e.FileID == "" {
		return "no compliance document is ready; upload one first"
	}
	return fmt.Sprintf("compliance document %s is not ready", e.FileID)
}
