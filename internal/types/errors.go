package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrEmptyResponse = errors.New("empty response body")
	ErrInvalidURL    = errors.New("invalid URL")
	ErrNotFound      = errors.New("log file not found")
	ErrNoListing     = errors.New("listing not found on page")
	ErrBodyTooLarge  = errors.New("response body exceeds size limit")
)

// FetchError wraps errors that occur during fetching.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError wraps errors that occur during parsing.
type ParseError struct {
	URL      string
	Selector string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for %s (selector=%q): %v", e.URL, e.Selector, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur while writing logs or article files.
type StorageError struct {
	Backend string
	Path    string
	Err     error
}

func (e *StorageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("storage error (%s, %s): %v", e.Backend, e.Path, e.Err)
	}
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PipelineError wraps errors that abort a pipeline stage.
type PipelineError struct {
	Stage string
	Day   string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at stage %q (day %s): %v", e.Stage, e.Day, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
