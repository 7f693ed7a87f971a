package filestore

import (
	"errors"
	"fmt"
)

var (
	// ErrFileNotFound is returned when a configured input path does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrNoInputFiles is returned when the configured paths resolve to no CSV files.
	ErrNoInputFiles = errors.New("no input files")
)

// SchemaError reports a required column that is absent from a file.
type SchemaError struct {
	File   string
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error: %s: missing required column %q", e.File, e.Column)
}

// ParseError reports a value that could not be converted. Line is the 1-based
// line in the file, counting the header.
type ParseError struct {
	File   string
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error: %s line %d column %q value %q: %v", e.File, e.Line, e.Column, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
