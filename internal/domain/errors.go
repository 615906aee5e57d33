package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingRadar marks a row without a radar identifier. The row is dropped.
	ErrMissingRadar = errors.New("missing radar id")

	// ErrUnknownGroup is returned when a view asks for a group that is not configured.
	ErrUnknownGroup = errors.New("unknown metric group")
)

// MalformedInputError means a file's column count does not match its schema.
// The whole file is rejected.
type MalformedInputError struct {
	Source string
	Line   int
	Got    int
	Want   int
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed input %s line %d: %d columns after trailing drop, want %d",
		e.Source, e.Line, e.Got, e.Want)
}

// DateParseError means a row's date token did not match the family layout.
// The row is dropped and the file continues.
type DateParseError struct {
	Value  string
	Layout string
	Err    error
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("parse date %q with layout %q: %v", e.Value, e.Layout, e.Err)
}

func (e *DateParseError) Unwrap() error { return e.Err }

// AppendFailedError means the store rejected a batch. Nothing was written and
// the source file must be kept for the next run.
type AppendFailedError struct {
	Source string
	Err    error
}

func (e *AppendFailedError) Error() string {
	return fmt.Sprintf("append %s: %v", e.Source, e.Err)
}

func (e *AppendFailedError) Unwrap() error { return e.Err }
