package report

import (
	"errors"
	"fmt"

	"github.com/pavelanni/contestreport/internal/model"
)

// ErrInvalidEventNumber is returned for event numbers below 1.
var ErrInvalidEventNumber = errors.New("event number must be a positive integer")

// SchemaError reports a required column missing from a source.
type SchemaError struct {
	Source model.Source
	Column string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing required column %q", e.Source, e.Column)
}

// RequiredFieldError is raised by the join stage when a field the output
// depends on is not available.
type RequiredFieldError struct {
	Source model.Source
	Field  string
}

func (e *RequiredFieldError) Error() string {
	return fmt.Sprintf("%s: required field %q not available for join", e.Source, e.Field)
}

const reasonDuplicateKey = "duplicate student key"

// JoinIntegrityError reports key problems that would make the report ambiguous.
type JoinIntegrityError struct {
	Source model.Source
	Key    string
	Reason string
}

func (e *JoinIntegrityError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %s", e.Source, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %q", e.Source, e.Reason, e.Key)
}

// ProcessingError reports a malformed cell. Row is 1-based and counts the header.
type ProcessingError struct {
	Source model.Source
	Row    int
	Column string
	Err    error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s: row %d, column %q: %v", e.Source, e.Row, e.Column, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// MissingColumn returns the column named by a schema or required-field
// error anywhere in err's chain.
func MissingColumn(err error) (string, bool) {
	var se *SchemaError
	if errors.As(err, &se) {
		return se.Column, true
	}
	var rf *RequiredFieldError
	if errors.As(err, &rf) {
		return rf.Field, true
	}
	return "", false
}

// DuplicateKey returns the source and key of a repeated student key anywhere
// in err's chain.
func DuplicateKey(err error) (model.Source, string, bool) {
	var je *JoinIntegrityError
	if errors.As(err, &je) && je.Reason == reasonDuplicateKey {
		return je.Source, je.Key, true
	}
	return "", "", false
}
