// Copyright 2025 The SAFires Authors
// SPDX-License-Identifier: Apache-2.0

package fires

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType discriminates FireError values.
type ErrorType int

const (
	// ErrorTypeUnknown unclassified error.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeMalformedInput a required column is missing or a field does not parse.
	ErrorTypeMalformedInput
	// ErrorTypeGeometryMismatch a point fell in zero or several countries.
	ErrorTypeGeometryMismatch
	// ErrorTypeOutputWrite an output destination could not be written.
	ErrorTypeOutputWrite
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeMalformedInput:
		return "malformed input"
	case ErrorTypeGeometryMismatch:
		return "geometry mismatch"
	case ErrorTypeOutputWrite:
		return "output write"
	default:
		return "unknown"
	}
}

// MismatchReason tells why a point could not be assigned a country.
type MismatchReason string

const (
	// MismatchNone no polygon contains the point.
	MismatchNone MismatchReason = "none"
	// MismatchMultiple more than one polygon contains the point.
	MismatchMultiple MismatchReason = "multiple"
)

// FireError is the error type of the fire pipeline. Only the fields relevant
// to Type are set.
type FireError struct {
	Type    ErrorType
	Message string

	// malformed input
	Line   int
	Column string

	// geometry mismatch
	RecordID   int
	Latitude   float64
	Longitude  float64
	Candidates []string

	// output write
	Path string

	Err error
}

func (e *FireError) Error() string {
	var sb strings.Builder

	switch e.Type {
	case ErrorTypeMalformedInput:
		if e.Line > 0 {
			fmt.Fprintf(&sb, "line %d: ", e.Line)
		}

		if e.Column != "" {
			fmt.Fprintf(&sb, "column %s: ", e.Column)
		}
	case ErrorTypeGeometryMismatch:
		fmt.Fprintf(&sb, "record %d (%f, %f): ", e.RecordID, e.Latitude, e.Longitude)
	case ErrorTypeOutputWrite:
		if e.Path != "" {
			fmt.Fprintf(&sb, "%s: ", e.Path)
		}
	}

	sb.WriteString(e.Message)

	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}

	return sb.String()
}

func (e *FireError) Unwrap() error {
	return e.Err
}

// Reason returns the mismatch reason of a geometry mismatch.
func (e *FireError) Reason() MismatchReason {
	if len(e.Candidates) > 1 {
		return MismatchMultiple
	}

	return MismatchNone
}

// NewMalformedInputError builds a MalformedInputError for a CSV line and column.
func NewMalformedInputError(line int, column, message string, err error) *FireError {
	return &FireError{
		Type:    ErrorTypeMalformedInput,
		Message: message,
		Line:    line,
		Column:  column,
		Err:     err,
	}
}

// NewGeometryMismatchError builds a GeometryMismatchError for a record and the
// countries that contain it.
func NewGeometryMismatchError(r *FireRecord, candidates []string) *FireError {
	msg := "no country contains the point"
	if len(candidates) > 1 {
		msg = "point is contained by " + strings.Join(candidates, ", ")
	}

	return &FireError{
		Type:       ErrorTypeGeometryMismatch,
		Message:    msg,
		RecordID:   r.RecordID,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		Candidates: candidates,
	}
}

// NewOutputWriteError builds an OutputWriteError for a destination path.
func NewOutputWriteError(path, message string, err error) *FireError {
	return &FireError{
		Type:    ErrorTypeOutputWrite,
		Message: message,
		Path:    path,
		Err:     err,
	}
}

// AsFireError returns the first FireError in err's chain.
func AsFireError(err error) (*FireError, bool) {
	var fe *FireError
	if errors.As(err, &fe) {
		return fe, true
	}

	return nil, false
}

// IsMalformedInput reports whether err is a MalformedInputError.
func IsMalformedInput(err error) bool {
	return isType(err, ErrorTypeMalformedInput)
}

// IsGeometryMismatch reports whether err is a GeometryMismatchError.
func IsGeometryMismatch(err error) bool {
	return isType(err, ErrorTypeGeometryMismatch)
}

// IsOutputWrite reports whether err is an OutputWriteError.
func IsOutputWrite(err error) bool {
	return isType(err, ErrorTypeOutputWrite)
}

func isType(err error, t ErrorType) bool {
	fe, ok := AsFireError(err)

	return ok && fe.Type == t
}
