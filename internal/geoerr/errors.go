// Package geoerr defines the error taxonomy shared by every layer of the
// spatial expression compiler.
//
// All errors raised by the core are *Error values carrying a Code. They are
// static capability mismatches, never transient failures, so nothing in the
// core retries them. Callers classify errors with the IsXxx helpers, which
// use errors.As and therefore see through fmt.Errorf("...: %w") wrapping.
package geoerr

import (
	"errors"
	"fmt"
	"strings"
)

// Code categorizes spatial compilation errors.
type Code string

const (
	// CodeInvalidGeometryInput indicates a value could not be coerced into a
	// geometry value or expression.
	CodeInvalidGeometryInput Code = "INVALID_GEOMETRY_INPUT"

	// CodeUnsupportedOperation indicates the active dialect has no rendering
	// strategy for the requested operation.
	CodeUnsupportedOperation Code = "UNSUPPORTED_OPERATION"

	// CodeUnsupportedEngine indicates no dialect is registered for an engine.
	CodeUnsupportedEngine Code = "UNSUPPORTED_ENGINE"

	// CodeMissingAuxiliaryParameter indicates a handler needed a parameter
	// (tolerance, dimension information) that was neither supplied nor derivable.
	CodeMissingAuxiliaryParameter Code = "MISSING_AUXILIARY_PARAMETER"
)

// Error is a structured spatial compilation error.
type Error struct {
	// Code identifies the error category.
	Code Code

	// Message is a human-readable description.
	Message string

	// Op names the spatial operation involved, if any.
	Op string

	// Dialect names the engine identity involved, if any.
	Dialect string

	// Param names the missing auxiliary parameter (MISSING_AUXILIARY_PARAMETER only).
	Param string

	// Hint tells the caller how to supply a missing parameter explicitly.
	Hint string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)

	var ctx []string
	if e.Op != "" {
		ctx = append(ctx, "op="+e.Op)
	}
	if e.Dialect != "" {
		ctx = append(ctx, "dialect="+e.Dialect)
	}
	if e.Param != "" {
		ctx = append(ctx, "param="+e.Param)
	}
	if len(ctx) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(ctx, ", "))
	}
	if e.Hint != "" {
		fmt.Fprintf(&b, "; %s", e.Hint)
	}
	return b.String()
}

// InvalidInput creates an INVALID_GEOMETRY_INPUT error.
func InvalidInput(format string, args ...any) *Error {
	return &Error{
		Code:    CodeInvalidGeometryInput,
		Message: fmt.Sprintf(format, args...),
	}
}

// UnsupportedOperation creates an UNSUPPORTED_OPERATION error naming both the
// operation and the dialect identity.
func UnsupportedOperation(op, dialect string) *Error {
	return &Error{
		Code:    CodeUnsupportedOperation,
		Message: fmt.Sprintf("operation %q is not supported by %q", op, dialect),
		Op:      op,
		Dialect: dialect,
	}
}

// UnknownOperation creates an UNSUPPORTED_OPERATION error for a name that is
// not in any operation catalog.
func UnknownOperation(name string) *Error {
	return &Error{
		Code:    CodeUnsupportedOperation,
		Message: fmt.Sprintf("unknown spatial operation %q", name),
		Op:      name,
	}
}

// UnsupportedEngine creates an UNSUPPORTED_ENGINE error.
func UnsupportedEngine(engine string) *Error {
	return &Error{
		Code:    CodeUnsupportedEngine,
		Message: fmt.Sprintf("no spatial dialect registered for engine %q", engine),
		Dialect: engine,
	}
}

// MissingParameter creates a MISSING_AUXILIARY_PARAMETER error.
func MissingParameter(op, dialect, param, hint string) *Error {
	return &Error{
		Code:    CodeMissingAuxiliaryParameter,
		Message: fmt.Sprintf("operation %q requires %q", op, param),
		Op:      op,
		Dialect: dialect,
		Param:   param,
		Hint:    hint,
	}
}

// CodeOf returns the code of a (possibly wrapped) *Error, or "" when err is
// not a spatial compilation error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsInvalidInput reports whether err is an INVALID_GEOMETRY_INPUT error.
func IsInvalidInput(err error) bool {
	return CodeOf(err) == CodeInvalidGeometryInput
}

// IsUnsupportedOperation reports whether err is an UNSUPPORTED_OPERATION error.
func IsUnsupportedOperation(err error) bool {
	return CodeOf(err) == CodeUnsupportedOperation
}

// IsUnsupportedEngine reports whether err is an UNSUPPORTED_ENGINE error.
func IsUnsupportedEngine(err error) bool {
	return CodeOf(err) == CodeUnsupportedEngine
}

// IsMissingParameter reports whether err is a MISSING_AUXILIARY_PARAMETER error.
func IsMissingParameter(err error) bool {
	return CodeOf(err) == CodeMissingAuxiliaryParameter
}
