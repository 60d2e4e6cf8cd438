// Package enginerr defines the engine's structural error kinds (spec §7).
// Every error the engine can return is one of these tagged kinds; nothing
// escapes the engine boundary as a bare panic or an opaque error string.
package enginerr

import (
	"errors"
	"fmt"
)

// Kind tags a structural engine error.
type Kind string

const (
	KindDerivationNotFound                   Kind = "derivation_not_found"
	KindFormulaNotFound                      Kind = "formula_not_found"
	KindPinnedPathNotFound                   Kind = "pinned_path_not_found"
	KindPinnedContentHashNotFound            Kind = "pinned_content_hash_not_found"
	KindInputContentHashNotFound             Kind = "input_content_hash_not_found"
	KindStepNotFound                         Kind = "step_not_found"
	KindInvalidInputArity                    Kind = "invalid_input_arity"
	KindUnsupportedOperation                 Kind = "unsupported_operation"
	KindOperationResultError                 Kind = "operation_result_error"
	KindUnspecifiedOperationFailure          Kind = "unspecified_operation_failure"
	KindDerivationStoreFailure               Kind = "derivation_store_failure"
	KindDBError                              Kind = "db_error"
	KindUnexpectedDerivationComputationError Kind = "unexpected_derivation_computation_error"
	KindPlanningInternalError                Kind = "planning_internal_error"
	KindParseError                           Kind = "parse_error"
)

// Error is the engine's structural, tagged error type.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a new Error with no wrapped cause.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds a new Error wrapping cause.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of err if it is (or wraps) an *Error, and ok=false
// otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
