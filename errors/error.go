package errors

import (
	"errors"
	"fmt"
)

// SchemaErrorCode classifies a SchemaError
type SchemaErrorCode string

const (
	// FilterMustReturnBool occurs when a filter UDF does not return bool
	FilterMustReturnBool SchemaErrorCode = "filter_must_return_bool"
	// ReduceTypeMismatch occurs when a reduction UDF does not return its input aggregate type
	ReduceTypeMismatch SchemaErrorCode = "reduce_type_mismatch"
	// FlatMapMustReturnArray occurs when a flat_map UDF does not return an array
	FlatMapMustReturnArray SchemaErrorCode = "flat_map_must_return_array"
	// FlattenRequiresArray occurs when flatten is applied to rows which are not arrays
	FlattenRequiresArray SchemaErrorCode = "flatten_requires_array"
	// ReduceByKeyRequiresKey occurs when reduce_by_key is applied to rows without a leading key and a payload
	ReduceByKeyRequiresKey SchemaErrorCode = "reduce_by_key_requires_key"
	// JoinKeyMismatch occurs when the two inputs of a join have differently typed keys
	JoinKeyMismatch SchemaErrorCode = "join_key_mismatch"
	// WrongParentCount occurs when an operator is given the wrong number of parents
	WrongParentCount SchemaErrorCode = "wrong_parent_count"
	// InvalidSource occurs when a source operator is given unusable parameters
	InvalidSource SchemaErrorCode = "invalid_source"
)

// SchemaError occurs when a pipeline cannot be typed at construction time
type SchemaError struct {
	Code     SchemaErrorCode
	Op       string // the operator being constructed
	Expected string // the expected Schema, if any
	Found    string // the offending Schema, if any
	Detail   string
}

// Error returns a textual representation of this SchemaError
func (e SchemaError) Error() string {
	msg := fmt.Sprintf("schema error in %s: %s", e.Op, e.Code)
	if e.Expected != "" || e.Found != "" {
		msg += fmt.Sprintf(" (expected %s, found %s)", e.Expected, e.Found)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Is allows errors.Is(err, SchemaError{Code: X}) to match on the error code alone
func (e SchemaError) Is(target error) bool {
	t, ok := target.(SchemaError)
	return ok && (t.Code == "" || t.Code == e.Code)
}

// SchedulerErrorCode classifies a SchedulerError
type SchedulerErrorCode string

const (
	// MissingBreakerAncestor occurs when a shuffle operator has no reachable ancestors
	MissingBreakerAncestor SchedulerErrorCode = "missing_breaker_ancestor"
	// CycleDetected occurs when an operator is (transitively) its own parent
	CycleDetected SchedulerErrorCode = "cycle_detected"
	// UnknownOperator occurs when an operator kind is not handled by the scheduler
	UnknownOperator SchedulerErrorCode = "unknown_operator"
)

// SchedulerError indicates a malformed operator graph. It is never user-recoverable.
type SchedulerError struct {
	Code  SchedulerErrorCode
	Stage int
	Op    string
}

// Error returns a textual representation of this SchedulerError
func (e SchedulerError) Error() string {
	return fmt.Sprintf("scheduler error at stage %d, operator %s: %s", e.Stage, e.Op, e.Code)
}

// Is allows errors.Is(err, SchedulerError{Code: X}) to match on the error code alone
func (e SchedulerError) Is(target error) bool {
	t, ok := target.(SchedulerError)
	return ok && (t.Code == "" || t.Code == e.Code)
}

// UdfCompileError occurs when a UDF cannot be typed against its argument Schemas
type UdfCompileError struct {
	Name   string
	Args   string
	Reason string
	Err    error
}

// Error returns a textual representation of this UdfCompileError
func (e UdfCompileError) Error() string {
	msg := fmt.Sprintf("cannot compile udf %s%s: %s", e.Name, e.Args, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any
func (e UdfCompileError) Unwrap() error {
	return e.Err
}

// ExecutionErrorCode classifies an ExecutionError
type ExecutionErrorCode string

const (
	// CompileFailed occurs when the native backend cannot build a unit for a plan
	CompileFailed ExecutionErrorCode = "compile_failed"
	// NativeFault occurs when a compiled unit fails while executing
	NativeFault ExecutionErrorCode = "native_fault"
)

// ExecutionError aborts a terminal action
type ExecutionError struct {
	Code        ExecutionErrorCode
	Fingerprint uint64
	Unit        string
	Diagnostic  string
	Err         error
}

// Error returns a textual representation of this ExecutionError
func (e ExecutionError) Error() string {
	msg := fmt.Sprintf("%s for plan %016x", e.Code, e.Fingerprint)
	if e.Unit != "" {
		msg += " (unit " + e.Unit + ")"
	}
	if e.Diagnostic != "" {
		msg += ": " + e.Diagnostic
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause, if any
func (e ExecutionError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is(err, ExecutionError{Code: X}) to match on the error code alone
func (e ExecutionError) Is(target error) bool {
	t, ok := target.(ExecutionError)
	return ok && (t.Code == "" || t.Code == e.Code)
}

// ErrResultReleased occurs when a released ResultView is read
var ErrResultReleased = errors.New("result view has been released")

// ErrCacheClosed occurs when a closed Cache is asked to execute a plan
var ErrCacheClosed = errors.New("compilation cache is closed")

// IncompatibleRowError occurs when a value does not fit a Schema
type IncompatibleRowError struct {
	Schema string
	Reason string
}

// Error returns a textual representation of this IncompatibleRowError
func (e IncompatibleRowError) Error() string {
	return fmt.Sprintf("value is not compatible with schema %s: %s", e.Schema, e.Reason)
}

// Is reports whether any error in err's chain matches target. See errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target. See errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
