// Package errors provides typed errors for the gifteval benchmark harness.
//
// The package defines error types for the recurring failure modes of a
// forecasting evaluation pipeline:
//
//   - ValueError: invalid argument or option values
//   - DimensionError: mismatched vector/matrix dimensions
//   - NotFittedError: predicting with an unfitted model
//   - ModelError: model fitting or inference failures
//   - ValidationError: structural validation of datasets and configs
//   - DataError: malformed or unreadable dataset files
//
// All types support Go 1.13+ error wrapping (errors.Is / errors.As) and are
// built on cockroachdb/errors so that %+v formatting carries stack traces.
//
// Example usage:
//
//	if !m.fitted {
//	    return nil, errors.NewNotFittedError("SeasonalNaive", "Forecast")
//	}
//
//	defer errors.Recover(&err, "Evaluate")
package errors

import (
	stderrors "errors"
	"fmt"

	cockroach "github.com/cockroachdb/errors"
)

// prefix tags every error produced by this package so harness errors are
// recognizable in mixed logs.
const prefix = "gifteval"

// Sentinel errors for common failure conditions. Use errors.Is to test for
// them through wrapped chains.
var (
	// ErrEmptyData indicates an empty dataset, series, or vector.
	ErrEmptyData = stderrors.New("empty data")

	// ErrDimensionMismatch indicates input dimensions that do not line up.
	ErrDimensionMismatch = stderrors.New("dimension mismatch")

	// ErrNotFitted indicates use of a model before fitting.
	ErrNotFitted = stderrors.New("model not fitted")

	// ErrInvalidFrequency indicates an unparseable frequency string.
	ErrInvalidFrequency = stderrors.New("invalid frequency")

	// ErrSingularMatrix indicates a design matrix that cannot be solved.
	ErrSingularMatrix = stderrors.New("singular matrix")

	// ErrResourceExhausted indicates a predictor ran out of capacity for the
	// requested batch; the evaluator retries with a smaller batch size.
	ErrResourceExhausted = stderrors.New("resource exhausted")

	// ErrNaNForecast indicates a forecast containing NaN values when the
	// evaluation was configured to reject them.
	ErrNaNForecast = stderrors.New("forecast contains NaN")

	// ErrNotImplemented indicates functionality that is intentionally absent.
	ErrNotImplemented = stderrors.New("not implemented")
)

// ValueError reports an invalid value passed to an operation.
type ValueError struct {
	Op      string // operation that rejected the value
	Message string // description of the problem
}

// NewValueError creates a ValueError for the given operation.
func NewValueError(op, message string) *ValueError {
	return &ValueError{Op: op, Message: message}
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s: %s: %s", prefix, e.Op, e.Message)
}

// DimensionError reports mismatched dimensions between related inputs.
type DimensionError struct {
	Op       string // operation that detected the mismatch
	Expected int    // expected size
	Got      int    // observed size
	Axis     int    // axis on which the mismatch occurred
}

// NewDimensionError creates a DimensionError for the given operation.
func NewDimensionError(op string, expected, got, axis int) *DimensionError {
	return &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("%s: %s: dimension mismatch on axis %d: expected %d, got %d",
		prefix, e.Op, e.Axis, e.Expected, e.Got)
}

// Is lets errors.Is match any DimensionError against ErrDimensionMismatch.
func (e *DimensionError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// NotFittedError reports use of a model method that requires fitting first.
type NotFittedError struct {
	ModelName string // model that was not fitted
	Method    string // method that was called
}

// NewNotFittedError creates a NotFittedError for the given model and method.
func NewNotFittedError(modelName, method string) *NotFittedError {
	return &NotFittedError{ModelName: modelName, Method: method}
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("%s: %s.%s: model is not fitted", prefix, e.ModelName, e.Method)
}

// Is lets errors.Is match any NotFittedError against ErrNotFitted.
func (e *NotFittedError) Is(target error) bool {
	return target == ErrNotFitted
}

// ModelError reports a failure during model fitting or inference. It wraps an
// underlying cause which remains reachable through errors.Is / errors.As.
type ModelError struct {
	Op      string // operation that failed
	Message string // description of the failure
	cause   error
}

// NewModelError creates a ModelError wrapping cause. cause may be nil.
func NewModelError(op, message string, cause error) *ModelError {
	return &ModelError{Op: op, Message: message, cause: cause}
}

func (e *ModelError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("%s: %s: %s", prefix, e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s: %v", prefix, e.Op, e.Message, e.cause)
}

// Unwrap returns the underlying cause.
func (e *ModelError) Unwrap() error {
	return e.cause
}

// ValidationError reports a structural validation failure, carrying the field
// and offending value for diagnostics.
type ValidationError struct {
	Field   string // field or component that failed validation
	Message string // description of the constraint
	Value   any    // offending value
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string, value any) *ValidationError {
	return &ValidationError{Field: field, Message: message, Value: value}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: validation failed for %s: %s (got %v)",
		prefix, e.Field, e.Message, e.Value)
}

// DataError reports a malformed or unreadable dataset file.
type DataError struct {
	Op      string // operation that failed
	Path    string // file or directory involved
	Message string // description of the problem
	cause   error
}

// NewDataError creates a DataError wrapping cause. cause may be nil.
func NewDataError(op, path, message string, cause error) *DataError {
	return &DataError{Op: op, Path: path, Message: message, cause: cause}
}

func (e *DataError) Error() string {
	if e.cause == nil {
		return fmt.Sprintf("%s: %s: %s: %s", prefix, e.Op, e.Path, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s: %s: %v", prefix, e.Op, e.Path, e.Message, e.cause)
}

// Unwrap returns the underlying cause.
func (e *DataError) Unwrap() error {
	return e.cause
}

// Recover converts a panic into an error assigned through err. Deferred at
// the top of exported operations so that library panics (for example from
// gonum on malformed shapes) surface as ordinary errors:
//
//	func (m *AR) Fit(context []float64) (err error) {
//	    defer errors.Recover(&err, "AR.Fit")
//	    ...
//	}
func Recover(err *error, op string) {
	if r := recover(); r != nil {
		*err = cockroach.Newf("%s: %s: recovered from panic: %v", prefix, op, r)
	}
}

// New returns an error with the supplied message and a captured stack trace.
func New(message string) error {
	return cockroach.New(message)
}

// Newf formats an error with a captured stack trace.
func Newf(format string, args ...any) error {
	return cockroach.Newf(format, args...)
}

// Wrap annotates err with message, preserving the chain for errors.Is and
// errors.As. Returns nil if err is nil.
func Wrap(err error, message string) error {
	return cockroach.Wrap(err, message)
}

// Wrapf annotates err with a formatted message. Returns nil if err is nil.
func Wrapf(err error, format string, args ...any) error {
	return cockroach.Wrapf(err, format, args...)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return cockroach.Is(err, target)
}

// As finds the first error in err's chain matching target's type.
func As(err error, target any) bool {
	return cockroach.As(err, target)
}
