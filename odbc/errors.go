package odbc

import (
	"errors"
	"fmt"
)

// Diagnostic is a driver diagnostic record (SQLGetDiagRec).
type Diagnostic struct {
	State       string `json:"state"`
	NativeError int32  `json:"native_error"`
	Message     string `json:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("State: %s, Native error: %d, Message: %s", d.State, d.NativeError, d.Message)
}

// DriverError reports a driver call that did not succeed.
type DriverError struct {
	Function   string
	Return     ReturnCode
	Diagnostic *Diagnostic
}

func (e *DriverError) Error() string {
	if e.Diagnostic != nil {
		return fmt.Sprintf("odbc: %s returned %s: %s", e.Function, e.Return, e.Diagnostic)
	}
	return fmt.Sprintf("odbc: %s returned %s, no diagnostics available", e.Function, e.Return)
}

// InputReadFailure reports that a blob could not produce its next batch.
type InputReadFailure struct {
	Slot  uint16
	Cause error
}

func (e *InputReadFailure) Error() string {
	return fmt.Sprintf("odbc: reading input for parameter %d failed: %v", e.Slot, e.Cause)
}

func (e *InputReadFailure) Unwrap() error {
	return e.Cause
}

// ProgrammingError reports a defect in how the caller used the API.
type ProgrammingError struct {
	Op      string
	Message string
}

func (e *ProgrammingError) Error() string {
	return fmt.Sprintf("odbc: %s: %s", e.Op, e.Message)
}

func programmingError(op, format string, args ...any) *ProgrammingError {
	return &ProgrammingError{Op: op, Message: fmt.Sprintf(format, args...)}
}

// IsDriverError reports whether err wraps a *DriverError.
func IsDriverError(err error) bool {
	var target *DriverError
	return errors.As(err, &target)
}

// IsInputReadFailure reports whether err wraps an *InputReadFailure.
func IsInputReadFailure(err error) bool {
	var target *InputReadFailure
	return errors.As(err, &target)
}

// IsProgrammingError reports whether err wraps a *ProgrammingError.
func IsProgrammingError(err error) bool {
	var target *ProgrammingError
	return errors.As(err, &target)
}
