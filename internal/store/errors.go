package store

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes store failures.
type ErrorCode string

const (
	// CodeConnection indicates the database could not be opened or upgraded.
	CodeConnection ErrorCode = "CONNECTION_ERROR"

	// CodeWrite indicates an insert or clear transaction failed.
	CodeWrite ErrorCode = "WRITE_ERROR"

	// CodeRead indicates a lookup or iteration failed.
	CodeRead ErrorCode = "READ_ERROR"

	// CodeReset indicates the database could not be deleted.
	CodeReset ErrorCode = "RESET_ERROR"
)

// Error is returned by every failing store operation.
// Err carries the underlying driver or OS error.
type Error struct {
	Code ErrorCode
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, op string, err error) *Error {
	return &Error{Code: code, Op: op, Err: err}
}

// IsConnectionError returns true if err is a CodeConnection store error.
func IsConnectionError(err error) bool {
	return hasCode(err, CodeConnection)
}

// IsWriteError returns true if err is a CodeWrite store error.
func IsWriteError(err error) bool {
	return hasCode(err, CodeWrite)
}

// IsReadError returns true if err is a CodeRead store error.
func IsReadError(err error) bool {
	return hasCode(err, CodeRead)
}

// IsResetError returns true if err is a CodeReset store error.
func IsResetError(err error) bool {
	return hasCode(err, CodeReset)
}

func hasCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}
