package types

import "errors"

// Sentinel errors for ducktest operations.
var (
	// ErrFieldNotFound indicates a record does not expose the requested key.
	ErrFieldNotFound = errors.New("field not found")

	// ErrNotAnObject indicates record input that is not a keyed object.
	ErrNotAnObject = errors.New("record must be an object")

	// ErrTooManyFields indicates a record exceeds MaxRecordFields.
	ErrTooManyFields = errors.New("record has too many fields")

	// ErrTooManyArgs indicates a call exceeds MaxCallArgs.
	ErrTooManyArgs = errors.New("call has too many arguments")

	// ErrMethodNameTooLong indicates a method name exceeds MaxMethodNameLength.
	ErrMethodNameTooLong = errors.New("method name too long")

	// ErrSessionNotFound indicates an unknown or expired session ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTooManySessions indicates the live session limit was reached.
	ErrTooManySessions = errors.New("too many live sessions")
)
