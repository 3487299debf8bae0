package binding

import "errors"

// Registration and dispatch errors.
var (
	ErrDuplicateClass  = errors.New("class already registered")
	ErrDuplicateMethod = errors.New("method already defined")
	ErrUnknownClass    = errors.New("unknown class")
	ErrUnknownMethod   = errors.New("unknown method")
	ErrArgCount        = errors.New("wrong number of arguments")
	ErrArgType         = errors.New("wrong argument type")
	ErrSessionClosed   = errors.New("session is closed")
	ErrNilConstructor  = errors.New("constructor cannot be nil")
)
