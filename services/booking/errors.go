package booking

import "fmt"

// ErrorKind classifies booking failures so the caller can choose the right
// recovery: retry, reselect, re-login, or contact support.
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindConflict     ErrorKind = "conflict"
	KindCapacityLost ErrorKind = "capacity_lost"
	KindTimeout      ErrorKind = "timeout"
	KindAuth         ErrorKind = "auth"
	KindServer       ErrorKind = "server"
	KindGateway      ErrorKind = "gateway"
	// KindReconcile flags the one case not recoverable client-side: money
	// moved but the appointment record could not be created.
	KindReconcile ErrorKind = "reconcile"
)

// Error is a classified booking error.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may retry the same operation without
// changing any selection.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindServer, KindGateway:
		return true
	}
	return false
}

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func wrapError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// IsKind reports whether err is a booking Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	for err != nil {
		if be, ok := err.(*Error); ok {
			return be.Kind == kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
