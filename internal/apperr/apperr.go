// Package apperr defines the two error kinds surfaced by the persistence and
// matching core: user errors (bad input, missing record) and internal errors
// (store, queue or pub/sub failures).
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUser Kind = iota + 1
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindInternal:
		return "internal"
	}
	return "unknown"
}

// Error carries the kind and the method path (e.g. "persist.seeker.create")
// where the failure was raised.
type Error struct {
	Kind   Kind
	Method string
	Err    error
}

func (e *Error) Error() string {
	if e.Method == "" {
		return e.Err.Error()
	}
	return e.Method + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// User returns a user error with msg.
func User(method, msg string) error {
	return &Error{Kind: KindUser, Method: method, Err: errors.New(msg)}
}

// Userf is User with formatting.
func Userf(method, format string, args ...any) error {
	return &Error{Kind: KindUser, Method: method, Err: fmt.Errorf(format, args...)}
}

// Internal wraps err as an internal error. Errors that already carry a kind
// are returned unchanged so user errors are never downgraded.
func Internal(method string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindInternal, Method: method, Err: err}
}

func IsUser(err error) bool { return kindOf(err) == KindUser }

func IsInternal(err error) bool { return kindOf(err) == KindInternal }

// Message returns the bare message of a user error without the method prefix.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Err.Error()
	}
	return err.Error()
}

func kindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
