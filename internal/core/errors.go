package core

import (
	"errors"
	"fmt"
)

// Error kinds raised by the backend session and the synchronization engine.
var (
	ErrLogin   = errors.New("login failed")
	ErrLogout  = errors.New("logout failed")
	ErrRoom    = errors.New("room operation failed")
	ErrMessage = errors.New("message not sent")
	ErrNetwork = errors.New("network error")
)

// Error is a domain error with a human-readable message.
// errors.Is matches both the kind and the wrapped cause.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the kind and the cause to errors.Is/As.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind error, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: cause}
}

// LoginError reports a rejected login with the backend's reason.
func LoginError(format string, args ...any) error {
	return newError(ErrLogin, nil, format, args...)
}

// LogoutError reports a logout without confirmation.
func LogoutError(format string, args ...any) error {
	return newError(ErrLogout, nil, format, args...)
}

// RoomError reports a failed join, part or room lookup.
func RoomError(format string, args ...any) error {
	return newError(ErrRoom, nil, format, args...)
}

// MessageError reports a send that the backend did not accept.
func MessageError(format string, args ...any) error {
	return newError(ErrMessage, nil, format, args...)
}

// NetworkError wraps a transport failure.
func NetworkError(cause error, format string, args ...any) error {
	return newError(ErrNetwork, cause, format, args...)
}

// Reason returns the message of a domain error without the cause chain,
// or err.Error() for anything else.
func Reason(err error) string {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Message
	}
	return err.Error()
}
