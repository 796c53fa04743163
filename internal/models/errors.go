package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies engine failures
type ErrorKind string

const (
	KindStorage    ErrorKind = "storage"
	KindTransport  ErrorKind = "transport"
	KindDecode     ErrorKind = "decode"
	KindValidation ErrorKind = "validation"
)

// Error is a classified engine failure
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// StorageError wraps a persistence failure.
func StorageError(op string, err error) error { return newError(KindStorage, op, err) }

// TransportError wraps a completion endpoint failure.
func TransportError(op string, err error) error { return newError(KindTransport, op, err) }

// DecodeError wraps a malformed stream record.
func DecodeError(op string, err error) error { return newError(KindDecode, op, err) }

// ValidationError wraps a rejected user action.
func ValidationError(op string, err error) error { return newError(KindValidation, op, err) }

// KindOf returns the kind of a classified error, or "" when err is not one.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrMessageNotFound  = errors.New("message not found")
	ErrBusy             = errors.New("a reply is still being generated")
	ErrEmptyMessage     = errors.New("message is empty")
	ErrNotAssistant     = errors.New("only assistant messages can be regenerated")
	ErrNoPrompt         = errors.New("no prompt precedes this reply")
	ErrPlaceholder      = errors.New("message is still being generated")
	ErrSystemMessage    = errors.New("system messages cannot be changed")
	ErrUnknownApp       = errors.New("unknown app")
	ErrUnknownModel     = errors.New("unknown model")
	ErrInstanceNotFound = errors.New("widget instance not found")
	ErrClosed           = errors.New("widget instance is closed")
)
