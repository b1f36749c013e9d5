// Package errors classifies failures so the batch can tell fatal problems
// (bad configuration, unusable roots) from ones isolated to a single file.
package errors

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindConfig    Kind = "config"
	KindRoot      Kind = "root"
	KindFile      Kind = "file"
	KindCollision Kind = "collision"
	KindTimeout   Kind = "timeout"
	KindUnknown   Kind = "unknown"
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Fatal reports whether errors of this kind must stop a batch.
func (k Kind) Fatal() bool {
	return k == KindConfig || k == KindRoot
}

// Wrap attaches a kind to err. An err that is already typed keeps its kind.
func Wrap(kind Kind, op, message string, err error) error {
	if err == nil {
		return nil
	}

	var typed *Error
	if errors.As(err, &typed) {
		return err
	}

	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
		Cause:   err,
	}
}

func New(kind Kind, op, message string) *Error {
	return &Error{
		Kind:    kind,
		Op:      op,
		Message: message,
	}
}

func Newf(kind Kind, op, format string, args ...any) *Error {
	return New(kind, op, fmt.Sprintf(format, args...))
}

// KindOf returns the kind of the first typed error in the chain.
func KindOf(err error) Kind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return KindUnknown
}

// IsKind checks whether the first typed error in the chain matches kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the human-facing part of err without the kind/op prefix.
func Message(err error) string {
	var target *Error
	if !errors.As(err, &target) {
		return err.Error()
	}
	if target.Cause != nil {
		return target.Message + ": " + target.Cause.Error()
	}
	return target.Message
}
