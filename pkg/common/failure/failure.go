// Package failure tags pipeline errors with the stage that produced them so
// the entry points can decide how to report them.
package failure

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindCredential    Kind = "credential"
	KindContent       Kind = "content"
	KindPersistence   Kind = "persistence"
)

type Error struct {
	Kind  Kind
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s error", e.Kind)
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, field string, err error) *Error {
	return &Error{Kind: kind, Field: field, Err: err}
}

func Configuration(field string, err error) *Error {
	return New(KindConfiguration, field, err)
}

func Credential(err error) *Error {
	return New(KindCredential, "", err)
}

func Content(field string, err error) *Error {
	return New(KindContent, field, err)
}

func Persistence(err error) *Error {
	return New(KindPersistence, "", err)
}

// KindOf returns the kind of the first tagged error in err's chain, or "".
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

func FieldOf(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Field
	}
	return ""
}

func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
