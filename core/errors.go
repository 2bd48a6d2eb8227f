package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// StorageError signals that the record store could not complete a read or
// write; the logical operation must be treated as not having happened.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func NewStorageError(op, key string, err error) error {
	return &StorageError{Op: op, Key: key, Err: err}
}

func (e StorageError) Error() string {
	return "record store: " + e.Op + " " + e.Key + ": " + e.Err.Error()
}

func (e StorageError) Unwrap() error { return e.Err }

func IsStorageError(err error) bool {
	_, ok := errors.Cause(err).(*StorageError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
