package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidName   = errors.New("invalid name")
	ErrVaultMissing  = errors.New("vault missing")

	ErrUnsupportedMedia = errors.New("unsupported media")
)

// OpError records a failed vault operation together with the path and
// note id it was working on.
type OpError struct {
	Op   string
	Path string
	ID   string
	Err  error
}

func (e *OpError) Error() string {
	msg := "vault: " + e.Op
	if e.ID != "" {
		msg += fmt.Sprintf(" note %s", e.ID)
	}
	if e.Path != "" {
		msg += " " + e.Path
	}
	return msg + ": " + e.Err.Error()
}

func (e *OpError) Unwrap() error { return e.Err }

// Op wraps err in an *OpError. A nil err stays nil.
func Op(op, path, id string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Path: path, ID: id, Err: err}
}
