package model

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("room is already booked for that time")
	ErrAuth       = errors.New("password does not match")
	ErrNotFound   = errors.New("not found")
)

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// RemoteError is a collaborator failure outside the other categories.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("remote error (%d): %s", e.Status, e.Message)
	}
	return "remote error: " + e.Message
}

// Reason returns the human-readable part of err for display.
func Reason(err error) string {
	var remote *RemoteError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &remote):
		return remote.Message
	default:
		return err.Error()
	}
}
