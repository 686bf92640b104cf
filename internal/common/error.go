package common

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = fmt.Errorf("not found")
	ErrAlreadyExists      = fmt.Errorf("already exists")
	ErrInvalidDestination = fmt.Errorf("invalid destination")
	ErrInvalidMetadata    = fmt.Errorf("invalid metadata")
	ErrInvalidName        = fmt.Errorf("invalid name")
	ErrLookupFailed       = fmt.Errorf("lookup failed")
	ErrIOFailure          = fmt.Errorf("io failure")
	ErrAlreadyRunning     = fmt.Errorf("another instance is already running")
)

type ioFailure struct {
	err error
}

func (e *ioFailure) Error() string {
	return e.err.Error()
}

func (e *ioFailure) Unwrap() []error {
	return []error{ErrIOFailure, e.err}
}

// IOFailure marks a filesystem error as ErrIOFailure without changing its message.
func IOFailure(err error) error {
	if err == nil {
		return nil
	}

	var iof *ioFailure
	if errors.As(err, &iof) {
		return err
	}

	return &ioFailure{err: err}
}

// Kind returns the taxonomy tag of err.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrAlreadyExists):
		return "AlreadyExists"
	case errors.Is(err, ErrInvalidDestination):
		return "InvalidDestination"
	case errors.Is(err, ErrInvalidMetadata):
		return "InvalidMetadata"
	case errors.Is(err, ErrInvalidName):
		return "InvalidName"
	case errors.Is(err, ErrLookupFailed):
		return "LookupFailed"
	case errors.Is(err, ErrIOFailure):
		return "IOFailure"
	}

	return "Unknown"
}
