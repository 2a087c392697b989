package transaction

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("transaction not found")
	ErrValidation = errors.New("invalid transaction")
)

// ValidationError describes input rejected before anything is persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// BackendError wraps a storage failure. The write or read did not happen; callers decide whether to retry.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func backendErr(op string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return err
	}

	return &BackendError{Op: op, Err: err}
}
