package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrNegativeAmount     = errors.New("negative amount")
	ErrEmptyName          = errors.New("empty name")
	ErrInvalidEnum        = errors.New("unrecognized enum value")
	ErrInvalidID          = errors.New("invalid id")
	ErrZeroTime           = errors.New("timestamp cannot be zero")
	ErrNotFound           = errors.New("not found")
	ErrStorage            = errors.New("storage failure")
	ErrMalformedBackup    = errors.New("malformed backup")
	ErrUnsupportedVersion = errors.New("unsupported backup version")
)

// ValidationError reports a field that breaks an entity invariant.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NotFoundError reports a mutation that referenced a missing id.
type NotFoundError struct {
	Entity EntityKind
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StorageError wraps a persistence-layer failure. It is never retried.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

// MalformedBackupError reports a backup document that cannot be restored.
type MalformedBackupError struct {
	Path   string
	Reason string
	Err    error
}

func (e *MalformedBackupError) Error() string {
	msg := "malformed backup"
	if e.Path != "" {
		msg += " at " + e.Path
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedBackupError) Unwrap() error { return e.Err }

func (e *MalformedBackupError) Is(target error) bool { return target == ErrMalformedBackup }

// Storage wraps err as a StorageError unless it is nil or already typed.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	var nf *NotFoundError
	if errors.As(err, &nf) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}
