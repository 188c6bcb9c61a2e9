package calllog

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateRecord is returned when the log already holds a record for the patient
	ErrDuplicateRecord = errors.New("call record already exists for patient")
	// ErrVersionConflict is returned by a SlotStore when the slot changed since it was loaded
	ErrVersionConflict = errors.New("call log was modified by another writer")
)

// PersistenceError reports that the shared store could not be read or written.
// The in-memory queue is untouched when a command fails with it.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("call log %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// IsPersistence reports whether err is (or wraps) a PersistenceError
func IsPersistence(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
