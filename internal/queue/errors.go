package queue

import "errors"

var (
	// ErrNotFound is returned when no roster entry has the requested name
	ErrNotFound = errors.New("patient not found")
	// ErrInvalidState is returned when a transition does not apply to the patient's current status
	ErrInvalidState = errors.New("patient is in the wrong state for this transition")
	// ErrInvalidRoster is returned when a roster cannot be loaded into the store
	ErrInvalidRoster = errors.New("invalid roster")
)
