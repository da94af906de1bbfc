package store

import "errors"

var (
	// ErrNotFound is returned when no job exists for the given id.
	ErrNotFound = errors.New("job not found")

	// ErrConflict is returned when a compare-and-set transition loses the
	// race: the job exists but its status is no longer the expected one.
	// At claim time this is the benign "someone else owns it" case and the
	// caller drops the queue entry.
	ErrConflict = errors.New("job status conflict")

	// ErrInvalidTransition is returned for an edge the state machine does
	// not allow. Seeing it in logs means a coordinator bug, not a race.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrJobProcessing is returned by Delete for a job currently owned by a
	// worker. Deleting mid-processing is rejected rather than undefined.
	ErrJobProcessing = errors.New("job is processing")

	// ErrEmptyResult guards the completed-implies-result invariant.
	ErrEmptyResult = errors.New("result must not be empty")
)
