package database

import "errors"

var (
	// ErrNotFound is returned when a booking, slot, exception or request
	// does not exist.
	ErrNotFound = errors.New("not found")

	// ErrCapacityExhausted is returned by the transactional check-and-insert
	// when the slot has no remaining capacity for the requested range.
	ErrCapacityExhausted = errors.New("slot capacity exhausted")

	// ErrConcurrentModification is returned when an optimistic version check
	// fails because the row changed since it was read.
	ErrConcurrentModification = errors.New("row was modified concurrently")
)
