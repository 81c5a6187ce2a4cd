package entitystore

import (
	"errors"
	"fmt"

	"taskboard/internal/models"
)

var (
	// ErrFetch is returned when a list call fails. Local state is untouched.
	ErrFetch = errors.New("fetch failed")
	// ErrValidation is returned when local validation rejects an input. The
	// gateway is not called.
	ErrValidation = models.ErrValidation
	// ErrMutationFailed is returned when the remote rejects a create, update
	// or reorder.
	ErrMutationFailed = errors.New("mutation failed")
	// ErrDeleteFailed is returned when the remote rejects a delete. The entity
	// stays removed locally. It also matches ErrMutationFailed.
	ErrDeleteFailed = fmt.Errorf("delete %w", ErrMutationFailed)
	// ErrNotFound is returned when an entity is not present locally, either
	// before a call or when its response arrives.
	ErrNotFound = errors.New("entity not found")
	// ErrSequencingConflict is returned when a reorder is requested while
	// another one for the same project is in flight.
	ErrSequencingConflict = errors.New("reorder already in progress")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("entity store closed")
)

var errSessionChanged = errors.New("session changed while the call was in flight")

func errProjectDeleted(id string) error {
	return fmt.Errorf("project %s was deleted", id)
}

func fail(kind error, op Op, err error) error {
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}
