package store

import (
	"errors"
	"fmt"
)

// Sentinel errors for store operations.
var (
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrNotFound           = errors.New("task not found")
	ErrAmbiguousSelector  = errors.New("selector matches more than one active task")
)

// unavailable folds a driver error into ErrStorageUnavailable while keeping the
// original error in the chain.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
