package db

import (
	"errors"

	"github.com/dgraph-io/badger/v4"
)

var (
	ErrKeyNotFound    = errors.New("key not found in db")
	ErrIteratorCreate = errors.New("failed to create iterator")

	// ErrConflict is returned by Commit when a serializable transaction lost
	// a race; the whole operation should be retried from scratch.
	ErrConflict = badger.ErrConflict
)
