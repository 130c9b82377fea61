package btree

import "errors"

var (
	// ErrPageOverflow is returned when an encoded node would exceed PageSize.
	ErrPageOverflow = errors.New("node encoding exceeds page size")

	// ErrDuplicateKey is returned by Insert when the key is already present.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrKeyNotFound is returned by Get/Delete when the key is absent.
	ErrKeyNotFound = errors.New("key not found")
)
