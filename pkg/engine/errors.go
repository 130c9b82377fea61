package engine

import "errors"

var (
	// ErrIndexExists is returned by CreateIndex when name is already in use.
	ErrIndexExists = errors.New("engine: index already exists")

	// ErrIndexNotFound is returned when name has no registered index.
	ErrIndexNotFound = errors.New("engine: index not found")

	// ErrEngineClosed is returned by CreateIndex and Checkpoint once Shutdown
	// has run. Index, Stats and the IndexHandle methods do not check for a
	// closed engine.
	ErrEngineClosed = errors.New("engine: storage engine is closed")
)
