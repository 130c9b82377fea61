package storage

import "errors"

var (
	// ErrIoFailure wraps OS-level read/write/fsync failures.
	ErrIoFailure = errors.New("disk i/o failure")

	// ErrPageMissing is returned when a page_id is unknown to a file's metadata.
	ErrPageMissing = errors.New("page missing")

	// ErrPageDeallocated is returned when reading a page whose slot is free.
	ErrPageDeallocated = errors.New("page deallocated")

	// ErrUnalignedOffset is returned when a write offset is not PageSize-aligned.
	ErrUnalignedOffset = errors.New("unaligned page offset")

	// ErrFileMissing is returned when a file_id has no registered descriptor.
	ErrFileMissing = errors.New("file missing")

	// ErrPoolExhausted is returned when every frame in the buffer pool is pinned.
	ErrPoolExhausted = errors.New("buffer pool exhausted")

	// ErrPagePinned is returned by DeletePage when the page is currently pinned.
	ErrPagePinned = errors.New("page is pinned")

	// ErrExclusiveConflict is returned when an exclusive latch is already held.
	ErrExclusiveConflict = errors.New("exclusive latch conflict")

	// ErrSharedConflict is returned when a shared latch cannot be granted.
	ErrSharedConflict = errors.New("shared latch conflict")

	// ErrAdmissionFailed is returned by the replacer when it is full and has no evictable entry.
	ErrAdmissionFailed = errors.New("replacer admission failed")

	// ErrWalCorrupt is returned by Build when a record's CRC-32 does not match.
	ErrWalCorrupt = errors.New("wal record corrupt")
)
