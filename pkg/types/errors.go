package types

import "errors"

var (
	// ErrNotCoercible is returned when a value's declared type cannot be
	// coerced to a requested type tag (e.g. INT that overflows SMALLINT).
	ErrNotCoercible = errors.New("value not coercible to requested type")

	// ErrTypeMismatch is returned when comparing or operating on two
	// ByteBox values carrying different type tags where an exact match is
	// required.
	ErrTypeMismatch = errors.New("type tag mismatch")

	// ErrTruncated is returned by Deserialize when the cursor holds fewer
	// bytes than the scalar's encoding requires.
	ErrTruncated = errors.New("truncated value encoding")

	// ErrCharOverflow is returned when a CHAR/VARCHAR payload exceeds its
	// declared data_size.
	ErrCharOverflow = errors.New("value exceeds declared char/varchar size")
)
