package storage

import "unsafe"

// AlignedBuffer returns a PageSize-aligned buffer of exactly PageSize bytes,
// with data copied in (truncated or zero-padded to fit). O_DIRECT transfers
// require the buffer's starting address to be a multiple of the underlying
// block size; Go's allocator gives no alignment guarantee, so this
// over-allocates and slices to the next PageSize boundary, mirroring the
// intent of the original's `aligned_buffer` without requiring cgo/mmap.
func AlignedBuffer(data []byte) *[PageSize]byte {
	raw := make([]byte, PageSize*2)
	addr := uintptr(unsafe.Pointer(&raw[0]))
	offset := (PageSize - addr%PageSize) % PageSize
	aligned := raw[offset : offset+PageSize]

	n := copy(aligned, data)
	for i := n; i < PageSize; i++ {
		aligned[i] = 0
	}

	return (*[PageSize]byte)(unsafe.Pointer(&aligned[0]))
}
