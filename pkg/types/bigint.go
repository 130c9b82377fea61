package types

import (
	"bytes"
	"encoding/binary"
	"io"
)

// BigInt wraps a signed 64-bit integer. Grounded on
// src/db_types/types/bigint.rs.
type BigInt int64

func WrapBigInt(v int64) BigInt { return BigInt(v) }

func (b BigInt) Unwrap() int64 { return int64(b) }

func (b BigInt) GetType() Tag { return TagBigInt }

func (b BigInt) Serialize(out *bytes.Buffer) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(b))
	out.Write(buf[:])
}

func DeserializeBigInt(cur *bytes.Reader) (BigInt, error) {
	var buf [8]byte
	if _, err := io.ReadFull(cur, buf[:]); err != nil {
		return 0, ErrTruncated
	}
	return BigInt(int64(binary.LittleEndian.Uint64(buf[:]))), nil
}

// DecodeBigInt reads a little-endian i64 directly from a ByteBox payload.
func DecodeBigInt(data []byte) (int64, error) {
	if len(data) < 8 {
		return 0, ErrTruncated
	}
	return int64(binary.LittleEndian.Uint64(data)), nil
}

func (b BigInt) ToByteBox() ByteBox {
	var buf bytes.Buffer
	b.Serialize(&buf)
	return NewByteBox(TagBigInt, buf.Bytes())
}

func (b BigInt) IsCoercibleTo(tag Tag) bool {
	return b.ToByteBox().IsCoercibleTo(tag)
}
