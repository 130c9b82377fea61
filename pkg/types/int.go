package types

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Int wraps a signed 32-bit integer. Grounded on
// src/db_types/types/int.rs.
type Int int32

func WrapInt(v int32) Int { return Int(v) }

func (i Int) Unwrap() int32 { return int32(i) }

func (i Int) GetType() Tag { return TagInt }

func (i Int) Serialize(out *bytes.Buffer) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(i))
	out.Write(buf[:])
}

func DeserializeInt(cur *bytes.Reader) (Int, error) {
	var buf [4]byte
	if _, err := io.ReadFull(cur, buf[:]); err != nil {
		return 0, ErrTruncated
	}
	return Int(int32(binary.LittleEndian.Uint32(buf[:]))), nil
}

// DecodeInt reads a little-endian i32 directly from a ByteBox payload.
func DecodeInt(data []byte) (int32, error) {
	if len(data) < 4 {
		return 0, ErrTruncated
	}
	return int32(binary.LittleEndian.Uint32(data)), nil
}

func (i Int) ToByteBox() ByteBox {
	var buf bytes.Buffer
	i.Serialize(&buf)
	return NewByteBox(TagInt, buf.Bytes())
}

func (i Int) IsCoercibleTo(tag Tag) bool {
	return i.ToByteBox().IsCoercibleTo(tag)
}
