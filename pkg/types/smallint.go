package types

import (
	"bytes"
	"encoding/binary"
	"io"
)

// SmallInt wraps a signed 16-bit integer. Grounded on
// src/db_types/types/smallint.rs.
type SmallInt int16

func WrapSmallInt(v int16) SmallInt { return SmallInt(v) }

func (s SmallInt) Unwrap() int16 { return int16(s) }

func (s SmallInt) GetType() Tag { return TagSmall }

func (s SmallInt) Serialize(out *bytes.Buffer) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], uint16(s))
	out.Write(buf[:])
}

func DeserializeSmallInt(cur *bytes.Reader) (SmallInt, error) {
	var buf [2]byte
	if _, err := io.ReadFull(cur, buf[:]); err != nil {
		return 0, ErrTruncated
	}
	return SmallInt(int16(binary.LittleEndian.Uint16(buf[:]))), nil
}

// DecodeSmallInt reads a little-endian i16 directly from a ByteBox payload.
func DecodeSmallInt(data []byte) (int16, error) {
	if len(data) < 2 {
		return 0, ErrTruncated
	}
	return int16(binary.LittleEndian.Uint16(data)), nil
}

func (s SmallInt) ToByteBox() ByteBox {
	var buf bytes.Buffer
	s.Serialize(&buf)
	return NewByteBox(TagSmall, buf.Bytes())
}

func (s SmallInt) IsCoercibleTo(tag Tag) bool {
	return s.ToByteBox().IsCoercibleTo(tag)
}
