package types

import (
	"bytes"
	"io"
)

// Boolean wraps a single-byte truth value. Grounded on
// src/db_types/types/boolean.rs.
type Boolean bool

func WrapBoolean(v bool) Boolean { return Boolean(v) }

func (b Boolean) Unwrap() bool { return bool(b) }

func (b Boolean) GetType() Tag { return TagBoolean }

func (b Boolean) Serialize(out *bytes.Buffer) {
	if b {
		out.WriteByte(1)
	} else {
		out.WriteByte(0)
	}
}

func DeserializeBoolean(cur *bytes.Reader) (Boolean, error) {
	v, err := cur.ReadByte()
	if err == io.EOF {
		return false, ErrTruncated
	}
	if err != nil {
		return false, err
	}
	return Boolean(v != 0), nil
}

// DecodeBoolean reads a single-byte truth value directly from a ByteBox
// payload; any nonzero byte is true.
func DecodeBoolean(data []byte) (bool, error) {
	if len(data) < 1 {
		return false, ErrTruncated
	}
	return data[0] != 0, nil
}

func (b Boolean) ToByteBox() ByteBox {
	var buf bytes.Buffer
	b.Serialize(&buf)
	return NewByteBox(TagBoolean, buf.Bytes())
}

// IsCoercibleTo reports only identity coercion: booleans are not numeric
// and do not widen to DECIMAL/BIGINT (spec §4.6).
func (b Boolean) IsCoercibleTo(tag Tag) bool {
	return tag == TagBoolean
}
