package types

import (
	"bytes"
)

// Char wraps a fixed-width, space-padded string. Grounded on
// src/db_types/types/char.rs. Size is the declared column width; values
// shorter than Size are padded with ASCII spaces on Serialize, values
// longer than Size are rejected.
type Char struct {
	Value string
	Size  int
}

func WrapChar(v string, size int) (Char, error) {
	if len(v) > size {
		return Char{}, ErrCharOverflow
	}
	return Char{Value: v, Size: size}, nil
}

func (c Char) Unwrap() string { return c.Value }

func (c Char) GetType() Tag { return TagChar }

// Serialize writes c.Size bytes: the value followed by space padding.
func (c Char) Serialize(out *bytes.Buffer) {
	out.WriteString(c.Value)
	for i := len(c.Value); i < c.Size; i++ {
		out.WriteByte(' ')
	}
}

// DeserializeChar trims trailing ASCII space padding from a fixed-width
// payload of the given declared size.
func DeserializeChar(cur *bytes.Reader, size int) (Char, error) {
	buf := make([]byte, size)
	n, err := cur.Read(buf)
	if err != nil || n < size {
		return Char{}, ErrTruncated
	}
	return Char{Value: string(bytes.TrimRight(buf, " ")), Size: size}, nil
}

// DecodeChar trims trailing ASCII space padding from a raw ByteBox payload.
func DecodeChar(data []byte) string {
	return string(bytes.TrimRight(data, " "))
}

func (c Char) ToByteBox() ByteBox {
	var buf bytes.Buffer
	c.Serialize(&buf)
	return ByteBox{Data: buf.Bytes(), Tag: TagChar, DataSize: c.Size, DataLength: len(c.Value)}
}

// IsCoercibleTo reports only identity coercion: CHAR never widens across
// the numeric/string boundary (spec §4.6).
func (c Char) IsCoercibleTo(tag Tag) bool {
	return tag == TagChar
}
