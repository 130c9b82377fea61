package types

import "bytes"

// Varchar wraps a variable-length string bounded by a declared maximum
// width. Grounded on src/db_types/types/varchar.rs. Unlike Char, the
// wire payload carries exactly len(Value) bytes — no padding.
type Varchar struct {
	Value  string
	MaxLen int
}

func WrapVarchar(v string, maxLen int) (Varchar, error) {
	if len(v) > maxLen {
		return Varchar{}, ErrCharOverflow
	}
	return Varchar{Value: v, MaxLen: maxLen}, nil
}

func (v Varchar) Unwrap() string { return v.Value }

func (v Varchar) GetType() Tag { return TagVarchar }

func (v Varchar) Serialize(out *bytes.Buffer) {
	out.WriteString(v.Value)
}

// DeserializeVarchar takes all of data as the string payload;
// varchar values are only ever framed by an outer length prefix (the
// WAL's length-prefixed key/value fields, or a node slot's stored length),
// never self-delimited.
func DeserializeVarchar(data []byte, maxLen int) (Varchar, error) {
	if len(data) > maxLen {
		return Varchar{}, ErrCharOverflow
	}
	return Varchar{Value: string(data), MaxLen: maxLen}, nil
}

// DecodeVarchar returns the raw payload as a string; there is no padding
// to strip.
func DecodeVarchar(data []byte) string {
	return string(data)
}

func (v Varchar) ToByteBox() ByteBox {
	var buf bytes.Buffer
	v.Serialize(&buf)
	return ByteBox{Data: buf.Bytes(), Tag: TagVarchar, DataSize: v.MaxLen, DataLength: len(v.Value)}
}

// IsCoercibleTo reports only identity coercion: VARCHAR never widens
// across the numeric/string boundary (spec §4.6).
func (v Varchar) IsCoercibleTo(tag Tag) bool {
	return tag == TagVarchar
}
