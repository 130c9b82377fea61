package types

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Tuple is an ordered, fixed-arity composite of ByteBoxes — a row's worth
// of typed fields reduced to a single comparable value, used by the
// B+Tree engine wherever a key or value is a composite rather than a
// lone scalar. Grounded on Geode_DB's PsuedoCode/Tuple_Psuedo.rs.
type Tuple struct {
	Fields []ByteBox
}

func WrapTuple(fields []ByteBox) Tuple { return Tuple{Fields: fields} }

func (t Tuple) GetType() Tag { return TagTuple }

// Serialize writes a field count followed by each field as
// (tag length, tag bytes, payload length, payload bytes).
func (t Tuple) Serialize(out *bytes.Buffer) {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(t.Fields)))
	out.Write(n[:])
	for _, f := range t.Fields {
		writeLenPrefixed(out, []byte(f.Tag))
		writeLenPrefixed(out, f.Data)
	}
}

func writeLenPrefixed(out *bytes.Buffer, b []byte) {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(b)))
	out.Write(n[:])
	out.Write(b)
}

func readLenPrefixedField(cur *bytes.Reader) ([]byte, error) {
	var n [4]byte
	if _, err := io.ReadFull(cur, n[:]); err != nil {
		return nil, ErrTruncated
	}
	length := binary.LittleEndian.Uint32(n[:])
	buf := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(cur, buf); err != nil {
			return nil, ErrTruncated
		}
	}
	return buf, nil
}

// DeserializeTuple parses the wire form written by Serialize.
func DeserializeTuple(cur *bytes.Reader) (Tuple, error) {
	var n [4]byte
	if _, err := io.ReadFull(cur, n[:]); err != nil {
		return Tuple{}, ErrTruncated
	}
	count := binary.LittleEndian.Uint32(n[:])
	fields := make([]ByteBox, 0, count)
	for i := uint32(0); i < count; i++ {
		tagBytes, err := readLenPrefixedField(cur)
		if err != nil {
			return Tuple{}, err
		}
		data, err := readLenPrefixedField(cur)
		if err != nil {
			return Tuple{}, err
		}
		fields = append(fields, NewByteBox(Tag(tagBytes), data))
	}
	return Tuple{Fields: fields}, nil
}

func (t Tuple) ToByteBox() ByteBox {
	var buf bytes.Buffer
	t.Serialize(&buf)
	return NewByteBox(TagTuple, buf.Bytes())
}

// IsCoercibleTo reports only identity coercion: tuples never coerce to a
// scalar tag (spec §4.6).
func (t Tuple) IsCoercibleTo(tag Tag) bool {
	return tag == TagTuple
}

// Compare orders tuples field-by-field, shorter-prefix-first on a common
// prefix equal, mirroring ByteBox.Compare's lexicographic rule for
// CHAR/VARCHAR but recursing into each field's own comparison.
func (t Tuple) Compare(other Tuple) int {
	n := len(t.Fields)
	if len(other.Fields) < n {
		n = len(other.Fields)
	}
	for i := 0; i < n; i++ {
		if c := t.Fields[i].Compare(other.Fields[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(t.Fields) < len(other.Fields):
		return -1
	case len(t.Fields) > len(other.Fields):
		return 1
	default:
		return 0
	}
}
