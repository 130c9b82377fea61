package types

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
)

// Decimal wraps an IEEE-754 single-precision float. Grounded on
// src/db_types/types/decimal.rs. Callers must not store NaN; comparison
// and ordering on NaN are unspecified (spec §4.6).
type Decimal float32

func WrapDecimal(v float32) Decimal { return Decimal(v) }

func (d Decimal) Unwrap() float32 { return float32(d) }

func (d Decimal) GetType() Tag { return TagDecimal }

func (d Decimal) Serialize(out *bytes.Buffer) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], math.Float32bits(float32(d)))
	out.Write(buf[:])
}

func DeserializeDecimal(cur *bytes.Reader) (Decimal, error) {
	var buf [4]byte
	if _, err := io.ReadFull(cur, buf[:]); err != nil {
		return 0, ErrTruncated
	}
	return Decimal(math.Float32frombits(binary.LittleEndian.Uint32(buf[:]))), nil
}

// DecodeDecimal reads a little-endian IEEE-754 f32 directly from a ByteBox
// payload.
func DecodeDecimal(data []byte) (float32, error) {
	if len(data) < 4 {
		return 0, ErrTruncated
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(data)), nil
}

func (d Decimal) ToByteBox() ByteBox {
	var buf bytes.Buffer
	d.Serialize(&buf)
	return NewByteBox(TagDecimal, buf.Bytes())
}

func (d Decimal) IsCoercibleTo(tag Tag) bool {
	return d.ToByteBox().IsCoercibleTo(tag)
}
