// Package types implements the kernel's typed value container: a small set
// of scalar wrappers (BigInt, Int, SmallInt, Decimal, Boolean, Char,
// Varchar) plus Tuple, all reducible to a ByteBox for storage and
// comparison. Grounded on Geode_DB's src/db_types/types/*.rs and
// src/index/tree/byte_box.rs.
package types

import "bytes"

// Tag identifies a scalar's declared type. ASCII tag strings double as the
// WAL's key_type/val_type fields (spec §4.9).
type Tag string

const (
	TagBigInt  Tag = "BIGINT"
	TagInt     Tag = "INT"
	TagSmall   Tag = "SMALLINT"
	TagDecimal Tag = "DECIMAL"
	TagBoolean Tag = "BOOLEAN"
	TagChar    Tag = "CHAR"
	TagVarchar Tag = "VARCHAR"
	TagTuple   Tag = "TUPLE"
)

// ByteBox is the type-erased carrier every scalar reduces to: the encoded
// payload, its type tag, the declared size (meaningful for CHAR/VARCHAR),
// and the actual payload length.
type ByteBox struct {
	Data       []byte
	Tag        Tag
	DataSize   int
	DataLength int
}

// NewByteBox builds a ByteBox for a fixed-size scalar, where DataSize and
// DataLength are both the payload's natural length.
func NewByteBox(tag Tag, data []byte) ByteBox {
	return ByteBox{Data: data, Tag: tag, DataSize: len(data), DataLength: len(data)}
}

// IsCoercibleTo reports whether b's declared type can be coerced to tag,
// per spec §4.6: any numeric widens to DECIMAL/BIGINT unconditionally;
// narrowing numeric casts require the current value to fit; numeric and
// string tags never coerce to one another.
func (b ByteBox) IsCoercibleTo(tag Tag) bool {
	if b.Tag == tag {
		return true
	}
	if !isNumericTag(b.Tag) || !isNumericTag(tag) {
		return false
	}
	if tag == TagDecimal || tag == TagBigInt {
		return isNumericTag(b.Tag)
	}

	v, ok := b.asInt64()
	if !ok {
		return false
	}
	switch tag {
	case TagInt:
		return v >= int64(minInt32) && v <= int64(maxInt32)
	case TagSmall:
		return v >= int64(minInt16) && v <= int64(maxInt16)
	default:
		return false
	}
}

func isNumericTag(t Tag) bool {
	switch t {
	case TagBigInt, TagInt, TagSmall, TagDecimal:
		return true
	default:
		return false
	}
}

const (
	minInt32 = -1 << 31
	maxInt32 = 1<<31 - 1
	minInt16 = -1 << 15
	maxInt16 = 1<<15 - 1
)

// asInt64 extracts an integral value from a numeric- or BOOLEAN-tagged box,
// used for narrowing-coercion range checks and by Compare to order integer
// and BOOLEAN boxes; DECIMAL participates via truncation since its
// fractional part is irrelevant to an integer-range test.
func (b ByteBox) asInt64() (int64, bool) {
	switch b.Tag {
	case TagBigInt:
		v, err := DecodeBigInt(b.Data)
		return v, err == nil
	case TagInt:
		v, err := DecodeInt(b.Data)
		return int64(v), err == nil
	case TagSmall:
		v, err := DecodeSmallInt(b.Data)
		return int64(v), err == nil
	case TagDecimal:
		v, err := DecodeDecimal(b.Data)
		return int64(v), err == nil
	case TagBoolean:
		v, err := DecodeBoolean(b.Data)
		if !v {
			return 0, err == nil
		}
		return 1, err == nil
	default:
		return 0, false
	}
}

// Compare gives a, b a total order: unequal type tags order by tag string,
// equal numeric tags compare their little-endian numeric interpretation,
// equal CHAR/VARCHAR tags compare lexicographically (null bytes sort
// least, which is exactly byte-wise comparison on the raw payload).
func (a ByteBox) Compare(b ByteBox) int {
	if a.Tag != b.Tag {
		if a.Tag < b.Tag {
			return -1
		}
		return 1
	}

	switch a.Tag {
	case TagBigInt, TagInt, TagSmall, TagDecimal, TagBoolean:
		av, _ := a.asInt64()
		bv, _ := b.asInt64()
		if a.Tag == TagDecimal {
			fa, _ := DecodeDecimal(a.Data)
			fb, _ := DecodeDecimal(b.Data)
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	default:
		return bytes.Compare(a.Data, b.Data)
	}
}

// Equal reports whether a and b carry the same type tag and payload.
func (a ByteBox) Equal(b ByteBox) bool {
	return a.Tag == b.Tag && bytes.Equal(a.Data, b.Data)
}
