package btree

import (
	"encoding/binary"

	"github.com/kestreldb/kernel/pkg/storage"
)

// Page layout, all multi-byte fields little-endian (spec §4.7):
//
//	0   1  is_root flag (0x01 / 0x00)
//	1   1  node type (0x01 internal, 0x02 leaf)
//	2   4  self page pointer
//	6   4  num_children (internal) / num_pairs (leaf)
//	10  4  next_leaf_pointer (leaf only)
const (
	offIsRoot = 0
	offType   = 1
	offSelf   = 2
	offCount  = 6
	offNext   = 10

	internalBodyStart = 10
	leafBodyStart     = 14
)

// Encode maps n onto an exact PageSize byte image. Internal nodes write
// child_ptr interleaved with length-prefixed guide keys, terminating with
// the trailing child pointer. Leaf nodes write (key_len, key, value_len,
// value) records in order. Returns ErrPageOverflow if the body does not
// fit in the remaining page bytes.
func Encode(n *Node) ([]byte, error) {
	buf := make([]byte, storage.PageSize)
	if n.IsRoot {
		buf[offIsRoot] = 1
	}
	buf[offType] = byte(n.Type)
	binary.LittleEndian.PutUint32(buf[offSelf:], uint32(n.Self))

	var body []byte
	start := leafBodyStart
	if n.IsLeaf() {
		binary.LittleEndian.PutUint32(buf[offCount:], uint32(len(n.Entries)))
		binary.LittleEndian.PutUint32(buf[offNext:], uint32(n.NextLeaf))
		body = encodeLeafBody(n)
	} else {
		binary.LittleEndian.PutUint32(buf[offCount:], uint32(len(n.Children)))
		body = encodeInternalBody(n)
		start = internalBodyStart
	}

	if start+len(body) > storage.PageSize {
		return nil, ErrPageOverflow
	}
	copy(buf[start:], body)
	return buf, nil
}

func encodeInternalBody(n *Node) []byte {
	var out []byte
	var tmp [4]byte
	for i, key := range n.Keys {
		binary.LittleEndian.PutUint32(tmp[:], uint32(n.Children[i]))
		out = append(out, tmp[:]...)
		binary.LittleEndian.PutUint32(tmp[:], uint32(len(key)))
		out = append(out, tmp[:]...)
		out = append(out, key...)
	}
	binary.LittleEndian.PutUint32(tmp[:], uint32(n.Children[len(n.Keys)]))
	out = append(out, tmp[:]...)
	return out
}

func encodeLeafBody(n *Node) []byte {
	var out []byte
	var tmp [4]byte
	for _, e := range n.Entries {
		binary.LittleEndian.PutUint32(tmp[:], uint32(len(e.Key)))
		out = append(out, tmp[:]...)
		out = append(out, e.Key...)
		binary.LittleEndian.PutUint32(tmp[:], uint32(len(e.Value)))
		out = append(out, tmp[:]...)
		out = append(out, e.Value...)
	}
	return out
}

// Decode is the exact inverse of Encode on a well-formed page.
func Decode(data []byte) (*Node, error) {
	if len(data) < leafBodyStart {
		return nil, ErrPageOverflow
	}
	n := &Node{
		IsRoot: data[offIsRoot] == 1,
		Type:   NodeType(data[offType]),
		Self:   storage.PageID(binary.LittleEndian.Uint32(data[offSelf:])),
	}
	count := int(binary.LittleEndian.Uint32(data[offCount:]))

	if n.Type == NodeLeaf {
		n.NextLeaf = storage.PageID(binary.LittleEndian.Uint32(data[offNext:]))
		if err := decodeLeafBody(n, data[leafBodyStart:], count); err != nil {
			return nil, err
		}
		return n, nil
	}
	if err := decodeInternalBody(n, data[internalBodyStart:], count); err != nil {
		return nil, err
	}
	return n, nil
}

func decodeInternalBody(n *Node, body []byte, numChildren int) error {
	off := 0
	numKeys := numChildren - 1
	if numKeys < 0 {
		numKeys = 0
	}
	for i := 0; i < numKeys; i++ {
		if off+4 > len(body) {
			return ErrPageOverflow
		}
		child := binary.LittleEndian.Uint32(body[off:])
		off += 4
		n.Children = append(n.Children, storage.PageID(child))

		if off+4 > len(body) {
			return ErrPageOverflow
		}
		klen := int(binary.LittleEndian.Uint32(body[off:]))
		off += 4
		if off+klen > len(body) {
			return ErrPageOverflow
		}
		key := make([]byte, klen)
		copy(key, body[off:off+klen])
		off += klen
		n.Keys = append(n.Keys, key)
	}
	if off+4 > len(body) {
		return ErrPageOverflow
	}
	trailing := binary.LittleEndian.Uint32(body[off:])
	n.Children = append(n.Children, storage.PageID(trailing))
	return nil
}

func decodeLeafBody(n *Node, body []byte, numPairs int) error {
	off := 0
	for i := 0; i < numPairs; i++ {
		if off+4 > len(body) {
			return ErrPageOverflow
		}
		klen := int(binary.LittleEndian.Uint32(body[off:]))
		off += 4
		if off+klen > len(body) {
			return ErrPageOverflow
		}
		key := make([]byte, klen)
		copy(key, body[off:off+klen])
		off += klen

		if off+4 > len(body) {
			return ErrPageOverflow
		}
		vlen := int(binary.LittleEndian.Uint32(body[off:]))
		off += 4
		if off+vlen > len(body) {
			return ErrPageOverflow
		}
		val := make([]byte, vlen)
		copy(val, body[off:off+vlen])
		off += vlen

		n.Entries = append(n.Entries, Entry{Key: key, Value: val})
	}
	return nil
}

func pageBytes(p *[storage.PageSize]byte) []byte { return p[:] }
