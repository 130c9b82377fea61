// Package btree implements the disk-backed B+Tree index engine: node
// representation, page codec, and the insert/delete/get/scan operations
// with latch-crabbed descent. Grounded on the teacher's pkg/index/btree.go
// (split/merge shape) and pkg/index/btree_disk.go (page-oriented node
// layout), generalized to the typed byte-box keys/values and the exact
// page format this kernel specifies.
package btree

import "github.com/kestreldb/kernel/pkg/storage"

// NodeType distinguishes internal routing nodes from leaf entry nodes.
type NodeType byte

const (
	NodeInternal NodeType = 0x01
	NodeLeaf     NodeType = 0x02
)

// Entry is one sorted key/value pair stored in a leaf node.
type Entry struct {
	Key   []byte
	Value []byte
}

// Node is the in-memory, decoded form of one B+Tree page. Internal nodes
// carry len(Children) == len(Keys)+1 guide posts routing a descent; leaf
// nodes carry sorted Entries and chain to the next leaf via NextLeaf (zero
// meaning none).
type Node struct {
	IsRoot   bool
	Type     NodeType
	Self     storage.PageID
	NextLeaf storage.PageID

	Keys     [][]byte
	Children []storage.PageID

	Entries []Entry
}

func newLeaf(self storage.PageID) *Node {
	return &Node{Type: NodeLeaf, Self: self}
}

func newInternal(self storage.PageID) *Node {
	return &Node{Type: NodeInternal, Self: self}
}

// IsLeaf reports whether n is a leaf node.
func (n *Node) IsLeaf() bool { return n.Type == NodeLeaf }

// NumKeys is the guide-key count for internal nodes, the entry count for
// leaves — the quantity the safe-node rule and the full/underflow checks
// are defined over.
func (n *Node) NumKeys() int {
	if n.IsLeaf() {
		return len(n.Entries)
	}
	return len(n.Keys)
}
