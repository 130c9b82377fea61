package btree

import (
	"sync"

	"github.com/kestreldb/kernel/pkg/storage"
)

// Comparer gives a total order over raw key bytes — typically
// types.ByteBox.Compare applied to two decoded boxes of the index's
// declared key type (spec §4.6).
type Comparer func(a, b []byte) int

// Engine is the B+Tree index engine: order b, a flusher for latch-crabbed
// page access, a buffer pool for allocating new pages on split, and the
// root's page id. Grounded on pkg/index/btree.go's BTree struct, replacing
// its in-memory node graph with page-backed nodes fetched through guards.
type Engine struct {
	mu      sync.Mutex // serializes root-pointer updates only
	pool    *storage.BufferPool
	fl      *storage.Flusher
	fileID  storage.FileID
	order   int
	root    storage.PageID
	compare Comparer
}

// CreateEngine allocates a fresh root page (an empty leaf marked as root)
// and returns a ready engine.
func CreateEngine(pool *storage.BufferPool, fl *storage.Flusher, fileID storage.FileID, order int, compare Comparer) (*Engine, error) {
	rootID, wg, err := pool.NewPage(fileID)
	if err != nil {
		return nil, err
	}
	root := newLeaf(rootID)
	root.IsRoot = true
	encoded, err := Encode(root)
	if err != nil {
		wg.Release()
		return nil, err
	}
	copy(wg.Data()[:], encoded)
	wg.Release()

	return &Engine{pool: pool, fl: fl, fileID: fileID, order: order, root: rootID, compare: compare}, nil
}

// OpenEngine attaches to an already-initialized tree rooted at rootID
// (e.g. recovered from a catalog page on restart).
func OpenEngine(pool *storage.BufferPool, fl *storage.Flusher, fileID storage.FileID, order int, rootID storage.PageID, compare Comparer) *Engine {
	return &Engine{pool: pool, fl: fl, fileID: fileID, order: order, root: rootID, compare: compare}
}

// RootPageID is the engine's current root — callers persist this in a
// catalog page across restarts.
func (e *Engine) RootPageID() storage.PageID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.root
}

func (e *Engine) setRoot(id storage.PageID) {
	e.mu.Lock()
	e.root = id
	e.mu.Unlock()
}

// findChildIndex returns the child slot to descend into: the child at
// index i is visited when key < keys[i], or the last slot when
// key >= keys[n-1] (spec §4.8 Lookup).
func findChildIndex(n *Node, key []byte, cmp Comparer) int {
	for i, k := range n.Keys {
		if cmp(key, k) < 0 {
			return i
		}
	}
	return len(n.Keys)
}

// findEntryIndex binary-searches a leaf's sorted entries, returning the
// insertion point and whether an exact match was found.
func findEntryIndex(n *Node, key []byte, cmp Comparer) (int, bool) {
	lo, hi := 0, len(n.Entries)
	for lo < hi {
		mid := (lo + hi) / 2
		c := cmp(n.Entries[mid].Key, key)
		switch {
		case c == 0:
			return mid, true
		case c < 0:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return lo, false
}

// latchedFrame is one still-exclusively-latched node in a crabbing
// descent's context stack.
type latchedFrame struct {
	id    storage.PageID
	guard *storage.WriteGuard
	node  *Node
}

// releaseFrames releases every frame's exclusive latch through the
// Flusher, leaf-most first. It must go through Flusher.ReleaseEx (not a
// bare WriteGuard.Release) or the latch table never forgets these pages
// and every later AcquireEx on them wrongly fails with
// ErrExclusiveConflict.
func releaseFrames(fl *storage.Flusher, frames []latchedFrame) {
	for i := len(frames) - 1; i >= 0; i-- {
		fl.ReleaseEx(frames[i].id, frames[i].guard)
	}
}

func writeNode(wg *storage.WriteGuard, n *Node) error {
	encoded, err := Encode(n)
	if err != nil {
		return err
	}
	copy(wg.Data()[:], encoded)
	return nil
}

// commitAndRelease writes the final frame's (possibly mutated) node back
// to its page and releases every latch in the stack through fl, root-most
// last.
func commitAndRelease(fl *storage.Flusher, stack []latchedFrame) error {
	last := stack[len(stack)-1]
	if err := writeNode(last.guard, last.node); err != nil {
		releaseFrames(fl, stack)
		return err
	}
	releaseFrames(fl, stack)
	return nil
}

// safeForInsert is the safe-node rule for descent under Insert: a node is
// safe if it will not reach its full size after absorbing one more key
// (spec §4.8).
func safeForInsert(n *Node, b int) bool {
	if n.IsLeaf() {
		return len(n.Entries)+1 < 2*b
	}
	return len(n.Keys)+1 < 2*b-1
}

// safeForDelete is the safe-node rule for descent under Delete: a node is
// safe if it will still hold at least b-1 keys after losing one (spec
// §4.8). The root is always safe (it has no minimum).
func safeForDelete(n *Node, b int, isRoot bool) bool {
	if isRoot {
		return true
	}
	return n.NumKeys()-1 >= b-1
}

// Get performs a shared-latched descent, releasing each parent latch as
// soon as the child's latch is acquired (spec §4.8 Lookup).
func (e *Engine) Get(key []byte) ([]byte, error) {
	cur := e.RootPageID()

	var prevGuard *storage.ReadGuard
	var prevID storage.PageID
	for {
		rg, err := e.fl.AcquireSh(cur)
		if err != nil {
			if prevGuard != nil {
				e.fl.ReleaseSh(prevID, prevGuard)
			}
			return nil, err
		}
		if prevGuard != nil {
			e.fl.ReleaseSh(prevID, prevGuard)
		}

		node, err := Decode(pageBytes(rg.Data()))
		if err != nil {
			e.fl.ReleaseSh(cur, rg)
			return nil, err
		}

		if node.IsLeaf() {
			idx, found := findEntryIndex(node, key, e.compare)
			e.fl.ReleaseSh(cur, rg)
			if !found {
				return nil, ErrKeyNotFound
			}
			return node.Entries[idx].Value, nil
		}

		childIdx := findChildIndex(node, key, e.compare)
		child := node.Children[childIdx]
		prevGuard, prevID = rg, cur
		cur = child
	}
}

// FindMin descends via leftmost child pointers and returns the first
// entry of the leftmost leaf, or ErrKeyNotFound if the tree is empty
// (spec §4.8 find_min).
func (e *Engine) FindMin() (Entry, error) {
	cur := e.RootPageID()

	var prevGuard *storage.ReadGuard
	var prevID storage.PageID
	for {
		rg, err := e.fl.AcquireSh(cur)
		if err != nil {
			if prevGuard != nil {
				e.fl.ReleaseSh(prevID, prevGuard)
			}
			return Entry{}, err
		}
		if prevGuard != nil {
			e.fl.ReleaseSh(prevID, prevGuard)
		}

		node, err := Decode(pageBytes(rg.Data()))
		if err != nil {
			e.fl.ReleaseSh(cur, rg)
			return Entry{}, err
		}

		if node.IsLeaf() {
			defer e.fl.ReleaseSh(cur, rg)
			if len(node.Entries) == 0 {
				return Entry{}, ErrKeyNotFound
			}
			return node.Entries[0], nil
		}

		prevGuard, prevID = rg, cur
		cur = node.Children[0]
	}
}
