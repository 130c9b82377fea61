package btree

import "github.com/kestreldb/kernel/pkg/storage"

// Bound is one end of a scan range. Unbounded means no constraint on that
// side; otherwise Key is compared with Inclusive deciding whether an
// exact match is yielded.
type Bound struct {
	Key       []byte
	Inclusive bool
	Unbounded bool
}

// Unbounded builds a Bound with no constraint.
func Unbounded() Bound { return Bound{Unbounded: true} }

// Included builds an inclusive Bound at key.
func Included(key []byte) Bound { return Bound{Key: key, Inclusive: true} }

// Excluded builds an exclusive Bound at key.
func Excluded(key []byte) Bound { return Bound{Key: key, Inclusive: false} }

// Range is a half-open-or-closed key interval passed to Scan.
type Range struct {
	Lower Bound
	Upper Bound
}

// Iterator is a forward range-scan cursor. It holds at most one leaf read
// latch at a time, advancing across leaves via NextLeaf (spec §4.8 Range
// scan). Callers that stop iterating before exhausting it must call
// Close to release the held latch.
type Iterator struct {
	e     *Engine
	upper Bound

	guard *storage.ReadGuard
	node  *Node
	idx   int
	done  bool
}

// Scan descends once to the lower bound's leaf and returns a cursor over
// entries in [lower, upper] subject to each bound's inclusivity.
func (e *Engine) Scan(r Range) (*Iterator, error) {
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
			idx := 0
			if !r.Lower.Unbounded {
				idx, _ = findEntryIndex(node, r.Lower.Key, e.compare)
				if !r.Lower.Inclusive {
					for idx < len(node.Entries) && e.compare(node.Entries[idx].Key, r.Lower.Key) == 0 {
						idx++
					}
				}
			}
			return &Iterator{e: e, upper: r.Upper, guard: rg, node: node, idx: idx}, nil
		}

		childIdx := 0
		if !r.Lower.Unbounded {
			childIdx = findChildIndex(node, r.Lower.Key, e.compare)
		}
		prevGuard, prevID = rg, cur
		cur = node.Children[childIdx]
	}
}

// Next yields the next entry in range, or ok=false once exhausted.
func (it *Iterator) Next() (entry Entry, ok bool, err error) {
	if it.done {
		return Entry{}, false, nil
	}
	for {
		if it.idx < len(it.node.Entries) {
			e := it.node.Entries[it.idx]
			if !it.upper.Unbounded {
				c := it.e.compare(e.Key, it.upper.Key)
				if c > 0 || (c == 0 && !it.upper.Inclusive) {
					it.stop()
					return Entry{}, false, nil
				}
			}
			it.idx++
			return e, true, nil
		}

		next := it.node.NextLeaf
		it.e.fl.ReleaseSh(it.node.Self, it.guard)
		if next == 0 {
			it.done = true
			return Entry{}, false, nil
		}

		rg, err := it.e.fl.AcquireSh(next)
		if err != nil {
			it.done = true
			return Entry{}, false, err
		}
		node, err := Decode(pageBytes(rg.Data()))
		if err != nil {
			it.e.fl.ReleaseSh(next, rg)
			it.done = true
			return Entry{}, false, err
		}
		it.guard, it.node, it.idx = rg, node, 0
	}
}

func (it *Iterator) stop() {
	if !it.done {
		it.e.fl.ReleaseSh(it.node.Self, it.guard)
		it.done = true
	}
}

// Close releases the currently held leaf latch, if any. Safe to call
// after exhaustion or multiple times.
func (it *Iterator) Close() { it.stop() }
