package btree

import "github.com/kestreldb/kernel/pkg/storage"

// Insert performs an exclusive-latched crabbing descent using the
// safe-node rule, then splits upward as far as overflow propagates
// (spec §4.8 Insert).
func (e *Engine) Insert(key, value []byte) error {
	root := e.RootPageID()

	var stack []latchedFrame
	cur := root
	for {
		wg, err := e.fl.AcquireEx(cur)
		if err != nil {
			releaseFrames(e.fl, stack)
			return err
		}
		node, err := Decode(pageBytes(wg.Data()))
		if err != nil {
			e.fl.ReleaseEx(cur, wg)
			releaseFrames(e.fl, stack)
			return err
		}
		stack = append(stack, latchedFrame{id: cur, guard: wg, node: node})

		if safeForInsert(node, e.order) {
			releaseFrames(e.fl, stack[:len(stack)-1])
			stack = stack[len(stack)-1:]
		}

		if node.IsLeaf() {
			break
		}
		cur = node.Children[findChildIndex(node, key, e.compare)]
	}

	leafFrame := stack[len(stack)-1]
	leaf := leafFrame.node
	idx, found := findEntryIndex(leaf, key, e.compare)
	if found {
		releaseFrames(e.fl, stack)
		return ErrDuplicateKey
	}
	leaf.Entries = append(leaf.Entries, Entry{})
	copy(leaf.Entries[idx+1:], leaf.Entries[idx:])
	leaf.Entries[idx] = Entry{Key: key, Value: value}

	if leaf.NumKeys() < 2*e.order {
		return commitAndRelease(e.fl, stack)
	}

	// Overflow: split the leaf, then climb splitting ancestors while full.
	stack = stack[:len(stack)-1]
	curID := leafFrame.id
	curNode := leaf
	curGuard := leafFrame.guard

	for {
		newID, newGuard, err := e.pool.NewPage(e.fileID)
		if err != nil {
			e.fl.ReleaseEx(curID, curGuard)
			releaseFrames(e.fl, stack)
			return err
		}

		var left, right *Node
		var guideKey []byte
		if curNode.IsLeaf() {
			left, right, guideKey = splitLeaf(curNode, newID)
		} else {
			left, right, guideKey = splitInternal(curNode, newID)
		}

		if len(stack) == 0 {
			// curNode was the root: grow the tree by one level.
			left.IsRoot = false
			newRootID, newRootGuard, err := e.pool.NewPage(e.fileID)
			if err != nil {
				newGuard.Release()
				e.fl.ReleaseEx(curID, curGuard)
				return err
			}
			newRoot := newInternal(newRootID)
			newRoot.IsRoot = true
			newRoot.Keys = [][]byte{guideKey}
			newRoot.Children = []storage.PageID{left.Self, right.Self}

			err = writeNode(curGuard, left)
			if err == nil {
				err = writeNode(newGuard, right)
			}
			if err == nil {
				err = writeNode(newRootGuard, newRoot)
			}
			newRootGuard.Release()
			newGuard.Release()
			e.fl.ReleaseEx(curID, curGuard)
			if err != nil {
				return err
			}
			e.setRoot(newRootID)
			return nil
		}

		err = writeNode(curGuard, left)
		if err == nil {
			err = writeNode(newGuard, right)
		}
		e.fl.ReleaseEx(curID, curGuard)
		newGuard.Release()
		if err != nil {
			releaseFrames(e.fl, stack)
			return err
		}

		parentFrame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		parent := parentFrame.node

		childPos := childIndexOf(parent, left.Self)
		parent.Keys = append(parent.Keys, nil)
		copy(parent.Keys[childPos+1:], parent.Keys[childPos:])
		parent.Keys[childPos] = guideKey

		parent.Children = append(parent.Children, 0)
		copy(parent.Children[childPos+2:], parent.Children[childPos+1:])
		parent.Children[childPos+1] = right.Self

		if parent.NumKeys() < 2*e.order-1 {
			return commitAndRelease(e.fl, append(stack, latchedFrame{
				id: parentFrame.id, guard: parentFrame.guard, node: parent,
			}))
		}

		curID = parentFrame.id
		curNode = parent
		curGuard = parentFrame.guard
	}
}

// childIndexOf returns the index of child in parent.Children.
func childIndexOf(parent *Node, child storage.PageID) int {
	for i, c := range parent.Children {
		if c == child {
			return i
		}
	}
	return -1
}

// splitLeaf divides a full leaf into left (in place) and a new right
// sibling of the given page id, linking next_leaf_pointer across them and
// returning the promoted guide key (the right half's first key).
func splitLeaf(leaf *Node, newPageID storage.PageID) (left, right *Node, guideKey []byte) {
	n := len(leaf.Entries)
	mid := n / 2

	rightEntries := append([]Entry(nil), leaf.Entries[mid:]...)
	leaf.Entries = leaf.Entries[:mid:mid]

	right = &Node{
		Type:     NodeLeaf,
		Self:     newPageID,
		Entries:  rightEntries,
		NextLeaf: leaf.NextLeaf,
	}
	leaf.NextLeaf = newPageID

	return leaf, right, right.Entries[0].Key
}

// splitInternal divides a full internal node into left (in place) and a
// new right sibling, promoting the middle guide key (which moves up to
// the parent rather than staying in either half).
func splitInternal(node *Node, newPageID storage.PageID) (left, right *Node, guideKey []byte) {
	n := len(node.Keys)
	mid := n / 2
	guideKey = node.Keys[mid]

	rightKeys := append([][]byte(nil), node.Keys[mid+1:]...)
	rightChildren := append([]storage.PageID(nil), node.Children[mid+1:]...)

	node.Keys = node.Keys[:mid:mid]
	node.Children = node.Children[: mid+1 : mid+1]

	right = &Node{
		Type:     NodeInternal,
		Self:     newPageID,
		Keys:     rightKeys,
		Children: rightChildren,
	}

	return node, right, guideKey
}
