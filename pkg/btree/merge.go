package btree

import "github.com/kestreldb/kernel/pkg/storage"

// Delete performs an exclusive-latched crabbing descent using the
// safe-for-delete rule, removes the entry, and rebalances upward via
// borrow-from-sibling or merge as needed (spec §4.8 Delete).
func (e *Engine) Delete(key []byte) error {
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

		if safeForDelete(node, e.order, node.IsRoot) {
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
	if !found {
		releaseFrames(e.fl, stack)
		return ErrKeyNotFound
	}
	leaf.Entries = append(leaf.Entries[:idx], leaf.Entries[idx+1:]...)

	if leaf.IsRoot || len(leaf.Entries) >= e.order-1 {
		return commitAndRelease(e.fl, stack)
	}

	stack = stack[:len(stack)-1]
	return e.rebalanceUpward(leaf, leafFrame.id, leafFrame.guard, stack)
}

// rebalanceUpward climbs the still-latched ancestor stack, borrowing from
// a sibling or merging as long as the current node underflows, per spec
// §4.8 Delete step 3.
func (e *Engine) rebalanceUpward(curNode *Node, curID storage.PageID, curGuard *storage.WriteGuard, stack []latchedFrame) error {
	b := e.order

	for {
		if len(stack) == 0 {
			// curNode is the root; the root has no minimum-key constraint.
			return commitAndRelease(e.fl, []latchedFrame{{id: curID, guard: curGuard, node: curNode}})
		}

		parentFrame := stack[len(stack)-1]
		parent := parentFrame.node
		childPos := childIndexOf(parent, curNode.Self)

		haveLeft := childPos > 0
		haveRight := childPos < len(parent.Children)-1

		var leftID, rightID storage.PageID
		var leftGuard, rightGuard *storage.WriteGuard
		var leftNode, rightNode *Node
		var err error

		if haveLeft {
			leftID = parent.Children[childPos-1]
			leftGuard, err = e.fl.AcquireEx(leftID)
			if err != nil {
				e.fl.ReleaseEx(curID, curGuard)
				releaseFrames(e.fl, stack)
				return err
			}
			leftNode, err = Decode(pageBytes(leftGuard.Data()))
			if err != nil {
				e.fl.ReleaseEx(leftID, leftGuard)
				e.fl.ReleaseEx(curID, curGuard)
				releaseFrames(e.fl, stack)
				return err
			}
		}
		if haveRight {
			rightID = parent.Children[childPos+1]
			rightGuard, err = e.fl.AcquireEx(rightID)
			if err != nil {
				if leftGuard != nil {
					e.fl.ReleaseEx(leftID, leftGuard)
				}
				e.fl.ReleaseEx(curID, curGuard)
				releaseFrames(e.fl, stack)
				return err
			}
			rightNode, err = Decode(pageBytes(rightGuard.Data()))
			if err != nil {
				e.fl.ReleaseEx(rightID, rightGuard)
				if leftGuard != nil {
					e.fl.ReleaseEx(leftID, leftGuard)
				}
				e.fl.ReleaseEx(curID, curGuard)
				releaseFrames(e.fl, stack)
				return err
			}
		}

		// Prefer the sibling with more keys (spec §4.8 Delete step 3).
		preferLeft := haveLeft && (!haveRight || leftNode.NumKeys() >= rightNode.NumKeys())

		switch {
		case preferLeft && leftNode.NumKeys() > b-1:
			borrowFromLeft(curNode, leftNode, parent, childPos)
			if rightGuard != nil {
				e.fl.ReleaseEx(rightID, rightGuard)
			}
			writeNode(curGuard, curNode)
			writeNode(leftGuard, leftNode)
			e.fl.ReleaseEx(curID, curGuard)
			e.fl.ReleaseEx(leftID, leftGuard)
			return commitAndRelease(e.fl, append(stack[:len(stack)-1], latchedFrame{
				id: parentFrame.id, guard: parentFrame.guard, node: parent,
			}))

		case !preferLeft && haveRight && rightNode.NumKeys() > b-1:
			borrowFromRight(curNode, rightNode, parent, childPos)
			if leftGuard != nil {
				e.fl.ReleaseEx(leftID, leftGuard)
			}
			writeNode(curGuard, curNode)
			writeNode(rightGuard, rightNode)
			e.fl.ReleaseEx(curID, curGuard)
			e.fl.ReleaseEx(rightID, rightGuard)
			return commitAndRelease(e.fl, append(stack[:len(stack)-1], latchedFrame{
				id: parentFrame.id, guard: parentFrame.guard, node: parent,
			}))

		case haveLeft:
			// Merge curNode into leftNode; leftNode survives, curNode's page
			// becomes free.
			mergeNodes(leftNode, curNode, parent, childPos-1)
			if rightGuard != nil {
				e.fl.ReleaseEx(rightID, rightGuard)
			}
			writeNode(leftGuard, leftNode)
			e.fl.ReleaseEx(leftID, leftGuard)
			e.fl.ReleaseEx(curID, curGuard)
			_ = e.pool.DeletePage(e.fileID, curNode.Self)

			stack = stack[:len(stack)-1]
			if len(stack) == 0 && parent.IsRoot && len(parent.Children) == 1 {
				return e.collapseRoot(parent, leftNode)
			}
			curID, curNode, curGuard = parentFrame.id, parent, parentFrame.guard

		default:
			// Merge rightNode into curNode.
			mergeNodes(curNode, rightNode, parent, childPos)
			if leftGuard != nil {
				e.fl.ReleaseEx(leftID, leftGuard)
			}
			writeNode(curGuard, curNode)
			e.fl.ReleaseEx(curID, curGuard)
			_ = e.pool.DeletePage(e.fileID, rightNode.Self)

			stack = stack[:len(stack)-1]
			if len(stack) == 0 && parent.IsRoot && len(parent.Children) == 1 {
				return e.collapseRoot(parent, curNode)
			}
			curID, curNode, curGuard = parentFrame.id, parent, parentFrame.guard
		}

		if curNode.IsRoot || curNode.NumKeys() >= b-1 {
			return commitAndRelease(e.fl, []latchedFrame{{id: curID, guard: curGuard, node: curNode}})
		}
	}
}

// collapseRoot replaces an emptied single-child root with that child,
// decreasing tree height by one (spec §4.8 Delete step 3, last bullet).
func (e *Engine) collapseRoot(oldRoot *Node, survivor *Node) error {
	survivor.IsRoot = true
	wg, err := e.fl.AcquireEx(survivor.Self)
	if err != nil {
		return err
	}
	if err := writeNode(wg, survivor); err != nil {
		e.fl.ReleaseEx(survivor.Self, wg)
		return err
	}
	e.fl.ReleaseEx(survivor.Self, wg)
	_ = e.pool.DeletePage(e.fileID, oldRoot.Self)
	e.setRoot(survivor.Self)
	return nil
}

// borrowFromLeft moves the left sibling's last key/entry into curNode,
// updating the parent's separator to the new boundary.
func borrowFromLeft(curNode, leftNode, parent *Node, childPos int) {
	if curNode.IsLeaf() {
		n := len(leftNode.Entries)
		borrowed := leftNode.Entries[n-1]
		leftNode.Entries = leftNode.Entries[:n-1]
		curNode.Entries = append([]Entry{borrowed}, curNode.Entries...)
		parent.Keys[childPos-1] = curNode.Entries[0].Key
		return
	}
	nk := len(leftNode.Keys)
	nc := len(leftNode.Children)
	borrowedKey := leftNode.Keys[nk-1]
	borrowedChild := leftNode.Children[nc-1]
	leftNode.Keys = leftNode.Keys[:nk-1]
	leftNode.Children = leftNode.Children[:nc-1]

	curNode.Keys = append([][]byte{parent.Keys[childPos-1]}, curNode.Keys...)
	curNode.Children = append([]storage.PageID{borrowedChild}, curNode.Children...)
	parent.Keys[childPos-1] = borrowedKey
}

// borrowFromRight moves the right sibling's first key/entry into curNode.
func borrowFromRight(curNode, rightNode, parent *Node, childPos int) {
	if curNode.IsLeaf() {
		borrowed := rightNode.Entries[0]
		rightNode.Entries = rightNode.Entries[1:]
		curNode.Entries = append(curNode.Entries, borrowed)
		parent.Keys[childPos] = rightNode.Entries[0].Key
		return
	}
	borrowedKey := rightNode.Keys[0]
	borrowedChild := rightNode.Children[0]
	rightNode.Keys = rightNode.Keys[1:]
	rightNode.Children = rightNode.Children[1:]

	curNode.Keys = append(curNode.Keys, parent.Keys[childPos])
	curNode.Children = append(curNode.Children, borrowedChild)
	parent.Keys[childPos] = borrowedKey
}

// mergeNodes concatenates right into left (right is discarded), removing
// the separator key and right's child pointer from parent at leftPos.
// For leaves, left inherits right's next-leaf pointer.
func mergeNodes(left, right, parent *Node, leftPos int) {
	if left.IsLeaf() {
		left.Entries = append(left.Entries, right.Entries...)
		left.NextLeaf = right.NextLeaf
	} else {
		left.Keys = append(left.Keys, parent.Keys[leftPos])
		left.Keys = append(left.Keys, right.Keys...)
		left.Children = append(left.Children, right.Children...)
	}
	parent.Keys = append(parent.Keys[:leftPos], parent.Keys[leftPos+1:]...)
	parent.Children = append(parent.Children[:leftPos+1], parent.Children[leftPos+2:]...)
}
