package engine

import (
	"github.com/kestreldb/kernel/pkg/btree"
	"github.com/kestreldb/kernel/pkg/types"
)

// comparerForTag wraps raw key bytes back into a ByteBox of the index's
// declared key type and defers to types.ByteBox.Compare for the index's
// total order, grounded on spec §4.6/§4.8's "comparator is the typed
// container's total order" requirement.
func comparerForTag(tag types.Tag) btree.Comparer {
	return func(a, b []byte) int {
		ab := types.ByteBox{Tag: tag, Data: a}
		bb := types.ByteBox{Tag: tag, Data: b}
		return ab.Compare(bb)
	}
}
