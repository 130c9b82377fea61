package engine

import (
	"github.com/kestreldb/kernel/pkg/btree"
	"github.com/kestreldb/kernel/pkg/storage"
	"github.com/kestreldb/kernel/pkg/types"
)

// IndexHandle is one named B+Tree index within a StorageEngine: a typed
// key/value pair over a dedicated file, per spec §6's index.put/get/
// delete/scan surface.
type IndexHandle struct {
	name     string
	tableID  uint32
	fileID   storage.FileID
	keyType  types.Tag
	valType  types.Tag
	order    int
	tree     *btree.Engine
	eng      *StorageEngine
}

// Name is the index's catalog name.
func (h *IndexHandle) Name() string { return h.name }

// KeyType is the declared key tag used for both the comparator and the
// WAL's key_type field.
func (h *IndexHandle) KeyType() types.Tag { return h.keyType }

// ValueType is the declared value tag used for the WAL's val_type field.
func (h *IndexHandle) ValueType() types.Tag { return h.valType }

// Put writes key to the WAL ahead of inserting it into the tree, matching
// spec §4.9's "log before apply" discipline for durability.
func (h *IndexHandle) Put(key, value []byte) error {
	if err := h.eng.logMutation(storage.WalPut, h.tableID, h.keyType, key, h.valType, value); err != nil {
		return err
	}
	return h.tree.Insert(key, value)
}

// Get looks up key, returning ErrKeyNotFound (btree.ErrKeyNotFound) if
// absent.
func (h *IndexHandle) Get(key []byte) ([]byte, error) {
	return h.tree.Get(key)
}

// Delete removes key, logging the deletion to the WAL first.
func (h *IndexHandle) Delete(key []byte) error {
	if err := h.eng.logMutation(storage.WalDel, h.tableID, h.keyType, key, h.valType, nil); err != nil {
		return err
	}
	return h.tree.Delete(key)
}

// Scan returns a forward cursor over r, per spec §4.8 Range scan.
func (h *IndexHandle) Scan(r btree.Range) (*btree.Iterator, error) {
	return h.tree.Scan(r)
}
