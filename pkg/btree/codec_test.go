package btree

import (
	"reflect"
	"testing"

	"github.com/kestreldb/kernel/pkg/storage"
)

func TestCodecLeafRoundTrip(t *testing.T) {
	n := &Node{
		Type:     NodeLeaf,
		Self:     storage.PageID(7),
		NextLeaf: storage.PageID(8),
		Entries: []Entry{
			{Key: []byte("a"), Value: []byte("1")},
			{Key: []byte("bb"), Value: []byte("22")},
		},
	}
	encoded, err := Encode(n)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(encoded) != storage.PageSize {
		t.Fatalf("expected exact PageSize, got %d", len(encoded))
	}
	got, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Self != n.Self || got.NextLeaf != n.NextLeaf || !reflect.DeepEqual(got.Entries, n.Entries) {
		t.Fatalf("roundtrip mismatch: got %+v want %+v", got, n)
	}
}

func TestCodecInternalRoundTrip(t *testing.T) {
	n := &Node{
		IsRoot: true,
		Type:   NodeInternal,
		Self:   storage.PageID(1),
		Keys:   [][]byte{[]byte("m")},
		Children: []storage.PageID{
			storage.PageID(2), storage.PageID(3),
		},
	}
	encoded, err := Encode(n)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !got.IsRoot || !reflect.DeepEqual(got.Keys, n.Keys) || !reflect.DeepEqual(got.Children, n.Children) {
		t.Fatalf("roundtrip mismatch: got %+v want %+v", got, n)
	}
}
