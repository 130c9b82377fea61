package storage

import (
	"bytes"
	"errors"
	"os"
	"testing"
)

func TestDiskManagerAllocateWriteRead(t *testing.T) {
	dir := t.TempDir()
	dm, err := NewDiskManager(dir, 4)
	if err != nil {
		t.Fatalf("new disk manager: %v", err)
	}
	defer dm.Close()

	fileID, err := dm.CreateFile()
	if err != nil {
		t.Fatalf("create file: %v", err)
	}

	pageID, offset, err := dm.AllocatePage(fileID)
	if err != nil {
		t.Fatalf("allocate page: %v", err)
	}
	if pageID != 0 || offset != 0 {
		t.Fatalf("expected first page (0, 0), got (%d, %d)", pageID, offset)
	}

	payload := bytes.Repeat([]byte{0xab}, PageSize)
	if err := dm.WritePage(fileID, pageID, payload); err != nil {
		t.Fatalf("write page: %v", err)
	}

	out := make([]byte, PageSize)
	if err := dm.ReadPage(fileID, pageID, out); err != nil {
		t.Fatalf("read page: %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Fatal("read page did not roundtrip write page")
	}
}

func TestDiskManagerDeletePageRecyclesSlot(t *testing.T) {
	dir := t.TempDir()
	dm, err := NewDiskManager(dir, 4)
	if err != nil {
		t.Fatalf("new disk manager: %v", err)
	}
	defer dm.Close()

	fileID, _ := dm.CreateFile()
	pageID, _, _ := dm.AllocatePage(fileID)

	if err := dm.DeletePage(fileID, pageID); err != nil {
		t.Fatalf("delete page: %v", err)
	}

	out := make([]byte, PageSize)
	if err := dm.ReadPage(fileID, pageID, out); !errors.Is(err, ErrPageDeallocated) {
		t.Fatalf("expected ErrPageDeallocated, got %v", err)
	}

	reused, _, err := dm.AllocatePage(fileID)
	if err != nil {
		t.Fatalf("reallocate: %v", err)
	}
	if reused != pageID {
		t.Fatalf("expected free slot %d reused, got %d", pageID, reused)
	}
}

func TestDiskManagerReadUnknownPage(t *testing.T) {
	dir := t.TempDir()
	dm, _ := NewDiskManager(dir, 4)
	defer dm.Close()

	fileID, _ := dm.CreateFile()
	out := make([]byte, PageSize)
	if err := dm.ReadPage(fileID, 99, out); !errors.Is(err, ErrPageMissing) {
		t.Fatalf("expected ErrPageMissing, got %v", err)
	}
}

func TestDiskManagerUnknownFile(t *testing.T) {
	dir := t.TempDir()
	dm, _ := NewDiskManager(dir, 4)
	defer dm.Close()

	if _, _, err := dm.AllocatePage(404); !errors.Is(err, ErrFileMissing) {
		t.Fatalf("expected ErrFileMissing, got %v", err)
	}
}

func TestDiskManagerFdPoolEviction(t *testing.T) {
	dir := t.TempDir()
	dm, err := NewDiskManager(dir, 1)
	if err != nil {
		t.Fatalf("new disk manager: %v", err)
	}
	defer dm.Close()

	a, _ := dm.CreateFile()
	b, _ := dm.CreateFile()

	pageA, _, _ := dm.AllocatePage(a)
	if err := dm.WritePage(a, pageA, bytes.Repeat([]byte{1}, PageSize)); err != nil {
		t.Fatalf("write a: %v", err)
	}

	pageB, _, _ := dm.AllocatePage(b)
	if err := dm.WritePage(b, pageB, bytes.Repeat([]byte{2}, PageSize)); err != nil {
		t.Fatalf("write b: %v", err)
	}

	out := make([]byte, PageSize)
	if err := dm.ReadPage(a, pageA, out); err != nil {
		t.Fatalf("read a after fd eviction: %v", err)
	}
	if out[0] != 1 {
		t.Fatalf("expected reopened file a content, got %x", out[0])
	}
}

func TestDiskManagerStats(t *testing.T) {
	dir := t.TempDir()
	dm, _ := NewDiskManager(dir, 4)
	defer dm.Close()

	fileID, _ := dm.CreateFile()
	pageID, _, _ := dm.AllocatePage(fileID)
	_ = dm.WritePage(fileID, pageID, make([]byte, PageSize))
	_ = dm.DeletePage(fileID, pageID)

	stats := dm.Stats()
	if stats["file_count"].(int) != 1 {
		t.Fatalf("expected 1 file, got %v", stats["file_count"])
	}
	if stats["free_pages"].(int) != 1 {
		t.Fatalf("expected 1 free page, got %v", stats["free_pages"])
	}
}

func TestDiskManagerPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	dm, _ := NewDiskManager(dir, 4)

	fileID, _ := dm.CreateFile()
	pageID, _, _ := dm.AllocatePage(fileID)
	payload := bytes.Repeat([]byte{0x42}, PageSize)
	if err := dm.WritePage(fileID, pageID, payload); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := dm.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	entries, err := os.ReadDir(dir + "/base")
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected exactly one table space file, got %v (err=%v)", entries, err)
	}
}
