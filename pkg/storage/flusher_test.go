package storage

import (
	"bytes"
	"errors"
	"testing"
)

func newTestFlusher(t *testing.T, frames int) (*Flusher, FileID, []PageID) {
	t.Helper()
	dm, err := NewDiskManager(t.TempDir(), 8)
	if err != nil {
		t.Fatalf("new disk manager: %v", err)
	}
	t.Cleanup(func() { dm.Close() })

	fileID, err := dm.CreateFile()
	if err != nil {
		t.Fatalf("create file: %v", err)
	}

	pool := NewBufferPool(frames, dm)
	fl := NewFlusher(pool, fileID)

	pageIDs := make([]PageID, 3)
	for i := range pageIDs {
		pageID, wg, err := pool.NewPage(fileID)
		if err != nil {
			t.Fatalf("new page %d: %v", i, err)
		}
		wg.Release()
		pageIDs[i] = pageID
	}
	return fl, fileID, pageIDs
}

func TestFlusherAcquireExConflict(t *testing.T) {
	fl, _, pageIDs := newTestFlusher(t, 8)

	wg, err := fl.AcquireEx(pageIDs[0])
	if err != nil {
		t.Fatalf("acquire ex: %v", err)
	}

	if _, err := fl.AcquireEx(pageIDs[0]); !errors.Is(err, ErrExclusiveConflict) {
		t.Fatalf("expected ErrExclusiveConflict, got %v", err)
	}

	if err := fl.ReleaseEx(pageIDs[0], wg); err != nil {
		t.Fatalf("release ex: %v", err)
	}
}

func TestFlusherAcquireShAfterExclusiveFails(t *testing.T) {
	fl, _, pageIDs := newTestFlusher(t, 8)

	wg, err := fl.AcquireEx(pageIDs[0])
	if err != nil {
		t.Fatalf("acquire ex: %v", err)
	}

	if _, err := fl.AcquireSh(pageIDs[0]); !errors.Is(err, ErrExclusiveConflict) {
		t.Fatalf("expected ErrExclusiveConflict, got %v", err)
	}

	if err := fl.ReleaseEx(pageIDs[0], wg); err != nil {
		t.Fatalf("release ex: %v", err)
	}
}

func TestCrabStackAcquireAndReleaseFrontToBack(t *testing.T) {
	fl, _, pageIDs := newTestFlusher(t, 8)

	cs, err := fl.AcquireContextEx(pageIDs)
	if err != nil {
		t.Fatalf("acquire context: %v", err)
	}
	if cs.Len() != 3 {
		t.Fatalf("expected 3 held latches, got %d", cs.Len())
	}

	front, _, ok := cs.Front()
	if !ok || front != pageIDs[0] {
		t.Fatalf("expected front %d, got %d (ok=%v)", pageIDs[0], front, ok)
	}

	if err := cs.ReleaseEx(); err != nil {
		t.Fatalf("release ex: %v", err)
	}
	if cs.Len() != 2 {
		t.Fatalf("expected 2 remaining latches, got %d", cs.Len())
	}

	payload := bytes.Repeat([]byte{0x5c}, PageSize)
	if err := cs.PopFlush(payload); err != nil {
		t.Fatalf("pop flush: %v", err)
	}
	if cs.Len() != 1 {
		t.Fatalf("expected 1 remaining latch, got %d", cs.Len())
	}

	cs.ReleaseAll()
	if cs.Len() != 0 {
		t.Fatalf("expected 0 remaining latches, got %d", cs.Len())
	}

	// The flushed page should now read back with the written payload.
	wg, err := fl.AcquireEx(pageIDs[1])
	if err != nil {
		t.Fatalf("re-acquire flushed page: %v", err)
	}
	if wg.Data()[0] != 0x5c {
		t.Fatalf("expected flushed payload, got %x", wg.Data()[0])
	}
	_ = fl.ReleaseEx(pageIDs[1], wg)
}

func TestReadTopCopiesBytes(t *testing.T) {
	fl, fileID, pageIDs := newTestFlusher(t, 8)

	wg, err := fl.pool.WritePage(fileID, pageIDs[0])
	if err != nil {
		t.Fatalf("write page: %v", err)
	}
	copy(wg.Data()[:], bytes.Repeat([]byte{0x99}, PageSize))
	wg.Release()

	rg, err := fl.AcquireSh(pageIDs[0])
	if err != nil {
		t.Fatalf("acquire sh: %v", err)
	}
	defer fl.ReleaseSh(pageIDs[0], rg)

	out := ReadTop(rg)
	if out[0] != 0x99 || len(out) != PageSize {
		t.Fatalf("unexpected ReadTop result: len=%d first=%x", len(out), out[0])
	}
}
