package storage

import "testing"

func TestFramePinCounting(t *testing.T) {
	f := newFrame(3)

	if f.PinCount() != 0 {
		t.Fatalf("expected pin count 0, got %d", f.PinCount())
	}

	f.incPin()
	if f.PinCount() != 1 {
		t.Fatalf("expected pin count 1, got %d", f.PinCount())
	}

	f.incPin()
	if f.PinCount() != 2 {
		t.Fatalf("expected pin count 2, got %d", f.PinCount())
	}

	f.decPin()
	if f.PinCount() != 1 {
		t.Fatalf("expected pin count 1, got %d", f.PinCount())
	}
}

func TestFrameDirtyFlag(t *testing.T) {
	f := newFrame(0)

	if f.IsDirty() {
		t.Fatal("expected new frame to be clean")
	}

	f.setDirty(true)
	if !f.IsDirty() {
		t.Fatal("expected frame to be dirty")
	}

	f.setDirty(false)
	if f.IsDirty() {
		t.Fatal("expected frame to be clean again")
	}
}

func TestFrameReclaim(t *testing.T) {
	f := newFrame(1)
	f.Data[0] = 0xff
	f.incPin()
	f.setDirty(true)

	f.reclaim(PageKey{File: 7, Page: 2})

	if f.Key != (PageKey{File: 7, Page: 2}) {
		t.Fatalf("unexpected key after reclaim: %+v", f.Key)
	}
	if f.Data[0] != 0 {
		t.Fatal("expected reclaimed frame data to be zeroed")
	}
	if f.PinCount() != 0 {
		t.Fatal("expected reclaimed frame to have zero pin count")
	}
	if f.IsDirty() {
		t.Fatal("expected reclaimed frame to be clean")
	}
}
