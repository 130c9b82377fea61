package walarchive

import (
	"os"
	"path/filepath"
	"testing"
)

func TestArchiveAndRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "wal-0000000001.log")
	payload := []byte("PUT\x00\x00\x00\x00repeat repeat repeat repeat repeat")
	if err := os.WriteFile(src, payload, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	a := NewArchiver(0)
	archivePath, err := a.ArchiveSegment(src)
	if err != nil {
		t.Fatalf("ArchiveSegment: %v", err)
	}

	restored, err := RestoreSegment(archivePath)
	if err != nil {
		t.Fatalf("RestoreSegment: %v", err)
	}
	if string(restored) != string(payload) {
		t.Fatalf("restored = %q, want %q", restored, payload)
	}
}

func TestRotatePolicyThreshold(t *testing.T) {
	p := RotatePolicy{MaxSegmentBytes: 100}
	if p.ShouldRotate(99) {
		t.Fatalf("rotated early")
	}
	if !p.ShouldRotate(100) {
		t.Fatalf("did not rotate at threshold")
	}
}

func TestSegmentPathFormat(t *testing.T) {
	got := SegmentPath("/data/wal", 3)
	want := "/data/wal/wal-0000000003.log"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
