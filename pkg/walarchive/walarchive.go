// Package walarchive rotates write-ahead log segments and compresses the
// ones that fall behind a checkpoint. Grounded on
// pkg/compression/compression.go and pkg/compression/page.go's
// header-plus-compressed-body shape ([1-byte algorithm][4-byte original
// size][4-byte compressed size][payload]), swapped from that package's
// zstd/gzip/snappy menu to klauspost/compress/flate — the live WAL segment
// is never touched by this package; only segments storage.WAL has already
// rotated out of and the caller no longer replays from are archived.
package walarchive

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"
)

// HeaderSize is [1-byte algorithm tag][4-byte original size][4-byte
// compressed size], matching compression.CompressedPageHeaderSize's shape.
const HeaderSize = 9

// Algorithm tags the archived segment's encoding.
type Algorithm uint8

const (
	AlgorithmNone Algorithm = iota
	AlgorithmFlate
)

// Archiver compresses rotated-out WAL segment files at a configured flate
// level. The zero value uses level 0 (flate.NoCompression).
type Archiver struct {
	level int
}

// NewArchiver builds an Archiver at the given flate level (flate.NoCompression
// through flate.BestCompression); an out-of-range level falls back to
// flate.DefaultCompression, mirroring compression.GzipConfig's clamping.
func NewArchiver(level int) *Archiver {
	if level < flate.NoCompression || level > flate.BestCompression {
		level = flate.DefaultCompression
	}
	return &Archiver{level: level}
}

// ArchiveSegment reads srcPath in full, flate-compresses it, and writes
// <srcPath>.archive with the header-plus-body framing. The source file is
// left untouched; callers remove it only after ArchiveSegment succeeds.
func (a *Archiver) ArchiveSegment(srcPath string) (string, error) {
	raw, err := os.ReadFile(srcPath)
	if err != nil {
		return "", fmt.Errorf("walarchive: read segment %s: %w", srcPath, err)
	}

	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, a.level)
	if err != nil {
		return "", fmt.Errorf("walarchive: new flate writer: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return "", fmt.Errorf("walarchive: compress segment %s: %w", srcPath, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("walarchive: close flate writer: %w", err)
	}
	compressed := buf.Bytes()

	out := make([]byte, 0, HeaderSize+len(compressed))
	out = append(out, byte(AlgorithmFlate))
	out = appendUint32(out, uint32(len(raw)))
	out = appendUint32(out, uint32(len(compressed)))
	out = append(out, compressed...)

	dstPath := srcPath + ".archive"
	if err := os.WriteFile(dstPath, out, 0o644); err != nil {
		return "", fmt.Errorf("walarchive: write archive %s: %w", dstPath, err)
	}
	return dstPath, nil
}

// RestoreSegment reverses ArchiveSegment, returning the original segment
// bytes for replay.
func RestoreSegment(archivePath string) ([]byte, error) {
	data, err := os.ReadFile(archivePath)
	if err != nil {
		return nil, fmt.Errorf("walarchive: read archive %s: %w", archivePath, err)
	}
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("walarchive: archive %s shorter than header", archivePath)
	}

	algo := Algorithm(data[0])
	originalSize := readUint32(data[1:5])
	compressedSize := readUint32(data[5:9])
	body := data[HeaderSize:]
	if uint32(len(body)) != compressedSize {
		return nil, fmt.Errorf("walarchive: archive %s compressed size mismatch: want %d got %d",
			archivePath, compressedSize, len(body))
	}

	switch algo {
	case AlgorithmNone:
		return body, nil
	case AlgorithmFlate:
		r := flate.NewReader(bytes.NewReader(body))
		defer r.Close()
		var out bytes.Buffer
		if _, err := io.Copy(&out, r); err != nil {
			return nil, fmt.Errorf("walarchive: decompress archive %s: %w", archivePath, err)
		}
		if uint32(out.Len()) != originalSize {
			return nil, fmt.Errorf("walarchive: archive %s original size mismatch: want %d got %d",
				archivePath, originalSize, out.Len())
		}
		return out.Bytes(), nil
	default:
		return nil, fmt.Errorf("walarchive: unknown algorithm tag %d in %s", algo, archivePath)
	}
}

// RotatePolicy decides, given a segment's byte size, whether storage.WAL
// should roll to a fresh segment file. Grounded on the teacher's lack of
// rotation (pkg/storage/wal.go is a single unbounded file) — rotation is a
// supplement pulled from the original's checkpoint-driven segment model.
type RotatePolicy struct {
	MaxSegmentBytes int64
}

// DefaultRotatePolicy rotates every 64MiB, a reasonable default for a
// single-node kernel's WAL directory.
func DefaultRotatePolicy() RotatePolicy {
	return RotatePolicy{MaxSegmentBytes: 64 << 20}
}

// ShouldRotate reports whether a segment of the given size has crossed the
// policy's threshold.
func (p RotatePolicy) ShouldRotate(segmentBytes int64) bool {
	return segmentBytes >= p.MaxSegmentBytes
}

// SegmentPath builds the conventional path for WAL segment n under dir.
func SegmentPath(dir string, n uint64) string {
	return filepath.Join(dir, fmt.Sprintf("wal-%010d.log", n))
}

func appendUint32(dst []byte, v uint32) []byte {
	return append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func readUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}
