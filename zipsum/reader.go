package zipsum

import "encoding/binary"

// Record signatures.
const (
	sigLocalHeader = 0x04034b50
	sigCentralDir  = 0x02014b50
	sigEOCD        = 0x06054b50
)

// Fixed record sizes, excluding variable-length trailers.
const (
	eocdSize        = 22
	centralDirSize  = 46
	localHeaderSize = 30
	maxCommentSize  = 0xFFFF
)

// view is a read-only window over the archive buffer. Every accessor checks
// bounds and reports failure instead of panicking, so offsets taken from an
// untrusted directory can be used directly.
type view []byte

func (v view) u16(off int) (uint16, bool) {
	if off < 0 || off > len(v)-2 {
		return 0, false
	}
	return binary.LittleEndian.Uint16(v[off:]), true
}

func (v view) u32(off int) (uint32, bool) {
	if off < 0 || off > len(v)-4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(v[off:]), true
}

// slice returns v[off:off+n] without copying.
func (v view) slice(off, n int) ([]byte, bool) {
	if off < 0 || n < 0 || off > len(v) || n > len(v)-off {
		return nil, false
	}
	return v[off : off+n], true
}

// hasSig reports whether the 4 bytes at off are sig.
func (v view) hasSig(off int, sig uint32) bool {
	got, ok := v.u32(off)
	return ok && got == sig
}
