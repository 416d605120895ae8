package zipsum

import (
	"fmt"
	"strings"
)

// flagEncrypted is general-purpose bit 0.
const flagEncrypted = 0x1

// Entry is one central-directory record.
type Entry struct {
	// Name is the sanitized entry path.
	Name string `json:"name"`
	// Method is the compression method (0 stored, 8 deflate).
	Method uint16 `json:"method"`
	Flags  uint16 `json:"flags,omitempty"`
	// CompSize and UncompSize are the sizes the directory declares.
	CompSize          uint32 `json:"comp_size"`
	UncompSize        uint32 `json:"uncomp_size"`
	LocalHeaderOffset uint32 `json:"local_header_offset"`
	// Warning is set on the entry that crossed the declared-size cap.
	Warning string `json:"warning,omitempty"`
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool {
	return strings.HasSuffix(e.Name, "/")
}

// eocd is the part of the end-of-central-directory record the walk needs.
type eocd struct {
	entries   int
	dirSize   uint32
	dirOffset uint32
}

// locateEOCD scans backward through the trailing comment window for the
// end-of-central-directory signature.
func locateEOCD(v view) (eocd, bool) {
	if len(v) < eocdSize {
		return eocd{}, false
	}
	lowest := max(0, len(v)-eocdSize-maxCommentSize)
	for off := len(v) - eocdSize; off >= lowest; off-- {
		if !v.hasSig(off, sigEOCD) {
			continue
		}
		entries, _ := v.u16(off + 10)
		size, _ := v.u32(off + 12)
		offset, _ := v.u32(off + 16)
		return eocd{entries: int(entries), dirSize: size, dirOffset: offset}, true
	}
	return eocd{}, false
}

// walkResult is the outcome of a central-directory walk.
type walkResult struct {
	entries   []Entry
	warnings  []string
	truncated bool
}

// walkDirectory decodes up to maxEntries records starting at the declared
// directory offset. A bad signature or out-of-range record ends the walk
// early; so does the running declared-size total crossing maxTotal.
func walkDirectory(v view, end eocd, maxEntries int, maxTotal int64) walkResult {
	var res walkResult
	off := int(end.dirOffset)
	var total int64

	for i := range end.entries {
		if i >= maxEntries {
			res.truncated = true
			res.warnings = append(res.warnings, warn(WarnTooManyEntries,
				fmt.Sprintf("declared %d, processed %d", end.entries, maxEntries)))
			break
		}

		e, next, ok := readCentralRecord(v, off)
		if !ok {
			res.truncated = true
			res.warnings = append(res.warnings, warn(WarnDirectoryCorrupt,
				fmt.Sprintf("record %d at offset %d", i, off)))
			break
		}
		off = next

		total += int64(e.UncompSize)
		if total > maxTotal {
			e.Warning = WarnUncompressedLimit
			res.entries = append(res.entries, e)
			res.truncated = true
			res.warnings = append(res.warnings, warn(WarnUncompressedLimit, e.Name))
			break
		}
		res.entries = append(res.entries, e)
	}
	return res
}

// readCentralRecord decodes the record at off and returns the next offset.
func readCentralRecord(v view, off int) (Entry, int, bool) {
	if !v.hasSig(off, sigCentralDir) {
		return Entry{}, 0, false
	}
	if _, ok := v.slice(off, centralDirSize); !ok {
		return Entry{}, 0, false
	}

	flags, _ := v.u16(off + 8)
	method, _ := v.u16(off + 10)
	compSize, _ := v.u32(off + 20)
	uncompSize, _ := v.u32(off + 24)
	nameLen, _ := v.u16(off + 28)
	extraLen, _ := v.u16(off + 30)
	commentLen, _ := v.u16(off + 32)
	localOffset, _ := v.u32(off + 42)

	name, ok := v.slice(off+centralDirSize, int(nameLen))
	if !ok {
		return Entry{}, 0, false
	}
	next := off + centralDirSize + int(nameLen) + int(extraLen) + int(commentLen)
	if next > len(v) {
		return Entry{}, 0, false
	}

	return Entry{
		Name:              sanitizeName(string(name)),
		Method:            method,
		Flags:             flags,
		CompSize:          compSize,
		UncompSize:        uncompSize,
		LocalHeaderOffset: localOffset,
	}, next, true
}

// sanitizeName normalises separators and strips NUL bytes and leading
// slashes. Names are only ever displayed, never used as filesystem paths.
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\x00", "")
	name = strings.ReplaceAll(name, `\`, "/")
	return strings.TrimLeft(name, "/")
}
