package zipsum

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/klauspost/compress/flate"
)

// Compression methods.
const (
	methodStored  = 0
	methodDeflate = 8
)

// Snippet is the text extracted from one entry.
type Snippet struct {
	Name      string `json:"name"`
	Text      string `json:"text"`
	Truncated bool   `json:"truncated"`
}

// entryError is a recoverable per-entry failure carrying its warning code.
type entryError struct {
	code   string
	detail string
}

func (e *entryError) Error() string { return warn(e.code, e.detail) }

// budget is the state shared across the sequential extraction loop.
type budget struct {
	remainingChars int
	files          int
}

// localData re-validates the local header of e and returns its compressed
// bytes. The directory is trusted only for the header offset and sizes.
func localData(v view, e Entry) ([]byte, error) {
	off := int(e.LocalHeaderOffset)
	if !v.hasSig(off, sigLocalHeader) {
		return nil, &entryError{code: WarnBadLocalHeader, detail: e.Name}
	}
	if _, ok := v.slice(off, localHeaderSize); !ok {
		return nil, &entryError{code: WarnBadLocalHeader, detail: e.Name}
	}
	method, _ := v.u16(off + 8)
	if method != e.Method {
		return nil, &entryError{code: WarnBadLocalHeader,
			detail: fmt.Sprintf("%s: method %d differs from directory %d", e.Name, method, e.Method)}
	}
	nameLen, _ := v.u16(off + 26)
	extraLen, _ := v.u16(off + 28)

	start := off + localHeaderSize + int(nameLen) + int(extraLen)
	data, ok := v.slice(start, int(e.CompSize))
	if !ok {
		return nil, &entryError{code: WarnDataOutOfRange, detail: e.Name}
	}
	return data, nil
}

// decode returns at most limit bytes of e's content and whether more existed.
func decode(v view, e Entry, limit int) ([]byte, bool, error) {
	if e.Flags&flagEncrypted != 0 {
		return nil, false, &entryError{code: WarnUnsupportedCompression, detail: e.Name + ": encrypted"}
	}
	if e.Method != methodStored && e.Method != methodDeflate {
		return nil, false, &entryError{code: WarnUnsupportedCompression,
			detail: fmt.Sprintf("%s: method %d", e.Name, e.Method)}
	}

	data, err := localData(v, e)
	if err != nil {
		return nil, false, err
	}

	if e.Method == methodStored {
		if len(data) > limit {
			return data[:limit], true, nil
		}
		return data, false, nil
	}
	return inflateCapped(data, limit)
}

// inflateCapped runs a raw inflate that stops once limit bytes have been
// produced. The decompressor is closed on every return path.
func inflateCapped(data []byte, limit int) ([]byte, bool, error) {
	fr := flate.NewReader(bytes.NewReader(data))
	defer fr.Close()

	// One byte past the cap tells truncation apart from an exact fit.
	out, err := io.ReadAll(io.LimitReader(fr, int64(limit)+1))
	if err != nil {
		return nil, false, err
	}
	if len(out) > limit {
		return out[:limit], true, nil
	}
	return out, false, nil
}

// extractSnippet decodes e within the per-file cap and the shared budget.
// Panics from malformed input are recovered into a zip_extract_error.
func extractSnippet(v view, e Entry, perFile int, b *budget) (s Snippet, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &entryError{code: WarnExtractError, detail: fmt.Sprintf("%s: %v", e.Name, r)}
		}
	}()

	raw, truncated, err := decode(v, e, perFile)
	if err != nil {
		var ee *entryError
		if errors.As(err, &ee) {
			return Snippet{}, err
		}
		return Snippet{}, &entryError{code: WarnExtractError, detail: fmt.Sprintf("%s: %v", e.Name, err)}
	}

	text := bytes.ReplaceAll(raw, []byte{0}, nil)
	if truncated {
		text = cutAtRune(text, len(text))
	}
	if len(text) > b.remainingChars {
		text = cutAtRune(text, b.remainingChars)
		truncated = true
	}
	b.remainingChars -= len(text)
	b.files++

	return Snippet{Name: e.Name, Text: string(text), Truncated: truncated}, nil
}

// cutAtRune returns b[:n], backed off so no UTF-8 sequence is split.
func cutAtRune(b []byte, n int) []byte {
	n = min(n, len(b))
	for i := n - 1; i >= 0 && i >= n-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if !utf8.FullRune(b[i:n]) {
				return b[:i]
			}
			break
		}
	}
	return b[:n]
}
