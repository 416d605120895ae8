// Package iox provides I/O helpers for resource cleanup and flushing.
package iox

import (
	"io"
	"net/http"
)

// DiscardClose closes c and discards the error.
// Use in defer statements where close errors are unactionable:
//
//	defer iox.DiscardClose(resp.Body)
func DiscardClose(c io.Closer) { _ = c.Close() }

// CloseFunc returns a cleanup function that closes c.
// Designed for t.Cleanup registration:
//
//	t.Cleanup(iox.CloseFunc(store))
func CloseFunc(c io.Closer) func() {
	return func() { _ = c.Close() }
}

// Flush pushes buffered bytes of w to its destination when w supports it.
// Recognises http.Flusher and writers with a Flush() error method
// (bufio.Writer, gzip.Writer). Other writers are a no-op.
func Flush(w io.Writer) error {
	switch f := w.(type) {
	case http.Flusher:
		f.Flush()
		return nil
	case interface{ Flush() error }:
		return f.Flush()
	default:
		return nil
	}
}
