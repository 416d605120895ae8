package attachment

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/wyemhu12/vikini-sub002/zipsum"
)

// Content kinds.
const (
	KindZip    = "zip"
	KindText   = "text"
	KindBinary = "binary"
)

// sniffLen is how much of the payload is inspected for binary content.
const sniffLen = 8192

// isZip reports whether the attachment should go through the ZIP summarizer.
// Extension and MIME type are hints; the signature decides for unnamed data.
func isZip(filename, mimeType string, data []byte) bool {
	switch strings.ToLower(mimeType) {
	case "application/zip", "application/x-zip-compressed", "application/x-zip":
		return true
	}
	if strings.EqualFold(path.Ext(filename), ".zip") {
		return true
	}
	return bytes.HasPrefix(data, []byte("PK\x03\x04")) || bytes.HasPrefix(data, []byte("PK\x05\x06"))
}

// looksBinary reports NUL bytes or mostly invalid UTF-8 in the first sniffLen bytes.
func looksBinary(data []byte) bool {
	head := data[:min(len(data), sniffLen)]
	if bytes.IndexByte(head, 0) >= 0 {
		return true
	}
	invalid := 0
	for len(head) > 0 {
		r, size := utf8.DecodeRune(head)
		if r == utf8.RuneError && size == 1 {
			invalid++
		}
		head = head[size:]
	}
	return invalid > sniffLen/100
}

// decodeText converts data to valid UTF-8 capped at maxBytes on a rune boundary.
func decodeText(data []byte, maxBytes int) (string, bool) {
	truncated := false
	if len(data) > maxBytes {
		cut := maxBytes
		for cut > 0 && !utf8.RuneStart(data[cut]) {
			cut--
		}
		data = data[:cut]
		truncated = true
	}
	return strings.ToValidUTF8(string(data), "\uFFFD"), truncated
}

// extracted is the prompt-ready form of one attachment.
type extracted struct {
	kind     string
	text     string
	warnings []string
	zip      *zipsum.Result
}

func extract(filename, mimeType string, data []byte, cfg Config) extracted {
	if isZip(filename, mimeType, data) {
		res := zipsum.Summarize(data, cfg.Zip)
		return extracted{kind: KindZip, text: res.Text, warnings: res.Warnings, zip: &res}
	}
	if looksBinary(data) {
		return extracted{
			kind: KindBinary,
			text: fmt.Sprintf("Binary file %q (%d bytes, type %s). Contents are not shown.", filename, len(data), mimeOrUnknown(mimeType)),
		}
	}
	text, truncated := decodeText(data, cfg.MaxTextBytes)
	ex := extracted{kind: KindText, text: text}
	if truncated {
		ex.text += fmt.Sprintf("\n[truncated: showing %d of %d bytes]", len(text), len(data))
		ex.warnings = append(ex.warnings, WarnTextTruncated)
	}
	return ex
}

func mimeOrUnknown(m string) string {
	if m == "" {
		return "unknown"
	}
	return m
}
