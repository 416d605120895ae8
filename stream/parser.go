package stream

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"

	"github.com/wyemhu12/vikini-sub002/types"
)

var (
	markerBytes     = []byte(Marker)
	terminatorBytes = []byte(Terminator)
)

// Parser incrementally decodes the sentinel framing.
//
// Chunk boundaries are unrelated to frame boundaries. The parser buffers only
// what may still turn into a frame: a partial control frame, a trailing
// prefix of Marker, or an incomplete UTF-8 sequence. Everything else is
// emitted as soon as it arrives.
//
// Control payloads that fail to decode, carry an unknown type, or miss the
// fields their type requires are dropped without surfacing as text.
//
// A Parser is bound to one stream and is not safe for concurrent use.
type Parser struct {
	buf        []byte
	maxPayload int
	dropped    int
	closed     bool
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithMaxControlPayload overrides DefaultMaxControlPayload.
func WithMaxControlPayload(n int) ParserOption {
	return func(p *Parser) {
		if n > 0 {
			p.maxPayload = n
		}
	}
}

// NewParser creates a sentinel parser.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{maxPayload: DefaultMaxControlPayload}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Push appends chunk to the buffer and returns the frames it completes,
// in stream order. A single chunk may complete many frames.
func (p *Parser) Push(chunk []byte) []Frame {
	if p.closed || len(chunk) == 0 {
		return nil
	}
	p.buf = append(p.buf, chunk...)
	return p.drain(nil)
}

// PushString is Push for string chunks.
func (p *Parser) PushString(chunk string) []Frame {
	return p.Push([]byte(chunk))
}

// Close flushes the residual buffer as a final text delta. An unterminated
// control frame was never a frame and is flushed as text too.
func (p *Parser) Close() []Frame {
	if p.closed {
		return nil
	}
	p.closed = true
	if len(p.buf) == 0 {
		return nil
	}
	out := []Frame{TextFrame(string(p.buf))}
	p.buf = nil
	return out
}

// Err implements FrameParser. The sentinel framing has no fatal errors.
func (p *Parser) Err() error { return nil }

// Dropped returns the number of control frames discarded as malformed.
func (p *Parser) Dropped() int { return p.dropped }

// Buffered returns the number of bytes held back awaiting more input.
func (p *Parser) Buffered() int { return len(p.buf) }

func (p *Parser) drain(out []Frame) []Frame {
	for {
		start := bytes.Index(p.buf, markerBytes)
		if start < 0 {
			keep := holdback(p.buf)
			out = p.emitText(out, len(p.buf)-keep)
			return out
		}

		out = p.emitText(out, start)

		body := p.buf[len(markerBytes):]
		end := bytes.Index(body, terminatorBytes)
		if end < 0 {
			if len(body) >= p.maxPayload+len(terminatorBytes) {
				// No terminator can appear within the payload limit any more.
				out = p.emitMarkerAsText(out)
				continue
			}
			return out
		}
		if end > p.maxPayload {
			out = p.emitMarkerAsText(out)
			continue
		}

		if ev, ok := decodeControl(body[:end]); ok {
			out = append(out, ControlFrame(ev))
		} else {
			p.dropped++
		}
		p.buf = body[end+len(terminatorBytes):]
	}
}

// emitText emits buf[:n] as text and drops it from the buffer.
func (p *Parser) emitText(out []Frame, n int) []Frame {
	if n <= 0 {
		return out
	}
	out = append(out, TextFrame(string(p.buf[:n])))
	p.buf = p.buf[n:]
	return out
}

// emitMarkerAsText passes the marker at the head of the buffer through as
// text so scanning resumes after it.
func (p *Parser) emitMarkerAsText(out []Frame) []Frame {
	return p.emitText(out, len(markerBytes))
}

// holdback returns how many trailing bytes of b must wait for more input:
// the longest proper prefix of Marker that b ends with, or an incomplete
// UTF-8 sequence.
func holdback(b []byte) int {
	for n := min(len(markerBytes)-1, len(b)); n > 0; n-- {
		if bytes.HasSuffix(b, markerBytes[:n]) {
			return n
		}
	}
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax+1; i-- {
		if utf8.RuneStart(b[i]) {
			if !utf8.FullRune(b[i:]) {
				return len(b) - i
			}
			break
		}
	}
	return 0
}

// decodeControl decodes and validates one control payload.
func decodeControl(payload []byte) (types.ControlEvent, bool) {
	var ev types.ControlEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return types.ControlEvent{}, false
	}
	if !ev.Valid() {
		return types.ControlEvent{}, false
	}
	return ev, true
}

// ParseAll decodes a complete byte stream in one call.
func ParseAll(data []byte) []Frame {
	p := NewParser()
	frames := p.Push(data)
	return append(frames, p.Close()...)
}

// Verify Parser implements FrameParser.
var _ FrameParser = (*Parser)(nil)
