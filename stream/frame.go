// Package stream implements the chat response wire format.
//
// A response body is assistant text interleaved with self-delimited control
// frames:
//
//	<text>* ($$META:<json>$$\n <text>*)*
//
// The server side writes through a Framer; clients decode with a Parser fed
// arbitrarily-chunked bytes, or with a Reader pulling from an io.Reader.
// Both ends are reached through the Codec interface so an alternative framing
// (BinaryCodec) can be swapped in without touching callers.
package stream

import (
	"fmt"
	"io"
	"strings"

	"github.com/wyemhu12/vikini-sub002/log"
	"github.com/wyemhu12/vikini-sub002/metrics"
	"github.com/wyemhu12/vikini-sub002/types"
)

// Sentinel grammar.
const (
	// Marker opens a control frame.
	Marker = "$$META:"
	// Terminator closes a control frame.
	Terminator = "$$\n"
	// DefaultMaxControlPayload bounds the JSON between Marker and Terminator.
	// A longer candidate is not a frame and its marker is passed through as text.
	DefaultMaxControlPayload = 64 * 1024
)

// zeroWidthSpace is inserted into literal markers found in assistant text.
const zeroWidthSpace = "​"

// FrameKind discriminates Frame values.
type FrameKind int

const (
	// FrameText is an assistant text delta.
	FrameText FrameKind = iota
	// FrameControl is an out-of-band control event.
	FrameControl
)

func (k FrameKind) String() string {
	switch k {
	case FrameText:
		return "text"
	case FrameControl:
		return "control"
	default:
		return fmt.Sprintf("FrameKind(%d)", int(k))
	}
}

// Frame is one decoded element of the stream: either Text or Event is
// meaningful depending on Kind.
type Frame struct {
	Kind  FrameKind
	Text  string
	Event types.ControlEvent
}

// TextFrame returns a text delta frame.
func TextFrame(s string) Frame {
	return Frame{Kind: FrameText, Text: s}
}

// ControlFrame returns a control event frame.
func ControlFrame(ev types.ControlEvent) Frame {
	return Frame{Kind: FrameControl, Event: ev}
}

// Coalesce merges runs of adjacent text frames. Two decodings of the same
// byte stream under different chunkings are equal after coalescing.
func Coalesce(frames []Frame) []Frame {
	out := make([]Frame, 0, len(frames))
	for _, f := range frames {
		if f.Kind == FrameText {
			if f.Text == "" {
				continue
			}
			if n := len(out); n > 0 && out[n-1].Kind == FrameText {
				out[n-1].Text += f.Text
				continue
			}
		}
		out = append(out, f)
	}
	return out
}

// JoinText concatenates the text frames in order, skipping control frames.
func JoinText(frames []Frame) string {
	var b strings.Builder
	for _, f := range frames {
		if f.Kind == FrameText {
			b.WriteString(f.Text)
		}
	}
	return b.String()
}

// FrameWriter is the server side of a framing.
type FrameWriter interface {
	// WriteText forwards an assistant delta to the transport immediately.
	WriteText(delta string) error
	// WriteControl emits one control frame. Encoding failures drop the frame
	// and return nil; transport failures are returned.
	WriteControl(ev types.ControlEvent) error
}

// FrameParser is the client side of a framing.
type FrameParser interface {
	// Push consumes the next transport chunk and returns every frame it completes.
	Push(chunk []byte) []Frame
	// Close flushes buffered bytes at end of stream.
	Close() []Frame
	// Err reports a fatal framing error, if the framing has any.
	Err() error
}

// Codec pairs a writer and a parser for one framing.
type Codec interface {
	// Name identifies the framing in configuration.
	Name() string
	// ContentType is the HTTP Content-Type of a stream in this framing.
	ContentType() string
	NewWriter(w io.Writer) FrameWriter
	NewParser() FrameParser
}

// Codec names accepted by CodecByName.
const (
	CodecSentinel = "sentinel"
	CodecBinary   = "binary"
)

// SentinelCodec is the default $$META framing.
type SentinelCodec struct {
	Logger    *log.Logger
	Collector *metrics.Collector
}

// Name implements Codec.
func (SentinelCodec) Name() string { return CodecSentinel }

// ContentType implements Codec.
func (SentinelCodec) ContentType() string { return "text/plain; charset=utf-8" }

// NewWriter implements Codec.
func (c SentinelCodec) NewWriter(w io.Writer) FrameWriter {
	return NewFramer(w, WithLogger(c.Logger), WithCollector(c.Collector))
}

// NewParser implements Codec.
func (SentinelCodec) NewParser() FrameParser { return NewParser() }

// CodecByName resolves a configured framing name. Empty selects sentinel.
func CodecByName(name string, logger *log.Logger, collector *metrics.Collector) (Codec, error) {
	switch strings.ToLower(name) {
	case "", CodecSentinel:
		return SentinelCodec{Logger: logger, Collector: collector}, nil
	case CodecBinary:
		return BinaryCodec{Logger: logger, Collector: collector}, nil
	default:
		return nil, fmt.Errorf("unknown stream framing %q (must be sentinel or binary)", name)
	}
}

// Verify codecs implement Codec.
var (
	_ Codec = SentinelCodec{}
	_ Codec = BinaryCodec{}
)
