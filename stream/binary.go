package stream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/wyemhu12/vikini-sub002/iox"
	"github.com/wyemhu12/vikini-sub002/log"
	"github.com/wyemhu12/vikini-sub002/metrics"
	"github.com/wyemhu12/vikini-sub002/types"
)

// Binary frame size constants.
const (
	// MaxFrameSize is the maximum binary frame size (16 MiB), including length prefix.
	MaxFrameSize = 16 * 1024 * 1024
	// MaxPayloadSize is the maximum payload size (MaxFrameSize - 4 bytes).
	MaxPayloadSize = MaxFrameSize - LengthPrefixSize
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
)

// Binary envelope type discriminants.
const (
	binaryTypeText    = "text"
	binaryTypeControl = "control"
)

// FrameErrorKind classifies binary frame decoding errors.
type FrameErrorKind int

const (
	// FrameErrorPartial indicates a truncated or incomplete frame.
	FrameErrorPartial FrameErrorKind = iota
	// FrameErrorTooLarge indicates a frame exceeding MaxFrameSize.
	FrameErrorTooLarge
	// FrameErrorDecode indicates a msgpack decoding error.
	FrameErrorDecode
)

// FrameError represents a binary frame decoding error.
type FrameError struct {
	Kind FrameErrorKind
	Msg  string
	Err  error
}

func (e *FrameError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *FrameError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if the stream cannot be resynchronised after this error.
// Partial and oversized frames are fatal; a bad payload only loses its frame.
func (e *FrameError) IsFatal() bool {
	return e.Kind == FrameErrorPartial || e.Kind == FrameErrorTooLarge
}

// IsFatalFrameError returns true if the error is a fatal frame error.
func IsFatalFrameError(err error) bool {
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		return frameErr.IsFatal()
	}
	return false
}

// binaryEnvelope is the msgpack payload of one binary frame.
type binaryEnvelope struct {
	Type  string              `msgpack:"type"`
	Text  string              `msgpack:"text,omitempty"`
	Event *types.ControlEvent `msgpack:"event,omitempty"`
}

// BinaryCodec frames every delta and event as a 4-byte big-endian length
// prefix followed by a msgpack envelope. Unlike the sentinel framing it has
// no in-band ambiguity, at the cost of not being human-readable.
type BinaryCodec struct {
	Logger    *log.Logger
	Collector *metrics.Collector
}

// Name implements Codec.
func (BinaryCodec) Name() string { return CodecBinary }

// ContentType implements Codec.
func (BinaryCodec) ContentType() string { return "application/vnd.vikini.frames+msgpack" }

// NewWriter implements Codec.
func (c BinaryCodec) NewWriter(w io.Writer) FrameWriter {
	return &BinaryWriter{w: w, logger: c.Logger, collector: c.Collector}
}

// NewParser implements Codec.
func (BinaryCodec) NewParser() FrameParser { return &BinaryParser{} }

// BinaryWriter writes length-prefixed msgpack frames.
type BinaryWriter struct {
	mu        sync.Mutex
	w         io.Writer
	logger    *log.Logger
	collector *metrics.Collector
}

// WriteText implements FrameWriter.
func (b *BinaryWriter) WriteText(delta string) error {
	if delta == "" {
		return nil
	}
	if err := b.writeEnvelope(&binaryEnvelope{Type: binaryTypeText, Text: delta}); err != nil {
		return err
	}
	b.collector.AddTextBytes(int64(len(delta)))
	return nil
}

// WriteControl implements FrameWriter.
func (b *BinaryWriter) WriteControl(ev types.ControlEvent) error {
	err := b.writeEnvelope(&binaryEnvelope{Type: binaryTypeControl, Event: &ev})
	var frameErr *FrameError
	if errors.As(err, &frameErr) {
		b.logger.Warn("dropping control frame", map[string]any{
			"type":  string(ev.Type),
			"error": err.Error(),
		})
		b.collector.IncControlFramesDropped()
		return nil
	}
	if err != nil {
		return err
	}
	b.collector.IncControlFramesEmitted()
	return nil
}

func (b *BinaryWriter) writeEnvelope(env *binaryEnvelope) error {
	payload, err := msgpack.Marshal(env)
	if err != nil {
		return &FrameError{Kind: FrameErrorDecode, Msg: "failed to encode frame", Err: err}
	}
	if len(payload) > MaxPayloadSize {
		return &FrameError{
			Kind: FrameErrorTooLarge,
			Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", len(payload), MaxPayloadSize),
		}
	}

	frame := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(frame[:LengthPrefixSize], uint32(len(payload)))
	copy(frame[LengthPrefixSize:], payload)

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.w.Write(frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return iox.Flush(b.w)
}

// BinaryParser decodes length-prefixed msgpack frames pushed in arbitrary chunks.
// After a fatal error it discards all further input and Err reports the cause.
type BinaryParser struct {
	buf     []byte
	err     error
	dropped int
}

// Push implements FrameParser.
func (p *BinaryParser) Push(chunk []byte) []Frame {
	if p.err != nil {
		return nil
	}
	p.buf = append(p.buf, chunk...)

	var out []Frame
	for len(p.buf) >= LengthPrefixSize {
		size := binary.BigEndian.Uint32(p.buf[:LengthPrefixSize])
		if size > MaxPayloadSize {
			p.fail(&FrameError{
				Kind: FrameErrorTooLarge,
				Msg:  fmt.Sprintf("payload size %d exceeds maximum %d", size, MaxPayloadSize),
			})
			return out
		}
		total := LengthPrefixSize + int(size)
		if len(p.buf) < total {
			return out
		}

		f, err := decodeBinaryPayload(p.buf[LengthPrefixSize:total])
		if err != nil {
			p.dropped++
		} else {
			out = append(out, f)
		}
		p.buf = p.buf[total:]
	}
	return out
}

// Close implements FrameParser. Leftover bytes are a partial frame.
func (p *BinaryParser) Close() []Frame {
	if p.err == nil && len(p.buf) > 0 {
		p.fail(&FrameError{
			Kind: FrameErrorPartial,
			Msg:  fmt.Sprintf("stream ended inside a frame (%d bytes buffered)", len(p.buf)),
			Err:  io.ErrUnexpectedEOF,
		})
	}
	return nil
}

// Err implements FrameParser.
func (p *BinaryParser) Err() error { return p.err }

// Dropped returns the number of frames discarded as undecodable.
func (p *BinaryParser) Dropped() int { return p.dropped }

func (p *BinaryParser) fail(err error) {
	p.err = err
	p.buf = nil
}

// decodeBinaryPayload discriminates an envelope on its type field.
func decodeBinaryPayload(payload []byte) (Frame, error) {
	var env binaryEnvelope
	if err := msgpack.Unmarshal(payload, &env); err != nil {
		return Frame{}, &FrameError{Kind: FrameErrorDecode, Msg: "failed to decode frame", Err: err}
	}

	switch env.Type {
	case binaryTypeText:
		return TextFrame(env.Text), nil
	case binaryTypeControl:
		if !env.Event.Valid() {
			return Frame{}, &FrameError{Kind: FrameErrorDecode, Msg: "invalid control event"}
		}
		return ControlFrame(*env.Event), nil
	default:
		return Frame{}, &FrameError{Kind: FrameErrorDecode, Msg: fmt.Sprintf("unknown frame type %q", env.Type)}
	}
}

// Verify binary types implement the framing interfaces.
var (
	_ FrameWriter = (*BinaryWriter)(nil)
	_ FrameParser = (*BinaryParser)(nil)
)
