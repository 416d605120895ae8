package stream

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/wyemhu12/vikini-sub002/types"
)

// ErrAborted is returned by Drive when the context ends mid-stream.
// Callers treat it as a normal early termination.
var ErrAborted = errors.New("stream aborted")

// defaultReadSize is the transport read size of a Reader.
const defaultReadSize = 4096

// Reader pulls transport chunks from r and yields decoded frames one at a
// time. Each Read is a suspension point; parsing between reads is synchronous.
type Reader struct {
	r       io.Reader
	parser  FrameParser
	buf     []byte
	pending []Frame
	eof     bool
}

// NewReader creates a Reader for the sentinel framing.
func NewReader(r io.Reader) *Reader {
	return NewReaderWithParser(r, NewParser())
}

// NewReaderWithParser creates a Reader over any framing.
func NewReaderWithParser(r io.Reader, p FrameParser) *Reader {
	return &Reader{r: r, parser: p, buf: make([]byte, defaultReadSize)}
}

// Next returns the next frame.
//
// Errors:
//   - io.EOF: stream ended and every frame has been returned
//   - the framing's fatal error (BinaryCodec only), after buffered frames
//   - the transport error, if Read failed with anything but io.EOF
func (r *Reader) Next() (Frame, error) {
	for len(r.pending) == 0 {
		if r.eof {
			if err := r.parser.Err(); err != nil {
				return Frame{}, err
			}
			return Frame{}, io.EOF
		}

		n, err := r.r.Read(r.buf)
		if n > 0 {
			r.pending = append(r.pending, r.parser.Push(r.buf[:n])...)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				return Frame{}, fmt.Errorf("read stream: %w", err)
			}
			r.pending = append(r.pending, r.parser.Close()...)
			r.eof = true
		}
	}

	f := r.pending[0]
	r.pending = r.pending[1:]
	return f, nil
}

// Handler receives decoded frames from Drive.
type Handler interface {
	OnText(delta string)
	OnControl(ev types.ControlEvent)
}

// HandlerFuncs adapts two functions to Handler. Nil functions are skipped.
type HandlerFuncs struct {
	Text    func(delta string)
	Control func(ev types.ControlEvent)
}

// OnText implements Handler.
func (h HandlerFuncs) OnText(delta string) {
	if h.Text != nil {
		h.Text(delta)
	}
}

// OnControl implements Handler.
func (h HandlerFuncs) OnControl(ev types.ControlEvent) {
	if h.Control != nil {
		h.Control(ev)
	}
}

// Drive reads r to the end, dispatching frames to h in stream order.
//
// Returns nil at clean end of stream. Context cancellation is checked between
// reads; cancelling a blocked Read is the transport's job (an HTTP response
// body is closed when its request context ends).
func Drive(ctx context.Context, r *Reader, h Handler) error {
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrAborted, err)
		}

		f, err := r.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %w", ErrAborted, ctx.Err())
			}
			return err
		}

		switch f.Kind {
		case FrameText:
			h.OnText(f.Text)
		case FrameControl:
			h.OnControl(f.Event)
		}
	}
}
