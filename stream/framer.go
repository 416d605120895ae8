package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/wyemhu12/vikini-sub002/iox"
	"github.com/wyemhu12/vikini-sub002/log"
	"github.com/wyemhu12/vikini-sub002/metrics"
	"github.com/wyemhu12/vikini-sub002/types"
)

// Framer writes assistant text and control frames onto one byte stream.
//
// Nothing is buffered: every call is a single Write followed by a flush when
// the writer supports it (http.Flusher, bufio.Writer), so a streaming client
// renders deltas as they are produced and frame order equals call order.
//
// Literal markers inside assistant text are neutralised by inserting U+200B
// after the leading "$$". The framer remembers the tail of the previous text
// write so a marker split across two deltas is caught too.
type Framer struct {
	mu        sync.Mutex
	w         io.Writer
	logger    *log.Logger
	collector *metrics.Collector
	marshal   func(any) ([]byte, error)
	tail      string // last len(Marker)-1 bytes of text on the wire since the last frame
}

// FramerOption configures a Framer.
type FramerOption func(*Framer)

// WithLogger sets the logger used for dropped frames and neutralised markers.
func WithLogger(l *log.Logger) FramerOption {
	return func(f *Framer) { f.logger = l }
}

// WithCollector sets the metrics collector.
func WithCollector(c *metrics.Collector) FramerOption {
	return func(f *Framer) { f.collector = c }
}

// withMarshal overrides JSON encoding (tests exercise the drop path).
func withMarshal(fn func(any) ([]byte, error)) FramerOption {
	return func(f *Framer) { f.marshal = fn }
}

// NewFramer creates a Framer writing to w.
func NewFramer(w io.Writer, opts ...FramerOption) *Framer {
	f := &Framer{w: w, marshal: json.Marshal}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// WriteText forwards delta as-is, apart from marker neutralisation.
func (f *Framer) WriteText(delta string) error {
	if delta == "" {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	safe, neutralised := f.neutralise(delta)
	if neutralised > 0 {
		f.logger.Debug("neutralised literal frame marker in assistant text", map[string]any{
			"count": neutralised,
		})
		f.collector.AddMarkersNeutralised(int64(neutralised))
	}

	if _, err := io.WriteString(f.w, safe); err != nil {
		return fmt.Errorf("write text: %w", err)
	}
	f.collector.AddTextBytes(int64(len(safe)))
	return iox.Flush(f.w)
}

// WriteControl emits $$META:<json>$$\n in a single write.
// A payload that cannot be encoded is dropped and logged; the stream goes on.
func (f *Framer) WriteControl(ev types.ControlEvent) error {
	payload, err := f.marshal(ev)
	if err == nil && strings.ContainsAny(string(payload), "\r\n") {
		err = fmt.Errorf("encoded payload spans multiple lines")
	}
	if err != nil {
		f.logger.Warn("dropping control frame", map[string]any{
			"type":  string(ev.Type),
			"error": err.Error(),
		})
		f.collector.IncControlFramesDropped()
		return nil
	}

	frame := make([]byte, 0, len(Marker)+len(payload)+len(Terminator))
	frame = append(frame, Marker...)
	frame = append(frame, payload...)
	frame = append(frame, Terminator...)

	f.mu.Lock()
	defer f.mu.Unlock()

	if _, err := f.w.Write(frame); err != nil {
		return fmt.Errorf("write control frame: %w", err)
	}
	f.tail = ""
	f.collector.IncControlFramesEmitted()
	return iox.Flush(f.w)
}

// neutralise breaks every marker occurrence that ends inside delta.
// Occurrences may start in the previously written tail; the break point is
// then placed at the start of delta since written bytes cannot change.
func (f *Framer) neutralise(delta string) (string, int) {
	combined := f.tail + delta
	written := len(f.tail)

	var b strings.Builder
	count := 0
	from := 0
	for {
		i := strings.Index(combined[from:], Marker)
		if i < 0 {
			break
		}
		start := from + i
		cut := max(start+2, len(f.tail))
		b.WriteString(combined[written:cut])
		b.WriteString(zeroWidthSpace)
		written = cut
		count++
		from = start + len(Marker)
	}
	if count == 0 {
		f.tail = lastBytes(combined, len(Marker)-1)
		return delta, 0
	}
	b.WriteString(combined[written:])
	out := b.String()
	f.tail = lastBytes(f.tail+out, len(Marker)-1)
	return out, count
}

func lastBytes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// Verify Framer implements FrameWriter.
var _ FrameWriter = (*Framer)(nil)
