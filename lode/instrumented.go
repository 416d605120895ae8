package lode

import (
	"context"

	"github.com/wyemhu12/vikini-sub002/metrics"
	"github.com/wyemhu12/vikini-sub002/types"
)

// InstrumentedArchive wraps an Archive and records write metrics.
// Each Append increments archive_write_success or archive_write_failure.
type InstrumentedArchive struct {
	inner     Archive
	collector *metrics.Collector
}

// NewInstrumentedArchive wraps an archive with metrics instrumentation.
func NewInstrumentedArchive(inner Archive, collector *metrics.Collector) *InstrumentedArchive {
	return &InstrumentedArchive{inner: inner, collector: collector}
}

// Append delegates to the inner archive and records success or failure.
func (a *InstrumentedArchive) Append(ctx context.Context, conv types.Conversation, msgs []types.Message) error {
	err := a.inner.Append(ctx, conv, msgs)
	if err != nil {
		a.collector.IncArchiveWriteFailure()
	} else {
		a.collector.IncArchiveWriteSuccess()
	}
	return err
}

// Close delegates to the inner archive.
func (a *InstrumentedArchive) Close() error {
	return a.inner.Close()
}

var _ Archive = (*InstrumentedArchive)(nil)
