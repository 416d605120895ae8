// Package metrics provides process-wide counters for the chat service.
//
// The Collector is a leaf package with no internal dependencies. Every
// increment method is nil-receiver safe so components can be built without
// a collector in tests and CLI paths.
package metrics

import (
	"strings"
	"sync"
)

// Snapshot is an immutable point-in-time view of all counters.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Chat streams
	StreamsStarted   int64 `json:"streams_started"`
	StreamsCompleted int64 `json:"streams_completed"`
	StreamsAborted   int64 `json:"streams_aborted"`
	StreamsFailed    int64 `json:"streams_failed"`

	// Framing
	TextBytes            int64 `json:"text_bytes"`
	ControlFramesEmitted int64 `json:"control_frames_emitted"`
	ControlFramesDropped int64 `json:"control_frames_dropped"`
	MarkersNeutralised   int64 `json:"markers_neutralised"`

	// Attachments
	AttachmentAnalyses int64            `json:"attachment_analyses"`
	ZipSummaries       int64            `json:"zip_summaries"`
	ZipParseFailures   int64            `json:"zip_parse_failures"`
	ZipWarningsByCode  map[string]int64 `json:"zip_warnings_by_code"`

	// Persistence and notifications
	StoreWriteSuccess    int64 `json:"store_write_success"`
	StoreWriteFailure    int64 `json:"store_write_failure"`
	ArchiveWriteSuccess  int64 `json:"archive_write_success"`
	ArchiveWriteFailure  int64 `json:"archive_write_failure"`
	AdapterPublishOK     int64 `json:"adapter_publish_ok"`
	AdapterPublishFailed int64 `json:"adapter_publish_failed"`

	// Dimensions (informational, set at construction)
	Framing        string `json:"framing"`
	StorageBackend string `json:"storage_backend"`
	Model          string `json:"model"`
}

// Collector accumulates counters for the lifetime of a process.
// Thread-safe via sync.Mutex.
type Collector struct {
	mu sync.Mutex

	streamsStarted   int64
	streamsCompleted int64
	streamsAborted   int64
	streamsFailed    int64

	textBytes            int64
	controlFramesEmitted int64
	controlFramesDropped int64
	markersNeutralised   int64

	attachmentAnalyses int64
	zipSummaries       int64
	zipParseFailures   int64
	zipWarningsByCode  map[string]int64

	storeWriteSuccess    int64
	storeWriteFailure    int64
	archiveWriteSuccess  int64
	archiveWriteFailure  int64
	adapterPublishOK     int64
	adapterPublishFailed int64

	framing        string
	storageBackend string
	model          string
}

// NewCollector creates a Collector with dimension labels.
func NewCollector(framing, storageBackend, model string) *Collector {
	return &Collector{
		zipWarningsByCode: make(map[string]int64),
		framing:           framing,
		storageBackend:    storageBackend,
		model:             model,
	}
}

// add applies fn under the lock. No-op on a nil Collector.
func (c *Collector) add(fn func()) {
	if c == nil {
		return
	}
	c.mu.Lock()
	fn()
	c.mu.Unlock()
}

// --- Chat streams ---

// IncStreamStarted records a chat stream start.
func (c *Collector) IncStreamStarted() { c.add(func() { c.streamsStarted++ }) }

// IncStreamCompleted records a stream that reached the end of the answer.
func (c *Collector) IncStreamCompleted() { c.add(func() { c.streamsCompleted++ }) }

// IncStreamAborted records a stream ended early by the client.
func (c *Collector) IncStreamAborted() { c.add(func() { c.streamsAborted++ }) }

// IncStreamFailed records a stream ended by an upstream or transport error.
func (c *Collector) IncStreamFailed() { c.add(func() { c.streamsFailed++ }) }

// --- Framing ---

// AddTextBytes records assistant text bytes written to the wire.
func (c *Collector) AddTextBytes(n int64) { c.add(func() { c.textBytes += n }) }

// IncControlFramesEmitted records a control frame written to the wire.
func (c *Collector) IncControlFramesEmitted() { c.add(func() { c.controlFramesEmitted++ }) }

// IncControlFramesDropped records a control frame dropped on encode failure.
func (c *Collector) IncControlFramesDropped() { c.add(func() { c.controlFramesDropped++ }) }

// AddMarkersNeutralised records literal frame markers defused in text.
func (c *Collector) AddMarkersNeutralised(n int64) { c.add(func() { c.markersNeutralised += n }) }

// --- Attachments ---

// IncAttachmentAnalyses records an attachment analysis request.
func (c *Collector) IncAttachmentAnalyses() { c.add(func() { c.attachmentAnalyses++ }) }

// RecordZipSummary records one summarization and its warnings.
// Warnings are counted by code: the text before the first ':'.
func (c *Collector) RecordZipSummary(parseFailed bool, warnings []string) {
	c.add(func() {
		c.zipSummaries++
		if parseFailed {
			c.zipParseFailures++
		}
		for _, w := range warnings {
			code, _, _ := strings.Cut(w, ":")
			c.zipWarningsByCode[strings.TrimSpace(code)]++
		}
	})
}

// --- Persistence and notifications ---

// IncStoreWriteSuccess records a successful conversation store write.
func (c *Collector) IncStoreWriteSuccess() { c.add(func() { c.storeWriteSuccess++ }) }

// IncStoreWriteFailure records a failed conversation store write.
func (c *Collector) IncStoreWriteFailure() { c.add(func() { c.storeWriteFailure++ }) }

// IncArchiveWriteSuccess records a successful message archive write (per call).
func (c *Collector) IncArchiveWriteSuccess() { c.add(func() { c.archiveWriteSuccess++ }) }

// IncArchiveWriteFailure records a failed message archive write (per call).
func (c *Collector) IncArchiveWriteFailure() { c.add(func() { c.archiveWriteFailure++ }) }

// IncAdapterPublishOK records a delivered completion notification.
func (c *Collector) IncAdapterPublishOK() { c.add(func() { c.adapterPublishOK++ }) }

// IncAdapterPublishFailed records a completion notification that failed after retries.
func (c *Collector) IncAdapterPublishFailed() { c.add(func() { c.adapterPublishFailed++ }) }

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all counters.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	warnings := make(map[string]int64, len(c.zipWarningsByCode))
	for k, v := range c.zipWarningsByCode {
		warnings[k] = v
	}

	return Snapshot{
		StreamsStarted:   c.streamsStarted,
		StreamsCompleted: c.streamsCompleted,
		StreamsAborted:   c.streamsAborted,
		StreamsFailed:    c.streamsFailed,

		TextBytes:            c.textBytes,
		ControlFramesEmitted: c.controlFramesEmitted,
		ControlFramesDropped: c.controlFramesDropped,
		MarkersNeutralised:   c.markersNeutralised,

		AttachmentAnalyses: c.attachmentAnalyses,
		ZipSummaries:       c.zipSummaries,
		ZipParseFailures:   c.zipParseFailures,
		ZipWarningsByCode:  warnings,

		StoreWriteSuccess:    c.storeWriteSuccess,
		StoreWriteFailure:    c.storeWriteFailure,
		ArchiveWriteSuccess:  c.archiveWriteSuccess,
		ArchiveWriteFailure:  c.archiveWriteFailure,
		AdapterPublishOK:     c.adapterPublishOK,
		AdapterPublishFailed: c.adapterPublishFailed,

		Framing:        c.framing,
		StorageBackend: c.storageBackend,
		Model:          c.model,
	}
}
