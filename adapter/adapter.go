// Package adapter defines the notification boundary for downstream systems.
//
// Adapters publish a MessageCompletedEvent whenever an assistant message has
// been produced and persisted, whether by a chat stream or an attachment
// analysis. Publishing is best effort: callers log and count failures.
package adapter

import (
	"context"
	"sync"
	"time"

	"github.com/wyemhu12/vikini-sub002/metrics"
	"github.com/wyemhu12/vikini-sub002/types"
)

// EventTypeMessageCompleted is the EventType of every published event.
const EventTypeMessageCompleted = "message_completed"

// Event sources.
const (
	SourceChat       = "chat"
	SourceAttachment = "attachment"
)

// Outcomes of the producing operation.
const (
	OutcomeCompleted = "completed"
	OutcomeAborted   = "aborted"
	OutcomeFailed    = "failed"
)

// MessageCompletedEvent is the payload published when an assistant message
// is done.
type MessageCompletedEvent struct {
	ContractVersion string   `json:"contract_version"`
	EventType       string   `json:"event_type"` // always "message_completed"
	Source          string   `json:"source"`     // chat or attachment
	Outcome         string   `json:"outcome"`
	UserID          string   `json:"user_id"`
	ConversationID  string   `json:"conversation_id"`
	MessageID       string   `json:"message_id,omitempty"`
	Title           string   `json:"title,omitempty"`
	Model           string   `json:"model,omitempty"`
	Day             string   `json:"day"`
	Timestamp       string   `json:"timestamp"` // RFC 3339
	ContentBytes    int      `json:"content_bytes"`
	DurationMs      int64    `json:"duration_ms"`
	Warnings        []string `json:"warnings,omitempty"`
}

// NewMessageCompletedEvent fills the envelope fields of an event finished at.
func NewMessageCompletedEvent(source, outcome string, conv types.Conversation, at time.Time) *MessageCompletedEvent {
	return &MessageCompletedEvent{
		ContractVersion: types.Version,
		EventType:       EventTypeMessageCompleted,
		Source:          source,
		Outcome:         outcome,
		UserID:          conv.UserID,
		ConversationID:  conv.ID,
		Title:           conv.Title,
		Model:           conv.Model,
		Day:             at.UTC().Format("2006-01-02"),
		Timestamp:       at.UTC().Format(time.RFC3339),
	}
}

// Adapter publishes message completion events to a downstream system.
type Adapter interface {
	// Publish sends the event downstream.
	// Must respect context cancellation and deadlines.
	Publish(ctx context.Context, event *MessageCompletedEvent) error

	// Close releases adapter resources.
	Close() error
}

// Nop discards every event. Used when no adapter is configured.
type Nop struct{}

// Publish implements Adapter.
func (Nop) Publish(context.Context, *MessageCompletedEvent) error { return nil }

// Close implements Adapter.
func (Nop) Close() error { return nil }

// Recorder keeps published events in memory for tests.
type Recorder struct {
	mu     sync.Mutex
	events []MessageCompletedEvent
	Err    error
}

// Publish implements Adapter. Returns Err when set without recording.
func (r *Recorder) Publish(_ context.Context, event *MessageCompletedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, *event)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []MessageCompletedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]MessageCompletedEvent(nil), r.events...)
}

// Close implements Adapter.
func (r *Recorder) Close() error { return nil }

// Instrumented wraps an Adapter and counts publish outcomes.
type Instrumented struct {
	inner     Adapter
	collector *metrics.Collector
}

// NewInstrumented wraps inner with metrics instrumentation.
func NewInstrumented(inner Adapter, collector *metrics.Collector) *Instrumented {
	return &Instrumented{inner: inner, collector: collector}
}

// Publish delegates to the inner adapter and records success or failure.
func (a *Instrumented) Publish(ctx context.Context, event *MessageCompletedEvent) error {
	err := a.inner.Publish(ctx, event)
	if err != nil {
		a.collector.IncAdapterPublishFailed()
	} else {
		a.collector.IncAdapterPublishOK()
	}
	return err
}

// Close delegates to the inner adapter.
func (a *Instrumented) Close() error {
	return a.inner.Close()
}

var (
	_ Adapter = Nop{}
	_ Adapter = (*Recorder)(nil)
	_ Adapter = (*Instrumented)(nil)
)
