// Package lode archives completed chat messages to a Lode dataset.
//
// The archive is append-only and partitioned by user_id/day/conversation_id.
// It is a secondary copy of the store: the chat service keeps going when an
// archive write fails.
package lode

import (
	"context"
	"sync"
	"time"

	"github.com/wyemhu12/vikini-sub002/types"
)

// DefaultDataset is the dataset ID used when Config.Dataset is empty.
const DefaultDataset = "vikini"

// DeriveDay computes the partition day of a message timestamp.
// Format: YYYY-MM-DD in UTC.
func DeriveDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Config holds archive configuration.
type Config struct {
	// Dataset is the Lode dataset ID.
	Dataset string
}

func (c Config) dataset() string {
	if c.Dataset == "" {
		return DefaultDataset
	}
	return c.Dataset
}

// Archive persists messages of one conversation in a single batch.
type Archive interface {
	// Append writes msgs as one batch. Order within the batch is preserved.
	Append(ctx context.Context, conv types.Conversation, msgs []types.Message) error

	// Close releases archive resources.
	Close() error
}

// NopArchive discards every write. Used when archiving is disabled.
type NopArchive struct{}

// Append implements Archive.
func (NopArchive) Append(context.Context, types.Conversation, []types.Message) error { return nil }

// Close implements Archive.
func (NopArchive) Close() error { return nil }

// StubArchive records writes in memory for tests.
type StubArchive struct {
	mu      sync.Mutex
	Batches []StubBatch
	Err     error
	Closed  bool
}

// StubBatch is one recorded Append call.
type StubBatch struct {
	Conversation types.Conversation
	Messages     []types.Message
}

// NewStubArchive creates an empty StubArchive.
func NewStubArchive() *StubArchive {
	return &StubArchive{}
}

// Append implements Archive. Returns Err when set.
func (a *StubArchive) Append(_ context.Context, conv types.Conversation, msgs []types.Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.Err != nil {
		return a.Err
	}
	a.Batches = append(a.Batches, StubBatch{
		Conversation: conv,
		Messages:     append([]types.Message(nil), msgs...),
	})
	return nil
}

// Messages returns every recorded message in write order.
func (a *StubArchive) Messages() []types.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []types.Message
	for _, b := range a.Batches {
		out = append(out, b.Messages...)
	}
	return out
}

// Close implements Archive.
func (a *StubArchive) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Closed = true
	return nil
}

var (
	_ Archive = NopArchive{}
	_ Archive = (*StubArchive)(nil)
)
