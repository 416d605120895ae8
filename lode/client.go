package lode

import (
	"context"
	"sync"

	"github.com/justapithecus/lode/lode"

	"github.com/wyemhu12/vikini-sub002/storage"
	"github.com/wyemhu12/vikini-sub002/types"
)

// partitionKeys is the Hive layout shared by the write and read paths.
var partitionKeys = []string{"user_id", "day", "conversation_id"}

// LodeArchive is a Lode-backed implementation of Archive.
type LodeArchive struct {
	dataset lode.Dataset
	config  Config
	mu      sync.Mutex // serialises snapshot commits
}

// NewLodeArchive creates an archive with filesystem storage rooted at root.
func NewLodeArchive(cfg Config, root string) (*LodeArchive, error) {
	return NewLodeArchiveWithFactory(cfg, lode.NewFSFactory(root))
}

// NewLodeArchiveWithFactory creates an archive with a custom store factory.
// Use lode.NewMemoryFactory() for testing.
func NewLodeArchiveWithFactory(cfg Config, factory lode.StoreFactory) (*LodeArchive, error) {
	ds, err := newDataset(cfg.dataset(), factory)
	if err != nil {
		return nil, storage.WrapInitError(err, "lode")
	}
	return &LodeArchive{dataset: ds, config: cfg}, nil
}

func newDataset(id string, factory lode.StoreFactory) (lode.Dataset, error) {
	return lode.NewDataset(
		lode.DatasetID(id),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

// Append writes msgs as one snapshot. An empty batch is a no-op.
func (a *LodeArchive) Append(ctx context.Context, conv types.Conversation, msgs []types.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	records := make([]any, 0, len(msgs))
	for _, m := range msgs {
		records = append(records, toMessageRecordMap(conv, m))
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.dataset.Write(ctx, records, lode.Metadata{}); err != nil {
		return storage.WrapError(err, "archive", a.config.dataset()+"/"+conv.ID)
	}
	return nil
}

// Dataset exposes the underlying dataset for queries.
func (a *LodeArchive) Dataset() lode.Dataset {
	return a.dataset
}

// Close releases archive resources.
func (a *LodeArchive) Close() error {
	// Dataset doesn't require explicit close in current Lode API
	return nil
}

var _ Archive = (*LodeArchive)(nil)
