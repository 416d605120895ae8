package lode

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/justapithecus/lode/lode"

	"github.com/wyemhu12/vikini-sub002/storage"
)

// ErrNoMessagesFound is returned when no archived message matches the query.
var ErrNoMessagesFound = errors.New("no archived messages found")

// Query narrows QueryMessages. Empty fields match everything.
type Query struct {
	UserID         string
	ConversationID string
	Day            string
}

func (q Query) matches(r MessageRecord) bool {
	return (q.UserID == "" || r.UserID == q.UserID) &&
		(q.ConversationID == "" || r.ConversationID == q.ConversationID) &&
		(q.Day == "" || r.Day == q.Day)
}

// QueryMessages reads archived messages matching q, oldest first.
// A message archived more than once is returned once.
func QueryMessages(ctx context.Context, ds lode.Dataset, q Query) ([]MessageRecord, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, storage.WrapError(err, "read", string(ds.ID())+"/snapshots")
	}

	seen := make(map[string]struct{})
	var out []MessageRecord
	for _, snap := range snapshots {
		// Manifest paths are a coarse pre-filter; record fields are authoritative.
		if !snapshotMatchesFilter(snap, "user_id", q.UserID) ||
			!snapshotMatchesFilter(snap, "conversation_id", q.ConversationID) ||
			!snapshotMatchesFilter(snap, "day", q.Day) {
			continue
		}

		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, storage.WrapError(err, "read", fmt.Sprintf("%s/snapshot/%s", ds.ID(), snap.ID))
		}
		for _, item := range data {
			raw, ok := item.(map[string]any)
			if !ok {
				continue
			}
			r, ok := fromRecordMap(raw)
			if !ok || !q.matches(r) {
				continue
			}
			if _, dup := seen[r.MessageID]; dup {
				continue
			}
			seen[r.MessageID] = struct{}{}
			out = append(out, r)
		}
	}

	if len(out) == 0 {
		return nil, ErrNoMessagesFound
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
