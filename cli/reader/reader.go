// Package reader provides the read-only data access behind the CLI
// commands: ZIP summaries of local files, replays of recorded response
// streams, metrics from a running server and archived message history.
package reader

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	lodelib "github.com/justapithecus/lode/lode"

	"github.com/wyemhu12/vikini-sub002/iox"
	"github.com/wyemhu12/vikini-sub002/lode"
	"github.com/wyemhu12/vikini-sub002/metrics"
	"github.com/wyemhu12/vikini-sub002/stream"
	"github.com/wyemhu12/vikini-sub002/types"
	"github.com/wyemhu12/vikini-sub002/zipsum"
)

// ErrNoArchive is returned by History when no archive dataset is configured.
var ErrNoArchive = errors.New("no archive configured (set archive.backend and archive.path)")

// previewRunes caps HistoryItem.Preview.
const previewRunes = 80

// Reader abstracts read-only data access for CLI commands.
type Reader interface {
	Summarize(path string, opts zipsum.Options) (*SummaryResponse, error)
	Replay(ctx context.Context, path, framing string) (*ReplayResponse, error)
	Metrics(ctx context.Context, baseURL string) (*metrics.Snapshot, error)
	History(ctx context.Context, q lode.Query) ([]HistoryItem, error)
}

// Local reads local files, a server's metrics endpoint and an archive dataset.
type Local struct {
	// HTTP is used for Metrics. Nil uses a client with a 10s timeout.
	HTTP *http.Client
	// Dataset backs History. Nil makes History fail with ErrNoArchive.
	Dataset lodelib.Dataset
}

// NewLocal creates a Local reader over an optional archive dataset.
func NewLocal(ds lodelib.Dataset) *Local {
	return &Local{Dataset: ds}
}

var _ Reader = (*Local)(nil)

// Summarize runs the ZIP summarizer over a local file.
func (l *Local) Summarize(path string, opts zipsum.Options) (*SummaryResponse, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	res := zipsum.Summarize(data, opts)
	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return &SummaryResponse{
		File:            path,
		SizeBytes:       int64(len(data)),
		DeclaredEntries: res.DeclaredEntries,
		Entries:         len(res.Entries),
		Snippets:        len(res.Snippets),
		Truncated:       res.Truncated,
		ParseFailed:     res.ParseFailed,
		Warnings:        warnings,
		Text:            res.Text,
		Result:          &res,
	}, nil
}

// replayHandler records frames in stream order and feeds the tracker.
type replayHandler struct {
	resp    *ReplayResponse
	tracker *stream.Tracker
}

func (h *replayHandler) OnText(delta string) {
	h.resp.Frames = append(h.resp.Frames, ReplayFrame{
		Index: len(h.resp.Frames),
		Kind:  stream.FrameText.String(),
		Text:  delta,
	})
	h.resp.TextBytes += len(delta)
	h.tracker.OnText(delta)
}

func (h *replayHandler) OnControl(ev types.ControlEvent) {
	f := ReplayFrame{
		Index:          len(h.resp.Frames),
		Kind:           stream.FrameControl.String(),
		Control:        string(ev.Type),
		ConversationID: ev.ConversationID,
		Title:          ev.Title,
	}
	if ev.Conversation != nil {
		f.ConversationID = ev.Conversation.ID
		f.Title = ev.Conversation.Title
	}
	h.resp.Frames = append(h.resp.Frames, f)
	h.resp.ControlFrames++
	h.tracker.OnControl(ev)
}

// Replay decodes a recorded response body in the named framing.
func (l *Local) Replay(ctx context.Context, path, framing string) (*ReplayResponse, error) {
	codec, err := stream.CodecByName(framing, nil, nil)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer iox.DiscardClose(f)

	resp := &ReplayResponse{File: path, Framing: codec.Name(), Frames: []ReplayFrame{}}
	h := &replayHandler{resp: resp, tracker: stream.NewTracker("")}
	if err := stream.Drive(ctx, stream.NewReaderWithParser(f, codec.NewParser()), h); err != nil {
		return nil, fmt.Errorf("replay %s: %w", path, err)
	}

	resp.Text = h.tracker.Text()
	resp.FinalTitle = h.tracker.FinalTitle()
	resp.Synthesized = h.tracker.Synthesized()
	if conv, ok := h.tracker.Conversation(); ok {
		resp.ConversationID = conv.ID
		resp.Title = conv.Title
	}
	return resp, nil
}

// Metrics fetches the counter snapshot of a running server.
func (l *Local) Metrics(ctx context.Context, baseURL string) (*metrics.Snapshot, error) {
	client := l.HTTP
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	url := strings.TrimRight(baseURL, "/") + "/api/metrics"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build metrics request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer iox.DiscardClose(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	var snap metrics.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode metrics: %w", err)
	}
	return &snap, nil
}

// History lists archived messages matching q, oldest first.
func (l *Local) History(ctx context.Context, q lode.Query) ([]HistoryItem, error) {
	if l.Dataset == nil {
		return nil, ErrNoArchive
	}
	records, err := lode.QueryMessages(ctx, l.Dataset, q)
	if err != nil {
		if errors.Is(err, lode.ErrNoMessagesFound) {
			return []HistoryItem{}, nil
		}
		return nil, err
	}
	items := make([]HistoryItem, 0, len(records))
	for _, r := range records {
		items = append(items, HistoryItem{
			MessageID:      r.MessageID,
			ConversationID: r.ConversationID,
			Day:            r.Day,
			Role:           string(r.Role),
			CreatedAt:      r.CreatedAt,
			Preview:        preview(r.Content),
		})
	}
	return items, nil
}

func preview(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= previewRunes {
		return s
	}
	r := []rune(s)
	return string(r[:previewRunes-1]) + "…"
}
