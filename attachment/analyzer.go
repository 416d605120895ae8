// Package attachment analyzes an uploaded file with the model. ZIP archives
// go through zipsum; other files are decoded as capped UTF-8 text. The
// extracted content is wrapped in a guarded data block before it reaches
// the prompt.
package attachment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wyemhu12/vikini-sub002/adapter"
	"github.com/wyemhu12/vikini-sub002/llm"
	"github.com/wyemhu12/vikini-sub002/lode"
	"github.com/wyemhu12/vikini-sub002/log"
	"github.com/wyemhu12/vikini-sub002/metrics"
	"github.com/wyemhu12/vikini-sub002/storage"
	"github.com/wyemhu12/vikini-sub002/store"
	"github.com/wyemhu12/vikini-sub002/types"
	"github.com/wyemhu12/vikini-sub002/zipsum"
)

// DefaultMaxTextBytes caps decoded plain-text attachments.
const DefaultMaxTextBytes = 120_000

// WarnTextTruncated is reported when a text attachment exceeds MaxTextBytes.
const WarnTextTruncated = "text_truncated"

// Sentinel errors. Use errors.Is for assertions.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidRequest  = errors.New("invalid request")
	// ErrNotFound covers missing and foreign attachments and conversations.
	ErrNotFound = errors.New("attachment not found")
	ErrStorage  = errors.New("attachment storage error")
	ErrUpstream = errors.New("upstream model error")
)

// Config tunes the analyzer.
type Config struct {
	Model        string
	MaxTextBytes int
	Zip          zipsum.Options
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = llm.DefaultModel
	}
	if c.MaxTextBytes <= 0 {
		c.MaxTextBytes = DefaultMaxTextBytes
	}
	c.Zip = c.Zip.WithDefaults()
	return c
}

// Request asks for one attachment to be analyzed.
type Request struct {
	AttachmentID string `json:"attachmentId"`
	// ConversationID must match the attachment's conversation when set.
	ConversationID string `json:"conversationId,omitempty"`
	Prompt         string `json:"prompt,omitempty"`
	RequestID      string `json:"-"`
}

// Result is the saved assistant message plus extraction warnings.
type Result struct {
	Message  types.Message `json:"message"`
	Warnings []string      `json:"warnings"`
	Kind     string        `json:"kind"`
}

// Analyzer runs attachment analyses.
type Analyzer struct {
	store     store.Store
	objects   storage.ObjectStore
	llm       llm.Client
	archive   lode.Archive
	adapter   adapter.Adapter
	logger    *log.Logger
	collector *metrics.Collector
	config    Config
	now       func() time.Time
}

// Option configures an Analyzer.
type Option func(*Analyzer)

func WithConfig(c Config) Option                { return func(a *Analyzer) { a.config = c } }
func WithArchive(l lode.Archive) Option         { return func(a *Analyzer) { a.archive = l } }
func WithAdapter(ad adapter.Adapter) Option     { return func(a *Analyzer) { a.adapter = ad } }
func WithLogger(l *log.Logger) Option           { return func(a *Analyzer) { a.logger = l } }
func WithCollector(c *metrics.Collector) Option { return func(a *Analyzer) { a.collector = c } }
func withClock(now func() time.Time) Option     { return func(a *Analyzer) { a.now = now } }

// NewAnalyzer creates an analyzer over the record store, the object store
// holding attachment bytes, and a model client.
func NewAnalyzer(st store.Store, objects storage.ObjectStore, client llm.Client, opts ...Option) *Analyzer {
	a := &Analyzer{
		store:   st,
		objects: objects,
		llm:     client,
		archive: lode.NopArchive{},
		adapter: adapter.Nop{},
		logger:  log.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.config = a.config.withDefaults()
	return a
}

// Analyze loads the attachment, extracts its content, asks the model about
// it and saves the answer as an assistant message in the attachment's
// conversation.
func (a *Analyzer) Analyze(ctx context.Context, userID string, req Request) (Result, error) {
	if userID == "" {
		return Result{}, ErrUnauthenticated
	}
	if strings.TrimSpace(req.AttachmentID) == "" {
		return Result{}, fmt.Errorf("%w: attachmentId is required", ErrInvalidRequest)
	}
	started := a.now()
	a.collector.IncAttachmentAnalyses()

	att, err := store.OwnedAttachment(ctx, a.store, userID, req.AttachmentID)
	if err != nil {
		return Result{}, lookupError(err)
	}
	if req.ConversationID != "" && req.ConversationID != att.ConversationID {
		return Result{}, fmt.Errorf("%w: attachment %s is not in conversation %s", ErrNotFound, att.ID, req.ConversationID)
	}
	conv, err := store.OwnedConversation(ctx, a.store, userID, att.ConversationID)
	if err != nil {
		return Result{}, lookupError(err)
	}

	logger := a.logger.ForRequest(log.Meta{
		RequestID:      req.RequestID,
		UserID:         userID,
		ConversationID: conv.ID,
	})

	data, err := a.objects.DownloadBytes(ctx, att.StorageRef)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Result{}, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return Result{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	ex := extract(att.Filename, att.MimeType, data, a.config)
	if ex.zip != nil {
		a.collector.RecordZipSummary(ex.zip.ParseFailed, ex.zip.Warnings)
	}
	logger.Debug("attachment extracted", map[string]any{
		"attachment_id": att.ID,
		"kind":          ex.kind,
		"bytes":         len(data),
		"warnings":      len(ex.warnings),
	})

	answer, err := a.llm.Generate(ctx, llm.Request{
		Model:    a.model(conv),
		System:   systemPrompt,
		Contents: []llm.Content{llm.UserText(buildPrompt(req.Prompt, att.Filename, ex.text))},
	})
	if err != nil {
		logger.Error("attachment analysis failed", map[string]any{"attachment_id": att.ID, "error": err.Error()})
		a.publish(ctx, logger, *conv, adapter.OutcomeFailed, "", started, ex.warnings)
		return Result{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	persistCtx := context.WithoutCancel(ctx)
	msg, err := a.store.SaveMessage(persistCtx, userID, conv.ID, types.RoleAssistant, answer)
	if err != nil {
		a.collector.IncStoreWriteFailure()
		return Result{}, fmt.Errorf("%w: save analysis: %w", ErrStorage, err)
	}
	a.collector.IncStoreWriteSuccess()

	if err := a.archive.Append(persistCtx, *conv, []types.Message{msg}); err != nil {
		logger.Warn("archive write failed", map[string]any{"error": err.Error()})
	}
	a.publish(persistCtx, logger, *conv, adapter.OutcomeCompleted, msg.ID, started, ex.warnings)

	warnings := ex.warnings
	if warnings == nil {
		warnings = []string{}
	}
	logger.Info("attachment analyzed", map[string]any{
		"attachment_id": att.ID,
		"kind":          ex.kind,
		"message_id":    msg.ID,
	})
	return Result{Message: msg, Warnings: warnings, Kind: ex.kind}, nil
}

func (a *Analyzer) model(conv *types.Conversation) string {
	if conv.Model != "" {
		return conv.Model
	}
	return a.config.Model
}

func (a *Analyzer) publish(ctx context.Context, logger *log.Logger, conv types.Conversation, outcome, messageID string, started time.Time, warnings []string) {
	finished := a.now()
	event := adapter.NewMessageCompletedEvent(adapter.SourceAttachment, outcome, conv, finished)
	event.MessageID = messageID
	event.DurationMs = finished.Sub(started).Milliseconds()
	event.Warnings = warnings
	if err := a.adapter.Publish(ctx, event); err != nil {
		logger.Warn("completion event not published", map[string]any{"error": err.Error()})
	}
}

func lookupError(err error) error {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrForbidden) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
