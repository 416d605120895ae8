// Package chat implements the streamed chat turn: conversation ownership,
// optimistic and final titles, model deltas written through a stream
// FrameWriter, message persistence, archiving and completion notifications.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wyemhu12/vikini-sub002/adapter"
	"github.com/wyemhu12/vikini-sub002/llm"
	"github.com/wyemhu12/vikini-sub002/lode"
	"github.com/wyemhu12/vikini-sub002/log"
	"github.com/wyemhu12/vikini-sub002/metrics"
	"github.com/wyemhu12/vikini-sub002/store"
	"github.com/wyemhu12/vikini-sub002/stream"
	"github.com/wyemhu12/vikini-sub002/types"
)

// Defaults for Config zero values.
const (
	DefaultHistoryLimit = 40
	DefaultTitleTimeout = 15 * time.Second
)

// FailureNotice is appended to the visible text when the model fails mid-turn.
const FailureNotice = "\n\n[The assistant could not finish this response.]"

// Config tunes the chat service.
type Config struct {
	// Model is used when the request and the conversation name none.
	Model string `yaml:"model" json:"model"`
	// SystemPrompt is sent as the system instruction of every turn.
	SystemPrompt string `yaml:"system_prompt" json:"system_prompt"`
	// HistoryLimit caps the number of prior messages sent to the model.
	HistoryLimit int `yaml:"history_limit" json:"history_limit"`
	// TitleTimeout bounds final title generation.
	TitleTimeout time.Duration `yaml:"-" json:"-"`
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = llm.DefaultModel
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = DefaultHistoryLimit
	}
	if c.TitleTimeout <= 0 {
		c.TitleTimeout = DefaultTitleTimeout
	}
	return c
}

// Request is one user turn.
type Request struct {
	// ConversationID is empty for a new conversation.
	ConversationID string `json:"conversationId,omitempty"`
	// Message is the user's text (required).
	Message string `json:"message"`
	// Model overrides the conversation model for this turn.
	Model string `json:"model,omitempty"`
	// RequestID correlates log entries.
	RequestID string `json:"-"`
}

// Result summarises a finished turn.
type Result struct {
	Conversation types.Conversation
	UserMessage  types.Message
	// Assistant is nil when nothing was generated.
	Assistant *types.Message
	Outcome   string
}

// Service runs chat turns.
type Service struct {
	store     store.Store
	llm       llm.Client
	archive   lode.Archive
	adapter   adapter.Adapter
	logger    *log.Logger
	collector *metrics.Collector
	config    Config
	now       func() time.Time
	newID     func() string
}

// Option configures a Service.
type Option func(*Service)

// WithArchive archives every completed turn.
func WithArchive(a lode.Archive) Option { return func(s *Service) { s.archive = a } }

// WithAdapter publishes a completion event for every turn.
func WithAdapter(a adapter.Adapter) Option { return func(s *Service) { s.adapter = a } }

// WithLogger sets the base logger.
func WithLogger(l *log.Logger) Option { return func(s *Service) { s.logger = l } }

// WithCollector sets the metrics collector.
func WithCollector(c *metrics.Collector) Option { return func(s *Service) { s.collector = c } }

// WithConfig sets service tuning.
func WithConfig(c Config) Option { return func(s *Service) { s.config = c } }

func withClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func withIDs(newID func() string) Option { return func(s *Service) { s.newID = newID } }

// NewService creates a chat service over a store and a model client.
func NewService(st store.Store, client llm.Client, opts ...Option) *Service {
	s := &Service{
		store:   st,
		llm:     client,
		archive: lode.NopArchive{},
		adapter: adapter.Nop{},
		logger:  log.Nop(),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.config = s.config.withDefaults()
	return s
}

// Turn is a validated chat turn ready to stream. Prepare has no side
// effects, so callers can map its errors to a response status before any
// byte of the stream is written.
type Turn struct {
	svc     *Service
	userID  string
	req     Request
	conv    types.Conversation
	created bool
	logger  *log.Logger
}

// Prepare validates the request and resolves the target conversation.
func (s *Service) Prepare(ctx context.Context, userID string, req Request) (*Turn, error) {
	if userID == "" {
		return nil, newError(ErrUnauthenticated, "prepare", nil)
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return nil, newError(ErrInvalidRequest, "prepare", errors.New("message is empty"))
	}

	t := &Turn{svc: s, userID: userID, req: req}
	if req.ConversationID != "" {
		conv, err := store.OwnedConversation(ctx, s.store, userID, req.ConversationID)
		if err != nil {
			return nil, classifyStoreError("load", err)
		}
		t.conv = *conv
	} else {
		now := s.now().UTC()
		t.conv = types.Conversation{
			ID:        s.newID(),
			UserID:    userID,
			Title:     types.DefaultConversationTitle,
			Model:     s.model(req, ""),
			CreatedAt: now,
			UpdatedAt: now,
		}
		t.created = true
	}
	t.logger = s.logger.ForRequest(log.Meta{
		RequestID:      req.RequestID,
		UserID:         userID,
		ConversationID: t.conv.ID,
	})
	return t, nil
}

// Stream prepares and runs a turn in one call.
func (s *Service) Stream(ctx context.Context, userID string, req Request, w stream.FrameWriter) (Result, error) {
	t, err := s.Prepare(ctx, userID, req)
	if err != nil {
		return Result{}, err
	}
	return t.Run(ctx, w)
}

func (s *Service) model(req Request, conversationModel string) string {
	switch {
	case req.Model != "":
		return req.Model
	case conversationModel != "":
		return conversationModel
	default:
		return s.config.Model
	}
}

// Conversation returns the conversation the turn writes to.
func (t *Turn) Conversation() types.Conversation { return t.conv }

// Run streams the turn to w. Client disconnects (ctx cancellation or a
// transport write error) end the turn as aborted; whatever was generated is
// still persisted.
func (t *Turn) Run(ctx context.Context, w stream.FrameWriter) (Result, error) {
	s := t.svc
	started := s.now()
	s.collector.IncStreamStarted()
	res := Result{Conversation: t.conv}

	// Persistence must survive a client disconnect.
	persistCtx := context.WithoutCancel(ctx)

	if t.created {
		if err := s.store.CreateConversation(persistCtx, t.conv); err != nil {
			s.collector.IncStoreWriteFailure()
			s.collector.IncStreamFailed()
			return res, classifyStoreError("create_conversation", err)
		}
		s.collector.IncStoreWriteSuccess()
		conv := t.conv
		if err := w.WriteControl(types.NewConversationCreated(&conv)); err != nil {
			return t.abort(persistCtx, res, started, "", err)
		}
	}

	optimistic := ""
	if t.needsTitle() {
		optimistic = OptimisticTitle(t.req.Message)
		if err := w.WriteControl(types.NewTitleEvent(types.ControlOptimisticTitle, t.conv.ID, optimistic)); err != nil {
			return t.abort(persistCtx, res, started, "", err)
		}
	}

	userMsg, err := s.store.SaveMessage(persistCtx, t.userID, t.conv.ID, types.RoleUser, t.req.Message)
	if err != nil {
		s.collector.IncStoreWriteFailure()
		s.collector.IncStreamFailed()
		return res, classifyStoreError("save_message", err)
	}
	s.collector.IncStoreWriteSuccess()
	res.UserMessage = userMsg

	history, err := s.store.ListMessages(persistCtx, t.conv.ID)
	if err != nil {
		t.logger.Warn("history unavailable, sending the current message only", map[string]any{"error": err.Error()})
		history = []types.Message{userMsg}
	}
	if over := len(history) - s.config.HistoryLimit; over > 0 {
		history = history[over:]
	}

	llmReq := llm.Request{
		Model:    s.model(t.req, t.conv.Model),
		System:   s.config.SystemPrompt,
		Contents: llm.FromHistory(history),
	}

	var answer strings.Builder
	var upstreamErr, transportErr error
	for delta, err := range s.llm.Stream(ctx, llmReq) {
		if err != nil {
			upstreamErr = err
			break
		}
		answer.WriteString(delta)
		if err := w.WriteText(delta); err != nil {
			transportErr = err
			break
		}
	}

	switch {
	case transportErr != nil:
		return t.abort(persistCtx, res, started, answer.String(), transportErr)
	case ctx.Err() != nil:
		return t.abort(persistCtx, res, started, answer.String(), ctx.Err())
	case upstreamErr != nil:
		_ = w.WriteText(FailureNotice)
		res = t.finish(persistCtx, res, started, answer.String(), adapter.OutcomeFailed)
		s.collector.IncStreamFailed()
		t.logger.Error("model stream failed", map[string]any{"error": upstreamErr.Error()})
		return res, newError(ErrUpstream, "stream", upstreamErr)
	}

	if t.needsTitle() {
		title := t.finalTitle(persistCtx, answer.String(), optimistic)
		if err := s.store.UpdateTitle(persistCtx, t.conv.ID, title); err != nil {
			s.collector.IncStoreWriteFailure()
			t.logger.Warn("title update failed", map[string]any{"error": err.Error()})
		} else {
			s.collector.IncStoreWriteSuccess()
			t.conv.Title = title
			res.Conversation.Title = title
		}
		if err := w.WriteControl(types.NewTitleEvent(types.ControlFinalTitle, t.conv.ID, title)); err != nil {
			t.logger.Debug("final title not delivered", map[string]any{"error": err.Error()})
		}
	}

	res = t.finish(persistCtx, res, started, answer.String(), adapter.OutcomeCompleted)
	s.collector.IncStreamCompleted()
	return res, nil
}

// needsTitle is true while the conversation still carries the placeholder.
func (t *Turn) needsTitle() bool {
	return t.created || t.conv.Title == "" || t.conv.Title == types.DefaultConversationTitle
}

func (t *Turn) finalTitle(ctx context.Context, answer, fallback string) string {
	ctx, cancel := context.WithTimeout(ctx, t.svc.config.TitleTimeout)
	defer cancel()

	raw, err := t.svc.llm.Generate(ctx, llm.Request{
		Model:           t.svc.model(t.req, t.conv.Model),
		Contents:        []llm.Content{llm.UserText(titlePrompt(t.req.Message, answer))},
		Temperature:     new(float32),
		MaxOutputTokens: 32,
	})
	if err != nil {
		t.logger.Warn("title generation failed, keeping optimistic title", map[string]any{"error": err.Error()})
		return fallback
	}
	if title := CleanTitle(raw); title != "" {
		return title
	}
	return fallback
}

func (t *Turn) abort(ctx context.Context, res Result, started time.Time, answer string, cause error) (Result, error) {
	t.logger.Info("stream aborted", map[string]any{"cause": cause.Error(), "bytes": len(answer)})
	t.svc.collector.IncStreamAborted()
	res = t.finish(ctx, res, started, answer, adapter.OutcomeAborted)
	return res, nil
}

// finish persists the assistant message when there is one, then archives
// and notifies. Archive and notification failures are logged, not returned.
func (t *Turn) finish(ctx context.Context, res Result, started time.Time, answer, outcome string) Result {
	s := t.svc
	res.Outcome = outcome

	if res.UserMessage.ID == "" {
		return res
	}

	batch := []types.Message{res.UserMessage}
	if answer != "" {
		msg, err := s.store.SaveMessage(ctx, t.userID, t.conv.ID, types.RoleAssistant, answer)
		if err != nil {
			s.collector.IncStoreWriteFailure()
			t.logger.Error("assistant message not saved", map[string]any{"error": err.Error()})
		} else {
			s.collector.IncStoreWriteSuccess()
			res.Assistant = &msg
			batch = append(batch, msg)
		}
	}

	if err := s.archive.Append(ctx, t.conv, batch); err != nil {
		t.logger.Warn("archive write failed", map[string]any{"error": err.Error()})
	}

	finished := s.now()
	event := adapter.NewMessageCompletedEvent(adapter.SourceChat, outcome, t.conv, finished)
	event.ContentBytes = len(answer)
	event.DurationMs = finished.Sub(started).Milliseconds()
	if res.Assistant != nil {
		event.MessageID = res.Assistant.ID
	}
	if err := s.adapter.Publish(ctx, event); err != nil {
		t.logger.Warn("completion event not published", map[string]any{"error": err.Error()})
	}

	t.logger.Info("stream finished", map[string]any{
		"outcome":     outcome,
		"bytes":       len(answer),
		"duration_ms": event.DurationMs,
	})
	return res
}
