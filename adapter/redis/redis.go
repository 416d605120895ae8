// Package redis publishes message completion events to a Redis pub/sub
// channel, optionally mirroring them into a capped stream for consumers that
// were offline.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/wyemhu12/vikini-sub002/adapter"
)

// DefaultChannel is the default pub/sub channel name.
const DefaultChannel = "vikini:message_completed"

// DefaultTimeout is the default per-publish timeout.
const DefaultTimeout = 5 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 3

// DefaultStreamMaxLen bounds the mirror stream when Stream is set.
const DefaultStreamMaxLen = 10000

// Config configures the Redis adapter.
type Config struct {
	// URL is the Redis connection URL (required).
	// Format: redis://[:password@]host:port[/db]
	URL string
	// Channel is the pub/sub channel name.
	Channel string
	// Stream, when set, also appends each event to this Redis stream.
	Stream string
	// StreamMaxLen approximately caps the stream length.
	StreamMaxLen int64
	// Timeout is the per-publish timeout (default 5s).
	Timeout time.Duration
	// Retries is the number of retry attempts on failure.
	Retries int
	// Backoff is the base retry delay (default adapter.BaseBackoff).
	Backoff time.Duration
}

// Adapter publishes events via Redis PUBLISH (and XADD when configured).
type Adapter struct {
	config Config
	client *goredis.Client
}

// New creates a Redis adapter from the given config.
// Returns an error if the URL is empty or invalid.
func New(cfg Config) (*Adapter, error) {
	if cfg.URL == "" {
		return nil, errors.New("redis adapter requires a URL")
	}

	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis adapter: invalid URL: %w", err)
	}

	if cfg.Channel == "" {
		cfg.Channel = DefaultChannel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = adapter.BaseBackoff
	}
	if cfg.Stream != "" && cfg.StreamMaxLen <= 0 {
		cfg.StreamMaxLen = DefaultStreamMaxLen
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0, got %d", cfg.Retries)
	}

	return &Adapter{
		config: cfg,
		client: goredis.NewClient(opts),
	}, nil
}

// Publish sends the event as JSON to the configured channel.
func (a *Adapter) Publish(ctx context.Context, event *adapter.MessageCompletedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: marshal event: %w", err)
	}
	return adapter.Retry(ctx, "redis", a.config.Retries, a.config.Backoff,
		func(ctx context.Context) error { return a.publishOnce(ctx, event, body) },
		nil)
}

func (a *Adapter) publishOnce(ctx context.Context, event *adapter.MessageCompletedEvent, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	if a.config.Stream == "" {
		return a.client.Publish(ctx, a.config.Channel, body).Err()
	}

	pipe := a.client.TxPipeline()
	pipe.Publish(ctx, a.config.Channel, body)
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: a.config.Stream,
		MaxLen: a.config.StreamMaxLen,
		Approx: true,
		Values: []any{"conversation_id", event.ConversationID, "event", string(body)},
	})
	_, err := pipe.Exec(ctx)
	return err
}

// Close releases adapter resources.
func (a *Adapter) Close() error {
	return a.client.Close()
}

var _ adapter.Adapter = (*Adapter)(nil)
