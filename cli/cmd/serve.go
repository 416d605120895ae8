package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	lodelibrary "github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	vikiniconfig "github.com/wyemhu12/vikini-sub002/cli/config"
	"github.com/wyemhu12/vikini-sub002/adapter"
	"github.com/wyemhu12/vikini-sub002/adapter/redis"
	"github.com/wyemhu12/vikini-sub002/adapter/webhook"
	"github.com/wyemhu12/vikini-sub002/attachment"
	"github.com/wyemhu12/vikini-sub002/chat"
	"github.com/wyemhu12/vikini-sub002/llm"
	"github.com/wyemhu12/vikini-sub002/lode"
	"github.com/wyemhu12/vikini-sub002/log"
	"github.com/wyemhu12/vikini-sub002/metrics"
	"github.com/wyemhu12/vikini-sub002/server"
	"github.com/wyemhu12/vikini-sub002/storage"
	"github.com/wyemhu12/vikini-sub002/store"
	"github.com/wyemhu12/vikini-sub002/stream"
)

// ServeCommand returns the serve command, the only command with side effects.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the chat and attachment analysis HTTP server",
		Flags: []cli.Flag{
			ConfigFlag,
			// Listener
			&cli.StringFlag{Name: "addr", Usage: "Listen address", Value: server.DefaultAddr},
			&cli.StringFlag{Name: "user-header", Usage: "Header carrying the authenticated user ID", Value: server.DefaultUserHeader},
			&cli.StringFlag{Name: "auth-token", Usage: "Bearer token required on every request (optional)", EnvVars: []string{"VIKINI_AUTH_TOKEN"}},
			&cli.StringFlag{Name: "framing", Usage: "Response stream framing: sentinel or binary", Value: stream.CodecSentinel},
			// Model
			&cli.StringFlag{Name: "gemini-api-key", Usage: "Gemini API key", EnvVars: []string{"GEMINI_API_KEY"}},
			&cli.StringFlag{Name: "model", Usage: "Default model", Value: llm.DefaultModel},
			// Persistence
			&cli.StringFlag{Name: "database-backend", Usage: "Conversation store: memory or sqlite", Value: store.BackendMemory},
			&cli.StringFlag{Name: "database-path", Usage: "SQLite database file"},
			&cli.StringFlag{Name: "storage-backend", Usage: "Attachment storage: memory, fs or s3", Value: "memory"},
			&cli.StringFlag{Name: "storage-path", Usage: "Attachment storage path (fs: directory, s3: bucket/prefix)"},
			&cli.StringFlag{Name: "storage-region", Usage: "AWS region for the s3 backend"},
			&cli.StringFlag{Name: "storage-endpoint", Usage: "Custom S3 endpoint (R2, MinIO, Supabase)"},
			&cli.BoolFlag{Name: "storage-s3-path-style", Usage: "Force path-style S3 addressing"},
			// Archive
			&cli.StringFlag{Name: "archive-backend", Usage: "Message archive: memory, fs or s3 (empty disables)"},
			&cli.StringFlag{Name: "archive-path", Usage: "Archive path (fs: directory, s3: bucket/prefix)"},
			&cli.StringFlag{Name: "archive-dataset", Usage: "Lode dataset ID", Value: lode.DefaultDataset},
			// Notifications
			&cli.StringFlag{Name: "adapter-type", Usage: "Completion notifications: webhook or redis"},
			&cli.StringFlag{Name: "adapter-url", Usage: "Webhook endpoint or redis:// URL"},
			&cli.DurationFlag{Name: "adapter-timeout", Usage: "Per-publish timeout"},
			&cli.IntFlag{Name: "adapter-retries", Usage: "Retry attempts per publish", Value: webhook.DefaultRetries},
			// Logging
			&cli.StringFlag{Name: "log-level", Usage: "Minimum log level: debug, info, warn, error", Value: "info"},
		},
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	applyServeFlags(c, cfg)
	if err := cfg.Validate(); err != nil {
		return configError(err)
	}
	if cfg.Gemini.APIKey == "" {
		return configError(errors.New("gemini.api_key (or GEMINI_API_KEY) is required"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := log.NewLoggerWithLevel("vikini", cfg.Log.Level, os.Stderr)
	defer func() { _ = logger.Sync() }()

	client, err := llm.NewGeminiClient(ctx, llm.GeminiConfig{
		APIKey:      cfg.Gemini.APIKey,
		Model:       cfg.Gemini.Model,
		Temperature: cfg.Gemini.Temperature,
	})
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to create model client: %v", err), exitConfigError)
	}

	wired, err := buildApp(ctx, cfg, client, logger)
	if err != nil {
		return cli.Exit(err.Error(), exitConfigError)
	}
	defer func() { _ = wired.Close() }()

	logger.Info("listening", map[string]any{
		"addr":    cfg.Server.Addr,
		"framing": wired.codec.Name(),
		"storage": wired.storageBackend,
		"store":   cfg.Database.Backend,
	})
	if err := wired.server.ListenAndServe(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// applyServeFlags overlays explicitly set flags (and flag defaults where the
// config is silent) onto cfg.
func applyServeFlags(c *cli.Context, cfg *vikiniconfig.Config) {
	cfg.Server.Addr = resolveString(c, "addr", cfg.Server.Addr)
	cfg.Server.UserHeader = resolveString(c, "user-header", cfg.Server.UserHeader)
	cfg.Server.AuthToken = resolveString(c, "auth-token", cfg.Server.AuthToken)
	cfg.Stream.Framing = resolveString(c, "framing", cfg.Stream.Framing)

	cfg.Gemini.APIKey = resolveString(c, "gemini-api-key", cfg.Gemini.APIKey)
	cfg.Gemini.Model = resolveString(c, "model", cfg.Gemini.Model)

	cfg.Database.Backend = resolveString(c, "database-backend", cfg.Database.Backend)
	cfg.Database.Path = resolveString(c, "database-path", cfg.Database.Path)
	cfg.Storage.Backend = resolveString(c, "storage-backend", cfg.Storage.Backend)
	cfg.Storage.Path = resolveString(c, "storage-path", cfg.Storage.Path)
	cfg.Storage.Region = resolveString(c, "storage-region", cfg.Storage.Region)
	cfg.Storage.Endpoint = resolveString(c, "storage-endpoint", cfg.Storage.Endpoint)
	cfg.Storage.S3PathStyle = resolveBool(c, "storage-s3-path-style", cfg.Storage.S3PathStyle)

	cfg.Archive.Backend = resolveString(c, "archive-backend", cfg.Archive.Backend)
	cfg.Archive.Path = resolveString(c, "archive-path", cfg.Archive.Path)
	cfg.Archive.Dataset = resolveString(c, "archive-dataset", cfg.Archive.Dataset)

	cfg.Adapter.Type = resolveString(c, "adapter-type", cfg.Adapter.Type)
	cfg.Adapter.URL = resolveString(c, "adapter-url", cfg.Adapter.URL)
	cfg.Adapter.Timeout.Duration = resolveDuration(c, "adapter-timeout", cfg.Adapter.Timeout.Duration)
	if c.IsSet("adapter-retries") || cfg.Adapter.Retries == nil {
		n := c.Int("adapter-retries")
		cfg.Adapter.Retries = &n
	}

	cfg.Log.Level = resolveString(c, "log-level", cfg.Log.Level)
}

// app is the wired server and the resources it owns.
type app struct {
	server         *server.Server
	codec          stream.Codec
	collector      *metrics.Collector
	storageBackend string
	closers        []func() error
}

// Close releases resources in reverse order of creation.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// buildApp wires every component named in cfg around client.
func buildApp(ctx context.Context, cfg *vikiniconfig.Config, client llm.Client, logger *log.Logger) (*app, error) {
	a := &app{storageBackend: strings.ToLower(cfg.Storage.Backend)}
	if a.storageBackend == "" {
		a.storageBackend = "memory"
	}
	model := cfg.Gemini.Model
	if model == "" {
		model = llm.DefaultModel
	}

	framing := strings.ToLower(cfg.Stream.Framing)
	if framing == "" {
		framing = stream.CodecSentinel
	}
	a.collector = metrics.NewCollector(framing, a.storageBackend, model)
	codec, err := stream.CodecByName(framing, logger.With("component", "stream"), a.collector)
	if err != nil {
		return nil, err
	}
	a.codec = codec

	conversations, err := store.Open(ctx, cfg.Database.Backend, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation store: %w", err)
	}
	a.closers = append(a.closers, conversations.Close)

	objects, err := openObjects(ctx, cfg.Storage)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to open attachment storage: %w", err)
	}

	archive, err := openArchive(ctx, cfg.Archive)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	instrumentedArchive := lode.NewInstrumentedArchive(archive, a.collector)
	a.closers = append(a.closers, instrumentedArchive.Close)

	notifier, err := openAdapter(cfg.Adapter)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to create adapter: %w", err)
	}
	instrumentedAdapter := adapter.NewInstrumented(notifier, a.collector)
	a.closers = append(a.closers, instrumentedAdapter.Close)

	chatSvc := chat.NewService(conversations, client,
		chat.WithConfig(chat.Config{
			Model:        model,
			SystemPrompt: cfg.Chat.SystemPrompt,
			HistoryLimit: cfg.Chat.HistoryLimit,
			TitleTimeout: cfg.Chat.TitleTimeout.Duration,
		}),
		chat.WithArchive(instrumentedArchive),
		chat.WithAdapter(instrumentedAdapter),
		chat.WithLogger(logger.With("component", "chat")),
		chat.WithCollector(a.collector),
	)
	analyzer := attachment.NewAnalyzer(conversations, objects, client,
		attachment.WithConfig(attachment.Config{Model: model, Zip: cfg.Zip}),
		attachment.WithArchive(instrumentedArchive),
		attachment.WithAdapter(instrumentedAdapter),
		attachment.WithLogger(logger.With("component", "attachment")),
		attachment.WithCollector(a.collector),
	)

	a.server = server.New(chatSvc, analyzer,
		server.WithCodec(codec),
		server.WithAuthenticator(server.HeaderAuthenticator{
			Header: cfg.Server.UserHeader,
			Token:  cfg.Server.AuthToken,
		}),
		server.WithLogger(logger.With("component", "server")),
		server.WithCollector(a.collector),
		server.WithConfig(server.Config{
			Addr:         cfg.Server.Addr,
			MaxBodyBytes: cfg.Server.MaxBodyBytes,
			ReadTimeout:  cfg.Server.ReadTimeout.Duration,
			WriteTimeout: cfg.Server.WriteTimeout.Duration,
		}),
	)
	return a, nil
}

// openObjects creates the attachment object store.
func openObjects(ctx context.Context, cfg vikiniconfig.StorageConfig) (storage.ObjectStore, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		return storage.NewMemoryStore(), nil
	case "fs":
		return storage.NewFSStore(cfg.Path, cfg.MaxObjectBytes)
	case "s3":
		return storage.NewS3Store(ctx, s3Config(cfg.Path, cfg.Region, cfg.Endpoint, cfg.S3PathStyle, cfg.MaxObjectBytes))
	default:
		return nil, fmt.Errorf("unknown storage backend: %s (must be memory, fs or s3)", cfg.Backend)
	}
}

// openArchive creates the message archive. An empty backend disables it.
func openArchive(ctx context.Context, cfg vikiniconfig.ArchiveConfig) (lode.Archive, error) {
	lcfg := lode.Config{Dataset: cfg.Dataset}
	switch strings.ToLower(cfg.Backend) {
	case "":
		return lode.NopArchive{}, nil
	case "memory":
		return lode.NewLodeArchiveWithFactory(lcfg, lodelibrary.NewMemoryFactory())
	case "fs":
		return lode.NewLodeArchive(lcfg, cfg.Path)
	case "s3":
		return lode.NewLodeS3Archive(ctx, lcfg, s3Config(cfg.Path, cfg.Region, cfg.Endpoint, cfg.S3PathStyle, 0))
	default:
		return nil, fmt.Errorf("unknown archive backend: %s (must be memory, fs or s3)", cfg.Backend)
	}
}

// openAdapter creates the completion notifier. An empty type disables it.
func openAdapter(cfg vikiniconfig.AdapterConfig) (adapter.Adapter, error) {
	retries := 0
	if cfg.Retries != nil {
		retries = *cfg.Retries
	}
	switch strings.ToLower(cfg.Type) {
	case "":
		return adapter.Nop{}, nil
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     cfg.URL,
			Headers: cfg.Headers,
			Timeout: cfg.Timeout.Duration,
			Retries: retries,
		})
	case "redis":
		return redis.New(redis.Config{
			URL:     cfg.URL,
			Channel: cfg.Channel,
			Stream:  cfg.Stream,
			Timeout: cfg.Timeout.Duration,
			Retries: retries,
		})
	default:
		return nil, fmt.Errorf("unknown adapter type: %s (must be webhook or redis)", cfg.Type)
	}
}

// s3Config builds an S3 config from a "bucket/prefix" path.
func s3Config(path, region, endpoint string, pathStyle bool, maxBytes int64) storage.S3Config {
	bucket, prefix := storage.ParseS3Path(path)
	return storage.S3Config{
		Bucket:         bucket,
		Prefix:         prefix,
		Region:         region,
		Endpoint:       endpoint,
		UsePathStyle:   pathStyle,
		MaxObjectBytes: maxBytes,
	}
}
