package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	vikiniconfig "github.com/wyemhu12/vikini-sub002/cli/config"
	"github.com/wyemhu12/vikini-sub002/cli/reader"
	"github.com/wyemhu12/vikini-sub002/cli/render"
	"github.com/wyemhu12/vikini-sub002/lode"
)

// listWarningThreshold is the number of items above which we warn about using --limit.
const listWarningThreshold = 100

// ListCommand returns the list command with subcommands.
// List returns thin slices read from the message archive.
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List archived entities (messages)",
		Subcommands: []*cli.Command{
			listMessagesCommand(),
		},
	}
}

func listMessagesCommand() *cli.Command {
	return &cli.Command{
		Name:  "messages",
		Usage: "List archived chat messages",
		Flags: append(ReadOnlyFlags(),
			ConfigFlag,
			&cli.StringFlag{Name: "archive-dataset", Usage: "Lode dataset ID", Value: lode.DefaultDataset},
			&cli.StringFlag{Name: "archive-backend", Usage: "Archive backend: fs or s3"},
			&cli.StringFlag{Name: "archive-path", Usage: "Archive path (fs: directory, s3: bucket/prefix)"},
			&cli.StringFlag{Name: "archive-region", Usage: "AWS region for the s3 backend"},
			&cli.StringFlag{Name: "archive-endpoint", Usage: "Custom S3 endpoint"},
			&cli.BoolFlag{Name: "archive-s3-path-style", Usage: "Force path-style S3 addressing"},
			&cli.StringFlag{Name: "user", Usage: "Filter by user ID"},
			&cli.StringFlag{Name: "conversation", Usage: "Filter by conversation ID"},
			&cli.StringFlag{Name: "day", Usage: "Filter by day (YYYY-MM-DD, UTC)"},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of messages to return, newest kept (0 = no limit)",
				Value: 0,
			},
		),
		Action: listMessagesAction,
	}
}

func listMessagesAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	// TUI not supported for list commands
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for list commands", exitError)
	}

	if day := c.String("day"); day != "" {
		if _, err := time.Parse("2006-01-02", day); err != nil {
			return cli.Exit(fmt.Sprintf("invalid --day %q (want YYYY-MM-DD)", day), exitError)
		}
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	ac := configVal(cfg, func(cfg *vikiniconfig.Config) vikiniconfig.ArchiveConfig { return cfg.Archive })
	backend := resolveString(c, "archive-backend", ac.Backend)
	path := resolveString(c, "archive-path", ac.Path)
	if backend == "" || path == "" {
		return cli.Exit(reader.ErrNoArchive.Error(), exitConfigError)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ds, err := buildReadDataset(ctx,
		resolveString(c, "archive-dataset", ac.Dataset),
		backend, path,
		resolveString(c, "archive-region", ac.Region),
		resolveString(c, "archive-endpoint", ac.Endpoint),
		resolveBool(c, "archive-s3-path-style", ac.S3PathStyle),
	)
	if err != nil {
		return fmt.Errorf("failed to initialize archive reader: %w", err)
	}

	limit := c.Int("limit")
	results, err := reader.NewLocal(ds).History(ctx, lode.Query{
		UserID:         c.String("user"),
		ConversationID: c.String("conversation"),
		Day:            c.String("day"),
	})
	if err != nil {
		return fmt.Errorf("failed to read archive: %w", err)
	}
	if limit > 0 && len(results) > limit {
		results = results[len(results)-limit:]
	}

	// Warn if output is large and --limit was not specified (TTY only to avoid noise in pipelines)
	if len(results) > listWarningThreshold && limit == 0 && isStderrTTY() {
		fmt.Fprintf(os.Stderr, "Warning: returning %d results. Consider using --limit to reduce output.\n\n", len(results))
	}

	return r.Render(results)
}
