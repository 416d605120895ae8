package cmd

import (
	"context"
	"fmt"
	"time"

	lodelibrary "github.com/justapithecus/lode/lode"
	"github.com/urfave/cli/v2"

	"github.com/wyemhu12/vikini-sub002/cli/reader"
	"github.com/wyemhu12/vikini-sub002/cli/render"
	"github.com/wyemhu12/vikini-sub002/lode"
	"github.com/wyemhu12/vikini-sub002/storage"
)

// defaultServerURL is where stats looks for a running server.
const defaultServerURL = "http://127.0.0.1:8080"

// StatsCommand returns the stats command with subcommands.
// Stats returns aggregated counters of a running server.
func StatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show aggregated statistics",
		Subcommands: []*cli.Command{
			statsMetricsCommand(),
		},
	}
}

func statsMetricsCommand() *cli.Command {
	return &cli.Command{
		Name:  "metrics",
		Usage: "Show server metrics (streams, framing, attachments, persistence)",
		Flags: append(TUIReadOnlyFlags(),
			&cli.StringFlag{
				Name:    "url",
				Usage:   "Base URL of a running vikini server",
				Value:   defaultServerURL,
				EnvVars: []string{"VIKINI_URL"},
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Request timeout",
				Value: 10 * time.Second,
			},
		),
		Action: statsMetricsAction,
	}
}

func statsMetricsAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
	defer cancel()

	snapshot, err := reader.NewLocal(nil).Metrics(ctx, c.String("url"))
	if err != nil {
		return cli.Exit(fmt.Sprintf("failed to read metrics: %v", err), exitError)
	}

	if c.Bool("tui") {
		return r.RenderTUI("stats_metrics", snapshot)
	}
	return r.Render(snapshot)
}

// buildReadDataset creates a Lode Dataset for reading the message archive.
func buildReadDataset(ctx context.Context, dataset, backend, path, region, endpoint string, pathStyle bool) (lodelibrary.Dataset, error) {
	switch backend {
	case "fs":
		return lode.NewReadDatasetFS(dataset, path)
	case "s3":
		bucket, prefix := storage.ParseS3Path(path)
		return lode.NewReadDatasetS3(ctx, dataset, storage.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       region,
			Endpoint:     endpoint,
			UsePathStyle: pathStyle,
		})
	default:
		return nil, fmt.Errorf("unsupported archive-backend: %s (must be fs or s3)", backend)
	}
}
