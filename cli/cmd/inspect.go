package cmd

import (
	"context"

	"github.com/urfave/cli/v2"

	vikiniconfig "github.com/wyemhu12/vikini-sub002/cli/config"
	"github.com/wyemhu12/vikini-sub002/cli/reader"
	"github.com/wyemhu12/vikini-sub002/cli/render"
	"github.com/wyemhu12/vikini-sub002/stream"
	"github.com/wyemhu12/vikini-sub002/zipsum"
)

// InspectCommand returns the inspect command with subcommands.
// Inspect gives a deep view of a single local file.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:  "inspect",
		Usage: "Inspect a local file (zip archive, recorded response stream)",
		Subcommands: []*cli.Command{
			inspectZipCommand(),
			inspectReplayCommand(),
		},
	}
}

func inspectZipCommand() *cli.Command {
	return &cli.Command{
		Name:      "zip",
		Usage:     "Summarize a ZIP archive the way attachment analysis does",
		ArgsUsage: "<file>",
		Flags: append(TUIReadOnlyFlags(),
			ConfigFlag,
			&cli.IntFlag{Name: "max-entries", Usage: "Central directory entries to read"},
			&cli.IntFlag{Name: "max-files", Usage: "Text files to extract"},
			&cli.IntFlag{Name: "max-chars", Usage: "Total extracted text budget in bytes"},
			&cli.IntFlag{Name: "max-per-file", Usage: "Per-file extracted text budget in bytes"},
			&cli.Int64Flag{Name: "max-total-uncompressed", Usage: "Declared uncompressed size cap in bytes"},
		),
		Action: inspectZipAction,
	}
}

func inspectZipAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("file required", exitError)
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	zc := configVal(cfg, func(cfg *vikiniconfig.Config) zipsum.Options { return cfg.Zip })
	opts := zipsum.Options{
		MaxEntries:           resolveInt(c, "max-entries", zc.MaxEntries),
		MaxFilesToExtract:    resolveInt(c, "max-files", zc.MaxFilesToExtract),
		MaxChars:             resolveInt(c, "max-chars", zc.MaxChars),
		MaxPerFileBytes:      resolveInt(c, "max-per-file", zc.MaxPerFileBytes),
		MaxTotalUncompressed: resolveInt64(c, "max-total-uncompressed", zc.MaxTotalUncompressed),
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	resp, err := reader.NewLocal(nil).Summarize(c.Args().First(), opts)
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}

	if c.Bool("tui") {
		return r.RenderTUI("inspect_zip", resp)
	}
	return r.Render(resp)
}

func inspectReplayCommand() *cli.Command {
	return &cli.Command{
		Name:      "replay",
		Usage:     "Decode a recorded /api/chat response body into frames",
		ArgsUsage: "<file>",
		Flags: append(TUIReadOnlyFlags(),
			&cli.StringFlag{
				Name:  "framing",
				Usage: "Stream framing: sentinel or binary",
				Value: stream.CodecSentinel,
			},
		),
		Action: inspectReplayAction,
	}
}

func inspectReplayAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("file required", exitError)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	resp, err := reader.NewLocal(nil).Replay(context.Background(), c.Args().First(), c.String("framing"))
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}

	if c.Bool("tui") {
		return r.RenderTUI("inspect_replay", resp)
	}
	return r.Render(resp)
}
