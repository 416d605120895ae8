package cmd

import (
	"bytes"
	"encoding/hex"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/wyemhu12/vikini-sub002/chat"
	"github.com/wyemhu12/vikini-sub002/cli/render"
	"github.com/wyemhu12/vikini-sub002/stream"
	"github.com/wyemhu12/vikini-sub002/types"
)

// DebugFrameResponse shows how one text delta travels over the wire.
type DebugFrameResponse struct {
	Framing string `json:"framing"`
	Input   string `json:"input"`
	// Wire is the encoded bytes, verbatim for sentinel framing and hex for binary.
	Wire string `json:"wire"`
	// Decoded is the text a client recovers from Wire.
	Decoded string `json:"decoded"`
	// Neutralised is set when the encoder altered a literal marker.
	Neutralised bool `json:"neutralised"`
	Frames      int  `json:"frames"`
}

// DebugTitleResponse shows the titles derived from a message.
type DebugTitleResponse struct {
	Input      string `json:"input"`
	Optimistic string `json:"optimistic"`
	Cleaned    string `json:"cleaned"`
}

// DebugCommand returns the debug command with subcommands.
// Debug commands are offline diagnostic tools; none contact a server.
func DebugCommand() *cli.Command {
	return &cli.Command{
		Name:  "debug",
		Usage: "Diagnostic tools (frame, title)",
		Subcommands: []*cli.Command{
			debugFrameCommand(),
			debugTitleCommand(),
		},
	}
}

func debugFrameCommand() *cli.Command {
	return &cli.Command{
		Name:      "frame",
		Usage:     "Encode a text delta and decode it back",
		ArgsUsage: "<text>",
		Flags: append(ReadOnlyFlags(),
			&cli.StringFlag{
				Name:  "framing",
				Usage: "Stream framing: sentinel or binary",
				Value: stream.CodecSentinel,
			},
		),
		Action: debugFrameAction,
	}
}

func debugFrameAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	// TUI not supported for debug commands
	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for debug commands", exitError)
	}

	resp, err := debugFrame(c.String("framing"), strings.Join(c.Args().Slice(), " "))
	if err != nil {
		return cli.Exit(err.Error(), exitError)
	}
	return r.Render(resp)
}

func debugFrame(framing, text string) (*DebugFrameResponse, error) {
	codec, err := stream.CodecByName(framing, nil, nil)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := codec.NewWriter(&buf).WriteText(text); err != nil {
		return nil, err
	}

	p := codec.NewParser()
	frames := append(p.Push(buf.Bytes()), p.Close()...)
	if err := p.Err(); err != nil {
		return nil, err
	}

	resp := &DebugFrameResponse{
		Framing: codec.Name(),
		Input:   text,
		Decoded: stream.JoinText(frames),
		Frames:  len(frames),
	}
	if codec.Name() == stream.CodecBinary {
		resp.Wire = hex.EncodeToString(buf.Bytes())
	} else {
		resp.Wire = buf.String()
		resp.Neutralised = resp.Wire != text
	}
	return resp, nil
}

func debugTitleCommand() *cli.Command {
	return &cli.Command{
		Name:      "title",
		Usage:     "Show the optimistic and cleaned titles for a message",
		ArgsUsage: "<message>",
		Flags:     ReadOnlyFlags(),
		Action:    debugTitleAction,
	}
}

func debugTitleAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	if c.Bool("tui") {
		return cli.Exit("--tui is not supported for debug commands", exitError)
	}

	input := strings.Join(c.Args().Slice(), " ")
	cleaned := chat.CleanTitle(input)
	if cleaned == "" {
		cleaned = types.DefaultConversationTitle
	}
	return r.Render(DebugTitleResponse{
		Input:      input,
		Optimistic: chat.OptimisticTitle(input),
		Cleaned:    cleaned,
	})
}
