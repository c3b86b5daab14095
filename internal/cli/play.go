package cli

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/countbot/internal/chat"
	"github.com/roach88/countbot/internal/engine"
	"github.com/roach88/countbot/internal/game"
	"github.com/roach88/countbot/internal/render"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	Ephemeral bool
	Channel   string
}

// PlayEvent is one played line in JSON output.
type PlayEvent struct {
	Line        int         `json:"line"`
	Participant string      `json:"participant"`
	Text        string      `json:"text"`
	Reply       *chat.Reply `json:"reply,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play [file]",
		Short: "Play chat messages from a file or stdin",
		Long: `Play chat messages against the game, one per line.

Each line has the form "participant: text". Blank lines and lines
starting with # are skipped. Messages are handled exactly as in a chat
channel: expressions are counted and !commands are answered.

Example:
  printf 'U01ALICE: 1\nU02BOB: 1+1\n' | countbot play --ephemeral
  countbot play session.txt --db ./game.db`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "failed to open input", err)
				}
				defer f.Close()
				in = f
			}
			return runPlay(opts, cmd, in)
		},
	}

	cmd.Flags().BoolVar(&opts.Ephemeral, "ephemeral", false, "play against an in-memory game that is discarded on exit")
	cmd.Flags().StringVar(&opts.Channel, "channel", "cli", "channel reference recorded with each transition")

	return cmd
}

type playLine struct {
	number      int
	participant string
	text        string
}

// readPlayLines parses "participant: text" lines from r.
func readPlayLines(r io.Reader) ([]playLine, error) {
	var lines []playLine
	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		n++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}
		participant, text, ok := strings.Cut(raw, ":")
		participant = strings.TrimSpace(participant)
		text = strings.TrimSpace(text)
		if !ok || participant == "" || text == "" {
			return nil, fmt.Errorf("line %d: expected \"participant: text\", got %q", n, raw)
		}
		lines = append(lines, playLine{number: n, participant: participant, text: text})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func runPlay(opts *PlayOptions, cmd *cobra.Command, in io.Reader) error {
	out := opts.formatter(cmd)
	ctx := cmd.Context()

	lines, err := readPlayLines(in)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid input", err)
	}

	cfg := *opts.Config
	if opts.Ephemeral {
		cfg.Database = ":memory:"
	}

	st, err := openStore(&cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	eng, err := resumeEngine(ctx, &cfg, st)
	if err != nil {
		return err
	}
	stop := runEngine(ctx, eng)
	defer stop()

	dispatch := chat.NewDispatcher(eng, render.StaticResolver(cfg.Names))
	table := cfg.Table()
	events := make([]PlayEvent, 0, len(lines))
	var text strings.Builder

	for _, l := range lines {
		reply, err := dispatch.Handle(ctx, engine.Submission{
			ParticipantID: l.participant,
			Text:          l.text,
			ChannelRef:    opts.Channel,
		})
		ev := PlayEvent{Line: l.number, Participant: l.participant, Text: l.text, Reply: reply}
		if err != nil {
			if engine.IsStopped(err) || ctx.Err() != nil {
				return WrapExitError(ExitFailure, "game stopped", err)
			}
			ev.Error = chat.ErrorMessage(err)
		}
		events = append(events, ev)
		writePlayEvent(&text, table.Glyph, ev)
	}

	return out.Success(events, text.String())
}

// writePlayEvent renders ev the way a channel would show it: the line as
// sent, the reaction added to it and any reply.
func writePlayEvent(b *strings.Builder, glyph func(tag game.ReactionTag) string, ev PlayEvent) {
	fmt.Fprintf(b, "%s: %s", ev.Participant, ev.Text)
	if ev.Reply != nil && ev.Reply.Reaction != "" {
		fmt.Fprintf(b, "  %s", glyph(ev.Reply.Reaction))
	}
	b.WriteString("\n")
	switch {
	case ev.Error != "":
		fmt.Fprintf(b, "  error: %s\n", ev.Error)
	case ev.Reply != nil && ev.Reply.Text != "":
		for _, line := range strings.Split(strings.TrimRight(ev.Reply.Text, "\n"), "\n") {
			fmt.Fprintf(b, "  > %s\n", line)
		}
	}
}
