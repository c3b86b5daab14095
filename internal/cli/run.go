package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/countbot/internal/chat"
	"github.com/roach88/countbot/internal/config"
	"github.com/roach88/countbot/internal/engine"
	"github.com/roach88/countbot/internal/httpapi"
	"github.com/roach88/countbot/internal/render"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Listen  string
	NoWatch bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the game server",
		Long: `Run the counting game.

Loads the game from the database (creating it if it doesn't exist), starts
the engine and serves the HTTP API. When started with --config, edits to
the config file are picked up without a restart: milestones, glyphs, the
mistake policy and display names are reloaded; the database and listen
address are not.

Example:
  countbot run --config ./countbot.yaml
  countbot run --db /var/lib/countbot/game.db --listen :9090 --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("listen") {
				opts.Config.Listen = opts.Listen
			}
			return runServer(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Listen, "listen", "", "HTTP listen address, empty to disable (overrides config)")
	cmd.Flags().BoolVar(&opts.NoWatch, "no-watch", false, "do not reload the config file on change")

	return cmd
}

func runServer(opts *RunOptions, cmd *cobra.Command) error {
	cfg := opts.Config

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	eng, err := resumeEngine(ctx, cfg, st)
	if err != nil {
		return err
	}
	dispatch := chat.NewDispatcher(eng, render.StaticResolver(cfg.Names))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := eng.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if cfg.Listen != "" {
		srv := httpapi.New(dispatch)
		g.Go(func() error {
			return srv.ListenAndServe(gctx, cfg.Listen)
		})
	}

	if opts.ConfigPath != "" && !opts.NoWatch {
		g.Go(func() error {
			return config.Watch(gctx, opts.ConfigPath, config.DefaultDebounce, func(next *config.Config) {
				applyReload(gctx, cfg, next, eng, dispatch)
			})
		})
	}

	fmt.Fprintln(cmd.OutOrStdout(), "countbot running. Press Ctrl-C to stop.")

	if err := g.Wait(); err != nil {
		return WrapExitError(ExitFailure, "countbot stopped", err)
	}
	slog.Info("countbot stopped gracefully")
	return nil
}

// applyReload pushes the reloadable parts of next into the running game.
func applyReload(ctx context.Context, current, next *config.Config, eng *engine.Engine, dispatch *chat.Dispatcher) {
	table := next.Table()
	if err := eng.Reconfigure(ctx, &table, next.GamePolicy()); err != nil {
		slog.Error("failed to apply reloaded config", "error", err)
		return
	}
	dispatch.SetNames(render.StaticResolver(next.Names))

	if next.Database != current.Database || next.Listen != current.Listen {
		slog.Warn("database and listen changes take effect on restart",
			"database", next.Database,
			"listen", next.Listen,
		)
	}
}
