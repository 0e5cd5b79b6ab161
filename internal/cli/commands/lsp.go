package commands

import (
	"context"
	"os"

	"github.com/leapstack-labs/sqlsense/internal/lsp"
	"github.com/leapstack-labs/sqlsense/internal/watch"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewLSPCommand creates the lsp command.
func NewLSPCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server",
		Long: `Start the LSP server for IDE integration.

The server communicates over stdin/stdout using JSON-RPC. Logs go to
stderr. The schema comes from the connection or fixture in sqlsense.yaml
and is fetched in the background; completions work before it arrives.`,
		Example: `  # Start LSP server (usually called by an IDE)
  sqlsense lsp

  # Against a specific database
  sqlsense lsp --dsn postgres://localhost/shop`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLSP(cmd, version)
		},
	}

	return cmd
}

func runLSP(cmd *cobra.Command, version string) error {
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	server := lsp.NewServer(cc.Engine, os.Stdin, os.Stdout, cc.Logger.With("component", "lsp"))
	server.SetVersion(version)

	ctx, cancel := context.WithCancel(cmd.Context())
	g, ctx := errgroup.WithContext(ctx)
	startWatcher(ctx, g, cc)

	err = server.Run()
	cancel()
	if werr := g.Wait(); err == nil {
		err = werr
	}
	return err
}

// startWatcher runs a DDL watcher on the configured directories, if any.
func startWatcher(ctx context.Context, g *errgroup.Group, cc *CommandContext) {
	dirs := cc.Cfg.Schema.Watch.Dirs
	if len(dirs) == 0 {
		return
	}
	w := watch.New(cc.Engine, watch.Options{
		Dirs:     dirs,
		Debounce: cc.Cfg.Schema.Watch.Debounce,
		Logger:   cc.Logger.With("component", "watch"),
	})
	g.Go(func() error { return w.Run(ctx) })
	cc.Logger.Info("watching for DDL changes", "dirs", dirs)
}
