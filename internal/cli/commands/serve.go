package commands

import (
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/sqlsense/internal/httpapi"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewServeCommand creates the serve command.
func NewServeCommand(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve completion and validation over HTTP",
		Long: `Start an HTTP server exposing completion, hover, navigation, rename and
validation as JSON endpoints under /api, for editors and tools without an
LSP client.

GET /api/events streams schema changes as server-sent events.`,
		Example: `  sqlsense serve
  sqlsense serve --addr 127.0.0.1:9000 --watch migrations`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := httpapi.NewServer(httpapi.Config{
				Engine:  cc.Engine,
				Addr:    cc.Cfg.HTTP.Addr,
				Version: version,
				Logger:  cc.Logger.With("component", "http"),
			})

			g, ctx := errgroup.WithContext(ctx)
			startWatcher(ctx, g, cc)
			g.Go(func() error { return srv.Serve(ctx) })

			cc.Renderer.Success("Listening on http://" + cc.Cfg.HTTP.Addr)
			return g.Wait()
		},
	}
	cmd.Flags().String("addr", "", "Listen address (default: http.addr)")
	cmd.Flags().StringSlice("watch", nil, "Directories whose .sql files trigger a schema refresh")
	return cmd
}
