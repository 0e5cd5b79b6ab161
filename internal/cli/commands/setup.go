package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/sqlsense/internal/cli/config"
	"github.com/leapstack-labs/sqlsense/internal/cli/output"
	intconfig "github.com/leapstack-labs/sqlsense/internal/config"
	"github.com/leapstack-labs/sqlsense/internal/engine"
	"github.com/leapstack-labs/sqlsense/internal/schema"
	"github.com/leapstack-labs/sqlsense/internal/state"
	"github.com/leapstack-labs/sqlsense/pkg/adapter"
	"github.com/spf13/cobra"
)

// defaultSchemaWait bounds how long one-shot commands wait for the first
// schema fetch.
const defaultSchemaWait = 30 * time.Second

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg       *intconfig.Config
	Logger    *slog.Logger
	Engine    *engine.Engine
	Renderer  *output.Renderer
	Snapshots *state.SnapshotStore

	// ConnID identifies the configured connection; uuid.Nil when offline.
	ConnID uuid.UUID

	adapter adapter.Adapter
	refresh <-chan schema.RefreshResult
}

// ConnectionID derives a stable identifier from the connection settings,
// so snapshots of the same database are found again in the next session.
func ConnectionID(c intconfig.ConnectionConfig) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(c.Key()))
}

// NewCommandContext creates a CommandContext with an engine whose schema
// comes from the configured connection or, offline, from the schema
// fixture. Returns the context and a cleanup function that must be called
// (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cc := NewCommandContextWithoutEngine(cmd)
	cfg, logger := cc.Cfg, cc.Logger
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if cfg.Connected() && cfg.Schema.SnapshotPath != "" {
		store, err := openSnapshots(ctx, cfg.Schema.SnapshotPath, logger)
		if err != nil {
			// Snapshots only speed up startup.
			logger.Warn("schema snapshots disabled", "path", cfg.Schema.SnapshotPath, "error", err)
		} else {
			cc.Snapshots = store
		}
	}

	engCfg := engine.Config{
		Completion:  cfg.Completion,
		Diagnostics: cfg.Diagnostics,
		Fetch: schema.FetchOptions{
			Concurrency:  cfg.Schema.FetchConcurrency,
			TableTimeout: cfg.Schema.FetchTimeout,
		},
		Dialect: cfg.Dialect,
		Logger:  logger,
	}
	if cc.Snapshots != nil {
		engCfg.Snapshots = cc.Snapshots
	}
	eng, err := engine.New(engCfg)
	if err != nil {
		cc.close()
		return nil, nil, err
	}
	cc.Engine = eng

	switch {
	case cfg.Connected():
		if err := cc.connect(ctx); err != nil {
			cc.close()
			return nil, nil, err
		}
	case cfg.Schema.Fixture != "":
		f, err := schema.LoadFixture(cfg.Schema.Fixture)
		if err != nil {
			cc.close()
			return nil, nil, err
		}
		eng.SetSchema(f.Cache(), cfg.Connection.Driver)
		logger.Debug("loaded schema fixture", "path", cfg.Schema.Fixture)
	default:
		logger.Debug("no connection or fixture configured, completing keywords only")
	}

	return cc, cc.close, nil
}

// NewCommandContextWithoutEngine creates a CommandContext without an engine.
// Useful for commands that don't need a schema.
func NewCommandContextWithoutEngine(cmd *cobra.Command) *CommandContext {
	cfg := config.GetCurrentConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.Output)),
	}
}

func (cc *CommandContext) connect(ctx context.Context) error {
	conn := cc.Cfg.Connection.ConnectionConfig
	a, err := adapter.NewAdapter(conn, cc.Logger)
	if err != nil {
		return err
	}
	if err := a.Connect(ctx, conn); err != nil {
		return fmt.Errorf("failed to connect to %s: %w", conn.Driver, err)
	}
	cc.adapter = a
	cc.ConnID = ConnectionID(cc.Cfg.Connection)
	cc.refresh = cc.Engine.SetConnection(cc.ConnID, a, a.SchemaService(), a.DriverID())
	return nil
}

// WaitSchema blocks until the first schema fetch of the connection
// finishes. Offline contexts return immediately.
func (cc *CommandContext) WaitSchema(ctx context.Context) error {
	if cc.refresh == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultSchemaWait)
	defer cancel()
	select {
	case res := <-cc.refresh:
		cc.refresh = nil
		if res.Err != nil {
			return fmt.Errorf("failed to load schema: %w", res.Err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timed out loading schema: %w", ctx.Err())
	}
}

func (cc *CommandContext) close() {
	if cc.Engine != nil {
		_ = cc.Engine.Close()
	}
	if cc.adapter != nil {
		if err := cc.adapter.Close(); err != nil {
			cc.Logger.Warn("failed to close connection", "error", err)
		}
	}
	if cc.Snapshots != nil {
		_ = cc.Snapshots.Close()
	}
}

func openSnapshots(ctx context.Context, path string, logger *slog.Logger) (*state.SnapshotStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
		}
	}
	return state.Open(ctx, path, logger.With("component", "state"))
}
