package schema

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/sqlsense/pkg/adapter"
	"github.com/leapstack-labs/sqlsense/pkg/core"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds the per-table detail fan-out.
const DefaultConcurrency = 8

// FetchOptions tune a Fetch.
type FetchOptions struct {
	// Concurrency caps in-flight GetTableDetails calls. Zero means DefaultConcurrency.
	Concurrency int
	// TableTimeout bounds each detail call. Zero means no per-table deadline.
	TableTimeout time.Duration
	Logger       *slog.Logger
}

// Fetch lists the schema once and then fetches every table's columns and
// foreign keys concurrently. A failed detail call is logged and leaves that
// table without detail. Only a failure of the listing call is returned.
func Fetch(ctx context.Context, conn adapter.Connection, svc adapter.SchemaService, id uuid.UUID, opts FetchOptions) (*Cache, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	start := time.Now()
	ds, err := svc.LoadDatabaseSchema(ctx, conn, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load database schema: %w", err)
	}

	// Each goroutine owns one slot, so no lock is needed for the fan-in.
	details := make([]*core.TableDetails, len(ds.Tables))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, t := range ds.Tables {
		g.Go(func() error {
			tctx := gctx
			if opts.TableTimeout > 0 {
				var cancel context.CancelFunc
				tctx, cancel = context.WithTimeout(gctx, opts.TableTimeout)
				defer cancel()
			}
			d, err := svc.GetTableDetails(tctx, conn, id, t.Name, t.Schema)
			if err != nil {
				logger.Warn("failed to fetch table details",
					slog.String("table", t.Name),
					slog.String("error", err.Error()))
				return nil
			}
			details[i] = d
			return nil
		})
	}
	_ = g.Wait() // workers never return errors

	b := NewBuilder().Source(id).AddSchema(ds)
	for i, t := range ds.Tables {
		if details[i] != nil {
			b.SetDetails(t.Name, *details[i])
		}
	}
	c := b.Build()

	st := c.Stats()
	logger.Debug("schema fetched",
		slog.String("connection", id.String()),
		slog.Int("tables", st.Tables),
		slog.Int("views", st.Views),
		slog.Int("columns", st.Columns),
		slog.Duration("elapsed", time.Since(start)))
	return c, nil
}
