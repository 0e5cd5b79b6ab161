// Package engine is the session facade of the SQL intelligence service.
// It owns the schema store, the active dialect and the completion result
// cache, and answers editor requests against the current schema snapshot.
//
// Reads never block on the database. Schema refreshes run in the background
// and are applied only if no newer refresh or connection change started in
// the meantime.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/sqlsense/internal/completion"
	"github.com/leapstack-labs/sqlsense/internal/diagnostic"
	"github.com/leapstack-labs/sqlsense/internal/hover"
	"github.com/leapstack-labs/sqlsense/internal/refactor"
	"github.com/leapstack-labs/sqlsense/internal/schema"
	"github.com/leapstack-labs/sqlsense/internal/state"
	"github.com/leapstack-labs/sqlsense/pkg/adapter"
	"github.com/leapstack-labs/sqlsense/pkg/dialect"
	"github.com/leapstack-labs/sqlsense/pkg/parser"

	// Register every dialect so drivers resolve to their grammar.
	_ "github.com/leapstack-labs/sqlsense/pkg/dialects/generic"
	_ "github.com/leapstack-labs/sqlsense/pkg/dialects/keyvalue"
	_ "github.com/leapstack-labs/sqlsense/pkg/dialects/mysql"
	_ "github.com/leapstack-labs/sqlsense/pkg/dialects/postgres"
	_ "github.com/leapstack-labs/sqlsense/pkg/dialects/sqlite"
	_ "github.com/leapstack-labs/sqlsense/pkg/dialects/sqlserver"
)

// ErrNotConnected is reported by Refresh when no connection is set.
var ErrNotConnected = errors.New("no database connection")

// Snapshots persists applied schemas so the next session can start warm.
// *state.SnapshotStore implements it.
type Snapshots interface {
	Save(ctx context.Context, connKey string, c *schema.Cache) (bool, error)
	TableNames(ctx context.Context, connKey string) ([]string, error)
}

// Config holds engine configuration.
type Config struct {
	Completion  completion.Options
	Diagnostics diagnostic.Options
	Fetch       schema.FetchOptions

	// Snapshots is optional. Without it there is no warm start.
	Snapshots Snapshots
	// SnapshotTimeout bounds snapshot reads and writes. Zero means 5s.
	SnapshotTimeout time.Duration

	// Dialect forces a dialect by registry name instead of deriving it from
	// the driver.
	Dialect string

	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Engine answers completion, hover, navigation and validation requests.
// All methods are safe for concurrent use.
type Engine struct {
	store     *schema.Store
	completer *completion.Provider
	checker   *diagnostic.Checker
	snapshots Snapshots
	snapTTL   time.Duration
	forced    *dialect.Dialect
	logger    *slog.Logger

	dialect atomic.Pointer[dialect.Dialect]

	listenMu  sync.Mutex
	listeners []func(*schema.Cache)

	connMu  sync.RWMutex
	conn    adapter.Connection
	service adapter.SchemaService
	connID  uuid.UUID

	// ctx is cancelled by Close and stops in-flight refreshes.
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates an engine with an empty schema and the generic dialect.
func New(cfg Config) (*Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var forced *dialect.Dialect
	if cfg.Dialect != "" {
		d, ok := dialect.Get(cfg.Dialect)
		if !ok {
			return nil, fmt.Errorf("unknown dialect %q (available: %v)", cfg.Dialect, dialect.List())
		}
		forced = d
	}

	fetch := cfg.Fetch
	if fetch.Logger == nil {
		fetch.Logger = logger.With("component", "schema")
	}
	snapTTL := cfg.SnapshotTimeout
	if snapTTL <= 0 {
		snapTTL = 5 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		store:     schema.NewStore(fetch),
		completer: completion.NewProvider(cfg.Completion, logger.With("component", "completion")),
		checker:   diagnostic.NewChecker(cfg.Diagnostics, logger.With("component", "diagnostic")),
		snapshots: cfg.Snapshots,
		snapTTL:   snapTTL,
		forced:    forced,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
	if forced != nil {
		e.dialect.Store(forced)
	} else {
		e.dialect.Store(dialect.ForKind(dialect.Generic))
	}
	e.store.OnApply(e.applied)

	logger.Debug("engine initialized", "dialect", e.Dialect().Name)
	return e, nil
}

// Close stops background refreshes. The engine still answers requests
// against the last applied schema.
func (e *Engine) Close() error {
	e.cancel()
	return nil
}

// Dialect returns the active dialect.
func (e *Engine) Dialect() *dialect.Dialect {
	return e.dialect.Load()
}

// Schema returns the current schema snapshot.
func (e *Engine) Schema() *schema.Cache {
	return e.store.Current()
}

// Loading reports whether the first fetch for the connection is pending.
func (e *Engine) Loading() bool {
	return e.store.Loading()
}

// OnSchemaChange registers fn to run after every schema apply, on the
// goroutine that applied it.
func (e *Engine) OnSchemaChange(fn func(*schema.Cache)) {
	e.listenMu.Lock()
	e.listeners = append(e.listeners, fn)
	e.listenMu.Unlock()
}

// SetConnection switches to a new connection. The cache is emptied and
// marked loading, seeded with the table names of the last snapshot for id,
// and a full refresh starts in the background. The returned channel yields
// the refresh result; callers may ignore it.
//
// A nil conn or service disconnects: the cache stays empty and not loading.
func (e *Engine) SetConnection(id uuid.UUID, conn adapter.Connection, service adapter.SchemaService, driverID string) <-chan schema.RefreshResult {
	e.connMu.Lock()
	e.conn, e.service, e.connID = conn, service, id
	e.connMu.Unlock()

	if e.forced == nil {
		e.dialect.Store(dialect.For(driverID))
	}
	e.store.Reset()
	e.completer.Invalidate()

	e.logger.Info("connection changed",
		slog.String("connection", id.String()),
		slog.String("driver", driverID),
		slog.String("dialect", e.Dialect().Name))

	if conn == nil || service == nil {
		e.store.Apply(schema.Empty())
		return closedResult(schema.RefreshResult{Err: ErrNotConnected})
	}

	e.warmStart(id)
	return e.store.Refresh(e.ctx, conn, service, id)
}

// SetSchema replaces the schema with a fixed cache, as for an offline
// fixture. driverID selects the dialect unless one is forced.
func (e *Engine) SetSchema(c *schema.Cache, driverID string) {
	if c == nil {
		c = schema.Empty()
	}
	e.connMu.Lock()
	e.conn, e.service, e.connID = nil, nil, uuid.Nil
	e.connMu.Unlock()

	if e.forced == nil {
		e.dialect.Store(dialect.For(driverID))
	}
	e.store.NextEpoch()
	e.store.Apply(c)
}

// Refresh refetches the schema of the current connection in the background.
func (e *Engine) Refresh() <-chan schema.RefreshResult {
	e.connMu.RLock()
	conn, svc, id := e.conn, e.service, e.connID
	e.connMu.RUnlock()

	if conn == nil || svc == nil {
		return closedResult(schema.RefreshResult{Err: ErrNotConnected})
	}
	return e.store.Refresh(e.ctx, conn, svc, id)
}

// NotifyExecuted tells the engine a script ran against the database. A
// refresh starts when any statement was CREATE, ALTER or DROP; otherwise
// the result is nil.
func (e *Engine) NotifyExecuted(sql string) <-chan schema.RefreshResult {
	if !ChangesSchema(sql) {
		return nil
	}
	e.logger.Debug("schema change executed, refreshing")
	return e.Refresh()
}

// ChangesSchema reports whether sql contains a statement that alters the
// catalog.
func ChangesSchema(sql string) bool {
	for _, st := range parser.Parse(sql).Statements {
		switch st.FirstKeyword() {
		case "CREATE", "ALTER", "DROP":
			return true
		}
	}
	return false
}

// GetCompletions returns ranked completions at offset. Automatic requests
// (manual false) return nil where completions are not offered.
func (e *Engine) GetCompletions(text string, offset int, manual bool) []completion.Item {
	return e.completer.Complete(completion.Request{
		Text:    text,
		Offset:  offset,
		Manual:  manual,
		Schema:  e.store.Current(),
		Loading: e.store.Loading(),
		Dialect: e.Dialect(),
	})
}

// GetHover returns documentation for the token at offset, or nil.
func (e *Engine) GetHover(text string, offset int) *hover.Hover {
	return hover.Provide(text, offset, e.store.Current(), e.Dialect())
}

// GetDefinition resolves the identifier at offset, or returns nil.
func (e *Engine) GetDefinition(text string, offset int) *refactor.Location {
	return refactor.Definition(text, offset, e.store.Current(), e.Dialect())
}

// GetReferences returns every occurrence of the identifier at offset and the
// cached tables and views that hold it.
func (e *Engine) GetReferences(text string, offset int) []refactor.Location {
	return refactor.References(text, offset, e.store.Current(), e.Dialect())
}

// Rename returns the edits renaming the identifier at offset, or nil when
// the rename is refused.
func (e *Engine) Rename(text string, offset int, newName string) []refactor.TextEdit {
	return refactor.Rename(text, offset, newName, e.Dialect())
}

// ValidateSQL returns the diagnostics for text.
func (e *Engine) ValidateSQL(text string) []diagnostic.Diagnostic {
	return e.checker.Check(text, e.store.Current(), e.Dialect())
}

// GetSignatureHelp describes the function call around offset, or nil.
func (e *Engine) GetSignatureHelp(text string, offset int) *refactor.SignatureHelp {
	return refactor.SignatureAt(text, offset, e.store.Current(), e.Dialect())
}

// applied runs after every schema apply. The snapshot is keyed by the
// connection the cache was fetched from, which may no longer be the current
// one by the time this runs.
func (e *Engine) applied(c *schema.Cache) {
	e.completer.Invalidate()
	defer e.notify(c)

	id := c.Source()
	if e.snapshots == nil || id == uuid.Nil || c.IsEmpty() {
		return
	}

	ctx, cancel := context.WithTimeout(e.ctx, e.snapTTL)
	defer cancel()
	if _, err := e.snapshots.Save(ctx, id.String(), c); err != nil {
		e.logger.Warn("failed to save schema snapshot",
			slog.String("connection", id.String()),
			slog.String("error", err.Error()))
	}
}

func (e *Engine) notify(c *schema.Cache) {
	e.listenMu.Lock()
	fns := slices.Clone(e.listeners)
	e.listenMu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}

func (e *Engine) warmStart(id uuid.UUID) {
	if e.snapshots == nil {
		return
	}
	ctx, cancel := context.WithTimeout(e.ctx, e.snapTTL)
	defer cancel()

	names, err := e.snapshots.TableNames(ctx, id.String())
	switch {
	case errors.Is(err, state.ErrSnapshotNotFound):
		return
	case err != nil:
		e.logger.Warn("failed to read schema snapshot",
			slog.String("connection", id.String()),
			slog.String("error", err.Error()))
		return
	}
	e.store.Seed(names)
	e.completer.Invalidate()
	e.logger.Debug("seeded schema from snapshot", slog.Int("tables", len(names)))
}

func closedResult(r schema.RefreshResult) <-chan schema.RefreshResult {
	out := make(chan schema.RefreshResult, 1)
	out <- r
	close(out)
	return out
}
