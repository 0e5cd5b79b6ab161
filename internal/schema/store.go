package schema

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/leapstack-labs/sqlsense/pkg/adapter"
	"github.com/leapstack-labs/sqlsense/pkg/core"
)

// RefreshResult reports the outcome of a background refresh.
type RefreshResult struct {
	Epoch   uint64
	Applied bool
	Cache   *Cache
	Err     error
}

// Store publishes the current Cache and guards replacement with an epoch.
//
// Reads (Current, Loading) are lock-free. Writes go through one mutex so the
// epoch comparison and the swap happen as a single step.
type Store struct {
	current atomic.Pointer[Cache]
	loading atomic.Bool
	epoch   atomic.Uint64

	mu       sync.Mutex // serializes writers
	onApply  []func(*Cache)
	fetchOps FetchOptions
	logger   *slog.Logger
}

// NewStore creates a store holding an empty, not-loading cache.
func NewStore(opts FetchOptions) *Store {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	s := &Store{fetchOps: opts, logger: opts.Logger}
	s.current.Store(Empty())
	return s
}

// Current returns the visible cache. It never blocks.
func (s *Store) Current() *Cache {
	return s.current.Load()
}

// Loading reports whether a full refresh is expected but not yet applied.
func (s *Store) Loading() bool {
	return s.loading.Load()
}

// Epoch returns the live epoch.
func (s *Store) Epoch() uint64 {
	return s.epoch.Load()
}

// NextEpoch increments the epoch and returns the new value.
func (s *Store) NextEpoch() uint64 {
	return s.epoch.Add(1)
}

// OnApply registers fn to run after each successful apply, outside the
// writer lock. Register before the store is shared.
func (s *Store) OnApply(fn func(*Cache)) {
	s.onApply = append(s.onApply, fn)
}

// Reset empties the cache and marks it loading, as on a connection change.
// In-flight refreshes are superseded.
func (s *Store) Reset() {
	s.mu.Lock()
	s.epoch.Add(1)
	s.current.Store(Empty())
	s.loading.Store(true)
	s.mu.Unlock()
}

// Apply replaces the cache unconditionally and clears the loading flag.
func (s *Store) Apply(c *Cache) {
	s.mu.Lock()
	s.current.Store(c)
	s.loading.Store(false)
	s.mu.Unlock()
	s.notify(c)
}

// ApplyIfCurrent replaces the cache only if epoch is still the live epoch.
func (s *Store) ApplyIfCurrent(c *Cache, epoch uint64) bool {
	s.mu.Lock()
	if s.epoch.Load() != epoch {
		s.mu.Unlock()
		s.logger.Debug("discarding stale schema refresh",
			slog.Uint64("epoch", epoch),
			slog.Uint64("live", s.epoch.Load()))
		return false
	}
	s.current.Store(c)
	s.loading.Store(false)
	s.mu.Unlock()
	s.notify(c)
	return true
}

// Seed adds bare table entries for names not already cached. Existing
// entries, with or without detail, are left alone. The loading flag is
// not touched.
func (s *Store) Seed(tableNames []string) {
	if len(tableNames) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.current.Load()
	var b *Builder
	for _, name := range tableNames {
		if name == "" {
			continue
		}
		if _, ok := cur.Table(name); ok {
			continue
		}
		if b == nil {
			b = from(cur)
		}
		b.AddTable(core.TableInfo{Name: name})
	}
	if b != nil {
		s.current.Store(b.Build())
	}
}

// Refresh fetches the schema in the background and applies it if no newer
// refresh or reset was started meanwhile. The channel receives exactly one
// result and is then closed.
func (s *Store) Refresh(ctx context.Context, conn adapter.Connection, svc adapter.SchemaService, id uuid.UUID) <-chan RefreshResult {
	epoch := s.NextEpoch()
	out := make(chan RefreshResult, 1)

	go func() {
		defer close(out)

		c, err := Fetch(ctx, conn, svc, id, s.fetchOps)
		if err != nil {
			s.logger.Warn("schema refresh failed",
				slog.Uint64("epoch", epoch),
				slog.String("error", err.Error()))
			s.stopLoading(epoch)
			out <- RefreshResult{Epoch: epoch, Err: err}
			return
		}

		applied := s.ApplyIfCurrent(c, epoch)
		out <- RefreshResult{Epoch: epoch, Applied: applied, Cache: c}
	}()

	return out
}

// stopLoading clears the loading flag after a failed refresh, unless a newer
// refresh now owns it.
func (s *Store) stopLoading(epoch uint64) {
	s.mu.Lock()
	if s.epoch.Load() == epoch {
		s.loading.Store(false)
	}
	s.mu.Unlock()
}

func (s *Store) notify(c *Cache) {
	for _, fn := range s.onApply {
		fn(c)
	}
}
