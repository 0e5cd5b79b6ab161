package schema

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/sqlsense/internal/testutil"
	"github.com/leapstack-labs/sqlsense/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(FetchOptions{Logger: testutil.NewTestLogger(t)})
}

func cacheWith(tables ...string) *Cache {
	b := NewBuilder()
	for _, name := range tables {
		b.AddTable(core.TableInfo{Name: name})
	}
	return b.Build()
}

func TestStore_StartsEmpty(t *testing.T) {
	s := newTestStore(t)
	require.NotNil(t, s.Current())
	assert.True(t, s.Current().IsEmpty())
	assert.False(t, s.Loading())
	assert.Equal(t, uint64(0), s.Epoch())
}

func TestStore_ResetMarksLoading(t *testing.T) {
	s := newTestStore(t)
	s.Apply(cacheWith("orders"))

	before := s.Epoch()
	s.Reset()
	assert.True(t, s.Loading())
	assert.True(t, s.Current().IsEmpty())
	assert.Greater(t, s.Epoch(), before)
}

func TestStore_ApplyClearsLoading(t *testing.T) {
	s := newTestStore(t)
	s.Reset()
	s.Apply(cacheWith("orders"))
	assert.False(t, s.Loading())
	assert.Equal(t, []string{"orders"}, s.Current().TableNames())
}

func TestStore_EpochMonotonicity(t *testing.T) {
	s := newTestStore(t)
	e1 := s.NextEpoch()
	e2 := s.NextEpoch()
	require.Less(t, e1, e2)

	c2 := cacheWith("from_e2")
	assert.True(t, s.ApplyIfCurrent(c2, e2))

	// The late e1 result must not replace e2's cache.
	assert.False(t, s.ApplyIfCurrent(cacheWith("from_e1"), e1))
	assert.Same(t, c2, s.Current())
}

func TestStore_SeedInsertIfAbsent(t *testing.T) {
	s := newTestStore(t)

	rich := NewBuilder().
		AddTable(core.TableInfo{Name: "orders", Comment: "all orders"}).
		SetDetails("orders", core.TableDetails{Columns: []core.ColumnInfo{{Name: "id"}}}).
		Build()
	s.Apply(rich)

	s.Seed([]string{"ORDERS", "customers", ""})

	c := s.Current()
	assert.Equal(t, []string{"customers", "orders"}, c.TableNames())
	tbl, _ := c.Table("orders")
	assert.Equal(t, "all orders", tbl.Comment, "seed must not clobber a richer entry")
	assert.Len(t, c.Columns("orders"), 1)
	assert.False(t, c.HasDetails("customers"))
}

func TestStore_SeedLeavesLoadingFlag(t *testing.T) {
	s := newTestStore(t)
	s.Reset()
	s.Seed([]string{"orders"})
	assert.True(t, s.Loading())

	prev := s.Current()
	s.Seed([]string{"orders"})
	assert.Same(t, prev, s.Current(), "no-op seed keeps the same snapshot")
}

func TestStore_SeedDoesNotMutatePublishedCache(t *testing.T) {
	s := newTestStore(t)
	old := s.Current()
	s.Seed([]string{"orders"})
	assert.True(t, old.IsEmpty())
	assert.False(t, s.Current().IsEmpty())
}

func TestStore_OnApply(t *testing.T) {
	s := newTestStore(t)
	var got []*Cache
	s.OnApply(func(c *Cache) { got = append(got, c) })

	c := cacheWith("orders")
	s.Apply(c)
	e := s.NextEpoch()
	s.ApplyIfCurrent(cacheWith("stale"), e-1)

	require.Len(t, got, 1)
	assert.Same(t, c, got[0])
}

func TestStore_Refresh(t *testing.T) {
	s := newTestStore(t)
	s.Reset()

	res := <-s.Refresh(context.Background(), nil, shopService(), uuid.New())
	require.NoError(t, res.Err)
	assert.True(t, res.Applied)
	assert.Equal(t, s.Epoch(), res.Epoch)
	assert.False(t, s.Loading())
	assert.Equal(t, []string{"audit_log", "customers", "orders"}, s.Current().TableNames())
}

func TestStore_RefreshSupersededByNewer(t *testing.T) {
	s := newTestStore(t)

	slow := shopService()
	slow.gate = make(chan struct{})
	first := s.Refresh(context.Background(), nil, slow, uuid.New())

	fast := &fakeService{schema: &core.DatabaseSchema{Tables: []core.TableInfo{{Name: "fresh"}}}}
	second := <-s.Refresh(context.Background(), nil, fast, uuid.New())
	require.True(t, second.Applied)

	close(slow.gate)
	late := <-first
	require.NoError(t, late.Err)
	assert.False(t, late.Applied)
	assert.Less(t, late.Epoch, second.Epoch)
	assert.Equal(t, []string{"fresh"}, s.Current().TableNames())
}

func TestStore_RefreshListFailure(t *testing.T) {
	s := newTestStore(t)
	s.Reset()

	svc := &fakeService{listErr: errors.New("connection refused")}
	res := <-s.Refresh(context.Background(), nil, svc, uuid.New())
	require.Error(t, res.Err)
	assert.False(t, res.Applied)
	assert.False(t, s.Loading(), "failed refresh must not leave the placeholder up")
	assert.True(t, s.Current().IsEmpty())
}

func TestStore_RefreshHonoursContext(t *testing.T) {
	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	svc := shopService()
	svc.gate = make(chan struct{})
	ch := s.Refresh(ctx, nil, svc, uuid.New())
	cancel()

	select {
	case res := <-ch:
		assert.ErrorIs(t, res.Err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("refresh did not stop after cancel")
	}
}

func TestStore_ConcurrentReadersSeeWholeSnapshots(t *testing.T) {
	s := newTestStore(t)
	a := NewBuilder().AddTable(core.TableInfo{Name: "a"}).
		SetDetails("a", core.TableDetails{Columns: []core.ColumnInfo{{Name: "x"}}}).Build()
	b := NewBuilder().AddTable(core.TableInfo{Name: "b"}).
		SetDetails("b", core.TableDetails{Columns: []core.ColumnInfo{{Name: "y"}}}).Build()
	s.Apply(a)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				c := s.Current()
				names := c.TableNames()
				if assert.Len(t, names, 1) {
					assert.Len(t, c.Columns(names[0]), 1)
				}
			}
		}()
	}
	for i := range 200 {
		if i%2 == 0 {
			s.Apply(b)
		} else {
			s.Apply(a)
		}
	}
	close(stop)
	wg.Wait()
}
