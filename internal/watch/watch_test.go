package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/leapstack-labs/sqlsense/internal/engine"
	"github.com/leapstack-labs/sqlsense/internal/schema"
	"github.com/leapstack-labs/sqlsense/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder counts the SQL it is handed and refreshes only for DDL.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) NotifyExecuted(sql string) <-chan schema.RefreshResult {
	r.mu.Lock()
	r.calls = append(r.calls, sql)
	r.mu.Unlock()
	if !engine.ChangesSchema(sql) {
		return nil
	}
	out := make(chan schema.RefreshResult, 1)
	out <- schema.RefreshResult{Applied: true}
	close(out)
	return out
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func (r *recorder) saw(substr string) bool {
	for _, c := range r.snapshot() {
		if strings.Contains(c, substr) {
			return true
		}
	}
	return false
}

func start(t *testing.T, target Target, opts Options) {
	t.Helper()
	opts.Logger = testutil.NewTestLogger(t)
	w := New(target, opts)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})
}

// writeUntilSeen rewrites path until the target reports content containing
// marker. The first writes may land before the watch is registered.
func writeUntilSeen(t *testing.T, r *recorder, path, content, marker string) {
	t.Helper()
	require.Eventually(t, func() bool {
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			return false
		}
		time.Sleep(20 * time.Millisecond)
		return r.saw(marker)
	}, 5*time.Second, 50*time.Millisecond)
}

func TestNew_Defaults(t *testing.T) {
	w := New(&recorder{}, Options{})
	assert.Equal(t, DefaultDebounce, w.opts.Debounce)
	assert.Equal(t, []string{".sql"}, w.opts.Extensions)
	assert.NotNil(t, w.logger)
}

func TestWatcher_DDLFile(t *testing.T) {
	dir := t.TempDir()
	r := &recorder{}
	start(t, r, Options{Dirs: []string{dir}, Debounce: 10 * time.Millisecond})

	writeUntilSeen(t, r, filepath.Join(dir, "001_init.sql"), "CREATE TABLE users (id INTEGER);", "CREATE TABLE users")
}

func TestWatcher_IgnoresOtherExtensions(t *testing.T) {
	dir := t.TempDir()
	r := &recorder{}
	start(t, r, Options{Dirs: []string{dir}, Debounce: 10 * time.Millisecond})

	// Prove the watch is live first.
	writeUntilSeen(t, r, filepath.Join(dir, "ready.sql"), "SELECT 1;", "SELECT 1")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("CREATE TABLE nope (id INT);"), 0o600))
	time.Sleep(200 * time.Millisecond)
	assert.False(t, r.saw("nope"))
}

func TestWatcher_Debounce(t *testing.T) {
	dir := t.TempDir()
	r := &recorder{}
	start(t, r, Options{Dirs: []string{dir}, Debounce: 300 * time.Millisecond})

	// Rewriting until seen would keep resetting a long debounce, so give Run
	// time to register the directory instead.
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.sql"), []byte("CREATE TABLE a (id INT);"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.sql"), []byte("CREATE TABLE b (id INT);"), 0o600))

	require.Eventually(t, func() bool { return r.saw("CREATE TABLE b") }, 5*time.Second, 20*time.Millisecond)
	time.Sleep(400 * time.Millisecond)
	calls := r.snapshot()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0], "CREATE TABLE a")
	assert.Contains(t, calls[0], "CREATE TABLE b")
}

func TestWatcher_NewSubdirectory(t *testing.T) {
	dir := t.TempDir()
	r := &recorder{}
	start(t, r, Options{Dirs: []string{dir}, Debounce: 10 * time.Millisecond})

	writeUntilSeen(t, r, filepath.Join(dir, "ready.sql"), "SELECT 1;", "SELECT 1")

	sub := filepath.Join(dir, "migrations")
	require.NoError(t, os.Mkdir(sub, 0o750))
	writeUntilSeen(t, r, filepath.Join(sub, "002.sql"), "ALTER TABLE users ADD email TEXT;", "ALTER TABLE users")
}

func TestWatcher_MissingDirectory(t *testing.T) {
	r := &recorder{}
	start(t, r, Options{Dirs: []string{filepath.Join(t.TempDir(), "missing")}})
	assert.Empty(t, r.snapshot())
}
