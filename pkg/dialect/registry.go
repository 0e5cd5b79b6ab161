package dialect

import (
	"sort"
	"strings"
	"sync"
)

// Dialect registry
var (
	dialectsMu sync.RWMutex
	dialects   = make(map[string]*Dialect)
	byKind     = make(map[Kind]*Dialect)
)

// driverPatterns maps driver identifier substrings to dialect kinds.
// Order matters: the first matching substring wins.
var driverPatterns = []struct {
	substr string
	kind   Kind
}{
	{"sqlite", SQLite},
	{"libsql", SQLite},
	{"turso", SQLite},
	{"mysql", MySQL},
	{"mariadb", MySQL},
	{"postgres", PostgreSQL},
	{"pgx", PostgreSQL},
	{"duckdb", PostgreSQL},
	{"sqlserver", SQLServer},
	{"mssql", SQLServer},
	{"redis", KeyValueStore},
	{"valkey", KeyValueStore},
}

// Get returns a dialect by registry name.
func Get(name string) (*Dialect, bool) {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	d, ok := dialects[strings.ToLower(name)]
	return d, ok
}

// Register registers a dialect in the global registry.
// Called by dialect implementations in their init() functions.
func Register(d *Dialect) {
	dialectsMu.Lock()
	defer dialectsMu.Unlock()
	dialects[strings.ToLower(d.Name)] = d
	byKind[d.Kind] = d
}

// List returns all registered dialect names (sorted).
func List() []string {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// KindFor maps a driver identifier to a dialect kind using a
// case-insensitive substring match. Unknown drivers map to Generic.
func KindFor(driverID string) Kind {
	id := strings.ToLower(driverID)
	for _, p := range driverPatterns {
		if strings.Contains(id, p.substr) {
			return p.kind
		}
	}
	return Generic
}

// ForKind returns the registered dialect for kind, falling back to the
// registered generic dialect and finally to the builtin one.
func ForKind(kind Kind) *Dialect {
	dialectsMu.RLock()
	defer dialectsMu.RUnlock()
	if d, ok := byKind[kind]; ok {
		return d
	}
	if d, ok := byKind[Generic]; ok {
		return d
	}
	return builtinGeneric
}

// For returns the dialect for a driver identifier. It never fails.
func For(driverID string) *Dialect {
	return ForKind(KindFor(driverID))
}
