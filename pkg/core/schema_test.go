package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForeignKeyString(t *testing.T) {
	fk := ForeignKey{Table: "orders", Columns: []string{"customer_id"}, RefTable: "customers", RefColumns: []string{"id"}}
	assert.Equal(t, "customer_id → customers(id)", fk.String())
}

func TestQualifiedName(t *testing.T) {
	assert.Equal(t, "users", TableInfo{Name: "users"}.QualifiedName())
	assert.Equal(t, "public.users", TableInfo{Name: "users", Schema: "public"}.QualifiedName())
}

func TestConnectionKey(t *testing.T) {
	tests := []struct {
		name string
		cfg  ConnectionConfig
		want string
	}{
		{"file", ConnectionConfig{Driver: "SQLite", Path: "app.db"}, "sqlite|app.db"},
		{"network", ConnectionConfig{Driver: "postgres", Host: "db", Database: "shop", Schema: "public"}, "postgres|db|shop|public"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.Key())
		})
	}
}

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
		ok   bool
	}{
		{"error", SeverityError, true},
		{"WARNING", SeverityWarning, true},
		{"info", SeverityInfo, true},
		{"hint", SeverityHint, true},
		{"bogus", SeverityWarning, false},
	}

	for _, tt := range tests {
		got, ok := ParseSeverity(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}
