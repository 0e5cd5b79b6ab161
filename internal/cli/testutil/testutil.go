// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/sqlsense/internal/cli/output"
)

// ShopFixture is a small schema used by CLI tests.
const ShopFixture = `tables:
  - name: customers
    columns:
      - {name: id, type: integer, primary_key: true}
      - {name: email, type: text}
      - {name: name, type: text}
  - name: orders
    comment: one row per order
    columns:
      - {name: id, type: integer, primary_key: true}
      - {name: customer_id, type: integer}
      - {name: total, type: numeric}
    foreign_keys:
      - {columns: [customer_id], ref_table: customers, ref_columns: [id]}
views:
  - name: recent_orders
    definition: SELECT * FROM orders
`

// SetupTestProject creates a temporary project with a sqlsense.yaml that
// points at a schema fixture, and returns its directory.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()

	if err := os.MkdirAll(filepath.Join(tmpDir, "queries"), 0o750); err != nil {
		t.Fatalf("failed to create queries directory: %v", err)
	}

	if err := os.WriteFile(filepath.Join(tmpDir, "schema.yaml"), []byte(ShopFixture), 0o600); err != nil {
		t.Fatalf("failed to create schema.yaml: %v", err)
	}

	cfg := `dialect: postgres
schema:
  fixture: schema.yaml
`
	if err := os.WriteFile(filepath.Join(tmpDir, "sqlsense.yaml"), []byte(cfg), 0o600); err != nil {
		t.Fatalf("failed to create sqlsense.yaml: %v", err)
	}

	query := "SELECT c.email, o.total\nFROM orders o\nJOIN customers c ON c.id = o.customer_id;\n"
	if err := os.WriteFile(filepath.Join(tmpDir, "queries", "report.sql"), []byte(query), 0o600); err != nil {
		t.Fatalf("failed to create report.sql: %v", err)
	}

	return tmpDir
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.Mode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererText creates a new test renderer in text mode (simulated TTY).
func NewTestRendererText() *TestRenderer {
	return NewTestRenderer(output.ModeText, true)
}

// NewTestRendererMarkdown creates a new test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// NewTestRendererJSON creates a new test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// Reset clears both output buffers.
func (tr *TestRenderer) Reset() {
	tr.Out.Reset()
	tr.ErrOut.Reset()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	fenceCount := strings.Count(md, "```")
	if fenceCount%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", fenceCount)
	}

	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
