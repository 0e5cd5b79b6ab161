package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/sqlsense/internal/cli"
	"github.com/leapstack-labs/sqlsense/internal/cli/commands"
	"github.com/leapstack-labs/sqlsense/internal/cli/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes the root command with args and returns stdout and stderr.
func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := cli.NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "sqlsense v"+cli.Version)
}

func TestComplete_FromFixture(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	cfg := filepath.Join(dir, "sqlsense.yaml")

	out, _, err := run(t, "", "--config", cfg, "-o", "json", "complete", "SELECT * FROM ord")
	require.NoError(t, err)

	var res commands.CompleteOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	labels := make([]string, 0, len(res.Items))
	for _, it := range res.Items {
		labels = append(labels, it.Label)
	}
	assert.Contains(t, labels, "orders")
	assert.NotContains(t, labels, "customers")
	assert.False(t, res.Loading)
}

func TestComplete_ColumnsAfterAlias(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	cfg := filepath.Join(dir, "sqlsense.yaml")

	out, _, err := run(t, "", "--config", cfg, "-o", "json", "complete", "--offset", "9", "SELECT c. FROM customers c")
	require.NoError(t, err)

	var res commands.CompleteOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	labels := make([]string, 0, len(res.Items))
	for _, it := range res.Items {
		labels = append(labels, it.Label)
	}
	assert.Subset(t, labels, []string{"id", "email", "name"})
	assert.NotContains(t, labels, "total")
}

func TestValidate_Exit(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	cfg := filepath.Join(dir, "sqlsense.yaml")

	tests := []struct {
		name    string
		args    []string
		wantErr bool
		want    string
	}{
		{
			name: "clean file",
			args: []string{filepath.Join(dir, "queries", "report.sql")},
			want: "No problems found",
		},
		{
			name: "unknown table is a warning",
			args: []string{"-e", "SELECT id FROM missing"},
			want: "SQL020",
		},
		{
			name:    "fail on warning",
			args:    []string{"-e", "SELECT id FROM missing", "--fail-on", "warning"},
			wantErr: true,
			want:    "SQL020",
		},
		{
			name:    "syntax error fails",
			args:    []string{"-e", "SELECT id FROM WHERE x = 1"},
			wantErr: true,
			want:    "SQL005",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--config", cfg, "-o", "markdown", "validate"}, tt.args...)
			out, _, err := run(t, "", args...)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tt.want != "" {
				assert.Contains(t, out, tt.want)
			}
			testutil.AssertNoANSI(t, out)
		})
	}
}

func TestSchemaShow(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	cfg := filepath.Join(dir, "sqlsense.yaml")

	out, _, err := run(t, "", "--config", cfg, "-o", "markdown", "schema", "show", "orders")
	require.NoError(t, err)
	assert.Contains(t, out, "customer_id")
	assert.Contains(t, out, "total")
	testutil.AssertValidMarkdown(t, out)
}

func TestDoctor_Fixture(t *testing.T) {
	dir := testutil.SetupTestProject(t)
	cfg := filepath.Join(dir, "sqlsense.yaml")

	out, _, err := run(t, "", "--config", cfg, "-o", "json", "doctor")
	require.NoError(t, err)

	var res commands.DoctorOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.Summary.Tables)
	assert.Equal(t, 1, res.Summary.Views)
	assert.Equal(t, "postgres", res.Summary.Dialect)
	for _, c := range res.HealthChecks {
		if c.ID == "CON01" || c.ID == "SCH01" || c.ID == "CFG01" {
			assert.Equal(t, "pass", c.Status, c.ID)
		}
	}
}

func TestInvalidConfig(t *testing.T) {
	_, _, err := run(t, "", "--dialect", "cobol", "dialects")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown dialect")
}
