package commands

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/sqlsense/internal/cli/config"
	"github.com/leapstack-labs/sqlsense/internal/cli/output"
	"github.com/spf13/cobra"
)

// Health check statuses.
const (
	statusPass  = "pass"
	statusWarn  = "warn"
	statusError = "error"
)

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, connection and schema health",
		Long: `Check that sqlsense is set up correctly for this project.

The doctor command reports on:
- Configuration (config file, dialect)
- Connection (database reachable, or schema fixture loaded)
- Schema (objects loaded, snapshot store)

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Run health check
  sqlsense doctor

  # Output as JSON
  sqlsense doctor -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd)
		},
	}
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Summary      DoctorSummary `json:"summary"`
	HealthChecks []HealthCheck `json:"health_checks"`
	Score        int           `json:"score"`
}

// DoctorSummary describes the environment that was checked.
type DoctorSummary struct {
	ConfigFile string `json:"config_file,omitempty"`
	Driver     string `json:"driver,omitempty"`
	Dialect    string `json:"dialect"`
	Tables     int    `json:"tables"`
	Views      int    `json:"views"`
	Routines   int    `json:"routines"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Group  string `json:"group"`
	Status string `json:"status"` // "pass", "warn", "error"
	Detail string `json:"detail,omitempty"`
}

func runDoctor(cmd *cobra.Command) error {
	out := &DoctorOutput{}
	var checks []HealthCheck

	cfgFile := config.GetConfigFileUsed()
	out.Summary.ConfigFile = cfgFile
	if cfgFile != "" {
		checks = append(checks, HealthCheck{ID: "CFG01", Name: "Config file", Group: "config", Status: statusPass, Detail: cfgFile})
	} else {
		checks = append(checks, HealthCheck{ID: "CFG01", Name: "Config file", Group: "config", Status: statusWarn,
			Detail: "no sqlsense.yaml found, using defaults"})
	}

	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		base := NewCommandContextWithoutEngine(cmd)
		checks = append(checks, HealthCheck{ID: "CON01", Name: "Connection", Group: "connection", Status: statusError, Detail: err.Error()})
		out.Summary.Driver = base.Cfg.Connection.Driver
		out.HealthChecks = sortChecks(checks)
		out.Score = healthScore(out.HealthChecks)
		return renderDoctor(base.Renderer, out)
	}
	defer cleanup()

	cfg := cc.Cfg
	out.Summary.Driver = cfg.Connection.Driver
	out.Summary.Dialect = cc.Engine.Dialect().Name

	switch {
	case cfg.Connected():
		checks = append(checks, HealthCheck{ID: "CON01", Name: "Connection", Group: "connection", Status: statusPass,
			Detail: "connected to " + cfg.Connection.Driver})
	case cfg.Schema.Fixture != "":
		checks = append(checks, HealthCheck{ID: "CON01", Name: "Connection", Group: "connection", Status: statusPass,
			Detail: "schema fixture " + cfg.Schema.Fixture})
	default:
		checks = append(checks, HealthCheck{ID: "CON01", Name: "Connection", Group: "connection", Status: statusWarn,
			Detail: "no connection or schema fixture, only keywords complete"})
	}

	schemaCheck := HealthCheck{ID: "SCH01", Name: "Schema loaded", Group: "schema", Status: statusPass}
	if err := cc.WaitSchema(cmd.Context()); err != nil {
		schemaCheck.Status = statusError
		schemaCheck.Detail = err.Error()
	} else {
		st := cc.Engine.Schema().Stats()
		out.Summary.Tables, out.Summary.Views, out.Summary.Routines = st.Tables, st.Views, st.Routines
		schemaCheck.Detail = fmt.Sprintf("%d tables, %d views, %d columns", st.Tables, st.Views, st.Columns)
		if st.Tables+st.Views == 0 && (cfg.Connected() || cfg.Schema.Fixture != "") {
			schemaCheck.Status = statusWarn
			schemaCheck.Detail = "schema has no tables or views"
		}
	}
	checks = append(checks, schemaCheck)

	if cfg.Connected() {
		snap := HealthCheck{ID: "SCH02", Name: "Snapshot store", Group: "schema", Status: statusPass}
		switch {
		case cfg.Schema.SnapshotPath == "":
			snap.Status = statusWarn
			snap.Detail = "disabled, every session fetches the full schema"
		case cc.Snapshots == nil:
			snap.Status = statusWarn
			snap.Detail = "could not open " + cfg.Schema.SnapshotPath
		default:
			v, err := cc.Snapshots.MigrationVersion()
			if err != nil {
				snap.Status = statusError
				snap.Detail = err.Error()
			} else {
				snap.Detail = fmt.Sprintf("%s (schema version %d)", cc.Snapshots.Path(), v)
			}
		}
		checks = append(checks, snap)
	}

	grammar := HealthCheck{ID: "CFG02", Name: "Syntax grammar", Group: "config", Status: statusPass,
		Detail: cc.Engine.Dialect().DisplayName}
	if !cc.Engine.Dialect().HasSQLGrammar() {
		grammar.Status = statusWarn
		grammar.Detail = "no tree-sitter grammar for " + cc.Engine.Dialect().DisplayName
	}
	checks = append(checks, grammar)

	out.HealthChecks = sortChecks(checks)
	out.Score = healthScore(out.HealthChecks)
	return renderDoctor(cc.Renderer, out)
}

func sortChecks(checks []HealthCheck) []HealthCheck {
	sort.SliceStable(checks, func(i, j int) bool {
		if checks[i].Group != checks[j].Group {
			return checks[i].Group < checks[j].Group
		}
		return checks[i].ID < checks[j].ID
	})
	return checks
}

// healthScore computes a score from 0-100. Errors cost more than warnings.
func healthScore(checks []HealthCheck) int {
	score := 100
	for _, c := range checks {
		switch c.Status {
		case statusError:
			score -= 30
		case statusWarn:
			score -= 10
		}
	}
	return max(score, 0)
}

func renderDoctor(r *output.Renderer, out *DoctorOutput) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		renderDoctorMarkdown(r, out)
	default:
		renderDoctorText(r, out)
	}
	return nil
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) {
	styles := r.Styles()

	r.Println()
	r.Println(styles.Header1.Render("sqlsense Health Report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Println()

	r.Println(styles.Header2.Render("Summary"))
	if out.Summary.Driver != "" {
		r.Printf("   Driver: %s | Dialect: %s\n", out.Summary.Driver, out.Summary.Dialect)
	} else {
		r.Printf("   Dialect: %s\n", out.Summary.Dialect)
	}
	r.Printf("   Tables: %d | Views: %d | Routines: %d\n", out.Summary.Tables, out.Summary.Views, out.Summary.Routines)
	r.Println()

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println(styles.Bold.Render("   " + titleCaser.String(currentGroup)))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}

		icon := styles.Success.Render("✓")
		switch check.Status {
		case statusWarn:
			icon = styles.Warning.Render("!")
		case statusError:
			icon = styles.Error.Render("✗")
		}
		r.Printf("   %s %s: %s\n", icon, check.ID, check.Name)
		if check.Detail != "" {
			r.Println(styles.Muted.Render("       " + check.Detail))
		}
	}
	r.Println()

	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	scoreStyle := styles.Success
	if out.Score < 70 {
		scoreStyle = styles.Warning
	}
	if out.Score < 50 {
		scoreStyle = styles.Error
	}
	r.Printf("   Health Score: %s\n", scoreStyle.Render(fmt.Sprintf("%d/100", out.Score)))
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) {
	r.Println("# sqlsense Health Report")
	r.Println()
	r.Println("## Summary")
	r.Println()
	if out.Summary.ConfigFile != "" {
		r.Printf("- **Config**: %s\n", out.Summary.ConfigFile)
	}
	if out.Summary.Driver != "" {
		r.Printf("- **Driver**: %s\n", out.Summary.Driver)
	}
	r.Printf("- **Dialect**: %s\n", out.Summary.Dialect)
	r.Printf("- **Tables**: %d\n", out.Summary.Tables)
	r.Printf("- **Views**: %d\n", out.Summary.Views)
	r.Println()
	r.Println("## Health Checks")
	r.Println()

	rows := make([][]string, 0, len(out.HealthChecks))
	for _, c := range out.HealthChecks {
		rows = append(rows, []string{c.ID, c.Name, c.Status, c.Detail})
	}
	r.Table([]string{"ID", "Check", "Status", "Detail"}, rows)
	r.Println()
	r.Printf("**Health Score**: %d/100\n", out.Score)
}
