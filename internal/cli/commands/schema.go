package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/sqlsense/internal/cli/output"
	"github.com/leapstack-labs/sqlsense/internal/schema"
	"github.com/spf13/cobra"
)

// NewSchemaCommand creates the schema command and its subcommands.
func NewSchemaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Inspect the schema the engine works against",
		Long: `Inspect the schema loaded from the configured connection or fixture,
export it as a fixture for offline use, and manage warm-start snapshots.`,
	}
	cmd.AddCommand(newSchemaShowCommand())
	cmd.AddCommand(newSchemaDumpCommand())
	cmd.AddCommand(newSchemaSnapshotsCommand())
	return cmd
}

func newSchemaShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [table]",
		Short: "List schema objects, or the columns of one table",
		Example: `  sqlsense schema show
  sqlsense schema show orders`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			if err := cc.WaitSchema(cmd.Context()); err != nil {
				return err
			}

			sc := cc.Engine.Schema()
			if len(args) == 1 {
				return showTable(cc.Renderer, sc, args[0])
			}
			return showSchema(cc.Renderer, sc)
		},
	}
}

func showSchema(r *output.Renderer, sc *schema.Cache) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(struct {
			Stats  schema.Stats    `json:"stats"`
			Schema *schema.Fixture `json:"schema"`
		}{sc.Stats(), sc.Fixture()})
	}

	rows := make([][]string, 0)
	for _, t := range sc.Tables() {
		rows = append(rows, []string{t.QualifiedName(), "table", strconv.Itoa(len(sc.Columns(t.Name))), t.Comment})
	}
	for _, v := range sc.Views() {
		rows = append(rows, []string{v.Name, "view", strconv.Itoa(len(sc.Columns(v.Name))), v.Comment})
	}
	for _, f := range sc.Functions() {
		rows = append(rows, []string{f.Name, "function", "", f.ReturnType})
	}
	for _, p := range sc.Procedures() {
		rows = append(rows, []string{p.Name, "procedure", "", ""})
	}
	if len(rows) == 0 {
		r.Println(r.Styles().Muted.Render("Schema is empty"))
		return nil
	}

	s := sc.Stats()
	r.Heading(fmt.Sprintf("%d tables, %d views, %d routines", s.Tables, s.Views, s.Routines))
	r.Table([]string{"Name", "Kind", "Columns", "Comment"}, rows)
	return nil
}

func showTable(r *output.Renderer, sc *schema.Cache, name string) error {
	if !sc.HasRelation(name) {
		return fmt.Errorf("no table or view named %q", name)
	}
	cols := sc.Columns(name)
	fks := sc.ForeignKeys(name)
	idx := sc.IndexesOn(name)

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{
			"name":         name,
			"columns":      cols,
			"foreign_keys": fks,
			"indexes":      idx,
		})
	}

	rows := make([][]string, 0, len(cols))
	for _, c := range cols {
		var flags []string
		if c.PrimaryKey {
			flags = append(flags, "PK")
		}
		if !c.Nullable {
			flags = append(flags, "NOT NULL")
		}
		rows = append(rows, []string{c.Name, c.DataType, strings.Join(flags, " "), c.DefaultValue})
	}
	r.Heading(name)
	r.Table([]string{"Column", "Type", "Constraints", "Default"}, rows)

	for _, fk := range fks {
		r.Println(r.Styles().Muted.Render("FK ") + fk.String())
	}
	for _, ix := range idx {
		r.Printf("%s %s (%s)\n", r.Styles().Muted.Render("INDEX"), ix.Name, strings.Join(ix.Columns, ", "))
	}
	return nil
}

func newSchemaDumpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dump",
		Short: "Write the schema as a YAML fixture",
		Long: `Write the current schema as a YAML fixture. Point schema.fixture at the
file to get completions without a database connection.`,
		Example: `  sqlsense schema dump > schema.yaml`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			if err := cc.WaitSchema(cmd.Context()); err != nil {
				return err
			}

			f := cc.Engine.Schema().Fixture()
			if cc.Renderer.EffectiveMode() == output.ModeJSON {
				return cc.Renderer.JSON(f)
			}
			return f.Encode(cmd.OutOrStdout())
		},
	}
}

// SnapshotOutput is one row of the snapshots listing.
type SnapshotOutput struct {
	ConnectionKey string    `json:"connection_key"`
	Tables        int       `json:"tables"`
	SavedAt       time.Time `json:"saved_at"`
	Fingerprint   string    `json:"fingerprint"`
	Current       bool      `json:"current"`
}

func newSchemaSnapshotsCommand() *cobra.Command {
	var drop bool
	cmd := &cobra.Command{
		Use:   "snapshots",
		Short: "List the stored warm-start snapshots",
		Long: `List the schemas saved for warm starts. The snapshot of the configured
connection is marked current. Use --drop to delete it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContextWithoutEngine(cmd)
			r := cc.Renderer
			if cc.Cfg.Schema.SnapshotPath == "" {
				return fmt.Errorf("snapshots are disabled (schema.snapshot_path is empty)")
			}
			store, err := openSnapshots(cmd.Context(), cc.Cfg.Schema.SnapshotPath, cc.Logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			current := ""
			if cc.Cfg.Connected() {
				current = ConnectionID(cc.Cfg.Connection).String()
			}
			if drop {
				if current == "" {
					return fmt.Errorf("no connection configured")
				}
				if err := store.Delete(cmd.Context(), current); err != nil {
					return err
				}
				r.Success("Snapshot deleted")
				return nil
			}

			snaps, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			out := make([]SnapshotOutput, 0, len(snaps))
			for _, s := range snaps {
				out = append(out, SnapshotOutput{
					ConnectionKey: s.ConnectionKey,
					Tables:        s.TableCount,
					SavedAt:       s.SavedAt(),
					Fingerprint:   s.Fingerprint,
					Current:       s.ConnectionKey == current,
				})
			}
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(out)
			}
			if len(out) == 0 {
				r.Println(r.Styles().Muted.Render("No snapshots"))
				return nil
			}
			rows := make([][]string, 0, len(out))
			for _, s := range out {
				mark := ""
				if s.Current {
					mark = "*"
				}
				rows = append(rows, []string{mark, s.ConnectionKey, strconv.Itoa(s.Tables), s.SavedAt.Format(time.RFC3339)})
			}
			r.Table([]string{"", "Connection", "Tables", "Saved"}, rows)
			return nil
		},
	}
	cmd.Flags().BoolVar(&drop, "drop", false, "Delete the snapshot of the configured connection")
	return cmd
}
