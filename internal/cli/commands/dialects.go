package commands

import (
	"strconv"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/sqlsense/internal/cli/output"
	"github.com/leapstack-labs/sqlsense/pkg/dialect"
	"github.com/spf13/cobra"
)

// DialectOutput describes one registered dialect.
type DialectOutput struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Kind        string `json:"kind"`
	Keywords    int    `json:"keywords"`
	Functions   int    `json:"functions"`
	Grammar     bool   `json:"sql_grammar"`
	Active      bool   `json:"active"`
}

// NewDialectsCommand creates the dialects command.
func NewDialectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List the supported SQL dialects",
		Long: `List the registered dialects. The dialect is normally derived from
connection.driver; set dialect in sqlsense.yaml to force one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContextWithoutEngine(cmd)
			active := activeDialect(cc.Cfg.Dialect, cc.Cfg.Connection.Driver)
			renderDialects(cc.Renderer, listDialects(active))
			return nil
		},
	}
}

func activeDialect(forced, driver string) string {
	if d, ok := dialect.Get(forced); ok {
		return d.Name
	}
	return dialect.For(driver).Name
}

func listDialects(active string) []DialectOutput {
	title := cases.Title(language.English)
	var out []DialectOutput
	for _, name := range dialect.List() {
		d, ok := dialect.Get(name)
		if !ok {
			continue
		}
		out = append(out, DialectOutput{
			Name:        d.Name,
			DisplayName: d.DisplayName,
			Kind:        title.String(d.Kind.String()),
			Keywords:    len(d.Keywords()),
			Functions:   len(d.Functions()),
			Grammar:     d.HasSQLGrammar(),
			Active:      d.Name == active,
		})
	}
	return out
}

func renderDialects(r *output.Renderer, list []DialectOutput) {
	if r.EffectiveMode() == output.ModeJSON {
		_ = r.JSON(list)
		return
	}
	rows := make([][]string, 0, len(list))
	for _, d := range list {
		name := d.Name
		if d.Active {
			name = r.Styles().Bold.Render(name + " *")
		}
		grammar := "yes"
		if !d.Grammar {
			grammar = "no"
		}
		rows = append(rows, []string{name, d.DisplayName, d.Kind, strconv.Itoa(d.Keywords), strconv.Itoa(d.Functions), grammar})
	}
	r.Table([]string{"Name", "Display Name", "Kind", "Keywords", "Functions", "SQL"}, rows)
}
