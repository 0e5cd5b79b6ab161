package commands

import (
	"github.com/leapstack-labs/sqlsense/internal/cli/output"
	"github.com/leapstack-labs/sqlsense/internal/completion"
	"github.com/spf13/cobra"
)

// CompleteOptions holds options for the complete command.
type CompleteOptions struct {
	SourceOptions
	Auto  bool // behave like an automatic trigger
	Limit int
}

// CompleteOutput is the JSON output of the complete command.
type CompleteOutput struct {
	Loading bool              `json:"loading"`
	Items   []completion.Item `json:"items"`
}

// NewCompleteCommand creates the complete command.
func NewCompleteCommand() *cobra.Command {
	opts := &CompleteOptions{}
	cmd := &cobra.Command{
		Use:   "complete [sql]",
		Short: "List completions at a cursor position",
		Long: `Compute the completions an editor would offer at the cursor.

The SQL is taken from the argument, --file, or stdin. The cursor defaults
to the end of the text.`,
		Example: `  # Complete a table name
  sqlsense complete "SELECT * FROM ord"

  # Complete inside a file at line 3, column 12
  sqlsense complete -f query.sql --line 3 --col 12

  # Machine-readable
  echo "SELECT o. FROM orders o" | sqlsense complete --offset 9 -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runComplete(cmd, args, opts)
		},
	}
	opts.addFlags(cmd, true)
	cmd.Flags().BoolVar(&opts.Auto, "auto", false, "Behave like completion triggered while typing")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 0, "Show at most n items (default: completion.max_items)")
	return cmd
}

func runComplete(cmd *cobra.Command, args []string, opts *CompleteOptions) error {
	text, err := opts.read(cmd, args)
	if err != nil {
		return err
	}
	cc, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()
	if err := cc.WaitSchema(cmd.Context()); err != nil {
		cc.Renderer.Warning(err.Error())
	}

	items := cc.Engine.GetCompletions(text, opts.cursor(text), !opts.Auto)
	if opts.Limit > 0 && len(items) > opts.Limit {
		items = items[:opts.Limit]
	}
	return renderCompletions(cc.Renderer, items, cc.Engine.Loading())
}

func renderCompletions(r *output.Renderer, items []completion.Item, loading bool) error {
	if r.EffectiveMode() == output.ModeJSON {
		if items == nil {
			items = []completion.Item{}
		}
		return r.JSON(CompleteOutput{Loading: loading, Items: items})
	}
	if len(items) == 0 {
		r.Println(r.Styles().Muted.Render("No completions"))
		return nil
	}

	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{it.Label, it.Kind.String(), it.Detail})
	}
	r.Table([]string{"Label", "Kind", "Detail"}, rows)
	return nil
}
