package commands

import (
	"github.com/leapstack-labs/sqlsense/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewHoverCommand creates the hover command.
func NewHoverCommand() *cobra.Command {
	opts := &SourceOptions{}
	cmd := &cobra.Command{
		Use:   "hover [sql]",
		Short: "Describe the identifier under the cursor",
		Long: `Show the documentation an editor displays on hover: keyword and
function help, or the definition of a table, view, column or routine.`,
		Example: `  sqlsense hover "SELECT email FROM customers" --offset 8`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			r := cc.Renderer
			h := cc.Engine.GetHover(text, opts.cursor(text))
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(h)
			}
			if h == nil {
				r.Println(r.Styles().Muted.Render("Nothing to show"))
				return nil
			}
			r.Println(h.Markdown)
			return nil
		},
	}
	opts.addFlags(cmd, true)
	return cmd
}
