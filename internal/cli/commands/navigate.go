package commands

import (
	"fmt"
	"slices"

	"github.com/leapstack-labs/sqlsense/internal/cli/output"
	"github.com/leapstack-labs/sqlsense/internal/refactor"
	"github.com/spf13/cobra"
)

// NewDefinitionCommand creates the definition command.
func NewDefinitionCommand() *cobra.Command {
	opts := &SourceOptions{}
	cmd := &cobra.Command{
		Use:     "definition [sql]",
		Aliases: []string{"def"},
		Short:   "Find where the identifier under the cursor is defined",
		Long: `Resolve the identifier under the cursor. CTE names and aliases resolve
to their definition in the text; tables, views and columns resolve to the
database object.`,
		Example: `  sqlsense definition "WITH t AS (SELECT 1) SELECT * FROM t" --offset 35`,
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

			loc := cc.Engine.GetDefinition(text, opts.cursor(text))
			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(loc)
			}
			if loc == nil {
				r.Println(r.Styles().Muted.Render("No definition found"))
				return nil
			}
			r.Println(formatLocation(r, text, *loc))
			return nil
		},
	}
	opts.addFlags(cmd, true)
	return cmd
}

// NewReferencesCommand creates the references command.
func NewReferencesCommand() *cobra.Command {
	opts := &SourceOptions{}
	cmd := &cobra.Command{
		Use:     "references [sql]",
		Aliases: []string{"refs"},
		Short:   "List every occurrence of the identifier under the cursor",
		Example: `  sqlsense references -f report.sql --line 12 --col 8`,
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

			locs := cc.Engine.GetReferences(text, opts.cursor(text))
			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				if locs == nil {
					locs = []refactor.Location{}
				}
				return r.JSON(locs)
			}
			if len(locs) == 0 {
				r.Println(r.Styles().Muted.Render("No references found"))
				return nil
			}
			for _, loc := range locs {
				r.Println(formatLocation(r, text, loc))
			}
			return nil
		},
	}
	opts.addFlags(cmd, true)
	return cmd
}

// RenameOptions holds options for the rename command.
type RenameOptions struct {
	SourceOptions
	Diff bool
}

// NewRenameCommand creates the rename command.
func NewRenameCommand() *cobra.Command {
	opts := &RenameOptions{}
	cmd := &cobra.Command{
		Use:   "rename <new-name> [sql]",
		Short: "Rename the identifier under the cursor",
		Long: `Rename every occurrence of the identifier under the cursor and print
the rewritten SQL. Use --diff to list the edits instead.`,
		Example: `  sqlsense rename cust "SELECT c.id FROM customers c" --offset 7
  sqlsense rename total_amount -f report.sql --line 4 --col 10 --diff`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			newName := args[0]
			text, err := opts.read(cmd, args[1:])
			if err != nil {
				return err
			}
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			if !refactor.ValidIdentifier(newName, cc.Engine.Dialect()) {
				return fmt.Errorf("%q is not a valid identifier", newName)
			}
			edits := cc.Engine.Rename(text, opts.cursor(text), newName)
			if edits == nil {
				return fmt.Errorf("nothing to rename at the cursor")
			}

			r := cc.Renderer
			switch {
			case r.EffectiveMode() == output.ModeJSON:
				return r.JSON(edits)
			case opts.Diff:
				for _, e := range edits {
					r.Printf("%d:%d  %s → %s\n", e.Span.Start.Line, e.Span.Start.Column,
						r.Styles().Muted.Render(text[e.Span.Start.Offset:e.Span.End.Offset]),
						r.Styles().Bold.Render(e.NewText))
				}
			default:
				_, _ = fmt.Fprint(r.Out(), ApplyEdits(text, edits))
			}
			return nil
		},
	}
	opts.addFlags(cmd, true)
	cmd.Flags().BoolVar(&opts.Diff, "diff", false, "List edits instead of printing the rewritten SQL")
	return cmd
}

// ApplyEdits applies non-overlapping edits to text.
func ApplyEdits(text string, edits []refactor.TextEdit) string {
	sorted := slices.Clone(edits)
	slices.SortFunc(sorted, func(a, b refactor.TextEdit) int {
		return b.Span.Start.Offset - a.Span.Start.Offset
	})
	for _, e := range sorted {
		text = text[:e.Span.Start.Offset] + e.NewText + text[e.Span.End.Offset:]
	}
	return text
}

// NewSignatureCommand creates the signature command.
func NewSignatureCommand() *cobra.Command {
	opts := &SourceOptions{}
	cmd := &cobra.Command{
		Use:     "signature [sql]",
		Short:   "Show the signature of the function call around the cursor",
		Example: `  sqlsense signature "SELECT SUBSTR(name, "`,
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

			help := cc.Engine.GetSignatureHelp(text, opts.cursor(text))
			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(help)
			}
			if help == nil || len(help.Signatures) == 0 {
				r.Println(r.Styles().Muted.Render("Not inside a function call"))
				return nil
			}
			for i, sig := range help.Signatures {
				label := sig.Label
				if i == help.ActiveSignature {
					label = r.Styles().Bold.Render(label)
				}
				r.Println(label)
				if sig.Documentation != "" {
					r.Println("  " + r.Styles().Muted.Render(sig.Documentation))
				}
				if i == help.ActiveSignature && help.ActiveParameter < len(sig.Parameters) {
					r.Printf("  parameter %d: %s\n", help.ActiveParameter+1,
						r.Styles().Info.Render(sig.Parameters[help.ActiveParameter].Label))
				}
			}
			return nil
		},
	}
	opts.addFlags(cmd, true)
	return cmd
}

func formatLocation(r *output.Renderer, text string, loc refactor.Location) string {
	if loc.Object != nil {
		name := loc.Object.Name
		if loc.Object.Table != "" {
			name = loc.Object.Table + "." + name
		}
		return fmt.Sprintf("%s %s", r.Styles().Kind.Render(string(loc.Object.Kind)), r.Styles().Object.Render(name))
	}
	if loc.Span == nil {
		return ""
	}
	s := *loc.Span
	return fmt.Sprintf("%d:%d  %s", s.Start.Line, s.Start.Column,
		r.Styles().Bold.Render(text[s.Start.Offset:s.End.Offset]))
}
