package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/leapstack-labs/sqlsense/internal/cli/output"
	"github.com/leapstack-labs/sqlsense/internal/diagnostic"
	"github.com/leapstack-labs/sqlsense/pkg/core"
	"github.com/spf13/cobra"
)

// ValidateOptions holds options for the validate command.
type ValidateOptions struct {
	SQL      string // inline SQL instead of files
	Severity string // minimum severity to report
	FailOn   string // lowest severity that fails the command
}

// ValidateOutput is the JSON output of the validate command.
type ValidateOutput struct {
	Summary ValidateSummary      `json:"summary"`
	Files   []ValidateFileResult `json:"files"`
}

// ValidateSummary counts diagnostics by severity.
type ValidateSummary struct {
	Files    int `json:"files"`
	Errors   int `json:"errors"`
	Warnings int `json:"warnings"`
	Info     int `json:"info"`
	Hints    int `json:"hints"`
}

// ValidateFileResult holds the diagnostics of one input.
type ValidateFileResult struct {
	Path        string                  `json:"path"`
	Diagnostics []diagnostic.Diagnostic `json:"diagnostics"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	opts := &ValidateOptions{}
	cmd := &cobra.Command{
		Use:     "validate [file...]",
		Aliases: []string{"lint"},
		Short:   "Check SQL for syntax, schema and best-practice problems",
		Long: `Validate SQL files against the grammar of the active dialect and the
database schema.

Reports syntax errors, unknown tables and columns, SELECT *, UPDATE or
DELETE without WHERE, and string-concatenated SQL. Reads stdin when no
files are given.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Validate migration files
  sqlsense validate migrations/*.sql

  # Validate inline SQL, failing on warnings too
  sqlsense validate -e "DELETE FROM orders" --fail-on warning

  # Only report errors
  sqlsense validate report.sql --severity error`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, args, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.SQL, "expr", "e", "", "Validate this SQL instead of files")
	cmd.Flags().StringVar(&opts.Severity, "severity", "hint", "Minimum severity: error, warning, info, hint")
	cmd.Flags().StringVar(&opts.FailOn, "fail-on", "error", "Fail when a diagnostic reaches: error, warning, info, hint")
	return cmd
}

func runValidate(cmd *cobra.Command, args []string, opts *ValidateOptions) error {
	minSev, ok := core.ParseSeverity(opts.Severity)
	if !ok {
		return fmt.Errorf("invalid --severity %q", opts.Severity)
	}
	failSev, ok := core.ParseSeverity(opts.FailOn)
	if !ok {
		return fmt.Errorf("invalid --fail-on %q", opts.FailOn)
	}

	inputs, err := validateInputs(cmd, args, opts)
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

	out := ValidateOutput{Summary: ValidateSummary{Files: len(inputs)}}
	failed := false
	for _, in := range inputs {
		res := ValidateFileResult{Path: in.path, Diagnostics: []diagnostic.Diagnostic{}}
		for _, d := range cc.Engine.ValidateSQL(in.text) {
			// Lower values are more severe.
			if d.Severity > minSev {
				continue
			}
			if d.Severity <= failSev {
				failed = true
			}
			out.Summary.count(d.Severity)
			res.Diagnostics = append(res.Diagnostics, d)
		}
		out.Files = append(out.Files, res)
	}

	renderValidate(cc.Renderer, out)
	if failed {
		return fmt.Errorf("validation failed")
	}
	return nil
}

func (s *ValidateSummary) count(sev core.Severity) {
	switch sev {
	case core.SeverityError:
		s.Errors++
	case core.SeverityWarning:
		s.Warnings++
	case core.SeverityInfo:
		s.Info++
	case core.SeverityHint:
		s.Hints++
	}
}

func (s ValidateSummary) total() int {
	return s.Errors + s.Warnings + s.Info + s.Hints
}

type sqlInput struct {
	path string
	text string
}

func validateInputs(cmd *cobra.Command, args []string, opts *ValidateOptions) ([]sqlInput, error) {
	if opts.SQL != "" {
		return []sqlInput{{path: "<expr>", text: opts.SQL}}, nil
	}
	if len(args) == 0 {
		args = []string{"-"}
	}
	inputs := make([]sqlInput, 0, len(args))
	for _, p := range args {
		var (
			data []byte
			err  error
		)
		if p == "-" {
			data, err = io.ReadAll(cmd.InOrStdin())
			p = "<stdin>"
		} else {
			data, err = os.ReadFile(p) //nolint:gosec // user-supplied path
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		inputs = append(inputs, sqlInput{path: p, text: string(data)})
	}
	return inputs, nil
}

func renderValidate(r *output.Renderer, out ValidateOutput) {
	if r.EffectiveMode() == output.ModeJSON {
		_ = r.JSON(out)
		return
	}
	if out.Summary.total() == 0 {
		r.Success("No problems found")
		return
	}

	md := r.EffectiveMode() == output.ModeMarkdown
	for _, f := range out.Files {
		if len(f.Diagnostics) == 0 {
			continue
		}
		if md {
			r.Printf("### %s\n\n", f.Path)
		} else {
			r.Println(r.Styles().Object.Render(f.Path))
		}
		for _, d := range f.Diagnostics {
			loc := fmt.Sprintf("%d:%d", d.Range.Start.Line, d.Range.Start.Column)
			if md {
				r.Printf("- `%s` **%s** %s (%s)\n", loc, d.Code, d.Message, d.Severity)
				continue
			}
			r.Printf("  %s  %s  %s  %s\n",
				r.Styles().Muted.Render(fmt.Sprintf("%-7s", loc)),
				severityStyle(r, d.Severity),
				r.Styles().Bold.Render(d.Code),
				d.Message,
			)
		}
		r.Println("")
	}

	s := out.Summary
	parts := []string{fmt.Sprintf("%d problems", s.total())}
	if s.Errors > 0 {
		parts = append(parts, fmt.Sprintf("%d errors", s.Errors))
	}
	if s.Warnings > 0 {
		parts = append(parts, fmt.Sprintf("%d warnings", s.Warnings))
	}
	if s.Info > 0 {
		parts = append(parts, fmt.Sprintf("%d info", s.Info))
	}
	if s.Hints > 0 {
		parts = append(parts, fmt.Sprintf("%d hints", s.Hints))
	}
	r.Printf("Summary: %s in %d files\n", strings.Join(parts, ", "), s.Files)
}

func severityStyle(r *output.Renderer, sev core.Severity) string {
	switch sev {
	case core.SeverityError:
		return r.Styles().Error.Render("error  ")
	case core.SeverityWarning:
		return r.Styles().Warning.Render("warning")
	case core.SeverityInfo:
		return r.Styles().Info.Render("info   ")
	case core.SeverityHint:
		return r.Styles().Muted.Render("hint   ")
	default:
		return r.Styles().Muted.Render("unknown")
	}
}
