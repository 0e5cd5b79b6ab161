// Package diagnostic validates a SQL buffer and reports problems with exact
// line and column ranges.
//
// Checks are rules in the style of a linter: each has a stable ID, a group
// that becomes the diagnostic source, and a default severity that Options can
// override or disable. Rules see the whole buffer, the parsed script, the
// active dialect and the schema cache. A dialect without a SQL grammar gets no
// diagnostics at all.
package diagnostic

import (
	"log/slog"
	"slices"
	"sort"

	"github.com/leapstack-labs/sqlsense/internal/schema"
	"github.com/leapstack-labs/sqlsense/pkg/core"
	"github.com/leapstack-labs/sqlsense/pkg/dialect"
	"github.com/leapstack-labs/sqlsense/pkg/parser"
	"github.com/leapstack-labs/sqlsense/pkg/token"
)

// Diagnostic is one reported problem.
type Diagnostic struct {
	Code     string        `json:"code"`
	Source   string        `json:"source"`
	Severity core.Severity `json:"severity"`
	Message  string        `json:"message"`
	Range    token.Span    `json:"range"`
}

// Finding is what a rule reports: a byte range of the buffer and a message.
type Finding struct {
	Start   int
	End     int
	Message string
}

// Input is everything a rule may inspect.
type Input struct {
	Text    string
	Script  *parser.Script
	Dialect *dialect.Dialect
	Schema  *schema.Cache
}

// Group names double as diagnostic sources.
const (
	GroupSyntax        = "syntax"
	GroupSQLite        = "sqlite"
	GroupTreeSitter    = "tree-sitter"
	GroupSchema        = "schema"
	GroupBestPractices = "best-practices"
	GroupSecurity      = "security"
)

// Rule is one check.
type Rule struct {
	ID          string
	Name        string
	Group       string
	Description string
	Severity    core.Severity
	Check       func(*Input) []Finding
}

// Options controls which rule groups run and how rules are reported.
type Options struct {
	BestPractices    bool `koanf:"best_practices"`
	SchemaValidation bool `koanf:"schema_validation"`
	TreeSitter       bool `koanf:"tree_sitter"`

	// Disabled lists rule IDs to skip.
	Disabled []string `koanf:"disabled"`
	// Severity overrides the default severity of rules by ID.
	Severity map[string]core.Severity `koanf:"severity"`
}

// DefaultOptions enables everything except the tree-sitter pass.
func DefaultOptions() Options {
	return Options{BestPractices: true, SchemaValidation: true}
}

func (o Options) enabled(r *Rule) bool {
	if slices.Contains(o.Disabled, r.ID) {
		return false
	}
	switch r.Group {
	case GroupBestPractices, GroupSecurity:
		return o.BestPractices
	case GroupSchema:
		return o.SchemaValidation
	case GroupTreeSitter:
		return o.TreeSitter
	}
	return true
}

func (o Options) severity(r *Rule) core.Severity {
	if sev, ok := o.Severity[r.ID]; ok {
		return sev
	}
	return r.Severity
}

// Rules returns every rule in ID order.
func Rules() []*Rule {
	all := []*Rule{
		UnterminatedString, UnterminatedIdentifier, UnterminatedComment,
		UnbalancedParens, MissingTable, TrailingComma,
		SQLiteSyntax, TreeSitterSyntax,
		UnknownTable, UnknownColumn,
		SelectStar, UnfilteredWrite, InjectionPattern,
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

// Checker runs the enabled rules over a buffer.
type Checker struct {
	opts   Options
	rules  []*Rule
	logger *slog.Logger
}

// NewChecker returns a Checker. A nil logger discards output.
func NewChecker(opts Options, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Checker{opts: opts, logger: logger}
	for _, r := range Rules() {
		if opts.enabled(r) {
			c.rules = append(c.rules, r)
		}
	}
	return c
}

// Check validates text. Diagnostics are ordered by position, then code.
func (c *Checker) Check(text string, sc *schema.Cache, d *dialect.Dialect) []Diagnostic {
	if d == nil {
		d = dialect.ForKind(dialect.Generic)
	}
	if !d.HasSQLGrammar() {
		return nil
	}
	if sc == nil {
		sc = schema.Empty()
	}
	in := &Input{Text: text, Script: parser.ParseWith(text, lexOptions(d)), Dialect: d, Schema: sc}

	var out []Diagnostic
	for _, r := range c.rules {
		sev := c.opts.severity(r)
		for _, f := range r.Check(in) {
			out = append(out, Diagnostic{
				Code:     r.ID,
				Source:   r.Group,
				Severity: sev,
				Message:  f.Message,
				Range:    rangeOf(text, f.Start, f.End),
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Range.Start.Offset != out[j].Range.Start.Offset {
			return out[i].Range.Start.Offset < out[j].Range.Start.Offset
		}
		return out[i].Code < out[j].Code
	})
	c.logger.Debug("validated buffer", "bytes", len(text), "dialect", d.Name, "diagnostics", len(out))
	return out
}

func lexOptions(d *dialect.Dialect) parser.Options {
	return parser.Options{
		DollarQuotes:     d.Strings.DollarQuoted,
		EscapeStrings:    d.Strings.EscapePrefix,
		BackslashEscapes: d.Strings.Backslash,
	}
}

// rangeOf converts byte offsets to positions. Empty ranges widen to one
// byte where the text allows it so editors have something to underline.
func rangeOf(text string, start, end int) token.Span {
	if end <= start && start < len(text) {
		end = start + 1
	}
	return token.SpanAt(text, start, end)
}
