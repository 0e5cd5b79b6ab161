package completion

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"time"
	"unicode/utf8"

	"github.com/leapstack-labs/sqlsense/internal/analyzer"
	"github.com/leapstack-labs/sqlsense/internal/fuzzy"
	"github.com/leapstack-labs/sqlsense/internal/schema"
	"github.com/leapstack-labs/sqlsense/pkg/dialect"
)

// Options tunes ranking and the result cache.
type Options struct {
	// MaxItems caps the returned list.
	MaxItems int `koanf:"max_items"`
	// FuzzyMinLength is the fragment length from which non-matching
	// candidates are dropped. Shorter fragments only reorder.
	FuzzyMinLength int `koanf:"fuzzy_min_length"`
	// CacheTTL bounds how long a computed result is reused.
	CacheTTL time.Duration `koanf:"cache_ttl"`
	// CacheSize bounds the number of cached results.
	CacheSize int `koanf:"cache_size"`
}

// DefaultOptions returns the defaults used by the editor integrations.
func DefaultOptions() Options {
	return Options{
		MaxItems:       20,
		FuzzyMinLength: 2,
		CacheTTL:       30 * time.Second,
		CacheSize:      100,
	}
}

// shortQuery is the length under which an empty result falls back to
// statement keywords.
const shortQuery = 20

const placeholderLabel = "Schema loading…"

// Request is one completion request against a schema snapshot.
type Request struct {
	Text   string
	Offset int
	// Manual is set when the user explicitly asked for completions.
	Manual bool

	Schema *schema.Cache
	// Loading is set while the first schema fetch is still running.
	Loading bool
	Dialect *dialect.Dialect
}

// Provider computes completions. It is safe for concurrent use.
type Provider struct {
	opts    Options
	logger  *slog.Logger
	results *resultCache
}

// NewProvider creates a provider. Zero option fields take their defaults.
func NewProvider(opts Options, logger *slog.Logger) *Provider {
	def := DefaultOptions()
	if opts.MaxItems <= 0 {
		opts.MaxItems = def.MaxItems
	}
	if opts.FuzzyMinLength <= 0 {
		opts.FuzzyMinLength = def.FuzzyMinLength
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = def.CacheTTL
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = def.CacheSize
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Provider{
		opts:    opts,
		logger:  logger,
		results: newResultCache(opts.CacheTTL, opts.CacheSize),
	}
}

// Invalidate drops every cached result. Call it whenever the schema or the
// dialect changes.
func (p *Provider) Invalidate() {
	p.results.clear()
}

// Complete returns the ranked completions for req. It returns nil inside a
// string literal or a comment, and when an automatic request arrives at a
// position where completions are not shown.
func (p *Provider) Complete(req Request) []Item {
	if req.Schema == nil {
		req.Schema = schema.Empty()
	}
	if req.Dialect == nil {
		req.Dialect = dialect.ForKind(dialect.Generic)
	}
	req.Offset = max(0, min(req.Offset, len(req.Text)))

	if !req.Manual && !triggered(req.Text, req.Offset) {
		return nil
	}

	ctx := analyzer.Analyze(req.Text, req.Offset)
	if ctx.InLiteral {
		return nil
	}
	key := newCacheKey(req, ctx.Kind)
	if items, ok := p.results.get(key); ok {
		return slices.Clone(items)
	}

	items := p.compute(req, ctx)
	p.results.put(key, items)
	p.logger.Debug("completions computed",
		"context", ctx.Kind.String(),
		"fallback", ctx.Fallback,
		"items", len(items))
	return slices.Clone(items)
}

func (p *Provider) compute(req Request, ctx analyzer.Context) []Item {
	start, end := analyzer.ReplaceRange(req.Text, req.Offset)
	word := req.Text[start:end]

	if ctx.Kind == analyzer.FromClause && req.Loading && req.Schema.IsEmpty() {
		return []Item{{
			Label:        placeholderLabel,
			Kind:         KindText,
			Detail:       "Fetching tables from the database",
			SortText:     "0000",
			ReplaceStart: start,
			ReplaceEnd:   end,
		}}
	}

	c := &collector{req: req, ctx: ctx, word: word}
	c.gather()
	ranked := p.rank(c.items, word)

	if len(ranked) == 0 && len(req.Text) < shortQuery &&
		!ctx.Kind.TableNamePosition() && ctx.Kind != analyzer.AfterDot {
		c.items = nil
		c.statementKeywords()
		ranked = dedupe(c.items)
	}

	if len(ranked) > p.opts.MaxItems {
		ranked = ranked[:p.opts.MaxItems]
	}
	out := make([]Item, len(ranked))
	for i, cand := range ranked {
		it := cand.Item
		it.SortText = fmt.Sprintf("%04d", i)
		it.ReplaceStart, it.ReplaceEnd = start, end
		out[i] = it
	}
	return out
}

// rank orders candidates by tier and drops repeats. Below FuzzyMinLength
// typed characters the tier order stands. From there on the fuzzy match
// quality comes first, then the tier, then the match score, and candidates
// that do not match are dropped.
func (p *Provider) rank(cands []candidate, word string) []candidate {
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].tier < cands[j].tier })
	cands = dedupe(cands)

	if utf8.RuneCountInString(word) < p.opts.FuzzyMinLength {
		return cands
	}

	type scored struct {
		cand candidate
		res  fuzzy.Result
	}
	all := make([]scored, 0, len(cands))
	for _, c := range cands {
		res := fuzzy.Match(word, c.filterKey())
		if !res.Matched() {
			continue
		}
		all = append(all, scored{c, res})
	}
	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.res.Quality != b.res.Quality {
			return a.res.Quality > b.res.Quality
		}
		if a.cand.tier != b.cand.tier {
			return a.cand.tier < b.cand.tier
		}
		return a.res.Score > b.res.Score
	})
	out := make([]candidate, len(all))
	for i, s := range all {
		out[i] = s.cand
	}
	return out
}

func dedupe(cands []candidate) []candidate {
	seen := make(map[string]struct{}, len(cands))
	out := cands[:0]
	for _, c := range cands {
		if _, ok := seen[c.dedupe]; ok {
			continue
		}
		seen[c.dedupe] = struct{}{}
		out = append(out, c)
	}
	return out
}

// triggered reports whether an automatic request should produce items: a
// word is being typed, the cursor follows a trigger character, or the
// document is empty.
func triggered(text string, offset int) bool {
	if analyzer.CurrentWord(text, offset) != "" {
		return true
	}
	before := text[:offset]
	if before == "" {
		return true
	}
	switch before[len(before)-1] {
	case ' ', '\t', '\n', '\r', '(', ',', '.':
		return true
	}
	return false
}
