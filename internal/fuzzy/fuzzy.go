// Package fuzzy scores a typed fragment against completion candidates.
package fuzzy

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// Quality grades how a pattern matched. Higher is better.
type Quality int

// Match qualities.
const (
	None Quality = iota
	Fuzzy
	Acronym
	Substring
	Prefix
)

func (q Quality) String() string {
	switch q {
	case Fuzzy:
		return "fuzzy"
	case Acronym:
		return "acronym"
	case Substring:
		return "substring"
	case Prefix:
		return "prefix"
	default:
		return "none"
	}
}

// Scores by quality. Within a quality, a higher score is a better match.
const (
	prefixBase    = 1000
	substringBase = 800
	strippedBase  = 750
	acronymScore  = 600
	consecutive   = 10
)

// Result is the outcome of matching one candidate.
type Result struct {
	Quality Quality
	Score   int
	// Indices are the rune positions of the candidate that matched.
	Indices []int
}

// Matched reports whether the candidate matched at all.
func (r Result) Matched() bool {
	return r.Quality != None
}

func fold(s string) string {
	return cases.Fold().String(s)
}

// Match scores candidate against pattern, ignoring case. Prefix matches
// beat substring matches, which beat acronym and then subsequence matches.
// An empty pattern matches everything as a prefix.
func Match(pattern, candidate string) Result {
	if pattern == "" {
		return Result{Quality: Prefix}
	}
	p, c := fold(pattern), fold(candidate)
	pr, cr := []rune(p), []rune(c)

	if strings.HasPrefix(c, p) {
		// Shorter candidates rank first.
		return Result{Quality: Prefix, Score: prefixBase - (len(cr) - len(pr)), Indices: span(0, len(pr))}
	}

	if i := strings.Index(c, p); i >= 0 {
		pos := len([]rune(c[:i]))
		return Result{Quality: Substring, Score: substringBase - pos, Indices: span(pos, len(pr))}
	}

	// user_id matches "userid".
	if stripped := strings.ReplaceAll(c, "_", ""); stripped != c {
		if i := strings.Index(stripped, p); i >= 0 {
			return Result{Quality: Substring, Score: strippedBase - len([]rune(stripped[:i]))}
		}
	}

	if idx := matchAcronym(pr, cr, []rune(candidate)); idx != nil {
		return Result{Quality: Acronym, Score: acronymScore, Indices: idx}
	}

	if score, idx, ok := matchSubsequence(pr, cr); ok {
		return Result{Quality: Fuzzy, Score: score, Indices: idx}
	}
	return Result{}
}

func span(start, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = start + i
	}
	return out
}

// matchAcronym matches each pattern rune against the start of successive
// words of the candidate. A word starts at the first rune, after a
// non-alphanumeric rune, or at an upper-case rune following a lower-case one.
func matchAcronym(pattern, folded, original []rune) []int {
	if len(folded) != len(original) {
		// Folding changed the length; word boundaries no longer line up.
		return nil
	}
	var starts []int
	for i, r := range original {
		switch {
		case i == 0:
		case !unicode.IsLetter(original[i-1]) && !unicode.IsDigit(original[i-1]):
		case unicode.IsUpper(r) && unicode.IsLower(original[i-1]):
		default:
			continue
		}
		starts = append(starts, i)
	}
	if len(starts) < len(pattern) {
		return nil
	}

	var idx []int
	w := 0
	for _, pc := range pattern {
		found := false
		for ; w < len(starts); w++ {
			if folded[starts[w]] == pc {
				idx = append(idx, starts[w])
				w++
				found = true
				break
			}
		}
		if !found {
			return nil
		}
	}
	return idx
}

// matchSubsequence finds the best in-order match of every pattern rune.
// Each matched rune scores 1 plus a bonus when it directly follows the
// previous match; each skipped candidate rune before the last match costs 1.
func matchSubsequence(pattern, cand []rune) (int, []int, bool) {
	m, n := len(pattern), len(cand)
	if m > n {
		return 0, nil, false
	}

	const unset = math.MinInt32
	// best[i][j][k]: best score matching pattern[i:] in cand[j:], k=1 when
	// cand[j-1] matched pattern[i-1].
	best := make([][][2]int, m+1)
	for i := range best {
		best[i] = make([][2]int, n+1)
		for j := range best[i] {
			best[i][j] = [2]int{unset, unset}
		}
	}
	var solve func(i, j, k int) int
	solve = func(i, j, k int) int {
		if i == m {
			return 0
		}
		if j == n {
			return unset
		}
		if v := best[i][j][k]; v != unset {
			return v
		}
		score := unset
		if cand[j] == pattern[i] {
			if rest := solve(i+1, j+1, 1); rest != unset {
				bonus := 0
				if k == 1 && i > 0 {
					bonus = consecutive
				}
				score = 1 + bonus + rest
			}
		}
		if j < n-1 {
			if rest := solve(i, j+1, 0); rest != unset && rest-1 > score {
				score = rest - 1
			}
		}
		best[i][j][k] = score
		return score
	}

	total := solve(0, 0, 0)
	if total == unset {
		return 0, nil, false
	}

	// Walk the table again to recover the matched positions.
	idx := make([]int, 0, m)
	for i, j, k := 0, 0, 0; i < m; j++ {
		if cand[j] == pattern[i] {
			if rest := solve(i+1, j+1, 1); rest != unset {
				bonus := 0
				if k == 1 && i > 0 {
					bonus = consecutive
				}
				if 1+bonus+rest == solve(i, j, k) {
					idx = append(idx, j)
					i, k = i+1, 1
					continue
				}
			}
		}
		k = 0
	}
	return total, idx, true
}

// Better reports whether a ranks strictly ahead of b.
func Better(a, b Result) bool {
	if a.Quality != b.Quality {
		return a.Quality > b.Quality
	}
	return a.Score > b.Score
}

// Rank returns the items whose key matches pattern, best first. Items of
// equal quality and score keep their input order.
func Rank[T any](pattern string, items []T, key func(T) string) []T {
	type scored struct {
		item T
		res  Result
	}
	all := make([]scored, 0, len(items))
	for _, it := range items {
		if res := Match(pattern, key(it)); res.Matched() {
			all = append(all, scored{it, res})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return Better(all[i].res, all[j].res) })
	out := make([]T, len(all))
	for i, s := range all {
		out[i] = s.item
	}
	return out
}
