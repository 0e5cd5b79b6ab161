package diagnostic

import (
	"regexp"
	"strings"

	"github.com/leapstack-labs/sqlsense/pkg/core"
	"github.com/leapstack-labs/sqlsense/pkg/token"
)

// SelectStar suggests listing columns explicitly.
var SelectStar = &Rule{
	ID:          "SQL030",
	Name:        "practice.select_star",
	Group:       GroupBestPractices,
	Description: "SELECT * couples the query to the table layout.",
	Severity:    core.SeverityInfo,
	Check: func(in *Input) []Finding {
		var out []Finding
		toks := in.Script.Tokens
		for i := 0; i+1 < len(toks); i++ {
			if toks[i].Type != token.SELECT || toks[i+1].Type != token.STAR {
				continue
			}
			// EXISTS (SELECT * ...) reads no columns.
			if i >= 2 && toks[i-1].Type == token.LPAREN && toks[i-2].Type == token.EXISTS {
				continue
			}
			out = append(out, Finding{
				Start:   toks[i].Pos.Offset,
				End:     toks[i+1].End,
				Message: "Consider specifying explicit column names instead of SELECT *",
			})
		}
		return out
	},
}

// UnfilteredWrite warns about UPDATE and DELETE statements without WHERE.
var UnfilteredWrite = &Rule{
	ID:          "SQL031",
	Name:        "practice.unfiltered_write",
	Group:       GroupBestPractices,
	Description: "UPDATE or DELETE without WHERE changes every row.",
	Severity:    core.SeverityWarning,
	Check:       checkUnfilteredWrites,
}

func checkUnfilteredWrites(in *Input) []Finding {
	var out []Finding
	for _, st := range in.Script.Statements {
		if isDDL(st) {
			continue
		}
		toks := st.Tokens
		write, depth, hasWhere := -1, 0, false
		for i, t := range toks {
			switch t.Type {
			case token.LPAREN:
				depth++
				continue
			case token.RPAREN:
				depth--
				continue
			}
			if depth != 0 {
				continue
			}
			switch t.Type {
			case token.INSERT:
				if write < 0 {
					// ON CONFLICT DO UPDATE and friends.
					write = len(toks)
				}
			case token.UPDATE, token.DELETE:
				if write < 0 && !(i > 0 && strings.EqualFold(toks[i-1].Literal, "for")) {
					write = i
				}
			case token.WHERE:
				if write >= 0 {
					hasWhere = true
				}
			}
		}
		if write < 0 || write >= len(toks) || hasWhere {
			continue
		}
		kw := toks[write]
		f := Finding{Start: kw.Pos.Offset, End: kw.End, Message: "UPDATE without WHERE clause will affect all rows"}
		if kw.Type == token.DELETE {
			f.Message = "DELETE without WHERE clause will affect all rows"
			if write+1 < len(toks) && toks[write+1].Type == token.FROM {
				f.End = toks[write+1].End
			}
		}
		out = append(out, f)
	}
	return out
}

var injection = regexp.MustCompile(`(?i)['"];\s*(drop)\b`)

// InjectionPattern flags text that looks like a closed literal followed by
// an injected DROP.
var InjectionPattern = &Rule{
	ID:          "SQL032",
	Name:        "security.injection_pattern",
	Group:       GroupSecurity,
	Description: "A quote, a semicolon and DROP is a classic injection payload.",
	Severity:    core.SeverityError,
	Check: func(in *Input) []Finding {
		var out []Finding
		for _, m := range injection.FindAllStringSubmatchIndex(in.Text, -1) {
			out = append(out, Finding{Start: m[2], End: m[3], Message: "Potential SQL injection pattern detected"})
		}
		return out
	},
}
