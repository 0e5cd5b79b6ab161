package refactor

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/sqlsense/internal/schema"
	"github.com/leapstack-labs/sqlsense/pkg/core"
	"github.com/leapstack-labs/sqlsense/pkg/dialect"
	"github.com/leapstack-labs/sqlsense/pkg/parser"
	"github.com/leapstack-labs/sqlsense/pkg/token"
)

// ParameterInfo is one parameter of a signature.
type ParameterInfo struct {
	Label         string `json:"label"`
	Documentation string `json:"documentation,omitempty"`
}

// SignatureInfo is one overload of the function being called.
type SignatureInfo struct {
	Label         string          `json:"label"`
	Documentation string          `json:"documentation,omitempty"`
	Parameters    []ParameterInfo `json:"parameters"`
}

// SignatureHelp describes the call around the cursor.
type SignatureHelp struct {
	Signatures      []SignatureInfo `json:"signatures"`
	ActiveSignature int             `json:"active_signature"`
	ActiveParameter int             `json:"active_parameter"`
}

// SignatureAt returns help for the innermost open function call before
// offset. Built-in functions of the dialect are looked up first, then user
// functions and procedures from the schema cache.
func SignatureAt(text string, offset int, sc *schema.Cache, d *dialect.Dialect) *SignatureHelp {
	sc, d = defaults(sc, d)
	if offset > len(text) {
		offset = len(text)
	}
	name, active, ok := openCall(text[:max(offset, 0)])
	if !ok {
		return nil
	}

	var sigs []SignatureInfo
	if f, ok := d.Function(name); ok {
		for _, s := range f.Signatures {
			sigs = append(sigs, SignatureInfo{
				Label:         s.Label,
				Documentation: f.Description,
				Parameters:    builtinParams(s.Params),
			})
		}
	} else if r, ok := sc.Function(name); ok {
		sigs = append(sigs, routineSignature(r))
	} else if r, ok := sc.Procedure(name); ok {
		sigs = append(sigs, routineSignature(r))
	}
	if len(sigs) == 0 {
		return nil
	}
	return &SignatureHelp{
		Signatures:      sigs,
		ActiveSignature: pickSignature(sigs, active),
		ActiveParameter: active,
	}
}

// openCall walks backwards from the end of before to the unmatched opening
// parenthesis and returns the name in front of it and the number of commas
// at that nesting level.
func openCall(before string) (name string, commas int, ok bool) {
	toks := parser.Tokenize(before)
	depth := 0
	for i := len(toks) - 1; i >= 0; i-- {
		switch toks[i].Type {
		case token.RPAREN:
			depth++
		case token.LPAREN:
			if depth > 0 {
				depth--
				continue
			}
			if i > 0 && toks[i-1].IsWord() {
				return toks[i-1].Literal, commas, true
			}
			return "", 0, false
		case token.COMMA:
			if depth == 0 {
				commas++
			}
		case token.SEMICOLON:
			if depth == 0 {
				return "", 0, false
			}
		}
	}
	return "", 0, false
}

func builtinParams(params []dialect.Param) []ParameterInfo {
	out := make([]ParameterInfo, len(params))
	for i, p := range params {
		out[i] = ParameterInfo{Label: fmt.Sprintf("%s: %s", p.Name, p.Type), Documentation: p.Description}
		if p.Optional && out[i].Documentation == "" {
			out[i].Documentation = "optional"
		}
	}
	return out
}

func routineSignature(r core.RoutineInfo) SignatureInfo {
	names := make([]string, len(r.Params))
	params := make([]ParameterInfo, len(r.Params))
	for i, p := range r.Params {
		names[i] = p.Name
		params[i] = ParameterInfo{Label: fmt.Sprintf("%s: %s", p.Name, p.DataType)}
		if p.Mode != "" && p.Mode != core.ParamIn {
			params[i].Documentation = string(p.Mode)
		}
	}
	sig := SignatureInfo{
		Label:      fmt.Sprintf("%s(%s)", r.Name, strings.Join(names, ", ")),
		Parameters: params,
	}
	if r.ReturnType != "" {
		sig.Documentation = "Returns " + r.ReturnType
	}
	return sig
}

// pickSignature prefers the first overload that has a parameter at index
// active, then the one with the most parameters.
func pickSignature(sigs []SignatureInfo, active int) int {
	best := 0
	for i, s := range sigs {
		if len(s.Parameters) > active {
			return i
		}
		if len(s.Parameters) > len(sigs[best].Parameters) {
			best = i
		}
	}
	return best
}
