package graph

import (
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/checker/decls"
)

// Filter is a compiled attribute predicate used by selection and traversal
// operations. Expressions are CEL, evaluated against:
//
//	id    - the node or edge ID (int)
//	from  - the edge source node ID (int, -1 when filtering nodes)
//	to    - the edge target node ID (int, -1 when filtering nodes)
//	attrs - the attribute mapping (map<string, dyn>)
//
// Example: `attrs.weight > 2.0 && attrs.kind == "road"`.
type Filter struct {
	expr string
	prg  cel.Program
}

var filterEnv *cel.Env

func init() {
	env, err := cel.NewEnv(
		cel.Declarations(
			decls.NewVar("id", decls.Int),
			decls.NewVar("from", decls.Int),
			decls.NewVar("to", decls.Int),
			decls.NewVar("attrs", decls.NewMapType(decls.String, decls.Dyn)),
		),
	)
	if err != nil {
		panic(fmt.Sprintf("graph: failed to create CEL env: %v", err))
	}
	filterEnv = env
}

// NewFilter compiles a CEL expression into a Filter.
func NewFilter(expr string) (*Filter, error) {
	ast, issues := filterEnv.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("filter %q: %v: %w", expr, issues.Err(), ErrInvalidAttribute)
	}
	prg, err := filterEnv.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("filter %q: program creation: %w", expr, err)
	}
	return &Filter{expr: expr, prg: prg}, nil
}

// Expr returns the source expression.
func (f *Filter) Expr() string { return f.expr }

// MatchNode evaluates the filter against one node row. Evaluation errors
// (e.g. a missing attribute referenced without a has() guard) count as
// non-matches.
func (f *Filter) MatchNode(n Node) bool {
	return f.eval(map[string]any{
		"id":    n.ID,
		"from":  int64(-1),
		"to":    int64(-1),
		"attrs": attrsOrEmpty(n.Attrs),
	})
}

// MatchEdge evaluates the filter against one edge row.
func (f *Filter) MatchEdge(e Edge) bool {
	return f.eval(map[string]any{
		"id":    e.ID,
		"from":  e.From,
		"to":    e.To,
		"attrs": attrsOrEmpty(e.Attrs),
	})
}

func (f *Filter) eval(vars map[string]any) bool {
	out, _, err := f.prg.Eval(vars)
	if err != nil {
		slog.Debug("filter evaluation failed", "expr", f.expr, "error", err)
		return false
	}
	match, ok := out.Value().(bool)
	return ok && match
}

func attrsOrEmpty(attrs map[string]any) map[string]any {
	if attrs == nil {
		return map[string]any{}
	}
	return attrs
}
