package graph

import (
	"fmt"
	"sort"
	"time"
)

// Call is a deferred function invocation: a registered function name plus
// named arguments. Calls are plain data (JSON-serializable command
// objects); evaluation goes through the package registry, never through
// generated code. String argument values survive serialization exactly as
// written (the JSON encoder owns the quoting).
type Call struct {
	Fn   string         `json:"fn"`
	Args map[string]any `json:"args,omitempty"`
}

// Action is one registered graph action: a deferred call re-applied to the
// graph, in ascending index order, after every table mutation.
type Action struct {
	Index int64  `json:"index"`
	Name  string `json:"name,omitempty"`
	Call  Call   `json:"call"`
}

// ActionFn is an evaluatable graph-action implementation. It receives the
// graph produced by the previous action in the batch and must return a new
// value or an error; it must not re-trigger actions itself.
type ActionFn func(g *Graph, args map[string]any) (*Graph, error)

var actionRegistry = map[string]ActionFn{}

// RegisterActionFn adds a named function to the action dispatch table.
// Intended for init-time registration; later calls overwrite.
func RegisterActionFn(name string, fn ActionFn) {
	actionRegistry[name] = fn
}

func init() {
	RegisterActionFn("set_node_attr", func(g *Graph, args map[string]any) (*Graph, error) {
		id, err := argInt(args, "id")
		if err != nil {
			return g, err
		}
		key, err := argString(args, "key")
		if err != nil {
			return g, err
		}
		ng, err := g.setNodeAttr(id, key, args["value"], false)
		return ng, err
	})
	RegisterActionFn("set_node_attr_ws", func(g *Graph, args map[string]any) (*Graph, error) {
		key, err := argString(args, "key")
		if err != nil {
			return g, err
		}
		ng, err := g.setNodeAttrWS(key, args["value"], false)
		return ng, err
	})
	RegisterActionFn("rescale_node_attr_ws", func(g *Graph, args map[string]any) (*Graph, error) {
		key, err := argString(args, "key")
		if err != nil {
			return g, err
		}
		lo, err := argFloat(args, "lo")
		if err != nil {
			return g, err
		}
		hi, err := argFloat(args, "hi")
		if err != nil {
			return g, err
		}
		return g.rescaleNodeAttrWS(key, lo, hi, false)
	})
	RegisterActionFn("select_nodes_by_attr", func(g *Graph, args map[string]any) (*Graph, error) {
		expr, err := argString(args, "where")
		if err != nil {
			return g, err
		}
		f, err := NewFilter(expr)
		if err != nil {
			return g, err
		}
		return g.SelectNodesByAttr(f, SelectReplace)
	})
}

// GraphActions returns the registered actions sorted ascending by index.
func (g *Graph) GraphActions() []Action {
	if g == nil {
		return nil
	}
	out := append([]Action(nil), g.actions...)
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// AddGraphAction registers a deferred call under the next free index
// (1 + max existing, or 1).
func (g *Graph) AddGraphAction(fn string, args map[string]any, name string) (*Graph, error) {
	if err := g.valid(); err != nil {
		return g, err
	}
	start := time.Now()
	var next int64 = 1
	for _, a := range g.actions {
		if a.Index >= next {
			next = a.Index + 1
		}
	}
	ng := g.clone()
	ng.actions = append(ng.actions, Action{
		Index: next,
		Name:  name,
		Call:  Call{Fn: fn, Args: cloneAttrs(args)},
	})
	return ng.commit("add_graph_action", start, false), nil
}

// DeleteGraphAction removes the action at the given index.
func (g *Graph) DeleteGraphAction(index int64) (*Graph, error) {
	if err := g.valid(); err != nil {
		return g, err
	}
	found := false
	for _, a := range g.actions {
		if a.Index == index {
			found = true
			break
		}
	}
	if !found {
		return g, fmt.Errorf("delete_graph_action: index %d: %w", index, ErrNotFound)
	}
	start := time.Now()
	ng := g.clone()
	kept := ng.actions[:0:0]
	for _, a := range ng.actions {
		if a.Index != index {
			kept = append(kept, a)
		}
	}
	ng.actions = kept
	return ng.commit("delete_graph_action", start, false), nil
}

// TriggerGraphActions evaluates every registered action in ascending index
// order, each against the previous action's output. On any failure the
// graph reverts to its state before the batch and the error names the
// failing action. Mutating operations invoke this step implicitly as
// their final act.
func (g *Graph) TriggerGraphActions() (*Graph, error) {
	if err := g.valid(); err != nil {
		return g, err
	}
	out, err := g.runActions()
	if err != nil {
		return g, err
	}
	return out, nil
}

func (g *Graph) runActions() (*Graph, error) {
	cur := g
	for _, a := range g.GraphActions() {
		fn, ok := actionRegistry[a.Call.Fn]
		if !ok {
			return nil, fmt.Errorf("action %q (index %d): unknown function %q: %w",
				a.Name, a.Index, a.Call.Fn, ErrActionEval)
		}
		next, err := fn(cur, a.Call.Args)
		if err != nil {
			return nil, fmt.Errorf("action %q (index %d): %v: %w", a.Name, a.Index, err, ErrActionEval)
		}
		if next == nil {
			return nil, fmt.Errorf("action %q (index %d): returned nil graph: %w", a.Name, a.Index, ErrActionEval)
		}
		cur = next
	}
	return cur, nil
}

func argString(args map[string]any, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", fmt.Errorf("missing argument %q", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("argument %q: expected string, got %T", key, v)
	}
	return s, nil
}

// argInt accepts int64 and the float64 that JSON decoding produces.
func argInt(args map[string]any, key string) (int64, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing argument %q", key)
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	}
	return 0, fmt.Errorf("argument %q: expected integer, got %T", key, v)
}

func argFloat(args map[string]any, key string) (float64, error) {
	v, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("missing argument %q", key)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	}
	return 0, fmt.Errorf("argument %q: expected number, got %T", key, v)
}
