package script

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/zclconf/go-cty/cty"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/graphmill/graphmill/internal/rules"
	"github.com/graphmill/graphmill/pkg/graph"
)

// Runner executes parsed scripts. Node handles (the string names given to
// add_node) are resolved to node IDs per run.
type Runner struct {
	Rules  *rules.Set
	tracer trace.Tracer
}

// NewRunner returns a runner using the given rule set (may be nil).
func NewRunner(set *rules.Set) *Runner {
	return &Runner{
		Rules:  set,
		tracer: otel.Tracer("graphmill/script"),
	}
}

// Result is the outcome of a script run.
type Result struct {
	Graph   *graph.Graph
	Applied int // ops that changed the graph value
	Misses  int // traversals that found nothing
}

type runState struct {
	g       *graph.Graph
	handles map[string]int64
	res     Result
}

// Run executes a script against a fresh graph value built from the
// script's graph block.
func (r *Runner) Run(ctx context.Context, file *File) (Result, error) {
	if file == nil {
		return Result{}, fmt.Errorf("script: nil file")
	}
	cfg := graph.Config{}
	directed := true
	if file.Graph != nil {
		directed = file.Graph.Directed
		cfg.AutoSnapshot = file.Graph.AutoSnapshot
		cfg.SnapshotDir = file.Graph.SnapshotDir
	}
	st := &runState{
		g:       graph.NewWithConfig(directed, cfg),
		handles: make(map[string]int64),
	}

	for i, op := range file.Ops {
		ctx, span := r.tracer.Start(ctx, "op."+op.Kind, trace.WithAttributes(
			attribute.String("op.kind", op.Kind),
			attribute.Int("op.index", i),
		))
		err := r.apply(ctx, st, op)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			st.res.Graph = st.g
			return st.res, fmt.Errorf("op %d (%s): %w", i, op.Kind, err)
		}
		span.End()
	}
	st.res.Graph = st.g
	return st.res, nil
}

func (r *Runner) apply(_ context.Context, st *runState, op *Op) error {
	switch op.Kind {
	case "add_node":
		var args struct {
			Handle string    `hcl:"handle,optional"`
			Attrs  cty.Value `hcl:"attrs,optional"`
		}
		if err := decodeOp(op, &args); err != nil {
			return err
		}
		attrs, err := ctyToAttrs(args.Attrs)
		if err != nil {
			return err
		}
		g, id, err := st.g.AddNode(attrs)
		if err != nil {
			return err
		}
		if args.Handle != "" {
			if _, dup := st.handles[args.Handle]; dup {
				return fmt.Errorf("duplicate node handle %q", args.Handle)
			}
			st.handles[args.Handle] = id
		}
		st.commit(g)
		return nil

	case "add_edge":
		var args struct {
			From  string    `hcl:"from"`
			To    string    `hcl:"to"`
			Attrs cty.Value `hcl:"attrs,optional"`
		}
		if err := decodeOp(op, &args); err != nil {
			return err
		}
		from, err := st.handle(args.From)
		if err != nil {
			return err
		}
		to, err := st.handle(args.To)
		if err != nil {
			return err
		}
		attrs, err := ctyToAttrs(args.Attrs)
		if err != nil {
			return err
		}
		g, _, err := st.g.AddEdge(from, to, attrs)
		if err != nil {
			return err
		}
		st.commit(g)
		return nil

	case "delete_node":
		var args struct {
			Handle string `hcl:"handle"`
		}
		if err := decodeOp(op, &args); err != nil {
			return err
		}
		id, err := st.handle(args.Handle)
		if err != nil {
			return err
		}
		g, err := st.g.DeleteNode(id)
		if err != nil {
			return err
		}
		delete(st.handles, args.Handle)
		st.commit(g)
		return nil

	case "select_nodes":
		var args struct {
			Nodes []string `hcl:"nodes,optional"`
			Where string   `hcl:"where,optional"`
			Rule  string   `hcl:"rule,optional"`
			Mode  string   `hcl:"mode,optional"`
		}
		if err := decodeOp(op, &args); err != nil {
			return err
		}
		mode, err := graph.ParseSelectMode(args.Mode)
		if err != nil {
			return err
		}
		if f, err := r.filter(args.Where, args.Rule); err != nil {
			return err
		} else if f != nil {
			g, err := st.g.SelectNodesByAttr(f, mode)
			if err != nil {
				return err
			}
			st.commit(g)
			return nil
		}
		ids := make([]int64, 0, len(args.Nodes))
		for _, h := range args.Nodes {
			id, err := st.handle(h)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		g, err := st.g.SelectNodes(ids, mode)
		if err != nil {
			return err
		}
		st.commit(g)
		return nil

	case "select_edges":
		var args struct {
			Where string `hcl:"where,optional"`
			Rule  string `hcl:"rule,optional"`
			Mode  string `hcl:"mode,optional"`
		}
		if err := decodeOp(op, &args); err != nil {
			return err
		}
		mode, err := graph.ParseSelectMode(args.Mode)
		if err != nil {
			return err
		}
		f, err := r.filter(args.Where, args.Rule)
		if err != nil {
			return err
		}
		if f == nil {
			return fmt.Errorf("select_edges requires where or rule")
		}
		g, err := st.g.SelectEdgesByAttr(f, mode)
		if err != nil {
			return err
		}
		st.commit(g)
		return nil

	case "clear_selection":
		g, err := st.g.ClearSelection()
		if err != nil {
			return err
		}
		st.commit(g)
		return nil

	case "invert_selection":
		g, err := st.g.InvertNodeSelection()
		if err != nil {
			return err
		}
		st.commit(g)
		return nil

	case "trav_out", "trav_in", "trav_both":
		f, err := r.travFilter(op)
		if err != nil {
			return err
		}
		dir, _ := graph.ParseDirection(op.Kind[len("trav_"):])
		g, found, err := st.g.Traverse(dir, f)
		if err != nil {
			return err
		}
		st.traversal(g, found, op.Kind)
		return nil

	case "trav_out_edge", "trav_in_edge", "trav_both_edge":
		f, err := r.travFilter(op)
		if err != nil {
			return err
		}
		dir, _ := graph.ParseDirection(op.Kind[len("trav_") : len(op.Kind)-len("_edge")])
		g, found, err := st.g.TraverseEdges(dir, f)
		if err != nil {
			return err
		}
		st.traversal(g, found, op.Kind)
		return nil

	case "trav_endpoints":
		f, err := r.travFilter(op)
		if err != nil {
			return err
		}
		g, found, err := st.g.TravEndpoints(f)
		if err != nil {
			return err
		}
		st.traversal(g, found, op.Kind)
		return nil

	case "trav_reverse_edge":
		g, found, err := st.g.TravReverseEdge()
		if err != nil {
			return err
		}
		st.traversal(g, found, op.Kind)
		return nil

	case "set_node_attr":
		var args struct {
			Handle string    `hcl:"handle"`
			Key    string    `hcl:"key"`
			Value  cty.Value `hcl:"value"`
		}
		if err := decodeOp(op, &args); err != nil {
			return err
		}
		id, err := st.handle(args.Handle)
		if err != nil {
			return err
		}
		v, err := ctyToGo(args.Value)
		if err != nil {
			return err
		}
		g, err := st.g.SetNodeAttr(id, args.Key, v)
		if err != nil {
			return err
		}
		st.commit(g)
		return nil

	case "set_node_attr_ws", "set_edge_attr_ws":
		var args struct {
			Key   string    `hcl:"key"`
			Value cty.Value `hcl:"value"`
		}
		if err := decodeOp(op, &args); err != nil {
			return err
		}
		v, err := ctyToGo(args.Value)
		if err != nil {
			return err
		}
		var g *graph.Graph
		if op.Kind == "set_node_attr_ws" {
			g, err = st.g.SetNodeAttrWS(args.Key, v)
		} else {
			g, err = st.g.SetEdgeAttrWS(args.Key, v)
		}
		if err != nil {
			return err
		}
		st.commit(g)
		return nil

	case "rescale_node_attr_ws":
		var args struct {
			Key string  `hcl:"key"`
			Lo  float64 `hcl:"lo"`
			Hi  float64 `hcl:"hi"`
		}
		if err := decodeOp(op, &args); err != nil {
			return err
		}
		g, err := st.g.RescaleNodeAttrWS(args.Key, args.Lo, args.Hi)
		if err != nil {
			return err
		}
		st.commit(g)
		return nil

	case "delete_nodes_ws":
		g, err := st.g.DeleteNodesWS()
		if err != nil {
			return err
		}
		st.commit(g)
		return nil

	case "delete_edges_ws":
		g, err := st.g.DeleteEdgesWS()
		if err != nil {
			return err
		}
		st.commit(g)
		return nil

	case "add_action":
		var args struct {
			Fn   string    `hcl:"fn"`
			Name string    `hcl:"name,optional"`
			Args cty.Value `hcl:"args,optional"`
		}
		if err := decodeOp(op, &args); err != nil {
			return err
		}
		callArgs, err := ctyToAttrs(args.Args)
		if err != nil {
			return err
		}
		g, err := st.g.AddGraphAction(args.Fn, callArgs, args.Name)
		if err != nil {
			return err
		}
		st.commit(g)
		return nil

	case "trigger":
		g, err := st.g.TriggerGraphActions()
		if err != nil {
			return err
		}
		st.commit(g)
		return nil

	case "snapshot":
		var args struct {
			Dir string `hcl:"dir,optional"`
		}
		if err := decodeOp(op, &args); err != nil {
			return err
		}
		path, err := st.g.Snapshot(args.Dir)
		if err != nil {
			return err
		}
		slog.Info("snapshot written", "path", path)
		return nil
	}
	return fmt.Errorf("unknown op kind %q", op.Kind)
}

func (r *Runner) travFilter(op *Op) (*graph.Filter, error) {
	var args struct {
		Where string `hcl:"where,optional"`
		Rule  string `hcl:"rule,optional"`
	}
	if err := decodeOp(op, &args); err != nil {
		return nil, err
	}
	return r.filter(args.Where, args.Rule)
}

// filter resolves an inline where expression or a named rule; nil when
// neither is given.
func (r *Runner) filter(where, rule string) (*graph.Filter, error) {
	if where != "" && rule != "" {
		return nil, fmt.Errorf("where and rule are mutually exclusive")
	}
	if where != "" {
		return graph.NewFilter(where)
	}
	if rule != "" {
		f, ok := r.Rules.Filter(rule)
		if !ok {
			return nil, fmt.Errorf("unknown rule %q", rule)
		}
		return f, nil
	}
	return nil, nil
}

func (st *runState) handle(name string) (int64, error) {
	id, ok := st.handles[name]
	if !ok {
		return 0, fmt.Errorf("unknown node handle %q", name)
	}
	return id, nil
}

func (st *runState) commit(g *graph.Graph) {
	st.g = g
	st.res.Applied++
}

func (st *runState) traversal(g *graph.Graph, found bool, kind string) {
	st.g = g
	if found {
		st.res.Applied++
		return
	}
	st.res.Misses++
	slog.Debug("traversal found nothing", "op", kind)
}

func decodeOp(op *Op, into any) error {
	if diags := gohcl.DecodeBody(op.Body, nil, into); diags.HasErrors() {
		return fmt.Errorf("decode: %s", diags.Error())
	}
	return nil
}
