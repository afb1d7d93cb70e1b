package graph

import (
	"fmt"
	"log/slog"
	"math"
	"time"
)

// LogEntry is one row of the append-only action log: an audit trail of
// mutating calls, not an undo log. Versions are strictly increasing by 1
// per successful mutating call.
type LogEntry struct {
	Version  int64         `json:"version"`
	Function string        `json:"function"`
	Time     time.Time     `json:"time"`
	Duration time.Duration `json:"duration"`
	Nodes    int           `json:"nodes"`
	Edges    int           `json:"edges"`
}

// Log returns a copy of the action log.
func (g *Graph) Log() []LogEntry {
	if g == nil {
		return nil
	}
	return append([]LogEntry(nil), g.log...)
}

// collapseSince replaces every log entry appended after mark with a single
// summary entry, rolling the version counter back so the log stays gapless.
// Composite helpers use this so their internal primitive calls read as one
// operation. If the inner calls appended nothing, the summary entry is
// logged as a fresh mutation.
func (g *Graph) collapseSince(mark int, fn string, start time.Time) {
	var version int64
	if mark < len(g.log) {
		version = g.log[mark].Version
		g.log = g.log[:mark:mark]
	} else {
		version = g.version + 1
	}
	g.version = version
	g.log = append(g.log, LogEntry{
		Version:  version,
		Function: fn,
		Time:     start,
		Duration: time.Since(start),
		Nodes:    len(g.nodes),
		Edges:    len(g.edges),
	})
}

// RescaleNodeAttrWS linearly rescales a numeric node attribute over the
// selected nodes onto [lo, hi]. Internally this runs the primitive setter
// per node, then collapses those log entries into one summary entry, so
// the audit trail records a single composite operation.
func (g *Graph) RescaleNodeAttrWS(key string, lo, hi float64) (*Graph, error) {
	return g.rescaleNodeAttrWS(key, lo, hi, true)
}

func (g *Graph) rescaleNodeAttrWS(key string, lo, hi float64, trigger bool) (*Graph, error) {
	if err := g.valid(); err != nil {
		return g, err
	}
	if len(g.sel.Nodes) == 0 {
		return g, fmt.Errorf("rescale_node_attr_ws: %w", ErrEmptySelection)
	}
	if hi < lo {
		return g, fmt.Errorf("rescale_node_attr_ws: inverted range [%v, %v]: %w", lo, hi, ErrInvalidAttribute)
	}
	start := time.Now()

	vals := make(map[int64]float64, len(g.sel.Nodes))
	min, max := math.Inf(1), math.Inf(-1)
	for _, id := range g.sel.Nodes {
		raw, ok := g.NodeAttr(id, key)
		if !ok {
			return g, fmt.Errorf("rescale_node_attr_ws: node %d has no attribute %q: %w", id, key, ErrInvalidAttribute)
		}
		v, ok := numeric(raw)
		if !ok {
			return g, fmt.Errorf("rescale_node_attr_ws: node %d attribute %q is not numeric: %w", id, key, ErrInvalidAttribute)
		}
		vals[id] = v
		min = math.Min(min, v)
		max = math.Max(max, v)
	}

	mark := len(g.log)
	cur := g
	for _, id := range g.sel.Nodes {
		var scaled float64
		if max == min {
			scaled = lo
		} else {
			scaled = lo + (vals[id]-min)/(max-min)*(hi-lo)
		}
		var err error
		cur, err = cur.setNodeAttr(id, key, scaled, false)
		if err != nil {
			return g, err
		}
	}

	// cur is a private clone chain at this point; collapse in place.
	cur.collapseSince(mark, "rescale_node_attr_ws", start)
	out := cur
	if trigger && len(cur.actions) > 0 {
		res, err := cur.runActions()
		if err != nil {
			slog.Warn("graph action batch aborted", "function", "rescale_node_attr_ws", "error", err)
		} else {
			out = res
		}
	}
	out.autoSnapshot()
	return out, nil
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
