package graph

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Node is one row of the node table. IDs are monotonic, assigned at
// creation, and never reused within a session. Attrs is an open-ended
// attribute mapping; an absent key is the null marker.
type Node struct {
	ID    int64          `json:"id"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Edge is one row of the edge table. From and To always reference existing
// node IDs. Self-loops are permitted.
type Edge struct {
	ID    int64          `json:"id"`
	From  int64          `json:"from"`
	To    int64          `json:"to"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// NodeSpec is one row of a bulk node insert.
type NodeSpec struct {
	Attrs map[string]any
}

// EdgeSpec is one row of a bulk edge insert.
type EdgeSpec struct {
	From  int64
	To    int64
	Attrs map[string]any
}

// Config holds the graph-scoped settings. It lives on the graph value
// itself (not process-wide) so behavior is reproducible from the value
// alone.
type Config struct {
	// SnapshotDir is where Snapshot writes serialized graph files.
	SnapshotDir string `json:"snapshot_dir,omitempty"`

	// AutoSnapshot persists a full snapshot after every successful
	// mutation. Snapshot failures are logged and never fail the mutation.
	AutoSnapshot bool `json:"auto_snapshot,omitempty"`

	// Session identifies this graph session in snapshot file names.
	Session string `json:"session"`
}

// Graph is an immutable graph value: two tables (nodes, edges), the current
// selection, the registered graph actions, and the action log. Operations
// return new values; a failed operation returns its input unchanged.
type Graph struct {
	directed bool
	version  int64
	nextNode int64
	nextEdge int64

	nodes   []Node
	edges   []Edge
	nodeIdx map[int64]int // node ID -> position in nodes
	edgeIdx map[int64]int // edge ID -> position in edges

	sel     Selection
	actions []Action
	log     []LogEntry

	cfg  Config
	init bool
}

// New returns an empty graph with the given directedness and a fresh
// session ID.
func New(directed bool) *Graph {
	return NewWithConfig(directed, Config{})
}

// NewWithConfig returns an empty graph using the supplied settings. A
// missing session ID is filled in.
func NewWithConfig(directed bool, cfg Config) *Graph {
	if cfg.Session == "" {
		cfg.Session = uuid.NewString()
	}
	return &Graph{
		directed: directed,
		nodeIdx:  make(map[int64]int),
		edgeIdx:  make(map[int64]int),
		nextNode: 1,
		nextEdge: 1,
		cfg:      cfg,
		init:     true,
	}
}

func (g *Graph) valid() error {
	if g == nil || !g.init {
		return ErrInvalidGraph
	}
	return nil
}

// Validate reports whether this is a usable graph value. External
// consumers (metrics, scripts) gate on this the way every operation here
// does internally.
func (g *Graph) Validate() error { return g.valid() }

// clone makes a copy-on-write duplicate. Tables and index maps are copied;
// individual attribute maps are shared until an attribute setter replaces
// them, so clones stay cheap.
func (g *Graph) clone() *Graph {
	ng := &Graph{
		directed: g.directed,
		version:  g.version,
		nextNode: g.nextNode,
		nextEdge: g.nextEdge,
		nodes:    append([]Node(nil), g.nodes...),
		edges:    append([]Edge(nil), g.edges...),
		nodeIdx:  make(map[int64]int, len(g.nodeIdx)),
		edgeIdx:  make(map[int64]int, len(g.edgeIdx)),
		sel:      g.sel.clone(),
		actions:  append([]Action(nil), g.actions...),
		log:      append([]LogEntry(nil), g.log...),
		cfg:      g.cfg,
		init:     true,
	}
	for k, v := range g.nodeIdx {
		ng.nodeIdx[k] = v
	}
	for k, v := range g.edgeIdx {
		ng.edgeIdx[k] = v
	}
	return ng
}

// commit finalizes a mutation on an exclusively-owned clone: bump the
// version, append one log entry, re-run graph actions if asked, and
// auto-snapshot. The receiver must never be a value the caller still holds.
func (g *Graph) commit(fn string, start time.Time, trigger bool) *Graph {
	g.version++
	g.log = append(g.log, LogEntry{
		Version:  g.version,
		Function: fn,
		Time:     start,
		Duration: time.Since(start),
		Nodes:    len(g.nodes),
		Edges:    len(g.edges),
	})
	out := g
	if trigger && len(g.actions) > 0 {
		res, err := g.runActions()
		if err != nil {
			// The batch is aborted; the mutation itself stands.
			slog.Warn("graph action batch aborted", "function", fn, "error", err)
		} else {
			out = res
		}
	}
	out.autoSnapshot()
	return out
}

// AddNode appends a node with the given attributes and returns the new
// graph and the assigned node ID.
func (g *Graph) AddNode(attrs map[string]any) (*Graph, int64, error) {
	if err := g.valid(); err != nil {
		return g, 0, err
	}
	start := time.Now()
	ng := g.clone()
	id := ng.addNodeRow(attrs)
	return ng.commit("add_node", start, true), id, nil
}

func (g *Graph) addNodeRow(attrs map[string]any) int64 {
	id := g.nextNode
	g.nextNode++
	g.nodeIdx[id] = len(g.nodes)
	g.nodes = append(g.nodes, Node{ID: id, Attrs: cloneAttrs(attrs)})
	return id
}

// AddNodes inserts a whole table of nodes. All rows are validated before
// any is committed; the operation appends a single log entry.
func (g *Graph) AddNodes(specs []NodeSpec) (*Graph, []int64, error) {
	if err := g.valid(); err != nil {
		return g, nil, err
	}
	start := time.Now()
	ng := g.clone()
	ids := make([]int64, 0, len(specs))
	for _, s := range specs {
		ids = append(ids, ng.addNodeRow(s.Attrs))
	}
	return ng.commit("add_nodes", start, true), ids, nil
}

// AddEdge appends an edge from -> to. Both endpoints must already exist.
func (g *Graph) AddEdge(from, to int64, attrs map[string]any) (*Graph, int64, error) {
	if err := g.valid(); err != nil {
		return g, 0, err
	}
	if err := g.checkEndpoints(from, to); err != nil {
		return g, 0, err
	}
	start := time.Now()
	ng := g.clone()
	id := ng.addEdgeRow(from, to, attrs)
	return ng.commit("add_edge", start, true), id, nil
}

func (g *Graph) addEdgeRow(from, to int64, attrs map[string]any) int64 {
	id := g.nextEdge
	g.nextEdge++
	g.edgeIdx[id] = len(g.edges)
	g.edges = append(g.edges, Edge{ID: id, From: from, To: to, Attrs: cloneAttrs(attrs)})
	return id
}

func (g *Graph) checkEndpoints(from, to int64) error {
	if _, ok := g.nodeIdx[from]; !ok {
		return fmt.Errorf("add_edge: from node %d: %w", from, ErrReferentialIntegrity)
	}
	if _, ok := g.nodeIdx[to]; !ok {
		return fmt.Errorf("add_edge: to node %d: %w", to, ErrReferentialIntegrity)
	}
	return nil
}

// AddEdges inserts a whole table of edges. Every row is validated against
// the current node table before any row is committed.
func (g *Graph) AddEdges(specs []EdgeSpec) (*Graph, []int64, error) {
	if err := g.valid(); err != nil {
		return g, nil, err
	}
	for i, s := range specs {
		if err := g.checkEndpoints(s.From, s.To); err != nil {
			return g, nil, fmt.Errorf("row %d: %w", i, err)
		}
	}
	start := time.Now()
	ng := g.clone()
	ids := make([]int64, 0, len(specs))
	for _, s := range specs {
		ids = append(ids, ng.addEdgeRow(s.From, s.To, s.Attrs))
	}
	return ng.commit("add_edges", start, true), ids, nil
}

// DeleteNode removes a node and every edge incident to it, and drops the
// node and those edges from the current selection.
func (g *Graph) DeleteNode(id int64) (*Graph, error) {
	if err := g.valid(); err != nil {
		return g, err
	}
	if _, ok := g.nodeIdx[id]; !ok {
		return g, fmt.Errorf("delete_node: node %d: %w", id, ErrNotFound)
	}
	start := time.Now()
	ng := g.clone()
	ng.deleteNodeRow(id)
	return ng.commit("delete_node", start, true), nil
}

func (g *Graph) deleteNodeRow(id int64) {
	kept := g.nodes[:0:0]
	for _, n := range g.nodes {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	g.nodes = kept

	var removedEdges []int64
	keptEdges := g.edges[:0:0]
	for _, e := range g.edges {
		if e.From == id || e.To == id {
			removedEdges = append(removedEdges, e.ID)
			continue
		}
		keptEdges = append(keptEdges, e)
	}
	g.edges = keptEdges
	g.reindex()

	g.sel.dropNode(id)
	for _, eid := range removedEdges {
		g.sel.dropEdge(eid)
	}
}

// DeleteEdge removes a single edge and drops it from the selection.
func (g *Graph) DeleteEdge(id int64) (*Graph, error) {
	if err := g.valid(); err != nil {
		return g, err
	}
	if _, ok := g.edgeIdx[id]; !ok {
		return g, fmt.Errorf("delete_edge: edge %d: %w", id, ErrNotFound)
	}
	start := time.Now()
	ng := g.clone()
	ng.deleteEdgeRow(id)
	return ng.commit("delete_edge", start, true), nil
}

func (g *Graph) deleteEdgeRow(id int64) {
	kept := g.edges[:0:0]
	for _, e := range g.edges {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	g.edges = kept
	g.reindex()
	g.sel.dropEdge(id)
}

func (g *Graph) reindex() {
	g.nodeIdx = make(map[int64]int, len(g.nodes))
	for i, n := range g.nodes {
		g.nodeIdx[n.ID] = i
	}
	g.edgeIdx = make(map[int64]int, len(g.edges))
	for i, e := range g.edges {
		g.edgeIdx[e.ID] = i
	}
}

// SetNodeAttr sets one attribute on one node.
func (g *Graph) SetNodeAttr(id int64, key string, value any) (*Graph, error) {
	return g.setNodeAttr(id, key, value, true)
}

func (g *Graph) setNodeAttr(id int64, key string, value any, trigger bool) (*Graph, error) {
	if err := g.valid(); err != nil {
		return g, err
	}
	i, ok := g.nodeIdx[id]
	if !ok {
		return g, fmt.Errorf("set_node_attr: node %d: %w", id, ErrNotFound)
	}
	if key == "" {
		return g, fmt.Errorf("set_node_attr: empty attribute name: %w", ErrInvalidAttribute)
	}
	start := time.Now()
	ng := g.clone()
	attrs := cloneAttrs(ng.nodes[i].Attrs)
	if attrs == nil {
		attrs = make(map[string]any, 1)
	}
	attrs[key] = value
	ng.nodes[i].Attrs = attrs
	return ng.commit("set_node_attr", start, trigger), nil
}

// SetEdgeAttr sets one attribute on one edge.
func (g *Graph) SetEdgeAttr(id int64, key string, value any) (*Graph, error) {
	if err := g.valid(); err != nil {
		return g, err
	}
	i, ok := g.edgeIdx[id]
	if !ok {
		return g, fmt.Errorf("set_edge_attr: edge %d: %w", id, ErrNotFound)
	}
	if key == "" {
		return g, fmt.Errorf("set_edge_attr: empty attribute name: %w", ErrInvalidAttribute)
	}
	start := time.Now()
	ng := g.clone()
	attrs := cloneAttrs(ng.edges[i].Attrs)
	if attrs == nil {
		attrs = make(map[string]any, 1)
	}
	attrs[key] = value
	ng.edges[i].Attrs = attrs
	return ng.commit("set_edge_attr", start, true), nil
}

// SetNodeAttrs sets one attribute across many nodes in a single logged
// operation. Metric write-backs use this so a whole metric lands as one
// log entry.
func (g *Graph) SetNodeAttrs(key string, values map[int64]any) (*Graph, error) {
	if err := g.valid(); err != nil {
		return g, err
	}
	if key == "" {
		return g, fmt.Errorf("set_node_attrs: empty attribute name: %w", ErrInvalidAttribute)
	}
	for id := range values {
		if _, ok := g.nodeIdx[id]; !ok {
			return g, fmt.Errorf("set_node_attrs: node %d: %w", id, ErrNotFound)
		}
	}
	start := time.Now()
	ng := g.clone()
	for id, v := range values {
		i := ng.nodeIdx[id]
		attrs := cloneAttrs(ng.nodes[i].Attrs)
		if attrs == nil {
			attrs = make(map[string]any, 1)
		}
		attrs[key] = v
		ng.nodes[i].Attrs = attrs
	}
	return ng.commit("set_node_attrs", start, true), nil
}

// Directed reports whether the graph is directed.
func (g *Graph) Directed() bool { return g != nil && g.directed }

// Version returns the mutation counter.
func (g *Graph) Version() int64 {
	if g == nil {
		return 0
	}
	return g.version
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	if g == nil {
		return 0
	}
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	if g == nil {
		return 0
	}
	return len(g.edges)
}

// Nodes returns a copy of the node table in creation order.
func (g *Graph) Nodes() []Node {
	if g == nil {
		return nil
	}
	return append([]Node(nil), g.nodes...)
}

// Edges returns a copy of the edge table in creation order.
func (g *Graph) Edges() []Edge {
	if g == nil {
		return nil
	}
	return append([]Edge(nil), g.edges...)
}

// Node returns a node row by ID.
func (g *Graph) Node(id int64) (Node, bool) {
	if g == nil {
		return Node{}, false
	}
	i, ok := g.nodeIdx[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// Edge returns an edge row by ID.
func (g *Graph) Edge(id int64) (Edge, bool) {
	if g == nil {
		return Edge{}, false
	}
	i, ok := g.edgeIdx[id]
	if !ok {
		return Edge{}, false
	}
	return g.edges[i], true
}

// HasNode reports whether a node ID exists.
func (g *Graph) HasNode(id int64) bool {
	if g == nil {
		return false
	}
	_, ok := g.nodeIdx[id]
	return ok
}

// HasEdge reports whether an edge ID exists.
func (g *Graph) HasEdge(id int64) bool {
	if g == nil {
		return false
	}
	_, ok := g.edgeIdx[id]
	return ok
}

// NodeAttr reads one node attribute. The second result is false when the
// node is missing or the attribute is null.
func (g *Graph) NodeAttr(id int64, key string) (any, bool) {
	n, ok := g.Node(id)
	if !ok {
		return nil, false
	}
	v, ok := n.Attrs[key]
	return v, ok
}

// EdgeAttr reads one edge attribute.
func (g *Graph) EdgeAttr(id int64, key string) (any, bool) {
	e, ok := g.Edge(id)
	if !ok {
		return nil, false
	}
	v, ok := e.Attrs[key]
	return v, ok
}

// NodeAttrNames returns the union of attribute names across all nodes,
// sorted. This is the shared column view of the node table.
func (g *Graph) NodeAttrNames() []string {
	if g == nil {
		return nil
	}
	return attrNames(func(yield func(map[string]any)) {
		for _, n := range g.nodes {
			yield(n.Attrs)
		}
	})
}

// EdgeAttrNames returns the union of attribute names across all edges,
// sorted.
func (g *Graph) EdgeAttrNames() []string {
	if g == nil {
		return nil
	}
	return attrNames(func(yield func(map[string]any)) {
		for _, e := range g.edges {
			yield(e.Attrs)
		}
	})
}

// Conf returns the graph-scoped settings.
func (g *Graph) Conf() Config {
	if g == nil {
		return Config{}
	}
	return g.cfg
}

// WithConfig returns a graph carrying the given settings. Not logged: the
// tables are untouched.
func (g *Graph) WithConfig(cfg Config) (*Graph, error) {
	if err := g.valid(); err != nil {
		return g, err
	}
	if cfg.Session == "" {
		cfg.Session = g.cfg.Session
	}
	ng := g.clone()
	ng.cfg = cfg
	return ng, nil
}

func attrNames(each func(func(map[string]any))) []string {
	seen := make(map[string]struct{})
	each(func(attrs map[string]any) {
		for k := range attrs {
			seen[k] = struct{}{}
		}
	})
	names := make([]string, 0, len(seen))
	for k := range seen {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func cloneAttrs(attrs map[string]any) map[string]any {
	if attrs == nil {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
