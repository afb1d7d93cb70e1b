package graph

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// snapshotFile is the on-disk shape of a full graph value. Everything the
// value holds goes in: tables, counters, selection, actions, log, and
// settings. Read back verbatim, no schema migration.
type snapshotFile struct {
	Directed   bool       `json:"directed"`
	Version    int64      `json:"version"`
	NextNodeID int64      `json:"next_node_id"`
	NextEdgeID int64      `json:"next_edge_id"`
	Nodes      []Node     `json:"nodes"`
	Edges      []Edge     `json:"edges"`
	Selection  Selection  `json:"selection"`
	Actions    []Action   `json:"actions,omitempty"`
	Log        []LogEntry `json:"log,omitempty"`
	Config     Config     `json:"config"`
}

// Snapshot writes the whole graph value as one JSON file named
// graphmill-<session>-v<version>.json under dir (falling back to the
// configured snapshot directory) and returns the file path.
func (g *Graph) Snapshot(dir string) (string, error) {
	if err := g.valid(); err != nil {
		return "", err
	}
	if dir == "" {
		dir = g.cfg.SnapshotDir
	}
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("snapshot: resolve home dir: %w", err)
		}
		dir = filepath.Join(home, ".graphmill")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}

	data, err := json.MarshalIndent(g.snapshot(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("graphmill-%s-v%d.json", g.cfg.Session, g.version))
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return "", fmt.Errorf("snapshot: %w", err)
	}
	return path, nil
}

func (g *Graph) snapshot() snapshotFile {
	return snapshotFile{
		Directed:   g.directed,
		Version:    g.version,
		NextNodeID: g.nextNode,
		NextEdgeID: g.nextEdge,
		Nodes:      g.nodes,
		Edges:      g.edges,
		Selection:  g.sel,
		Actions:    g.actions,
		Log:        g.log,
		Config:     g.cfg,
	}
}

// MarshalSnapshot serializes the graph value without touching the
// filesystem. Snapshot files and this function share one format.
func (g *Graph) MarshalSnapshot() ([]byte, error) {
	if err := g.valid(); err != nil {
		return nil, err
	}
	return json.MarshalIndent(g.snapshot(), "", "  ")
}

// LoadSnapshot reads a snapshot file back into a graph value.
func LoadSnapshot(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return UnmarshalSnapshot(data)
}

// UnmarshalSnapshot rebuilds a graph value from serialized snapshot bytes.
func UnmarshalSnapshot(data []byte) (*Graph, error) {
	var s snapshotFile
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	g := &Graph{
		directed: s.Directed,
		version:  s.Version,
		nextNode: s.NextNodeID,
		nextEdge: s.NextEdgeID,
		nodes:    s.Nodes,
		edges:    s.Edges,
		sel:      s.Selection,
		actions:  s.Actions,
		log:      s.Log,
		cfg:      s.Config,
		init:     true,
	}
	if g.nextNode < 1 {
		g.nextNode = 1
	}
	if g.nextEdge < 1 {
		g.nextEdge = 1
	}
	g.reindex()
	for _, e := range g.edges {
		if !g.HasNode(e.From) || !g.HasNode(e.To) {
			return nil, fmt.Errorf("load snapshot: edge %d: %w", e.ID, ErrReferentialIntegrity)
		}
	}
	return g, nil
}

// autoSnapshot persists the value after a mutation when configured. It
// must not block correctness: failures are logged and swallowed.
func (g *Graph) autoSnapshot() {
	if !g.cfg.AutoSnapshot {
		return
	}
	if _, err := g.Snapshot(g.cfg.SnapshotDir); err != nil {
		slog.Warn("auto snapshot failed", "session", g.cfg.Session, "error", err)
	}
}
