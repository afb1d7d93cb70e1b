package graph

import (
	"errors"
	"testing"
)

func TestNewFilterRejectsBadExpression(t *testing.T) {
	if _, err := NewFilter(`attrs[`); !errors.Is(err, ErrInvalidAttribute) {
		t.Errorf("got %v, want ErrInvalidAttribute", err)
	}
	if _, err := NewFilter(`nope > 3`); !errors.Is(err, ErrInvalidAttribute) {
		t.Errorf("undeclared var: got %v, want ErrInvalidAttribute", err)
	}
}

func TestFilterMatchNode(t *testing.T) {
	f, err := NewFilter(`attrs["weight"] > 2.0 && attrs["kind"] == "road"`)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	cases := []struct {
		attrs map[string]any
		want  bool
	}{
		{map[string]any{"weight": 3.0, "kind": "road"}, true},
		{map[string]any{"weight": 1.0, "kind": "road"}, false},
		{map[string]any{"weight": 3.0, "kind": "rail"}, false},
		// Missing key is an evaluation error, which counts as a non-match.
		{map[string]any{"kind": "road"}, false},
		{nil, false},
	}
	for i, c := range cases {
		if got := f.MatchNode(Node{ID: 1, Attrs: c.attrs}); got != c.want {
			t.Errorf("case %d: MatchNode = %t, want %t", i, got, c.want)
		}
	}
}

func TestFilterHasGuard(t *testing.T) {
	f, err := NewFilter(`has(attrs.weight) && attrs.weight > 2.0`)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	if f.MatchNode(Node{ID: 1}) {
		t.Error("matched node without the attribute")
	}
	if !f.MatchNode(Node{ID: 1, Attrs: map[string]any{"weight": 5.0}}) {
		t.Error("guarded access did not match")
	}
}

func TestFilterEdgeEndpointVars(t *testing.T) {
	f, err := NewFilter(`from == 1 && to != id`)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	if !f.MatchEdge(Edge{ID: 9, From: 1, To: 2}) {
		t.Error("edge did not match")
	}
	if f.MatchEdge(Edge{ID: 9, From: 2, To: 1}) {
		t.Error("wrong edge matched")
	}
}

func TestFilterNodeSeesSentinelEndpoints(t *testing.T) {
	f, err := NewFilter(`from == -1 && to == -1`)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	if !f.MatchNode(Node{ID: 3}) {
		t.Error("node rows must expose from/to as -1")
	}
}

func TestFilterNonBoolResultIsNonMatch(t *testing.T) {
	f, err := NewFilter(`id + 1`)
	if err != nil {
		t.Fatalf("NewFilter: %v", err)
	}
	if f.MatchNode(Node{ID: 1}) {
		t.Error("non-boolean result matched")
	}
}
