package metrics

import (
	"fmt"

	"github.com/graphmill/graphmill/pkg/graph"
)

// Jaccard returns the pairwise Jaccard similarity of the given nodes'
// neighborhoods: |N(a) ∩ N(b)| / |N(a) ∪ N(b)|, with neighborhoods taken
// over both edge directions. Two nodes with empty neighborhoods score 0.
// The matrix is indexed like ids.
func Jaccard(g *graph.Graph, ids []int64) ([][]float64, error) {
	if err := check(g); err != nil {
		return nil, err
	}
	for _, id := range ids {
		if !g.HasNode(id) {
			return nil, fmt.Errorf("jaccard: node %d: %w", id, graph.ErrNotFound)
		}
	}

	nbrs := make([]map[int64]struct{}, len(ids))
	for i, id := range ids {
		nbrs[i] = neighborhood(g, id)
	}

	out := make([][]float64, len(ids))
	for i := range ids {
		out[i] = make([]float64, len(ids))
		for j := range ids {
			if j < i {
				out[i][j] = out[j][i]
				continue
			}
			out[i][j] = jaccard(nbrs[i], nbrs[j])
		}
	}
	return out, nil
}

func neighborhood(g *graph.Graph, id int64) map[int64]struct{} {
	out := make(map[int64]struct{})
	for _, e := range g.Edges() {
		if e.From == id {
			out[e.To] = struct{}{}
		}
		if e.To == id {
			out[e.From] = struct{}{}
		}
	}
	return out
}

func jaccard(a, b map[int64]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
