// Package graph builds undirected proximity graphs over named geographic
// points. Two points are adjacent when their great-circle distance is
// strictly below the build threshold; points without neighbours are left
// out of the graph entirely.
//
// A Graph is immutable once built and safe for concurrent readers.
package graph

import (
	"sort"

	"proximity-planner/internal/geo"
)

// Graph is a weighted undirected proximity graph. Edge weights are
// great-circle distances in kilometers.
type Graph struct {
	adj       map[string]map[string]float64
	points    map[string]geo.Point
	threshold float64
}

// Edge is an undirected edge, reported once with From < To.
type Edge struct {
	From     string  `json:"from"`
	To       string  `json:"to"`
	WeightKm float64 `json:"weightKm"`
}

// ThresholdKm returns the threshold the graph was built with.
func (g *Graph) ThresholdKm() float64 {
	return g.threshold
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.adj)
}

// HasNode reports whether id survived pruning.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.adj[id]
	return ok
}

// Nodes returns the node identifiers in ascending order.
func (g *Graph) Nodes() []string {
	ids := make([]string, 0, len(g.adj))
	for id := range g.adj {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Point returns the coordinates of node id.
func (g *Graph) Point(id string) (geo.Point, bool) {
	p, ok := g.points[id]
	return p, ok
}

// Neighbors returns a copy of the neighbour → weight mapping of id, or nil
// if id is not a node.
func (g *Graph) Neighbors(id string) map[string]float64 {
	nbrs, ok := g.adj[id]
	if !ok {
		return nil
	}
	out := make(map[string]float64, len(nbrs))
	for to, w := range nbrs {
		out[to] = w
	}
	return out
}

// Weight returns the weight of edge a–b.
func (g *Graph) Weight(a, b string) (float64, bool) {
	w, ok := g.adj[a][b]
	return w, ok
}

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, nbrs := range g.adj {
		n += len(nbrs)
	}
	return n / 2
}

// Edges returns every undirected edge once, sorted by (From, To).
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, g.EdgeCount())
	for from, nbrs := range g.adj {
		for to, w := range nbrs {
			if from < to {
				edges = append(edges, Edge{From: from, To: to, WeightKm: w})
			}
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges
}
