package graph

import (
	"sort"

	"proximity-planner/internal/geo"
)

// Build connects every pair of points whose great-circle distance is
// strictly below thresholdKm and drops points left without neighbours.
//
// Each unordered pair is measured once and the weight is stored in both
// directions. When two points share a name the later one wins. Points with
// coordinates outside the WGS84 range are ignored. A threshold that is not
// positive yields an empty graph.
func Build(points []geo.Point, thresholdKm float64) *Graph {
	g := &Graph{
		adj:       make(map[string]map[string]float64),
		points:    make(map[string]geo.Point),
		threshold: thresholdKm,
	}
	if !(thresholdKm > 0) {
		return g
	}

	nodes := uniquePoints(points)
	index := newSpatialIndex(nodes)

	for i, p := range nodes {
		for _, j := range index.candidates(geo.SearchWindows(p, thresholdKm)) {
			// Only look forward so each pair is measured once.
			if j <= i {
				continue
			}
			q := nodes[j]
			if _, seen := g.adj[p.Name][q.Name]; seen {
				continue // reported by two windows
			}
			d := geo.DistanceKm(p, q)
			if d < thresholdKm {
				g.link(p, q, d)
			}
		}
	}

	return g
}

func (g *Graph) link(a, b geo.Point, km float64) {
	g.neighbours(a)[b.Name] = km
	g.neighbours(b)[a.Name] = km
}

func (g *Graph) neighbours(p geo.Point) map[string]float64 {
	nbrs, ok := g.adj[p.Name]
	if !ok {
		nbrs = make(map[string]float64)
		g.adj[p.Name] = nbrs
		g.points[p.Name] = p
	}
	return nbrs
}

// uniquePoints drops invalid points, keeps the last point per name and
// returns them sorted by name.
func uniquePoints(points []geo.Point) []geo.Point {
	byName := make(map[string]geo.Point, len(points))
	for _, p := range points {
		if !p.Valid() {
			continue
		}
		byName[p.Name] = p
	}
	out := make([]geo.Point, 0, len(byName))
	for _, p := range byName {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
