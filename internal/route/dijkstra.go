// Package route finds minimum-weight paths through proximity graphs using
// Dijkstra's algorithm.
package route

import (
	"container/heap"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNodeNotFound means the start or end identifier is not a node of the graph.
	ErrNodeNotFound = errors.New("node not found in graph")
	// ErrNotConnected means both nodes exist but no path joins them.
	ErrNotConnected = errors.New("nodes are not connected")
	// ErrNegativeWeight means an edge with a negative or NaN weight was met.
	ErrNegativeWeight = errors.New("negative edge weight")
)

// Network is the read-only view of a graph the solver needs.
type Network interface {
	HasNode(id string) bool
	Neighbors(id string) map[string]float64
}

// Path is an ordered sequence of adjacent nodes from start to end
// inclusive, with the sum of its edge weights.
type Path struct {
	Nodes      []string `json:"nodes"`
	DistanceKm float64  `json:"distanceKm"`
}

// node is a frontier entry.
type node struct {
	id    string
	dist  float64 // tentative distance from start
	index int     // index in the heap
}

// frontier implements heap.Interface ordered by tentative distance, ties
// broken by the lower identifier.
type frontier []*node

func (f frontier) Len() int { return len(f) }

func (f frontier) Less(i, j int) bool {
	if f[i].dist != f[j].dist {
		return f[i].dist < f[j].dist
	}
	return f[i].id < f[j].id
}

func (f frontier) Swap(i, j int) {
	f[i], f[j] = f[j], f[i]
	f[i].index = i
	f[j].index = j
}

func (f *frontier) Push(x interface{}) {
	n := x.(*node)
	n.index = len(*f)
	*f = append(*f, n)
}

func (f *frontier) Pop() interface{} {
	old := *f
	last := len(old) - 1
	n := old[last]
	old[last] = nil
	n.index = -1
	*f = old[:last]
	return n
}

// ShortestPath returns the minimum-weight path from start to end.
//
// It returns an error wrapping ErrNodeNotFound when either endpoint is not
// in g, and one wrapping ErrNotConnected when both are present but lie in
// different components. Weights must be non-negative. When start == end
// the path is the single node with distance 0.
func ShortestPath(g Network, start, end string) (Path, error) {
	if g == nil {
		return Path{}, fmt.Errorf("%w: %q", ErrNodeNotFound, start)
	}
	for _, id := range []string{start, end} {
		if !g.HasNode(id) {
			return Path{}, fmt.Errorf("%w: %q", ErrNodeNotFound, id)
		}
	}
	if start == end {
		return Path{Nodes: []string{start}}, nil
	}

	// Nodes absent from both open and settled are unvisited, at +inf.
	open := map[string]*node{}
	settled := map[string]bool{}
	prev := map[string]string{}

	pq := &frontier{}
	first := &node{id: start}
	heap.Push(pq, first)
	open[start] = first

	for pq.Len() > 0 {
		current := heap.Pop(pq).(*node)
		delete(open, current.id)
		settled[current.id] = true

		if current.id == end {
			return Path{Nodes: walkBack(prev, start, end), DistanceKm: current.dist}, nil
		}

		for to, w := range g.Neighbors(current.id) {
			if w < 0 || math.IsNaN(w) {
				return Path{}, fmt.Errorf("%w: %s→%s weight=%v", ErrNegativeWeight, current.id, to, w)
			}
			if settled[to] {
				continue
			}

			tentative := current.dist + w
			next, ok := open[to]
			if !ok {
				next = &node{id: to, dist: tentative}
				heap.Push(pq, next)
				open[to] = next
				prev[to] = current.id
			} else if tentative < next.dist {
				next.dist = tentative
				prev[to] = current.id
				heap.Fix(pq, next.index)
			}
		}
	}

	return Path{}, fmt.Errorf("%w: %q and %q", ErrNotConnected, start, end)
}

// walkBack follows predecessor links from end to start and returns the
// nodes in start→end order.
func walkBack(prev map[string]string, start, end string) []string {
	path := []string{end}
	for id := end; id != start; {
		id = prev[id]
		path = append(path, id)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
