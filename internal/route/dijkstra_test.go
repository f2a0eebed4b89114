package route_test

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proximity-planner/internal/geo"
	"proximity-planner/internal/graph"
	"proximity-planner/internal/route"
)

// network is a hand-built adjacency map for synthetic graphs.
type network map[string]map[string]float64

func (n network) HasNode(id string) bool {
	_, ok := n[id]
	return ok
}

func (n network) Neighbors(id string) map[string]float64 {
	return n[id]
}

func (n network) edge(a, b string, w float64) {
	if n[a] == nil {
		n[a] = map[string]float64{}
	}
	if n[b] == nil {
		n[b] = map[string]float64{}
	}
	n[a][b] = w
	n[b][a] = w
}

func TestShortestPath_ColinearCities(t *testing.T) {
	a := geo.Point{Name: "A", Lat: 0, Lon: 0}
	b := geo.Point{Name: "B", Lat: 0, Lon: 1}
	c := geo.Point{Name: "C", Lat: 0, Lon: 2}
	ab, bc := geo.DistanceKm(a, b), geo.DistanceKm(b, c)

	g := graph.Build([]geo.Point{a, b, c}, 1.5*ab)
	path, err := route.ShortestPath(g, "A", "C")

	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, path.Nodes)
	assert.InDelta(t, ab+bc, path.DistanceKm, 1e-9)
}

func TestShortestPath_PrefersCheaperDetour(t *testing.T) {
	n := network{}
	n.edge("A", "B", 1)
	n.edge("B", "C", 2)
	n.edge("A", "C", 5)

	path, err := route.ShortestPath(n, "A", "C")

	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, path.Nodes)
	assert.Equal(t, 3.0, path.DistanceKm)
}

func TestShortestPath_SameNode(t *testing.T) {
	n := network{}
	n.edge("A", "B", 1)

	path, err := route.ShortestPath(n, "A", "A")

	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, path.Nodes)
	assert.Zero(t, path.DistanceKm)
}

func TestShortestPath_NodeNotFound(t *testing.T) {
	n := network{}
	n.edge("A", "B", 1)

	_, err := route.ShortestPath(n, "A", "Z")
	require.ErrorIs(t, err, route.ErrNodeNotFound)
	assert.NotErrorIs(t, err, route.ErrNotConnected)
	assert.Contains(t, err.Error(), `"Z"`)

	_, err = route.ShortestPath(n, "Z", "A")
	assert.ErrorIs(t, err, route.ErrNodeNotFound)

	_, err = route.ShortestPath(nil, "A", "B")
	assert.ErrorIs(t, err, route.ErrNodeNotFound)
}

func TestShortestPath_EmptyGraphIsNodeNotFound(t *testing.T) {
	g := graph.Build([]geo.Point{{Name: "A"}, {Name: "B", Lon: 10}}, 1)
	require.Zero(t, g.Len())

	_, err := route.ShortestPath(g, "A", "B")
	assert.ErrorIs(t, err, route.ErrNodeNotFound)
}

func TestShortestPath_NotConnected(t *testing.T) {
	// Two clusters far apart: every cross pair is disconnected.
	var pts []geo.Point
	for i := 0; i < 4; i++ {
		pts = append(pts,
			geo.Point{Name: fmt.Sprintf("west%d", i), Lat: 50, Lon: -5 + 0.2*float64(i)},
			geo.Point{Name: fmt.Sprintf("east%d", i), Lat: 50, Lon: 40 + 0.2*float64(i)},
		)
	}
	g := graph.Build(pts, 100)
	require.Equal(t, 8, g.Len())

	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			_, err := route.ShortestPath(g, fmt.Sprintf("west%d", i), fmt.Sprintf("east%d", j))
			assert.ErrorIs(t, err, route.ErrNotConnected)
			assert.NotErrorIs(t, err, route.ErrNodeNotFound)
		}
	}
}

func TestShortestPath_NegativeWeight(t *testing.T) {
	n := network{}
	n.edge("A", "B", -1)

	_, err := route.ShortestPath(n, "A", "B")
	assert.ErrorIs(t, err, route.ErrNegativeWeight)
}

func TestShortestPath_TieBreakIsDeterministic(t *testing.T) {
	// Two equal-length routes A-B-D and A-C-D.
	n := network{}
	n.edge("A", "B", 1)
	n.edge("A", "C", 1)
	n.edge("B", "D", 1)
	n.edge("C", "D", 1)

	for i := 0; i < 20; i++ {
		path, err := route.ShortestPath(n, "A", "D")
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B", "D"}, path.Nodes)
		assert.Equal(t, 2.0, path.DistanceKm)
	}
}

// On small random graphs the solver must match exhaustive enumeration of
// simple paths, and every returned path must be a valid walk whose weights
// add up to the reported distance.
func TestShortestPath_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	for trial := 0; trial < 200; trial++ {
		n := randomNetwork(rng, 2+rng.Intn(7), 0.4)
		ids := make([]string, 0, len(n))
		for id := range n {
			ids = append(ids, id)
		}
		if len(ids) < 2 {
			continue
		}
		start, end := ids[rng.Intn(len(ids))], ids[rng.Intn(len(ids))]

		best, reachable := bruteForce(n, start, end)
		path, err := route.ShortestPath(n, start, end)
		if !reachable {
			assert.ErrorIs(t, err, route.ErrNotConnected, "trial %d", trial)
			continue
		}
		require.NoError(t, err, "trial %d", trial)
		assert.InDelta(t, best, path.DistanceKm, 1e-6, "trial %d", trial)
		assertValidPath(t, n, path, start, end)

		again, err := route.ShortestPath(n, start, end)
		require.NoError(t, err)
		assert.Equal(t, path, again)
	}
}

func TestShortestPath_BuiltGraphPathsAreValid(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	pts := make([]geo.Point, 60)
	for i := range pts {
		pts[i] = geo.Point{
			Name: fmt.Sprintf("c%02d", i),
			Lat:  50 + rng.Float64()*5,
			Lon:  -5 + rng.Float64()*6,
		}
	}
	g := graph.Build(pts, 90)
	nodes := g.Nodes()
	require.NotEmpty(t, nodes)

	for i := 0; i < 50; i++ {
		start, end := nodes[rng.Intn(len(nodes))], nodes[rng.Intn(len(nodes))]
		path, err := route.ShortestPath(g, start, end)
		if err != nil {
			require.ErrorIs(t, err, route.ErrNotConnected)
			continue
		}
		assertValidPath(t, g, path, start, end)
	}
}

func assertValidPath(t *testing.T, n route.Network, path route.Path, start, end string) {
	t.Helper()
	require.NotEmpty(t, path.Nodes)
	assert.Equal(t, start, path.Nodes[0])
	assert.Equal(t, end, path.Nodes[len(path.Nodes)-1])

	total := 0.0
	for i := 1; i < len(path.Nodes); i++ {
		w, ok := n.Neighbors(path.Nodes[i-1])[path.Nodes[i]]
		require.True(t, ok, "%s and %s are not adjacent", path.Nodes[i-1], path.Nodes[i])
		total += w
	}
	assert.InDelta(t, total, path.DistanceKm, 1e-6)
}

func randomNetwork(rng *rand.Rand, size int, density float64) network {
	n := network{}
	for i := 0; i < size; i++ {
		for j := i + 1; j < size; j++ {
			if rng.Float64() < density {
				n.edge(fmt.Sprintf("n%d", i), fmt.Sprintf("n%d", j), float64(rng.Intn(20)))
			}
		}
	}
	return n
}

// bruteForce enumerates every simple path from start to end.
func bruteForce(n network, start, end string) (float64, bool) {
	best := math.Inf(1)
	visited := map[string]bool{start: true}
	var walk func(at string, dist float64)
	walk = func(at string, dist float64) {
		if at == end {
			best = math.Min(best, dist)
			return
		}
		for to, w := range n[at] {
			if visited[to] {
				continue
			}
			visited[to] = true
			walk(to, dist+w)
			visited[to] = false
		}
	}
	walk(start, 0)
	return best, !math.IsInf(best, 1)
}
