package planner_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proximity-planner/internal/dataset"
	"proximity-planner/internal/geo"
	"proximity-planner/internal/metrics"
	"proximity-planner/internal/planner"
	"proximity-planner/internal/route"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newUKPlanner(t *testing.T, opts planner.Options) *planner.Planner {
	t.Helper()
	opts.Logger = quietLogger()
	return planner.New(dataset.UKCities(), opts)
}

func TestRoute_UKCities(t *testing.T) {
	p := newUKPlanner(t, planner.Options{MinThresholdKm: 50, MaxThresholdKm: 300})

	r, err := p.Route(120, "London", "Manchester")

	require.NoError(t, err)
	assert.Equal(t, "London", r.Path.Nodes[0])
	assert.Equal(t, "Manchester", r.Path.Nodes[len(r.Path.Nodes)-1])
	require.Len(t, r.Points, len(r.Path.Nodes))

	total := 0.0
	for i := 1; i < len(r.Points); i++ {
		leg := geo.DistanceKm(r.Points[i-1], r.Points[i])
		assert.Less(t, leg, 120.0)
		total += leg
	}
	assert.InDelta(t, total, r.Path.DistanceKm, 1e-6)

	// The straight-line distance is a lower bound.
	london, manchester := r.Points[0], r.Points[len(r.Points)-1]
	assert.GreaterOrEqual(t, r.Path.DistanceKm, geo.DistanceKm(london, manchester))
}

func TestRoute_Errors(t *testing.T) {
	pts := []geo.Point{
		{Name: "A", Lat: 0, Lon: 0},
		{Name: "B", Lat: 0, Lon: 0.5},
		{Name: "C", Lat: 10, Lon: 10},
		{Name: "D", Lat: 10, Lon: 10.5},
	}
	p := planner.New(pts, planner.Options{Logger: quietLogger()})

	_, err := p.Route(100, "A", "C")
	assert.ErrorIs(t, err, route.ErrNotConnected)

	_, err = p.Route(100, "A", "Nowhere")
	assert.ErrorIs(t, err, route.ErrNodeNotFound)

	_, err = p.Route(0, "A", "B")
	assert.ErrorIs(t, err, planner.ErrThresholdOutOfRange)
}

func TestCheckThreshold(t *testing.T) {
	p := newUKPlanner(t, planner.Options{MinThresholdKm: 50, MaxThresholdKm: 300})

	assert.NoError(t, p.CheckThreshold(50))
	assert.NoError(t, p.CheckThreshold(300))
	assert.ErrorIs(t, p.CheckThreshold(49.9), planner.ErrThresholdOutOfRange)
	assert.ErrorIs(t, p.CheckThreshold(301), planner.ErrThresholdOutOfRange)
	assert.ErrorIs(t, p.CheckThreshold(-1), planner.ErrThresholdOutOfRange)
}

func TestGraph_CachedPerThreshold(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	p := newUKPlanner(t, planner.Options{CacheSize: 2, Metrics: m})

	g120, err := p.Graph(120)
	require.NoError(t, err)
	again, err := p.Graph(120)
	require.NoError(t, err)
	assert.Same(t, g120, again)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GraphBuilds))

	_, err = p.Graph(150)
	require.NoError(t, err)
	_, err = p.Graph(200)
	require.NoError(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CachedGraphs))

	// 120 was evicted, so it is rebuilt.
	rebuilt, err := p.Graph(120)
	require.NoError(t, err)
	assert.NotSame(t, g120, rebuilt)
	assert.Equal(t, g120.Edges(), rebuilt.Edges())
	assert.Equal(t, 4.0, testutil.ToFloat64(m.GraphBuilds))
}

func TestGraph_LargerThresholdKeepsMoreNodes(t *testing.T) {
	p := newUKPlanner(t, planner.Options{})

	small, err := p.Graph(20)
	require.NoError(t, err)
	large, err := p.Graph(300)
	require.NoError(t, err)

	assert.Less(t, small.Len(), large.Len())
	assert.Equal(t, 82, large.Len())
}

func TestPoints_ReturnsCopy(t *testing.T) {
	p := newUKPlanner(t, planner.Options{})

	pts := p.Points()
	pts[0].Name = "changed"

	assert.Equal(t, "London", p.Points()[0].Name)
}
