// Package planner ties a point dataset to the graph builder and the
// shortest-path solver. It keeps one immutable graph per threshold and
// rebuilds only when a new threshold is requested.
package planner

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"proximity-planner/internal/geo"
	"proximity-planner/internal/graph"
	"proximity-planner/internal/metrics"
	"proximity-planner/internal/route"
)

// ErrThresholdOutOfRange is returned for thresholds outside the configured limits.
var ErrThresholdOutOfRange = errors.New("threshold out of range")

const defaultCacheSize = 16

// Options configures a Planner. Zero limits disable range checking apart
// from requiring a positive threshold.
type Options struct {
	MinThresholdKm float64
	MaxThresholdKm float64
	CacheSize      int
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
}

// Planner serves graphs and routes for a fixed set of points. It is safe
// for concurrent use.
type Planner struct {
	points  []geo.Point
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	graphs map[float64]*graph.Graph
	order  []float64 // insertion order for eviction
}

// Route is a solved path with the coordinates of each node on it.
type Route struct {
	ThresholdKm float64     `json:"thresholdKm"`
	Path        route.Path  `json:"path"`
	Points      []geo.Point `json:"points"`
}

// New creates a Planner over points. The slice is copied.
func New(points []geo.Point, opts Options) *Planner {
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{
		points:  append([]geo.Point(nil), points...),
		opts:    opts,
		logger:  logger,
		metrics: opts.Metrics,
		graphs:  make(map[float64]*graph.Graph),
	}
}

// Points returns a copy of the dataset.
func (p *Planner) Points() []geo.Point {
	return append([]geo.Point(nil), p.points...)
}

// CheckThreshold validates km against the configured range.
func (p *Planner) CheckThreshold(km float64) error {
	if math.IsNaN(km) || math.IsInf(km, 0) || km <= 0 {
		return fmt.Errorf("%w: %v km must be positive", ErrThresholdOutOfRange, km)
	}
	if p.opts.MinThresholdKm > 0 && km < p.opts.MinThresholdKm {
		return fmt.Errorf("%w: %v km below minimum %v km", ErrThresholdOutOfRange, km, p.opts.MinThresholdKm)
	}
	if p.opts.MaxThresholdKm > 0 && km > p.opts.MaxThresholdKm {
		return fmt.Errorf("%w: %v km above maximum %v km", ErrThresholdOutOfRange, km, p.opts.MaxThresholdKm)
	}
	return nil
}

// Graph returns the proximity graph for the threshold, building it on
// first use.
func (p *Planner) Graph(thresholdKm float64) (*graph.Graph, error) {
	if err := p.CheckThreshold(thresholdKm); err != nil {
		return nil, err
	}

	p.mu.RLock()
	g, ok := p.graphs[thresholdKm]
	p.mu.RUnlock()
	if ok {
		return g, nil
	}

	start := time.Now()
	g = graph.Build(p.points, thresholdKm)
	elapsed := time.Since(start)

	p.mu.Lock()
	defer p.mu.Unlock()
	if cached, ok := p.graphs[thresholdKm]; ok {
		// Another caller built it first.
		return cached, nil
	}
	if len(p.order) >= p.opts.CacheSize {
		oldest := p.order[0]
		p.order = p.order[1:]
		delete(p.graphs, oldest)
	}
	p.graphs[thresholdKm] = g
	p.order = append(p.order, thresholdKm)

	if p.metrics != nil {
		p.metrics.GraphBuilds.Inc()
		p.metrics.BuildSeconds.Observe(elapsed.Seconds())
		p.metrics.CachedGraphs.Set(float64(len(p.graphs)))
	}
	p.logger.Info("Proximity graph built",
		"threshold_km", thresholdKm,
		"points", len(p.points),
		"nodes", g.Len(),
		"edges", g.EdgeCount(),
		"elapsed", elapsed,
	)
	return g, nil
}

// Route solves the shortest path between start and end at the threshold.
// Errors wrap ErrThresholdOutOfRange, route.ErrNodeNotFound or
// route.ErrNotConnected.
func (p *Planner) Route(thresholdKm float64, start, end string) (Route, error) {
	g, err := p.Graph(thresholdKm)
	if err != nil {
		return Route{}, err
	}

	began := time.Now()
	path, err := route.ShortestPath(g, start, end)
	if p.metrics != nil {
		p.metrics.SolveSeconds.Observe(time.Since(began).Seconds())
	}
	if err != nil {
		p.logger.Debug("No route", "start", start, "end", end, "threshold_km", thresholdKm, "error", err)
		return Route{}, err
	}

	points := make([]geo.Point, 0, len(path.Nodes))
	for _, id := range path.Nodes {
		pt, _ := g.Point(id)
		points = append(points, pt)
	}

	p.logger.Debug("Route found",
		"start", start,
		"end", end,
		"threshold_km", thresholdKm,
		"hops", len(path.Nodes)-1,
		"distance_km", path.DistanceKm,
	)
	return Route{ThresholdKm: thresholdKm, Path: path, Points: points}, nil
}
