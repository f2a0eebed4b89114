package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"proximity-planner/internal/geo"
	"proximity-planner/internal/graph"
	"proximity-planner/internal/metrics"
	"proximity-planner/internal/planner"
	"proximity-planner/internal/route"
)

type RouteRequest struct {
	Start       string  `json:"start"`
	End         string  `json:"end"`
	ThresholdKm float64 `json:"thresholdKm,omitempty"`
}

type RouteResponse struct {
	Success     bool        `json:"success"`
	Message     string      `json:"message,omitempty"`
	Nodes       []string    `json:"nodes,omitempty"`
	Path        []geo.Point `json:"path"`
	DistanceKm  float64     `json:"distanceKm,omitempty"`
	ThresholdKm float64     `json:"thresholdKm"`
}

type NodesResponse struct {
	ThresholdKm float64     `json:"thresholdKm"`
	Count       int         `json:"count"`
	Nodes       []geo.Point `json:"nodes"`
}

type LinesResponse struct {
	Success     bool             `json:"success"`
	ThresholdKm float64          `json:"thresholdKm"`
	Lines       []orb.LineString `json:"lines"`
	NumNodes    int              `json:"numNodes"`
	NumEdges    int              `json:"numEdges"`
}

// GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ready",
		"numPoints": len(s.planner.Points()),
	})
}

// GET /api/nodes?threshold=
func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	g, ok := s.graphFor(w, r)
	if !ok {
		return
	}

	nodes := make([]geo.Point, 0, g.Len())
	for _, id := range g.Nodes() {
		p, _ := g.Point(id)
		nodes = append(nodes, p)
	}
	writeJSON(w, http.StatusOK, NodesResponse{ThresholdKm: g.ThresholdKm(), Count: len(nodes), Nodes: nodes})
}

// POST /api/route
func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	var req RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.countRoute(metrics.OutcomeInvalid)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ThresholdKm == 0 {
		req.ThresholdKm = s.opts.DefaultThresholdKm
	}

	s.logger.Debug("Route request received", "start", req.Start, "end", req.End, "threshold_km", req.ThresholdKm)

	res, err := s.planner.Route(req.ThresholdKm, req.Start, req.End)
	switch {
	case err == nil:
		s.countRoute(metrics.OutcomeFound)
		writeJSON(w, http.StatusOK, RouteResponse{
			Success:     true,
			Nodes:       res.Path.Nodes,
			Path:        res.Points,
			DistanceKm:  res.Path.DistanceKm,
			ThresholdKm: res.ThresholdKm,
		})
	case errors.Is(err, route.ErrNotConnected):
		s.countRoute(metrics.OutcomeNotConnected)
		writeJSON(w, http.StatusOK, RouteResponse{
			Success: false,
			Message: fmt.Sprintf("%s and %s are not connected at this max distance. Try increasing it.",
				req.Start, req.End),
			Path:        []geo.Point{},
			ThresholdKm: req.ThresholdKm,
		})
	case errors.Is(err, route.ErrNodeNotFound):
		s.countRoute(metrics.OutcomeNotFound)
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, planner.ErrThresholdOutOfRange):
		s.countRoute(metrics.OutcomeInvalid)
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("Route failed", "start", req.Start, "end", req.End, "error", err)
		writeError(w, http.StatusInternalServerError, "route failed")
	}
}

// GET /api/graph/lines?threshold=
func (s *Server) handleGraphLines(w http.ResponseWriter, r *http.Request) {
	g, ok := s.graphFor(w, r)
	if !ok {
		return
	}

	edges := g.Edges()
	lines := make([]orb.LineString, 0, len(edges))
	for _, e := range edges {
		lines = append(lines, edgeLine(g, e))
	}

	writeJSON(w, http.StatusOK, LinesResponse{
		Success:     true,
		ThresholdKm: g.ThresholdKm(),
		Lines:       lines,
		NumNodes:    g.Len(),
		NumEdges:    len(lines),
	})
}

// GET /api/graph/geojson?threshold=
func (s *Server) handleGraphGeoJSON(w http.ResponseWriter, r *http.Request) {
	g, ok := s.graphFor(w, r)
	if !ok {
		return
	}

	fc := geojson.NewFeatureCollection()
	for _, id := range g.Nodes() {
		p, _ := g.Point(id)
		f := geojson.NewFeature(p.Orb())
		f.Properties["name"] = id
		fc.Append(f)
	}
	for _, e := range g.Edges() {
		f := geojson.NewFeature(edgeLine(g, e))
		f.Properties["from"] = e.From
		f.Properties["to"] = e.To
		f.Properties["weightKm"] = e.WeightKm
		fc.Append(f)
	}

	w.Header().Set("Content-Type", "application/geo+json")
	if err := json.NewEncoder(w).Encode(fc); err != nil {
		s.logger.Error("Failed to encode GeoJSON", "error", err)
	}
}

// graphFor resolves the threshold query parameter and returns its graph,
// writing an error response on failure.
func (s *Server) graphFor(w http.ResponseWriter, r *http.Request) (*graph.Graph, bool) {
	threshold := s.opts.DefaultThresholdKm
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid threshold %q", raw))
			return nil, false
		}
		threshold = v
	}

	g, err := s.planner.Graph(threshold)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return g, true
}

func (s *Server) countRoute(outcome string) {
	if s.metrics != nil {
		s.metrics.RouteRequests.WithLabelValues(outcome).Inc()
	}
}

func edgeLine(g *graph.Graph, e graph.Edge) orb.LineString {
	from, _ := g.Point(e.From)
	to, _ := g.Point(e.To)
	return orb.LineString{from.Orb(), to.Orb()}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
