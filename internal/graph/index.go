package graph

import (
	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"

	"proximity-planner/internal/geo"
)

// pointTolerance is the half-width of the degenerate rectangle stored for
// each point.
const pointTolerance = 1e-12

// pointEntry wraps a point for R-tree storage.
type pointEntry struct {
	idx  int
	bbox rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (e *pointEntry) Bounds() rtreego.Rect {
	return e.bbox
}

// spatialIndex answers "which points lie in this lon/lat window" queries.
type spatialIndex struct {
	tree *rtreego.Rtree
	size int
}

func newSpatialIndex(points []geo.Point) *spatialIndex {
	tree := rtreego.NewTree(2, 25, 50) // 2D, min 25, max 50 entries per node
	for i, p := range points {
		tree.Insert(&pointEntry{
			idx:  i,
			bbox: rtreego.Point{p.Lon, p.Lat}.ToRect(pointTolerance),
		})
	}
	return &spatialIndex{tree: tree, size: len(points)}
}

// candidates returns the indexes of points inside any of the windows. A
// point may be reported more than once when windows overlap.
func (si *spatialIndex) candidates(windows []orb.Bound) []int {
	var out []int
	for _, w := range windows {
		rect, err := rtreego.NewRectFromPoints(
			rtreego.Point{w.Min[0], w.Min[1]},
			rtreego.Point{w.Max[0], w.Max[1]},
		)
		if err != nil {
			// Degenerate window; fall back to every point so nothing is missed.
			return si.all()
		}
		for _, item := range si.tree.SearchIntersect(rect) {
			out = append(out, item.(*pointEntry).idx)
		}
	}
	return out
}

func (si *spatialIndex) all() []int {
	out := make([]int, si.size)
	for i := range out {
		out[i] = i
	}
	return out
}
