package circuit

import (
	"github.com/tidwall/rtree"

	"github.com/Ignat99/electric-sub000/pkg/geom"
)

// spatialIndex is an R-tree over a cell's nodes and arcs.
type spatialIndex struct {
	tree rtree.RTreeG[Geometric]
}

func buildIndex(nodes []*NodeInst, arcs []*ArcInst) *spatialIndex {
	idx := &spatialIndex{}
	for _, n := range nodes {
		idx.insert(n, n.Bounds())
	}
	for _, a := range arcs {
		idx.insert(a, a.Bounds())
	}
	return idx
}

func (idx *spatialIndex) insert(g Geometric, r geom.Rect) {
	if r.IsEmpty() {
		return
	}
	idx.tree.Insert([2]float64{r.Min.X, r.Min.Y}, [2]float64{r.Max.X, r.Max.Y}, g)
}

func (idx *spatialIndex) search(r geom.Rect) []Geometric {
	var out []Geometric
	idx.tree.Search([2]float64{r.Min.X, r.Min.Y}, [2]float64{r.Max.X, r.Max.Y},
		func(_, _ [2]float64, g Geometric) bool {
			out = append(out, g)
			return true
		})
	return out
}

// RectIndex is a general R-tree of rectangles keyed by T.
type RectIndex[T any] struct {
	tree rtree.RTreeG[T]
}

// Insert adds an item.
func (ri *RectIndex[T]) Insert(r geom.Rect, item T) {
	if r.IsEmpty() {
		return
	}
	ri.tree.Insert([2]float64{r.Min.X, r.Min.Y}, [2]float64{r.Max.X, r.Max.Y}, item)
}

// Search visits every item whose rectangle touches r until fn returns false.
func (ri *RectIndex[T]) Search(r geom.Rect, fn func(bounds geom.Rect, item T) bool) {
	ri.tree.Search([2]float64{r.Min.X, r.Min.Y}, [2]float64{r.Max.X, r.Max.Y},
		func(min, max [2]float64, item T) bool {
			return fn(geom.Rect{Min: geom.Pt(min[0], min[1]), Max: geom.Pt(max[0], max[1])}, item)
		})
}

// Len returns the number of items.
func (ri *RectIndex[T]) Len() int { return ri.tree.Len() }
