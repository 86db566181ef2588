package edit

import (
	"fmt"

	"github.com/Ignat99/electric-sub000/pkg/circuit"
	"github.com/Ignat99/electric-sub000/pkg/geom"
	"github.com/Ignat99/electric-sub000/pkg/highlight"
)

type layerNode struct {
	node   *circuit.NodeInst
	bounds geom.Rect
	area   float64
	shapes []geom.Poly
}

func newLayerNode(n *circuit.NodeInst) *layerNode {
	ln := &layerNode{node: n, bounds: n.Bounds()}
	t := n.Transform()
	if polys := circuit.SplitOutline(n.Outline()); len(polys) > 0 {
		for _, pts := range polys {
			ln.area += geom.PolygonArea(pts)
			ln.shapes = append(ln.shapes, geom.NewPoly(pts...).Transform(t))
		}
		return ln
	}
	ln.area = n.Width() * n.Height()
	ln.shapes = []geom.Poly{geom.RectPoly(ln.bounds)}
	return ln
}

// covers reports whether one of the node's polygons holds all of r.
func (ln *layerNode) covers(r geom.Rect) bool {
	for _, p := range ln.shapes {
		inside := true
		for _, pt := range r.Corners() {
			if !p.ContainsPoint(pt) {
				inside = false
				break
			}
		}
		if inside {
			return true
		}
	}
	return false
}

// Redundant finds pure-layer nodes on visible layers whose bounds are
// wholly covered by another node of the same primitive that is at least as
// large. Of two equal nodes covering each other, the one met first is the
// redundant one. The change set deletes what was found.
func (p *Planner) Redundant(cell *circuit.Cell) Result {
	groups := make(map[*circuit.PrimitiveNode][]*layerNode)
	var protos []*circuit.PrimitiveNode
	for _, n := range cell.Nodes() {
		pn := n.Primitive()
		if pn == nil {
			continue
		}
		layer := pn.PureLayer()
		if layer == nil || !layer.Visible {
			continue
		}
		if _, ok := groups[pn]; !ok {
			protos = append(protos, pn)
		}
		groups[pn] = append(groups[pn], newLayerNode(n))
	}

	cs := circuit.NewChangeSet(cell)
	var flagged []highlight.Highlight
	for _, pn := range protos {
		list := groups[pn]
		var index circuit.RectIndex[*layerNode]
		for _, ln := range list {
			index.Insert(ln.bounds, ln)
		}
		redundant := make(map[*layerNode]bool)
		for _, ln := range list {
			index.Search(ln.bounds, func(_ geom.Rect, other *layerNode) bool {
				if other == ln || redundant[other] || other.area < ln.area {
					return true
				}
				if other.covers(ln.bounds) {
					redundant[ln] = true
					return false
				}
				return true
			})
			if redundant[ln] {
				cs.Delete(ln.node)
				flagged = append(flagged, highlight.NewObject(ln.node))
			}
		}
	}
	if len(flagged) == 0 {
		return noop(cell, "No redundant pure-layer nodes")
	}
	p.log.Debug("edit: redundant", "cell", cell.Describe(), "found", len(flagged))
	return Result{Changes: cs, Message: fmt.Sprintf("%d redundant pure-layer nodes", len(flagged)), Flagged: flagged}
}
