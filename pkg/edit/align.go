package edit

import (
	"fmt"
	"math"

	"github.com/Ignat99/electric-sub000/pkg/circuit"
	"github.com/Ignat99/electric-sub000/pkg/geom"
	"github.com/Ignat99/electric-sub000/pkg/highlight"
)

// Direction picks the edge nodes are aligned on.
type Direction int

const (
	// AlignLow aligns left edges, or bottom edges when vertical.
	AlignLow Direction = iota
	// AlignHigh aligns right edges, or top edges when vertical.
	AlignHigh
	// AlignCenter aligns centers.
	AlignCenter
)

func (d Direction) String() string {
	switch d {
	case AlignLow:
		return "low"
	case AlignHigh:
		return "high"
	case AlignCenter:
		return "center"
	}
	return fmt.Sprintf("Direction(%d)", int(d))
}

// AlignNodes moves every selected node so that the chosen edge, or its
// center, lands on the same edge or center of the group's bounding box.
// Horizontal alignment moves nodes in X, vertical in Y.
func (p *Planner) AlignNodes(sel []highlight.Highlight, horizontal bool, dir Direction) Result {
	s := gather(sel)
	if len(s.nodes) == 0 {
		return noop(s.cell, "Must select nodes to align")
	}
	box := geom.EmptyRect()
	for _, n := range s.nodes {
		box.ExpandRect(n.Bounds())
	}
	pick := func(r geom.Rect) float64 {
		lo, hi := r.Min.Y, r.Max.Y
		if horizontal {
			lo, hi = r.Min.X, r.Max.X
		}
		switch dir {
		case AlignHigh:
			return hi
		case AlignCenter:
			return (lo + hi) / 2
		}
		return lo
	}
	target := pick(box)
	cs := circuit.NewChangeSet(s.cell)
	for _, n := range s.nodes {
		d := target - pick(n.Bounds())
		if math.Abs(d) < geom.Epsilon {
			continue
		}
		if horizontal {
			cs.MoveNode(n, d, 0)
		} else {
			cs.MoveNode(n, 0, d)
		}
	}
	if cs.IsEmpty() {
		return noop(s.cell, "Nodes are already aligned")
	}
	p.log.Debug("edit: align", "horizontal", horizontal, "direction", dir, "moved", len(cs.Moves))
	return Result{Changes: cs, Message: fmt.Sprintf("aligned %d nodes", len(cs.Moves))}
}

// AlignToGrid snaps the selected nodes, and the nodes on either end of
// selected arcs, to the alignment grid.
func (p *Planner) AlignToGrid(sel []highlight.Highlight) Result {
	s := gather(sel)
	grid := p.align.Grid
	if grid <= 0 {
		return noop(s.cell, "No alignment grid is set")
	}
	nodes := s.withArcEnds()
	if len(nodes) == 0 {
		return noop(s.cell, "Must select something to align")
	}
	snap := func(v float64) float64 { return math.Round(v/grid)*grid - v }
	cs := circuit.NewChangeSet(s.cell)
	for _, n := range nodes {
		ref := n.Center()
		if p.align.AlignEdges {
			ref = n.Bounds().Min
		}
		dx, dy := snap(ref.X), snap(ref.Y)
		if math.Abs(dx) < geom.Epsilon && math.Abs(dy) < geom.Epsilon {
			continue
		}
		cs.MoveNode(n, dx, dy)
	}
	if cs.IsEmpty() {
		return noop(s.cell, "Everything is already on the grid")
	}
	p.log.Debug("edit: grid align", "grid", grid, "moved", len(cs.Moves))
	return Result{Changes: cs, Message: fmt.Sprintf("aligned %d nodes to the grid", len(cs.Moves))}
}
