package edit

import (
	"fmt"
	"math"
	"strings"

	"github.com/Ignat99/electric-sub000/pkg/circuit"
	"github.com/Ignat99/electric-sub000/pkg/geom"
	"github.com/Ignat99/electric-sub000/pkg/highlight"
)

// MsgNothingToClean is the message of a clean-up that found nothing.
const MsgNothingToClean = "nothing to clean"

type cleanup struct {
	cell    *circuit.Cell
	cs      *circuit.ChangeSet
	flagged []highlight.Highlight

	pins, shrunk, dupes, gaps, sizes int
}

// Cleanup looks for unused pins, oversized pins, duplicate arcs, arcs that
// do not touch on a shared oversized pin and primitives without size.
// The first three are fixed in the returned change set; the rest are only
// flagged. A cell with nothing to fix reports MsgNothingToClean even when
// problems were flagged, so a second run after applying always does.
func (p *Planner) Cleanup(cell *circuit.Cell) Result {
	c := &cleanup{cell: cell, cs: circuit.NewChangeSet(cell)}
	nodes := cell.Nodes()
	for _, n := range nodes {
		c.unusedPin(n)
	}
	for _, n := range nodes {
		c.oversizedPin(n)
	}
	c.duplicateArcs(cell.Arcs())
	for _, n := range nodes {
		c.gapsOnPin(n)
		c.zeroSize(n)
	}
	if c.cs.IsEmpty() {
		p.log.Debug("edit: cleanup", "cell", cell.Describe(), "result", MsgNothingToClean, "flagged", len(c.flagged))
		res := noop(cell, MsgNothingToClean)
		res.Flagged = c.flagged
		return res
	}
	msg := c.message()
	p.log.Debug("edit: cleanup", "cell", cell.Describe(), "result", msg)
	return Result{Changes: c.cs, Message: msg, Flagged: c.flagged}
}

func isPin(n *circuit.NodeInst) bool {
	return n.Function() == circuit.FnPin
}

// unusedPin deletes a pin that nothing uses.
func (c *cleanup) unusedPin(n *circuit.NodeInst) {
	if !isPin(n) || len(n.Exports()) > 0 || len(n.Connections()) > 0 || n.HasDisplayableVar() {
		return
	}
	c.cs.Delete(n)
	c.pins++
}

// oversizedPin shrinks a pin that is larger than its arcs need. Every arc
// must end at the pin center, and the pin keeps as much oversize as its
// most oversized arc.
func (c *cleanup) oversizedPin(n *circuit.NodeInst) {
	if !isPin(n) || !n.IsOversized() || c.cs.IsDeleted(n) {
		return
	}
	pn := n.Primitive()
	arcOver := 0.0
	for _, conn := range n.Connections() {
		if !conn.Location().Eq(n.Center()) {
			return
		}
		a := conn.Arc()
		arcOver = math.Max(arcOver, a.Width()-a.Proto().DefaultWidth)
	}
	w, h := n.Width(), n.Height()
	if over := w - pn.DefaultWidth; over > arcOver+geom.Epsilon {
		w -= over - arcOver
	}
	if over := h - pn.DefaultHeight; over > arcOver+geom.Epsilon {
		h -= over - arcOver
	}
	if w == n.Width() && h == n.Height() {
		return
	}
	c.cs.ResizeNode(n, w, h)
	c.shrunk++
}

// duplicateArcs deletes the later of two arcs of one prototype that join
// the same pair of ports.
func (c *cleanup) duplicateArcs(arcs []*circuit.ArcInst) {
	for _, a := range arcs {
		if c.cs.IsDeleted(a) {
			continue
		}
		head := a.Head().PortInst()
		other := a.Tail().PortInst()
		for _, conn := range head.Connections() {
			b := conn.Arc()
			if b == a || b.ID() < a.ID() || b.Proto() != a.Proto() || c.cs.IsDeleted(b) {
				continue
			}
			if conn.Other().PortInst() != other {
				continue
			}
			c.cs.Delete(b)
			c.dupes++
		}
	}
}

// gapsOnPin flags an oversized pin where two of its arcs do not touch.
func (c *cleanup) gapsOnPin(n *circuit.NodeInst) {
	if !isPin(n) || !n.IsOversized() || c.cs.IsDeleted(n) {
		return
	}
	conns := n.Connections()
	for i := range conns {
		for j := i + 1; j < len(conns); j++ {
			a, b := conns[i].Arc(), conns[j].Arc()
			if a == b || c.cs.IsDeleted(a) || c.cs.IsDeleted(b) {
				continue
			}
			if a.Poly().Separation(b.Poly()) > geom.Epsilon {
				c.flagged = append(c.flagged, highlight.NewObject(n).AsError())
				c.gaps++
				return
			}
		}
	}
}

// zeroSize flags primitives with no area, except pins and special nodes.
func (c *cleanup) zeroSize(n *circuit.NodeInst) {
	pn := n.Primitive()
	if pn == nil || pn.Special || isPin(n) || pn.HoldsOutline && n.HasOutline() {
		return
	}
	if n.Width() > 0 && n.Height() > 0 {
		return
	}
	c.flagged = append(c.flagged, highlight.NewObject(n).AsError())
	c.sizes++
}

func (c *cleanup) message() string {
	var parts []string
	add := func(n int, format string) {
		if n > 0 {
			parts = append(parts, fmt.Sprintf(format, n))
		}
	}
	add(c.pins, "removed %d unused pins")
	add(c.shrunk, "shrank %d pins")
	add(c.dupes, "removed %d duplicate arcs")
	add(c.gaps, "%d pins allow arcs that do not touch")
	add(c.sizes, "%d nodes have no size")
	return strings.Join(parts, "; ")
}
