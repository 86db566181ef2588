package highlight

import (
	"math/big"

	"github.com/Ignat99/electric-sub000/pkg/circuit"
)

// ResolveNetworks walks the hierarchy below cell and returns an item for
// every port, arc and export on one of nets, at every depth from start to
// end inclusive. Objects in cell itself come back as live references;
// objects inside subcells come back as polygons placed in cell. Schematic
// and icon cells are not entered below the top.
func ResolveNetworks(cell *circuit.Cell, nl *circuit.Netlist, nets []*circuit.Network, start, end int) []Highlight {
	if cell == nil || end < start || end < 0 {
		return nil
	}
	r := &netResolver{root: cell, start: start, end: end}
	for _, n := range nets {
		if n != nil && (nl == nil || n.Cell() == nl.Cell()) && n.Cell() == cell {
			r.global.SetBit(&r.global, n.Index(), 1)
		}
	}
	if r.global.BitLen() == 0 {
		return nil
	}
	circuit.Enumerate(cell, r)
	return r.out
}

// netResolver carries the state of one ResolveNetworks walk.
type netResolver struct {
	root       *circuit.Cell
	start, end int
	global     big.Int
	out        []Highlight
}

func (r *netResolver) EnterCell(info *circuit.CellInfo) bool {
	d := info.Depth()
	if d > r.end {
		return false
	}
	if d > 0 && !traversable(info.Cell()) {
		return false
	}
	if d >= r.start {
		r.emit(info)
	}
	return true
}

func (r *netResolver) ExitCell(*circuit.CellInfo) {}

func (r *netResolver) VisitNode(n *circuit.NodeInst, info *circuit.CellInfo) bool {
	sub := n.Subcell()
	return sub != nil && info.Depth()+1 <= r.end && traversable(sub)
}

func traversable(c *circuit.Cell) bool {
	return c.View() != circuit.ViewSchematic && c.View() != circuit.ViewIcon
}

func (r *netResolver) on(info *circuit.CellInfo, net *circuit.Network) bool {
	id := info.NetID(net)
	return id >= 0 && r.global.Bit(id) == 1
}

func (r *netResolver) emit(info *circuit.CellInfo) {
	nl := info.Netlist()
	cell := info.Cell()
	top := info.Depth() == 0
	toRoot := info.ToRoot()

	for _, n := range cell.Nodes() {
		for _, pi := range n.PortInsts() {
			if !r.on(info, nl.PortNetwork(pi)) {
				continue
			}
			if top {
				r.out = append(r.out, NewObject(pi))
			} else {
				r.out = append(r.out, NewPoly(r.root, pi.Poly().Transform(toRoot), nil))
			}
		}
	}
	for _, a := range cell.Arcs() {
		if !r.on(info, nl.ArcNetwork(a)) {
			continue
		}
		if top {
			r.out = append(r.out, NewObject(a))
		} else {
			r.out = append(r.out, NewPoly(r.root, a.Poly().Transform(toRoot), nil))
		}
	}
	for _, e := range cell.Exports() {
		if !r.on(info, nl.ExportNetwork(e)) {
			continue
		}
		if top {
			r.out = append(r.out, NewText(e, circuit.KeyExportName))
		} else {
			r.out = append(r.out, NewPoly(r.root, e.Original().Poly().Transform(toRoot), nil))
		}
	}
}

// ShowNetworks adds the objects on nets one hierarchy level at a time:
// the first call after a Clear shows cell itself, each further call the
// next level down. It returns the number of items added.
func (h *Highlighter) ShowNetworks(cell *circuit.Cell, nets []*circuit.Network) int {
	h.mu.Lock()
	depth := h.depth
	h.depth++
	h.mu.Unlock()

	items := ResolveNetworks(cell, cell.Netlist(), nets, depth, depth)

	h.mu.Lock()
	for _, item := range items {
		h.addLocked(item)
	}
	h.mu.Unlock()
	h.log.Debug("highlight: networks", "cell", cell.Describe(), "depth", depth, "items", len(items))
	h.FinalizeChanges()
	return len(items)
}

// Depth returns the hierarchy level the next ShowNetworks call reveals.
func (h *Highlighter) Depth() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.depth
}
