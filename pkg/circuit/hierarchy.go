package circuit

import (
	"github.com/Ignat99/electric-sub000/pkg/geom"
)

// CellInfo describes one cell visited during a hierarchy traversal.
type CellInfo struct {
	cell     *Cell
	netlist  *Netlist
	depth    int
	parent   *CellInfo
	instance *NodeInst
	toRoot   geom.Transform
	netIDs   []int
}

// Cell returns the visited cell.
func (ci *CellInfo) Cell() *Cell { return ci.cell }

// Netlist returns the cell's netlist.
func (ci *CellInfo) Netlist() *Netlist { return ci.netlist }

// Depth is zero at the root.
func (ci *CellInfo) Depth() int { return ci.depth }

// Parent returns the enclosing cell's info, nil at the root.
func (ci *CellInfo) Parent() *CellInfo { return ci.parent }

// Instance returns the node in the parent that instantiates this cell.
func (ci *CellInfo) Instance() *NodeInst { return ci.instance }

// ToRoot maps this cell's coordinates into the root cell.
func (ci *CellInfo) ToRoot() geom.Transform { return ci.toRoot }

// NetID returns the traversal-wide number of a local network. Networks
// joined through exports share a number.
func (ci *CellInfo) NetID(n *Network) int {
	if n == nil || n.index >= len(ci.netIDs) {
		return -1
	}
	return ci.netIDs[n.index]
}

// Visitor receives callbacks during Enumerate.
type Visitor interface {
	// EnterCell is called before a cell's contents. Returning false skips
	// them and the cell's subcells.
	EnterCell(info *CellInfo) bool
	// ExitCell is called after a cell's contents.
	ExitCell(info *CellInfo)
	// VisitNode is called for every node. Returning true descends into a
	// cell instance.
	VisitNode(n *NodeInst, info *CellInfo) bool
}

// Enumerate walks the hierarchy below root in pre-order.
func Enumerate(root *Cell, v Visitor) {
	nl := root.Netlist()
	info := &CellInfo{
		cell:    root,
		netlist: nl,
		toRoot:  geom.Identity(),
		netIDs:  make([]int, nl.NetworkCount()),
	}
	for i := range info.netIDs {
		info.netIDs[i] = i
	}
	next := nl.NetworkCount()
	enumerate(info, v, &next)
}

func enumerate(info *CellInfo, v Visitor, next *int) {
	if !v.EnterCell(info) {
		return
	}
	for _, n := range info.cell.Nodes() {
		if !v.VisitNode(n, info) {
			continue
		}
		sub := n.Subcell()
		if sub == nil {
			continue
		}
		enumerate(childInfo(info, n, sub, next), v, next)
	}
	v.ExitCell(info)
}

func childInfo(parent *CellInfo, n *NodeInst, sub *Cell, next *int) *CellInfo {
	nl := sub.Netlist()
	ids := make([]int, nl.NetworkCount())
	for i := range ids {
		ids[i] = -1
	}
	for _, e := range sub.Exports() {
		net := nl.ExportNetwork(e)
		pi := n.FindPortInst(e.name)
		if net == nil || pi == nil || ids[net.index] >= 0 {
			continue
		}
		ids[net.index] = parent.NetID(parent.netlist.PortNetwork(pi))
	}
	for i := range ids {
		if ids[i] < 0 {
			ids[i] = *next
			*next++
		}
	}
	return &CellInfo{
		cell:     sub,
		netlist:  nl,
		depth:    parent.depth + 1,
		parent:   parent,
		instance: n,
		toRoot:   n.Transform().Then(parent.toRoot),
		netIDs:   ids,
	}
}
