package circuit

import (
	"sort"
	"sync"

	"github.com/Ignat99/electric-sub000/pkg/geom"
)

// Cell is one view of a circuit: nodes joined by arcs, with exports.
type Cell struct {
	lib    *Library
	name   string
	view   View
	linked bool

	mu      sync.RWMutex
	nodes   []*NodeInst
	arcs    []*ArcInst
	exports []*Export
	vars    []*Variable

	nextNodeID int
	nextArcID  int
	revision   int

	// Derived data, rebuilt on demand after a change.
	index      *spatialIndex
	indexGen   uint64
	netlist    *Netlist
	netlistGen uint64
}

// Name returns the cell name.
func (c *Cell) Name() string { return c.name }

// View returns the cell view.
func (c *Cell) View() View { return c.view }

// Library returns the owning library.
func (c *Cell) Library() *Library { return c.lib }

// Describe returns "name{view}".
func (c *Cell) Describe() string { return c.name + "{" + c.view.Abbrev() + "}" }

func (c *Cell) String() string { return c.Describe() }

// Parent implements Object; a cell's text lives in the cell itself.
func (c *Cell) Parent() *Cell { return c }

// IsLinked reports whether the cell is still in its library.
func (c *Cell) IsLinked() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.linked
}

// Revision increments on every applied change.
func (c *Cell) Revision() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.revision
}

// Nodes returns the node instances in creation order.
func (c *Cell) Nodes() []*NodeInst {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*NodeInst, len(c.nodes))
	copy(out, c.nodes)
	return out
}

// Arcs returns the arc instances in creation order.
func (c *Cell) Arcs() []*ArcInst {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*ArcInst, len(c.arcs))
	copy(out, c.arcs)
	return out
}

// Exports returns the exports in creation order.
func (c *Cell) Exports() []*Export {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Export, len(c.exports))
	copy(out, c.exports)
	return out
}

// Vars returns the cell-level variables.
func (c *Cell) Vars() []*Variable {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Variable, len(c.vars))
	copy(out, c.vars)
	return out
}

// FindNode looks up a node by name.
func (c *Cell) FindNode(name string) *NodeInst {
	for _, n := range c.Nodes() {
		if n.name == name {
			return n
		}
	}
	return nil
}

// FindArc looks up an arc by name.
func (c *Cell) FindArc(name string) *ArcInst {
	for _, a := range c.Arcs() {
		if a.name == name {
			return a
		}
	}
	return nil
}

// FindExport looks up an export by name.
func (c *Cell) FindExport(name string) *Export {
	for _, e := range c.Exports() {
		if e.name == name {
			return e
		}
	}
	return nil
}

// Bounds is the union of every node and arc. An empty cell has zero size at
// the origin.
func (c *Cell) Bounds() geom.Rect {
	r := geom.EmptyRect()
	for _, n := range c.Nodes() {
		r.ExpandRect(n.Bounds())
	}
	for _, a := range c.Arcs() {
		r.ExpandRect(a.Bounds())
	}
	if r.IsEmpty() {
		return geom.R(0, 0, 0, 0)
	}
	return r
}

// Search returns the nodes and arcs whose bounds touch r, nodes first, each
// group in ID order.
func (c *Cell) Search(r geom.Rect) []Geometric {
	gen := c.generation()
	c.mu.RLock()
	idx := c.index
	if idx != nil && c.indexGen != gen {
		idx = nil
	}
	c.mu.RUnlock()
	if idx == nil {
		idx = buildIndex(c.Nodes(), c.Arcs())
		c.mu.Lock()
		c.index, c.indexGen = idx, gen
		c.mu.Unlock()
	}

	found := idx.search(r)
	sort.SliceStable(found, func(i, j int) bool {
		_, ni := found[i].(*NodeInst)
		_, nj := found[j].(*NodeInst)
		if ni != nj {
			return ni
		}
		return found[i].ID() < found[j].ID()
	})
	return found
}

// Instances returns the node instances of this cell across the database.
func (c *Cell) Instances() []*NodeInst {
	var out []*NodeInst
	if c.lib == nil || c.lib.db == nil {
		return nil
	}
	for _, l := range c.lib.db.Libraries() {
		for _, parent := range l.Cells() {
			for _, n := range parent.Nodes() {
				if n.proto == NodeProto(c) {
					out = append(out, n)
				}
			}
		}
	}
	return out
}

// ProtoName implements NodeProto.
func (c *Cell) ProtoName() string { return c.name }

// IsCell implements NodeProto.
func (c *Cell) IsCell() bool { return true }

// DefaultSize implements NodeProto.
func (c *Cell) DefaultSize() (float64, float64) {
	b := c.Bounds()
	return b.Width(), b.Height()
}

// PortProtos implements NodeProto.
func (c *Cell) PortProtos() []PortProto {
	exports := c.Exports()
	out := make([]PortProto, len(exports))
	for i, e := range exports {
		out[i] = e
	}
	return out
}

// FindPortProto implements NodeProto.
func (c *Cell) FindPortProto(name string) PortProto {
	if e := c.FindExport(name); e != nil {
		return e
	}
	return nil
}

// ContainsObject reports whether obj is a live member of this cell.
func (c *Cell) ContainsObject(obj Object) bool {
	if obj == nil || !obj.IsLinked() {
		return false
	}
	return obj.Parent() == c
}

// uses reports whether c contains an instance of other, at any depth.
func (c *Cell) uses(other *Cell) bool {
	if c == other {
		return true
	}
	for _, n := range c.Nodes() {
		if sub, ok := n.proto.(*Cell); ok && sub.uses(other) {
			return true
		}
	}
	return false
}

func (c *Cell) generation() uint64 {
	if c.lib == nil || c.lib.db == nil {
		return 0
	}
	return c.lib.db.generation()
}

// touch invalidates derived data. Callers hold c.mu.
func (c *Cell) touch() {
	c.revision++
	c.index = nil
	c.netlist = nil
}
