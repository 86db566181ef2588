package scfile

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrNoCell is returned for a command that appears before any "create cell".
	ErrNoCell = errors.New("scfile: command outside a cell")
	// ErrUnknownInstance is returned when a command names an instance the
	// cell does not create.
	ErrUnknownInstance = errors.New("scfile: unknown instance")
)

// PinRef names one port of one instance.
type PinRef struct {
	Inst string
	Port string
}

func (p PinRef) String() string { return p.Inst + "." + p.Port }

// Net is a connected set of pins.
type Net struct {
	ID   int
	Pins []PinRef
}

// CellExport is an export command.
type CellExport struct {
	Pin    PinRef
	Signal string
	Mode   string
}

// Cell is one "create cell" block.
type Cell struct {
	Name      string
	Instances []Instance
	Exports   []CellExport

	kinds map[string]string
	nl    *Netlist
}

// Kind returns the kind of an instance, or "" if the cell has none by that
// name.
func (c *Cell) Kind(inst string) string { return c.kinds[inst] }

// Netlist returns the connectivity of the cell.
func (c *Cell) Netlist() *Netlist { return c.nl }

// Summary is a one-line description of the cell.
func (c *Cell) Summary() string {
	return fmt.Sprintf("%s: %d instances, %d nets, %d exports",
		c.Name, len(c.Instances), c.nl.NetCount(), len(c.Exports))
}

// Build turns a parsed file into cells, checking that every command falls
// inside a cell and names instances that cell creates.
func Build(f *File) ([]*Cell, error) {
	var cells []*Cell
	var cur *Cell
	for _, cmd := range f.Commands {
		if cmd.Create != nil && cmd.Instance() == nil {
			cur = &Cell{Name: cmd.Create.Cell, kinds: make(map[string]string), nl: NewNetlist()}
			cells = append(cells, cur)
			continue
		}
		if cur == nil {
			return nil, fmt.Errorf("%w: line %d", ErrNoCell, cmd.Pos.Line)
		}
		known := func(inst string) error {
			if _, ok := cur.kinds[inst]; !ok {
				return fmt.Errorf("%w: %s in cell %s, line %d", ErrUnknownInstance, inst, cur.Name, cmd.Pos.Line)
			}
			return nil
		}
		switch {
		case cmd.Instance() != nil:
			in := *cmd.Instance()
			cur.Instances = append(cur.Instances, in)
			cur.kinds[in.Name] = in.Kind
		case cmd.Connect != nil:
			c := cmd.Connect
			if err := errors.Join(known(c.FromInst), known(c.ToInst)); err != nil {
				return nil, err
			}
			cur.nl.Connect(PinRef{c.FromInst, c.FromPort}, PinRef{c.ToInst, c.ToPort})
		case cmd.Export != nil:
			e := cmd.Export
			if err := known(e.Inst); err != nil {
				return nil, err
			}
			pin := PinRef{e.Inst, e.Port}
			cur.nl.Add(pin)
			cur.Exports = append(cur.Exports, CellExport{Pin: pin, Signal: e.Signal, Mode: e.Mode})
		}
	}
	for _, c := range cells {
		c.nl.Finalize()
	}
	return cells, nil
}

// Instance returns the instance a create command adds, if any.
func (c *Command) Instance() *Instance {
	if c.Create == nil {
		return nil
	}
	return c.Create.Instance
}

// Netlist tracks connectivity between pins with union-find.
type Netlist struct {
	parent map[PinRef]PinRef
	rank   map[PinRef]int
	pins   []PinRef

	// Nets is filled by Finalize.
	Nets []*Net
}

// NewNetlist returns an empty netlist.
func NewNetlist() *Netlist {
	return &Netlist{
		parent: make(map[PinRef]PinRef),
		rank:   make(map[PinRef]int),
	}
}

// Add registers a pin as its own net if it is not known yet.
func (nl *Netlist) Add(p PinRef) {
	if _, ok := nl.parent[p]; ok {
		return
	}
	nl.parent[p] = p
	nl.pins = append(nl.pins, p)
}

// Connect merges the nets of two pins.
func (nl *Netlist) Connect(a, b PinRef) {
	nl.Add(a)
	nl.Add(b)
	ra, rb := nl.Find(a), nl.Find(b)
	if ra == rb {
		return
	}
	switch {
	case nl.rank[ra] < nl.rank[rb]:
		nl.parent[ra] = rb
	case nl.rank[ra] > nl.rank[rb]:
		nl.parent[rb] = ra
	default:
		nl.parent[rb] = ra
		nl.rank[ra]++
	}
}

// Find returns the representative pin of p's net.
func (nl *Netlist) Find(p PinRef) PinRef {
	if _, ok := nl.parent[p]; !ok {
		return p
	}
	root := p
	for nl.parent[root] != root {
		root = nl.parent[root]
	}
	for p != root {
		next := nl.parent[p]
		nl.parent[p] = root
		p = next
	}
	return root
}

// Connected reports whether two pins share a net.
func (nl *Netlist) Connected(a, b PinRef) bool {
	return nl.Find(a) == nl.Find(b)
}

// Finalize groups pins into Nets, first-seen order, pins sorted within a
// net. Single-pin nets are kept since an exported pin may stand alone.
func (nl *Netlist) Finalize() {
	byRoot := make(map[PinRef]*Net)
	nl.Nets = nl.Nets[:0]
	for _, p := range nl.pins {
		root := nl.Find(p)
		net := byRoot[root]
		if net == nil {
			net = &Net{ID: len(nl.Nets)}
			byRoot[root] = net
			nl.Nets = append(nl.Nets, net)
		}
		net.Pins = append(net.Pins, p)
	}
	for _, net := range nl.Nets {
		sort.Slice(net.Pins, func(i, j int) bool {
			return strings.Compare(net.Pins[i].String(), net.Pins[j].String()) < 0
		})
	}
}

// NetCount returns the number of nets found by Finalize.
func (nl *Netlist) NetCount() int { return len(nl.Nets) }
