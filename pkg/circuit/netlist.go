package circuit

import (
	"fmt"
)

// Network is a set of electrically connected ports within one cell.
type Network struct {
	index int
	cell  *Cell
	names []string
}

// Index is the network's position in its netlist.
func (n *Network) Index() int { return n.index }

// Cell returns the cell the network lives in.
func (n *Network) Cell() *Cell { return n.cell }

// Names returns the export names on the network, then its named arcs.
func (n *Network) Names() []string {
	out := make([]string, len(n.names))
	copy(out, n.names)
	return out
}

// HasName reports whether name is one of the network's names.
func (n *Network) HasName(name string) bool {
	for _, s := range n.names {
		if s == name {
			return true
		}
	}
	return false
}

// Name returns the first name, or a generated one.
func (n *Network) Name() string {
	if len(n.names) > 0 {
		return n.names[0]
	}
	return fmt.Sprintf("net@%d", n.index)
}

// Describe returns the name.
func (n *Network) Describe() string { return n.Name() }

func (n *Network) String() string { return n.Name() }

// Netlist is the connectivity of one cell, built with a union-find over
// port instances. Ports are merged by arcs, by shared topology inside a
// primitive, by shared networks inside a subcell, and by arc names.
type Netlist struct {
	cell *Cell

	// Union-find state
	parent map[*PortInst]*PortInst
	rank   map[*PortInst]int

	ports    []*PortInst
	netOf    map[*PortInst]*Network
	networks []*Network
}

// Netlist returns the cell's connectivity, rebuilding it after any change in
// the database.
func (c *Cell) Netlist() *Netlist {
	gen := c.generation()
	c.mu.RLock()
	if c.netlist != nil && c.netlistGen == gen {
		nl := c.netlist
		c.mu.RUnlock()
		return nl
	}
	c.mu.RUnlock()

	nl := buildNetlist(c)

	c.mu.Lock()
	c.netlist = nl
	c.netlistGen = gen
	c.mu.Unlock()
	return nl
}

func buildNetlist(c *Cell) *Netlist {
	nl := &Netlist{
		cell:   c,
		parent: make(map[*PortInst]*PortInst),
		rank:   make(map[*PortInst]int),
		netOf:  make(map[*PortInst]*Network),
	}

	nodes := c.Nodes()
	for _, n := range nodes {
		for _, pi := range n.PortInsts() {
			nl.parent[pi] = pi
			nl.ports = append(nl.ports, pi)
		}
	}

	// Connections inside nodes
	for _, n := range nodes {
		ports := n.PortInsts()
		switch proto := n.proto.(type) {
		case *PrimitiveNode:
			byTopology := make(map[int]*PortInst)
			for _, pi := range ports {
				pp := pi.proto.(*PrimitivePort)
				if first, ok := byTopology[pp.Topology]; ok {
					nl.union(first, pi)
				} else {
					byTopology[pp.Topology] = pi
				}
			}
		case *Cell:
			sub := proto.Netlist()
			byNet := make(map[*Network]*PortInst)
			for _, pi := range ports {
				e, ok := pi.proto.(*Export)
				if !ok {
					continue
				}
				net := sub.ExportNetwork(e)
				if net == nil {
					continue
				}
				if first, ok := byNet[net]; ok {
					nl.union(first, pi)
				} else {
					byNet[net] = pi
				}
			}
		}
	}

	// Arcs, and arcs that share a name
	byName := make(map[string]*PortInst)
	arcs := c.Arcs()
	for _, a := range arcs {
		if !a.IsElectrical() {
			continue
		}
		h, t := a.ends[HeadEnd].port, a.ends[TailEnd].port
		nl.union(h, t)
		if a.nameDisplayed {
			if first, ok := byName[a.name]; ok {
				nl.union(first, h)
			} else {
				byName[a.name] = h
			}
		}
	}

	// Number networks in port order
	byRoot := make(map[*PortInst]*Network)
	for _, pi := range nl.ports {
		root := nl.find(pi)
		net, ok := byRoot[root]
		if !ok {
			net = &Network{index: len(nl.networks), cell: c}
			nl.networks = append(nl.networks, net)
			byRoot[root] = net
		}
		nl.netOf[pi] = net
	}

	for _, e := range c.Exports() {
		if net := nl.netOf[e.original]; net != nil && !net.HasName(e.name) {
			net.names = append(net.names, e.name)
		}
	}
	for _, a := range arcs {
		if !a.nameDisplayed || !a.IsElectrical() {
			continue
		}
		if net := nl.netOf[a.ends[HeadEnd].port]; net != nil && !net.HasName(a.name) {
			net.names = append(net.names, a.name)
		}
	}
	return nl
}

func (nl *Netlist) find(pi *PortInst) *PortInst {
	root := pi
	for nl.parent[root] != root {
		root = nl.parent[root]
	}
	// Path compression
	for pi != root {
		next := nl.parent[pi]
		nl.parent[pi] = root
		pi = next
	}
	return root
}

func (nl *Netlist) union(a, b *PortInst) {
	if _, ok := nl.parent[a]; !ok {
		return
	}
	if _, ok := nl.parent[b]; !ok {
		return
	}
	ra, rb := nl.find(a), nl.find(b)
	if ra == rb {
		return
	}
	// Union by rank
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

// Cell returns the cell the netlist describes.
func (nl *Netlist) Cell() *Cell { return nl.cell }

// Networks returns all networks in index order.
func (nl *Netlist) Networks() []*Network {
	out := make([]*Network, len(nl.networks))
	copy(out, nl.networks)
	return out
}

// NetworkCount returns the number of networks.
func (nl *Netlist) NetworkCount() int { return len(nl.networks) }

// PortNetwork returns the network of a port instance.
func (nl *Netlist) PortNetwork(pi *PortInst) *Network {
	return nl.netOf[pi]
}

// ArcNetwork returns the network carried by an arc, nil for non-electrical
// arcs.
func (nl *Netlist) ArcNetwork(a *ArcInst) *Network {
	if !a.IsElectrical() {
		return nil
	}
	return nl.netOf[a.ends[HeadEnd].port]
}

// ExportNetwork returns the network an export exposes.
func (nl *Netlist) ExportNetwork(e *Export) *Network {
	return nl.netOf[e.original]
}

// NodeNetworks returns the distinct networks touching a node.
func (nl *Netlist) NodeNetworks(n *NodeInst) []*Network {
	var out []*Network
	seen := make(map[*Network]bool)
	for _, pi := range n.PortInsts() {
		if net := nl.netOf[pi]; net != nil && !seen[net] {
			seen[net] = true
			out = append(out, net)
		}
	}
	return out
}

// FindNetwork finds a network by one of its names.
func (nl *Netlist) FindNetwork(name string) *Network {
	for _, net := range nl.networks {
		if net.HasName(name) {
			return net
		}
	}
	return nil
}

// Connected reports whether two ports share a network.
func (nl *Netlist) Connected(a, b *PortInst) bool {
	na, nb := nl.netOf[a], nl.netOf[b]
	return na != nil && na == nb
}
