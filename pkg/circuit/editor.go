package circuit

import (
	"errors"
	"fmt"

	"github.com/Ignat99/electric-sub000/pkg/geom"
)

var (
	ErrCellInUse    = errors.New("circuit: cell has instances")
	ErrExportExists = errors.New("circuit: export already exists")
	ErrBadChange    = errors.New("circuit: invalid change")
)

var _ Editor = (*Database)(nil)

// NewCell creates an empty cell in lib.
func (db *Database) NewCell(lib *Library, name string, view View) (*Cell, error) {
	if lib == nil || lib.db != db {
		return nil, fmt.Errorf("%w: library is not in this database", ErrBadChange)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty cell name", ErrBadChange)
	}
	c, err := lib.newCell(name, view)
	if err != nil {
		return nil, err
	}
	db.gen.Add(1)
	return c, nil
}

// KillCell removes an unused cell from its library.
func (db *Database) KillCell(c *Cell) error {
	if !c.IsLinked() {
		return fmt.Errorf("%w: %s", ErrNotLinked, c.Describe())
	}
	if insts := c.Instances(); len(insts) > 0 {
		return fmt.Errorf("%w: %s is used %d times", ErrCellInUse, c.Describe(), len(insts))
	}
	c.lib.removeCell(c)
	c.mu.Lock()
	c.linked = false
	c.touch()
	c.mu.Unlock()
	db.gen.Add(1)
	return nil
}

// Apply validates the whole change set and then performs it. A change set
// that fails validation changes nothing.
func (db *Database) Apply(cs *ChangeSet) (*Applied, error) {
	if err := db.validate(cs); err != nil {
		return nil, err
	}
	c := cs.Cell
	res := &Applied{
		Nodes:   make(map[*NodeSpec]*NodeInst),
		Arcs:    make(map[*ArcSpec]*ArcInst),
		Exports: make(map[*ExportSpec]*Export),
	}

	c.mu.Lock()
	removed := c.applyDeletes(cs)
	c.applyMoves(cs)
	c.applyResizes(cs)
	for _, tr := range cs.TextRotations {
		if td := textRef(tr.Object, tr.Key); td != nil {
			td.Rotation = geom.NewOrientation(td.Rotation+tr.Angle, false, false).Angle
			if tr.FlipX {
				td.Offset.X = -td.Offset.X
			}
			if tr.FlipY {
				td.Offset.Y = -td.Offset.Y
			}
		}
	}
	for _, ex := range cs.Expansions {
		ex.Node.expanded = ex.Expanded
	}
	for _, vc := range cs.VarChanges {
		applyVar(vc)
	}
	for _, spec := range cs.NewNodes {
		res.Nodes[spec] = c.createNode(spec)
	}
	for _, spec := range cs.NewArcs {
		res.Arcs[spec] = c.createArc(spec, res)
	}
	var added []*Export
	for _, spec := range cs.NewExports {
		pi := resolvePort(spec.Port, res)
		e := &Export{name: spec.Name, parent: c, original: pi, characteristic: spec.Characteristic, linked: true}
		c.exports = append(c.exports, e)
		res.Exports[spec] = e
		added = append(added, e)
	}
	c.touch()
	c.mu.Unlock()

	if len(removed) > 0 || len(added) > 0 {
		propagateExports(c, removed, added)
	}
	db.gen.Add(1)
	return res, nil
}

func (db *Database) validate(cs *ChangeSet) error {
	c := cs.Cell
	if c == nil {
		return fmt.Errorf("%w: no cell", ErrBadChange)
	}
	if !c.IsLinked() || c.lib == nil || c.lib.db != db {
		return fmt.Errorf("%w: %s", ErrNotLinked, c.Describe())
	}
	member := func(obj Object) error {
		if obj == nil || !obj.IsLinked() {
			return ErrNotLinked
		}
		if obj.Parent() != c {
			return fmt.Errorf("%w: %s", ErrWrongCell, obj.Describe())
		}
		return nil
	}
	for _, g := range cs.Deletes {
		if err := member(g); err != nil {
			return err
		}
	}
	for _, e := range cs.DeleteExports {
		if err := member(e); err != nil {
			return err
		}
	}
	for _, m := range cs.Moves {
		if err := member(m.Node); err != nil {
			return err
		}
	}
	for _, r := range cs.Resizes {
		if err := member(r.Node); err != nil {
			return err
		}
		if r.Node.IsCellInstance() {
			return fmt.Errorf("%w: cannot resize cell instance %s", ErrBadChange, r.Node.Describe())
		}
	}
	for _, tr := range cs.TextRotations {
		if err := member(tr.Object); err != nil {
			return err
		}
		if textRef(tr.Object, tr.Key) == nil {
			return fmt.Errorf("%w: no text %q on %s", ErrBadChange, tr.Key, tr.Object.Describe())
		}
	}
	for _, ex := range cs.Expansions {
		if err := member(ex.Node); err != nil {
			return err
		}
	}
	for _, vc := range cs.VarChanges {
		if err := member(vc.Object); err != nil {
			return err
		}
		switch vc.Object.(type) {
		case *Cell, *NodeInst, *ArcInst:
		default:
			return fmt.Errorf("%w: cannot hold variables: %s", ErrBadChange, vc.Object.Describe())
		}
	}

	specs := make(map[*NodeSpec]bool)
	for _, spec := range cs.NewNodes {
		if spec.Proto == nil {
			return fmt.Errorf("%w: node without prototype", ErrBadChange)
		}
		if sub, ok := spec.Proto.(*Cell); ok {
			if !sub.IsLinked() {
				return fmt.Errorf("%w: %s", ErrNotLinked, sub.Describe())
			}
			if sub.uses(c) {
				return fmt.Errorf("%w: %s inside %s", ErrRecursive, sub.Describe(), c.Describe())
			}
		}
		specs[spec] = true
	}
	checkEnd := func(end End) (PortProto, error) {
		var proto NodeProto
		switch {
		case end.Node != nil:
			if err := member(end.Node); err != nil {
				return nil, err
			}
			if cs.IsDeleted(end.Node) {
				return nil, fmt.Errorf("%w: %s is being deleted", ErrBadChange, end.Node.Describe())
			}
			proto = end.Node.proto
		case end.New != nil:
			if !specs[end.New] {
				return nil, fmt.Errorf("%w: node is not part of this change", ErrBadChange)
			}
			proto = end.New.Proto
		default:
			return nil, fmt.Errorf("%w: end has no node", ErrBadChange)
		}
		pp := findPortProto(proto, end.Port)
		if pp == nil {
			return nil, fmt.Errorf("%w: %q on %s", ErrNoPort, end.Port, proto.ProtoName())
		}
		return pp, nil
	}
	for _, spec := range cs.NewArcs {
		if spec.Proto == nil {
			return fmt.Errorf("%w: arc without prototype", ErrBadChange)
		}
		for _, end := range []End{spec.Head, spec.Tail} {
			pp, err := checkEnd(end)
			if err != nil {
				return err
			}
			if !pp.CanConnect(spec.Proto) {
				return fmt.Errorf("%w: %s to %s", ErrCannotConnect, spec.Proto.Name, pp.PortName())
			}
		}
	}
	names := make(map[string]bool)
	for _, e := range c.Exports() {
		names[e.name] = true
	}
	for _, e := range cs.DeleteExports {
		delete(names, e.name)
	}
	for _, spec := range cs.NewExports {
		if spec.Name == "" {
			return fmt.Errorf("%w: empty export name", ErrBadChange)
		}
		if names[spec.Name] {
			return fmt.Errorf("%w: %s", ErrExportExists, spec.Name)
		}
		names[spec.Name] = true
		if _, err := checkEnd(spec.Port); err != nil {
			return err
		}
	}
	return nil
}

func findPortProto(proto NodeProto, name string) PortProto {
	if name == "" {
		ports := proto.PortProtos()
		if len(ports) == 0 {
			return nil
		}
		return ports[0]
	}
	return proto.FindPortProto(name)
}

func resolvePort(end End, res *Applied) *PortInst {
	n := end.Node
	if n == nil {
		n = res.Nodes[end.New]
	}
	if end.Port == "" {
		if len(n.ports) == 0 {
			return nil
		}
		return n.ports[0]
	}
	for _, pi := range n.ports {
		if pi.proto.PortName() == end.Port {
			return pi
		}
	}
	return nil
}

// applyDeletes removes arcs, then nodes with their arcs and exports. It
// returns the removed exports. Callers hold c.mu.
func (c *Cell) applyDeletes(cs *ChangeSet) []*Export {
	var removed []*Export
	for _, g := range cs.Deletes {
		if a, ok := g.(*ArcInst); ok && a.linked {
			c.removeArc(a)
		}
	}
	for _, g := range cs.Deletes {
		n, ok := g.(*NodeInst)
		if !ok || !n.linked {
			continue
		}
		for len(n.conns) > 0 {
			c.removeArc(n.conns[0].arc)
		}
		for _, e := range c.exports {
			if e.linked && e.original.node == n {
				removed = append(removed, e)
			}
		}
		c.removeExports(removed)
		n.linked = false
		c.nodes = removeItem(c.nodes, n)
	}
	for _, e := range cs.DeleteExports {
		if e.linked {
			removed = append(removed, e)
			c.removeExports([]*Export{e})
		}
	}
	return removed
}

func (c *Cell) removeArc(a *ArcInst) {
	a.linked = false
	c.arcs = removeItem(c.arcs, a)
	for _, end := range a.ends {
		n := end.port.node
		n.conns = removeItem(n.conns, end)
	}
}

func (c *Cell) removeExports(list []*Export) {
	for _, e := range list {
		if !e.linked {
			continue
		}
		e.linked = false
		c.exports = removeItem(c.exports, e)
	}
}

func (c *Cell) applyMoves(cs *ChangeSet) {
	for _, m := range cs.Moves {
		n := m.Node
		if !n.linked {
			continue
		}
		before := n.Transform()
		if !m.Rotation.IsIdentity() {
			n.center = m.Rotation.About(m.Pivot).Apply(n.center)
			o := n.Orientation().Then(m.Rotation)
			n.angle, n.mirrorX, n.mirrorY = o.Angle, o.MirrorX, false
		}
		n.center = n.center.Add(m.Delta)
		remap := before.Inverse().Then(n.Transform())
		for _, conn := range n.conns {
			conn.location = remap.Apply(conn.location)
		}
	}
}

func (c *Cell) applyResizes(cs *ChangeSet) {
	for _, r := range cs.Resizes {
		n := r.Node
		if !n.linked {
			continue
		}
		n.width, n.height = r.Width, r.Height
		for _, conn := range n.conns {
			poly := conn.port.Poly()
			if !poly.Bounds().Contains(conn.location) {
				conn.location = conn.port.Center()
			}
		}
	}
}

func applyVar(vc VarChange) {
	var vars *[]*Variable
	switch o := vc.Object.(type) {
	case *Cell:
		vars = &o.vars
	case *NodeInst:
		vars = &o.vars
	case *ArcInst:
		vars = &o.vars
	default:
		return
	}
	for i, v := range *vars {
		if v.Key == vc.Var.Key {
			if vc.Remove {
				*vars = append((*vars)[:i], (*vars)[i+1:]...)
			} else {
				nv := vc.Var
				(*vars)[i] = &nv
			}
			return
		}
	}
	if !vc.Remove {
		nv := vc.Var
		*vars = append(*vars, &nv)
	}
}

func (c *Cell) createNode(spec *NodeSpec) *NodeInst {
	n := &NodeInst{
		id:       c.nextNodeID,
		proto:    spec.Proto,
		parent:   c,
		linked:   true,
		center:   spec.Center,
		width:    spec.Width,
		height:   spec.Height,
		angle:    geom.NewOrientation(spec.Angle, false, false).Angle,
		mirrorX:  spec.MirrorX,
		mirrorY:  spec.MirrorY,
		expanded: spec.Expanded,
		hardSel:  spec.HardSelect,
	}
	c.nextNodeID++
	if len(spec.Outline) > 0 {
		n.outline = append([]geom.Point(nil), spec.Outline...)
	}
	if pn, ok := spec.Proto.(*PrimitiveNode); ok {
		if n.width <= 0 && n.height <= 0 && len(n.outline) > 0 {
			r := n.localRect()
			n.width, n.height = r.Width(), r.Height()
		}
		if n.width <= 0 {
			n.width = pn.DefaultWidth
		}
		if n.height <= 0 {
			n.height = pn.DefaultHeight
		}
	}
	if spec.Name != "" {
		n.name = spec.Name
		n.nameDisplayed = true
	} else {
		n.name = c.uniqueNodeName(nodeBaseName(spec.Proto))
	}
	for i := range spec.Vars {
		v := spec.Vars[i]
		n.vars = append(n.vars, &v)
	}
	for _, pp := range spec.Proto.PortProtos() {
		n.ports = append(n.ports, &PortInst{node: n, proto: pp})
	}
	c.nodes = append(c.nodes, n)
	return n
}

func (c *Cell) createArc(spec *ArcSpec, res *Applied) *ArcInst {
	a := &ArcInst{
		id:     c.nextArcID,
		proto:  spec.Proto,
		parent: c,
		linked: true,
		width:  spec.Width,
	}
	c.nextArcID++
	if a.width < 0 {
		a.width = 0
	}
	if spec.Name != "" {
		a.name = spec.Name
		a.nameDisplayed = true
	} else {
		a.name = c.uniqueArcName()
	}
	for i, end := range []End{spec.Head, spec.Tail} {
		pi := resolvePort(end, res)
		loc := pi.Center()
		if end.At != nil {
			loc = *end.At
		}
		conn := &Connection{arc: a, end: i, port: pi, location: loc}
		a.ends[i] = conn
		pi.node.conns = append(pi.node.conns, conn)
	}
	c.arcs = append(c.arcs, a)
	return a
}

func nodeBaseName(proto NodeProto) string {
	if pn, ok := proto.(*PrimitiveNode); ok && pn.Function != FnUnknown {
		return pn.Function.String()
	}
	return proto.ProtoName()
}

func (c *Cell) uniqueNodeName(base string) string {
	used := make(map[string]bool, len(c.nodes))
	for _, n := range c.nodes {
		used[n.name] = true
	}
	for i := 0; ; i++ {
		name := fmt.Sprintf("%s@%d", base, i)
		if !used[name] {
			return name
		}
	}
}

func (c *Cell) uniqueArcName() string {
	used := make(map[string]bool, len(c.arcs))
	for _, a := range c.arcs {
		used[a.name] = true
	}
	for i := c.nextArcID - 1; ; i++ {
		name := fmt.Sprintf("net@%d", i)
		if !used[name] {
			return name
		}
	}
}

// propagateExports keeps the port lists of every instance of c in step with
// its exports. Arcs on a vanished port are removed.
func propagateExports(c *Cell, removed, added []*Export) {
	for _, inst := range c.Instances() {
		p := inst.parent
		p.mu.Lock()
		for _, e := range removed {
			for _, pi := range inst.ports {
				if pi.proto != PortProto(e) {
					continue
				}
				for _, conn := range append([]*Connection(nil), inst.conns...) {
					if conn.port == pi {
						p.removeArc(conn.arc)
					}
				}
				inst.ports = removeItem(inst.ports, pi)
				break
			}
		}
		for _, e := range added {
			inst.ports = append(inst.ports, &PortInst{node: inst, proto: e})
		}
		p.touch()
		p.mu.Unlock()
	}
}

func removeItem[T comparable](list []T, item T) []T {
	for i, x := range list {
		if x == item {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
