package verilog

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Ignat99/electric-sub000/pkg/circuit"
	"github.com/Ignat99/electric-sub000/pkg/config"
	"github.com/Ignat99/electric-sub000/pkg/geom"
	"github.com/Ignat99/electric-sub000/pkg/tech"
)

// Variable keys written on generated objects.
const (
	KeyModuleName = "VERILOG_module"
	KeyFunction   = "VERILOG_function"
)

const (
	pinSpacing = 4
	placeGap   = 10
	symbolWide = 8
)

// builder carries one Materialize run.
type builder struct {
	c      *Compiler
	ed     circuit.Editor
	lib    *circuit.Library
	ts     *tech.Set
	layout bool

	cells map[*Module]*circuit.Cell
	gates map[string]*circuit.Cell
	made  []*circuit.Cell
}

// Materialize builds cells in lib for the compiled modules: a placeholder
// symbol for every undefined module without a stand-in cell, then one cell
// per defined module, children first. Schematic output also gets an icon
// per module, placed next to the schematic. It refuses to run after
// compile errors and returns the cells in creation order.
func (c *Compiler) Materialize(ed circuit.Editor, lib *circuit.Library, ts *tech.Set) ([]*circuit.Cell, error) {
	if c.HadErrors() {
		return nil, ErrCompileErrors
	}
	if len(c.Defined()) == 0 {
		return nil, ErrNoModules
	}
	c.ensureNets()
	b := &builder{
		c:      c,
		ed:     ed,
		lib:    lib,
		ts:     ts,
		layout: c.settings.Layout,
		cells:  make(map[*Module]*circuit.Cell),
		gates:  make(map[string]*circuit.Cell),
	}
	order := c.dependencyOrder()
	if err := b.checkNames(order); err != nil {
		return nil, err
	}
	for _, m := range order {
		var err error
		switch {
		case !m.Defined && m.Cell != nil:
			b.cells[m] = m.Cell
		case !m.Defined:
			b.cells[m], err = b.symbol(m.Name, b.symbolView(), m)
		default:
			err = b.module(m)
		}
		if err != nil {
			return b.made, err
		}
	}
	c.log.Info("verilog: materialized", "cells", len(b.made), "layout", b.layout)
	return b.made, nil
}

func (b *builder) symbolView() circuit.View {
	if b.layout {
		return circuit.ViewLayout
	}
	return circuit.ViewIcon
}

// checkNames fails before anything is built if a cell to be generated
// already exists.
func (b *builder) checkNames(order []*Module) error {
	for _, m := range order {
		var views []circuit.View
		switch {
		case !m.Defined && m.Cell != nil:
		case !m.Defined:
			views = []circuit.View{b.symbolView()}
		case b.layout:
			views = []circuit.View{circuit.ViewLayout}
		default:
			views = []circuit.View{circuit.ViewIcon, circuit.ViewSchematic}
		}
		for _, v := range views {
			if b.lib.FindCell(m.Name, v) != nil {
				return fmt.Errorf("%w: %s{%s}", circuit.ErrCellExists, m.Name, v.Abbrev())
			}
		}
	}
	return nil
}

func (b *builder) newCell(name string, view circuit.View) (*circuit.Cell, error) {
	cell, err := b.ed.NewCell(b.lib, name, view)
	if err != nil {
		return nil, fmt.Errorf("verilog: %w", err)
	}
	b.made = append(b.made, cell)
	return cell, nil
}

func (b *builder) apply(cs *circuit.ChangeSet) error {
	if _, err := b.ed.Apply(cs); err != nil {
		return fmt.Errorf("verilog: build %s: %w", cs.Cell.Describe(), err)
	}
	return nil
}

// exportPin returns the pin prototype for an export carrying bus or a
// single bit.
func (b *builder) exportPin(bus bool) *circuit.PrimitiveNode {
	switch {
	case b.layout:
		return b.ts.Metal1.Pin
	case bus:
		return b.ts.BusPin
	}
	return b.ts.WirePin
}

// symbolPort is one export of a generated symbol.
type symbolPort struct {
	name string
	mode Mode
	bus  bool
	bits []string
}

func (b *builder) symbolPorts(m *Module) []symbolPort {
	var out []symbolPort
	for _, p := range m.Ports {
		if b.layout {
			for _, bit := range p.Bits() {
				out = append(out, symbolPort{name: bit, mode: p.Mode, bits: []string{bit}})
			}
			continue
		}
		out = append(out, symbolPort{name: p.ExportName(), mode: p.Mode, bus: p.Range != nil, bits: p.Bits()})
	}
	return out
}

// symbol builds a box with one pin and export per port: inputs, inouts and
// unknowns down the left side, outputs down the right. The box carries the
// module name.
func (b *builder) symbol(name string, view circuit.View, m *Module) (*circuit.Cell, error) {
	cell, err := b.newCell(name, view)
	if err != nil {
		return nil, err
	}
	cs := circuit.NewChangeSet(cell)
	rows := [2]int{}
	for _, sp := range b.symbolPorts(m) {
		col := 0
		if sp.mode == ModeOutput {
			col = 1
		}
		at := geom.Pt(float64(col*symbolWide), -float64(rows[col]*pinSpacing))
		rows[col]++
		pin := cs.AddNode(circuit.NodeSpec{Proto: b.exportPin(sp.bus), Center: at})
		cs.AddExport(sp.name, circuit.End{New: pin}, sp.mode.Characteristic())
	}
	n := max(rows[0], rows[1], 1)
	box := geom.R(0, -float64((n-1)*pinSpacing)-pinSpacing/2, symbolWide, pinSpacing/2)
	center := box.Center()
	var outline []geom.Point
	for _, p := range box.Corners() {
		outline = append(outline, p.Sub(center))
	}
	cs.AddNode(circuit.NodeSpec{
		Proto:   b.ts.ClosedPoly,
		Center:  center,
		Outline: outline,
		Vars:    []circuit.Variable{{Key: KeyModuleName, Value: m.Name, Display: true}},
	})
	if err := b.apply(cs); err != nil {
		return nil, err
	}
	b.c.log.Debug("verilog: symbol", "cell", cell.Describe(), "ports", len(m.Ports))
	return cell, nil
}

// gateCell returns the layout stand-in for an assign gate function.
func (b *builder) gateCell(fn string) (*circuit.Cell, error) {
	if c := b.gates[fn]; c != nil {
		return c, nil
	}
	name := "gate_" + fn
	if c := b.lib.FindCell(name, circuit.ViewLayout); c != nil {
		b.gates[fn] = c
		return c, nil
	}
	m := newModule(fn)
	m.Ports = []*Port{{Name: "a", Mode: ModeInput}, {Name: "y", Mode: ModeOutput}}
	c, err := b.symbol(name, circuit.ViewLayout, m)
	if err != nil {
		return nil, err
	}
	b.gates[fn] = c
	return c, nil
}

// protoFor picks what to place for an instance.
func (b *builder) protoFor(inst *Instance) (circuit.NodeProto, error) {
	if inst.Module != nil {
		if c := b.cells[inst.Module]; c != nil {
			return c, nil
		}
		return nil, nil
	}
	switch inst.Function {
	case "nmos":
		if b.layout {
			return b.ts.NTransistor, nil
		}
		return b.ts.NMOS, nil
	case "pmos":
		if b.layout {
			return b.ts.PTransistor, nil
		}
		return b.ts.PMOS, nil
	}
	if b.layout {
		return b.gateCell(inst.Function)
	}
	switch inst.Function {
	case "and", "nand":
		return b.ts.And, nil
	case "buffer", "inverter":
		return b.ts.Buffer, nil
	}
	return b.ts.Or, nil
}

func localBounds(proto circuit.NodeProto) geom.Rect {
	if c, ok := proto.(*circuit.Cell); ok {
		return c.Bounds()
	}
	w, h := proto.DefaultSize()
	return geom.RectAround(geom.Point{}, w, h)
}

// endpoint is one place a signal must be wired to.
type endpoint struct {
	end    circuit.End
	wire   bool
	export bool
	key    string
}

type netPlan struct {
	order []string
	eps   map[string][]endpoint
	stubs map[string]int
}

func (np *netPlan) add(sig string, ep endpoint) {
	if _, ok := np.eps[sig]; !ok {
		np.order = append(np.order, sig)
	}
	np.eps[sig] = append(np.eps[sig], ep)
}

type placement struct {
	inst  *Instance
	proto circuit.NodeProto
	spec  *circuit.NodeSpec
	slot  geom.Rect
}

// module builds the cell of a defined module.
func (b *builder) module(m *Module) error {
	if !b.layout {
		icon, err := b.symbol(m.Name, circuit.ViewIcon, m)
		if err != nil {
			return err
		}
		b.cells[m] = icon
	}
	view := circuit.ViewSchematic
	if b.layout {
		view = circuit.ViewLayout
	}
	cell, err := b.newCell(m.Name, view)
	if err != nil {
		return err
	}
	if b.layout {
		b.cells[m] = cell
	}
	cs := circuit.NewChangeSet(cell)
	plan := &netPlan{eps: make(map[string][]endpoint), stubs: make(map[string]int)}

	placed := b.place(m, cs)
	extent := geom.EmptyRect()
	for _, pl := range placed {
		extent.ExpandRect(pl.slot)
	}
	if extent.IsEmpty() {
		extent = geom.R(0, 0, 0, 0)
	}
	for _, pl := range placed {
		b.connect(m, cs, pl, plan)
	}
	b.exports(m, cs, extent, plan)
	b.wire(m, cs, plan)
	if err := b.apply(cs); err != nil {
		return err
	}
	if !b.layout {
		if err := b.placeIcon(cell, b.cells[m]); err != nil {
			return err
		}
	}
	b.c.log.Debug("verilog: module cell", "cell", cell.Describe(), "instances", len(placed), "nets", len(plan.order))
	return nil
}

// place lays instances out left to right in rows about as wide as the
// square root of their total area.
func (b *builder) place(m *Module, cs *circuit.ChangeSet) []placement {
	var out []placement
	total := 0.0
	for _, inst := range m.Instances {
		proto, err := b.protoFor(inst)
		if err != nil || proto == nil {
			b.c.diag.errorf(Token{Line: inst.Line}, "no cell for instance %s of %s", inst.Name, inst.Kind())
			continue
		}
		r := localBounds(proto)
		total += (r.Width() + placeGap) * (r.Height() + placeGap)
		out = append(out, placement{inst: inst, proto: proto, slot: r})
	}
	side := math.Sqrt(total)
	x, y, rowH := 0.0, 0.0, 0.0
	for i := range out {
		pl := &out[i]
		local := pl.slot
		w, h := local.Width(), local.Height()
		if x > 0 && x+w > side {
			x = 0
			y -= rowH + placeGap
			rowH = 0
		}
		pl.slot = geom.R(x, y-h, x+w, y)
		center := pl.slot.Min.Sub(local.Min)
		spec := circuit.NodeSpec{Proto: pl.proto, Center: center, Name: pl.inst.Name}
		if pl.inst.Assign {
			spec.Vars = []circuit.Variable{{Key: KeyFunction, Value: pl.inst.Function, Display: true}}
		}
		pl.spec = cs.AddNode(spec)
		x += w + placeGap
		rowH = math.Max(rowH, h)
	}
	return out
}

// portNames finds the ports of proto that carry conn: the port itself, a
// ranged export of the same name, or one export per bit.
func portNames(proto circuit.NodeProto, inst *Instance, conn *Conn) []string {
	if proto.FindPortProto(conn.Port) != nil {
		return []string{conn.Port}
	}
	for _, pp := range proto.PortProtos() {
		name := pp.PortName()
		if strings.HasPrefix(name, conn.Port+"[") && strings.Contains(name, ":") {
			return []string{name}
		}
	}
	var bits []string
	if inst.Module != nil {
		if p := inst.Module.Port(conn.Port); p != nil {
			bits = p.Bits()
		}
	}
	if len(bits) == 0 {
		bits = expandBus(conn.Port, &Range{First: len(conn.Signals) - 1, Last: 0})
	}
	for _, bit := range bits {
		if proto.FindPortProto(bit) == nil {
			return nil
		}
	}
	return bits
}

func (b *builder) takesWire(proto circuit.NodeProto, port string) bool {
	if b.layout {
		return false
	}
	pp := proto.FindPortProto(port)
	return pp != nil && pp.CanConnect(b.ts.Wire)
}

// connect files every signal of one placed instance under its net.
func (b *builder) connect(m *Module, cs *circuit.ChangeSet, pl placement, plan *netPlan) {
	at := Token{Line: pl.inst.Line}
	for _, conn := range pl.inst.Conns {
		if len(conn.Signals) == 0 {
			continue
		}
		direct := func(sig, port string) {
			if sig == "" {
				return
			}
			plan.add(m.Resolve(sig), endpoint{
				end:  circuit.End{New: pl.spec, Port: port},
				wire: b.takesWire(pl.proto, port),
				key:  pl.inst.Name + "." + port,
			})
		}
		if pl.inst.Assign && conn.Port == "a" {
			for _, sig := range conn.Signals {
				direct(sig, "a")
			}
			continue
		}
		ports := portNames(pl.proto, pl.inst, conn)
		switch {
		case len(ports) == 0:
			b.c.diag.errorf(at, "%s has no port %s for instance %s", pl.proto.ProtoName(), conn.Port, pl.inst.Name)
		case len(ports) == len(conn.Signals):
			for i, sig := range conn.Signals {
				direct(sig, ports[i])
			}
		case len(ports) == 1:
			b.fanOut(m, cs, pl, ports[0], conn, plan)
		default:
			b.c.diag.errorf(at, "port %s of instance %s has %d signals for %d ports", conn.Port, pl.inst.Name, len(conn.Signals), len(ports))
			for i := 0; i < min(len(ports), len(conn.Signals)); i++ {
				direct(conn.Signals[i], ports[i])
			}
		}
	}
}

// fanOut attaches a bus of signals to a single port through a stub pin
// and an arc named after the bus.
func (b *builder) fanOut(m *Module, cs *circuit.ChangeSet, pl placement, port string, conn *Conn, plan *netPlan) {
	pin, arc := b.ts.UniversalPin, b.ts.UnroutedArc
	if !b.layout {
		pin = b.ts.BusPin
		if pp := pl.proto.FindPortProto(port); pp != nil && pp.CanConnect(b.ts.Bus) {
			arc = b.ts.Bus
		}
	}
	plan.stubs[pl.inst.Name]++
	at := geom.Pt(pl.slot.Min.X-placeGap/2, pl.slot.Max.Y-float64(plan.stubs[pl.inst.Name])*pinSpacing)
	stub := cs.AddNode(circuit.NodeSpec{Proto: pin, Center: at})
	a := cs.AddArc(arc, circuit.End{New: pl.spec, Port: port}, circuit.End{New: stub})
	resolved := make([]string, len(conn.Signals))
	for i, sig := range conn.Signals {
		if sig != "" {
			resolved[i] = m.Resolve(sig)
		}
	}
	a.Name = BusName(resolved)
	key := pl.inst.Name + "#" + port
	for _, sig := range resolved {
		if sig != "" {
			plan.add(sig, endpoint{end: circuit.End{New: stub}, key: key})
		}
	}
}

// exports places a pin per formal port, or per bit in layout, in columns
// beside the instances and exports it.
func (b *builder) exports(m *Module, cs *circuit.ChangeSet, extent geom.Rect, plan *netPlan) {
	rows := [2]int{}
	for _, sp := range b.symbolPorts(m) {
		col := 0
		x := extent.Min.X - 2*placeGap
		if sp.mode == ModeOutput {
			col = 1
			x = extent.Max.X + 2*placeGap
		}
		at := geom.Pt(x, extent.Max.Y-float64(rows[col]*pinSpacing))
		rows[col]++
		proto := b.exportPin(sp.bus)
		pin := cs.AddNode(circuit.NodeSpec{Proto: proto, Center: at})
		cs.AddExport(sp.name, circuit.End{New: pin}, sp.mode.Characteristic())
		for _, bit := range sp.bits {
			plan.add(m.Resolve(bit), endpoint{
				end:    circuit.End{New: pin},
				wire:   !b.layout && !sp.bus,
				export: true,
				key:    "export " + sp.name,
			})
		}
	}
}

// wire chains the endpoints of each net in encounter order. Two wire
// compatible ends get a wire; anything else, and any pair of exports, gets
// an unrouted arc. The first wire on a declared wire net takes its name.
func (b *builder) wire(m *Module, cs *circuit.ChangeSet, plan *netPlan) {
	for _, net := range plan.order {
		eps := plan.eps[net]
		named := false
		for i := 0; i+1 < len(eps); i++ {
			x, y := eps[i], eps[i+1]
			if x.key == y.key {
				continue
			}
			proto := b.ts.UnroutedArc
			if x.wire && y.wire && !(x.export && y.export) {
				proto = b.ts.Wire
			}
			arc := cs.AddArc(proto, x.end, y.end)
			if !named && proto == b.ts.Wire && m.HasWire(net) {
				arc.Name = net
				named = true
			}
		}
	}
}

// placeIcon puts an instance of icon at the configured corner of the
// schematic.
func (b *builder) placeIcon(sch, icon *circuit.Cell) error {
	sb := sch.Bounds()
	ib := icon.Bounds()
	off := b.c.settings.IconOffset
	var minX, minY float64
	switch b.c.settings.IconCorner {
	case config.UpperLeft:
		minX, minY = sb.Min.X-off-ib.Width(), sb.Max.Y+off
	case config.LowerRight:
		minX, minY = sb.Max.X+off, sb.Min.Y-off-ib.Height()
	case config.LowerLeft:
		minX, minY = sb.Min.X-off-ib.Width(), sb.Min.Y-off-ib.Height()
	default:
		minX, minY = sb.Max.X+off, sb.Max.Y+off
	}
	cs := circuit.NewChangeSet(sch)
	cs.AddNode(circuit.NodeSpec{Proto: icon, Center: geom.Pt(minX-ib.Min.X, minY-ib.Min.Y)})
	return b.apply(cs)
}

// BusName names a list of signals: base[first:last] when they are
// consecutive bits of one bus, otherwise the names joined with commas.
func BusName(signals []string) string {
	if len(signals) == 0 {
		return ""
	}
	base, first, ok := splitBit(signals[0])
	if ok && len(signals) > 1 {
		step := 0
		last := first
		for i, s := range signals[1:] {
			b, idx, ok2 := splitBit(s)
			if !ok2 || b != base {
				ok = false
				break
			}
			d := idx - last
			if i == 0 && (d == 1 || d == -1) {
				step = d
			}
			if d != step {
				ok = false
				break
			}
			last = idx
		}
		if ok {
			return fmt.Sprintf("%s[%d:%d]", base, first, last)
		}
	}
	parts := make([]string, len(signals))
	for i, s := range signals {
		if s == "" {
			s = "open"
		}
		parts[i] = s
	}
	return strings.Join(parts, ",")
}

func splitBit(s string) (string, int, bool) {
	open := strings.LastIndexByte(s, '[')
	if open <= 0 || !strings.HasSuffix(s, "]") {
		return "", 0, false
	}
	n, err := strconv.Atoi(s[open+1 : len(s)-1])
	if err != nil {
		return "", 0, false
	}
	return s[:open], n, true
}
