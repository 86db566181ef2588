package circuit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ignat99/electric-sub000/pkg/circuit"
	"github.com/Ignat99/electric-sub000/pkg/geom"
	"github.com/Ignat99/electric-sub000/pkg/tech"
)

type fixture struct {
	ts  *tech.Set
	db  *circuit.Database
	lib *circuit.Library
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ts := tech.New()
	db := ts.NewDatabase()
	return &fixture{ts: ts, db: db, lib: db.NewLibrary("work")}
}

func (f *fixture) cell(t *testing.T, name string, view circuit.View) *circuit.Cell {
	t.Helper()
	c, err := f.db.NewCell(f.lib, name, view)
	require.NoError(t, err)
	return c
}

func (f *fixture) apply(t *testing.T, cs *circuit.ChangeSet) *circuit.Applied {
	t.Helper()
	res, err := f.db.Apply(cs)
	require.NoError(t, err)
	return res
}

// wireChain builds pin-a --wire-- pin-b in c and returns both pins.
func (f *fixture) wireChain(t *testing.T, c *circuit.Cell, a, b geom.Point) (*circuit.NodeInst, *circuit.NodeInst, *circuit.ArcInst) {
	t.Helper()
	cs := circuit.NewChangeSet(c)
	pa := cs.AddNode(circuit.NodeSpec{Proto: f.ts.WirePin, Center: a})
	pb := cs.AddNode(circuit.NodeSpec{Proto: f.ts.WirePin, Center: b})
	arc := cs.AddArc(f.ts.Wire, circuit.End{New: pa}, circuit.End{New: pb})
	res := f.apply(t, cs)
	return res.Nodes[pa], res.Nodes[pb], res.Arcs[arc]
}

func TestCreateNodesAndArcs(t *testing.T) {
	f := newFixture(t)
	c := f.cell(t, "top", circuit.ViewSchematic)
	a, b, arc := f.wireChain(t, c, geom.Pt(0, 0), geom.Pt(10, 0))

	assert.Equal(t, "pin@0", a.Name())
	assert.Equal(t, "pin@1", b.Name())
	assert.False(t, a.NameDisplayed())
	assert.Equal(t, geom.Pt(0, 0), arc.Head().Location())
	assert.Equal(t, geom.Pt(10, 0), arc.Tail().Location())
	assert.Len(t, a.Connections(), 1)
	assert.Equal(t, "top{sch}", c.Describe())
	assert.True(t, c.ContainsObject(arc))
	assert.Equal(t, 1, c.Revision())
}

func TestApplyValidatesFirst(t *testing.T) {
	f := newFixture(t)
	c := f.cell(t, "top", circuit.ViewLayout)

	cs := circuit.NewChangeSet(c)
	pa := cs.AddNode(circuit.NodeSpec{Proto: f.ts.WirePin})
	pb := cs.AddNode(circuit.NodeSpec{Proto: f.ts.NTransistor, Center: geom.Pt(10, 0)})
	// Poly cannot reach a schematic wire pin.
	cs.AddArc(f.ts.Poly1, circuit.End{New: pa}, circuit.End{New: pb, Port: "g"})

	_, err := f.db.Apply(cs)
	require.ErrorIs(t, err, circuit.ErrCannotConnect)
	assert.Empty(t, c.Nodes(), "failed change must not leave partial edits")

	cs = circuit.NewChangeSet(c)
	cs.AddArc(f.ts.Poly1, circuit.End{New: &circuit.NodeSpec{Proto: f.ts.WirePin}}, circuit.End{New: pb})
	_, err = f.db.Apply(cs)
	assert.ErrorIs(t, err, circuit.ErrBadChange)
}

func TestRecursiveInstanceRejected(t *testing.T) {
	f := newFixture(t)
	top := f.cell(t, "top", circuit.ViewLayout)
	sub := f.cell(t, "sub", circuit.ViewLayout)

	cs := circuit.NewChangeSet(top)
	cs.AddNode(circuit.NodeSpec{Proto: sub})
	f.apply(t, cs)

	cs = circuit.NewChangeSet(sub)
	cs.AddNode(circuit.NodeSpec{Proto: top})
	_, err := f.db.Apply(cs)
	assert.ErrorIs(t, err, circuit.ErrRecursive)
}

func TestNetlistJoinsArcsAndNames(t *testing.T) {
	f := newFixture(t)
	c := f.cell(t, "top", circuit.ViewSchematic)
	a, b, _ := f.wireChain(t, c, geom.Pt(0, 0), geom.Pt(10, 0))
	lone, _, _ := f.wireChain(t, c, geom.Pt(0, 20), geom.Pt(10, 20))

	cs := circuit.NewChangeSet(c)
	cs.AddExport("in", circuit.End{Node: a}, circuit.CharInput)
	f.apply(t, cs)

	nl := c.Netlist()
	assert.Equal(t, 2, nl.NetworkCount())
	pa, pb := a.PortInsts()[0], b.PortInsts()[0]
	assert.True(t, nl.Connected(pa, pb))
	assert.False(t, nl.Connected(pa, lone.PortInsts()[0]))
	assert.Equal(t, "in", nl.PortNetwork(pb).Name())
	assert.Same(t, nl.PortNetwork(pa), nl.FindNetwork("in"))
}

func TestNetlistThroughSubcell(t *testing.T) {
	f := newFixture(t)
	sub := f.cell(t, "inv", circuit.ViewSchematic)
	x, y, _ := f.wireChain(t, sub, geom.Pt(0, 0), geom.Pt(4, 0))
	cs := circuit.NewChangeSet(sub)
	cs.AddExport("a", circuit.End{Node: x}, circuit.CharInput)
	cs.AddExport("b", circuit.End{Node: y}, circuit.CharOutput)
	f.apply(t, cs)

	top := f.cell(t, "top", circuit.ViewSchematic)
	cs = circuit.NewChangeSet(top)
	inst := cs.AddNode(circuit.NodeSpec{Proto: sub, Center: geom.Pt(100, 0), Name: "u1"})
	p1 := cs.AddNode(circuit.NodeSpec{Proto: f.ts.WirePin, Center: geom.Pt(80, 0)})
	p2 := cs.AddNode(circuit.NodeSpec{Proto: f.ts.WirePin, Center: geom.Pt(120, 0)})
	cs.AddArc(f.ts.Wire, circuit.End{New: p1}, circuit.End{New: inst, Port: "a"})
	cs.AddArc(f.ts.Wire, circuit.End{New: inst, Port: "b"}, circuit.End{New: p2})
	res := f.apply(t, cs)

	nl := top.Netlist()
	left := res.Nodes[p1].PortInsts()[0]
	right := res.Nodes[p2].PortInsts()[0]
	assert.True(t, nl.Connected(left, right), "the subcell's wire joins both sides")

	// The instance port sits where the export's pin sits, moved by the instance.
	pa := res.Nodes[inst].FindPortInst("a")
	require.NotNil(t, pa)
	assert.Equal(t, geom.Pt(100, 0), pa.Center())
}

type recorder struct {
	depths []int
	ids    map[string]int
}

func (r *recorder) EnterCell(info *circuit.CellInfo) bool {
	r.depths = append(r.depths, info.Depth())
	for _, e := range info.Cell().Exports() {
		r.ids[info.Cell().Name()+"."+e.Name()] = info.NetID(info.Netlist().ExportNetwork(e))
	}
	return true
}

func (r *recorder) ExitCell(*circuit.CellInfo) {}

func (r *recorder) VisitNode(n *circuit.NodeInst, _ *circuit.CellInfo) bool {
	return n.IsCellInstance()
}

func TestEnumerateSharesNetworkIDs(t *testing.T) {
	f := newFixture(t)
	sub := f.cell(t, "leaf", circuit.ViewLayout)
	cs := circuit.NewChangeSet(sub)
	pin := cs.AddNode(circuit.NodeSpec{Proto: f.ts.Metal1.Pin})
	cs.AddExport("io", circuit.End{New: pin}, circuit.CharBidir)
	f.apply(t, cs)

	top := f.cell(t, "top", circuit.ViewLayout)
	cs = circuit.NewChangeSet(top)
	inst := cs.AddNode(circuit.NodeSpec{Proto: sub, Center: geom.Pt(10, 10)})
	cs.AddExport("pad", circuit.End{New: inst, Port: "io"}, circuit.CharBidir)
	f.apply(t, cs)

	r := &recorder{ids: map[string]int{}}
	circuit.Enumerate(top, r)
	assert.Equal(t, []int{0, 1}, r.depths)
	assert.Equal(t, r.ids["top.pad"], r.ids["leaf.io"])
}

func TestMoveRotatesAboutPivot(t *testing.T) {
	f := newFixture(t)
	c := f.cell(t, "top", circuit.ViewSchematic)
	a, _, arc := f.wireChain(t, c, geom.Pt(10, 0), geom.Pt(20, 0))

	cs := circuit.NewChangeSet(c)
	cs.RotateNode(a, geom.Orientation{Angle: 900}, geom.Pt(0, 0))
	f.apply(t, cs)

	assert.True(t, geom.Pt(0, 10).Eq(a.Center()))
	assert.Equal(t, 900, a.Angle())
	assert.True(t, geom.Pt(0, 10).Eq(arc.Head().Location()), "arc end follows its node")
	assert.Equal(t, geom.Pt(20, 0), arc.Tail().Location())
}

func TestDeleteNodeTakesArcsAndExports(t *testing.T) {
	f := newFixture(t)
	c := f.cell(t, "top", circuit.ViewSchematic)
	a, b, arc := f.wireChain(t, c, geom.Pt(0, 0), geom.Pt(10, 0))
	cs := circuit.NewChangeSet(c)
	cs.AddExport("x", circuit.End{Node: a}, circuit.CharUnknown)
	f.apply(t, cs)

	cs = circuit.NewChangeSet(c)
	cs.Delete(a)
	f.apply(t, cs)

	assert.False(t, a.IsLinked())
	assert.False(t, arc.IsLinked())
	assert.Empty(t, c.Exports())
	assert.Empty(t, b.Connections())
	assert.Equal(t, []*circuit.NodeInst{b}, c.Nodes())
}

func TestSearchOrdersNodesFirst(t *testing.T) {
	f := newFixture(t)
	c := f.cell(t, "top", circuit.ViewSchematic)
	a, b, arc := f.wireChain(t, c, geom.Pt(0, 0), geom.Pt(10, 0))

	got := c.Search(geom.R(-1, -1, 11, 1))
	require.Len(t, got, 3)
	assert.Equal(t, []circuit.Geometric{a, b, arc}, got)
	assert.Empty(t, c.Search(geom.R(50, 50, 60, 60)))
}

func TestKillCell(t *testing.T) {
	f := newFixture(t)
	sub := f.cell(t, "sub", circuit.ViewLayout)
	top := f.cell(t, "top", circuit.ViewLayout)
	cs := circuit.NewChangeSet(top)
	cs.AddNode(circuit.NodeSpec{Proto: sub})
	f.apply(t, cs)

	assert.ErrorIs(t, f.db.KillCell(sub), circuit.ErrCellInUse)

	a, _, _ := f.wireChain(t, sub, geom.Pt(0, 0), geom.Pt(1, 0))
	require.NoError(t, f.db.KillCell(top))
	assert.False(t, top.IsLinked())
	assert.Nil(t, f.lib.FindCell("top", circuit.ViewLayout))
	assert.True(t, a.IsLinked())
}

func TestDisplayedText(t *testing.T) {
	f := newFixture(t)
	c := f.cell(t, "top", circuit.ViewSchematic)
	cs := circuit.NewChangeSet(c)
	n := cs.AddNode(circuit.NodeSpec{Proto: f.ts.NMOS, Name: "m1"})
	note := cs.AddNode(circuit.NodeSpec{
		Proto:  f.ts.InvisiblePin,
		Center: geom.Pt(20, 0),
		Vars:   []circuit.Variable{{Key: "text", Value: "hello", Display: true}},
	})
	res := f.apply(t, cs)

	kinds := map[circuit.TextKind]circuit.Object{}
	for _, item := range c.DisplayedText() {
		kinds[item.Kind] = item.Object
	}
	assert.Equal(t, res.Nodes[n], kinds[circuit.TextNode])
	assert.Equal(t, res.Nodes[note], kinds[circuit.TextAnnotation])
}
