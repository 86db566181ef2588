package edit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ignat99/electric-sub000/pkg/circuit"
	"github.com/Ignat99/electric-sub000/pkg/config"
	"github.com/Ignat99/electric-sub000/pkg/edit"
	"github.com/Ignat99/electric-sub000/pkg/geom"
	"github.com/Ignat99/electric-sub000/pkg/highlight"
	"github.com/Ignat99/electric-sub000/pkg/tech"
)

type fixture struct {
	ts   *tech.Set
	db   *circuit.Database
	cell *circuit.Cell
}

func newFixture(t *testing.T, view circuit.View) *fixture {
	t.Helper()
	ts := tech.New()
	db := ts.NewDatabase()
	c, err := db.NewCell(db.NewLibrary("work"), "top", view)
	require.NoError(t, err)
	return &fixture{ts: ts, db: db, cell: c}
}

func (f *fixture) apply(t *testing.T, cs *circuit.ChangeSet) *circuit.Applied {
	t.Helper()
	res, err := f.db.Apply(cs)
	require.NoError(t, err)
	return res
}

func (f *fixture) pin(t *testing.T, at geom.Point, size float64) *circuit.NodeInst {
	t.Helper()
	cs := circuit.NewChangeSet(f.cell)
	spec := cs.AddNode(circuit.NodeSpec{Proto: f.ts.Metal1.Pin, Center: at, Width: size, Height: size})
	return f.apply(t, cs).Nodes[spec]
}

func (f *fixture) metal(t *testing.T, a, b *circuit.NodeInst) *circuit.ArcInst {
	t.Helper()
	cs := circuit.NewChangeSet(f.cell)
	spec := cs.AddArc(f.ts.Metal1, circuit.End{Node: a}, circuit.End{Node: b})
	return f.apply(t, cs).Arcs[spec]
}

func objects(objs ...circuit.Object) []highlight.Highlight {
	out := make([]highlight.Highlight, len(objs))
	for i, o := range objs {
		out[i] = highlight.NewObject(o)
	}
	return out
}

func TestAlignNodesHorizontalCenter(t *testing.T) {
	f := newFixture(t, circuit.ViewLayout)
	a := f.pin(t, geom.Pt(1, 1), 2)
	b := f.pin(t, geom.Pt(6, 6), 2)
	c := f.pin(t, geom.Pt(11, 1), 2)

	res := edit.NewPlanner().AlignNodes(objects(a, b, c), true, edit.AlignCenter)
	require.False(t, res.IsEmpty())
	assert.Len(t, res.Changes.Moves, 2)
	f.apply(t, res.Changes)

	for _, n := range []*circuit.NodeInst{a, b, c} {
		assert.InDelta(t, 6.0, n.Center().X, geom.Epsilon)
	}
	assert.InDelta(t, 1.0, a.Center().Y, geom.Epsilon)
	assert.InDelta(t, 6.0, b.Center().Y, geom.Epsilon)
	assert.InDelta(t, 1.0, c.Center().Y, geom.Epsilon)
}

func TestAlignNodesEdges(t *testing.T) {
	f := newFixture(t, circuit.ViewLayout)
	a := f.pin(t, geom.Pt(1, 1), 2)
	b := f.pin(t, geom.Pt(6, 6), 4)
	p := edit.NewPlanner()

	f.apply(t, p.AlignNodes(objects(a, b), false, edit.AlignHigh).Changes)
	assert.InDelta(t, 8.0, a.Bounds().Max.Y, geom.Epsilon)
	assert.InDelta(t, 8.0, b.Bounds().Max.Y, geom.Epsilon)

	f.apply(t, p.AlignNodes(objects(a, b), true, edit.AlignLow).Changes)
	assert.InDelta(t, 0.0, a.Bounds().Min.X, geom.Epsilon)
	assert.InDelta(t, 0.0, b.Bounds().Min.X, geom.Epsilon)

	again := p.AlignNodes(objects(a, b), true, edit.AlignLow)
	assert.True(t, again.IsEmpty())
	assert.Equal(t, "Nodes are already aligned", again.Message)

	none := p.AlignNodes(nil, true, edit.AlignLow)
	assert.True(t, none.IsEmpty())
	assert.Equal(t, "Must select nodes to align", none.Message)
}

func TestAlignToGridTakesArcEnds(t *testing.T) {
	f := newFixture(t, circuit.ViewLayout)
	a := f.pin(t, geom.Pt(0.3, 0.2), 3)
	b := f.pin(t, geom.Pt(5.6, 0.2), 3)
	arc := f.metal(t, a, b)
	lone := f.pin(t, geom.Pt(20.4, 2.6), 3)

	p := edit.NewPlanner()
	res := p.AlignToGrid(objects(arc, lone))
	require.Len(t, res.Changes.Moves, 3)
	f.apply(t, res.Changes)
	assert.Equal(t, geom.Pt(0, 0), a.Center())
	assert.Equal(t, geom.Pt(6, 0), b.Center())
	assert.Equal(t, geom.Pt(20, 3), lone.Center())
	assert.InDelta(t, 0.0, arc.Head().Location().X, geom.Epsilon)
	assert.InDelta(t, 0.0, arc.Head().Location().Y, geom.Epsilon)

	off := edit.NewPlanner(edit.WithAlignment(config.Alignment{Grid: 0}))
	res = off.AlignToGrid(objects(lone))
	assert.True(t, res.IsEmpty())
	assert.Equal(t, "No alignment grid is set", res.Message)
}

func TestRotateAboutOriginAndCenter(t *testing.T) {
	f := newFixture(t, circuit.ViewLayout)
	a := f.pin(t, geom.Pt(0, 0), 3)
	b := f.pin(t, geom.Pt(10, 0), 3)
	arc := f.metal(t, a, b)

	f.apply(t, edit.NewPlanner().Rotate(objects(b), 900).Changes)
	assert.InDelta(t, 0.0, b.Center().X, geom.Epsilon)
	assert.InDelta(t, 10.0, b.Center().Y, geom.Epsilon)
	assert.Equal(t, 900, b.Angle())

	centered := edit.NewPlanner(edit.WithAlignment(config.Alignment{Grid: 1, Pivot: config.PivotCenter}))
	res := centered.Rotate(objects(arc), 1800)
	require.Len(t, res.Changes.Moves, 2)
	f.apply(t, res.Changes)
	assert.InDelta(t, 0.0, a.Center().X, geom.Epsilon)
	assert.InDelta(t, 10.0, a.Center().Y, geom.Epsilon)
	assert.InDelta(t, 0.0, b.Center().X, geom.Epsilon)
	assert.InDelta(t, 0.0, b.Center().Y, geom.Epsilon)

	empty := edit.NewPlanner().Rotate(nil, 900)
	assert.True(t, empty.IsEmpty())
	assert.Equal(t, "Must select something to rotate", empty.Message)
}

func TestMirror(t *testing.T) {
	f := newFixture(t, circuit.ViewLayout)
	n := f.pin(t, geom.Pt(5, 2), 3)
	p := edit.NewPlanner()

	f.apply(t, p.Mirror(objects(n), true).Changes)
	assert.InDelta(t, -5.0, n.Center().X, geom.Epsilon)
	assert.InDelta(t, 2.0, n.Center().Y, geom.Epsilon)
	assert.True(t, n.Orientation().MirrorX)

	f.apply(t, p.Mirror(objects(n), false).Changes)
	assert.InDelta(t, -5.0, n.Center().X, geom.Epsilon)
	assert.InDelta(t, -2.0, n.Center().Y, geom.Epsilon)
}

func TestMirrorAndRotateText(t *testing.T) {
	f := newFixture(t, circuit.ViewLayout)
	n := f.pin(t, geom.Pt(0, 0), 3)
	cs := circuit.NewChangeSet(f.cell)
	cs.SetVar(n, circuit.Variable{Key: "note", Value: "vdd", Display: true,
		Text: circuit.TextDescriptor{Offset: geom.Pt(2, 1)}})
	f.apply(t, cs)
	label := []highlight.Highlight{highlight.NewText(n, "note")}
	p := edit.NewPlanner()

	res := p.Mirror(label, true)
	assert.Equal(t, "mirrored 0 nodes and 1 texts", res.Message)
	f.apply(t, res.Changes)
	td, ok := circuit.TextDescriptorOf(n, "note")
	require.True(t, ok)
	assert.Equal(t, geom.Pt(-2, 1), td.Offset)
	assert.Zero(t, td.Rotation)

	f.apply(t, p.Mirror(label, false).Changes)
	td, _ = circuit.TextDescriptorOf(n, "note")
	assert.Equal(t, geom.Pt(-2, -1), td.Offset)

	f.apply(t, p.Rotate(label, 900).Changes)
	td, _ = circuit.TextDescriptorOf(n, "note")
	assert.Equal(t, 900, td.Rotation)
	assert.Equal(t, geom.Pt(-2, -1), td.Offset)
	assert.InDelta(t, 0.0, n.Center().X, geom.Epsilon)
}

func TestCleanupDuplicateArcs(t *testing.T) {
	f := newFixture(t, circuit.ViewLayout)
	a := f.pin(t, geom.Pt(0, 0), 3)
	b := f.pin(t, geom.Pt(10, 0), 3)
	first := f.metal(t, a, b)
	second := f.metal(t, b, a)
	require.Greater(t, second.ID(), first.ID())

	p := edit.NewPlanner()
	res := p.Cleanup(f.cell)
	assert.Equal(t, []circuit.Geometric{second}, res.Changes.Deletes)
	assert.Equal(t, "removed 1 duplicate arcs", res.Message)
	f.apply(t, res.Changes)
	assert.Equal(t, []*circuit.ArcInst{first}, f.cell.Arcs())

	res = p.Cleanup(f.cell)
	assert.True(t, res.IsEmpty())
	assert.Equal(t, edit.MsgNothingToClean, res.Message)
}

func TestCleanupPins(t *testing.T) {
	f := newFixture(t, circuit.ViewLayout)
	unused := f.pin(t, geom.Pt(-20, 0), 3)
	big := f.pin(t, geom.Pt(0, 0), 7)
	other := f.pin(t, geom.Pt(10, 0), 3)
	f.metal(t, big, other)

	exported := f.pin(t, geom.Pt(0, 20), 3)
	cs := circuit.NewChangeSet(f.cell)
	cs.AddExport("out", circuit.End{Node: exported}, circuit.CharOutput)
	f.apply(t, cs)

	p := edit.NewPlanner()
	res := p.Cleanup(f.cell)
	assert.Equal(t, []circuit.Geometric{unused}, res.Changes.Deletes)
	require.Len(t, res.Changes.Resizes, 1)
	assert.Equal(t, circuit.Resize{Node: big, Width: 3, Height: 3}, res.Changes.Resizes[0])
	assert.Equal(t, "removed 1 unused pins; shrank 1 pins", res.Message)
	f.apply(t, res.Changes)

	res = p.Cleanup(f.cell)
	assert.True(t, res.IsEmpty())
	assert.Equal(t, edit.MsgNothingToClean, res.Message)
	assert.NotNil(t, f.cell.FindNode(exported.Name()))
}

func TestCleanupFlagsGapsAndZeroSize(t *testing.T) {
	f := newFixture(t, circuit.ViewLayout)
	cs := circuit.NewChangeSet(f.cell)
	big := cs.AddNode(circuit.NodeSpec{Proto: f.ts.Metal1.Pin, Center: geom.Pt(0, 0), Width: 10, Height: 10})
	left := cs.AddNode(circuit.NodeSpec{Proto: f.ts.Metal1.Pin, Center: geom.Pt(-20, 3)})
	right := cs.AddNode(circuit.NodeSpec{Proto: f.ts.Metal1.Pin, Center: geom.Pt(20, -3)})
	upper, lower := geom.Pt(-3, 3), geom.Pt(3, -3)
	cs.AddArc(f.ts.Metal1, circuit.End{New: left}, circuit.End{New: big, At: &upper})
	cs.AddArc(f.ts.Metal1, circuit.End{New: right}, circuit.End{New: big, At: &lower})
	fet := cs.AddNode(circuit.NodeSpec{Proto: f.ts.NTransistor, Center: geom.Pt(40, 0)})
	res := f.apply(t, cs)

	squash := circuit.NewChangeSet(f.cell)
	squash.ResizeNode(res.Nodes[fet], 0, 4)
	f.apply(t, squash)

	out := edit.NewPlanner().Cleanup(f.cell)
	assert.True(t, out.IsEmpty())
	require.Len(t, out.Flagged, 2)
	gap := out.Flagged[0].(*highlight.Object)
	assert.Equal(t, res.Nodes[big], gap.Node())
	assert.True(t, gap.IsError())
	assert.Equal(t, res.Nodes[fet], out.Flagged[1].(*highlight.Object).Node())
	assert.Equal(t, edit.MsgNothingToClean, out.Message)
}

func TestCleanupTwiceWithFlaggedNode(t *testing.T) {
	f := newFixture(t, circuit.ViewLayout)
	f.pin(t, geom.Pt(-20, 0), 3)
	cs := circuit.NewChangeSet(f.cell)
	fet := cs.AddNode(circuit.NodeSpec{Proto: f.ts.NTransistor, Center: geom.Pt(40, 0)})
	squashed := f.apply(t, cs).Nodes[fet]
	resize := circuit.NewChangeSet(f.cell)
	resize.ResizeNode(squashed, 0, 4)
	f.apply(t, resize)

	p := edit.NewPlanner()
	first := p.Cleanup(f.cell)
	assert.Equal(t, "removed 1 unused pins; 1 nodes have no size", first.Message)
	require.Len(t, first.Flagged, 1)
	f.apply(t, first.Changes)

	second := p.Cleanup(f.cell)
	assert.True(t, second.IsEmpty())
	assert.Equal(t, edit.MsgNothingToClean, second.Message)
	require.Len(t, second.Flagged, 1)
	assert.Equal(t, squashed, second.Flagged[0].(*highlight.Object).Node())
}

func TestRedundantPureLayerNodes(t *testing.T) {
	f := newFixture(t, circuit.ViewLayout)
	m1 := f.ts.FindNode("cmos:Metal-1-Node")
	m2 := f.ts.FindNode("cmos:Metal-2-Node")
	require.NotNil(t, m1)
	require.NotNil(t, m2)

	cs := circuit.NewChangeSet(f.cell)
	add := func(pn *circuit.PrimitiveNode, x, y, size float64) *circuit.NodeSpec {
		return cs.AddNode(circuit.NodeSpec{Proto: pn, Center: geom.Pt(x, y), Width: size, Height: size})
	}
	big := add(m1, 0, 0, 10)
	inside := add(m1, 1, 1, 4)
	twinA := add(m1, 20, 0, 4)
	twinB := add(m1, 20, 0, 4)
	straddle := add(m1, 4, 4, 4)
	otherLayer := add(m2, 0, 0, 2)
	square := []geom.Point{geom.Pt(-5, -5), geom.Pt(5, -5), geom.Pt(5, 5), geom.Pt(-5, 5)}
	outlined := cs.AddNode(circuit.NodeSpec{Proto: m1, Center: geom.Pt(40, 0), Outline: square})
	small := add(m1, 40, 0, 2)
	res := f.apply(t, cs)

	out := edit.NewPlanner().Redundant(f.cell)
	var found []*circuit.NodeInst
	for _, h := range out.Flagged {
		found = append(found, h.(*highlight.Object).Node())
	}
	assert.Equal(t, []*circuit.NodeInst{res.Nodes[inside], res.Nodes[twinA], res.Nodes[small]}, found)
	assert.Len(t, out.Changes.Deletes, 3)
	assert.Equal(t, "3 redundant pure-layer nodes", out.Message)
	for _, spec := range []*circuit.NodeSpec{big, twinB, straddle, otherLayer, outlined} {
		assert.False(t, out.Changes.IsDeleted(res.Nodes[spec]), res.Nodes[spec].Describe())
	}

	f.apply(t, out.Changes)
	again := edit.NewPlanner().Redundant(f.cell)
	assert.True(t, again.IsEmpty())
}

func TestRipBus(t *testing.T) {
	f := newFixture(t, circuit.ViewSchematic)
	cs := circuit.NewChangeSet(f.cell)
	a := cs.AddNode(circuit.NodeSpec{Proto: f.ts.BusPin, Center: geom.Pt(0, 0)})
	b := cs.AddNode(circuit.NodeSpec{Proto: f.ts.BusPin, Center: geom.Pt(10, 0)})
	spec := cs.AddArc(f.ts.Bus, circuit.End{New: a}, circuit.End{New: b})
	spec.Name = "d[2:0]"
	bus := f.apply(t, cs).Arcs[spec]

	assert.Equal(t, "Must select named bus arcs to rip", edit.NewPlanner(edit.WithTech(f.ts)).RipBus(nil).Message)

	res := edit.NewPlanner(edit.WithTech(f.ts)).RipBus(objects(bus))
	require.Len(t, res.Changes.NewNodes, 3)
	require.Len(t, res.Changes.NewArcs, 3)
	assert.Equal(t, "ripped 1 buses into 3 wires", res.Message)
	f.apply(t, res.Changes)

	for i, name := range []string{"d[2]", "d[1]", "d[0]"} {
		w := f.cell.FindArc(name)
		require.NotNil(t, w, name)
		assert.Equal(t, f.ts.Wire, w.Proto())
		assert.Equal(t, geom.Pt(10, 0), w.Head().Location())
		assert.Equal(t, geom.Pt(10, -2*float64(i+1)), w.Tail().Location())
	}
}

func TestExpandBusName(t *testing.T) {
	assert.Equal(t, []string{"a[3]", "a[2]", "a[1]", "a[0]"}, edit.ExpandBusName("a[3:0]"))
	assert.Equal(t, []string{"b[0]", "b[1]", "c"}, edit.ExpandBusName("b[0:1],c"))
	assert.Equal(t, []string{"x"}, edit.ExpandBusName("x"))
	assert.Equal(t, []string{"x[1]"}, edit.ExpandBusName("x[1]"))
}
