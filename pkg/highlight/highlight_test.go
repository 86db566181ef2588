package highlight

import (
	"fmt"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ignat99/electric-sub000/pkg/circuit"
	"github.com/Ignat99/electric-sub000/pkg/config"
	"github.com/Ignat99/electric-sub000/pkg/geom"
	"github.com/Ignat99/electric-sub000/pkg/tech"
)

type env struct {
	ts  *tech.Set
	db  *circuit.Database
	lib *circuit.Library
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ts := tech.New()
	db := ts.NewDatabase()
	return &env{ts: ts, db: db, lib: db.NewLibrary("work")}
}

func (e *env) cell(t *testing.T, name string, view circuit.View) *circuit.Cell {
	t.Helper()
	c, err := e.db.NewCell(e.lib, name, view)
	require.NoError(t, err)
	return c
}

func (e *env) apply(t *testing.T, cs *circuit.ChangeSet) *circuit.Applied {
	t.Helper()
	res, err := e.db.Apply(cs)
	require.NoError(t, err)
	return res
}

func (e *env) nodes(t *testing.T, c *circuit.Cell, proto circuit.NodeProto, at ...geom.Point) []*circuit.NodeInst {
	t.Helper()
	cs := circuit.NewChangeSet(c)
	var specs []*circuit.NodeSpec
	for _, p := range at {
		specs = append(specs, cs.AddNode(circuit.NodeSpec{Proto: proto, Center: p}))
	}
	res := e.apply(t, cs)
	out := make([]*circuit.NodeInst, len(specs))
	for i, s := range specs {
		out[i] = res.Nodes[s]
	}
	return out
}

type countingListener struct{ calls int }

func (l *countingListener) HighlightChanged(*Highlighter) { l.calls++ }

func TestClickAnotherCyclesThroughAll(t *testing.T) {
	e := newEnv(t)
	c := e.cell(t, "top", circuit.ViewSchematic)
	origin := geom.Pt(0, 0)
	e.nodes(t, c, e.ts.WirePin, origin, origin, origin)

	h := New(KindSelection)
	opts := ClickOptions{Another: true}
	seen := map[string]bool{}
	var first string
	for i := 0; i < 3; i++ {
		item := h.FindObject(c, origin, 1, opts)
		require.NotNil(t, item)
		if i == 0 {
			first = item.Info()
		}
		assert.False(t, seen[item.Info()], "visited %s twice", item.Info())
		seen[item.Info()] = true
		assert.Equal(t, 1, h.Count())
	}
	assert.Len(t, seen, 3)
	assert.Equal(t, first, h.FindObject(c, origin, 1, opts).Info())
}

func TestClickOnNothingClears(t *testing.T) {
	e := newEnv(t)
	c := e.cell(t, "top", circuit.ViewSchematic)
	n := e.nodes(t, c, e.ts.WirePin, geom.Pt(0, 0))[0]

	h := New(KindSelection)
	h.SelectObjects(n)
	assert.Nil(t, h.FindObject(c, geom.Pt(100, 100), 1, ClickOptions{Exclusive: true}))
	assert.Zero(t, h.Count())
	assert.True(t, h.Last().SameThing(NewObject(n), true))
}

func TestClickPrefersPrimitivesAndHonorsHardSelect(t *testing.T) {
	e := newEnv(t)
	c := e.cell(t, "top", circuit.ViewSchematic)
	cs := circuit.NewChangeSet(c)
	hard := cs.AddNode(circuit.NodeSpec{Proto: e.ts.WirePin, HardSelect: true})
	arcHead := cs.AddNode(circuit.NodeSpec{Proto: e.ts.WirePin, Center: geom.Pt(-10, 0)})
	arcTail := cs.AddNode(circuit.NodeSpec{Proto: e.ts.WirePin, Center: geom.Pt(10, 0)})
	arc := cs.AddArc(e.ts.Wire, circuit.End{New: arcHead}, circuit.End{New: arcTail})
	res := e.apply(t, cs)

	h := New(KindSelection)
	found := h.FindAllInArea(c, geom.R(0, 0, 0, 0), 1, ClickOptions{})
	require.Len(t, found, 1)
	assert.True(t, found[0].SameThing(NewObject(res.Arcs[arc]), true))

	found = h.FindAllInArea(c, geom.R(0, 0, 0, 0), 1, ClickOptions{HardToFind: true})
	require.Len(t, found, 2)
	assert.True(t, found[0].SameThing(NewObject(res.Nodes[hard]), true), "nodes come before arcs")
}

func TestClickWantPort(t *testing.T) {
	e := newEnv(t)
	c := e.cell(t, "top", circuit.ViewSchematic)
	fet := e.nodes(t, c, e.ts.NMOS, geom.Pt(0, 0))[0]

	h := New(KindSelection)
	item := h.FindObject(c, geom.Pt(-2, 0), 0.1, ClickOptions{Exclusive: true, WantPort: true})
	require.NotNil(t, item)
	assert.Equal(t, "Port "+fet.Name()+".g", item.Info())
	assert.True(t, item.SameThing(NewObject(fet), false), "a port is its node when not exact")
	assert.False(t, item.SameThing(NewObject(fet), true))
}

func TestAreaSelectAndInvert(t *testing.T) {
	e := newEnv(t)
	c := e.cell(t, "top", circuit.ViewSchematic)
	cs := circuit.NewChangeSet(c)
	a := cs.AddNode(circuit.NodeSpec{Proto: e.ts.WirePin})
	b := cs.AddNode(circuit.NodeSpec{Proto: e.ts.WirePin, Center: geom.Pt(10, 0)})
	cs.AddArc(e.ts.Wire, circuit.End{New: a}, circuit.End{New: b})
	res := e.apply(t, cs)

	h := New(KindSelection)
	assert.Equal(t, 3, h.SelectArea(c, geom.R(-1, -1, 11, 1), 1, false, false))
	assert.Len(t, h.HighlightedNodes(), 2)
	assert.Len(t, h.HighlightedArcs(), 1)

	h.SelectArea(c, geom.R(9, -1, 11, 1), 0, true, false)
	nodes := h.HighlightedNodes()
	assert.Equal(t, []*circuit.NodeInst{res.Nodes[a]}, nodes)
}

func TestAreaMustEnclose(t *testing.T) {
	e := newEnv(t)
	c := e.cell(t, "top", circuit.ViewSchematic)
	e.nodes(t, c, e.ts.WirePin, geom.Pt(0, 0), geom.Pt(10, 0))

	s := config.Default().Selection
	s.AreaMustEnclose = true
	h := New(KindSelection, WithSettings(s))
	assert.Equal(t, 1, h.SelectArea(c, geom.R(-1, -1, 1, 1), 1, false, false))
	assert.Zero(t, h.SelectArea(c, geom.R(9.8, -1, 11, 1), 1, false, false))
}

func TestStaleItemsArePruned(t *testing.T) {
	e := newEnv(t)
	c := e.cell(t, "doomed", circuit.ViewLayout)
	n := e.nodes(t, c, e.ts.Metal1.Pin, geom.Pt(0, 0))[0]

	l := &countingListener{}
	h := New(KindSelection)
	h.AddListener(l)
	item := NewObject(n)
	h.Add(item)
	h.Add(NewArea(c, geom.R(0, 0, 1, 1), nil))
	h.FinalizeChanges()
	assert.Equal(t, 1, l.calls)

	require.NoError(t, e.db.KillCell(c))
	assert.False(t, item.IsValid())
	h.FinalizeChanges()
	assert.Zero(t, h.Count())
	assert.Empty(t, h.Difficult())
	assert.Equal(t, 2, l.calls)
}

func TestNotificationsCoalesce(t *testing.T) {
	e := newEnv(t)
	c := e.cell(t, "top", circuit.ViewSchematic)

	var dispatched int
	l := &countingListener{}
	h := New(KindSelection, WithDispatcher(func(fn func()) { dispatched++; fn() }))
	h.AddListener(l)
	for i := 0; i < 3; i++ {
		h.Add(NewMessage(c, "hi", geom.Pt(float64(i), 0), 0, nil))
	}
	h.FinalizeChanges()
	h.FinalizeChanges()
	assert.Equal(t, 1, l.calls)
	assert.Equal(t, 1, dispatched)

	h.RemoveListener(l)
	h.Clear()
	h.FinalizeChanges()
	assert.Equal(t, 1, l.calls)

	over := New(KindMouseOver)
	ol := &countingListener{}
	over.AddListener(ol)
	over.Add(NewMessage(c, "x", geom.Pt(0, 0), 0, nil))
	over.FinalizeChanges()
	assert.Zero(t, ol.calls)
}

func TestAccessorsReturnCopies(t *testing.T) {
	e := newEnv(t)
	c := e.cell(t, "top", circuit.ViewSchematic)
	h := New(KindSelection)
	h.Add(NewArea(c, geom.R(0, 0, 1, 1), nil))

	list := h.Highlights()
	list[0] = nil
	assert.NotNil(t, h.Highlights()[0])

	diff := h.Difficult()
	diff[0] = nil
	assert.NotNil(t, h.Difficult()[0])
}

func TestDifficultClassification(t *testing.T) {
	e := newEnv(t)
	c := e.cell(t, "top", circuit.ViewSchematic)
	n := e.nodes(t, c, e.ts.WirePin, geom.Pt(0, 0))[0]

	assert.False(t, NewObject(n).IsDifficult())
	assert.True(t, NewObject(n).WithColor(color.White).IsDifficult())
	assert.True(t, NewObject(n).AsError().IsDifficult())
	assert.True(t, NewObject(n.PortInsts()[0]).IsDifficult())
	assert.True(t, NewText(n, circuit.KeyNodeName).IsDifficult())
}

func TestSnapshotRevalidates(t *testing.T) {
	e := newEnv(t)
	c := e.cell(t, "top", circuit.ViewSchematic)
	ns := e.nodes(t, c, e.ts.WirePin, geom.Pt(0, 0), geom.Pt(5, 0))

	h := New(KindSelection)
	assert.False(t, h.PopSnapshot())
	h.SelectObjects(ns[0], ns[1])
	h.PushSnapshot()

	cs := circuit.NewChangeSet(c)
	cs.Delete(ns[0])
	e.apply(t, cs)
	h.Clear()
	h.Add(NewArea(c, geom.R(0, 0, 1, 1), nil))

	require.True(t, h.PopSnapshot())
	got := h.Highlights()
	require.Len(t, got, 1)
	assert.True(t, got[0].SameThing(NewObject(ns[1]), true))
}

func TestReplaceKeepsPosition(t *testing.T) {
	e := newEnv(t)
	c := e.cell(t, "top", circuit.ViewLayout)
	cs := circuit.NewChangeSet(c)
	spec := cs.AddNode(circuit.NodeSpec{
		Proto:   e.ts.CMOS.FindNode("Metal-1-Node"),
		Outline: []geom.Point{geom.Pt(0, 0), geom.Pt(4, 0), geom.Pt(4, 4)},
	})
	n := e.apply(t, cs).Nodes[spec]

	h := New(KindSelection)
	first := NewObject(n).WithPoint(0)
	h.Add(NewArea(c, geom.R(0, 0, 1, 1), nil))
	h.Add(first)
	require.True(t, h.Replace(first, first.WithPoint(1)))

	pts := h.HighlightedPoints()
	require.Len(t, pts, 1)
	assert.Equal(t, 1, pts[0].Index)
	assert.IsType(t, &Area{}, h.Highlights()[0])
}

func TestHighlightedTextUniqueOnly(t *testing.T) {
	e := newEnv(t)
	c := e.cell(t, "top", circuit.ViewSchematic)
	cs := circuit.NewChangeSet(c)
	pin := cs.AddNode(circuit.NodeSpec{Proto: e.ts.WirePin})
	ex := cs.AddExport("out", circuit.End{New: pin}, circuit.CharOutput)
	res := e.apply(t, cs)
	export := res.Exports[ex]

	h := New(KindSelection)
	h.Add(NewText(export, circuit.KeyExportName))
	assert.Len(t, h.HighlightedText(true), 1)

	h.Add(NewObject(export.Original()))
	assert.Empty(t, h.HighlightedText(true))
	assert.Len(t, h.HighlightedText(false), 1)
	assert.Equal(t, "Export out", h.HighlightedText(false)[0].Info())

	byNode := New(KindSelection)
	byNode.Add(NewText(export, circuit.KeyExportName))
	byNode.Add(NewObject(export.Original().Node()))
	assert.Empty(t, byNode.HighlightedText(true))

	node := export.Original().Node()
	byPort := New(KindSelection)
	byPort.Add(NewText(node, circuit.KeyNodeName))
	assert.Len(t, byPort.HighlightedText(true), 1)
	byPort.Add(NewObject(node.PortInsts()[0]))
	assert.Empty(t, byPort.HighlightedText(true))
}

func TestSimilarPreferenceOrder(t *testing.T) {
	e := newEnv(t)
	c := e.cell(t, "top", circuit.ViewSchematic)
	cs := circuit.NewChangeSet(c)
	pin := cs.AddNode(circuit.NodeSpec{Proto: e.ts.WirePin})
	fet := cs.AddNode(circuit.NodeSpec{Proto: e.ts.NMOS, Center: geom.Pt(10, 0)})
	fet2 := cs.AddNode(circuit.NodeSpec{Proto: e.ts.NMOS, Center: geom.Pt(20, 0)})
	bp := cs.AddNode(circuit.NodeSpec{Proto: e.ts.BusPin, Center: geom.Pt(0, 10)})
	bp2 := cs.AddNode(circuit.NodeSpec{Proto: e.ts.BusPin, Center: geom.Pt(10, 10)})
	m1 := cs.AddNode(circuit.NodeSpec{Proto: e.ts.Metal1.Pin, Center: geom.Pt(30, 30)})
	wire := cs.AddArc(e.ts.Wire, circuit.End{New: pin}, circuit.End{New: fet, Port: "g"})
	bus := cs.AddArc(e.ts.Bus, circuit.End{New: bp}, circuit.End{New: bp2})
	res := e.apply(t, cs)

	pinPort := NewObject(res.Nodes[pin].PortInsts()[0])
	fetPort := NewObject(res.Nodes[fet].FindPortInst("d"))
	example := NewObject(res.Nodes[fet2].FindPortInst("g"))

	t.Run("same variant only", func(t *testing.T) {
		area := NewArea(c, geom.R(0, 0, 1, 1), nil)
		assert.Same(t, pinPort, similar([]Highlight{area, pinPort}, example))
		assert.Nil(t, similar([]Highlight{area}, example))
	})
	t.Run("port on same node type", func(t *testing.T) {
		assert.Same(t, fetPort, similar([]Highlight{pinPort, fetPort}, example))
	})
	t.Run("wireable port", func(t *testing.T) {
		metalPort := NewObject(res.Nodes[m1].PortInsts()[0])
		busPort := NewObject(res.Nodes[bp].PortInsts()[0])
		assert.Same(t, busPort, similar([]Highlight{metalPort, busPort}, example))
		assert.Same(t, metalPort, similar([]Highlight{metalPort}, example))
	})
	t.Run("arc of same type", func(t *testing.T) {
		w := NewObject(res.Arcs[wire])
		b := NewObject(res.Arcs[bus])
		assert.Same(t, b, similar([]Highlight{w, b}, NewObject(res.Arcs[bus])))
	})
	t.Run("connectable to example", func(t *testing.T) {
		b := NewObject(res.Arcs[bus])
		assert.Same(t, pinPort, similar([]Highlight{b, pinPort}, NewObject(res.Arcs[wire])))
	})
	t.Run("deterministic", func(t *testing.T) {
		list := []Highlight{pinPort, fetPort}
		for i := 0; i < 5; i++ {
			assert.Same(t, fetPort, similar(list, example))
		}
	})
}

// leafAndTop builds a leaf cell with a wired, exported pin and a top cell
// that instantiates it and wires a pin to the export.
func leafAndTop(t *testing.T, e *env, view circuit.View) (*circuit.Cell, *circuit.NodeInst) {
	t.Helper()
	leaf := e.cell(t, "leaf", view)
	cs := circuit.NewChangeSet(leaf)
	a := cs.AddNode(circuit.NodeSpec{Proto: e.ts.UniversalPin})
	b := cs.AddNode(circuit.NodeSpec{Proto: e.ts.UniversalPin, Center: geom.Pt(10, 0)})
	cs.AddArc(e.ts.UniversalArc, circuit.End{New: a}, circuit.End{New: b})
	cs.AddExport("io", circuit.End{New: a}, circuit.CharBidir)
	e.apply(t, cs)

	top := e.cell(t, "top", view)
	cs = circuit.NewChangeSet(top)
	inst := cs.AddNode(circuit.NodeSpec{Proto: leaf, Center: geom.Pt(100, 0)})
	p := cs.AddNode(circuit.NodeSpec{Proto: e.ts.UniversalPin, Center: geom.Pt(80, 0)})
	cs.AddArc(e.ts.UniversalArc, circuit.End{New: p}, circuit.End{New: inst, Port: "io"})
	res := e.apply(t, cs)
	return top, res.Nodes[p]
}

func TestResolveNetworksByDepth(t *testing.T) {
	e := newEnv(t)
	top, p := leafAndTop(t, e, circuit.ViewLayout)
	nl := top.Netlist()
	nets := []*circuit.Network{nl.PortNetwork(p.PortInsts()[0])}

	level0 := ResolveNetworks(top, nl, nets, 0, 0)
	require.Len(t, level0, 3, "pin port, instance port, arc")
	for _, item := range level0 {
		assert.IsType(t, &Object{}, item)
	}

	level1 := ResolveNetworks(top, nl, nets, 1, 1)
	require.Len(t, level1, 4, "two pin ports, arc, export")
	for _, item := range level1 {
		require.IsType(t, &Poly{}, item)
		assert.Same(t, top, item.Cell())
		b, ok := item.Bounds()
		require.True(t, ok)
		assert.GreaterOrEqual(t, b.Min.X, 99.0, "placed through the instance")
	}

	assert.Len(t, ResolveNetworks(top, nl, nets, 0, 1), 7)
	assert.Empty(t, ResolveNetworks(top, nl, nets, 2, 2))
}

func TestResolveNetworksStopsAtSchematics(t *testing.T) {
	e := newEnv(t)
	top, p := leafAndTop(t, e, circuit.ViewSchematic)
	nl := top.Netlist()
	nets := []*circuit.Network{nl.PortNetwork(p.PortInsts()[0])}
	assert.Len(t, ResolveNetworks(top, nl, nets, 0, 0), 3)
	assert.Empty(t, ResolveNetworks(top, nl, nets, 1, 1))
}

func TestShowNetworksRevealsOneLevelPerCall(t *testing.T) {
	e := newEnv(t)
	top, p := leafAndTop(t, e, circuit.ViewLayout)
	nets := []*circuit.Network{top.Netlist().PortNetwork(p.PortInsts()[0])}

	h := New(KindSelection)
	assert.Equal(t, 3, h.ShowNetworks(top, nets))
	assert.Equal(t, 4, h.ShowNetworks(top, nets))
	assert.Equal(t, 7, h.Count())
	assert.Equal(t, 2, h.Depth())

	h.Clear()
	assert.Zero(t, h.Depth())
	assert.Len(t, h.HighlightedNetworks(), 0)
	assert.Equal(t, 3, h.ShowNetworks(top, nets))
	assert.Len(t, h.HighlightedNetworks(), 1)
}

func TestInfoAndSort(t *testing.T) {
	e := newEnv(t)
	c := e.cell(t, "top", circuit.ViewSchematic)
	list := []Highlight{
		NewMessage(c, "b", geom.Pt(0, 0), 0, nil),
		NewArea(c, geom.R(0, 0, 1, 1), nil),
		NewOpaque(c, 42),
	}
	Sort(list)
	assert.Equal(t, "Area", list[0].Info()[:4])
	assert.Equal(t, "Message: b", list[1].Info())
	assert.Equal(t, "Object 42", list[2].Info())
	_, ok := list[2].Bounds()
	assert.False(t, ok)
	assert.True(t, NewOpaque(c, []int{1}).SameThing(NewOpaque(c, []int{1}), true))
}

// textScene draws one piece of text of every kind, each at its own spot.
func textScene(t *testing.T) (*env, *circuit.Cell) {
	t.Helper()
	e := newEnv(t)
	sub := e.cell(t, "sub", circuit.ViewSchematic)
	cs := circuit.NewChangeSet(sub)
	cs.AddExport("q", circuit.End{New: cs.AddNode(circuit.NodeSpec{Proto: e.ts.WirePin})}, circuit.CharOutput)
	e.apply(t, cs)

	c := e.cell(t, "top", circuit.ViewSchematic)
	cs = circuit.NewChangeSet(c)
	cs.SetVar(c, circuit.Variable{Key: "title", Value: "adder", Display: true,
		Text: circuit.TextDescriptor{Offset: geom.Pt(50, 50)}})
	cs.AddNode(circuit.NodeSpec{Proto: e.ts.WirePin, Center: geom.Pt(0, 30), Name: "lbl"})
	cs.AddNode(circuit.NodeSpec{Proto: e.ts.InvisiblePin, Center: geom.Pt(30, 0),
		Vars: []circuit.Variable{{Key: "note", Value: "hi", Display: true}}})
	cs.AddNode(circuit.NodeSpec{Proto: sub, Center: geom.Pt(60, 0), Name: "u1"})
	cs.AddExport("out", circuit.End{New: cs.AddNode(circuit.NodeSpec{Proto: e.ts.WirePin, Center: geom.Pt(0, -30)})}, circuit.CharOutput)
	left := cs.AddNode(circuit.NodeSpec{Proto: e.ts.WirePin, Center: geom.Pt(-40, -60)})
	right := cs.AddNode(circuit.NodeSpec{Proto: e.ts.WirePin, Center: geom.Pt(40, -60)})
	arc := cs.AddArc(e.ts.Wire, circuit.End{New: left}, circuit.End{New: right})
	arc.Name = "sig"
	e.apply(t, cs)
	return e, c
}

func textAt(h *Highlighter, c *circuit.Cell, at geom.Point, opts ClickOptions) []string {
	var keys []string
	for _, item := range h.FindAllInArea(c, geom.R(at.X, at.Y, at.X, at.Y), 0.5, opts) {
		if txt, ok := item.(*Text); ok {
			keys = append(keys, txt.Key())
		}
	}
	return keys
}

func TestClickTextVisibility(t *testing.T) {
	_, c := textScene(t)

	tests := []struct {
		name string
		at   geom.Point
		key  string
		hide func(*config.TextVisibility)
	}{
		{"cell", geom.Pt(50, 50), "title", func(v *config.TextVisibility) { v.Cell = false }},
		{"node", geom.Pt(0, 30), circuit.KeyNodeName, func(v *config.TextVisibility) { v.Node = false }},
		{"annotation", geom.Pt(30, 0), "note", func(v *config.TextVisibility) { v.Annotation = false }},
		{"instance", geom.Pt(60, 0), circuit.KeyNodeName, func(v *config.TextVisibility) { v.Instance = false }},
		{"port", geom.Pt(60, 0), circuit.KeyPortName, func(v *config.TextVisibility) { v.Port = false }},
		{"export", geom.Pt(0, -30), circuit.KeyExportName, func(v *config.TextVisibility) { v.Export = false }},
		{"arc", geom.Pt(0, -60), circuit.KeyArcName, func(v *config.TextVisibility) { v.Arc = false }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shown := New(KindSelection)
			assert.Contains(t, textAt(shown, c, tt.at, ClickOptions{WantText: true}), tt.key)
			assert.Empty(t, textAt(shown, c, tt.at, ClickOptions{}), "text needs WantText")
			assert.Empty(t, textAt(shown, c, tt.at, ClickOptions{WantText: true, WantPort: true}))

			s := config.Default().Selection
			tt.hide(&s.Text)
			hidden := New(KindSelection, WithSettings(s))
			assert.NotContains(t, textAt(hidden, c, tt.at, ClickOptions{WantText: true}), tt.key)
		})
	}
}

func TestClickTextIndexFollowsEdits(t *testing.T) {
	e, c := textScene(t)
	h := New(KindSelection)
	late := geom.Pt(-50, 30)
	assert.Empty(t, textAt(h, c, late, ClickOptions{WantText: true}))

	cs := circuit.NewChangeSet(c)
	cs.AddNode(circuit.NodeSpec{Proto: e.ts.WirePin, Center: late, Name: "late"})
	e.apply(t, cs)
	assert.Equal(t, []string{circuit.KeyNodeName}, textAt(h, c, late, ClickOptions{WantText: true}))

	item := h.FindObject(c, geom.Pt(50, 50), 0.1, ClickOptions{Exclusive: true, WantText: true})
	require.NotNil(t, item)
	assert.Equal(t, "Text title on top{sch}", item.Info())
}

func TestNodeDistanceByKind(t *testing.T) {
	e := newEnv(t)
	outline := []geom.Point{
		geom.Pt(-6, -1), geom.Pt(-4, -1), geom.Pt(-4, 1), geom.Pt(-6, 1),
		circuit.OutlineBreak,
		geom.Pt(4, -1), geom.Pt(6, -1), geom.Pt(6, 1), geom.Pt(4, 1),
	}

	tests := []struct {
		name string
		view circuit.View
		spec circuit.NodeSpec
		at   geom.Point
		want float64
	}{
		{"transistor uses diffusion and poly", circuit.ViewLayout,
			circuit.NodeSpec{Proto: e.ts.NTransistor}, geom.Pt(-2.5, 1.8), 0.8},
		{"resistor without those layers uses its box", circuit.ViewSchematic,
			circuit.NodeSpec{Proto: e.ts.Resistor}, geom.Pt(0, 1.5), 1},
		{"artwork uses every polygon", circuit.ViewSchematic,
			circuit.NodeSpec{Proto: e.ts.ClosedPoly, Outline: outline}, geom.Pt(5, 0), 0},
		{"edge select only hits the boundary", circuit.ViewSchematic,
			circuit.NodeSpec{Proto: e.ts.Box}, geom.Pt(0, 0), 3},
		{"pin uses its box", circuit.ViewLayout,
			circuit.NodeSpec{Proto: e.ts.Metal1.Pin}, geom.Pt(1, 0), 0},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := e.cell(t, fmt.Sprintf("c%d", i), tt.view)
			cs := circuit.NewChangeSet(c)
			spec := cs.AddNode(tt.spec)
			n := e.apply(t, cs).Nodes[spec]

			h := New(KindSelection)
			assert.InDelta(t, tt.want, h.nodeDistance(n, geom.R(tt.at.X, tt.at.Y, tt.at.X, tt.at.Y)), geom.Epsilon)
		})
	}
}

func TestPortsOutsideDrawingIsCached(t *testing.T) {
	e := newEnv(t)
	custom := circuit.NewTechnology("pads", circuit.TechLayout)
	metal := custom.AddLayer("Pad", circuit.LayerMetal)
	tab := custom.AddNode("Tab", circuit.FnNode, 4, 4, circuit.NodeLayer{Layer: metal, Insets: circuit.Uniform(1.5)})
	tab.AddPort("t", circuit.Insets{}, 0)

	c := e.cell(t, "pads", circuit.ViewLayout)
	n := e.nodes(t, c, tab, geom.Pt(0, 0))[0]
	at := geom.R(1.8, 0, 1.8, 0)

	h := New(KindSelection)
	assert.InDelta(t, 1.3, h.nodeDistance(n, at), geom.Epsilon)

	tab.Ports[0].Insets = circuit.Uniform(1.5)
	assert.InDelta(t, 1.3, h.nodeDistance(n, at), geom.Epsilon, "answer is cached per prototype")
	h.InvalidateCaches()
	assert.InDelta(t, 0.0, h.nodeDistance(n, at), geom.Epsilon)
}
