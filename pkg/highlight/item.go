// Package highlight keeps the on-screen selection of a view: the selection
// items themselves, the set that owns them, click and area resolution
// against a cell, and the hierarchical network resolver that lights up
// every object on a network.
package highlight

import (
	"fmt"
	"image/color"
	"reflect"
	"sort"

	"github.com/Ignat99/electric-sub000/pkg/circuit"
	"github.com/Ignat99/electric-sub000/pkg/geom"
)

// Highlight is one selected or highlighted thing. The variants are Object,
// Text, Area, Line, Message, Opaque and Poly; no other type satisfies it.
type Highlight interface {
	// Cell returns the cell the item belongs to.
	Cell() *circuit.Cell
	// IsValid reports whether the cell and the referenced object are still
	// part of the database. It is recomputed on every call.
	IsValid() bool
	// Bounds returns the tightest enclosing rectangle. Items without
	// geometry return false.
	Bounds() (geom.Rect, bool)
	// Info returns a stable description.
	Info() string
	// SameThing compares variant and payload. Without exact, a port is
	// treated as its node.
	SameThing(other Highlight, exact bool) bool
	// Nodes returns the nodes the item stands for.
	Nodes() []*circuit.NodeInst
	// Arcs returns the arcs the item stands for.
	Arcs() []*circuit.ArcInst
	// Networks returns the networks of nl the item touches.
	Networks(nl *circuit.Netlist) []*circuit.Network
	// IsDifficult reports whether the item needs the slow drawing path.
	IsDifficult() bool

	// refresh rebuilds the item against the current database, or returns
	// nil when it no longer applies.
	refresh() Highlight
}

// Sort orders items by Info.
func Sort(list []Highlight) {
	sort.SliceStable(list, func(i, j int) bool { return Compare(list[i], list[j]) < 0 })
}

// Compare orders two items by their Info strings.
func Compare(a, b Highlight) int {
	ai, bi := a.Info(), b.Info()
	switch {
	case ai < bi:
		return -1
	case ai > bi:
		return 1
	}
	return 0
}

func cellLinked(c *circuit.Cell) bool {
	return c != nil && c.IsLinked()
}

// Object references a node, an arc or a port on a node.
type Object struct {
	obj       circuit.Object
	point     int
	color     color.Color
	connected bool
	errored   bool
}

// NewObject references n, a, or a port instance.
func NewObject(obj circuit.Object) *Object {
	return &Object{obj: obj, point: -1}
}

// WithPoint returns a copy that marks one outline vertex.
func (o *Object) WithPoint(i int) *Object {
	c := *o
	c.point = i
	return &c
}

// WithObject returns a copy that references obj instead.
func (o *Object) WithObject(obj circuit.Object) *Object {
	c := *o
	c.obj = obj
	return &c
}

// WithColor returns a copy drawn in col.
func (o *Object) WithColor(col color.Color) *Object {
	c := *o
	c.color = col
	return &c
}

// WithConnected returns a copy that also shows connected objects.
func (o *Object) WithConnected() *Object {
	c := *o
	c.connected = true
	return &c
}

// AsError returns a copy flagged as an error marker.
func (o *Object) AsError() *Object {
	c := *o
	c.errored = true
	return &c
}

// Object returns the referenced object.
func (o *Object) Object() circuit.Object { return o.obj }

// Point returns the outline vertex index, or -1.
func (o *Object) Point() int { return o.point }

// Color returns the override color, or nil.
func (o *Object) Color() color.Color { return o.color }

// ShowsConnected reports whether connected objects are shown too.
func (o *Object) ShowsConnected() bool { return o.connected }

// IsError reports whether the item marks a problem.
func (o *Object) IsError() bool { return o.errored }

// Node returns the referenced node, or the node of a referenced port.
func (o *Object) Node() *circuit.NodeInst {
	switch v := o.obj.(type) {
	case *circuit.NodeInst:
		return v
	case *circuit.PortInst:
		return v.Node()
	}
	return nil
}

func (o *Object) Cell() *circuit.Cell {
	if o.obj == nil {
		return nil
	}
	return o.obj.Parent()
}

func (o *Object) IsValid() bool {
	switch o.obj.(type) {
	case *circuit.NodeInst, *circuit.ArcInst, *circuit.PortInst:
	default:
		return false
	}
	return cellLinked(o.Cell()) && o.obj.IsLinked()
}

func (o *Object) Bounds() (geom.Rect, bool) {
	switch v := o.obj.(type) {
	case *circuit.NodeInst:
		if o.point >= 0 {
			if p, ok := outlinePoint(v, o.point); ok {
				return geom.R(p.X, p.Y, p.X, p.Y), true
			}
		}
		return v.Bounds(), true
	case *circuit.ArcInst:
		return v.Bounds(), true
	case *circuit.PortInst:
		return v.Poly().Bounds(), true
	}
	return geom.Rect{}, false
}

// outlinePoint returns outline vertex i of n in cell coordinates.
func outlinePoint(n *circuit.NodeInst, i int) (geom.Point, bool) {
	pts := n.Outline()
	if i < 0 || i >= len(pts) || circuit.IsOutlineBreak(pts[i]) {
		return geom.Point{}, false
	}
	return n.Transform().Apply(pts[i]), true
}

func (o *Object) Info() string {
	switch v := o.obj.(type) {
	case *circuit.NodeInst:
		if o.point >= 0 {
			return fmt.Sprintf("Node %s, point %d", v.Describe(), o.point)
		}
		return "Node " + v.Describe()
	case *circuit.ArcInst:
		return "Arc " + v.Describe()
	case *circuit.PortInst:
		return "Port " + v.Describe()
	}
	return "Nothing"
}

func (o *Object) SameThing(other Highlight, exact bool) bool {
	oo, ok := other.(*Object)
	if !ok {
		return false
	}
	a, b := o.obj, oo.obj
	if !exact {
		a, b = coercePort(a), coercePort(b)
	}
	return a == b
}

func coercePort(obj circuit.Object) circuit.Object {
	if pi, ok := obj.(*circuit.PortInst); ok {
		return pi.Node()
	}
	return obj
}

func (o *Object) Nodes() []*circuit.NodeInst {
	if n := o.Node(); n != nil {
		return []*circuit.NodeInst{n}
	}
	return nil
}

func (o *Object) Arcs() []*circuit.ArcInst {
	if a, ok := o.obj.(*circuit.ArcInst); ok {
		return []*circuit.ArcInst{a}
	}
	return nil
}

func (o *Object) Networks(nl *circuit.Netlist) []*circuit.Network {
	if nl == nil || nl.Cell() != o.Cell() {
		return nil
	}
	switch v := o.obj.(type) {
	case *circuit.NodeInst:
		return nl.NodeNetworks(v)
	case *circuit.ArcInst:
		return nonNil(nl.ArcNetwork(v))
	case *circuit.PortInst:
		return nonNil(nl.PortNetwork(v))
	}
	return nil
}

func nonNil(n *circuit.Network) []*circuit.Network {
	if n == nil {
		return nil
	}
	return []*circuit.Network{n}
}

func (o *Object) IsDifficult() bool {
	_, isNode := o.obj.(*circuit.NodeInst)
	return !isNode || o.color != nil || o.errored || o.point >= 0
}

func (o *Object) refresh() Highlight {
	if !o.IsValid() || !o.Cell().ContainsObject(o.obj) {
		return nil
	}
	c := *o
	return &c
}

// Text references one piece of drawn text: an object plus the key naming
// which of its texts is meant.
type Text struct {
	obj circuit.Object
	key string
}

// NewText references the text under key on obj.
func NewText(obj circuit.Object, key string) *Text {
	return &Text{obj: obj, key: key}
}

// Object returns the object carrying the text.
func (t *Text) Object() circuit.Object { return t.obj }

// Key returns the text key.
func (t *Text) Key() string { return t.key }

func (t *Text) Cell() *circuit.Cell {
	if t.obj == nil {
		return nil
	}
	return t.obj.Parent()
}

func (t *Text) IsValid() bool {
	return t.obj != nil && cellLinked(t.Cell()) && t.obj.IsLinked()
}

// item finds the drawn text this item refers to.
func (t *Text) item() (circuit.TextItem, bool) {
	c := t.Cell()
	if c == nil {
		return circuit.TextItem{}, false
	}
	for _, ti := range c.DisplayedText() {
		if ti.Object == t.obj && ti.Key == t.key {
			return ti, true
		}
	}
	return circuit.TextItem{}, false
}

func (t *Text) Bounds() (geom.Rect, bool) {
	ti, ok := t.item()
	if !ok {
		return geom.Rect{}, false
	}
	return ti.Bounds, true
}

// String returns the text itself.
func (t *Text) String() string {
	ti, _ := t.item()
	return ti.Text
}

func (t *Text) Info() string {
	if t.obj == nil {
		return "Text " + t.key
	}
	switch t.key {
	case circuit.KeyNodeName:
		return "Node name " + t.obj.Describe()
	case circuit.KeyArcName:
		return "Arc name " + t.obj.Describe()
	case circuit.KeyExportName:
		return "Export " + t.obj.Describe()
	case circuit.KeyPortName:
		return "Port name " + t.obj.Describe()
	}
	return fmt.Sprintf("Text %s on %s", t.key, t.obj.Describe())
}

func (t *Text) SameThing(other Highlight, _ bool) bool {
	ot, ok := other.(*Text)
	return ok && ot.obj == t.obj && ot.key == t.key
}

// Nodes returns the node under annotation text, whose only purpose is to
// carry the text.
func (t *Text) Nodes() []*circuit.NodeInst {
	n, ok := t.obj.(*circuit.NodeInst)
	if !ok || t.key == circuit.KeyNodeName {
		return nil
	}
	if pn := n.Primitive(); pn != nil && pn.Special && pn.Function == circuit.FnPin {
		return []*circuit.NodeInst{n}
	}
	return nil
}

func (t *Text) Arcs() []*circuit.ArcInst { return nil }

func (t *Text) Networks(nl *circuit.Netlist) []*circuit.Network {
	if nl == nil || nl.Cell() != t.Cell() {
		return nil
	}
	switch v := t.obj.(type) {
	case *circuit.Export:
		return nonNil(nl.ExportNetwork(v))
	case *circuit.ArcInst:
		if t.key == circuit.KeyArcName {
			return nonNil(nl.ArcNetwork(v))
		}
	case *circuit.PortInst:
		return nonNil(nl.PortNetwork(v))
	}
	return nil
}

func (t *Text) IsDifficult() bool { return true }

func (t *Text) refresh() Highlight {
	if !t.IsValid() {
		return nil
	}
	if _, drawn := t.item(); !drawn {
		return nil
	}
	c := *t
	return &c
}

// Area is a rectangle in a cell.
type Area struct {
	cell  *circuit.Cell
	rect  geom.Rect
	color color.Color
}

// NewArea highlights r in cell.
func NewArea(cell *circuit.Cell, r geom.Rect, col color.Color) *Area {
	return &Area{cell: cell, rect: r, color: col}
}

// Rect returns the rectangle.
func (a *Area) Rect() geom.Rect { return a.rect }

func (a *Area) Cell() *circuit.Cell        { return a.cell }
func (a *Area) IsValid() bool              { return cellLinked(a.cell) }
func (a *Area) Bounds() (geom.Rect, bool)  { return a.rect, true }
func (a *Area) Info() string               { return "Area " + a.rect.String() }
func (a *Area) Nodes() []*circuit.NodeInst { return nil }
func (a *Area) Arcs() []*circuit.ArcInst   { return nil }
func (a *Area) IsDifficult() bool          { return true }

func (a *Area) Networks(*circuit.Netlist) []*circuit.Network { return nil }

func (a *Area) SameThing(other Highlight, _ bool) bool {
	oa, ok := other.(*Area)
	return ok && oa.cell == a.cell && oa.rect == a.rect
}

func (a *Area) refresh() Highlight {
	if !a.IsValid() {
		return nil
	}
	c := *a
	return &c
}

// Line is a segment drawn over a cell.
type Line struct {
	cell      *circuit.Cell
	a, b      geom.Point
	thickness float64
	color     color.Color
	pulse     bool
	view      any
}

// NewLine draws a segment from a to b.
func NewLine(cell *circuit.Cell, a, b geom.Point) *Line {
	return &Line{cell: cell, a: a, b: b}
}

// WithThickness returns a copy of the given thickness.
func (l *Line) WithThickness(t float64) *Line {
	c := *l
	c.thickness = t
	return &c
}

// WithColor returns a copy drawn in col.
func (l *Line) WithColor(col color.Color) *Line {
	c := *l
	c.color = col
	return &c
}

// Pulsing returns a copy that pulses to draw attention.
func (l *Line) Pulsing() *Line {
	c := *l
	c.pulse = true
	return &c
}

// InView returns a copy shown only in view.
func (l *Line) InView(view any) *Line {
	c := *l
	c.view = view
	return &c
}

// Ends returns both endpoints.
func (l *Line) Ends() (geom.Point, geom.Point) { return l.a, l.b }

// Thickness returns the line thickness; zero is the thinnest line.
func (l *Line) Thickness() float64 { return l.thickness }

// Pulses reports whether the line pulses.
func (l *Line) Pulses() bool { return l.pulse }

// View returns the only view the line is shown in, or nil for all.
func (l *Line) View() any { return l.view }

func (l *Line) Cell() *circuit.Cell { return l.cell }
func (l *Line) IsValid() bool       { return cellLinked(l.cell) }

func (l *Line) Bounds() (geom.Rect, bool) {
	return geom.R(l.a.X, l.a.Y, l.b.X, l.b.Y), true
}

func (l *Line) Info() string {
	return fmt.Sprintf("Line from %s to %s", l.a, l.b)
}

func (l *Line) SameThing(other Highlight, _ bool) bool {
	ol, ok := other.(*Line)
	return ok && ol.cell == l.cell && ol.a == l.a && ol.b == l.b
}

func (l *Line) Nodes() []*circuit.NodeInst                   { return nil }
func (l *Line) Arcs() []*circuit.ArcInst                     { return nil }
func (l *Line) Networks(*circuit.Netlist) []*circuit.Network { return nil }
func (l *Line) IsDifficult() bool                            { return true }

func (l *Line) refresh() Highlight {
	if !l.IsValid() {
		return nil
	}
	c := *l
	return &c
}

// Message is free text anchored at a point.
type Message struct {
	cell       *circuit.Cell
	text       string
	at         geom.Point
	corner     int
	background color.Color
}

// NewMessage anchors text at a point. corner selects which corner of the
// text sits on the anchor.
func NewMessage(cell *circuit.Cell, text string, at geom.Point, corner int, background color.Color) *Message {
	return &Message{cell: cell, text: text, at: at, corner: corner, background: background}
}

// Text returns the message.
func (m *Message) Text() string { return m.text }

// Anchor returns the anchor point.
func (m *Message) Anchor() geom.Point { return m.at }

// Corner returns the corner code.
func (m *Message) Corner() int { return m.corner }

// Background returns the background color, or nil.
func (m *Message) Background() color.Color { return m.background }

func (m *Message) Cell() *circuit.Cell { return m.cell }
func (m *Message) IsValid() bool       { return cellLinked(m.cell) }

func (m *Message) Bounds() (geom.Rect, bool) {
	return geom.R(m.at.X, m.at.Y, m.at.X, m.at.Y), true
}

func (m *Message) Info() string { return "Message: " + m.text }

func (m *Message) SameThing(other Highlight, _ bool) bool {
	om, ok := other.(*Message)
	return ok && om.cell == m.cell && om.text == m.text && om.at == m.at
}

func (m *Message) Nodes() []*circuit.NodeInst                   { return nil }
func (m *Message) Arcs() []*circuit.ArcInst                     { return nil }
func (m *Message) Networks(*circuit.Netlist) []*circuit.Network { return nil }
func (m *Message) IsDifficult() bool                            { return true }

func (m *Message) refresh() Highlight {
	if !m.IsValid() {
		return nil
	}
	c := *m
	return &c
}

// Opaque carries an arbitrary value with no geometry.
type Opaque struct {
	cell  *circuit.Cell
	value any
}

// NewOpaque wraps value.
func NewOpaque(cell *circuit.Cell, value any) *Opaque {
	return &Opaque{cell: cell, value: value}
}

// Value returns the wrapped value.
func (op *Opaque) Value() any { return op.value }

func (op *Opaque) Cell() *circuit.Cell       { return op.cell }
func (op *Opaque) IsValid() bool             { return cellLinked(op.cell) }
func (op *Opaque) Bounds() (geom.Rect, bool) { return geom.Rect{}, false }
func (op *Opaque) Info() string              { return fmt.Sprintf("Object %v", op.value) }

func (op *Opaque) SameThing(other Highlight, _ bool) bool {
	oo, ok := other.(*Opaque)
	return ok && oo.cell == op.cell && reflect.DeepEqual(oo.value, op.value)
}

func (op *Opaque) Nodes() []*circuit.NodeInst                   { return nil }
func (op *Opaque) Arcs() []*circuit.ArcInst                     { return nil }
func (op *Opaque) Networks(*circuit.Netlist) []*circuit.Network { return nil }
func (op *Opaque) IsDifficult() bool                            { return true }

func (op *Opaque) refresh() Highlight {
	if !op.IsValid() {
		return nil
	}
	c := *op
	return &c
}

// Poly is a fixed polygon already placed in the cell's coordinates. The
// network resolver uses it for objects inside subcells.
type Poly struct {
	cell  *circuit.Cell
	poly  geom.Poly
	color color.Color
}

// NewPoly highlights p in cell.
func NewPoly(cell *circuit.Cell, p geom.Poly, col color.Color) *Poly {
	return &Poly{cell: cell, poly: p, color: col}
}

// Poly returns the polygon.
func (p *Poly) Poly() geom.Poly { return p.poly }

func (p *Poly) Cell() *circuit.Cell { return p.cell }
func (p *Poly) IsValid() bool       { return cellLinked(p.cell) }

func (p *Poly) Bounds() (geom.Rect, bool) {
	if len(p.poly.Points) == 0 {
		return geom.Rect{}, false
	}
	return p.poly.Bounds(), true
}

func (p *Poly) Info() string {
	if p.poly.Layer != "" {
		return "Polygon on " + p.poly.Layer + " " + p.poly.Bounds().String()
	}
	return "Polygon " + p.poly.Bounds().String()
}

func (p *Poly) SameThing(other Highlight, _ bool) bool {
	op, ok := other.(*Poly)
	return ok && op.cell == p.cell && reflect.DeepEqual(op.poly, p.poly)
}

func (p *Poly) Nodes() []*circuit.NodeInst                   { return nil }
func (p *Poly) Arcs() []*circuit.ArcInst                     { return nil }
func (p *Poly) Networks(*circuit.Netlist) []*circuit.Network { return nil }
func (p *Poly) IsDifficult() bool                            { return true }

func (p *Poly) refresh() Highlight {
	if !p.IsValid() {
		return nil
	}
	c := *p
	return &c
}
