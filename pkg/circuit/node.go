package circuit

import (
	"math"

	"github.com/Ignat99/electric-sub000/pkg/geom"
)

// OutlineBreak separates the polygons of a multi-polygon outline.
var OutlineBreak = geom.Point{X: math.NaN(), Y: math.NaN()}

// IsOutlineBreak reports whether p is an OutlineBreak.
func IsOutlineBreak(p geom.Point) bool {
	return math.IsNaN(p.X) && math.IsNaN(p.Y)
}

// SplitOutline breaks an outline into its polygons.
func SplitOutline(points []geom.Point) [][]geom.Point {
	var out [][]geom.Point
	var cur []geom.Point
	for _, p := range points {
		if IsOutlineBreak(p) {
			if len(cur) > 0 {
				out = append(out, cur)
			}
			cur = nil
			continue
		}
		cur = append(cur, p)
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// LayerPoly is a polygon drawn on a technology layer.
type LayerPoly struct {
	Layer *Layer
	Poly  geom.Poly
}

// NodeInst is an instance of a primitive or a cell.
type NodeInst struct {
	id            int
	name          string
	nameDisplayed bool
	nameText      TextDescriptor
	proto         NodeProto
	parent        *Cell
	linked        bool

	center   geom.Point
	width    float64
	height   float64
	angle    int
	mirrorX  bool
	mirrorY  bool
	expanded bool
	hardSel  bool
	outline  []geom.Point

	ports []*PortInst
	conns []*Connection
	vars  []*Variable
}

// ID is unique within the parent cell and grows with creation order.
func (n *NodeInst) ID() int { return n.id }

// Name returns the node name.
func (n *NodeInst) Name() string { return n.name }

// NameDisplayed reports whether the name was user-given and is drawn.
func (n *NodeInst) NameDisplayed() bool { return n.nameDisplayed }

// Proto returns the prototype.
func (n *NodeInst) Proto() NodeProto { return n.proto }

// Parent implements Object.
func (n *NodeInst) Parent() *Cell { return n.parent }

// IsLinked implements Object.
func (n *NodeInst) IsLinked() bool {
	if n.parent == nil {
		return false
	}
	n.parent.mu.RLock()
	defer n.parent.mu.RUnlock()
	return n.linked && n.parent.linked
}

// Describe implements Object.
func (n *NodeInst) Describe() string { return n.name }

func (n *NodeInst) String() string { return n.proto.ProtoName() + "[" + n.name + "]" }

// Center returns the anchor point.
func (n *NodeInst) Center() geom.Point { return n.center }

// Width returns the unrotated X size.
func (n *NodeInst) Width() float64 {
	if sub, ok := n.proto.(*Cell); ok {
		w, _ := sub.DefaultSize()
		return w
	}
	return n.width
}

// Height returns the unrotated Y size.
func (n *NodeInst) Height() float64 {
	if sub, ok := n.proto.(*Cell); ok {
		_, h := sub.DefaultSize()
		return h
	}
	return n.height
}

// Angle returns the rotation in tenths of a degree.
func (n *NodeInst) Angle() int { return n.angle }

// MirrorX reports an X flip.
func (n *NodeInst) MirrorX() bool { return n.mirrorX }

// MirrorY reports a Y flip.
func (n *NodeInst) MirrorY() bool { return n.mirrorY }

// Orientation returns the normalized mirror/rotation.
func (n *NodeInst) Orientation() geom.Orientation {
	return geom.NewOrientation(n.angle, n.mirrorX, n.mirrorY)
}

// IsExpanded reports whether a cell instance shows its contents.
func (n *NodeInst) IsExpanded() bool { return n.expanded }

// IsHardSelect reports whether the node is only found by hard-to-find
// selection.
func (n *NodeInst) IsHardSelect() bool { return n.hardSel }

// IsCellInstance reports whether the prototype is a cell.
func (n *NodeInst) IsCellInstance() bool { return n.proto.IsCell() }

// Subcell returns the instantiated cell, or nil for primitives.
func (n *NodeInst) Subcell() *Cell {
	sub, _ := n.proto.(*Cell)
	return sub
}

// Primitive returns the primitive prototype, or nil for cell instances.
func (n *NodeInst) Primitive() *PrimitiveNode {
	pn, _ := n.proto.(*PrimitiveNode)
	return pn
}

// Function returns the primitive function; cell instances are FnUnknown.
func (n *NodeInst) Function() NodeFunction {
	if pn := n.Primitive(); pn != nil {
		return pn.Function
	}
	return FnUnknown
}

// Technology returns the primitive's technology, or nil.
func (n *NodeInst) Technology() *Technology {
	if pn := n.Primitive(); pn != nil {
		return pn.Tech
	}
	return nil
}

// Transform maps local coordinates into the parent cell. Primitive local
// coordinates are centered on the origin; cell instance local coordinates are
// those of the subcell.
func (n *NodeInst) Transform() geom.Transform {
	return geom.Orient(n.angle, n.mirrorX, n.mirrorY, n.center)
}

func (n *NodeInst) localRect() geom.Rect {
	if sub := n.Subcell(); sub != nil {
		return sub.Bounds()
	}
	if len(n.outline) > 0 {
		r := geom.EmptyRect()
		for _, p := range n.outline {
			if !IsOutlineBreak(p) {
				r.Expand(p)
			}
		}
		return r
	}
	return geom.RectAround(geom.Point{}, n.width, n.height)
}

// Bounds implements Geometric.
func (n *NodeInst) Bounds() geom.Rect {
	return n.Transform().ApplyRect(n.localRect())
}

// Outline returns the outline points relative to the center.
func (n *NodeInst) Outline() []geom.Point {
	out := make([]geom.Point, len(n.outline))
	copy(out, n.outline)
	return out
}

// HasOutline reports whether the node carries an outline.
func (n *NodeInst) HasOutline() bool { return len(n.outline) > 0 }

// BaseShape returns the node's outline polygon in parent coordinates: the
// first outline polygon when one exists, otherwise the bounding box.
func (n *NodeInst) BaseShape() geom.Poly {
	t := n.Transform()
	if polys := SplitOutline(n.outline); len(polys) > 0 {
		p := geom.NewPoly(polys[0]...)
		if pn := n.Primitive(); pn != nil && len(pn.Layers) > 0 && pn.Layers[0].Layer != nil {
			p.Layer = pn.Layers[0].Layer.Name
		}
		return p.Transform(t)
	}
	return geom.RectPoly(n.localRect()).Transform(t)
}

// Polys returns the drawn layer shapes in parent coordinates. Cell
// instances return nothing.
func (n *NodeInst) Polys() []LayerPoly {
	pn := n.Primitive()
	if pn == nil {
		return nil
	}
	t := n.Transform()
	var out []LayerPoly
	if len(n.outline) > 0 {
		var layer *Layer
		if len(pn.Layers) > 0 {
			layer = pn.Layers[0].Layer
		}
		for _, pts := range SplitOutline(n.outline) {
			p := geom.NewPoly(pts...)
			if pn.Function == FnArt && len(pts) == 2 {
				p.Style = geom.Opened
			}
			if layer != nil {
				p.Layer = layer.Name
			}
			out = append(out, LayerPoly{Layer: layer, Poly: p.Transform(t)})
		}
		return out
	}
	for _, nl := range pn.Layers {
		p := geom.RectPoly(nl.Insets.Area(n.width, n.height))
		if nl.Layer != nil {
			p.Layer = nl.Layer.Name
		}
		out = append(out, LayerPoly{Layer: nl.Layer, Poly: p.Transform(t)})
	}
	return out
}

// IsOversized reports whether a primitive exceeds its default size.
func (n *NodeInst) IsOversized() bool {
	pn := n.Primitive()
	if pn == nil {
		return false
	}
	return n.width > pn.DefaultWidth+geom.Epsilon || n.height > pn.DefaultHeight+geom.Epsilon
}

// PortInsts returns one port instance per port prototype.
func (n *NodeInst) PortInsts() []*PortInst {
	out := make([]*PortInst, len(n.ports))
	copy(out, n.ports)
	return out
}

// FindPortInst looks up a port instance by port name.
func (n *NodeInst) FindPortInst(name string) *PortInst {
	for _, pi := range n.ports {
		if pi.proto.PortName() == name {
			return pi
		}
	}
	return nil
}

// Connections returns the arc ends attached to this node.
func (n *NodeInst) Connections() []*Connection {
	if n.parent != nil {
		n.parent.mu.RLock()
		defer n.parent.mu.RUnlock()
	}
	out := make([]*Connection, len(n.conns))
	copy(out, n.conns)
	return out
}

// Exports returns the exports of the parent cell that expose this node.
func (n *NodeInst) Exports() []*Export {
	if n.parent == nil {
		return nil
	}
	var out []*Export
	for _, e := range n.parent.Exports() {
		if e.original.node == n {
			out = append(out, e)
		}
	}
	return out
}

// Vars returns the node variables.
func (n *NodeInst) Vars() []*Variable {
	out := make([]*Variable, len(n.vars))
	copy(out, n.vars)
	return out
}

// Var finds a variable by key.
func (n *NodeInst) Var(key string) *Variable {
	return findVar(n.vars, key)
}

// HasDisplayableVar reports whether any variable is drawn.
func (n *NodeInst) HasDisplayableVar() bool {
	for _, v := range n.vars {
		if v.Display {
			return true
		}
	}
	return false
}

// PortInst is a port on a particular node instance.
type PortInst struct {
	node  *NodeInst
	proto PortProto
}

// Node returns the owning node.
func (pi *PortInst) Node() *NodeInst { return pi.node }

// Proto returns the port prototype.
func (pi *PortInst) Proto() PortProto { return pi.proto }

// Name returns the port name.
func (pi *PortInst) Name() string { return pi.proto.PortName() }

// Parent implements Object.
func (pi *PortInst) Parent() *Cell { return pi.node.parent }

// IsLinked implements Object.
func (pi *PortInst) IsLinked() bool {
	if !pi.node.IsLinked() {
		return false
	}
	if e, ok := pi.proto.(*Export); ok {
		return e.IsLinked()
	}
	return true
}

// Describe implements Object.
func (pi *PortInst) Describe() string { return pi.node.name + "." + pi.proto.PortName() }

// Poly returns the port area in parent coordinates.
func (pi *PortInst) Poly() geom.Poly {
	t := pi.node.Transform()
	switch pp := pi.proto.(type) {
	case *PrimitivePort:
		area := pp.Insets.Area(pi.node.width, pi.node.height)
		if area.IsZeroSize() {
			return geom.NewPoly(t.Apply(area.Min))
		}
		return geom.RectPoly(area).Transform(t)
	case *Export:
		return pp.original.Poly().Transform(t)
	}
	return geom.NewPoly(pi.node.center)
}

// Center returns the middle of the port area.
func (pi *PortInst) Center() geom.Point {
	return pi.Poly().Bounds().Center()
}

// Connections returns the arc ends on this port.
func (pi *PortInst) Connections() []*Connection {
	var out []*Connection
	for _, c := range pi.node.Connections() {
		if c.port == pi {
			out = append(out, c)
		}
	}
	return out
}

// Exports returns the exports made from this port.
func (pi *PortInst) Exports() []*Export {
	var out []*Export
	for _, e := range pi.node.Exports() {
		if e.original == pi {
			out = append(out, e)
		}
	}
	return out
}

// CanConnect reports whether arcs of type ap may attach here.
func (pi *PortInst) CanConnect(ap *ArcProto) bool {
	return pi.proto.CanConnect(ap)
}
