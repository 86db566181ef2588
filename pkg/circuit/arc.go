package circuit

import (
	"math"

	"github.com/Ignat99/electric-sub000/pkg/geom"
)

const (
	// HeadEnd indexes the first end of an arc.
	HeadEnd = 0
	// TailEnd indexes the second end of an arc.
	TailEnd = 1
)

// Connection is one end of an arc attached to a port.
type Connection struct {
	arc      *ArcInst
	end      int
	port     *PortInst
	location geom.Point
}

// Arc returns the arc.
func (c *Connection) Arc() *ArcInst { return c.arc }

// End returns HeadEnd or TailEnd.
func (c *Connection) End() int { return c.end }

// PortInst returns the attached port.
func (c *Connection) PortInst() *PortInst { return c.port }

// Location returns the anchor point.
func (c *Connection) Location() geom.Point { return c.location }

// Other returns the opposite end of the same arc.
func (c *Connection) Other() *Connection { return c.arc.ends[1-c.end] }

// ArcInst is a wire between two ports.
type ArcInst struct {
	id            int
	name          string
	nameDisplayed bool
	nameText      TextDescriptor
	proto         *ArcProto
	parent        *Cell
	linked        bool
	width         float64
	ends          [2]*Connection
	vars          []*Variable
}

// ID is unique within the parent cell and grows with creation order.
func (a *ArcInst) ID() int { return a.id }

// Name returns the arc name.
func (a *ArcInst) Name() string { return a.name }

// NameDisplayed reports whether the name was user-given and is drawn.
func (a *ArcInst) NameDisplayed() bool { return a.nameDisplayed }

// Proto returns the arc prototype.
func (a *ArcInst) Proto() *ArcProto { return a.proto }

// Parent implements Object.
func (a *ArcInst) Parent() *Cell { return a.parent }

// IsLinked implements Object.
func (a *ArcInst) IsLinked() bool {
	if a.parent == nil {
		return false
	}
	a.parent.mu.RLock()
	defer a.parent.mu.RUnlock()
	return a.linked && a.parent.linked
}

// Describe implements Object.
func (a *ArcInst) Describe() string { return a.name }

func (a *ArcInst) String() string { return a.proto.Name + "[" + a.name + "]" }

// Width returns the arc width.
func (a *ArcInst) Width() float64 { return a.width }

// Head returns the head connection.
func (a *ArcInst) Head() *Connection { return a.ends[HeadEnd] }

// Tail returns the tail connection.
func (a *ArcInst) Tail() *Connection { return a.ends[TailEnd] }

// End returns the connection at HeadEnd or TailEnd.
func (a *ArcInst) End(i int) *Connection { return a.ends[i] }

// Length returns the distance between the end anchors.
func (a *ArcInst) Length() float64 {
	return a.ends[HeadEnd].location.Distance(a.ends[TailEnd].location)
}

// Poly returns the arc shape: a rectangle along the centerline extended by
// half the width past each end, or the bare centerline for zero width.
func (a *ArcInst) Poly() geom.Poly {
	h, t := a.ends[HeadEnd].location, a.ends[TailEnd].location
	layer := ""
	if a.proto.Layer != nil {
		layer = a.proto.Layer.Name
	}
	if a.width <= 0 {
		p := geom.LinePoly(h, t)
		p.Layer = layer
		return p
	}
	half := a.width / 2
	dx, dy := t.X-h.X, t.Y-h.Y
	l := math.Hypot(dx, dy)
	if l < geom.Epsilon {
		p := geom.RectPoly(geom.RectAround(h, a.width, a.width))
		p.Layer = layer
		return p
	}
	ux, uy := dx/l*half, dy/l*half
	nx, ny := -uy, ux
	p := geom.NewPoly(
		geom.Pt(h.X-ux+nx, h.Y-uy+ny),
		geom.Pt(h.X-ux-nx, h.Y-uy-ny),
		geom.Pt(t.X+ux-nx, t.Y+uy-ny),
		geom.Pt(t.X+ux+nx, t.Y+uy+ny),
	)
	p.Layer = layer
	return p
}

// Bounds implements Geometric.
func (a *ArcInst) Bounds() geom.Rect {
	return a.Poly().Bounds()
}

// Vars returns the arc variables.
func (a *ArcInst) Vars() []*Variable {
	out := make([]*Variable, len(a.vars))
	copy(out, a.vars)
	return out
}

// Var finds a variable by key.
func (a *ArcInst) Var(key string) *Variable {
	return findVar(a.vars, key)
}

// IsElectrical reports whether the arc carries a signal.
func (a *ArcInst) IsElectrical() bool {
	return a.proto.Function != ArcNonElectrical
}
