package circuit

import (
	"github.com/Ignat99/electric-sub000/pkg/geom"
)

// TechKind separates the drawing technologies from the electrical ones.
type TechKind int

const (
	TechLayout TechKind = iota
	TechSchematic
	TechGeneric
	TechArtwork
)

// LayerFunction classifies a layer's electrical role.
type LayerFunction int

const (
	LayerOther LayerFunction = iota
	LayerMetal
	LayerPolysilicon
	LayerDiffusion
	LayerWell
	LayerImplant
	LayerArt
)

// Layer is one drawing layer of a technology.
type Layer struct {
	Name     string
	Function LayerFunction
	Visible  bool
}

// ArcFunction classifies an arc prototype.
type ArcFunction int

const (
	ArcMetal ArcFunction = iota
	ArcPoly
	ArcDiffusion
	ArcWire
	ArcBus
	ArcUnrouted
	ArcNonElectrical
)

// ArcProto is an arc prototype (a wire type).
type ArcProto struct {
	Name         string
	Tech         *Technology
	Function     ArcFunction
	DefaultWidth float64
	Layer        *Layer
	// Pin is the primitive used to join two arcs of this type.
	Pin *PrimitiveNode
}

// FullName returns "tech:name".
func (ap *ArcProto) FullName() string {
	if ap.Tech == nil {
		return ap.Name
	}
	return ap.Tech.Name + ":" + ap.Name
}

// NodeFunction classifies a primitive node.
type NodeFunction int

const (
	FnUnknown NodeFunction = iota
	FnPin
	FnContact
	FnTransistorN
	FnTransistorP
	FnResistor
	FnNode
	FnAnd
	FnOr
	FnInverter
	FnArt
	FnConnect
)

var functionNames = map[NodeFunction]string{
	FnUnknown:     "unknown",
	FnPin:         "pin",
	FnContact:     "contact",
	FnTransistorN: "nmos",
	FnTransistorP: "pmos",
	FnResistor:    "resistor",
	FnNode:        "node",
	FnAnd:         "and",
	FnOr:          "or",
	FnInverter:    "inverter",
	FnArt:         "art",
	FnConnect:     "connect",
}

func (f NodeFunction) String() string {
	if s, ok := functionNames[f]; ok {
		return s
	}
	return "unknown"
}

// IsFET reports whether the function is a field-effect transistor.
func (f NodeFunction) IsFET() bool {
	return f == FnTransistorN || f == FnTransistorP
}

// Insets measure how far a shape sits inside each edge of its node.
type Insets struct {
	Left, Bottom, Right, Top float64
}

// Uniform returns equal insets on all sides.
func Uniform(d float64) Insets {
	return Insets{Left: d, Bottom: d, Right: d, Top: d}
}

// Area returns the inset rectangle of a width×height node centered on the
// origin. Insets larger than the node collapse to the midpoint.
func (in Insets) Area(width, height float64) geom.Rect {
	x0, x1 := -width/2+in.Left, width/2-in.Right
	y0, y1 := -height/2+in.Bottom, height/2-in.Top
	if x0 > x1 {
		x0 = (x0 + x1) / 2
		x1 = x0
	}
	if y0 > y1 {
		y0 = (y0 + y1) / 2
		y1 = y0
	}
	return geom.R(x0, y0, x1, y1)
}

// NodeLayer is one layer drawn by a primitive node.
type NodeLayer struct {
	Layer  *Layer
	Insets Insets
}

// PrimitivePort is a port of a primitive node.
type PrimitivePort struct {
	Name   string
	Node   *PrimitiveNode
	Insets Insets
	// Ports sharing a Topology number are joined inside the node.
	Topology       int
	Connections    []*ArcProto
	Characteristic Characteristic
}

// PortName implements PortProto.
func (pp *PrimitivePort) PortName() string { return pp.Name }

// ParentProto implements PortProto.
func (pp *PrimitivePort) ParentProto() NodeProto { return pp.Node }

// PortCharacteristic implements PortProto.
func (pp *PrimitivePort) PortCharacteristic() Characteristic { return pp.Characteristic }

// CanConnect implements PortProto.
func (pp *PrimitivePort) CanConnect(ap *ArcProto) bool {
	for _, c := range pp.Connections {
		if c == ap {
			return true
		}
	}
	return false
}

// BasePort implements PortProto.
func (pp *PrimitivePort) BasePort() *PrimitivePort { return pp }

// PrimitiveNode is a node prototype supplied by a technology.
type PrimitiveNode struct {
	Name          string
	Tech          *Technology
	Function      NodeFunction
	DefaultWidth  float64
	DefaultHeight float64
	Layers        []NodeLayer
	Ports         []*PrimitivePort
	// EdgeSelect nodes are hit only near their drawn polygons.
	EdgeSelect bool
	// Special marks generic/artwork helpers exempt from size checks.
	Special bool
	// HoldsOutline nodes are drawn from their NodeInst outline.
	HoldsOutline bool
}

// ProtoName implements NodeProto.
func (pn *PrimitiveNode) ProtoName() string { return pn.Name }

// FullName returns "tech:name".
func (pn *PrimitiveNode) FullName() string {
	if pn.Tech == nil {
		return pn.Name
	}
	return pn.Tech.Name + ":" + pn.Name
}

// IsCell implements NodeProto.
func (pn *PrimitiveNode) IsCell() bool { return false }

// DefaultSize implements NodeProto.
func (pn *PrimitiveNode) DefaultSize() (float64, float64) {
	return pn.DefaultWidth, pn.DefaultHeight
}

// PortProtos implements NodeProto.
func (pn *PrimitiveNode) PortProtos() []PortProto {
	out := make([]PortProto, len(pn.Ports))
	for i, p := range pn.Ports {
		out[i] = p
	}
	return out
}

// FindPortProto implements NodeProto.
func (pn *PrimitiveNode) FindPortProto(name string) PortProto {
	for _, p := range pn.Ports {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// PureLayer returns the single layer of a pure-layer node, or nil.
func (pn *PrimitiveNode) PureLayer() *Layer {
	if pn.Function != FnNode || len(pn.Layers) != 1 {
		return nil
	}
	return pn.Layers[0].Layer
}

// AddPort appends a port and returns it.
func (pn *PrimitiveNode) AddPort(name string, in Insets, topology int, arcs ...*ArcProto) *PrimitivePort {
	pp := &PrimitivePort{
		Name:        name,
		Node:        pn,
		Insets:      in,
		Topology:    topology,
		Connections: arcs,
	}
	pn.Ports = append(pn.Ports, pp)
	return pp
}

// Technology groups layers, arc prototypes and primitive nodes.
type Technology struct {
	Name   string
	Kind   TechKind
	Layers []*Layer
	Arcs   []*ArcProto
	Nodes  []*PrimitiveNode
}

// NewTechnology creates an empty technology.
func NewTechnology(name string, kind TechKind) *Technology {
	return &Technology{Name: name, Kind: kind}
}

// AddLayer creates a visible layer.
func (t *Technology) AddLayer(name string, fn LayerFunction) *Layer {
	l := &Layer{Name: name, Function: fn, Visible: true}
	t.Layers = append(t.Layers, l)
	return l
}

// AddArc creates an arc prototype.
func (t *Technology) AddArc(name string, fn ArcFunction, width float64, layer *Layer) *ArcProto {
	ap := &ArcProto{Name: name, Tech: t, Function: fn, DefaultWidth: width, Layer: layer}
	t.Arcs = append(t.Arcs, ap)
	return ap
}

// AddNode creates a primitive node prototype.
func (t *Technology) AddNode(name string, fn NodeFunction, width, height float64, layers ...NodeLayer) *PrimitiveNode {
	pn := &PrimitiveNode{
		Name:          name,
		Tech:          t,
		Function:      fn,
		DefaultWidth:  width,
		DefaultHeight: height,
		Layers:        layers,
	}
	t.Nodes = append(t.Nodes, pn)
	return pn
}

// FindNode looks up a primitive by name.
func (t *Technology) FindNode(name string) *PrimitiveNode {
	for _, n := range t.Nodes {
		if n.Name == name {
			return n
		}
	}
	return nil
}

// FindArc looks up an arc prototype by name.
func (t *Technology) FindArc(name string) *ArcProto {
	for _, a := range t.Arcs {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// FindLayer looks up a layer by name.
func (t *Technology) FindLayer(name string) *Layer {
	for _, l := range t.Layers {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// PureLayerNodes returns the pure-layer primitives in declaration order.
func (t *Technology) PureLayerNodes() []*PrimitiveNode {
	var out []*PrimitiveNode
	for _, n := range t.Nodes {
		if n.PureLayer() != nil {
			out = append(out, n)
		}
	}
	return out
}
