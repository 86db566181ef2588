// Package tech builds the technologies the editor ships with: a generic
// technology of universal pins and rats-nest arcs, schematics, artwork, and
// a small two-metal CMOS process.
package tech

import (
	"strings"

	"github.com/Ignat99/electric-sub000/pkg/circuit"
)

// Set holds one instance of every built-in technology and shortcuts to the
// prototypes other packages need by role.
type Set struct {
	Generic   *circuit.Technology
	Schematic *circuit.Technology
	Artwork   *circuit.Technology
	CMOS      *circuit.Technology

	// Generic
	UniversalPin *circuit.PrimitiveNode
	InvisiblePin *circuit.PrimitiveNode
	UnroutedPin  *circuit.PrimitiveNode
	UniversalArc *circuit.ArcProto
	InvisibleArc *circuit.ArcProto
	UnroutedArc  *circuit.ArcProto

	// Schematics
	WirePin  *circuit.PrimitiveNode
	BusPin   *circuit.PrimitiveNode
	NMOS     *circuit.PrimitiveNode
	PMOS     *circuit.PrimitiveNode
	And      *circuit.PrimitiveNode
	Or       *circuit.PrimitiveNode
	Buffer   *circuit.PrimitiveNode
	Resistor *circuit.PrimitiveNode
	Wire     *circuit.ArcProto
	Bus      *circuit.ArcProto

	// Artwork
	ArtPin     *circuit.PrimitiveNode
	OpenedPoly *circuit.PrimitiveNode
	FilledPoly *circuit.PrimitiveNode
	ClosedPoly *circuit.PrimitiveNode
	Box        *circuit.PrimitiveNode
	Solid      *circuit.ArcProto

	// CMOS
	Metal1      *circuit.ArcProto
	Metal2      *circuit.ArcProto
	Poly1       *circuit.ArcProto
	PActive     *circuit.ArcProto
	NActive     *circuit.ArcProto
	NTransistor *circuit.PrimitiveNode
	PTransistor *circuit.PrimitiveNode
}

// New builds a fresh set. Sets share nothing, so tests may build their own.
func New() *Set {
	s := &Set{}
	s.buildGeneric()
	s.buildSchematic()
	s.buildArtwork()
	s.buildCMOS()
	s.joinGeneric()
	return s
}

// All returns the technologies in a fixed order.
func (s *Set) All() []*circuit.Technology {
	return []*circuit.Technology{s.Generic, s.Schematic, s.Artwork, s.CMOS}
}

// NewDatabase returns an empty database knowing every technology.
func (s *Set) NewDatabase() *circuit.Database {
	return circuit.NewDatabase(s.All()...)
}

// FindNode looks a primitive up as "tech:name" or by bare name across
// every technology.
func (s *Set) FindNode(name string) *circuit.PrimitiveNode {
	techName, node := splitQualified(name)
	for _, t := range s.All() {
		if techName != "" && t.Name != techName {
			continue
		}
		if pn := t.FindNode(node); pn != nil {
			return pn
		}
	}
	return nil
}

// FindArc looks an arc prototype up as "tech:name" or by bare name.
func (s *Set) FindArc(name string) *circuit.ArcProto {
	techName, arc := splitQualified(name)
	for _, t := range s.All() {
		if techName != "" && t.Name != techName {
			continue
		}
		if ap := t.FindArc(arc); ap != nil {
			return ap
		}
	}
	return nil
}

func splitQualified(name string) (string, string) {
	if techName, rest, ok := strings.Cut(name, ":"); ok {
		return techName, rest
	}
	return "", name
}

func (s *Set) buildGeneric() {
	t := circuit.NewTechnology("generic", circuit.TechGeneric)
	glyph := t.AddLayer("Glyph", circuit.LayerArt)

	s.UniversalArc = t.AddArc("Universal", circuit.ArcWire, 0, glyph)
	s.InvisibleArc = t.AddArc("Invisible", circuit.ArcNonElectrical, 0, glyph)
	s.UnroutedArc = t.AddArc("Unrouted", circuit.ArcUnrouted, 0, glyph)

	pin := func(name string) *circuit.PrimitiveNode {
		pn := t.AddNode(name, circuit.FnPin, 1, 1, circuit.NodeLayer{Layer: glyph})
		pn.Special = true
		pn.AddPort("center", circuit.Uniform(0.5), 0)
		return pn
	}
	s.UniversalPin = pin("Universal-Pin")
	s.InvisiblePin = pin("Invisible-Pin")
	s.UnroutedPin = pin("Unrouted-Pin")

	s.UniversalArc.Pin = s.UniversalPin
	s.InvisibleArc.Pin = s.InvisiblePin
	s.UnroutedArc.Pin = s.UnroutedPin
	s.Generic = t
}

func (s *Set) buildSchematic() {
	t := circuit.NewTechnology("schematic", circuit.TechSchematic)
	ink := t.AddLayer("Node", circuit.LayerArt)
	wireLayer := t.AddLayer("Arc", circuit.LayerMetal)
	busLayer := t.AddLayer("Bus", circuit.LayerMetal)

	s.Wire = t.AddArc("wire", circuit.ArcWire, 0, wireLayer)
	s.Bus = t.AddArc("bus", circuit.ArcBus, 0, busLayer)

	s.WirePin = t.AddNode("Wire_Pin", circuit.FnPin, 1, 1, circuit.NodeLayer{Layer: wireLayer})
	s.WirePin.AddPort("wire", circuit.Uniform(0.5), 0, s.Wire)
	s.Wire.Pin = s.WirePin

	s.BusPin = t.AddNode("Bus_Pin", circuit.FnPin, 2, 2, circuit.NodeLayer{Layer: busLayer})
	s.BusPin.AddPort("bus", circuit.Uniform(1), 0, s.Wire, s.Bus)
	s.Bus.Pin = s.BusPin

	fet := func(name string, fn circuit.NodeFunction) *circuit.PrimitiveNode {
		pn := t.AddNode(name, fn, 4, 4, circuit.NodeLayer{Layer: ink})
		// Gate at the left edge, source below, drain above.
		pn.AddPort("g", circuit.Insets{Left: 0, Right: 4, Bottom: 2, Top: 2}, 0, s.Wire)
		pn.AddPort("s", circuit.Insets{Left: 3, Right: 1, Bottom: 0, Top: 4}, 1, s.Wire)
		pn.AddPort("d", circuit.Insets{Left: 3, Right: 1, Bottom: 4, Top: 0}, 2, s.Wire)
		return pn
	}
	s.NMOS = fet("nmos", circuit.FnTransistorN)
	s.PMOS = fet("pmos", circuit.FnTransistorP)

	gate := func(name string, fn circuit.NodeFunction) *circuit.PrimitiveNode {
		pn := t.AddNode(name, fn, 6, 6, circuit.NodeLayer{Layer: ink})
		// The input port takes any number of wires.
		pn.AddPort("a", circuit.Insets{Left: 0, Right: 6, Bottom: 0.5, Top: 0.5}, 0, s.Wire, s.Bus)
		pn.AddPort("y", circuit.Insets{Left: 6, Right: 0, Bottom: 3, Top: 3}, 1, s.Wire, s.Bus)
		return pn
	}
	s.And = gate("And", circuit.FnAnd)
	s.Or = gate("Or", circuit.FnOr)
	s.Buffer = gate("Buffer", circuit.FnInverter)

	s.Resistor = t.AddNode("Resistor", circuit.FnResistor, 4, 1, circuit.NodeLayer{Layer: ink})
	s.Resistor.AddPort("a", circuit.Insets{Left: 0, Right: 4, Bottom: 0.5, Top: 0.5}, 0, s.Wire)
	s.Resistor.AddPort("b", circuit.Insets{Left: 4, Right: 0, Bottom: 0.5, Top: 0.5}, 1, s.Wire)
	s.Schematic = t
}

func (s *Set) buildArtwork() {
	t := circuit.NewTechnology("artwork", circuit.TechArtwork)
	g := t.AddLayer("Graphics", circuit.LayerArt)

	s.Solid = t.AddArc("Solid", circuit.ArcNonElectrical, 0, g)

	art := func(name string, fn circuit.NodeFunction, outline bool) *circuit.PrimitiveNode {
		pn := t.AddNode(name, fn, 6, 6, circuit.NodeLayer{Layer: g})
		pn.Special = true
		pn.HoldsOutline = outline
		pn.AddPort("site", circuit.Uniform(3), 0, s.Solid)
		return pn
	}
	s.ArtPin = art("Pin", circuit.FnPin, false)
	s.ArtPin.DefaultWidth, s.ArtPin.DefaultHeight = 1, 1
	s.ArtPin.Ports[0].Insets = circuit.Uniform(0.5)
	s.OpenedPoly = art("Opened-Polygon", circuit.FnArt, true)
	s.FilledPoly = art("Filled-Polygon", circuit.FnArt, true)
	s.ClosedPoly = art("Closed-Polygon", circuit.FnArt, true)
	s.Box = art("Box", circuit.FnArt, false)
	s.Box.EdgeSelect = true
	s.Solid.Pin = s.ArtPin
	s.Artwork = t
}

func (s *Set) buildCMOS() {
	t := circuit.NewTechnology("cmos", circuit.TechLayout)
	m1 := t.AddLayer("Metal-1", circuit.LayerMetal)
	m2 := t.AddLayer("Metal-2", circuit.LayerMetal)
	p1 := t.AddLayer("Polysilicon-1", circuit.LayerPolysilicon)
	pa := t.AddLayer("P-Active", circuit.LayerDiffusion)
	na := t.AddLayer("N-Active", circuit.LayerDiffusion)
	nw := t.AddLayer("N-Well", circuit.LayerWell)
	pw := t.AddLayer("P-Well", circuit.LayerWell)
	ps := t.AddLayer("P-Select", circuit.LayerImplant)
	ns := t.AddLayer("N-Select", circuit.LayerImplant)
	cut := t.AddLayer("Contact-Cut", circuit.LayerOther)
	via := t.AddLayer("Via1", circuit.LayerOther)

	s.Metal1 = t.AddArc("Metal-1", circuit.ArcMetal, 3, m1)
	s.Metal2 = t.AddArc("Metal-2", circuit.ArcMetal, 3, m2)
	s.Poly1 = t.AddArc("Polysilicon-1", circuit.ArcPoly, 2, p1)
	s.PActive = t.AddArc("P-Active", circuit.ArcDiffusion, 3, pa)
	s.NActive = t.AddArc("N-Active", circuit.ArcDiffusion, 3, na)

	for _, ap := range []*circuit.ArcProto{s.Metal1, s.Metal2, s.Poly1, s.PActive, s.NActive} {
		w := ap.DefaultWidth
		pin := t.AddNode(ap.Name+"-Pin", circuit.FnPin, w, w, circuit.NodeLayer{Layer: ap.Layer, Insets: circuit.Uniform(w / 2)})
		pin.AddPort(strings.ToLower(ap.Name), circuit.Uniform(w/2), 0, ap)
		ap.Pin = pin
	}

	contact := func(name string, a, b *circuit.ArcProto, cutLayer *circuit.Layer) {
		pn := t.AddNode(name, circuit.FnContact, 5, 5,
			circuit.NodeLayer{Layer: a.Layer, Insets: circuit.Uniform(0.5)},
			circuit.NodeLayer{Layer: b.Layer},
			circuit.NodeLayer{Layer: cutLayer, Insets: circuit.Uniform(2)},
		)
		pn.AddPort(strings.ToLower(name), circuit.Uniform(2), 0, a, b)
	}
	contact("Metal-1-Polysilicon-1-Con", s.Metal1, s.Poly1, cut)
	contact("Metal-1-Metal-2-Con", s.Metal1, s.Metal2, via)
	contact("Metal-1-P-Active-Con", s.Metal1, s.PActive, cut)
	contact("Metal-1-N-Active-Con", s.Metal1, s.NActive, cut)

	fet := func(name string, fn circuit.NodeFunction, diff *circuit.ArcProto, well, sel *circuit.Layer) *circuit.PrimitiveNode {
		pn := t.AddNode(name, fn, 6, 4,
			circuit.NodeLayer{Layer: diff.Layer, Insets: circuit.Insets{Bottom: 1, Top: 1}},
			circuit.NodeLayer{Layer: p1, Insets: circuit.Insets{Left: 2.5, Right: 2.5}},
			circuit.NodeLayer{Layer: well},
			circuit.NodeLayer{Layer: sel},
		)
		pn.AddPort("g", circuit.Insets{Left: 2.5, Right: 2.5, Bottom: 3.5}, 0, s.Poly1)
		pn.AddPort("s", circuit.Insets{Right: 5, Bottom: 1, Top: 1}, 1, diff)
		pn.AddPort("g2", circuit.Insets{Left: 2.5, Right: 2.5, Top: 3.5}, 0, s.Poly1)
		pn.AddPort("d", circuit.Insets{Left: 5, Bottom: 1, Top: 1}, 2, diff)
		return pn
	}
	s.NTransistor = fet("N-Transistor", circuit.FnTransistorN, s.NActive, pw, ns)
	s.PTransistor = fet("P-Transistor", circuit.FnTransistorP, s.PActive, nw, ps)

	for _, l := range []*circuit.Layer{m1, m2, p1, pa, na, nw, pw, ps, ns} {
		pn := t.AddNode(l.Name+"-Node", circuit.FnNode, 3, 3, circuit.NodeLayer{Layer: l})
		pn.HoldsOutline = true
		var arcs []*circuit.ArcProto
		for _, ap := range t.Arcs {
			if ap.Layer == l {
				arcs = append(arcs, ap)
			}
		}
		pn.AddPort(strings.ToLower(l.Name), circuit.Insets{}, 0, arcs...)
	}
	s.CMOS = t
}

// joinGeneric lets generic arcs reach every port and the universal pin
// accept every arc.
func (s *Set) joinGeneric() {
	generic := []*circuit.ArcProto{s.UniversalArc, s.InvisibleArc, s.UnroutedArc}
	for _, t := range s.All() {
		for _, pn := range t.Nodes {
			for _, pp := range pn.Ports {
				for _, ap := range generic {
					if !pp.CanConnect(ap) {
						pp.Connections = append(pp.Connections, ap)
					}
				}
			}
		}
	}
	univ := s.UniversalPin.Ports[0]
	for _, t := range s.All() {
		for _, ap := range t.Arcs {
			if !univ.CanConnect(ap) {
				univ.Connections = append(univ.Connections, ap)
			}
		}
	}
}
