package circuit

import (
	"github.com/Ignat99/electric-sub000/pkg/geom"
)

// Text keys for the names every object carries.
const (
	KeyNodeName   = "NODE_name"
	KeyArcName    = "ARC_name"
	KeyExportName = "EXPORT_name"
	KeyPortName   = "PORT_name"
)

// DefaultTextSize is the height of text with no explicit size.
const DefaultTextSize = 1.0

// charAspect is the width of one character relative to the text height.
const charAspect = 0.6

// TextDescriptor places a piece of drawn text relative to its anchor.
type TextDescriptor struct {
	Offset   geom.Point
	Size     float64
	Rotation int
}

func (td TextDescriptor) size() float64 {
	if td.Size <= 0 {
		return DefaultTextSize
	}
	return td.Size
}

// Bounds returns the box of text drawn at anchor.
func (td TextDescriptor) Bounds(anchor geom.Point, text string) geom.Rect {
	h := td.size()
	w := float64(len(text)) * h * charAspect
	if w == 0 {
		w = h * charAspect
	}
	c := anchor.Add(td.Offset)
	r := geom.RectAround(geom.Point{}, w, h)
	return geom.Rotate(td.Rotation).ApplyRect(r).Translate(c.X, c.Y)
}

// Variable is a named value attached to an object, optionally drawn.
type Variable struct {
	Key     string
	Value   string
	Display bool
	Text    TextDescriptor
}

func findVar(vars []*Variable, key string) *Variable {
	for _, v := range vars {
		if v.Key == key {
			return v
		}
	}
	return nil
}

// TextKind classifies drawn text for visibility filtering.
type TextKind int

const (
	TextCell TextKind = iota
	TextNode
	TextAnnotation
	TextInstance
	TextPort
	TextExport
	TextArc
)

func (k TextKind) String() string {
	switch k {
	case TextCell:
		return "cell"
	case TextNode:
		return "node"
	case TextAnnotation:
		return "annotation"
	case TextInstance:
		return "instance"
	case TextPort:
		return "port"
	case TextExport:
		return "export"
	case TextArc:
		return "arc"
	}
	return "unknown"
}

// TextItem is one piece of text drawn in a cell.
type TextItem struct {
	Object Object
	Key    string
	Kind   TextKind
	Text   string
	Bounds geom.Rect
}

// DisplayedText lists every drawn text item in the cell.
func (c *Cell) DisplayedText() []TextItem {
	var out []TextItem
	for _, v := range c.Vars() {
		if v.Display {
			out = append(out, TextItem{
				Object: c, Key: v.Key, Kind: TextCell, Text: v.Value,
				Bounds: v.Text.Bounds(geom.Point{}, v.Value),
			})
		}
	}
	for _, n := range c.Nodes() {
		out = append(out, n.displayedText()...)
	}
	for _, a := range c.Arcs() {
		if a.nameDisplayed {
			mid := a.Poly().Bounds().Center()
			out = append(out, TextItem{
				Object: a, Key: KeyArcName, Kind: TextArc, Text: a.name,
				Bounds: a.nameText.Bounds(mid, a.name),
			})
		}
		for _, v := range a.vars {
			if v.Display {
				mid := a.Poly().Bounds().Center()
				out = append(out, TextItem{
					Object: a, Key: v.Key, Kind: TextArc, Text: v.Value,
					Bounds: v.Text.Bounds(mid, v.Value),
				})
			}
		}
	}
	for _, e := range c.Exports() {
		at := e.original.Center()
		out = append(out, TextItem{
			Object: e, Key: KeyExportName, Kind: TextExport, Text: e.name,
			Bounds: e.nameText.Bounds(at, e.name),
		})
	}
	return out
}

func (n *NodeInst) displayedText() []TextItem {
	var out []TextItem
	kind := TextNode
	if n.IsCellInstance() {
		kind = TextInstance
	}
	if n.nameDisplayed {
		out = append(out, TextItem{
			Object: n, Key: KeyNodeName, Kind: kind, Text: n.name,
			Bounds: n.nameText.Bounds(n.center, n.name),
		})
	}
	varKind := TextNode
	if pn := n.Primitive(); pn != nil && pn.Special && pn.Function == FnPin {
		varKind = TextAnnotation
	}
	for _, v := range n.vars {
		if v.Display {
			out = append(out, TextItem{
				Object: n, Key: v.Key, Kind: varKind, Text: v.Value,
				Bounds: v.Text.Bounds(n.center, v.Value),
			})
		}
	}
	if n.IsCellInstance() {
		for _, pi := range n.ports {
			name := pi.proto.PortName()
			out = append(out, TextItem{
				Object: pi, Key: KeyPortName, Kind: TextPort, Text: name,
				Bounds: TextDescriptor{}.Bounds(pi.Center(), name),
			})
		}
	}
	return out
}

// TextDescriptorOf returns the placement of the text under key on obj.
func TextDescriptorOf(obj Object, key string) (TextDescriptor, bool) {
	if td := textRef(obj, key); td != nil {
		return *td, true
	}
	return TextDescriptor{}, false
}

func textRef(obj Object, key string) *TextDescriptor {
	var vars []*Variable
	switch o := obj.(type) {
	case *Cell:
		vars = o.vars
	case *NodeInst:
		if key == KeyNodeName {
			return &o.nameText
		}
		vars = o.vars
	case *ArcInst:
		if key == KeyArcName {
			return &o.nameText
		}
		vars = o.vars
	case *Export:
		if key == KeyExportName {
			return &o.nameText
		}
	}
	if v := findVar(vars, key); v != nil {
		return &v.Text
	}
	return nil
}
