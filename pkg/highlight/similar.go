package highlight

import (
	"reflect"

	"github.com/Ignat99/electric-sub000/pkg/circuit"
)

// similar picks the candidate most like example. Only candidates of the
// same variant qualify. For object references the preference is: a port on
// the same kind of node, then a port the example's port could be wired to,
// then an arc of the same type, then anything that can connect to the
// example, then the first qualifying candidate.
func similar(candidates []Highlight, example Highlight) Highlight {
	if example == nil {
		return nil
	}
	want := reflect.TypeOf(example)
	var same []Highlight
	for _, c := range candidates {
		if reflect.TypeOf(c) == want {
			same = append(same, c)
		}
	}
	switch len(same) {
	case 0:
		return nil
	case 1:
		return same[0]
	}

	ex, ok := example.(*Object)
	if !ok {
		return same[0]
	}
	switch eo := ex.obj.(type) {
	case *circuit.PortInst:
		for _, c := range same {
			if pi, ok := c.(*Object).obj.(*circuit.PortInst); ok && pi.Node().Proto() == eo.Node().Proto() {
				return c
			}
		}
		for _, c := range same {
			if pi, ok := c.(*Object).obj.(*circuit.PortInst); ok && portsWireable(pi, eo) {
				return c
			}
		}
	case *circuit.ArcInst:
		for _, c := range same {
			if a, ok := c.(*Object).obj.(*circuit.ArcInst); ok && a.Proto() == eo.Proto() {
				return c
			}
		}
	}
	for _, c := range same {
		if canConnect(c.(*Object).obj, ex.obj) {
			return c
		}
	}
	return same[0]
}

// portsWireable reports whether some non-generic arc fits both ports.
func portsWireable(a, b *circuit.PortInst) bool {
	base := a.Proto().BasePort()
	if base == nil {
		return false
	}
	for _, ap := range base.Connections {
		if ap.Tech != nil && ap.Tech.Kind == circuit.TechGeneric {
			continue
		}
		if b.CanConnect(ap) {
			return true
		}
	}
	return false
}

// canConnect reports whether one object is a port and the other an arc the
// port accepts.
func canConnect(a, b circuit.Object) bool {
	if pi, ok := a.(*circuit.PortInst); ok {
		if arc, ok := b.(*circuit.ArcInst); ok {
			return pi.CanConnect(arc.Proto())
		}
	}
	if pi, ok := b.(*circuit.PortInst); ok {
		if arc, ok := a.(*circuit.ArcInst); ok {
			return pi.CanConnect(arc.Proto())
		}
	}
	return false
}
