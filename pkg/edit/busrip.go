package edit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Ignat99/electric-sub000/pkg/circuit"
	"github.com/Ignat99/electric-sub000/pkg/geom"
	"github.com/Ignat99/electric-sub000/pkg/highlight"
)

const ripSpacing = 2

// RipBus breaks each selected bus arc into its bits: one wire pin per bit
// beside the bus's tail, wired to the tail and named after the bit.
func (p *Planner) RipBus(sel []highlight.Highlight) Result {
	s := gather(sel)
	if p.ts == nil {
		return noop(s.cell, "No schematic technology to rip with")
	}
	cs := circuit.NewChangeSet(s.cell)
	ripped := 0
	for _, a := range s.arcs {
		if a.Proto().Function != circuit.ArcBus {
			continue
		}
		bits := ExpandBusName(a.Name())
		if len(bits) < 2 {
			continue
		}
		end := a.Tail()
		if !end.PortInst().CanConnect(p.ts.Wire) {
			end = a.Head()
			if !end.PortInst().CanConnect(p.ts.Wire) {
				continue
			}
		}
		from := end.Location()
		// Bits fan out at right angles to the bus.
		dir := geom.Pt(1, 0)
		if far := end.Other().Location(); far.X != from.X {
			dir = geom.Pt(0, -1)
		}
		pi := end.PortInst()
		for i, bit := range bits {
			step := float64(i+1) * ripSpacing
			at := from.Add(geom.Pt(dir.X*step, dir.Y*step))
			pin := cs.AddNode(circuit.NodeSpec{Proto: p.ts.WirePin, Center: at})
			w := cs.AddArc(p.ts.Wire, circuit.End{Node: pi.Node(), Port: pi.Name(), At: &from}, circuit.End{New: pin})
			w.Name = bit
		}
		ripped++
	}
	if ripped == 0 {
		return noop(s.cell, "Must select named bus arcs to rip")
	}
	p.log.Debug("edit: rip bus", "arcs", ripped, "wires", len(cs.NewArcs))
	return Result{Changes: cs, Message: fmt.Sprintf("ripped %d buses into %d wires", ripped, len(cs.NewArcs))}
}

// ExpandBusName lists the signals of a bus name: "a[3:0]" is a[3] a[2]
// a[1] a[0], and comma separated parts are expanded one after another.
func ExpandBusName(name string) []string {
	var out []string
	for _, part := range strings.Split(name, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		open := strings.LastIndexByte(part, '[')
		colon := strings.LastIndexByte(part, ':')
		if open <= 0 || colon < open || !strings.HasSuffix(part, "]") {
			out = append(out, part)
			continue
		}
		first, err1 := strconv.Atoi(part[open+1 : colon])
		last, err2 := strconv.Atoi(part[colon+1 : len(part)-1])
		if err1 != nil || err2 != nil {
			out = append(out, part)
			continue
		}
		step := 1
		if last < first {
			step = -1
		}
		for i := first; ; i += step {
			out = append(out, part[:open]+"["+strconv.Itoa(i)+"]")
			if i == last {
				break
			}
		}
	}
	return out
}
