package edit

import (
	"fmt"

	"github.com/Ignat99/electric-sub000/pkg/circuit"
	"github.com/Ignat99/electric-sub000/pkg/config"
	"github.com/Ignat99/electric-sub000/pkg/geom"
	"github.com/Ignat99/electric-sub000/pkg/highlight"
)

// Rotate turns the selection by angle tenths of a degree,
// counter-clockwise. Selected arcs turn with their end nodes; selected text
// turns in place.
func (p *Planner) Rotate(sel []highlight.Highlight, angle int) Result {
	return p.reorient(sel, geom.NewOrientation(angle, false, false), circuit.TextRotation{Angle: angle}, "rotate", "rotated")
}

// Mirror flips the selection left to right when horizontal is set, top to
// bottom otherwise. Selected text flips its offset from its anchor.
func (p *Planner) Mirror(sel []highlight.Highlight, horizontal bool) Result {
	flip := circuit.TextRotation{FlipX: horizontal, FlipY: !horizontal}
	return p.reorient(sel, geom.NewOrientation(0, horizontal, !horizontal), flip, "mirror", "mirrored")
}

// reorient applies o to the selected nodes and text to the selected text.
func (p *Planner) reorient(list []highlight.Highlight, o geom.Orientation, text circuit.TextRotation, verb, done string) Result {
	s := gather(list)
	nodes := s.withArcEnds()
	if len(nodes) == 0 && len(s.texts) == 0 {
		return noop(s.cell, "Must select something to "+verb)
	}
	pivot := p.pivot(nodes)
	cs := circuit.NewChangeSet(s.cell)
	for _, n := range nodes {
		cs.RotateNode(n, o, pivot)
	}
	for _, t := range s.texts {
		tr := text
		tr.Object, tr.Key = t.Object(), t.Key()
		cs.TextRotations = append(cs.TextRotations, tr)
	}
	p.log.Debug("edit: "+verb, "nodes", len(nodes), "texts", len(cs.TextRotations), "pivot", pivot)
	msg := fmt.Sprintf("%s %d nodes", done, len(nodes))
	if len(s.texts) > 0 {
		msg += fmt.Sprintf(" and %d texts", len(s.texts))
	}
	return Result{Changes: cs, Message: msg}
}

// pivot is the cell origin unless settings ask for the selection center.
func (p *Planner) pivot(nodes []*circuit.NodeInst) geom.Point {
	if p.align.Pivot != config.PivotCenter || len(nodes) == 0 {
		return geom.Point{}
	}
	r := geom.EmptyRect()
	for _, n := range nodes {
		r.ExpandRect(n.Bounds())
	}
	return r.Center()
}
