// Package edit plans bulk changes to one cell: rotating and mirroring,
// alignment, grid snapping, clean-up, bus ripping and the search for
// redundant pure-layer nodes. Planners never touch the database; each
// returns a ChangeSet for a circuit.Editor to apply.
package edit

import (
	"io"
	"log/slog"

	"github.com/Ignat99/electric-sub000/pkg/circuit"
	"github.com/Ignat99/electric-sub000/pkg/config"
	"github.com/Ignat99/electric-sub000/pkg/highlight"
	"github.com/Ignat99/electric-sub000/pkg/tech"
)

// Result is the outcome of one planner. A planner that finds nothing to do
// says so in Message and leaves Changes empty.
type Result struct {
	Changes *circuit.ChangeSet
	Message string
	// Flagged lists problems to show the user rather than fix.
	Flagged []highlight.Highlight
}

// IsEmpty reports whether the result changes nothing.
func (r Result) IsEmpty() bool {
	return r.Changes == nil || r.Changes.IsEmpty()
}

func noop(cell *circuit.Cell, msg string) Result {
	return Result{Changes: circuit.NewChangeSet(cell), Message: msg}
}

// Planner holds the settings the planners read.
type Planner struct {
	align config.Alignment
	ts    *tech.Set
	log   *slog.Logger
}

// Option configures a Planner.
type Option func(*Planner)

// WithAlignment sets the grid and pivot settings.
func WithAlignment(a config.Alignment) Option {
	return func(p *Planner) { p.align = a }
}

// WithTech supplies the prototypes new objects are made from.
func WithTech(ts *tech.Set) Option {
	return func(p *Planner) { p.ts = ts }
}

// WithLogger sets the logger. A nil logger discards.
func WithLogger(l *slog.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.log = l
		}
	}
}

// NewPlanner returns a planner with default alignment settings.
func NewPlanner(opts ...Option) *Planner {
	p := &Planner{
		align: config.Default().Alignment,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// selection is the editable content of a list of highlights: everything
// valid in the cell of the first valid item.
type selection struct {
	cell  *circuit.Cell
	nodes []*circuit.NodeInst
	arcs  []*circuit.ArcInst
	texts []*highlight.Text
}

func gather(list []highlight.Highlight) selection {
	var s selection
	seenNode := make(map[*circuit.NodeInst]bool)
	seenArc := make(map[*circuit.ArcInst]bool)
	for _, h := range list {
		if !h.IsValid() {
			continue
		}
		if s.cell == nil {
			s.cell = h.Cell()
		}
		if h.Cell() != s.cell {
			continue
		}
		if t, ok := h.(*highlight.Text); ok {
			s.texts = append(s.texts, t)
			continue
		}
		if _, ok := h.(*highlight.Object); !ok {
			continue
		}
		for _, n := range h.Nodes() {
			if !seenNode[n] {
				seenNode[n] = true
				s.nodes = append(s.nodes, n)
			}
		}
		for _, a := range h.Arcs() {
			if !seenArc[a] {
				seenArc[a] = true
				s.arcs = append(s.arcs, a)
			}
		}
	}
	return s
}

// withArcEnds returns the selected nodes followed by the nodes at either
// end of the selected arcs that were not selected themselves.
func (s selection) withArcEnds() []*circuit.NodeInst {
	out := append([]*circuit.NodeInst(nil), s.nodes...)
	seen := make(map[*circuit.NodeInst]bool, len(out))
	for _, n := range out {
		seen[n] = true
	}
	for _, a := range s.arcs {
		for _, end := range []*circuit.Connection{a.Head(), a.Tail()} {
			n := end.PortInst().Node()
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}
