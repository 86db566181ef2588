package highlight

import (
	"math"
	"sort"

	"github.com/Ignat99/electric-sub000/pkg/circuit"
	"github.com/Ignat99/electric-sub000/pkg/geom"
)

// ClickOptions modify click resolution.
type ClickOptions struct {
	Exclusive  bool // replace the selection instead of adding to it
	Another    bool // step to the next candidate under the point
	Invert     bool // toggle the candidate in the selection
	WantPort   bool // select the closest port rather than the node
	WantPoint  bool // select the closest outline vertex
	HardToFind bool // include hard-select nodes and cell instances
	WantText   bool // include drawn text
}

// Phases of the candidate search, in result order.
const (
	phasePrimitive = iota
	phaseInstance
	phaseArc
	phaseText
	phaseCount
)

type candidate struct {
	item Highlight
	dist float64
	key  int
}

// FindObject resolves a click at pt in cell and applies it to the set.
// scale is the size of one screen pixel in database units. It returns the
// chosen item, or nil when nothing is under the point.
func (h *Highlighter) FindObject(cell *circuit.Cell, pt geom.Point, scale float64, opts ClickOptions) Highlight {
	slop := h.settings.SlopPixels * scale
	found := h.FindAllInArea(cell, geom.R(pt.X, pt.Y, pt.X, pt.Y), slop, opts)

	h.mu.Lock()
	if len(found) == 0 {
		if !opts.Invert {
			h.clearLocked()
		}
		h.mu.Unlock()
		h.FinalizeChanges()
		return nil
	}

	prev := h.lastLocked()
	pick := found[0]
	if opts.Another && len(found) > 1 {
		if prev != nil {
			for i, c := range found {
				if c.SameThing(prev, false) {
					pick = found[(i+1)%len(found)]
					break
				}
			}
		}
	} else if prev != nil && len(found) > 1 && !opts.Invert {
		if s := similar(found, prev); s != nil {
			pick = s
		}
	}

	switch {
	case opts.Invert:
		if existing := h.findSameLocked(pick); existing != nil {
			h.removeLocked(existing)
		} else {
			h.addLocked(pick)
		}
	case opts.Exclusive || opts.Another:
		h.clearLocked()
		h.addLocked(pick)
	default:
		if h.findSameLocked(pick) == nil {
			h.addLocked(pick)
		}
	}
	h.mu.Unlock()

	h.log.Debug("highlight: click", "at", pt.String(), "candidates", len(found), "picked", pick.Info())
	h.FinalizeChanges()
	return pick
}

func (h *Highlighter) findSameLocked(item Highlight) Highlight {
	for _, x := range h.list {
		if x.SameThing(item, true) {
			return x
		}
	}
	return nil
}

// SelectArea selects everything in area. Without AreaMustEnclose, objects
// within the click slop of the area count too. With invert, each found item
// is toggled instead of replacing the selection. It returns the number of
// items found.
func (h *Highlighter) SelectArea(cell *circuit.Cell, area geom.Rect, scale float64, invert, hardToFind bool) int {
	slop := h.settings.SlopPixels * scale
	if h.settings.AreaMustEnclose {
		slop = 0
	}
	found := h.FindAllInArea(cell, area, slop, ClickOptions{HardToFind: hardToFind, WantText: true})

	h.mu.Lock()
	if !invert {
		h.clearLocked()
	}
	for _, item := range found {
		if !invert {
			h.addLocked(item)
			continue
		}
		if existing := h.findSameLocked(item); existing != nil {
			h.removeLocked(existing)
		} else {
			h.addLocked(item)
		}
	}
	h.mu.Unlock()
	h.FinalizeChanges()
	return len(found)
}

// FindAllInArea lists the candidates within slop of area: primitive nodes,
// then cell instances, then arcs, then text. Each group is ordered by
// distance and then by object ID.
func (h *Highlighter) FindAllInArea(cell *circuit.Cell, area geom.Rect, slop float64, opts ClickOptions) []Highlight {
	if cell == nil || !cell.IsLinked() {
		return nil
	}
	search := area.Grow(slop)
	enclose := h.settings.AreaMustEnclose && !area.IsZeroSize()
	var phases [phaseCount][]candidate

	for _, g := range cell.Search(search) {
		switch v := g.(type) {
		case *circuit.NodeInst:
			phase := phasePrimitive
			if v.IsCellInstance() {
				if !opts.HardToFind && !h.settings.EasyInstances {
					continue
				}
				phase = phaseInstance
			}
			if v.IsHardSelect() && !opts.HardToFind {
				continue
			}
			dist := h.nodeDistance(v, area)
			if enclose {
				if !v.BaseShape().ContainedIn(area) {
					continue
				}
			} else if dist > slop {
				continue
			}
			phases[phase] = append(phases[phase], candidate{
				item: nodeCandidate(v, area, opts),
				dist: dist,
				key:  v.ID(),
			})
		case *circuit.ArcInst:
			poly := v.Poly()
			dist := poly.Distance(area)
			if enclose {
				if !poly.ContainedIn(area) {
					continue
				}
			} else if dist > slop {
				continue
			}
			phases[phaseArc] = append(phases[phaseArc], candidate{item: NewObject(v), dist: dist, key: v.ID()})
		}
	}

	if opts.WantText && !opts.WantPort && !opts.WantPoint {
		h.textIndex(cell).Search(search, func(bounds geom.Rect, ti circuit.TextItem) bool {
			if !h.settings.Text.Shows(ti.Kind) {
				return true
			}
			if enclose && !area.ContainsRect(bounds) {
				return true
			}
			phases[phaseText] = append(phases[phaseText], candidate{item: NewText(ti.Object, ti.Key), dist: bounds.Area()})
			return true
		})
	}

	var out []Highlight
	for i := range phases {
		list := phases[i]
		if i == phaseText {
			sort.SliceStable(list, func(a, b int) bool {
				if list[a].dist != list[b].dist {
					return list[a].dist < list[b].dist
				}
				return list[a].item.Info() < list[b].item.Info()
			})
		} else {
			sort.SliceStable(list, func(a, b int) bool {
				if list[a].dist != list[b].dist {
					return list[a].dist < list[b].dist
				}
				return list[a].key < list[b].key
			})
		}
		for _, c := range list {
			out = append(out, c.item)
		}
	}
	return out
}

func nodeCandidate(n *circuit.NodeInst, area geom.Rect, opts ClickOptions) Highlight {
	if opts.WantPort {
		if pi := closestPort(n, area); pi != nil {
			return NewObject(pi)
		}
	}
	if opts.WantPoint && n.HasOutline() {
		if i := closestVertex(n, area.Center()); i >= 0 {
			return NewObject(n).WithPoint(i)
		}
	}
	return NewObject(n)
}

func closestPort(n *circuit.NodeInst, area geom.Rect) *circuit.PortInst {
	var best *circuit.PortInst
	bestDist := math.Inf(1)
	for _, pi := range n.PortInsts() {
		if d := pi.Poly().Distance(area); d < bestDist {
			best, bestDist = pi, d
		}
	}
	return best
}

func closestVertex(n *circuit.NodeInst, at geom.Point) int {
	best := -1
	bestDist := math.Inf(1)
	t := n.Transform()
	for i, p := range n.Outline() {
		if circuit.IsOutlineBreak(p) {
			continue
		}
		if d := t.Apply(p).Distance(at); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// nodeDistance measures how far area is from the parts of n a user would
// click on.
func (h *Highlighter) nodeDistance(n *circuit.NodeInst, area geom.Rect) float64 {
	pn := n.Primitive()
	if pn == nil {
		return n.BaseShape().Distance(area)
	}
	best := math.Inf(1)
	switch {
	case pn.Function.IsFET() || pn.Function == circuit.FnResistor:
		for _, lp := range n.Polys() {
			if lp.Layer == nil {
				continue
			}
			switch lp.Layer.Function {
			case circuit.LayerPolysilicon, circuit.LayerDiffusion, circuit.LayerMetal:
				best = math.Min(best, lp.Poly.Distance(area))
			}
		}
	case pn.EdgeSelect || (pn.Tech != nil && pn.Tech.Kind == circuit.TechArtwork) || h.portsOutside(pn):
		// Edge-select shapes are only hit on their boundary.
		for _, lp := range n.Polys() {
			p := lp.Poly
			if pn.EdgeSelect && p.Style == geom.Filled {
				p.Style = geom.Outline
			}
			best = math.Min(best, p.Distance(area))
		}
	}
	if math.IsInf(best, 1) {
		return n.BaseShape().Distance(area)
	}
	return best
}

// portsOutside reports whether any port of pn reaches past its drawn
// layers at the default size.
func (h *Highlighter) portsOutside(pn *circuit.PrimitiveNode) bool {
	h.cacheMu.Lock()
	defer h.cacheMu.Unlock()
	if v, ok := h.portsOut[pn]; ok {
		return v
	}
	w, ht := pn.DefaultSize()
	drawn := geom.EmptyRect()
	for _, nl := range pn.Layers {
		drawn.ExpandRect(nl.Insets.Area(w, ht))
	}
	outside := false
	for _, pp := range pn.Ports {
		if !drawn.ContainsRect(pp.Insets.Area(w, ht)) {
			outside = true
			break
		}
	}
	h.portsOut[pn] = outside
	return outside
}

// textIndex returns the cell's text R-tree, rebuilding it after the cell
// changes.
func (h *Highlighter) textIndex(cell *circuit.Cell) *circuit.RectIndex[circuit.TextItem] {
	h.cacheMu.Lock()
	defer h.cacheMu.Unlock()
	rev := cell.Revision()
	tc := h.texts[cell]
	if tc == nil || tc.revision != rev {
		tc = &textCache{revision: rev}
		for _, ti := range cell.DisplayedText() {
			tc.index.Insert(ti.Bounds, ti)
		}
		h.texts[cell] = tc
	}
	return &tc.index
}

// InvalidateCaches drops the text index and prototype caches.
func (h *Highlighter) InvalidateCaches() {
	h.cacheMu.Lock()
	defer h.cacheMu.Unlock()
	h.texts = make(map[*circuit.Cell]*textCache)
	h.portsOut = make(map[*circuit.PrimitiveNode]bool)
}
