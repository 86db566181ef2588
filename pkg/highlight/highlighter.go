package highlight

import (
	"io"
	"log/slog"
	"sync"

	"github.com/Ignat99/electric-sub000/pkg/circuit"
	"github.com/Ignat99/electric-sub000/pkg/config"
	"github.com/Ignat99/electric-sub000/pkg/geom"
)

// Kind says what a highlighter is used for. Only selection highlighters
// notify listeners.
type Kind int

const (
	KindSelection Kind = iota
	KindMouseOver
	KindMeasurement
)

func (k Kind) String() string {
	switch k {
	case KindSelection:
		return "selection"
	case KindMouseOver:
		return "mouse-over"
	case KindMeasurement:
		return "measurement"
	}
	return "unknown"
}

// Listener is told when a selection highlighter finishes a change.
type Listener interface {
	HighlightChanged(h *Highlighter)
}

// Dispatcher runs fn on the context that owns the display.
type Dispatcher func(fn func())

// Option configures a Highlighter.
type Option func(*Highlighter)

// WithSettings sets the selection settings.
func WithSettings(s config.Selection) Option {
	return func(h *Highlighter) { h.settings = s }
}

// WithLogger sets the logger; nil discards.
func WithLogger(l *slog.Logger) Option {
	return func(h *Highlighter) { h.log = l }
}

// WithDispatcher routes listener notification through d.
func WithDispatcher(d Dispatcher) Option {
	return func(h *Highlighter) { h.dispatch = d }
}

// Highlighter is the ordered set of highlighted items of one view. Every
// method is safe for concurrent use and every list it returns is a copy.
type Highlighter struct {
	kind     Kind
	settings config.Selection
	log      *slog.Logger
	dispatch Dispatcher

	mu              sync.Mutex
	list            []Highlight
	difficult       []Highlight
	stack           [][]Highlight
	lastBeforeClear Highlight
	changed         bool
	offset          geom.Point
	depth           int
	listeners       []Listener

	cacheMu  sync.Mutex
	texts    map[*circuit.Cell]*textCache
	portsOut map[*circuit.PrimitiveNode]bool
}

type textCache struct {
	revision int
	index    circuit.RectIndex[circuit.TextItem]
}

// New returns an empty highlighter.
func New(kind Kind, opts ...Option) *Highlighter {
	h := &Highlighter{
		kind:     kind,
		settings: config.Default().Selection,
		dispatch: func(fn func()) { fn() },
		texts:    make(map[*circuit.Cell]*textCache),
		portsOut: make(map[*circuit.PrimitiveNode]bool),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return h
}

// Kind returns the highlighter kind.
func (h *Highlighter) Kind() Kind { return h.kind }

// Settings returns the selection settings.
func (h *Highlighter) Settings() config.Selection { return h.settings }

// AddListener registers l.
func (h *Highlighter) AddListener(l Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, l)
}

// RemoveListener unregisters l.
func (h *Highlighter) RemoveListener(l Listener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, x := range h.listeners {
		if x == l {
			h.listeners = append(h.listeners[:i], h.listeners[i+1:]...)
			return
		}
	}
}

// Add appends an item.
func (h *Highlighter) Add(item Highlight) {
	if item == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.addLocked(item)
}

func (h *Highlighter) addLocked(item Highlight) {
	h.list = append(h.list, item)
	if item.IsDifficult() {
		h.difficult = append(h.difficult, item)
	}
	h.changed = true
}

// Remove drops an item.
func (h *Highlighter) Remove(item Highlight) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(item)
}

func (h *Highlighter) removeLocked(item Highlight) {
	for i, x := range h.list {
		if x == item {
			h.list = append(h.list[:i], h.list[i+1:]...)
			h.changed = true
			break
		}
	}
	for i, x := range h.difficult {
		if x == item {
			h.difficult = append(h.difficult[:i], h.difficult[i+1:]...)
			break
		}
	}
}

// Replace swaps old for repl in place.
func (h *Highlighter) Replace(old, repl Highlight) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, x := range h.list {
		if x != old {
			continue
		}
		h.list[i] = repl
		h.difficult = h.difficult[:0]
		for _, y := range h.list {
			if y.IsDifficult() {
				h.difficult = append(h.difficult, y)
			}
		}
		h.changed = true
		return true
	}
	return false
}

// Clear empties the set, resets the offset and the network reveal depth,
// and remembers the last item for click cycling.
func (h *Highlighter) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clearLocked()
}

func (h *Highlighter) clearLocked() {
	if n := len(h.list); n > 0 {
		h.lastBeforeClear = h.list[n-1]
		h.changed = true
	}
	h.list = nil
	h.difficult = nil
	h.offset = geom.Point{}
	h.depth = 0
}

// PushSnapshot saves the current items.
func (h *Highlighter) PushSnapshot() {
	h.mu.Lock()
	defer h.mu.Unlock()
	saved := make([]Highlight, len(h.list))
	copy(saved, h.list)
	h.stack = append(h.stack, saved)
}

// PopSnapshot restores the most recently saved items, rebuilt against the
// current database. Items that no longer apply are dropped. It returns
// false when no snapshot was saved.
func (h *Highlighter) PopSnapshot() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.stack) == 0 {
		return false
	}
	saved := h.stack[len(h.stack)-1]
	h.stack = h.stack[:len(h.stack)-1]
	h.list = nil
	h.difficult = nil
	for _, item := range saved {
		if fresh := item.refresh(); fresh != nil {
			h.addLocked(fresh)
		}
	}
	h.changed = true
	return true
}

// FinalizeChanges drops items that are no longer valid and, for a
// selection highlighter, notifies the listeners once if anything changed
// since the last call.
func (h *Highlighter) FinalizeChanges() {
	h.mu.Lock()
	kept := h.list[:0]
	for _, item := range h.list {
		if item.IsValid() {
			kept = append(kept, item)
			continue
		}
		h.log.Debug("highlight: dropped stale item", "item", item.Info())
		h.changed = true
	}
	h.list = kept
	diff := h.difficult[:0]
	for _, item := range h.difficult {
		if item.IsValid() {
			diff = append(diff, item)
		}
	}
	h.difficult = diff
	changed := h.changed
	h.changed = false
	listeners := make([]Listener, len(h.listeners))
	copy(listeners, h.listeners)
	h.mu.Unlock()

	if !changed || h.kind != KindSelection || len(listeners) == 0 {
		return
	}
	h.dispatch(func() {
		for _, l := range listeners {
			l.HighlightChanged(h)
		}
	})
}

// Highlights returns the items in insertion order.
func (h *Highlighter) Highlights() []Highlight {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Highlight, len(h.list))
	copy(out, h.list)
	return out
}

// Difficult returns the items that need the slow drawing path.
func (h *Highlighter) Difficult() []Highlight {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Highlight, len(h.difficult))
	copy(out, h.difficult)
	return out
}

// Count returns the number of items.
func (h *Highlighter) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.list)
}

// Last returns the most recent item, or the last one before a clear.
func (h *Highlighter) Last() Highlight {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastLocked()
}

func (h *Highlighter) lastLocked() Highlight {
	if n := len(h.list); n > 0 {
		return h.list[n-1]
	}
	return h.lastBeforeClear
}

// Offset returns the screen offset of the highlighting.
func (h *Highlighter) Offset() geom.Point {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.offset
}

// SetOffset moves the highlighting on screen.
func (h *Highlighter) SetOffset(p geom.Point) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.offset = p
	h.changed = true
}

// Cell returns the cell of the first item, or nil.
func (h *Highlighter) Cell() *circuit.Cell {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, item := range h.list {
		if c := item.Cell(); c != nil {
			return c
		}
	}
	return nil
}

// SelectObjects replaces the selection with objs and finalizes.
func (h *Highlighter) SelectObjects(objs ...circuit.Object) {
	h.mu.Lock()
	h.clearLocked()
	for _, obj := range objs {
		h.addLocked(NewObject(obj))
	}
	h.mu.Unlock()
	h.FinalizeChanges()
}

// HighlightedNodes returns the distinct nodes of all items.
func (h *Highlighter) HighlightedNodes() []*circuit.NodeInst {
	seen := make(map[*circuit.NodeInst]bool)
	var out []*circuit.NodeInst
	for _, item := range h.Highlights() {
		for _, n := range item.Nodes() {
			if !seen[n] {
				seen[n] = true
				out = append(out, n)
			}
		}
	}
	return out
}

// HighlightedArcs returns the distinct arcs of all items.
func (h *Highlighter) HighlightedArcs() []*circuit.ArcInst {
	seen := make(map[*circuit.ArcInst]bool)
	var out []*circuit.ArcInst
	for _, item := range h.Highlights() {
		for _, a := range item.Arcs() {
			if !seen[a] {
				seen[a] = true
				out = append(out, a)
			}
		}
	}
	return out
}

// HighlightedEObjs returns the selected nodes and arcs in selection order.
// Ports count as their nodes.
func (h *Highlighter) HighlightedEObjs(wantNodes, wantArcs bool) []circuit.Geometric {
	seen := make(map[circuit.Geometric]bool)
	var out []circuit.Geometric
	add := func(g circuit.Geometric) {
		if !seen[g] {
			seen[g] = true
			out = append(out, g)
		}
	}
	for _, item := range h.Highlights() {
		o, ok := item.(*Object)
		if !ok {
			continue
		}
		if n := o.Node(); n != nil && wantNodes {
			add(n)
		}
		if a, ok := o.obj.(*circuit.ArcInst); ok && wantArcs {
			add(a)
		}
	}
	return out
}

// HighlightedNetworks returns the distinct networks of all items, each
// resolved in its own cell's netlist.
func (h *Highlighter) HighlightedNetworks() []*circuit.Network {
	netlists := make(map[*circuit.Cell]*circuit.Netlist)
	seen := make(map[*circuit.Network]bool)
	var out []*circuit.Network
	for _, item := range h.Highlights() {
		c := item.Cell()
		if c == nil || !item.IsValid() {
			continue
		}
		nl, ok := netlists[c]
		if !ok {
			nl = c.Netlist()
			netlists[c] = nl
		}
		for _, net := range item.Networks(nl) {
			if !seen[net] {
				seen[net] = true
				out = append(out, net)
			}
		}
	}
	return out
}

// HighlightedText returns the text items. With uniqueOnly, text whose
// object (or that object's node) is also selected on its own is left out.
func (h *Highlighter) HighlightedText(uniqueOnly bool) []*Text {
	items := h.Highlights()
	selected := make(map[circuit.Object]bool)
	if uniqueOnly {
		for _, item := range items {
			if o, ok := item.(*Object); ok {
				selected[coercePort(o.obj)] = true
			}
		}
	}
	var out []*Text
	for _, item := range items {
		t, ok := item.(*Text)
		if !ok {
			continue
		}
		if uniqueOnly && textCovered(t, selected) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// textCovered reports whether the object t labels is selected. Ports count
// as their node on both sides, so an export's name is covered by its node.
func textCovered(t *Text, selected map[circuit.Object]bool) bool {
	if selected[coercePort(t.obj)] {
		return true
	}
	if e, ok := t.obj.(*circuit.Export); ok {
		return selected[coercePort(e.Original())]
	}
	return false
}

// BoundingArea returns the union of every item's bounds.
func (h *Highlighter) BoundingArea() (geom.Rect, bool) {
	r := geom.EmptyRect()
	found := false
	for _, item := range h.Highlights() {
		if b, ok := item.Bounds(); ok {
			r.ExpandRect(b)
			found = true
		}
	}
	return r, found
}

// OneNode returns the single selected node.
func (h *Highlighter) OneNode() (*circuit.NodeInst, bool) {
	nodes := h.HighlightedNodes()
	if len(nodes) != 1 {
		return nil, false
	}
	return nodes[0], true
}

// OneArc returns the single selected arc.
func (h *Highlighter) OneArc() (*circuit.ArcInst, bool) {
	arcs := h.HighlightedArcs()
	if len(arcs) != 1 {
		return nil, false
	}
	return arcs[0], true
}

// PointRef is a selected outline vertex.
type PointRef struct {
	Node  *circuit.NodeInst
	Index int
	At    geom.Point
}

// HighlightedPoints returns the selected outline vertices.
func (h *Highlighter) HighlightedPoints() []PointRef {
	var out []PointRef
	for _, item := range h.Highlights() {
		o, ok := item.(*Object)
		if !ok || o.point < 0 {
			continue
		}
		n, ok := o.obj.(*circuit.NodeInst)
		if !ok {
			continue
		}
		if at, ok := outlinePoint(n, o.point); ok {
			out = append(out, PointRef{Node: n, Index: o.point, At: at})
		}
	}
	return out
}
