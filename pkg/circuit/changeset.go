package circuit

import (
	"fmt"
	"strings"

	"github.com/Ignat99/electric-sub000/pkg/geom"
)

// NodeSpec describes a node to create.
type NodeSpec struct {
	Proto   NodeProto
	Center  geom.Point
	Width   float64 // zero means the prototype default
	Height  float64
	Angle   int
	MirrorX bool
	MirrorY bool
	// Name is generated when empty; a given name is drawn.
	Name       string
	Expanded   bool
	HardSelect bool
	Outline    []geom.Point
	Vars       []Variable
}

// End names one side of a new arc or the port of a new export: an existing
// node or a node created by the same change set.
type End struct {
	Node *NodeInst
	New  *NodeSpec
	// Port is the port name; empty selects the first port.
	Port string
	// At overrides the anchor, which defaults to the port center.
	At *geom.Point
}

// ArcSpec describes an arc to create.
type ArcSpec struct {
	Proto *ArcProto
	Head  End
	Tail  End
	Width float64
	// Name is generated when empty; a given name is drawn.
	Name string
}

// ExportSpec describes an export to create.
type ExportSpec struct {
	Name           string
	Port           End
	Characteristic Characteristic
}

// Move relocates a node: first the rotation about Pivot, then Delta.
type Move struct {
	Node     *NodeInst
	Delta    geom.Point
	Rotation geom.Orientation
	Pivot    geom.Point
}

// Resize sets a primitive's size, keeping its center.
type Resize struct {
	Node   *NodeInst
	Width  float64
	Height float64
}

// TextRotation turns a piece of drawn text, or flips its offset from the
// anchor across one axis.
type TextRotation struct {
	Object Object
	Key    string
	Angle  int
	FlipX  bool
	FlipY  bool
}

// Expansion sets whether a cell instance shows its contents.
type Expansion struct {
	Node     *NodeInst
	Expanded bool
}

// VarChange sets (or removes) a variable on a cell, node or arc.
type VarChange struct {
	Object Object
	Var    Variable
	Remove bool
}

// ChangeSet is a batch of edits to one cell. Nothing changes until an
// Editor applies it.
type ChangeSet struct {
	Cell          *Cell
	Deletes       []Geometric
	DeleteExports []*Export
	Moves         []Move
	Resizes       []Resize
	TextRotations []TextRotation
	Expansions    []Expansion
	VarChanges    []VarChange
	NewNodes      []*NodeSpec
	NewArcs       []*ArcSpec
	NewExports    []*ExportSpec
}

// NewChangeSet starts an empty batch for cell.
func NewChangeSet(cell *Cell) *ChangeSet {
	return &ChangeSet{Cell: cell}
}

// IsEmpty reports whether the batch does nothing.
func (cs *ChangeSet) IsEmpty() bool {
	return len(cs.Deletes) == 0 && len(cs.DeleteExports) == 0 &&
		len(cs.Moves) == 0 && len(cs.Resizes) == 0 &&
		len(cs.TextRotations) == 0 && len(cs.Expansions) == 0 &&
		len(cs.VarChanges) == 0 && len(cs.NewNodes) == 0 &&
		len(cs.NewArcs) == 0 && len(cs.NewExports) == 0
}

// Delete queues nodes or arcs for removal.
func (cs *ChangeSet) Delete(objs ...Geometric) {
	for _, g := range objs {
		if !cs.IsDeleted(g) {
			cs.Deletes = append(cs.Deletes, g)
		}
	}
}

// IsDeleted reports whether g is already queued for removal.
func (cs *ChangeSet) IsDeleted(g Geometric) bool {
	for _, d := range cs.Deletes {
		if d == g {
			return true
		}
	}
	return false
}

// MoveNode queues a translation.
func (cs *ChangeSet) MoveNode(n *NodeInst, dx, dy float64) {
	cs.Moves = append(cs.Moves, Move{Node: n, Delta: geom.Pt(dx, dy)})
}

// RotateNode queues a rotation about pivot.
func (cs *ChangeSet) RotateNode(n *NodeInst, o geom.Orientation, pivot geom.Point) {
	cs.Moves = append(cs.Moves, Move{Node: n, Rotation: o, Pivot: pivot})
}

// ResizeNode queues a new size.
func (cs *ChangeSet) ResizeNode(n *NodeInst, width, height float64) {
	cs.Resizes = append(cs.Resizes, Resize{Node: n, Width: width, Height: height})
}

// AddNode queues a node and returns the spec to reference it by.
func (cs *ChangeSet) AddNode(spec NodeSpec) *NodeSpec {
	s := spec
	cs.NewNodes = append(cs.NewNodes, &s)
	return &s
}

// AddArc queues an arc of the prototype's default width.
func (cs *ChangeSet) AddArc(proto *ArcProto, head, tail End) *ArcSpec {
	a := &ArcSpec{Proto: proto, Head: head, Tail: tail, Width: proto.DefaultWidth}
	cs.NewArcs = append(cs.NewArcs, a)
	return a
}

// AddExport queues an export.
func (cs *ChangeSet) AddExport(name string, port End, ch Characteristic) *ExportSpec {
	e := &ExportSpec{Name: name, Port: port, Characteristic: ch}
	cs.NewExports = append(cs.NewExports, e)
	return e
}

// SetVar queues a variable assignment.
func (cs *ChangeSet) SetVar(obj Object, v Variable) {
	cs.VarChanges = append(cs.VarChanges, VarChange{Object: obj, Var: v})
}

// Summary counts the queued edits, e.g. "2 deleted, 1 moved".
func (cs *ChangeSet) Summary() string {
	var parts []string
	add := func(n int, what string) {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, what))
		}
	}
	add(len(cs.Deletes)+len(cs.DeleteExports), "deleted")
	add(len(cs.Moves), "moved")
	add(len(cs.Resizes), "resized")
	add(len(cs.TextRotations), "text rotated")
	add(len(cs.Expansions), "expansion changed")
	add(len(cs.VarChanges), "variable changed")
	add(len(cs.NewNodes), "nodes created")
	add(len(cs.NewArcs), "arcs created")
	add(len(cs.NewExports), "exports created")
	if len(parts) == 0 {
		return "no changes"
	}
	return strings.Join(parts, ", ")
}

// Applied maps the specs of a change set to the objects they created.
type Applied struct {
	Nodes   map[*NodeSpec]*NodeInst
	Arcs    map[*ArcSpec]*ArcInst
	Exports map[*ExportSpec]*Export
}

// Editor is the only way to mutate the database.
type Editor interface {
	NewCell(lib *Library, name string, view View) (*Cell, error)
	Apply(cs *ChangeSet) (*Applied, error)
	KillCell(c *Cell) error
}
