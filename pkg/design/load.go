// Package design loads circuit databases from a small s-expression
// description, used for fixtures and by the command line tools.
//
//	(library work
//	  (cell inv sch
//	    (node n1 schematic:nmos (at 0 0) (angle 900))
//	    (node p1 schematic:Wire_Pin (at -10 0))
//	    (arc w1 schematic:wire (head p1) (tail n1 g))
//	    (export a p1 input)))
//
// Node prototypes are primitives named "tech:node" or cells named
// "[lib:]name{view}" defined earlier in the description.
package design

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/Ignat99/electric-sub000/pkg/circuit"
	"github.com/Ignat99/electric-sub000/pkg/geom"
	"github.com/Ignat99/electric-sub000/pkg/tech"
)

// ErrNoSuchCell is returned by Design.Cell for an unknown reference.
var ErrNoSuchCell = errors.New("design: no such cell")

// Design is a loaded database with the technologies it was built from.
type Design struct {
	Tech *tech.Set
	DB   *circuit.Database
}

// Load reads a description from r into a new database.
func Load(r io.Reader, ts *tech.Set) (*Design, error) {
	exprs, err := ParseExprs(r)
	if err != nil {
		return nil, errors.Wrap(err, "design: parse")
	}
	if ts == nil {
		ts = tech.New()
	}
	d := &Design{Tech: ts, DB: ts.NewDatabase()}
	for _, e := range exprs {
		if e.Keyword() != "library" {
			return nil, errors.Errorf("design: line %d: expected (library ...), got %s", e.Line, e.Format())
		}
		if err := d.library(e); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// LoadString reads a description held in a string.
func LoadString(s string, ts *tech.Set) (*Design, error) {
	return Load(strings.NewReader(s), ts)
}

// LoadFile reads a description file.
func LoadFile(path string, ts *tech.Set) (*Design, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "design: open")
	}
	defer f.Close()
	d, err := Load(f, ts)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return d, nil
}

// Cell finds a cell by "[lib:]name[{view}]". Without a view the first cell
// of that name wins.
func (d *Design) Cell(ref string) (*circuit.Cell, error) {
	libName, rest := "", ref
	if l, r, ok := strings.Cut(ref, ":"); ok {
		libName, rest = l, r
	}
	name, view, hasView, err := splitCellName(rest)
	if err != nil {
		return nil, err
	}
	for _, lib := range d.DB.Libraries() {
		if libName != "" && lib.Name() != libName {
			continue
		}
		for _, c := range lib.Cells() {
			if c.Name() == name && (!hasView || c.View() == view) {
				return c, nil
			}
		}
	}
	return nil, errors.Wrap(ErrNoSuchCell, ref)
}

func splitCellName(s string) (string, circuit.View, bool, error) {
	open := strings.IndexByte(s, '{')
	if open < 0 {
		return s, circuit.ViewLayout, false, nil
	}
	if !strings.HasSuffix(s, "}") {
		return "", 0, false, errors.Errorf("design: bad cell name %q", s)
	}
	view, ok := circuit.ParseView(s[open+1 : len(s)-1])
	if !ok {
		return "", 0, false, errors.Errorf("design: unknown view in %q", s)
	}
	return s[:open], view, true, nil
}

func (d *Design) library(e *Expr) error {
	name, err := e.Name(0)
	if err != nil {
		return errors.Wrap(err, "design")
	}
	lib := d.DB.NewLibrary(name)
	for _, c := range e.Args()[1:] {
		if c.Keyword() != "cell" {
			return errors.Errorf("design: line %d: library %s holds only cells", c.Line, name)
		}
		if err := d.cell(lib, c); err != nil {
			return errors.Wrapf(err, "library %s", name)
		}
	}
	return nil
}

type cellBuilder struct {
	d     *Design
	lib   *circuit.Library
	cs    *circuit.ChangeSet
	nodes map[string]*circuit.NodeSpec
}

func (d *Design) cell(lib *circuit.Library, e *Expr) error {
	name, err := e.Name(0)
	if err != nil {
		return err
	}
	viewName, err := e.Name(1)
	if err != nil {
		return err
	}
	view, ok := circuit.ParseView(viewName)
	if !ok {
		return errors.Errorf("line %d: unknown view %q", e.Line, viewName)
	}
	c, err := d.DB.NewCell(lib, name, view)
	if err != nil {
		return errors.Wrapf(err, "line %d", e.Line)
	}
	var items []*Expr
	if args := e.Args(); len(args) > 2 {
		items = args[2:]
	}
	for _, item := range items {
		switch item.Keyword() {
		case "node", "arc", "export", "var":
		default:
			return errors.Errorf("line %d: cell %s: unknown item %s", item.Line, c.Describe(), item.Format())
		}
	}
	b := &cellBuilder{d: d, lib: lib, cs: circuit.NewChangeSet(c), nodes: make(map[string]*circuit.NodeSpec)}
	// Nodes first so arcs and exports may name nodes listed after them.
	for _, kw := range []string{"node", "arc", "export", "var"} {
		for _, item := range e.FindAll(kw) {
			if err := b.item(c, item); err != nil {
				return errors.Wrapf(err, "cell %s", c.Describe())
			}
		}
	}
	if _, err := d.DB.Apply(b.cs); err != nil {
		return errors.Wrapf(err, "cell %s", c.Describe())
	}
	return nil
}

func (b *cellBuilder) item(c *circuit.Cell, e *Expr) error {
	switch e.Keyword() {
	case "node":
		return b.node(e)
	case "arc":
		return b.arc(e)
	case "export":
		return b.export(e)
	default:
		v, err := variable(e)
		if err != nil {
			return err
		}
		b.cs.SetVar(c, v)
		return nil
	}
}

func (b *cellBuilder) node(e *Expr) error {
	name, err := e.Name(0)
	if err != nil {
		return err
	}
	if _, dup := b.nodes[name]; dup {
		return errors.Errorf("line %d: node %s defined twice", e.Line, name)
	}
	protoName, err := e.Name(1)
	if err != nil {
		return err
	}
	proto, err := b.proto(protoName)
	if err != nil {
		return errors.Wrapf(err, "line %d", e.Line)
	}
	spec := circuit.NodeSpec{
		Proto:      proto,
		Name:       name,
		Expanded:   e.Has("expanded"),
		HardSelect: e.Has("hard"),
	}
	if at := e.Find("at"); at != nil {
		if spec.Center, err = point(at); err != nil {
			return err
		}
	}
	if size := e.Find("size"); size != nil {
		wh, err := size.Floats()
		if err != nil {
			return err
		}
		if len(wh) != 2 {
			return errors.Errorf("line %d: (size W H)", size.Line)
		}
		spec.Width, spec.Height = wh[0], wh[1]
	}
	if angle := e.Find("angle"); angle != nil {
		a, err := angle.Floats()
		if err != nil || len(a) != 1 {
			return errors.Errorf("line %d: (angle TENTHS)", angle.Line)
		}
		spec.Angle = int(a[0])
	}
	if m := e.Find("mirror"); m != nil {
		spec.MirrorX = m.Has("x")
		spec.MirrorY = m.Has("y")
	}
	if o := e.Find("outline"); o != nil {
		if spec.Outline, err = outline(o); err != nil {
			return err
		}
	}
	for _, v := range e.FindAll("var") {
		nv, err := variable(v)
		if err != nil {
			return err
		}
		spec.Vars = append(spec.Vars, nv)
	}
	b.nodes[name] = b.cs.AddNode(spec)
	return nil
}

func (b *cellBuilder) proto(name string) (circuit.NodeProto, error) {
	if !strings.Contains(name, "{") {
		if pn := b.d.Tech.FindNode(name); pn != nil {
			return pn, nil
		}
		return nil, errors.Errorf("unknown primitive %q", name)
	}
	lib := b.lib
	if l, rest, ok := strings.Cut(name, ":"); ok {
		lib, name = nil, rest
		for _, other := range b.d.DB.Libraries() {
			if other.Name() == l {
				lib = other
			}
		}
		if lib == nil {
			return nil, errors.Errorf("unknown library %q", l)
		}
	}
	cellName, view, _, err := splitCellName(name)
	if err != nil {
		return nil, err
	}
	if c := lib.FindCell(cellName, view); c != nil {
		return c, nil
	}
	return nil, errors.Wrap(ErrNoSuchCell, name)
}

func (b *cellBuilder) arc(e *Expr) error {
	name, err := e.Name(0)
	if err != nil {
		return err
	}
	protoName, err := e.Name(1)
	if err != nil {
		return err
	}
	proto := b.d.Tech.FindArc(protoName)
	if proto == nil {
		return errors.Errorf("line %d: unknown arc %q", e.Line, protoName)
	}
	head, err := b.end(e, "head")
	if err != nil {
		return err
	}
	tail, err := b.end(e, "tail")
	if err != nil {
		return err
	}
	spec := b.cs.AddArc(proto, head, tail)
	spec.Name = name
	if w := e.Find("width"); w != nil {
		v, err := w.Floats()
		if err != nil || len(v) != 1 {
			return errors.Errorf("line %d: (width W)", w.Line)
		}
		spec.Width = v[0]
	}
	return nil
}

// end reads (head NODE [PORT] [(at X Y)]).
func (b *cellBuilder) end(arc *Expr, key string) (circuit.End, error) {
	e := arc.Find(key)
	if e == nil {
		return circuit.End{}, errors.Errorf("line %d: arc needs (%s NODE [PORT])", arc.Line, key)
	}
	nodeName, err := e.Name(0)
	if err != nil {
		return circuit.End{}, err
	}
	spec, ok := b.nodes[nodeName]
	if !ok {
		return circuit.End{}, errors.Errorf("line %d: unknown node %q", e.Line, nodeName)
	}
	end := circuit.End{New: spec}
	if port, err := e.Name(1); err == nil {
		end.Port = port
	}
	if at := e.Find("at"); at != nil {
		p, err := point(at)
		if err != nil {
			return circuit.End{}, err
		}
		end.At = &p
	}
	return end, nil
}

// export reads (export NAME NODE [PORT] [DIRECTION]); a port and a
// direction are told apart by the direction keywords.
func (b *cellBuilder) export(e *Expr) error {
	name, err := e.Name(0)
	if err != nil {
		return err
	}
	nodeName, err := e.Name(1)
	if err != nil {
		return err
	}
	spec, ok := b.nodes[nodeName]
	if !ok {
		return errors.Errorf("line %d: unknown node %q", e.Line, nodeName)
	}
	end := circuit.End{New: spec}
	ch := circuit.CharUnknown
	for i := 2; ; i++ {
		word, err := e.Name(i)
		if err != nil {
			break
		}
		if c := circuit.ParseCharacteristic(word); c != circuit.CharUnknown {
			ch = c
			continue
		}
		end.Port = word
	}
	b.cs.AddExport(name, end, ch)
	return nil
}

// variable reads (var KEY VALUE [display]).
func variable(e *Expr) (circuit.Variable, error) {
	key, err := e.Name(0)
	if err != nil {
		return circuit.Variable{}, err
	}
	value, err := e.Name(1)
	if err != nil {
		return circuit.Variable{}, err
	}
	return circuit.Variable{Key: key, Value: value, Display: e.Has("display")}, nil
}

func point(e *Expr) (geom.Point, error) {
	xy, err := e.Floats()
	if err != nil {
		return geom.Point{}, err
	}
	if len(xy) != 2 {
		return geom.Point{}, errors.Errorf("line %d: (%s X Y)", e.Line, e.Keyword())
	}
	return geom.Pt(xy[0], xy[1]), nil
}

// outline reads (outline X Y X Y ... break X Y ...).
func outline(e *Expr) ([]geom.Point, error) {
	var pts []geom.Point
	var nums []float64
	flush := func() error {
		if len(nums)%2 != 0 {
			return errors.Errorf("line %d: outline coordinates come in pairs", e.Line)
		}
		for i := 0; i < len(nums); i += 2 {
			pts = append(pts, geom.Pt(nums[i], nums[i+1]))
		}
		nums = nums[:0]
		return nil
	}
	for _, a := range e.Args() {
		if a.IsList {
			return nil, errors.Errorf("line %d: outline takes numbers and break", e.Line)
		}
		if a.Atom == "break" {
			if err := flush(); err != nil {
				return nil, err
			}
			pts = append(pts, circuit.OutlineBreak)
			continue
		}
		f, err := parseFloat(a)
		if err != nil {
			return nil, err
		}
		nums = append(nums, f)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return pts, nil
}

func parseFloat(a *Expr) (float64, error) {
	f, err := strconv.ParseFloat(a.Atom, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "line %d", a.Line)
	}
	return f, nil
}
