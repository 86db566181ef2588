package circuit

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

var (
	ErrCellExists    = errors.New("circuit: cell already exists")
	ErrNotLinked     = errors.New("circuit: object is not in the database")
	ErrWrongCell     = errors.New("circuit: object belongs to another cell")
	ErrNoPort        = errors.New("circuit: no such port")
	ErrCannotConnect = errors.New("circuit: arc cannot connect to port")
	ErrRecursive     = errors.New("circuit: cell instance would be recursive")
)

// View is a cell's view.
type View int

const (
	ViewLayout View = iota
	ViewSchematic
	ViewIcon
)

// Abbrev returns the short name printed in braces after a cell name.
func (v View) Abbrev() string {
	switch v {
	case ViewSchematic:
		return "sch"
	case ViewIcon:
		return "ic"
	default:
		return "lay"
	}
}

// ParseView maps an abbreviation back to a View.
func ParseView(s string) (View, bool) {
	switch s {
	case "lay", "layout", "":
		return ViewLayout, true
	case "sch", "schematic":
		return ViewSchematic, true
	case "ic", "icon":
		return ViewIcon, true
	}
	return ViewLayout, false
}

// Database owns technologies and libraries. It is the in-memory Editor.
type Database struct {
	mu    sync.RWMutex
	techs []*Technology
	libs  []*Library
	gen   atomic.Uint64
}

// generation increments on every change anywhere in the database.
func (db *Database) generation() uint64 { return db.gen.Load() }

// NewDatabase creates a database that knows the given technologies.
func NewDatabase(techs ...*Technology) *Database {
	return &Database{techs: techs}
}

// Technologies returns the known technologies.
func (db *Database) Technologies() []*Technology {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]*Technology, len(db.techs))
	copy(out, db.techs)
	return out
}

// Technology finds a technology by name.
func (db *Database) Technology(name string) *Technology {
	db.mu.RLock()
	defer db.mu.RUnlock()
	for _, t := range db.techs {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// NewLibrary creates (or returns the existing) library called name.
func (db *Database) NewLibrary(name string) *Library {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, l := range db.libs {
		if l.name == name {
			return l
		}
	}
	l := &Library{name: name, db: db}
	db.libs = append(db.libs, l)
	return l
}

// Libraries returns all libraries in creation order.
func (db *Database) Libraries() []*Library {
	db.mu.RLock()
	defer db.mu.RUnlock()
	out := make([]*Library, len(db.libs))
	copy(out, db.libs)
	return out
}

// FindCells returns every cell called name across all libraries, any view.
func (db *Database) FindCells(name string) []*Cell {
	var out []*Cell
	for _, l := range db.Libraries() {
		for _, c := range l.Cells() {
			if c.name == name {
				out = append(out, c)
			}
		}
	}
	return out
}

// Library is a named collection of cells.
type Library struct {
	name  string
	db    *Database
	mu    sync.RWMutex
	cells []*Cell
}

// Name returns the library name.
func (l *Library) Name() string { return l.name }

// Database returns the owning database.
func (l *Library) Database() *Database { return l.db }

// Cells returns the live cells sorted by name then view.
func (l *Library) Cells() []*Cell {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Cell, len(l.cells))
	copy(out, l.cells)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].name != out[j].name {
			return out[i].name < out[j].name
		}
		return out[i].view < out[j].view
	})
	return out
}

// FindCell finds a cell by name and view.
func (l *Library) FindCell(name string, view View) *Cell {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, c := range l.cells {
		if c.name == name && c.view == view {
			return c
		}
	}
	return nil
}

func (l *Library) newCell(name string, view View) (*Cell, error) {
	if l.FindCell(name, view) != nil {
		return nil, fmt.Errorf("%w: %s{%s}", ErrCellExists, name, view.Abbrev())
	}
	c := &Cell{lib: l, name: name, view: view, linked: true}
	l.mu.Lock()
	l.cells = append(l.cells, c)
	l.mu.Unlock()
	return c, nil
}

func (l *Library) removeCell(c *Cell) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, x := range l.cells {
		if x == c {
			l.cells = append(l.cells[:i], l.cells[i+1:]...)
			return
		}
	}
}
