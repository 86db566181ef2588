// Package verilog compiles a structural Verilog subset into a module model,
// builds schematic or layout cells from it, and writes it out as flat
// netlists.
package verilog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/Ignat99/electric-sub000/pkg/circuit"
	"github.com/Ignat99/electric-sub000/pkg/config"
)

var (
	ErrCompileErrors = errors.New("verilog: source has errors")
	ErrNoModules     = errors.New("verilog: no modules")
)

// Option configures a Compiler.
type Option func(*Compiler)

// WithSettings replaces the default compiler settings.
func WithSettings(s config.Compiler) Option {
	return func(c *Compiler) { c.settings = s }
}

// WithLogger sends diagnostics and progress to l.
func WithLogger(l *slog.Logger) Option {
	return func(c *Compiler) {
		if l != nil {
			c.log = l
		}
	}
}

// Compiler holds the modules read from one or more sources. It is not safe
// for concurrent use.
type Compiler struct {
	settings config.Compiler
	log      *slog.Logger
	modules  map[string]*Module
	order    []*Module
	diag     diagnostics

	processed bool
}

// New returns an empty compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		settings: config.Default().Compiler,
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		modules:  make(map[string]*Module),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.settings.MaxErrors < 1 {
		c.settings.MaxErrors = 30
	}
	c.diag.max = c.settings.MaxErrors
	return c
}

// ParseString compiles Verilog source text.
func (c *Compiler) ParseString(src string) {
	c.ParseLines(strings.Split(src, "\n"))
}

// Parse compiles Verilog read from r.
func (c *Compiler) Parse(r io.Reader) error {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("verilog: read: %w", err)
	}
	c.ParseLines(lines)
	return nil
}

// ParseFile compiles the Verilog file at path.
func (c *Compiler) ParseFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("verilog: %w", err)
	}
	defer f.Close()
	return c.Parse(f)
}

// ParseLines compiles source lines. Problems are recorded as diagnostics;
// parsing always runs to the end.
func (c *Compiler) ParseLines(lines []string) {
	base := len(c.diag.lines)
	c.diag.lines = append(c.diag.lines, lines...)
	toks := Lex(lines)
	for i := range toks {
		toks[i].Line += base
	}
	before := len(c.diag.list)
	p := &parser{c: c, toks: toks}
	p.run()
	c.repair()
	c.processed = false
	for _, d := range c.diag.list[before:] {
		c.logDiagnostic(d)
	}
	c.log.Info("verilog: parsed", "lines", len(lines), "modules", len(c.order), "errors", c.diag.errors)
}

func (c *Compiler) logDiagnostic(d Diagnostic) {
	if d.Severity == SevError {
		c.log.Error("verilog: "+d.Message, "line", d.Line)
	} else {
		c.log.Warn("verilog: "+d.Message, "line", d.Line)
	}
}

func (c *Compiler) addModule(name string) *Module {
	m := newModule(name)
	c.modules[name] = m
	c.order = append(c.order, m)
	return m
}

// repair binds positional connections to port names and gives every
// referenced but undefined module the ports its instances use. Bindings
// guessed before a module was defined are redone against its header.
func (c *Compiler) repair() {
	for _, m := range c.order {
		if !m.Defined {
			continue
		}
		for _, inst := range m.Instances {
			ref := inst.Module
			if ref == nil {
				continue
			}
			at := Token{Line: inst.Line}
			var kept []*Conn
			for _, conn := range inst.Conns {
				if conn.guessed && ref.Defined {
					conn.Port, conn.guessed = "", false
				}
				if conn.Position >= 0 && conn.Port == "" {
					switch {
					case !ref.Defined:
						for k := 1; k <= conn.Position+1; k++ {
							ref.addPort(fmt.Sprintf("p%d", k))
						}
						conn.Port = fmt.Sprintf("p%d", conn.Position+1)
						conn.guessed = true
					case conn.Position < len(ref.Ports):
						conn.Port = ref.Ports[conn.Position].Name
					default:
						c.diag.errorf(at, "instance %s has more connections than module %s has ports", inst.Name, ref.Name)
						continue
					}
				}
				port := ref.Port(conn.Port)
				if port == nil {
					if ref.Defined {
						c.diag.errorf(at, "module %s has no port %s", ref.Name, conn.Port)
						continue
					}
					port = ref.addPort(conn.Port)
				}
				if !ref.Defined && port.Range == nil && len(conn.Signals) > 1 {
					port.Range = &Range{First: len(conn.Signals) - 1, Last: 0}
				}
				kept = append(kept, conn)
			}
			inst.Conns = kept
		}
	}
}

// HadErrors reports whether any error was recorded. The flag never clears.
func (c *Compiler) HadErrors() bool { return c.diag.hadErrors }

// Diagnostics returns the recorded warnings and errors in order.
func (c *Compiler) Diagnostics() []Diagnostic {
	return append([]Diagnostic(nil), c.diag.list...)
}

// Modules returns every module, defined or only referenced, in the order
// first seen.
func (c *Compiler) Modules() []*Module {
	return append([]*Module(nil), c.order...)
}

// Module returns the module called name, or nil.
func (c *Compiler) Module(name string) *Module { return c.modules[name] }

// Defined returns the modules that have a body.
func (c *Compiler) Defined() []*Module {
	var out []*Module
	for _, m := range c.order {
		if m.Defined {
			out = append(out, m)
		}
	}
	return out
}

// ProcessModules builds each defined module's netlist: aliased names leave
// the wire list and every connection is filed under its resolved signal.
// When library search is enabled, undefined modules pick up a same-named
// cell from libs, layout view first.
func (c *Compiler) ProcessModules(libs ...*circuit.Library) {
	c.processed = true
	for _, m := range c.order {
		if !m.Defined {
			if c.settings.SearchLibraries && m.Cell == nil {
				m.Cell = findStandIn(m.Name, libs)
				if m.Cell != nil {
					c.log.Debug("verilog: stand-in", "module", m.Name, "cell", m.Cell.Describe())
				}
			}
			continue
		}
		wires := m.Wires[:0:0]
		for _, w := range m.Wires {
			if _, aliased := m.Aliases[w]; !aliased {
				wires = append(wires, w)
			}
		}
		m.Wires = wires

		m.Nets = make(map[string][]PortRef)
		m.NetNames = nil
		for _, inst := range m.Instances {
			for _, conn := range inst.Conns {
				for i, sig := range conn.Signals {
					if sig == "" {
						continue
					}
					r := m.Resolve(sig)
					if _, seen := m.Nets[r]; !seen {
						m.NetNames = append(m.NetNames, r)
					}
					m.Nets[r] = append(m.Nets[r], PortRef{Inst: inst, Port: conn.Port, Index: i, Bus: conn.Bus()})
				}
			}
		}
	}
}

func findStandIn(name string, libs []*circuit.Library) *circuit.Cell {
	var fallback *circuit.Cell
	for _, lib := range libs {
		if c := lib.FindCell(name, circuit.ViewLayout); c != nil {
			return c
		}
		if fallback == nil {
			for _, v := range []circuit.View{circuit.ViewSchematic, circuit.ViewIcon} {
				if c := lib.FindCell(name, v); c != nil {
					fallback = c
					break
				}
			}
		}
	}
	return fallback
}

// dependencyOrder lists defined modules so that every module comes after
// the modules it instantiates.
func (c *Compiler) dependencyOrder() []*Module {
	var out []*Module
	state := make(map[*Module]int)
	var visit func(m *Module)
	visit = func(m *Module) {
		if state[m] != 0 {
			return
		}
		state[m] = 1
		for _, ref := range m.References() {
			visit(ref)
		}
		state[m] = 2
		out = append(out, m)
	}
	for _, m := range c.order {
		visit(m)
	}
	return out
}
