package verilog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Ignat99/electric-sub000/pkg/circuit"
)

// Mode is the direction of a formal port.
type Mode int

const (
	ModeUnknown Mode = iota
	ModeInput
	ModeOutput
	ModeInout
)

func (m Mode) String() string {
	switch m {
	case ModeInput:
		return "input"
	case ModeOutput:
		return "output"
	case ModeInout:
		return "inout"
	}
	return "unknown"
}

// Characteristic maps the mode onto an export direction.
func (m Mode) Characteristic() circuit.Characteristic {
	switch m {
	case ModeInput:
		return circuit.CharInput
	case ModeOutput:
		return circuit.CharOutput
	case ModeInout:
		return circuit.CharBidir
	}
	return circuit.CharUnknown
}

// Range is an inclusive bit range. First may be larger than Last; bits
// expand in the written direction.
type Range struct {
	First, Last int
}

// Width returns the number of bits.
func (r Range) Width() int {
	if r.First > r.Last {
		return r.First - r.Last + 1
	}
	return r.Last - r.First + 1
}

// Indices lists the bit numbers from First to Last.
func (r Range) Indices() []int {
	out := make([]int, 0, r.Width())
	step := 1
	if r.First > r.Last {
		step = -1
	}
	for i := r.First; ; i += step {
		out = append(out, i)
		if i == r.Last {
			break
		}
	}
	return out
}

func (r Range) String() string { return fmt.Sprintf("[%d:%d]", r.First, r.Last) }

// expandBus returns name[i] for every bit of r, or just name when r is nil.
func expandBus(name string, r *Range) []string {
	if r == nil {
		return []string{name}
	}
	idx := r.Indices()
	out := make([]string, len(idx))
	for i, b := range idx {
		out[i] = bitName(name, b)
	}
	return out
}

func bitName(name string, index int) string {
	return name + "[" + strconv.Itoa(index) + "]"
}

// Port is a formal port of a module.
type Port struct {
	Name  string
	Mode  Mode
	Range *Range
}

// Bits lists the signal names the port carries.
func (p *Port) Bits() []string { return expandBus(p.Name, p.Range) }

// ExportName is the single export name of the port: the plain name, or the
// name with its range for a bus.
func (p *Port) ExportName() string {
	if p.Range == nil {
		return p.Name
	}
	return p.Name + p.Range.String()
}

// Conn binds signals to one port of an instance. Position is the
// zero-based position for positional connections and -1 for named ones.
type Conn struct {
	Port     string
	Position int
	Signals  []string

	// guessed marks a positional connection bound to a p<N> port of a
	// module that had no definition yet.
	guessed bool
}

// Bus reports whether more than one signal is attached.
func (c *Conn) Bus() bool { return len(c.Signals) > 1 }

// Instance is one use of a module, transistor or assign gate inside a
// module.
type Instance struct {
	Name string
	// Module is set for module instances.
	Module *Module
	// Function names the primitive for transistors ("nmos", "pmos") and
	// assign gates ("and", "inverter", ...).
	Function string
	Conns    []*Conn
	Line     int

	// Assign marks a gate synthesized from an assign expression.
	Assign bool
}

// Kind returns the module name or function the instance stands for.
func (i *Instance) Kind() string {
	if i.Module != nil {
		return i.Module.Name
	}
	return i.Function
}

// Conn returns the connection to port, or nil.
func (i *Instance) Conn(port string) *Conn {
	for _, c := range i.Conns {
		if c.Port == port {
			return c
		}
	}
	return nil
}

// PortRef is one connection point of a signal: bit Index of the
// connection to Port on Inst.
type PortRef struct {
	Inst  *Instance
	Port  string
	Index int
	Bus   bool
}

func (r PortRef) String() string {
	if r.Bus {
		return fmt.Sprintf("%s.%s[%d]", r.Inst.Name, r.Port, r.Index)
	}
	return r.Inst.Name + "." + r.Port
}

// Module is a parsed module or primitive, or a module that was only
// referenced.
type Module struct {
	Name      string
	Defined   bool
	Primitive bool
	Line      int

	Ports     []*Port
	Wires     []string
	Instances []*Instance

	// Aliases maps a signal to the signal it was assigned to.
	Aliases map[string]string

	// Nets and NetNames are filled by ProcessModules: every resolved
	// signal with the connection points on it, in first-use order.
	Nets     map[string][]PortRef
	NetNames []string

	// Cell is an existing cell standing in for an undefined module.
	Cell *circuit.Cell

	ranges   map[string]*Range
	unnamed  int
	assigned int
}

func newModule(name string) *Module {
	return &Module{
		Name:    name,
		Aliases: make(map[string]string),
		ranges:  make(map[string]*Range),
	}
}

// Port returns the formal port called name, or nil.
func (m *Module) Port(name string) *Port {
	for _, p := range m.Ports {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// Instance returns the instance called name, or nil.
func (m *Module) Instance(name string) *Instance {
	for _, i := range m.Instances {
		if i.Name == name {
			return i
		}
	}
	return nil
}

// HasWire reports whether name is a declared (and not aliased) wire.
func (m *Module) HasWire(name string) bool {
	for _, w := range m.Wires {
		if w == name {
			return true
		}
	}
	return false
}

// Resolve follows assign aliases from signal to the name it is known by.
func (m *Module) Resolve(signal string) string {
	seen := 0
	for {
		next, ok := m.Aliases[signal]
		if !ok || next == signal || seen > len(m.Aliases) {
			return signal
		}
		signal = next
		seen++
	}
}

// References lists the modules instantiated by m, without repeats, in
// first-use order.
func (m *Module) References() []*Module {
	var out []*Module
	seen := make(map[*Module]bool)
	for _, inst := range m.Instances {
		if inst.Module != nil && !seen[inst.Module] {
			seen[inst.Module] = true
			out = append(out, inst.Module)
		}
	}
	return out
}

func (m *Module) addWire(name string) {
	if !m.HasWire(name) {
		m.Wires = append(m.Wires, name)
	}
}

func (m *Module) addPort(name string) *Port {
	if p := m.Port(name); p != nil {
		return p
	}
	p := &Port{Name: name}
	m.Ports = append(m.Ports, p)
	return p
}

// busRange returns the declared range of a wire or port name.
func (m *Module) busRange(name string) *Range {
	if r := m.ranges[name]; r != nil {
		return r
	}
	if p := m.Port(name); p != nil {
		return p.Range
	}
	return nil
}

func (m *Module) String() string {
	var b strings.Builder
	b.WriteString(m.Name)
	b.WriteByte('(')
	for i, p := range m.Ports {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.ExportName())
	}
	b.WriteByte(')')
	return b.String()
}

// supplySignal maps a literal bit to the signal it ties to. Unknown and
// floating bits are left open.
func supplySignal(bit byte) string {
	switch bit {
	case '1':
		return SignalPower
	case '0':
		return SignalGround
	}
	return ""
}

// Supply signal names.
const (
	SignalPower  = "vdd"
	SignalGround = "gnd"
)

func isSupply(s string) bool { return s == SignalPower || s == SignalGround }
