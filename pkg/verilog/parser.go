package verilog

import (
	"fmt"
	"strconv"
)

var transistorPorts = []string{"s", "d", "g"}

// parser is a recursive-descent reader over one token stream. It reports
// problems into the compiler's diagnostics and recovers at the next
// statement terminator.
type parser struct {
	c    *Compiler
	toks []Token
	pos  int
	mod  *Module
}

func (p *parser) peek() Token { return p.toks[p.pos] }

func (p *parser) peekAt(n int) Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) next() Token {
	t := p.toks[p.pos]
	if t.Kind != TokEOF {
		p.pos++
	}
	return t
}

func (p *parser) accept(sym string) bool {
	if p.peek().isSym(sym) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(sym string) bool {
	if p.accept(sym) {
		return true
	}
	p.c.diag.errorf(p.peek(), "expected %q, found %s", sym, p.peek())
	return false
}

func (p *parser) errorf(t Token, format string, args ...any) {
	p.c.diag.errorf(t, format, args...)
}

// endsBlock reports whether t starts or ends a module, which statement
// recovery must not consume.
func endsBlock(t Token) bool {
	return t.isKw("module") || t.isKw("primitive") || t.isKw("endmodule") || t.isKw("endprimitive")
}

// skipStatement discards tokens through the next semicolon.
func (p *parser) skipStatement() {
	for {
		t := p.peek()
		if t.Kind == TokEOF || endsBlock(t) {
			return
		}
		p.pos++
		if t.isSym(";") {
			return
		}
	}
}

// skipTo discards tokens through sym, stopping early at a semicolon.
func (p *parser) skipTo(sym string) {
	for {
		t := p.peek()
		if t.Kind == TokEOF || t.isSym(";") || endsBlock(t) {
			return
		}
		p.pos++
		if t.isSym(sym) {
			return
		}
	}
}

// skipNested discards tokens up to the keyword closing an already consumed
// open keyword, counting nested opens.
func (p *parser) skipNested(open, close string) {
	depth := 1
	for depth > 0 {
		t := p.next()
		switch {
		case t.Kind == TokEOF:
			return
		case t.isKw(open):
			depth++
		case t.isKw(close):
			depth--
		}
	}
}

func (p *parser) skipParens() {
	depth := 0
	for {
		t := p.next()
		switch {
		case t.Kind == TokEOF:
			return
		case t.isSym("("):
			depth++
		case t.isSym(")"):
			depth--
			if depth <= 0 {
				return
			}
		}
	}
}

// skipBehavior passes over an analog, initial or always block: either a
// begin/end group or a single statement.
func (p *parser) skipBehavior() {
	for {
		t := p.peek()
		switch {
		case t.Kind == TokEOF, endsBlock(t):
			return
		case t.isKw("begin"):
			p.next()
			p.skipNested("begin", "end")
			return
		case t.isSym(";"):
			p.next()
			return
		}
		p.next()
	}
}

func (p *parser) skipDelay() {
	if !p.accept("#") {
		return
	}
	if p.peek().isSym("(") {
		p.skipParens()
		return
	}
	p.next()
}

func (p *parser) run() {
	for {
		t := p.next()
		if t.Kind == TokEOF {
			break
		}
		switch {
		case t.isKw("module"), t.isKw("primitive"):
			if p.mod != nil {
				p.errorf(t, "module %s is not terminated", p.mod.Name)
			}
			p.parseModule(t)
		case t.isKw("endmodule"), t.isKw("endprimitive"):
			if p.mod == nil {
				p.errorf(t, "%s without a module", t.Text)
			}
			p.mod = nil
		case t.isSym(";"):
		case p.mod == nil:
			p.errorf(t, "%s outside of a module", t)
			p.skipStatement()
		case t.isKw("input"):
			p.parsePorts(ModeInput)
		case t.isKw("output"):
			p.parsePorts(ModeOutput)
		case t.isKw("inout"):
			p.parsePorts(ModeInout)
		case t.isKw("wire"), t.isKw("supply0"), t.isKw("supply1"):
			p.parseWires(t)
		case t.isKw("tranif0"), t.isKw("tranif1"):
			p.parseTransistors(t)
		case t.isKw("assign"):
			p.parseAssign(t)
		case t.isKw("logic"), t.isKw("real"), t.isKw("reg"), t.isKw("electrical"), t.isKw("parameter"):
			p.skipStatement()
		case t.isKw("analog"), t.isKw("initial"), t.isKw("always"):
			p.skipBehavior()
		case t.isKw("begin"):
			p.skipNested("begin", "end")
		case t.isKw("table"):
			p.skipNested("table", "endtable")
		case t.isKw("specify"):
			p.skipNested("specify", "endspecify")
		case t.Kind == TokIdent:
			p.parseInstances(t)
		default:
			p.errorf(t, "unexpected %s", t)
			p.skipStatement()
		}
	}
	if p.mod != nil {
		p.errorf(p.toks[len(p.toks)-1], "module %s is not terminated", p.mod.Name)
		p.mod = nil
	}
}

func (p *parser) parseModule(kw Token) {
	name := p.next()
	if name.Kind != TokIdent {
		p.errorf(name, "expected a module name, found %s", name)
		p.skipStatement()
		return
	}
	m := p.c.modules[name.Text]
	switch {
	case m == nil:
		m = p.c.addModule(name.Text)
	case m.Defined:
		p.c.diag.warnf(name, "module %s is defined again", name.Text)
		*m = *newModule(name.Text)
	default:
		// Drop the ports guessed from earlier uses; the header is the truth.
		*m = *newModule(name.Text)
	}
	m.Defined = true
	m.Primitive = kw.isKw("primitive")
	m.Line = name.Line
	p.mod = m

	if p.accept("#") && p.peek().isSym("(") {
		p.skipParens()
	}
	if p.accept("(") {
		mode := ModeUnknown
		var rng *Range
		for !p.accept(")") {
			t := p.peek()
			switch {
			case t.Kind == TokEOF, t.isSym(";"):
				p.errorf(t, "unterminated port list of module %s", m.Name)
				p.accept(";")
				return
			case t.isKw("input"), t.isKw("output"), t.isKw("inout"):
				p.next()
				mode = map[string]Mode{"input": ModeInput, "output": ModeOutput, "inout": ModeInout}[t.Text]
				rng = nil
			case t.isKw("wire"), t.isKw("reg"), t.isKw("logic"):
				p.next()
			case t.isSym("["):
				rng = p.parseRange()
			case t.isSym(","):
				p.next()
			case t.Kind == TokIdent:
				p.next()
				port := m.addPort(t.Text)
				if mode != ModeUnknown {
					port.Mode = mode
					port.Range = rng
				}
			default:
				p.errorf(t, "unexpected %s in port list", t)
				p.next()
			}
		}
	}
	if !p.expect(";") {
		p.skipStatement()
	}
}

// parseRange reads [n] or [n:m].
func (p *parser) parseRange() *Range {
	p.next()
	first, ok := p.number()
	if !ok {
		p.skipTo("]")
		return nil
	}
	last := first
	if p.accept(":") {
		if last, ok = p.number(); !ok {
			p.skipTo("]")
			return nil
		}
	}
	if !p.expect("]") {
		return nil
	}
	return &Range{First: first, Last: last}
}

func (p *parser) number() (int, bool) {
	t := p.peek()
	if t.Kind != TokNumber {
		p.errorf(t, "expected a number, found %s", t)
		return 0, false
	}
	p.next()
	n, err := strconv.Atoi(t.Text)
	if err != nil {
		p.errorf(t, "bad number %s", t.Text)
		return 0, false
	}
	return n, true
}

func (p *parser) parsePorts(mode Mode) {
	for p.peek().isKw("wire") || p.peek().isKw("reg") {
		p.next()
	}
	var rng *Range
	if p.peek().isSym("[") {
		rng = p.parseRange()
	}
	for {
		t := p.next()
		if t.Kind != TokIdent {
			p.errorf(t, "expected a port name, found %s", t)
			p.skipStatement()
			return
		}
		port := p.mod.Port(t.Text)
		if port == nil {
			p.c.diag.warnf(t, "%s is not in the header of module %s", t.Text, p.mod.Name)
			port = p.mod.addPort(t.Text)
		}
		port.Mode = mode
		port.Range = rng
		if !p.accept(",") {
			break
		}
	}
	if !p.expect(";") {
		p.skipStatement()
	}
}

func (p *parser) parseWires(kw Token) {
	var rng *Range
	if p.peek().isSym("[") {
		rng = p.parseRange()
	}
	for {
		t := p.next()
		if t.Kind != TokIdent {
			p.errorf(t, "expected a wire name, found %s", t)
			p.skipStatement()
			return
		}
		bits := expandBus(t.Text, rng)
		switch {
		case kw.isKw("supply0"), kw.isKw("supply1"):
			tie := SignalGround
			if kw.isKw("supply1") {
				tie = SignalPower
			}
			for _, b := range bits {
				if b != tie {
					p.mod.Aliases[b] = tie
				}
			}
		case p.mod.Port(t.Text) == nil:
			for _, b := range bits {
				p.mod.addWire(b)
			}
			if rng != nil {
				p.mod.ranges[t.Text] = rng
			}
		}
		if !p.accept(",") {
			break
		}
	}
	if !p.expect(";") {
		p.skipStatement()
	}
}

// signals reads one signal expression and returns the scalar signal names
// it denotes, most significant first for buses.
func (p *parser) signals() ([]string, bool) {
	t := p.peek()
	switch {
	case t.Kind == TokIdent:
		p.next()
		if p.peek().isSym("[") {
			r := p.parseRange()
			if r == nil {
				return nil, false
			}
			return expandBus(t.Text, r), true
		}
		if r := p.mod.busRange(t.Text); r != nil {
			return expandBus(t.Text, r), true
		}
		return []string{t.Text}, true
	case t.Kind == TokBits:
		p.next()
		out := make([]string, len(t.Text))
		for i := range t.Text {
			out[i] = supplySignal(t.Text[i])
		}
		return out, true
	case t.isSym("{"):
		return p.concat()
	}
	p.errorf(t, "expected a signal, found %s", t)
	return nil, false
}

// concat reads {a, b, ...} or the repeat form {n{...}}.
func (p *parser) concat() ([]string, bool) {
	p.next()
	if p.peek().Kind == TokNumber && p.peekAt(1).isSym("{") {
		n, ok := p.number()
		if !ok {
			return nil, false
		}
		inner, ok := p.concat()
		if !ok {
			return nil, false
		}
		if !p.expect("}") {
			return nil, false
		}
		out := make([]string, 0, n*len(inner))
		for i := 0; i < n; i++ {
			out = append(out, inner...)
		}
		return out, true
	}
	var out []string
	for {
		s, ok := p.signals()
		if !ok {
			p.skipTo("}")
			return nil, false
		}
		out = append(out, s...)
		if !p.accept(",") {
			break
		}
	}
	if !p.expect("}") {
		return nil, false
	}
	return out, true
}

func (p *parser) unnamed(kind string) string {
	for {
		p.mod.unnamed++
		name := fmt.Sprintf("%s_%d", kind, p.mod.unnamed)
		if p.mod.Instance(name) == nil {
			return name
		}
	}
}

// parseInstances reads "mod [#(...)] inst(...) {, inst(...)} ;".
func (p *parser) parseInstances(modTok Token) {
	ref := p.c.modules[modTok.Text]
	if ref == nil {
		ref = p.c.addModule(modTok.Text)
	}
	if ref == p.mod {
		p.errorf(modTok, "module %s instantiates itself", ref.Name)
		p.skipStatement()
		return
	}
	p.skipDelay()
	for {
		inst := p.instanceHead(ref.Name)
		if inst == nil {
			return
		}
		inst.Module = ref
		p.mod.Instances = append(p.mod.Instances, inst)
		if !p.accept(",") {
			break
		}
	}
	if !p.expect(";") {
		p.skipStatement()
	}
}

// instanceHead reads an optional instance name and the connection list.
// It returns nil after recovering from an error.
func (p *parser) instanceHead(kind string) *Instance {
	nameTok := p.peek()
	var name string
	if nameTok.Kind == TokIdent {
		p.next()
		name = nameTok.Text
	} else {
		name = p.unnamed(kind)
	}
	if p.peek().isSym("[") {
		p.c.diag.warnf(p.peek(), "instance array %s is treated as one instance", name)
		p.parseRange()
	}
	if p.mod.Instance(name) != nil {
		p.errorf(nameTok, "instance %s is defined twice", name)
	}
	inst := &Instance{Name: name, Line: nameTok.Line}
	if !p.expect("(") || !p.connections(inst) {
		p.skipStatement()
		return nil
	}
	return inst
}

// connections reads the port list after its opening parenthesis.
func (p *parser) connections(inst *Instance) bool {
	if p.accept(")") {
		return true
	}
	pos := 0
	for {
		t := p.peek()
		switch {
		case t.isSym("."):
			p.next()
			port := p.next()
			if port.Kind != TokIdent {
				p.errorf(port, "expected a port name, found %s", port)
				return false
			}
			if !p.expect("(") {
				return false
			}
			var sigs []string
			if !p.peek().isSym(")") {
				s, ok := p.signals()
				if !ok {
					return false
				}
				sigs = s
			}
			if !p.expect(")") {
				return false
			}
			if inst.Conn(port.Text) != nil {
				p.errorf(port, "port %s of %s is connected twice", port.Text, inst.Name)
				break
			}
			inst.Conns = append(inst.Conns, &Conn{Port: port.Text, Position: -1, Signals: sigs})
		case t.isSym(","), t.isSym(")"):
		default:
			s, ok := p.signals()
			if !ok {
				return false
			}
			inst.Conns = append(inst.Conns, &Conn{Position: pos, Signals: s})
		}
		pos++
		if p.accept(")") {
			return true
		}
		if !p.expect(",") {
			return false
		}
	}
}

func (p *parser) parseTransistors(kw Token) {
	fn := "nmos"
	if kw.isKw("tranif0") {
		fn = "pmos"
	}
	p.skipDelay()
	for {
		inst := p.instanceHead(fn)
		if inst == nil {
			return
		}
		inst.Function = fn
		var kept []*Conn
		for _, c := range inst.Conns {
			switch {
			case c.Position >= len(transistorPorts):
				p.errorf(kw, "transistor %s has more than %d connections", inst.Name, len(transistorPorts))
				continue
			case c.Position >= 0:
				c.Port = transistorPorts[c.Position]
			case c.Port != "s" && c.Port != "d" && c.Port != "g":
				p.errorf(kw, "transistor %s has no port %s", inst.Name, c.Port)
				continue
			}
			kept = append(kept, c)
		}
		inst.Conns = kept
		p.mod.Instances = append(p.mod.Instances, inst)
		if !p.accept(",") {
			break
		}
	}
	if !p.expect(";") {
		p.skipStatement()
	}
}

// parseAssign reads "assign [#d] lhs = [~] rhs ;". A plain right side
// aliases signals; a negation or a parenthesized expression becomes a gate.
func (p *parser) parseAssign(kw Token) {
	p.skipDelay()
	start := p.pos
	lhs, ok := p.signals()
	if !ok {
		p.skipStatement()
		return
	}
	plain := p.toks[start].Kind == TokIdent && !p.toks[start+1].isSym("[") && p.mod.busRange(p.toks[start].Text) == nil
	if !p.expect("=") {
		p.skipStatement()
		return
	}
	neg := p.accept("~")
	rhsTok := p.peek()
	var rhs []string
	op := ""
	gate := neg
	if rhsTok.isSym("(") {
		rhs, op, ok = p.expression()
		gate = true
	} else {
		rhs, ok = p.signals()
	}
	if !ok {
		p.skipStatement()
		return
	}
	if !p.expect(";") {
		p.skipStatement()
	}

	if plain && len(lhs) == 1 && len(rhs) > 1 && rhsTok.Kind == TokBits {
		lhs = expandBus(lhs[0], &Range{First: len(rhs) - 1, Last: 0})
	}
	if gate && op != "" {
		if len(lhs) != 1 {
			p.errorf(kw, "gate expression drives %d signals", len(lhs))
			return
		}
		p.addGate(gateFunction(op, neg), rhs, lhs)
		return
	}
	switch {
	case len(lhs) == len(rhs):
	case len(rhs) > 0 && len(lhs)%len(rhs) == 0:
		rhs = repeat(rhs, len(lhs)/len(rhs))
	default:
		p.errorf(kw, "assign widths differ: %d and %d", len(lhs), len(rhs))
		return
	}
	for i := range lhs {
		if gate {
			p.addGate(gateFunction("", neg), rhs[i:i+1], lhs[i:i+1])
			continue
		}
		p.alias(lhs[i], rhs[i])
	}
}

func repeat(list []string, n int) []string {
	out := make([]string, 0, n*len(list))
	for i := 0; i < n; i++ {
		out = append(out, list...)
	}
	return out
}

// expression reads a parenthesized operand list joined by one operator.
func (p *parser) expression() ([]string, string, bool) {
	p.next()
	var ins []string
	op := ""
	for {
		if p.peek().isSym("(") {
			inner, iop, ok := p.expression()
			if !ok {
				return nil, "", false
			}
			if op == "" {
				op = iop
			}
			ins = append(ins, inner...)
		} else {
			s, ok := p.signals()
			if !ok {
				return nil, "", false
			}
			ins = append(ins, s...)
		}
		t := p.next()
		switch {
		case t.isSym(")"):
			return ins, op, true
		case t.isSym("&"), t.isSym("|"), t.isSym("^"):
			if op != "" && op != t.Text {
				p.errorf(t, "cannot mix %s and %s in one expression", op, t.Text)
				return nil, "", false
			}
			op = t.Text
		default:
			p.errorf(t, "expected an operator, found %s", t)
			return nil, "", false
		}
	}
}

func gateFunction(op string, neg bool) string {
	names := map[string][2]string{
		"&": {"and", "nand"},
		"|": {"or", "nor"},
		"^": {"xor", "xnor"},
		"":  {"buffer", "inverter"},
	}
	if neg {
		return names[op][1]
	}
	return names[op][0]
}

func (p *parser) addGate(fn string, inputs, outputs []string) {
	p.mod.assigned++
	p.mod.Instances = append(p.mod.Instances, &Instance{
		Name:     fmt.Sprintf("assign_%d", p.mod.assigned),
		Function: fn,
		Assign:   true,
		Line:     p.toks[p.pos-1].Line,
		Conns: []*Conn{
			{Port: "a", Position: -1, Signals: inputs},
			{Port: "y", Position: -1, Signals: outputs},
		},
	})
}

// alias records that rhs is known as lhs from now on. Supplies always win
// so that a tied signal keeps its supply name.
func (p *parser) alias(lhs, rhs string) {
	if lhs == "" || rhs == "" {
		return
	}
	m := p.mod
	src, dst := m.Resolve(rhs), m.Resolve(lhs)
	if src == dst {
		return
	}
	if isSupply(src) {
		src, dst = dst, src
	}
	m.Aliases[src] = dst
}
