package verilog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ignat99/electric-sub000/pkg/config"
)

const nandNot = "module M(a,b,y); input a,b; output y; wire w; nand g1(w,a,b); not g2(y,w); endmodule"

func compile(t *testing.T, src string) *Compiler {
	t.Helper()
	c := New()
	c.ParseString(src)
	return c
}

func errorsOf(c *Compiler) []string {
	var out []string
	for _, d := range c.Diagnostics() {
		if d.Severity == SevError {
			out = append(out, d.Message)
		}
	}
	return out
}

func TestParseSimpleModule(t *testing.T) {
	c := compile(t, nandNot)
	require.False(t, c.HadErrors(), errorsOf(c))

	defined := c.Defined()
	require.Len(t, defined, 1)
	m := defined[0]
	assert.Equal(t, "M", m.Name)
	require.Len(t, m.Ports, 3)
	assert.Equal(t, ModeInput, m.Port("a").Mode)
	assert.Equal(t, ModeInput, m.Port("b").Mode)
	assert.Equal(t, ModeOutput, m.Port("y").Mode)
	assert.Equal(t, []string{"w"}, m.Wires)
	require.Len(t, m.Instances, 2)
	assert.Equal(t, "g1", m.Instances[0].Name)
	assert.Equal(t, "nand", m.Instances[0].Kind())
	assert.Equal(t, "g2", m.Instances[1].Name)

	nand := c.Module("nand")
	require.NotNil(t, nand)
	assert.False(t, nand.Defined)
	assert.Equal(t, "nand(p1, p2, p3)", nand.String())
	assert.Equal(t, []string{"w"}, m.Instances[0].Conn("p1").Signals)
}

func TestLateDefinitionRebindsPositionalPorts(t *testing.T) {
	c := New()
	c.ParseString("module top(x, y); input x; output y; sub s1(x, y); endmodule")
	sub := c.Module("sub")
	require.NotNil(t, sub)
	assert.Equal(t, "sub(p1, p2)", sub.String())

	c.ParseString("module sub(a, b); input a; output b; buf g(b, a); endmodule")
	require.False(t, c.HadErrors(), errorsOf(c))
	require.True(t, sub.Defined)
	var names []string
	for _, p := range sub.Ports {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"a", "b"}, names)

	s1 := c.Module("top").Instance("s1")
	require.NotNil(t, s1)
	assert.Equal(t, []string{"x"}, s1.Conn("a").Signals)
	assert.Equal(t, []string{"y"}, s1.Conn("b").Signals)
	assert.Nil(t, s1.Conn("p1"))

	c.ProcessModules()
	assert.Equal(t, []string{"x", "y"}, c.Module("top").NetNames)
}

func TestUnterminatedModuleIsKept(t *testing.T) {
	c := compile(t, "module M(a); input a;")
	assert.True(t, c.HadErrors())
	m := c.Module("M")
	require.NotNil(t, m)
	assert.True(t, m.Defined)
	assert.Equal(t, ModeInput, m.Port("a").Mode)
	assert.Contains(t, errorsOf(c), "module M is not terminated")
}

func TestRepeatGroupOfLiteral(t *testing.T) {
	c := compile(t, `module T(y);
  output y;
  tie3 u(.a({3{1'b1}}), .y(y));
endmodule`)
	require.False(t, c.HadErrors(), errorsOf(c))
	m := c.Module("T")
	conn := m.Instance("u").Conn("a")
	require.NotNil(t, conn)
	assert.Equal(t, []string{"vdd", "vdd", "vdd"}, conn.Signals)

	c.ProcessModules()
	refs := m.Nets["vdd"]
	require.Len(t, refs, 3)
	for i, r := range refs {
		assert.Equal(t, "a", r.Port)
		assert.Equal(t, i, r.Index)
		assert.True(t, r.Bus)
	}
	tie := c.Module("tie3")
	require.NotNil(t, tie.Port("a").Range)
	assert.Equal(t, 3, tie.Port("a").Range.Width())
}

func TestAssignAliasesRightToLeft(t *testing.T) {
	c := compile(t, `module R(a, y);
  input [3:0] a;
  output y;
  wire t;
  assign y = a[0];
  assign y = t;
  inv u1(.a(a[0]), .y(z));
  inv u2(.a(t), .y(a[1]));
endmodule`)
	require.False(t, c.HadErrors(), errorsOf(c))
	m := c.Module("R")
	assert.Equal(t, "y", m.Resolve("a[0]"))
	assert.Equal(t, "y", m.Resolve("t"))

	c.ProcessModules()
	assert.NotContains(t, m.Wires, "a[0]")
	assert.NotContains(t, m.Wires, "t")
	refs := m.Nets["y"]
	require.Len(t, refs, 2)
	assert.Equal(t, "u1", refs[0].Inst.Name)
	assert.Equal(t, "u2", refs[1].Inst.Name)
	assert.NotContains(t, m.Nets, "a[0]")
}

func TestBusDeclarationsAndRanges(t *testing.T) {
	c := compile(t, `module B(d, q);
  input [0:2] d;
  output [1:0] q;
  wire [3:2] w;
  buf2 u(.i({d[0], d[2:1]}), .o(w));
  assign q = w;
endmodule`)
	require.False(t, c.HadErrors(), errorsOf(c))
	m := c.Module("B")
	assert.Equal(t, []string{"d[0]", "d[1]", "d[2]"}, m.Port("d").Bits())
	assert.Equal(t, "q[1:0]", m.Port("q").ExportName())
	assert.Equal(t, []string{"w[3]", "w[2]"}, m.Wires)
	u := m.Instance("u")
	assert.Equal(t, []string{"d[0]", "d[2]", "d[1]"}, u.Conn("i").Signals)
	assert.Equal(t, []string{"w[3]", "w[2]"}, u.Conn("o").Signals)
	assert.Equal(t, "q[1]", m.Resolve("w[3]"))
	assert.Equal(t, "q[0]", m.Resolve("w[2]"))
}

func TestAssignWidthMismatch(t *testing.T) {
	c := compile(t, `module W(a, y);
  input [2:0] a;
  output [1:0] y;
  assign y = a;
endmodule`)
	assert.True(t, c.HadErrors())
	assert.Contains(t, errorsOf(c), "assign widths differ: 2 and 3")
	assert.Empty(t, c.Module("W").Aliases)
}

func TestAssignLiteralExpandsPlainTarget(t *testing.T) {
	c := compile(t, `module L(); wire k; assign k = 2'b10; endmodule`)
	require.False(t, c.HadErrors(), errorsOf(c))
	m := c.Module("L")
	assert.Equal(t, "vdd", m.Resolve("k[1]"))
	assert.Equal(t, "gnd", m.Resolve("k[0]"))
}

func TestAssignExpressionsBecomeGates(t *testing.T) {
	c := compile(t, `module G(a, b, c, y, z, n);
  input a, b, c;
  output y, z, n;
  assign y = (a & b & c);
  assign z = ~(a | b);
  assign n = ~c;
endmodule`)
	require.False(t, c.HadErrors(), errorsOf(c))
	m := c.Module("G")
	require.Len(t, m.Instances, 3)
	assert.Equal(t, "and", m.Instances[0].Function)
	assert.Equal(t, []string{"a", "b", "c"}, m.Instances[0].Conn("a").Signals)
	assert.Equal(t, []string{"y"}, m.Instances[0].Conn("y").Signals)
	assert.True(t, m.Instances[0].Assign)
	assert.Equal(t, "nor", m.Instances[1].Function)
	assert.Equal(t, "inverter", m.Instances[2].Function)
	assert.Empty(t, m.Aliases)
}

func TestTransistorsAndSupplies(t *testing.T) {
	c := compile(t, `module inv(a, y);
  input a; output y;
  supply1 vcc; supply0 vss;
  tranif0 p1(y, vcc, a);
  tranif1 (.g(a), .s(vss), .d(y));
endmodule`)
	require.False(t, c.HadErrors(), errorsOf(c))
	m := c.Module("inv")
	require.Len(t, m.Instances, 2)
	p := m.Instances[0]
	assert.Equal(t, "pmos", p.Function)
	assert.Equal(t, []string{"y"}, p.Conn("s").Signals)
	assert.Equal(t, []string{"vcc"}, p.Conn("d").Signals)
	assert.Equal(t, []string{"a"}, p.Conn("g").Signals)
	n := m.Instances[1]
	assert.Equal(t, "nmos", n.Function)
	assert.Equal(t, "nmos_1", n.Name)

	c.ProcessModules()
	assert.Len(t, m.Nets["vdd"], 1)
	assert.Len(t, m.Nets["gnd"], 1)
	assert.Empty(t, m.Wires)
}

func TestAnsiHeaderAndMultipleInstances(t *testing.T) {
	c := compile(t, `module sub(input [1:0] d, output q); endmodule
module top(input x0, input x1, output z0, output z1);
  sub s0(.d({x1, x0}), .q(z0)), s1({x0, x1}, z1);
  not (z1, z0);
endmodule`)
	require.False(t, c.HadErrors(), errorsOf(c))
	sub := c.Module("sub")
	assert.Equal(t, ModeInput, sub.Port("d").Mode)
	assert.Equal(t, 2, sub.Port("d").Range.Width())
	top := c.Module("top")
	require.Len(t, top.Instances, 3)
	assert.Equal(t, "s1", top.Instances[1].Name)
	assert.Equal(t, "d", top.Instances[1].Conns[0].Port)
	assert.Equal(t, "q", top.Instances[1].Conns[1].Port)
	assert.Equal(t, "not_1", top.Instances[2].Name)
}

func TestSkippedConstructs(t *testing.T) {
	c := compile(t, `module S(a);
  input a;
  reg r;
  parameter W = 4;
  always @(posedge a) begin
    if (a) begin r = 1; end
  end
  initial r = 0;
  specify (a => a) = 1; endspecify
  table 0 : 1; endtable
endmodule`)
	assert.False(t, c.HadErrors(), errorsOf(c))
	assert.Empty(t, c.Module("S").Instances)
}

func TestSemanticErrorsAreReported(t *testing.T) {
	c := compile(t, `module sub(a); input a; endmodule
module top(x);
  input x;
  sub u1(.b(x));
  sub u2(x, x);
  top u3(x);
endmodule`)
	assert.True(t, c.HadErrors())
	errs := errorsOf(c)
	assert.Contains(t, errs, "module top instantiates itself")
	assert.Contains(t, errs, "module sub has no port b")
	assert.Contains(t, errs, "instance u2 has more connections than module sub has ports")
	top := c.Module("top")
	require.Len(t, top.Instances, 2)
	assert.Empty(t, top.Instances[0].Conns)
	assert.Len(t, top.Instances[1].Conns, 1)
}

func TestDiagnosticsCarrySourceAndCaret(t *testing.T) {
	c := compile(t, "module M(a);\n  input 5;\nendmodule")
	require.True(t, c.HadErrors())
	d := c.Diagnostics()[0]
	assert.Equal(t, 2, d.Line)
	assert.Equal(t, 8, d.Col)
	assert.Equal(t, "  input 5;", d.Source)
	assert.True(t, strings.HasSuffix(d.String(), "\n          ^"), d.String())
}

func TestDiagnosticsAreCapped(t *testing.T) {
	src := strings.Repeat("stray;\n", 40)
	c := New(WithSettings(config.Compiler{MaxErrors: 30}))
	c.ParseString(src)
	diags := c.Diagnostics()
	require.Len(t, diags, 31)
	assert.Equal(t, "too many errors", diags[30].Message)
	assert.True(t, c.HadErrors())
}

func TestHadErrorsIsSticky(t *testing.T) {
	c := compile(t, "endmodule")
	require.True(t, c.HadErrors())
	c.ParseString(nandNot)
	assert.True(t, c.HadErrors())
	assert.NotNil(t, c.Module("M"))
}
