package verilog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSim(t *testing.T) {
	c := compile(t, `module sub(input [1:0] d, output q); endmodule
module top(x, z);
  input [1:0] x; output z;
  sub u(.d(x), .q(z));
endmodule`)
	require.False(t, c.HadErrors(), errorsOf(c))

	var buf bytes.Buffer
	require.NoError(t, c.WriteSim(&buf))
	want := simBanner +
		"model sub(d_1_,d_0_,q)\n" +
		"model top(x_1_,x_0_,z)\n" +
		"u: sub(x_1_,x_0_,z)\n" +
		simTrailer
	assert.Equal(t, want, buf.String())
}

func TestWriteSimResolvesAliases(t *testing.T) {
	c := compile(t, `module A(a, y); input a; output y; wire t; assign y = t; buf b1(t, a); endmodule`)
	var buf bytes.Buffer
	require.NoError(t, c.WriteSim(&buf))
	assert.Contains(t, buf.String(), "b1: buf(y,a)\n")
}

func TestWriteSC(t *testing.T) {
	c := compile(t, nandNot+"\nmodule E(u); input u; endmodule")
	require.False(t, c.HadErrors(), errorsOf(c))

	var buf bytes.Buffer
	require.NoError(t, c.WriteSC(&buf))
	out := buf.String()
	require.True(t, strings.HasPrefix(out, scBanner))
	body := strings.Split(strings.TrimSpace(strings.TrimPrefix(out, scBanner)), "\n")
	assert.Equal(t, []string{
		"create cell M",
		"create instance g1 nand",
		"create instance g2 not",
		"connect g1 p1 g2 p2",
		"export g1 p2 a input",
		"export g1 p3 b input",
		"export g2 p1 y output",
		"create cell E",
		"! DID NOT FIND EXPORT u",
	}, body)
}

func TestWriteSCBusPorts(t *testing.T) {
	c := compile(t, `module top(x, z);
  input [1:0] x; output z;
  pair u(.d(x), .q(z));
  pair v(.d({z, x[0]}), .q());
endmodule`)
	require.False(t, c.HadErrors(), errorsOf(c))
	var buf bytes.Buffer
	require.NoError(t, c.WriteSC(&buf))
	out := buf.String()
	assert.Contains(t, out, "connect u d[1] v d[1]\n")
	assert.Contains(t, out, "connect u q v d[0]\n")
	assert.Contains(t, out, "export u d[0] x[1] input\n")
	assert.Contains(t, out, "export u d[1] x[0] input\n")
}
