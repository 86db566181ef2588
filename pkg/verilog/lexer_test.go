package verilog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kinds(toks []Token) []TokenKind {
	out := make([]TokenKind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestLexBasics(t *testing.T) {
	toks := Lex([]string{
		"`timescale 1ns/1ps",
		"module m (a); // trailing",
		"  wire \\odd$name ; -- dashes",
		"/* spans",
		"   lines */ endmodule",
	})
	require.Len(t, toks, 11)
	assert.Equal(t, Token{Kind: TokKeyword, Text: "module", Line: 2, Col: 0}, toks[0])
	assert.Equal(t, "m", toks[1].Text)
	assert.Equal(t, TokIdent, toks[1].Kind)
	assert.Equal(t, "odd$name", toks[7].Text)
	assert.Equal(t, TokIdent, toks[7].Kind)
	assert.Equal(t, 3, toks[7].Line)
	assert.True(t, toks[9].isKw("endmodule"))
	assert.Equal(t, 5, toks[9].Line)
	assert.Equal(t, TokEOF, toks[10].Kind)
}

func TestLexBitLiterals(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{"4'b10", "1010"},
		{"2'b101", "10"},
		{"3'b1", "111"},
		{"'b0x1z", "0x1z"},
		{"8'hA5", "10100101"},
		{"6'o7", "000111"},
		{"2'hF", "11"},
		{"4'd5", "0101"},
		{"4'b1_0_0_1", "1001"},
	}
	for _, tc := range cases {
		t.Run(tc.src, func(t *testing.T) {
			toks := Lex([]string{tc.src})
			require.Len(t, toks, 2)
			assert.Equal(t, TokBits, toks[0].Kind)
			assert.Equal(t, tc.want, toks[0].Text)
		})
	}
}

func TestLexStringsCharsAndSymbols(t *testing.T) {
	toks := Lex([]string{`"say ""hi""" 'c' .. := => $ @`})
	assert.Equal(t, []TokenKind{TokString, TokChar, TokSymbol, TokSymbol, TokSymbol, TokUnknown, TokSymbol, TokEOF}, kinds(toks))
	assert.Equal(t, `say "hi"`, toks[0].Text)
	assert.Equal(t, "c", toks[1].Text)
	assert.Equal(t, "..", toks[2].Text)
	assert.Equal(t, ":=", toks[3].Text)
	assert.Equal(t, "=>", toks[4].Text)
	assert.Equal(t, "$", toks[5].Text)
}

func TestFitBits(t *testing.T) {
	assert.Equal(t, "101", fitBits("101", 0))
	assert.Equal(t, "1", fitBits("10", 1))
	assert.Equal(t, "01010", fitBits("01", 5))
	assert.Equal(t, "00101", fitNumber("101", 5))
	assert.Equal(t, "01", fitNumber("101", 2))
}
