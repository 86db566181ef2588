package verilog

import (
	"fmt"
	"math/big"
	"strings"
)

// TokenKind classifies a token.
type TokenKind int

const (
	TokEOF TokenKind = iota
	TokIdent
	TokKeyword
	TokNumber
	TokBits
	TokChar
	TokString
	TokSymbol
	TokUnknown
)

func (k TokenKind) String() string {
	switch k {
	case TokEOF:
		return "end of file"
	case TokIdent:
		return "identifier"
	case TokKeyword:
		return "keyword"
	case TokNumber:
		return "number"
	case TokBits:
		return "bit literal"
	case TokChar:
		return "character"
	case TokString:
		return "string"
	case TokSymbol:
		return "symbol"
	}
	return "unknown"
}

// Token is one lexical unit. Bit literals carry their digits, most
// significant first, already fitted to the declared width.
type Token struct {
	Kind TokenKind
	Text string
	Line int // 1-based
	Col  int // 0-based byte offset in the line
}

func (t Token) String() string {
	if t.Kind == TokEOF {
		return "end of file"
	}
	return fmt.Sprintf("%s %q", t.Kind, t.Text)
}

func (t Token) is(kind TokenKind, text string) bool {
	return t.Kind == kind && t.Text == text
}

func (t Token) isSym(s string) bool { return t.is(TokSymbol, s) }
func (t Token) isKw(s string) bool  { return t.is(TokKeyword, s) }

var keywords = map[string]bool{
	"module": true, "endmodule": true, "primitive": true, "endprimitive": true,
	"input": true, "output": true, "inout": true, "wire": true,
	"supply0": true, "supply1": true, "tranif0": true, "tranif1": true,
	"assign": true, "logic": true, "real": true, "reg": true,
	"electrical": true, "parameter": true, "analog": true, "initial": true,
	"always": true, "begin": true, "end": true, "table": true,
	"endtable": true, "specify": true, "endspecify": true,
}

// IsKeyword reports whether s is reserved.
func IsKeyword(s string) bool { return keywords[s] }

// Lex splits source lines into tokens. It never fails: characters it does
// not recognize become TokUnknown tokens and the parser decides.
func Lex(lines []string) []Token {
	var out []Token
	inComment := false
	for i, line := range lines {
		lineNo := i + 1
		if !inComment && strings.HasPrefix(strings.TrimSpace(line), "`") {
			continue
		}
		pos := 0
		for pos < len(line) {
			if inComment {
				end := strings.Index(line[pos:], "*/")
				if end < 0 {
					pos = len(line)
					break
				}
				pos += end + 2
				inComment = false
				continue
			}
			c := line[pos]
			switch {
			case c == ' ' || c == '\t' || c == '\r' || c == '\f':
				pos++
			case strings.HasPrefix(line[pos:], "//"), strings.HasPrefix(line[pos:], "--"):
				pos = len(line)
			case strings.HasPrefix(line[pos:], "/*"):
				inComment = true
				pos += 2
			case isIdentStart(c):
				end := pos + 1
				for end < len(line) && isIdentPart(line[end]) {
					end++
				}
				word := line[pos:end]
				kind := TokIdent
				if keywords[word] {
					kind = TokKeyword
				}
				out = append(out, Token{Kind: kind, Text: word, Line: lineNo, Col: pos})
				pos = end
			case c == '\\':
				end := pos + 1
				for end < len(line) && line[end] != ' ' && line[end] != '\t' {
					end++
				}
				out = append(out, Token{Kind: TokIdent, Text: line[pos+1 : end], Line: lineNo, Col: pos})
				pos = end
			case isDigit(c):
				end := pos
				for end < len(line) && (isDigit(line[end]) || line[end] == '_') {
					end++
				}
				if end < len(line) && line[end] == '\'' {
					tok, next := lexBits(line, pos, end, lineNo)
					out = append(out, tok)
					pos = next
					continue
				}
				out = append(out, Token{Kind: TokNumber, Text: strings.ReplaceAll(line[pos:end], "_", ""), Line: lineNo, Col: pos})
				pos = end
			case c == '\'':
				if pos+1 < len(line) && strings.ContainsRune("bBoOhHdD", rune(line[pos+1])) {
					tok, next := lexBits(line, pos, pos, lineNo)
					out = append(out, tok)
					pos = next
					continue
				}
				if pos+2 < len(line) && line[pos+2] == '\'' {
					out = append(out, Token{Kind: TokChar, Text: line[pos+1 : pos+2], Line: lineNo, Col: pos})
					pos += 3
					continue
				}
				out = append(out, Token{Kind: TokUnknown, Text: "'", Line: lineNo, Col: pos})
				pos++
			case c == '"':
				text, next := lexString(line, pos)
				out = append(out, Token{Kind: TokString, Text: text, Line: lineNo, Col: pos})
				pos = next
			default:
				if pos+1 < len(line) {
					two := line[pos : pos+2]
					if two == ".." || two == ":=" || two == "=>" {
						out = append(out, Token{Kind: TokSymbol, Text: two, Line: lineNo, Col: pos})
						pos += 2
						continue
					}
				}
				kind := TokSymbol
				if !strings.ContainsRune("()[]{};,:.#=~&|^!+-*/<>?@%", rune(c)) {
					kind = TokUnknown
				}
				out = append(out, Token{Kind: kind, Text: string(c), Line: lineNo, Col: pos})
				pos++
			}
		}
	}
	line := len(lines)
	if line == 0 {
		line = 1
	}
	return append(out, Token{Kind: TokEOF, Line: line})
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c) || c == '$'
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// lexBits scans a based literal: an optional decimal width (line[start:quote]),
// a quote, a base letter and digits. The result holds one of 0, 1, x or z per
// bit. Short binary literals are filled by repeating the scanned bits; long
// ones are cut to the width.
func lexBits(line string, start, quote, lineNo int) (Token, int) {
	width := 0
	if quote > start {
		fmt.Sscanf(strings.ReplaceAll(line[start:quote], "_", ""), "%d", &width)
	}
	pos := quote + 1
	if pos >= len(line) {
		return Token{Kind: TokUnknown, Text: line[start:], Line: lineNo, Col: start}, len(line)
	}
	base := line[pos] | 0x20
	pos++
	end := pos
	for end < len(line) && (isHexDigit(line[end]) || strings.ContainsRune("xXzZ_?", rune(line[end]))) {
		end++
	}
	digits := strings.ToLower(strings.ReplaceAll(line[pos:end], "_", ""))
	var bits string
	switch base {
	case 'b':
		bits = digits
	case 'o':
		bits = expandDigits(digits, 3)
	case 'h':
		bits = expandDigits(digits, 4)
	case 'd':
		v, ok := new(big.Int).SetString(digits, 10)
		if ok {
			bits = v.Text(2)
		}
	}
	bits = strings.Map(func(r rune) rune {
		switch r {
		case '0', '1', 'x', 'z':
			return r
		case '?':
			return 'z'
		}
		return -1
	}, bits)
	if bits == "" || (base == 'b' && len(bits) != len(digits)) {
		return Token{Kind: TokUnknown, Text: line[start:end], Line: lineNo, Col: start}, end
	}
	if base != 'b' {
		return Token{Kind: TokBits, Text: fitNumber(bits, width), Line: lineNo, Col: start}, end
	}
	return Token{Kind: TokBits, Text: fitBits(bits, width), Line: lineNo, Col: start}, end
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c|0x20 >= 'a' && c|0x20 <= 'f')
}

func expandDigits(digits string, per int) string {
	var b strings.Builder
	for _, r := range digits {
		switch r {
		case 'x', 'z', '?':
			b.WriteString(strings.Repeat(string(r), per))
			continue
		}
		var v int
		fmt.Sscanf(string(r), "%x", &v)
		b.WriteString(fmt.Sprintf("%0*b", per, v))
	}
	return b.String()
}

// fitBits sizes bits to width by cyclic repetition or truncation. A zero
// width keeps the literal as scanned.
func fitBits(bits string, width int) string {
	if width <= 0 || len(bits) == width {
		return bits
	}
	if len(bits) > width {
		return bits[:width]
	}
	var b strings.Builder
	for i := 0; i < width; i++ {
		b.WriteByte(bits[i%len(bits)])
	}
	return b.String()
}

// fitNumber sizes the bits of a numeric literal: zero-filled on the left,
// or cut to the low-order bits.
func fitNumber(bits string, width int) string {
	switch {
	case width <= 0 || len(bits) == width:
		return bits
	case len(bits) > width:
		return bits[len(bits)-width:]
	}
	return strings.Repeat("0", width-len(bits)) + bits
}

// lexString reads a double-quoted string in which "" stands for a quote.
func lexString(line string, pos int) (string, int) {
	var b strings.Builder
	i := pos + 1
	for i < len(line) {
		if line[i] == '"' {
			if i+1 < len(line) && line[i+1] == '"' {
				b.WriteByte('"')
				i += 2
				continue
			}
			return b.String(), i + 1
		}
		b.WriteByte(line[i])
		i++
	}
	return b.String(), i
}
