package design

import (
	"bufio"
	"io"
	"unicode"

	"github.com/pkg/errors"
)

type tokenType int

const (
	tokEOF tokenType = iota
	tokOpen
	tokClose
	tokAtom
	tokString
)

type token struct {
	typ   tokenType
	value string
	line  int
}

// lexer splits a design description into parentheses, atoms and quoted
// strings. A '#' starts a comment that runs to the end of the line.
type lexer struct {
	r      *bufio.Reader
	peeked *rune
	line   int
}

func newLexer(r io.Reader) *lexer {
	return &lexer{r: bufio.NewReader(r), line: 1}
}

func (l *lexer) next() (token, error) {
	for {
		ch, err := l.peek()
		if err == io.EOF {
			return token{typ: tokEOF, line: l.line}, nil
		}
		if err != nil {
			return token{}, err
		}
		switch {
		case unicode.IsSpace(ch):
			l.read()
		case ch == '#':
			for {
				c, err := l.read()
				if err != nil || c == '\n' {
					break
				}
			}
		case ch == '(':
			l.read()
			return token{typ: tokOpen, value: "(", line: l.line}, nil
		case ch == ')':
			l.read()
			return token{typ: tokClose, value: ")", line: l.line}, nil
		case ch == '"':
			return l.quoted()
		default:
			return l.atom()
		}
	}
}

func (l *lexer) peek() (rune, error) {
	if l.peeked != nil {
		return *l.peeked, nil
	}
	ch, _, err := l.r.ReadRune()
	if err != nil {
		return 0, err
	}
	l.peeked = &ch
	return ch, nil
}

func (l *lexer) read() (rune, error) {
	var ch rune
	if l.peeked != nil {
		ch = *l.peeked
		l.peeked = nil
	} else {
		var err error
		if ch, _, err = l.r.ReadRune(); err != nil {
			return 0, err
		}
	}
	if ch == '\n' {
		l.line++
	}
	return ch, nil
}

func (l *lexer) quoted() (token, error) {
	line := l.line
	l.read()
	var out []rune
	for {
		ch, err := l.read()
		if err != nil {
			return token{}, errors.Errorf("line %d: unterminated string", line)
		}
		switch ch {
		case '"':
			return token{typ: tokString, value: string(out), line: line}, nil
		case '\\':
			esc, err := l.read()
			if err != nil {
				return token{}, errors.Errorf("line %d: unterminated string", line)
			}
			switch esc {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			default:
				out = append(out, esc)
			}
		default:
			out = append(out, ch)
		}
	}
}

func (l *lexer) atom() (token, error) {
	line := l.line
	var out []rune
	for {
		ch, err := l.peek()
		if err == io.EOF {
			break
		}
		if err != nil {
			return token{}, err
		}
		if unicode.IsSpace(ch) || ch == '(' || ch == ')' || ch == '"' {
			break
		}
		l.read()
		out = append(out, ch)
	}
	return token{typ: tokAtom, value: string(out), line: line}, nil
}
