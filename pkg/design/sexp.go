package design

import (
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Expr is one s-expression: an atom, or a list whose first element is
// usually the keyword naming it.
type Expr struct {
	Atom   string
	List   []*Expr
	IsList bool
	Line   int
}

// Keyword returns the leading atom of a list, or "" for anything else.
func (e *Expr) Keyword() string {
	if !e.IsList || len(e.List) == 0 || e.List[0].IsList {
		return ""
	}
	return e.List[0].Atom
}

// Args returns the list elements after the keyword.
func (e *Expr) Args() []*Expr {
	if !e.IsList || len(e.List) == 0 {
		return nil
	}
	return e.List[1:]
}

// Find returns the first child list introduced by key.
func (e *Expr) Find(key string) *Expr {
	for _, c := range e.Args() {
		if c.Keyword() == key {
			return c
		}
	}
	return nil
}

// FindAll returns every child list introduced by key.
func (e *Expr) FindAll(key string) []*Expr {
	var out []*Expr
	for _, c := range e.Args() {
		if c.Keyword() == key {
			out = append(out, c)
		}
	}
	return out
}

// Has reports whether a bare atom flag such as "expanded" follows the
// keyword.
func (e *Expr) Has(flag string) bool {
	for _, c := range e.Args() {
		if !c.IsList && c.Atom == flag {
			return true
		}
	}
	return false
}

// Name returns the atom by position among the arguments.
func (e *Expr) Name(i int) (string, error) {
	args := e.Args()
	if i >= len(args) || args[i].IsList {
		return "", errors.Errorf("line %d: (%s) needs a name in position %d", e.Line, e.Keyword(), i+1)
	}
	return args[i].Atom, nil
}

// Floats converts every argument to a number.
func (e *Expr) Floats() ([]float64, error) {
	args := e.Args()
	out := make([]float64, 0, len(args))
	for _, a := range args {
		if a.IsList {
			return nil, errors.Errorf("line %d: (%s) takes numbers only", e.Line, e.Keyword())
		}
		f, err := strconv.ParseFloat(a.Atom, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: (%s)", e.Line, e.Keyword())
		}
		out = append(out, f)
	}
	return out, nil
}

func (e *Expr) format(b *strings.Builder) {
	if !e.IsList {
		if e.Atom == "" || strings.ContainsAny(e.Atom, " \t\n()\"#") {
			b.WriteString(strconv.Quote(e.Atom))
		} else {
			b.WriteString(e.Atom)
		}
		return
	}
	b.WriteByte('(')
	for i, c := range e.List {
		if i > 0 {
			b.WriteByte(' ')
		}
		c.format(b)
	}
	b.WriteByte(')')
}

// Format writes the expression back in its textual form.
func (e *Expr) Format() string {
	var b strings.Builder
	e.format(&b)
	return b.String()
}

// ParseExprs reads every top-level expression of r.
func ParseExprs(r io.Reader) ([]*Expr, error) {
	lx := newLexer(r)
	var out []*Expr
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		if tok.typ == tokEOF {
			return out, nil
		}
		e, err := parseExpr(lx, tok)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
}

func parseExpr(lx *lexer, tok token) (*Expr, error) {
	switch tok.typ {
	case tokAtom, tokString:
		return &Expr{Atom: tok.value, Line: tok.line}, nil
	case tokClose:
		return nil, errors.Errorf("line %d: unexpected ')'", tok.line)
	case tokEOF:
		return nil, errors.Errorf("line %d: unexpected end of input", tok.line)
	}
	list := &Expr{IsList: true, Line: tok.line}
	for {
		next, err := lx.next()
		if err != nil {
			return nil, err
		}
		switch next.typ {
		case tokClose:
			return list, nil
		case tokEOF:
			return nil, errors.Errorf("line %d: list is never closed", tok.line)
		}
		child, err := parseExpr(lx, next)
		if err != nil {
			return nil, err
		}
		list.List = append(list.List, child)
	}
}
