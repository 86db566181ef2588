// Package scfile reads the silicon compiler command files written by the
// Verilog compiler back into a cell/instance/connection model.
package scfile

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/participle/v2"
)

// Parser turns command text into a File. One Parser may read any number
// of command files.
type Parser struct {
	grammar *participle.Parser[File]
}

// NewParser builds the command grammar.
func NewParser() (*Parser, error) {
	grammar, err := participle.Build[File](
		participle.Lexer(SCLexer),
		participle.Elide("Comment", "Whitespace"),
		participle.UseLookahead(2),
	)
	if err != nil {
		return nil, fmt.Errorf("scfile: bad command grammar: %w", err)
	}
	return &Parser{grammar: grammar}, nil
}

// Parse reads commands from r. name labels positions in errors.
func (p *Parser) Parse(name string, r io.Reader) (*File, error) {
	f, err := p.grammar.Parse(name, r)
	if err != nil {
		return nil, fmt.Errorf("scfile: malformed command: %w", err)
	}
	return f, nil
}

// ParseString reads commands held in memory.
func (p *Parser) ParseString(commands string) (*File, error) {
	f, err := p.grammar.ParseString("", commands)
	if err != nil {
		return nil, fmt.Errorf("scfile: malformed command: %w", err)
	}
	return f, nil
}

// ParseFile reads the command file at path; errors carry path:line.
func (p *Parser) ParseFile(path string) (*File, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("scfile: cannot read commands: %w", err)
	}
	defer in.Close()
	return p.Parse(path, in)
}
