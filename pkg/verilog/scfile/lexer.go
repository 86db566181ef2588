package scfile

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// SCLexer tokenizes silicon compiler command files. Commands are one per
// line; keywords are matched as literal names by the grammar.
var SCLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Comments run from ! to end of line
	{Name: "Comment", Pattern: `![^\n]*`},

	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},

	// Cell, instance, port and signal names, including bit selects
	{Name: "Name", Pattern: `[^\s!]+`},
})
