package scfile

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// File is a parsed command file.
type File struct {
	Pos      lexer.Position
	Commands []*Command `@@*`
}

// Command is one line of the file.
type Command struct {
	Pos     lexer.Position
	Create  *Create  `  "create" @@`
	Connect *Connect `| "connect" @@`
	Export  *Export  `| "export" @@`
}

// Create starts a cell or adds an instance to the current one.
type Create struct {
	Cell     string    `  "cell" @Name`
	Instance *Instance `| "instance" @@`
}

// Instance is "create instance NAME KIND".
type Instance struct {
	Name string `@Name`
	Kind string `@Name`
}

// Connect joins two instance ports.
type Connect struct {
	FromInst string `@Name`
	FromPort string `@Name`
	ToInst   string `@Name`
	ToPort   string `@Name`
}

// Export exposes an instance port as a cell port.
type Export struct {
	Inst   string `@Name`
	Port   string `@Name`
	Signal string `@Name`
	Mode   string `@Name`
}
