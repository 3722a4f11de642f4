package cfgtext

import (
	"github.com/alecthomas/participle/v2/lexer"
)

var regionLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		// Comments
		{Name: "Comment", Pattern: `//[^\n]*`, Action: nil},

		// Keywords and identifiers (order matters)
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`, Action: nil},

		// Integer literals
		{Name: "Integer", Pattern: `0x[0-9a-fA-F]+|[0-9]+`, Action: nil},

		// Edge arrow (must come before operators)
		{Name: "Arrow", Pattern: `->`, Action: nil},

		// Operators
		{Name: "Operator", Pattern: `(\|\||&&|==|!=|<=|>=|=|[-+*/%&|<>!^])`, Action: nil},

		// Punctuation
		{Name: "Punctuation", Pattern: `[{}()@:,;]`, Action: nil},

		// Whitespace
		{Name: "Whitespace", Pattern: `[ \t\r\n]+`, Action: nil},
	},
})
