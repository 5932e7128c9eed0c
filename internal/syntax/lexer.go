package syntax

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// Lexer is BX's stateful token scanner: comments, identifiers (which also
// carry the language's keywords — the grammar matches those against literal
// strings the same way the teacher's grammar matches "module"/"struct"),
// integer literals, operators ordered longest-match-first, and punctuation.
var Lexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Comment", `//[^\n]*`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},
		{"Integer", `[0-9]+`, nil},
		{"Operator", `(\|\||&&|==|!=|<=|>=|<<|>>|[-+*/%&|^~!<>=])`, nil},
		{"Punctuation", `[{}():;,]`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
