package parser

import (
	"os"

	"github.com/alecthomas/participle/v2/lexer"
)

// Rules are tried in order and the first match wins. Lower-case rules are
// dropped from the token stream.
var nuLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "comment", Pattern: `#[^\n]*`},
	{Name: "whitespace", Pattern: `[ \t\r]+|\\\n`},
	{Name: "Newline", Pattern: `[\n;]+`},
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"|'[^']*'`},
	{Name: "Variable", Pattern: `\$[A-Za-z_][A-Za-z0-9_\-]*(?:\.[A-Za-z0-9_\-]+)*`},
	{Name: "Flag", Pattern: `--[A-Za-z][A-Za-z0-9_\-]*`},
	{Name: "Punct", Pattern: `[|{}\[\]]`},
	{Name: "Word", Pattern: `[^\s|{}\[\];"'#]+`},
})

// Token is a lexed token as shown by the debug dump.
type Token struct {
	Type   string
	Value  string
	Line   int
	Column int
	Offset int
	EOF    bool
}

// DebugLexer walks the tokens of a source text one at a time.
type DebugLexer struct {
	lex   lexer.Lexer
	names map[lexer.TokenType]string
}

func NewLexerForDebug(content, filename string) (*DebugLexer, error) {
	lex, err := nuLexer.LexString(filename, content)
	if err != nil {
		return nil, err
	}
	return &DebugLexer{lex: lex, names: lexer.SymbolsByRune(nuLexer)}, nil
}

func NewLexerFromFile(filename string) (*DebugLexer, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return NewLexerForDebug(string(content), filename)
}

func (l *DebugLexer) NextToken() (Token, error) {
	tok, err := l.lex.Next()
	if err != nil {
		return Token{}, err
	}
	return Token{
		Type:   l.names[tok.Type],
		Value:  tok.Value,
		Line:   tok.Pos.Line,
		Column: tok.Pos.Column,
		Offset: tok.Pos.Offset,
		EOF:    tok.EOF(),
	}, nil
}

// Tokenize lexes content completely, without the trailing EOF token.
func Tokenize(content, filename string) ([]Token, error) {
	l, err := NewLexerForDebug(content, filename)
	if err != nil {
		return nil, err
	}
	var out []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.EOF {
			return out, nil
		}
		out = append(out, tok)
	}
}
