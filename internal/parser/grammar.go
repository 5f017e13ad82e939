package parser

import "github.com/alecthomas/participle/v2/lexer"

type scriptNode struct {
	Statements []*statementNode `parser:"Newline* ( @@ Newline* )*"`
}

type statementNode struct {
	Pos    lexer.Position
	Tokens []lexer.Token

	Def      *defNode      `parser:"  @@"`
	Alias    *aliasNode    `parser:"| @@"`
	Pipeline *pipelineNode `parser:"| @@"`
}

type defNode struct {
	Pos    lexer.Position
	Tokens []lexer.Token

	Name   string     `parser:"\"def\" @(Word | String)"`
	Params []string   `parser:"\"[\" @(Word | Flag)* \"]\""`
	Body   *blockNode `parser:"@@"`
}

type blockNode struct {
	Pos    lexer.Position
	Tokens []lexer.Token

	Statements []*statementNode `parser:"\"{\" Newline* ( @@ Newline* )* \"}\""`
}

type aliasNode struct {
	Pos    lexer.Position
	Tokens []lexer.Token

	Name        string     `parser:"\"alias\" @Word \"=\""`
	Replacement []*argNode `parser:"@@+"`
}

type pipelineNode struct {
	Pos    lexer.Position
	Tokens []lexer.Token

	Commands []*callNode `parser:"@@ ( \"|\" Newline* @@ )*"`
}

type callNode struct {
	Pos    lexer.Position
	Tokens []lexer.Token

	Head string     `parser:"@(Word | String)"`
	Args []*argNode `parser:"@@*"`
}

type argNode struct {
	Pos    lexer.Position
	Tokens []lexer.Token

	List     *listNode `parser:"  @@"`
	Variable *string   `parser:"| @Variable"`
	Flag     *string   `parser:"| @Flag"`
	String   *string   `parser:"| @String"`
	Word     *string   `parser:"| @Word"`
}

type listNode struct {
	Pos    lexer.Position
	Tokens []lexer.Token

	Items []*argNode `parser:"\"[\" Newline* ( @@ Newline* )* \"]\""`
}
