// Package parser turns script text into hir blocks. Command signatures,
// aliases and definitions are resolved against a ParserScope while lowering.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/sousajf1/nushell/internal/hir"
	"github.com/sousajf1/nushell/internal/indexmap"
	"github.com/sousajf1/nushell/internal/protocol"
)

const maxAliasDepth = 16

// ParserScope is what the parser needs from the scope stack.
type ParserScope interface {
	GetSignature(name string) (protocol.Signature, bool)
	HasSignature(name string) bool
	AddDefinition(block *hir.Block)
	GetAlias(name string) ([]protocol.Spanned[string], bool)
	AddAlias(name string, replacement []protocol.Spanned[string])
	EnterScope()
	ExitScope()
}

type Parser struct {
	filename string
	script   *participle.Parser[scriptNode]
	call     *participle.Parser[callNode]
}

func NewParticleParser(filename string) (*Parser, error) {
	script, err := participle.Build[scriptNode](
		participle.Lexer(nuLexer),
		participle.UseLookahead(2),
	)
	if err != nil {
		return nil, err
	}
	call, err := participle.Build[callNode](
		participle.Lexer(nuLexer),
		participle.UseLookahead(2),
	)
	if err != nil {
		return nil, err
	}
	return &Parser{filename: filename, script: script, call: call}, nil
}

// ParseString parses source into a block. Definitions are registered in
// scope as they are found, so later statements can call them.
func (p *Parser) ParseString(source string, scope ParserScope) (*hir.Block, error) {
	tree, err := p.script.ParseString(p.filename, source)
	if err != nil {
		return nil, p.convertError(err)
	}

	block := &hir.Block{
		Params: protocol.NewSignature("<script>"),
		Span:   protocol.Span{Start: 0, End: len(source)},
	}
	l := &lowerer{parser: p, scope: scope}
	if err := l.statements(tree.Statements, block); err != nil {
		return nil, err
	}
	return block, nil
}

func (p *Parser) convertError(err error) error {
	var perr participle.Error
	if errors.As(err, &perr) {
		offset := perr.Position().Offset
		return &protocol.ShellError{
			Kind:    protocol.ParseError,
			Message: "Parse error: " + perr.Message(),
			Label:   "unexpected input",
			Span:    protocol.Span{Start: offset, End: offset + 1},
		}
	}
	return protocol.Wrap(protocol.ParseError, "Parse error", err)
}

type lowerer struct {
	parser *Parser
	scope  ParserScope
	// fixed replaces every span while lowering alias expansions, whose
	// offsets do not point into the original source.
	fixed     *protocol.Span
	expanding map[string]bool
	depth     int
}

func (l *lowerer) span(tokens []lexer.Token) protocol.Span {
	if l.fixed != nil {
		return *l.fixed
	}
	if len(tokens) == 0 {
		return protocol.UnknownSpan()
	}
	first, last := tokens[0], tokens[len(tokens)-1]
	return protocol.Span{Start: first.Pos.Offset, End: last.Pos.Offset + len(last.Value)}
}

// statements lowers a statement list into block. Definitions are hoisted
// into the scope before anything else is lowered.
func (l *lowerer) statements(stmts []*statementNode, block *hir.Block) error {
	defs := make(map[*defNode]*hir.Block)
	for _, stmt := range stmts {
		if stmt.Def == nil {
			continue
		}
		def := &hir.Block{
			Params: l.definitionSignature(stmt.Def),
			Span:   l.span(stmt.Def.Tokens),
		}
		l.scope.AddDefinition(def)
		defs[stmt.Def] = def
		block.Definitions = append(block.Definitions, def)
	}

	for _, stmt := range stmts {
		switch {
		case stmt.Def != nil:
			if err := l.definitionBody(stmt.Def.Body, defs[stmt.Def]); err != nil {
				return err
			}
		case stmt.Alias != nil:
			replacement := make([]protocol.Spanned[string], len(stmt.Alias.Replacement))
			for i, arg := range stmt.Alias.Replacement {
				replacement[i] = protocol.Spanned[string]{Item: argSource(arg), Span: l.span(arg.Tokens)}
			}
			l.scope.AddAlias(stmt.Alias.Name, replacement)
		case stmt.Pipeline != nil:
			pipeline, err := l.pipeline(stmt.Pipeline)
			if err != nil {
				return err
			}
			block.Pipelines = append(block.Pipelines, pipeline)
		}
	}
	return nil
}

func (l *lowerer) definitionSignature(def *defNode) protocol.Signature {
	sig := protocol.NewSignature(unquote(def.Name)).Desc("user-defined command")
	for _, param := range def.Params {
		switch {
		case strings.HasPrefix(param, "--"):
			sig = sig.Switch(strings.TrimPrefix(param, "--"), "")
		case strings.HasSuffix(param, "?"):
			sig = sig.Optional(strings.TrimSuffix(param, "?"), protocol.ShapeAny, "")
		default:
			sig = sig.Required(param, protocol.ShapeAny, "")
		}
	}
	return sig
}

func (l *lowerer) definitionBody(body *blockNode, block *hir.Block) error {
	l.scope.EnterScope()
	defer l.scope.ExitScope()

	return l.statements(body.Statements, block)
}

func (l *lowerer) pipeline(node *pipelineNode) (hir.Pipeline, error) {
	out := hir.Pipeline{Span: l.span(node.Tokens)}
	for _, call := range node.Commands {
		cmd, err := l.command(call)
		if err != nil {
			return hir.Pipeline{}, err
		}
		out.Commands = append(out.Commands, cmd)
	}
	return out, nil
}

func (l *lowerer) command(call *callNode) (hir.InternalCommand, error) {
	name := unquote(call.Head)
	if name == call.Head && !l.expanding[name] {
		if replacement, ok := l.scope.GetAlias(name); ok {
			return l.expandAlias(call, name, replacement)
		}
	}

	args := call.Args
	nameSpan := l.span(call.Tokens[:1])
	if len(args) > 0 && args[0].Word != nil && l.scope.HasSignature(name+" "+*args[0].Word) {
		name = name + " " + *args[0].Word
		nameSpan = nameSpan.Until(l.span(args[0].Tokens))
		args = args[1:]
	}

	hc := hir.InternalCommand{
		Name:     name,
		NameSpan: nameSpan,
		Args: hir.Call{
			Head:  hir.StringExpr(name, nameSpan),
			Named: indexmap.New[string, hir.NamedValue](),
			Span:  l.span(call.Tokens),
		},
	}

	sig, known := l.scope.GetSignature(name)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg.Flag == nil {
			expr, err := l.expression(arg)
			if err != nil {
				return hir.InternalCommand{}, err
			}
			hc.Args.Positional = append(hc.Args.Positional, expr)
			continue
		}

		flag := strings.TrimPrefix(*arg.Flag, "--")
		flagSpan := l.span(arg.Tokens)
		if !known {
			hc.Args.Named.Set(flag, hir.NamedValue{Switch: true, Span: flagSpan})
			continue
		}
		named, ok := sig.LookupFlag(flag)
		if !ok {
			return hir.InternalCommand{}, l.argumentError(
				fmt.Sprintf("Unexpected flag --%s for %s", flag, name), "unknown flag", flagSpan)
		}
		if named.Switch {
			hc.Args.Named.Set(flag, hir.NamedValue{Switch: true, Span: flagSpan})
			continue
		}
		if i+1 >= len(args) || args[i+1].Flag != nil {
			return hir.InternalCommand{}, l.argumentError(
				fmt.Sprintf("Missing value for flag --%s", flag), "needs a value", flagSpan)
		}
		i++
		value, err := l.expression(args[i])
		if err != nil {
			return hir.InternalCommand{}, err
		}
		hc.Args.Named.Set(flag, hir.NamedValue{Value: &value, Span: flagSpan.Until(value.Span)})
	}

	if known {
		if err := l.checkPositional(sig, hc); err != nil {
			return hir.InternalCommand{}, err
		}
	}
	return hc, nil
}

func (l *lowerer) checkPositional(sig protocol.Signature, hc hir.InternalCommand) error {
	got := len(hc.Args.Positional)
	if got < sig.RequiredCount() {
		missing := sig.Positional[got]
		return l.argumentError(
			fmt.Sprintf("%s is missing required argument '%s'", hc.Name, missing.Name),
			"missing "+missing.Name, hc.NameSpan)
	}
	if sig.Rest == nil && got > len(sig.Positional) {
		extra := hc.Args.Positional[len(sig.Positional)]
		return l.argumentError(
			fmt.Sprintf("%s takes at most %d positional arguments", hc.Name, len(sig.Positional)),
			"unexpected argument", extra.Span)
	}
	return nil
}

func (l *lowerer) argumentError(msg, label string, span protocol.Span) *protocol.ShellError {
	err := protocol.LabeledError(msg, label, span)
	err.Kind = protocol.ParseError
	return err
}

// expandAlias re-parses the alias replacement followed by the call's own
// arguments. Every span of the expansion points at the original call. An
// alias is not expanded again inside its own expansion.
func (l *lowerer) expandAlias(call *callNode, alias string, replacement []protocol.Spanned[string]) (hir.InternalCommand, error) {
	span := l.span(call.Tokens)
	if l.depth >= maxAliasDepth {
		return hir.InternalCommand{}, l.argumentError(
			fmt.Sprintf("Alias expansion of %s is too deep", call.Head), "recursive alias", span)
	}

	parts := make([]string, 0, len(replacement)+len(call.Args))
	for _, tok := range replacement {
		parts = append(parts, tok.Item)
	}
	for _, arg := range call.Args {
		parts = append(parts, argSource(arg))
	}

	expanded, err := l.parser.call.ParseString(l.parser.filename, strings.Join(parts, " "))
	if err != nil {
		return hir.InternalCommand{}, l.argumentError(
			fmt.Sprintf("Invalid alias expansion for %s", call.Head), "expanded from here", span)
	}

	expanding := map[string]bool{alias: true}
	for name := range l.expanding {
		expanding[name] = true
	}
	inner := &lowerer{parser: l.parser, scope: l.scope, fixed: &span, expanding: expanding, depth: l.depth + 1}
	return inner.command(expanded)
}

func (l *lowerer) expression(arg *argNode) (hir.Expression, error) {
	span := l.span(arg.Tokens)
	switch {
	case arg.List != nil:
		items := make([]hir.Expression, 0, len(arg.List.Items))
		for _, item := range arg.List.Items {
			expr, err := l.expression(item)
			if err != nil {
				return hir.Expression{}, err
			}
			items = append(items, expr)
		}
		return hir.ListExpr(items, span), nil
	case arg.Variable != nil:
		path := strings.Split(strings.TrimPrefix(*arg.Variable, "$"), ".")
		return hir.VariableExpr(path[0], path[1:], span), nil
	case arg.String != nil:
		return hir.StringExpr(unquote(*arg.String), span), nil
	case arg.Flag != nil:
		return hir.StringExpr(*arg.Flag, span), nil
	case arg.Word != nil:
		return hir.LiteralExpr(classifyWord(*arg.Word), span), nil
	default:
		return hir.Expression{}, l.argumentError("Empty argument", "here", span)
	}
}

// classifyWord reads bare numbers as numbers and everything else as text.
func classifyWord(word string) protocol.UntaggedValue {
	if !looksNumeric(word) {
		return protocol.String(word)
	}
	if n, err := strconv.ParseInt(word, 10, 64); err == nil {
		return protocol.Int(n)
	}
	if f, err := strconv.ParseFloat(word, 64); err == nil {
		return protocol.Decimal(f)
	}
	return protocol.String(word)
}

func looksNumeric(word string) bool {
	s := strings.TrimPrefix(word, "-")
	if s == "" {
		return false
	}
	c := s[0]
	return (c >= '0' && c <= '9') || (c == '.' && len(s) > 1 && s[1] >= '0' && s[1] <= '9')
}

func unquote(s string) string {
	if len(s) < 2 {
		return s
	}
	switch {
	case s[0] == '\'' && s[len(s)-1] == '\'':
		return s[1 : len(s)-1]
	case s[0] == '"' && s[len(s)-1] == '"':
		if u, err := strconv.Unquote(s); err == nil {
			return u
		}
		return s[1 : len(s)-1]
	}
	return s
}

// argSource rebuilds the source text of an argument from its tokens.
func argSource(arg *argNode) string {
	if arg.List == nil {
		return arg.Tokens[0].Value
	}
	parts := make([]string, 0, len(arg.Tokens))
	for _, tok := range arg.Tokens {
		if tok.Value == "\n" || strings.Trim(tok.Value, "\n;") == "" {
			continue
		}
		parts = append(parts, tok.Value)
	}
	return strings.Join(parts, " ")
}
