package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sousajf1/nushell/internal/commands"
	"github.com/sousajf1/nushell/internal/engine"
	"github.com/sousajf1/nushell/internal/hir"
	"github.com/sousajf1/nushell/internal/parser"
	"github.com/sousajf1/nushell/internal/protocol"
)

const rule = "─────────────────────────────────────────────────────────────────"

var lexCmd = &cobra.Command{
	Use:   "lex <script>",
	Short: "Debug lexer output",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := engine.ReadSource(args[0])
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}
		return lexDebug(cmd.OutOrStdout(), args[0], string(content))
	},
}

var astCmd = &cobra.Command{
	Use:   "ast <script>",
	Short: "Debug parser output",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := engine.ReadSource(args[0])
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}
		return astDebug(cmd.OutOrStdout(), args[0], string(content))
	},
}

func lexDebug(w io.Writer, filename, content string) error {
	lexer, err := parser.NewLexerForDebug(content, filename)
	if err != nil {
		return fmt.Errorf("lexer initialization error: %w", err)
	}

	fmt.Fprintf(w, "📄 Lexing: %s\n", filename)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%-4s %-3s %-15s %s\n", "Line", "Col", "Kind", "Value")
	fmt.Fprintln(w, rule)

	tokenCount := 0
	for {
		token, err := lexer.NextToken()
		if err != nil {
			fmt.Fprintf(w, "Lexer error: %v\n", err)
			break
		}
		if token.EOF {
			break
		}

		value := token.Value
		if token.Type == "Newline" {
			value = "\\n"
		} else if len(value) > 50 {
			value = value[:47] + "..."
		}
		fmt.Fprintf(w, "%-4d %-3d %-15s %s\n", token.Line, token.Column, token.Type, value)
		tokenCount++
	}

	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "✅ Lexed %d tokens\n", tokenCount)
	return nil
}

// astDebug parses against a scope holding the built-in commands, so
// two-word commands and flags resolve as they would when running.
func astDebug(w io.Writer, filename, content string) error {
	p, err := parser.NewParticleParser(filename)
	if err != nil {
		return fmt.Errorf("parser initialization error: %w", err)
	}
	scope := engine.NewScope()
	commands.Register(scope)

	block, err := p.ParseString(content, scope)
	if err != nil {
		var shellErr *protocol.ShellError
		if errors.As(err, &shellErr) {
			fmt.Fprint(w, protocol.FormatError(shellErr, filename, content))
		} else {
			fmt.Fprintf(w, "Parse error: %v\n", err)
		}
		fmt.Fprintln(w, "\n📄 Raw Tokens (for debugging):")
		fmt.Fprintln(w, rule)
		_ = lexDebug(w, filename, content)
		return err
	}

	fmt.Fprintf(w, "🌲 Parsed Block: %s\n", filename)
	fmt.Fprintln(w, strings.Repeat("═", 65))
	fmt.Fprintf(w, "📊 Summary:\n")
	fmt.Fprintf(w, "  Definitions: %d\n", len(block.Definitions))
	fmt.Fprintf(w, "  Pipelines: %d\n", len(block.Pipelines))
	fmt.Fprintln(w)

	printBlock(w, block, "  ")

	fmt.Fprintln(w, strings.Repeat("═", 65))
	fmt.Fprintf(w, "✅ Parsed successfully into %d pipelines\n", len(block.Pipelines))
	return nil
}

func printBlock(w io.Writer, block *hir.Block, indent string) {
	if len(block.Definitions) > 0 {
		fmt.Fprintf(w, "%s🔧 Definitions:\n", indent)
		for _, def := range block.Definitions {
			fmt.Fprintf(w, "%s  [def %s", indent, def.Params.Name)
			for _, p := range def.Params.Positional {
				fmt.Fprintf(w, " %s", p.Name)
			}
			for _, n := range def.Params.Named {
				fmt.Fprintf(w, " --%s", n.Name)
			}
			fmt.Fprintf(w, "] - %d pipelines\n", len(def.Pipelines))
			printBlock(w, def, indent+"    ")
		}
	}

	for i, p := range block.Pipelines {
		if len(p.Commands) == 1 {
			fmt.Fprintf(w, "%s%d. %s\n", indent, i+1, p.Commands[0])
			continue
		}
		fmt.Fprintf(w, "%s%d. PIPELINE (%d commands)\n", indent, i+1, len(p.Commands))
		for j, c := range p.Commands {
			fmt.Fprintf(w, "%s  %d: %s\n", indent, j+1, c)
		}
	}
}
