package shell

import (
	"context"
	"fmt"
	"strings"

	"github.com/sousajf1/nushell/internal/protocol"
)

// CommandRegistry is the view of registered commands the help shell browses.
type CommandRegistry interface {
	GetCommandNames() []string
	GetSignature(name string) (protocol.Signature, bool)
}

// HelpShell browses command documentation. "/" lists every command and
// "/<name>" the parameters of one.
type HelpShell struct {
	registry CommandRegistry
	path     string
}

// NewHelpShellIndex opens the help browser at the full command index.
func NewHelpShellIndex(registry CommandRegistry) *HelpShell {
	return &HelpShell{registry: registry, path: "/"}
}

// NewHelpShellForCommand opens the help browser on one command.
func NewHelpShellForCommand(registry CommandRegistry, name string) (*HelpShell, error) {
	if _, ok := registry.GetSignature(name); !ok {
		return nil, fmt.Errorf("no help available for unknown command '%s'", name)
	}
	return &HelpShell{registry: registry, path: "/" + name}, nil
}

func (s *HelpShell) Name() string { return "help" }

func (s *HelpShell) Path() string { return s.path }

func (s *HelpShell) SetPath(p string) { s.path = p }

func (s *HelpShell) Cd(target string) (string, error) {
	switch target {
	case "", "/", "..":
		return "/", nil
	}
	name := strings.TrimPrefix(target, "/")
	if _, ok := s.registry.GetSignature(name); !ok {
		return "", fmt.Errorf("no help available for unknown command '%s'", name)
	}
	return "/" + name, nil
}

func (s *HelpShell) Ls(_ context.Context, tag protocol.Tag) ([]protocol.Value, error) {
	name := strings.TrimPrefix(s.path, "/")
	if name == "" {
		names := s.registry.GetCommandNames()
		out := make([]protocol.Value, 0, len(names))
		for _, n := range names {
			sig, _ := s.registry.GetSignature(n)
			out = append(out, protocol.NewRowBuilder().
				Insert("name", protocol.StringValue(n, tag)).
				Insert("description", protocol.StringValue(sig.Usage, tag)).
				Build(tag))
		}
		return out, nil
	}

	sig, ok := s.registry.GetSignature(name)
	if !ok {
		return nil, fmt.Errorf("no help available for unknown command '%s'", name)
	}
	return SignatureRows(sig, tag), nil
}

// SignatureRows describes every parameter of sig as a row.
func SignatureRows(sig protocol.Signature, tag protocol.Tag) []protocol.Value {
	row := func(name, kind, shape, desc string) protocol.Value {
		return protocol.NewRowBuilder().
			Insert("parameter", protocol.StringValue(name, tag)).
			Insert("kind", protocol.StringValue(kind, tag)).
			Insert("type", protocol.StringValue(shape, tag)).
			Insert("description", protocol.StringValue(desc, tag)).
			Build(tag)
	}

	var out []protocol.Value
	for _, p := range sig.Positional {
		kind := "required"
		if p.Optional {
			kind = "optional"
		}
		out = append(out, row(p.Name, kind, p.Shape.String(), p.Desc))
	}
	if sig.Rest != nil {
		out = append(out, row("...rest", "rest", sig.Rest.Shape.String(), sig.Rest.Desc))
	}
	for _, n := range sig.Named {
		if n.Switch {
			out = append(out, row("--"+n.Name, "switch", "", n.Desc))
			continue
		}
		out = append(out, row("--"+n.Name, "flag", n.Shape.String(), n.Desc))
	}
	return out
}
