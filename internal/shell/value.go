package shell

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/sousajf1/nushell/internal/protocol"
)

// ValueShell explores a value as if its rows were directories.
type ValueShell struct {
	root protocol.Value
	path string
}

func NewValueShell(v protocol.Value) *ValueShell {
	return &ValueShell{root: v, path: "/"}
}

func (s *ValueShell) Name() string { return "value" }

func (s *ValueShell) Path() string { return s.path }

func (s *ValueShell) SetPath(p string) { s.path = p }

func (s *ValueShell) Cd(target string) (string, error) {
	if target == "" {
		return "/", nil
	}
	next := target
	if !strings.HasPrefix(target, "/") {
		next = path.Join(s.path, target)
	}
	next = path.Clean(next)
	if _, ok := s.root.Get(members(next)...); !ok {
		return "", fmt.Errorf("can not change to path inside value: %s", target)
	}
	return next, nil
}

func (s *ValueShell) Ls(_ context.Context, tag protocol.Tag) ([]protocol.Value, error) {
	cur, ok := s.root.Get(members(s.path)...)
	if !ok {
		return nil, fmt.Errorf("%s does not exist inside the value", s.path)
	}
	switch u := cur.Value.(type) {
	case protocol.Row:
		out := make([]protocol.Value, 0, u.Entries.Len())
		u.Entries.Range(func(k string, v protocol.Value) bool {
			out = append(out, protocol.NewRowBuilder().
				Insert("name", protocol.StringValue(k, tag)).
				Insert("type", protocol.StringValue(v.TypeName(), tag)).
				Build(tag))
			return true
		})
		return out, nil
	case protocol.Table:
		return append([]protocol.Value(nil), u...), nil
	default:
		return []protocol.Value{cur}, nil
	}
}

func members(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}
