package engine

import (
	"sort"
	"sync"

	"github.com/sousajf1/nushell/internal/hir"
	"github.com/sousajf1/nushell/internal/indexmap"
	"github.com/sousajf1/nushell/internal/protocol"
)

// Frame holds the bindings of one lexical scope.
type Frame struct {
	vars           *indexmap.Map[string, protocol.Value]
	env            *indexmap.Map[string, string]
	commands       *indexmap.Map[string, Command]
	customCommands *indexmap.Map[string, *hir.Block]
	aliases        *indexmap.Map[string, []protocol.Spanned[string]]
}

func NewFrame() *Frame {
	return &Frame{
		vars:           indexmap.New[string, protocol.Value](),
		env:            indexmap.New[string, string](),
		commands:       indexmap.New[string, Command](),
		customCommands: indexmap.New[string, *hir.Block](),
		aliases:        indexmap.New[string, []protocol.Spanned[string]](),
	}
}

// Scope is the stack of frames. Lookups go from the innermost frame out and
// the first match wins; every mutation lands in the innermost frame. The
// global frame is never popped.
type Scope struct {
	mu     sync.Mutex
	frames []*Frame
}

func NewScope() *Scope {
	return &Scope{frames: []*Frame{NewFrame()}}
}

func (s *Scope) current() *Frame { return s.frames[len(s.frames)-1] }

func (s *Scope) EnterScope() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, NewFrame())
}

// ExitScope pops the innermost frame. Popping the global frame is a no-op.
func (s *Scope) ExitScope() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.frames) > 1 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

func (s *Scope) Depth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.frames)
}

// ScopeGuard pops the frame pushed by Enter when released. Release is safe
// to call more than once.
type ScopeGuard struct {
	scope *Scope
	once  sync.Once
}

func (s *Scope) Enter() *ScopeGuard {
	s.EnterScope()
	return &ScopeGuard{scope: s}
}

func (g *ScopeGuard) Release() {
	g.once.Do(g.scope.ExitScope)
}

func (s *Scope) GetCommand(name string) (Command, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.frames) - 1; i >= 0; i-- {
		if cmd, ok := s.frames[i].commands.Get(name); ok {
			return cmd, true
		}
	}
	return nil, false
}

// ExpectCommand is GetCommand failing with a MissingCommand error.
func (s *Scope) ExpectCommand(name string) (Command, error) {
	if cmd, ok := s.GetCommand(name); ok {
		return cmd, nil
	}
	return nil, protocol.MissingCommandError(name, protocol.UnknownSpan())
}

func (s *Scope) AddCommand(name string, cmd Command) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current().commands.Set(name, cmd)
}

// AddDefinition stores a user-defined command body together with the
// command that runs it.
func (s *Scope) AddDefinition(block *hir.Block) {
	name := block.Params.Name
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.current()
	f.customCommands.Set(name, block)
	f.commands.Set(name, &customCommand{block: block})
}

// GetDefinitions returns the definitions of the innermost frame only.
func (s *Scope) GetDefinitions() []*hir.Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.current()
	out := make([]*hir.Block, 0, f.customCommands.Len())
	f.customCommands.Range(func(_ string, b *hir.Block) bool {
		out = append(out, b)
		return true
	})
	return out
}

// GetCommandNames lists every visible command name once, sorted.
func (s *Scope) GetCommandNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool)
	var names []string
	for _, f := range s.frames {
		for _, name := range f.commands.Keys() {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func (s *Scope) HasCommand(name string) bool {
	_, ok := s.GetCommand(name)
	return ok
}

func (s *Scope) HasCustomCommand(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.frames {
		if f.customCommands.Has(name) {
			return true
		}
	}
	return false
}

func (s *Scope) HasAlias(name string) bool {
	_, ok := s.GetAlias(name)
	return ok
}

func (s *Scope) GetSignature(name string) (protocol.Signature, bool) {
	cmd, ok := s.GetCommand(name)
	if !ok {
		return protocol.Signature{}, false
	}
	return cmd.Signature(), true
}

func (s *Scope) HasSignature(name string) bool {
	return s.HasCommand(name)
}

func (s *Scope) GetVar(name string) (protocol.Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.frames) - 1; i >= 0; i-- {
		if v, ok := s.frames[i].vars.Get(name); ok {
			return v, true
		}
	}
	return protocol.Value{}, false
}

// GetVars merges the variables of every frame, inner frames overriding outer.
func (s *Scope) GetVars() *indexmap.Map[string, protocol.Value] {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := indexmap.New[string, protocol.Value]()
	for _, f := range s.frames {
		out.Extend(f.vars)
	}
	return out
}

func (s *Scope) AddVar(name string, v protocol.Value) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current().vars.Set(name, v)
}

func (s *Scope) AddVars(vars *indexmap.Map[string, protocol.Value]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current().vars.Extend(vars)
}

// GetEnvVars merges the environment of every frame, inner frames overriding
// outer.
func (s *Scope) GetEnvVars() *indexmap.Map[string, string] {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := indexmap.New[string, string]()
	for _, f := range s.frames {
		out.Extend(f.env)
	}
	return out
}

func (s *Scope) GetEnvVar(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.frames) - 1; i >= 0; i-- {
		if v, ok := s.frames[i].env.Get(name); ok {
			return v, true
		}
	}
	return "", false
}

func (s *Scope) AddEnvVar(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current().env.Set(name, value)
}

func (s *Scope) AddEnv(env *indexmap.Map[string, string]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current().env.Extend(env)
}

func (s *Scope) GetAlias(name string) ([]protocol.Spanned[string], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.frames) - 1; i >= 0; i-- {
		if a, ok := s.frames[i].aliases.Get(name); ok {
			return a, true
		}
	}
	return nil, false
}

func (s *Scope) AddAlias(name string, replacement []protocol.Spanned[string]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current().aliases.Set(name, replacement)
}
