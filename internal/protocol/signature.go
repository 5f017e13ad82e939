package protocol

// SyntaxShape is the expected shape of an argument.
type SyntaxShape int

const (
	ShapeAny SyntaxShape = iota
	ShapeString
	ShapeInt
	ShapeNumber
	ShapePath
)

func (s SyntaxShape) String() string {
	switch s {
	case ShapeString:
		return "string"
	case ShapeInt:
		return "int"
	case ShapeNumber:
		return "number"
	case ShapePath:
		return "path"
	default:
		return "any"
	}
}

type PositionalArg struct {
	Name     string
	Shape    SyntaxShape
	Optional bool
	Desc     string
}

// NamedArg is a --flag. A switch takes no value.
type NamedArg struct {
	Name   string
	Shape  SyntaxShape
	Switch bool
	Desc   string
}

// Signature describes how a command is called. The parser uses it to decide
// which flags take values and how many positionals are allowed.
type Signature struct {
	Name       string
	Usage      string
	Positional []PositionalArg
	Rest       *PositionalArg
	Named      []NamedArg
}

func NewSignature(name string) Signature {
	return Signature{Name: name}
}

func (s Signature) Desc(usage string) Signature {
	s.Usage = usage
	return s
}

func (s Signature) Required(name string, shape SyntaxShape, desc string) Signature {
	s.Positional = append(append([]PositionalArg(nil), s.Positional...),
		PositionalArg{Name: name, Shape: shape, Desc: desc})
	return s
}

func (s Signature) Optional(name string, shape SyntaxShape, desc string) Signature {
	s.Positional = append(append([]PositionalArg(nil), s.Positional...),
		PositionalArg{Name: name, Shape: shape, Optional: true, Desc: desc})
	return s
}

func (s Signature) Switch(name, desc string) Signature {
	s.Named = append(append([]NamedArg(nil), s.Named...),
		NamedArg{Name: name, Switch: true, Desc: desc})
	return s
}

func (s Signature) Flag(name string, shape SyntaxShape, desc string) Signature {
	s.Named = append(append([]NamedArg(nil), s.Named...),
		NamedArg{Name: name, Shape: shape, Desc: desc})
	return s
}

func (s Signature) RestArgs(shape SyntaxShape, desc string) Signature {
	s.Rest = &PositionalArg{Name: "rest", Shape: shape, Optional: true, Desc: desc}
	return s
}

func (s Signature) LookupFlag(name string) (NamedArg, bool) {
	for _, n := range s.Named {
		if n.Name == name {
			return n, true
		}
	}
	return NamedArg{}, false
}

// RequiredCount is the number of leading positionals that must be present.
func (s Signature) RequiredCount() int {
	n := 0
	for _, p := range s.Positional {
		if p.Optional {
			break
		}
		n++
	}
	return n
}
