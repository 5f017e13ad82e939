package protocol

type ResultKind int

const (
	ResultValue ResultKind = iota
	ResultDebugValue
	ResultAction
	ResultError
)

// ReturnValue is one item a command yields: a value to pass on, a value to
// pretty-print, an action to perform, or an error.
type ReturnValue struct {
	Kind   ResultKind
	Value  Value
	Action CommandAction
	Err    *ShellError
}

func ValueResult(v Value) ReturnValue {
	return ReturnValue{Kind: ResultValue, Value: v}
}

func DebugValueResult(v Value) ReturnValue {
	return ReturnValue{Kind: ResultDebugValue, Value: v}
}

func ActionResult(a CommandAction) ReturnValue {
	return ReturnValue{Kind: ResultAction, Action: a}
}

func ErrorResult(err *ShellError) ReturnValue {
	return ReturnValue{Kind: ResultError, Err: err}
}

// ChangeCwd is the result a directory-changing command yields.
func ChangeCwd(path string) ReturnValue {
	return ActionResult(ChangePath{Path: path})
}

// RawValue returns the carried value of a Value or DebugValue result.
func (r ReturnValue) RawValue() (Value, bool) {
	switch r.Kind {
	case ResultValue, ResultDebugValue:
		return r.Value, true
	default:
		return Value{}, false
	}
}

func (r ReturnValue) Describe() string {
	switch r.Kind {
	case ResultValue:
		return "value " + r.Value.TypeName()
	case ResultDebugValue:
		return "debug value " + r.Value.TypeName()
	case ResultAction:
		return "action " + r.Action.Describe()
	case ResultError:
		return "error " + r.Err.Error()
	default:
		return "unknown"
	}
}
