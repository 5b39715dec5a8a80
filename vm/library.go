package vm

import (
	"fmt"

	"github.com/strandvm/strand/pkg/bytecode"
)

// CallContext gives a function access to the run it was called from:
// the program, the host's variable store, and this run's visit counts.
type CallContext struct {
	Program   *bytecode.Program
	Variables VariableStore
	Visits    map[string]int
}

// VisitCount returns how many times the named node has been entered.
func (cx *CallContext) VisitCount(node string) int {
	return cx.Visits[node]
}

// Func is a callable registered with a Library: the operator and query
// surface the bytecode's call-function instruction dispatches to.
type Func func(cx *CallContext, args []bytecode.Value) (bytecode.Value, error)

// Library maps function names to callables. Resolution is
// host-registered first, then built-ins, so hosts may shadow any
// built-in by name. The registry is not required to be fully known at
// program build time; an unresolved name surfaces when called.
type Library struct {
	host     map[string]Func
	builtins map[string]Func
}

// NewLibrary returns a library with the standard built-ins installed.
func NewLibrary() *Library {
	l := &Library{
		host:     make(map[string]Func),
		builtins: make(map[string]Func),
	}
	registerBuiltins(l)
	return l
}

// Register installs a host function. It shadows a built-in of the same
// name.
func (l *Library) Register(name string, fn Func) {
	l.host[name] = fn
}

// Resolve finds the callable a name currently dispatches to.
func (l *Library) Resolve(name string) (Func, bool) {
	if fn, ok := l.host[name]; ok {
		return fn, true
	}
	fn, ok := l.builtins[name]
	return fn, ok
}

// Call invokes the named function. An unresolved name is
// ErrUnknownFunction; a failure inside the function is wrapped as
// ErrFunctionFailed.
func (l *Library) Call(name string, cx *CallContext, args []bytecode.Value) (bytecode.Value, error) {
	fn, ok := l.Resolve(name)
	if !ok {
		return bytecode.Value{}, fmt.Errorf("%w: %q", ErrUnknownFunction, name)
	}
	result, err := fn(cx, args)
	if err != nil {
		return bytecode.Value{}, fmt.Errorf("%w: %q: %v", ErrFunctionFailed, name, err)
	}
	return result, nil
}

func (l *Library) registerBuiltin(name string, fn Func) {
	l.builtins[name] = fn
}
