package bytecode

import (
	"errors"
	"fmt"
)

// ErrUnknownLabel is returned when a jump names a label the current node
// does not define.
var ErrUnknownLabel = errors.New("unknown label")

// Instruction is one decoded dialogue instruction: an opcode plus the
// operands its semantics require.
type Instruction struct {
	Op       Opcode
	Operands []Value
}

// StringOperand returns operand index as a string, or an error if the
// operand is missing or of the wrong kind.
func (in Instruction) StringOperand(index int) (string, error) {
	if index >= len(in.Operands) {
		return "", fmt.Errorf("%w: %s operand %d", ErrMissingOperand, in.Op, index)
	}
	return in.Operands[index].AsString()
}

// NumberOperand returns operand index as a number.
func (in Instruction) NumberOperand(index int) (float64, error) {
	if index >= len(in.Operands) {
		return 0, fmt.Errorf("%w: %s operand %d", ErrMissingOperand, in.Op, index)
	}
	return in.Operands[index].AsNumber()
}

// BoolOperand returns operand index as a boolean.
func (in Instruction) BoolOperand(index int) (bool, error) {
	if index >= len(in.Operands) {
		return false, fmt.Errorf("%w: %s operand %d", ErrMissingOperand, in.Op, index)
	}
	return in.Operands[index].AsBool()
}

// Node is a named, closed sequence of instructions. Jumps are scoped to
// the node; only OpRunNode/OpReturn (and option selection) cross node
// boundaries.
type Node struct {
	Name         string
	Instructions []Instruction
	Labels       map[string]int // label name -> instruction index
	Tags         []string
}

// ResolveLabel maps a label name to its instruction index within the node.
func (n *Node) ResolveLabel(name string) (int, error) {
	pc, ok := n.Labels[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q in node %q", ErrUnknownLabel, name, n.Name)
	}
	return pc, nil
}

// StringEntry is one string-table row: display text with numbered {n}
// substitution placeholders, plus per-string metadata tags.
type StringEntry struct {
	Text string
	Tags []string
}

// Program is the merged, immutable representation of one or more
// compiled dialogue files. A built Program is never mutated and may be
// shared read-only across any number of concurrent runs.
type Program struct {
	Nodes         map[string]*Node
	Strings       map[string]StringEntry
	InitialValues map[string]Value
}

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{
		Nodes:         make(map[string]*Node),
		Strings:       make(map[string]StringEntry),
		InitialValues: make(map[string]Value),
	}
}

// Node returns the named node, if present.
func (p *Program) Node(name string) (*Node, bool) {
	n, ok := p.Nodes[name]
	return n, ok
}

// InitialValue returns the declared default for a variable, if any.
func (p *Program) InitialValue(name string) (Value, bool) {
	v, ok := p.InitialValues[name]
	return v, ok
}

// StringEntry returns the string-table entry for a key, if present.
func (p *Program) StringEntry(key string) (StringEntry, bool) {
	e, ok := p.Strings[key]
	return e, ok
}
