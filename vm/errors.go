package vm

import (
	"errors"
	"fmt"

	"github.com/strandvm/strand/pkg/bytecode"
)

// Runtime errors. Every failure is fatal to the Step call that raised
// it; the machine never silently recovers, because narrative state must
// not diverge from authored intent. The input checkpoint is left
// untouched.
var (
	ErrStackUnderflow       = errors.New("evaluation stack underflow")
	ErrCallStackUnderflow   = errors.New("call stack underflow")
	ErrUnknownNode          = errors.New("unknown node")
	ErrUnknownFunction      = errors.New("unknown function")
	ErrUndefinedVariable    = errors.New("undefined variable")
	ErrInvalidResumeInput   = errors.New("invalid resume input")
	ErrFunctionFailed       = errors.New("function call failed")
	ErrAlreadyComplete      = errors.New("dialogue already complete")
	ErrRetiredInstruction   = errors.New("instruction is no longer supported")
	ErrNoPendingOptions     = errors.New("show-options with no pending options")
	ErrBudgetExceeded       = errors.New("instruction budget exceeded")
)

// StepError wraps a runtime error with the execution site that raised
// it: node, instruction pointer and opcode.
type StepError struct {
	Node string
	PC   int
	Op   bytecode.Opcode
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("story error at #%d in node %q - %s: %v", e.PC, e.Node, e.Op, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
