package vm

import (
	"fmt"

	"github.com/strandvm/strand/pkg/bytecode"
)

// Runner drives dialogue execution. It is stateless apart from its
// library and may serve any number of concurrent runs; all per-run
// state travels through checkpoints.
type Runner struct {
	library *Library

	// MaxInstructions bounds the number of instructions one Step may
	// execute before failing with ErrBudgetExceeded. Zero means
	// unbounded. A cyclic jump with no suspending instruction never
	// terminates on its own; bounding it is host policy, and this is
	// the hook for it.
	MaxInstructions int
}

// NewRunner creates a runner dispatching calls through the given
// library. A nil library means built-ins only.
func NewRunner(library *Library) *Runner {
	if library == nil {
		library = NewLibrary()
	}
	return &Runner{library: library}
}

// Library returns the runner's function library, for host registration.
func (r *Runner) Library() *Library {
	return r.library
}

// Step advances the run from cp until the next suspend point and
// returns the new checkpoint plus the event that caused the
// suspension. resume must be nil except immediately after a
// ShowOptions event, when it must carry the chosen option's index.
//
// Step never mutates cp. On error the returned checkpoint is nil and
// cp remains valid to retry or discard.
func (r *Runner) Step(p *bytecode.Program, cp *Checkpoint, vars VariableStore, resume *ResumeInput) (*Checkpoint, Event, error) {
	if cp == nil {
		return nil, nil, fmt.Errorf("vm: nil checkpoint")
	}
	if cp.Done {
		return nil, nil, ErrAlreadyComplete
	}

	next := cp.Clone()

	if next.AwaitingSelection {
		if resume == nil {
			return nil, nil, fmt.Errorf("%w: selection required after show-options", ErrInvalidResumeInput)
		}
		if err := r.selectOption(p, next, resume.Selection); err != nil {
			return nil, nil, err
		}
	} else if resume != nil {
		return nil, nil, fmt.Errorf("%w: no selection expected", ErrInvalidResumeInput)
	}

	return r.run(p, next, vars)
}

// selectOption answers a pending ShowOptions suspension by performing
// the chosen option's node transfer, run-node style: execution returns
// to the instruction after show-options if the destination returns or
// falls through.
func (r *Runner) selectOption(p *bytecode.Program, next *Checkpoint, selection int) error {
	if selection < 0 || selection >= len(next.Pending) {
		return fmt.Errorf("%w: selection %d out of range (have %d options)",
			ErrInvalidResumeInput, selection, len(next.Pending))
	}
	opt := next.Pending[selection]
	if !opt.Enabled {
		return fmt.Errorf("%w: option %d is disabled", ErrInvalidResumeInput, selection)
	}
	if _, ok := p.Node(opt.Destination); !ok {
		return fmt.Errorf("%w: option destination %q", ErrUnknownNode, opt.Destination)
	}

	next.Pending = nil
	next.AwaitingSelection = false
	next.Calls = append(next.Calls, ReturnFrame{Node: next.Node, PC: next.PC})
	enterNode(next, opt.Destination)
	return nil
}

// run executes instructions until a suspend point.
func (r *Runner) run(p *bytecode.Program, next *Checkpoint, vars VariableStore) (*Checkpoint, Event, error) {
	node, ok := p.Node(next.Node)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownNode, next.Node)
	}

	executed := 0
	for {
		if r.MaxInstructions > 0 && executed >= r.MaxInstructions {
			return nil, nil, fmt.Errorf("%w: %d instructions without suspending in node %q",
				ErrBudgetExceeded, executed, next.Node)
		}

		// Falling off the end of a node runs an implicit return while
		// call frames remain, otherwise an implicit stop.
		if next.PC >= len(node.Instructions) {
			if len(next.Calls) > 0 {
				frame := next.Calls[len(next.Calls)-1]
				next.Calls = next.Calls[:len(next.Calls)-1]
				node, ok = p.Node(frame.Node)
				if !ok {
					return nil, nil, fmt.Errorf("%w: return to %q", ErrUnknownNode, frame.Node)
				}
				next.Node = frame.Node
				next.PC = frame.PC
				continue
			}
			next.Done = true
			return next, DialogueComplete{}, nil
		}

		in := node.Instructions[next.PC]
		executed++

		fail := func(err error) (*Checkpoint, Event, error) {
			return nil, nil, &StepError{Node: node.Name, PC: next.PC, Op: in.Op, Err: err}
		}

		switch in.Op {
		case bytecode.OpPushString, bytecode.OpPushNumber, bytecode.OpPushBool:
			if len(in.Operands) == 0 {
				return fail(bytecode.ErrMissingOperand)
			}
			next.push(in.Operands[0])
			next.PC++

		case bytecode.OpPushNull:
			return fail(ErrRetiredInstruction)

		case bytecode.OpPop:
			if _, err := next.popAny(); err != nil {
				return fail(err)
			}
			next.PC++

		case bytecode.OpJumpToLabel:
			label, err := in.StringOperand(0)
			if err != nil {
				return fail(err)
			}
			target, err := node.ResolveLabel(label)
			if err != nil {
				return fail(err)
			}
			next.PC = target

		case bytecode.OpJump:
			label, err := next.popString()
			if err != nil {
				return fail(err)
			}
			target, err := node.ResolveLabel(label)
			if err != nil {
				return fail(err)
			}
			next.PC = target

		case bytecode.OpJumpIfFalse:
			cond, err := next.peekBool()
			if err != nil {
				return fail(err)
			}
			if cond {
				next.PC++
				break
			}
			label, err := in.StringOperand(0)
			if err != nil {
				return fail(err)
			}
			target, err := node.ResolveLabel(label)
			if err != nil {
				return fail(err)
			}
			next.PC = target

		case bytecode.OpRunLine:
			key, subs, err := contentOperands(next, in)
			if err != nil {
				return fail(err)
			}
			next.PC++
			return next, ShowLine{Key: key, Substitutions: subs}, nil

		case bytecode.OpRunCommand:
			key, subs, err := contentOperands(next, in)
			if err != nil {
				return fail(err)
			}
			next.PC++
			return next, RunCommand{Key: key, Substitutions: subs}, nil

		case bytecode.OpAddOption:
			if err := addOption(next, in); err != nil {
				return fail(err)
			}
			next.PC++

		case bytecode.OpShowOptions:
			if len(next.Pending) == 0 {
				return fail(ErrNoPendingOptions)
			}
			options := append([]Option(nil), next.Pending...)
			next.PC++
			next.AwaitingSelection = true
			return next, ShowOptions{Options: options}, nil

		case bytecode.OpPushVariable:
			name, err := in.StringOperand(0)
			if err != nil {
				return fail(err)
			}
			value, ok := vars.Get(name)
			if !ok {
				value, ok = p.InitialValue(name)
			}
			if !ok {
				return fail(fmt.Errorf("%w: %q", ErrUndefinedVariable, name))
			}
			next.push(value)
			next.PC++

		case bytecode.OpStoreVariable:
			name, err := in.StringOperand(0)
			if err != nil {
				return fail(err)
			}
			value, err := next.peekAny()
			if err != nil {
				return fail(err)
			}
			vars.Set(name, value)
			next.PC++

		case bytecode.OpCallFunc:
			name, err := in.StringOperand(0)
			if err != nil {
				return fail(err)
			}
			argcf, err := in.NumberOperand(1)
			if err != nil {
				return fail(err)
			}
			argc := int(argcf)
			if argc < 0 || argc > len(next.Stack) {
				return fail(fmt.Errorf("%w: need %d arguments, have %d", ErrStackUnderflow, argc, len(next.Stack)))
			}
			args := make([]bytecode.Value, argc)
			for i := argc - 1; i >= 0; i-- {
				args[i], _ = next.popAny()
			}
			cx := &CallContext{Program: p, Variables: vars, Visits: next.Visits}
			result, err := r.library.Call(name, cx, args)
			if err != nil {
				return fail(err)
			}
			next.push(result)
			next.PC++

		case bytecode.OpRunNode:
			var dest string
			var err error
			if len(in.Operands) > 0 {
				dest, err = in.StringOperand(0)
			} else {
				dest, err = next.popString()
			}
			if err != nil {
				return fail(err)
			}
			target, ok := p.Node(dest)
			if !ok {
				return fail(fmt.Errorf("%w: %q", ErrUnknownNode, dest))
			}
			next.Calls = append(next.Calls, ReturnFrame{Node: node.Name, PC: next.PC + 1})
			enterNode(next, dest)
			node = target

		case bytecode.OpReturn:
			if len(next.Calls) == 0 {
				return fail(ErrCallStackUnderflow)
			}
			frame := next.Calls[len(next.Calls)-1]
			next.Calls = next.Calls[:len(next.Calls)-1]
			target, ok := p.Node(frame.Node)
			if !ok {
				return fail(fmt.Errorf("%w: return to %q", ErrUnknownNode, frame.Node))
			}
			next.Node = frame.Node
			next.PC = frame.PC
			node = target

		case bytecode.OpStop:
			next.PC++
			next.Done = true
			return next, DialogueComplete{}, nil

		default:
			return fail(fmt.Errorf("%w: opcode 0x%02X", bytecode.ErrUnsupportedInstruction, byte(in.Op)))
		}
	}
}

// enterNode records the transfer in the checkpoint and counts the
// visit. Callers have already validated the destination.
func enterNode(next *Checkpoint, name string) {
	next.Node = name
	next.PC = 0
	if next.Visits == nil {
		next.Visits = make(map[string]int)
	}
	next.Visits[name]++
}

// contentOperands decodes the shared run-line/run-command shape: a
// string key plus an optional substitution count naming how many stack
// values fill the {n} placeholders.
func contentOperands(next *Checkpoint, in bytecode.Instruction) (string, []string, error) {
	key, err := in.StringOperand(0)
	if err != nil {
		return "", nil, err
	}
	var subs []string
	if len(in.Operands) > 1 {
		count, err := in.NumberOperand(1)
		if err != nil {
			return "", nil, err
		}
		subs, err = next.popSubstitutions(int(count))
		if err != nil {
			return "", nil, err
		}
	}
	return key, subs, nil
}

// addOption accumulates one pending option. When the instruction
// declares a condition, the popped boolean decides whether the option
// is selectable; substitution values are popped first, condition last,
// mirroring the compiler's push order.
func addOption(next *Checkpoint, in bytecode.Instruction) error {
	key, err := in.StringOperand(0)
	if err != nil {
		return err
	}
	dest, err := in.StringOperand(1)
	if err != nil {
		return err
	}

	var subs []string
	if len(in.Operands) > 2 {
		count, err := in.NumberOperand(2)
		if err != nil {
			return err
		}
		subs, err = next.popSubstitutions(int(count))
		if err != nil {
			return err
		}
	}

	enabled := true
	if len(in.Operands) > 3 {
		hasCondition, err := in.BoolOperand(3)
		if err != nil {
			return err
		}
		if hasCondition {
			enabled, err = next.popBool()
			if err != nil {
				return err
			}
		}
	}

	next.Pending = append(next.Pending, Option{
		Key:           key,
		Substitutions: subs,
		Destination:   dest,
		Enabled:       enabled,
	})
	return nil
}
