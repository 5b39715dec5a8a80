package vm

import (
	"fmt"

	"github.com/strandvm/strand/pkg/bytecode"
)

// Evaluation-stack helpers. The stack itself lives in the checkpoint so
// it survives suspension; these methods are the only mutation points.

func (c *Checkpoint) push(v bytecode.Value) {
	c.Stack = append(c.Stack, v)
}

func (c *Checkpoint) popAny() (bytecode.Value, error) {
	if len(c.Stack) == 0 {
		return bytecode.Value{}, ErrStackUnderflow
	}
	v := c.Stack[len(c.Stack)-1]
	c.Stack = c.Stack[:len(c.Stack)-1]
	return v, nil
}

func (c *Checkpoint) peekAny() (bytecode.Value, error) {
	if len(c.Stack) == 0 {
		return bytecode.Value{}, ErrStackUnderflow
	}
	return c.Stack[len(c.Stack)-1], nil
}

func (c *Checkpoint) popString() (string, error) {
	v, err := c.popAny()
	if err != nil {
		return "", err
	}
	return v.AsString()
}

func (c *Checkpoint) popBool() (bool, error) {
	v, err := c.popAny()
	if err != nil {
		return false, err
	}
	return v.AsBool()
}

func (c *Checkpoint) peekBool() (bool, error) {
	v, err := c.peekAny()
	if err != nil {
		return false, err
	}
	return v.AsBool()
}

// popSubstitutions pops count values pushed in argument order and
// reassembles them left to right, formatted for placeholder insertion.
func (c *Checkpoint) popSubstitutions(count int) ([]string, error) {
	if count == 0 {
		return nil, nil
	}
	if count < 0 || count > len(c.Stack) {
		return nil, fmt.Errorf("%w: need %d substitution values, have %d", ErrStackUnderflow, count, len(c.Stack))
	}
	subs := make([]string, count)
	for i := count - 1; i >= 0; i-- {
		v, err := c.popAny()
		if err != nil {
			return nil, err
		}
		subs[i] = v.Format()
	}
	return subs, nil
}
