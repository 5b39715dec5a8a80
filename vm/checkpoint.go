package vm

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/strandvm/strand/pkg/bytecode"
)

// cborEncMode uses canonical options so encoding a checkpoint is
// deterministic.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// ReturnFrame records where execution resumes after a run-node transfer
// returns.
type ReturnFrame struct {
	Node string `cbor:"node"`
	PC   int    `cbor:"pc"`
}

// Checkpoint is the complete execution state of one dialogue run. It is
// plain data: opaque to the host for interpretation, transparent for
// storage. Given the same Program and variable contents, resuming from
// a checkpoint is deterministic.
//
// PC is always a valid index into the current node's instructions, or
// equal to their length ("fall through": run an implicit stop, or an
// implicit return while call frames remain).
type Checkpoint struct {
	Node    string                `cbor:"node"`
	PC      int                   `cbor:"pc"`
	Stack   []bytecode.Value      `cbor:"stack,omitempty"`
	Calls   []ReturnFrame         `cbor:"calls,omitempty"`
	Pending []Option              `cbor:"pending,omitempty"`
	Visits  map[string]int        `cbor:"visits,omitempty"`

	// AwaitingSelection is set between a ShowOptions event and the
	// resume that answers it.
	AwaitingSelection bool `cbor:"awaiting,omitempty"`

	// Done marks a terminal checkpoint; further steps fail.
	Done bool `cbor:"done,omitempty"`
}

// NewCheckpoint creates the initial state for a run beginning at the
// named node. The entry counts as that node's first visit.
func NewCheckpoint(p *bytecode.Program, start string) (*Checkpoint, error) {
	if _, ok := p.Node(start); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNode, start)
	}
	return &Checkpoint{
		Node:   start,
		Visits: map[string]int{start: 1},
	}, nil
}

// Clone returns a deep copy. Step works on a clone so the input
// checkpoint survives any failure unchanged.
func (c *Checkpoint) Clone() *Checkpoint {
	dup := &Checkpoint{
		Node:              c.Node,
		PC:                c.PC,
		AwaitingSelection: c.AwaitingSelection,
		Done:              c.Done,
	}
	if len(c.Stack) > 0 {
		dup.Stack = append([]bytecode.Value(nil), c.Stack...)
	}
	if len(c.Calls) > 0 {
		dup.Calls = append([]ReturnFrame(nil), c.Calls...)
	}
	if len(c.Pending) > 0 {
		dup.Pending = make([]Option, len(c.Pending))
		for i, opt := range c.Pending {
			dup.Pending[i] = opt
			if len(opt.Substitutions) > 0 {
				dup.Pending[i].Substitutions = append([]string(nil), opt.Substitutions...)
			}
		}
	}
	if len(c.Visits) > 0 {
		dup.Visits = make(map[string]int, len(c.Visits))
		for node, count := range c.Visits {
			dup.Visits[node] = count
		}
	}
	return dup
}

// Marshal serializes the checkpoint to canonical CBOR.
func (c *Checkpoint) Marshal() ([]byte, error) {
	data, err := cborEncMode.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("vm: marshal checkpoint: %w", err)
	}
	return data, nil
}

// UnmarshalCheckpoint reconstructs a checkpoint from Marshal output.
func UnmarshalCheckpoint(data []byte) (*Checkpoint, error) {
	var c Checkpoint
	if err := cbor.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("vm: unmarshal checkpoint: %w", err)
	}
	return &c, nil
}

// VisitCount returns how many times the named node has been entered
// during this run.
func (c *Checkpoint) VisitCount(node string) int {
	return c.Visits[node]
}
