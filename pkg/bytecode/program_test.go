package bytecode

import (
	"errors"
	"strings"
	"testing"
)

func TestResolveLabel(t *testing.T) {
	n := &Node{Name: "Start", Labels: map[string]int{"loop": 3}}

	pc, err := n.ResolveLabel("loop")
	if err != nil || pc != 3 {
		t.Errorf("ResolveLabel = %d, %v", pc, err)
	}
	if _, err := n.ResolveLabel("missing"); !errors.Is(err, ErrUnknownLabel) {
		t.Errorf("error = %v, want ErrUnknownLabel", err)
	}
}

func TestInstructionOperands(t *testing.T) {
	in := Instruction{Op: OpAddOption, Operands: []Value{
		StringValue("opt:key"),
		StringValue("NodeA"),
		NumberValue(2),
		BoolValue(true),
	}}

	if s, err := in.StringOperand(0); err != nil || s != "opt:key" {
		t.Errorf("StringOperand(0) = %q, %v", s, err)
	}
	if n, err := in.NumberOperand(2); err != nil || n != 2 {
		t.Errorf("NumberOperand(2) = %v, %v", n, err)
	}
	if b, err := in.BoolOperand(3); err != nil || !b {
		t.Errorf("BoolOperand(3) = %v, %v", b, err)
	}

	if _, err := in.StringOperand(9); !errors.Is(err, ErrMissingOperand) {
		t.Errorf("missing operand error = %v", err)
	}
	if _, err := in.NumberOperand(0); !errors.Is(err, ErrWrongType) {
		t.Errorf("wrong-kind operand error = %v", err)
	}
}

func TestDisassembleListsNodesAndLabels(t *testing.T) {
	p := sampleProgram()
	listing := Disassemble(p)

	for _, want := range []string{
		"=== Start ===",
		"=== End ===",
		"PUSH_NUMBER",
		"JUMP_TO_LABEL",
		"end:",
		`"$gold"`,
		"$name = \"traveller\"",
	} {
		if !strings.Contains(listing, want) {
			t.Errorf("listing missing %q:\n%s", want, listing)
		}
	}
}

func TestDisassembleTruncatesLongOperands(t *testing.T) {
	n := &Node{
		Name: "N",
		Instructions: []Instruction{
			{Op: OpPushString, Operands: []Value{StringValue(strings.Repeat("x", 100))}},
		},
	}
	listing := DisassembleNode(n)
	if !strings.Contains(listing, "...") {
		t.Error("long operand should be truncated")
	}
}
