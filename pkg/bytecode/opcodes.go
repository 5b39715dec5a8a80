package bytecode

import "fmt"

// Opcode represents a single dialogue instruction.
// Opcodes are organized into ranges by category.
type Opcode byte

const (
	// ========================================================================
	// Literals and stack manipulation (0x00-0x0F)
	// ========================================================================

	OpPushString Opcode = 0x01 // Push string literal: operands [text]
	OpPushNumber Opcode = 0x02 // Push number literal: operands [number]
	OpPushBool   Opcode = 0x03 // Push boolean literal: operands [bool]
	OpPushNull   Opcode = 0x04 // Retired; decodes but fails at runtime
	OpPop        Opcode = 0x05 // Discard top of stack

	// ========================================================================
	// Control flow within a node (0x10-0x1F)
	// ========================================================================

	OpJumpToLabel Opcode = 0x10 // Jump to label: operands [label]
	OpJump        Opcode = 0x11 // Jump to label named by popped string
	OpJumpIfFalse Opcode = 0x12 // Jump to label when peeked bool is false: operands [label]

	// ========================================================================
	// Content (0x20-0x2F) - these suspend execution
	// ========================================================================

	OpRunLine     Opcode = 0x20 // Show a line: operands [key, subst count?]
	OpRunCommand  Opcode = 0x21 // Dispatch a host command: operands [key, subst count?]
	OpAddOption   Opcode = 0x22 // Accumulate an option: operands [key, destination, subst count?, has condition?]
	OpShowOptions Opcode = 0x23 // Present accumulated options and await a selection

	// ========================================================================
	// Variables and functions (0x30-0x3F)
	// ========================================================================

	OpPushVariable  Opcode = 0x30 // Push variable value: operands [name]
	OpStoreVariable Opcode = 0x31 // Store top of stack (kept pushed): operands [name]
	OpCallFunc      Opcode = 0x32 // Call registered function: operands [name, arg count]

	// ========================================================================
	// Node transfer and termination (0x40-0x4F)
	// ========================================================================

	OpRunNode Opcode = 0x40 // Push return frame, enter node: operands [node]
	OpReturn  Opcode = 0x41 // Pop return frame and resume there
	OpStop    Opcode = 0x42 // Terminate the dialogue
)

// OpcodeInfo provides metadata about each opcode for validation and
// disassembly.
type OpcodeInfo struct {
	Name        string // Human-readable mnemonic
	MinOperands int    // Fewest operands the instruction may carry
	MaxOperands int    // Most operands the instruction may carry
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpPushString: {"PUSH_STRING", 1, 1},
	OpPushNumber: {"PUSH_NUMBER", 1, 1},
	OpPushBool:   {"PUSH_BOOL", 1, 1},
	OpPushNull:   {"PUSH_NULL", 0, 0},
	OpPop:        {"POP", 0, 0},

	OpJumpToLabel: {"JUMP_TO_LABEL", 1, 1},
	OpJump:        {"JUMP", 0, 0},
	OpJumpIfFalse: {"JUMP_IF_FALSE", 1, 1},

	OpRunLine:     {"RUN_LINE", 1, 2},
	OpRunCommand:  {"RUN_COMMAND", 1, 2},
	OpAddOption:   {"ADD_OPTION", 2, 4},
	OpShowOptions: {"SHOW_OPTIONS", 0, 0},

	OpPushVariable:  {"PUSH_VARIABLE", 1, 1},
	OpStoreVariable: {"STORE_VARIABLE", 1, 1},
	OpCallFunc:      {"CALL_FUNC", 2, 2},

	OpRunNode: {"RUN_NODE", 0, 1},
	OpReturn:  {"RETURN", 0, 0},
	OpStop:    {"STOP", 0, 0},
}

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with an "UNKNOWN" name if the opcode is not
// recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}
}

// String returns the human-readable mnemonic of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// IsValid reports whether the opcode is part of the instruction set.
func (op Opcode) IsValid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// IsSuspend reports whether executing this opcode returns control to the
// host (a line, a command, an options prompt, or termination).
func (op Opcode) IsSuspend() bool {
	switch op {
	case OpRunLine, OpRunCommand, OpShowOptions, OpStop:
		return true
	}
	return false
}

// IsTransfer reports whether this opcode moves execution between nodes.
func (op Opcode) IsTransfer() bool {
	return op == OpRunNode || op == OpReturn
}

// AllOpcodes returns a slice of all defined opcodes.
// Useful for testing that all opcodes have metadata.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}

// OpcodeCount returns the number of defined opcodes.
func OpcodeCount() int {
	return len(opcodeInfoTable)
}
