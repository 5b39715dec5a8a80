// Package bytecode defines the compiled dialogue program format executed
// by the strand virtual machine.
//
// A Program is the merged, immutable output of one or more compiled
// dialogue files: named nodes of instructions, a string table with
// positional substitution placeholders, and declared variable defaults.
// Programs are produced by an external narrative compiler; this package
// only decodes, validates and merges them.
//
// The bytecode format is designed for:
//   - Instruction-granular addressing (labels resolve to instruction
//     indices at load time, so jumps never do name lookups)
//   - Easy serialization (the "STBC" container round-trips the full
//     model and can be stored or passed between processes)
//   - Safe sharing (a built Program is never mutated and may back any
//     number of concurrent runs)
//
// Unknown opcodes fail decoding rather than being skipped; forward
// compatibility across format versions is explicitly not guaranteed.
package bytecode
