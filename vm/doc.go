// Package vm executes compiled dialogue programs as a resumable stack
// machine.
//
// The machine has no long-lived session object. All per-run state lives
// in a Checkpoint: current node, instruction pointer, evaluation stack,
// call stack, pending options and visit counts. A Runner's Step takes a
// program, a checkpoint and a variable store, executes instructions
// until the next externally meaningful point, and returns a new
// checkpoint plus the event that caused the suspension:
//
//	cp, err := vm.NewCheckpoint(program, "Start")
//	...
//	for {
//		cp, event, err = runner.Step(program, cp, store, nil)
//		...
//	}
//
// Checkpoints serialize to canonical CBOR; a deserialized checkpoint
// resumes identically to the original, in the same process or another
// one. Step never mutates its input checkpoint: on error the prior
// checkpoint stays valid, so the host may inspect, retry or discard.
//
// Variable storage is owned by the host and supplied on every Step,
// letting hosts snapshot, diff or persist variables independently of
// checkpoints. Function dispatch goes through a Library; names
// registered by the host shadow the built-ins.
package vm
