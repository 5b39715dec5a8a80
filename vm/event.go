package vm

// Event is the externally observable outcome of a Step call. It is a
// closed union: ShowLine, ShowOptions, RunCommand or DialogueComplete.
type Event interface {
	isEvent()
}

// ShowLine reports a line of dialogue to present. Key addresses the
// program's string table; Substitutions fill its {n} placeholders in
// left-to-right order. Rendering is the host's concern.
type ShowLine struct {
	Key           string
	Substitutions []string
}

// ShowOptions reports that the player must choose between the
// accumulated options. The next Step call must carry a ResumeInput with
// the chosen index.
type ShowOptions struct {
	Options []Option
}

// RunCommand reports a host command. The machine never interprets
// command text; dispatch is entirely up to the host.
type RunCommand struct {
	Key           string
	Substitutions []string
}

// DialogueComplete reports that the story has ended. The checkpoint
// that accompanies it is terminal.
type DialogueComplete struct{}

func (ShowLine) isEvent()         {}
func (ShowOptions) isEvent()      {}
func (RunCommand) isEvent()       {}
func (DialogueComplete) isEvent() {}

// Option is one player choice accumulated by add-option instructions
// and consumed atomically by show-options. Disabled options are
// presented but not selectable.
type Option struct {
	Key           string   `cbor:"key"`
	Substitutions []string `cbor:"substitutions,omitempty"`
	Destination   string   `cbor:"destination"`
	Enabled       bool     `cbor:"enabled"`
}

// ResumeInput carries the selected option index into the Step call that
// follows a ShowOptions suspension. It is invalid at any other time.
type ResumeInput struct {
	Selection int
}
