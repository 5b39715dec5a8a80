package bytecode

import (
	"errors"
	"fmt"
	"os"
)

// Merge errors. Node names, string keys and declared variable names must
// be globally unique across all merged inputs; a collision is a
// build-time failure, never a runtime one.
var (
	ErrDuplicateNode         = errors.New("duplicate node name")
	ErrDuplicateString       = errors.New("duplicate string key")
	ErrDuplicateInitialValue = errors.New("duplicate initial value")
)

type source struct {
	path    string   // set for file sources
	program *Program // set for in-memory sources
}

// Builder accumulates compiled dialogue files and merges them into a
// single Program in one validate pass.
//
//	program, err := bytecode.NewBuilder().
//		AddFile("intro.stbc").
//		AddFile("chapter1.stbc").
//		Build()
type Builder struct {
	sources []source
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddFile queues a compiled program file for the next Build.
func (b *Builder) AddFile(path string) *Builder {
	b.sources = append(b.sources, source{path: path})
	return b
}

// AddProgram queues an already-decoded program for the next Build.
func (b *Builder) AddProgram(p *Program) *Builder {
	b.sources = append(b.sources, source{program: p})
	return b
}

// Build decodes every queued source and merges them into one Program.
// Zero sources yields an empty program.
func (b *Builder) Build() (*Program, error) {
	root := NewProgram()

	for _, src := range b.sources {
		p := src.program
		if p == nil {
			data, err := os.ReadFile(src.path)
			if err != nil {
				return nil, fmt.Errorf("cannot read program %s: %w", src.path, err)
			}
			p, err = Deserialize(data)
			if err != nil {
				return nil, fmt.Errorf("cannot decode program %s: %w", src.path, err)
			}
		}

		if err := merge(root, p); err != nil {
			return nil, err
		}
	}

	return root, nil
}

func merge(dest, src *Program) error {
	for name, node := range src.Nodes {
		if _, exists := dest.Nodes[name]; exists {
			return fmt.Errorf("%w: %q", ErrDuplicateNode, name)
		}
		dest.Nodes[name] = node
	}
	for key, entry := range src.Strings {
		if _, exists := dest.Strings[key]; exists {
			return fmt.Errorf("%w: %q", ErrDuplicateString, key)
		}
		dest.Strings[key] = entry
	}
	for name, value := range src.InitialValues {
		if _, exists := dest.InitialValues[name]; exists {
			return fmt.Errorf("%w: %q", ErrDuplicateInitialValue, name)
		}
		dest.InitialValues[name] = value
	}
	return nil
}
