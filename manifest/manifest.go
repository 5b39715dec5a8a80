// Package manifest handles strand.toml story collection configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/strandvm/strand/pkg/bytecode"
)

// Manifest represents a strand.toml story configuration.
type Manifest struct {
	Story     Story                  `toml:"story"`
	Variables map[string]interface{} `toml:"variables"`

	// Dir is the directory containing the strand.toml file (set at load time).
	Dir string `toml:"-"`
}

// Story contains story metadata and the compiled program files that
// make up the collection.
type Story struct {
	Name     string   `toml:"name"`
	Start    string   `toml:"start"`
	Programs []string `toml:"programs"`
}

// Load parses a strand.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "strand.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Story.Start == "" {
		m.Story.Start = "Start"
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a strand.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "strand.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// ProgramPaths returns absolute paths for the configured program files.
func (m *Manifest) ProgramPaths() []string {
	var paths []string
	for _, p := range m.Story.Programs {
		paths = append(paths, filepath.Join(m.Dir, p))
	}
	return paths
}

// VariableOverrides converts the [variables] table into typed values.
// These take precedence over the defaults compiled into the programs.
func (m *Manifest) VariableOverrides() (map[string]bytecode.Value, error) {
	if len(m.Variables) == 0 {
		return nil, nil
	}
	overrides := make(map[string]bytecode.Value, len(m.Variables))
	for name, raw := range m.Variables {
		switch v := raw.(type) {
		case string:
			overrides[name] = bytecode.StringValue(v)
		case int64:
			overrides[name] = bytecode.NumberValue(float64(v))
		case float64:
			overrides[name] = bytecode.NumberValue(v)
		case bool:
			overrides[name] = bytecode.BoolValue(v)
		default:
			return nil, fmt.Errorf("variable %s: unsupported value type %T", name, raw)
		}
	}
	return overrides, nil
}
