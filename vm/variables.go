package vm

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/strandvm/strand/pkg/bytecode"
)

// VariableStore is the externally owned name->value mapping the machine
// reads and writes. The machine never owns a store; the host supplies
// one on every Step, which lets it snapshot, diff or persist variables
// independently of checkpoints.
type VariableStore interface {
	// Get returns the current value of the named variable, if set.
	Get(name string) (bytecode.Value, bool)

	// Set assigns the named variable.
	Set(name string, value bytecode.Value)
}

// MapStore is the default in-memory VariableStore.
type MapStore map[string]bytecode.Value

// NewMapStore returns an empty map-backed store.
func NewMapStore() MapStore {
	return make(MapStore)
}

// Get implements VariableStore.
func (s MapStore) Get(name string) (bytecode.Value, bool) {
	v, ok := s[name]
	return v, ok
}

// Set implements VariableStore.
func (s MapStore) Set(name string, value bytecode.Value) {
	s[name] = value
}

// Marshal serializes the store contents to canonical CBOR.
func (s MapStore) Marshal() ([]byte, error) {
	data, err := cborEncMode.Marshal(map[string]bytecode.Value(s))
	if err != nil {
		return nil, fmt.Errorf("vm: marshal variables: %w", err)
	}
	return data, nil
}

// UnmarshalMapStore reconstructs a MapStore from Marshal output.
func UnmarshalMapStore(data []byte) (MapStore, error) {
	var m map[string]bytecode.Value
	if err := cbor.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("vm: unmarshal variables: %w", err)
	}
	if m == nil {
		m = make(map[string]bytecode.Value)
	}
	return MapStore(m), nil
}

// Seed copies the program's declared variable defaults into the store,
// without overwriting values the store already holds. Hosts typically
// call it once before the first Step of a fresh run.
func Seed(p *bytecode.Program, store VariableStore) {
	for name, value := range p.InitialValues {
		if _, exists := store.Get(name); !exists {
			store.Set(name, value)
		}
	}
}
