package bytecode

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeProgramFile(t *testing.T, dir, name string, p *Program) string {
	t.Helper()
	data, err := Serialize(p)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func singleNodeProgram(nodeName string) *Program {
	p := NewProgram()
	p.Nodes[nodeName] = &Node{
		Name:         nodeName,
		Instructions: []Instruction{{Op: OpStop}},
		Labels:       map[string]int{},
	}
	return p
}

func TestBuilderMergesFiles(t *testing.T) {
	dir := t.TempDir()

	a := singleNodeProgram("Start")
	a.Strings["line:a"] = StringEntry{Text: "A"}
	a.InitialValues["$a"] = NumberValue(1)

	b := singleNodeProgram("End")
	b.Strings["line:b"] = StringEntry{Text: "B"}
	b.InitialValues["$b"] = BoolValue(true)

	merged, err := NewBuilder().
		AddFile(writeProgramFile(t, dir, "a.stbc", a)).
		AddFile(writeProgramFile(t, dir, "b.stbc", b)).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	for _, node := range []string{"Start", "End"} {
		if _, ok := merged.Node(node); !ok {
			t.Errorf("merged program missing node %q", node)
		}
	}
	for _, key := range []string{"line:a", "line:b"} {
		if _, ok := merged.StringEntry(key); !ok {
			t.Errorf("merged program missing string %q", key)
		}
	}
	if v, ok := merged.InitialValue("$a"); !ok || !v.Equal(NumberValue(1)) {
		t.Errorf("initial value $a = %v, %v", v, ok)
	}
}

func TestBuilderDuplicateNode(t *testing.T) {
	_, err := NewBuilder().
		AddProgram(singleNodeProgram("Start")).
		AddProgram(singleNodeProgram("Start")).
		Build()
	if !errors.Is(err, ErrDuplicateNode) {
		t.Errorf("error = %v, want ErrDuplicateNode", err)
	}
}

func TestBuilderDuplicateString(t *testing.T) {
	a := singleNodeProgram("A")
	a.Strings["line:x"] = StringEntry{Text: "one"}
	b := singleNodeProgram("B")
	b.Strings["line:x"] = StringEntry{Text: "two"}

	_, err := NewBuilder().AddProgram(a).AddProgram(b).Build()
	if !errors.Is(err, ErrDuplicateString) {
		t.Errorf("error = %v, want ErrDuplicateString", err)
	}
}

func TestBuilderDuplicateInitialValue(t *testing.T) {
	a := singleNodeProgram("A")
	a.InitialValues["$x"] = NumberValue(1)
	b := singleNodeProgram("B")
	b.InitialValues["$x"] = NumberValue(2)

	_, err := NewBuilder().AddProgram(a).AddProgram(b).Build()
	if !errors.Is(err, ErrDuplicateInitialValue) {
		t.Errorf("error = %v, want ErrDuplicateInitialValue", err)
	}
}

func TestBuilderMissingFile(t *testing.T) {
	_, err := NewBuilder().AddFile(filepath.Join(t.TempDir(), "absent.stbc")).Build()
	if err == nil {
		t.Fatal("Build of missing file should fail")
	}
}

func TestBuilderEmpty(t *testing.T) {
	p, err := NewBuilder().Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(p.Nodes) != 0 {
		t.Error("empty build should produce empty program")
	}
}
