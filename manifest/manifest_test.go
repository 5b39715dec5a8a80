package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/strandvm/strand/pkg/bytecode"
)

func TestLoadManifest(t *testing.T) {
	// Create a temporary directory with a strand.toml
	dir := t.TempDir()
	tomlContent := `
[story]
name = "market-day"
start = "Intro"
programs = ["intro.stbc", "market.stbc"]

[variables]
"$gold" = 10
"$name" = "traveller"
"$brave" = true
"$luck" = 0.5
`
	if err := os.WriteFile(filepath.Join(dir, "strand.toml"), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Story.Name != "market-day" {
		t.Errorf("story name = %q, want market-day", m.Story.Name)
	}
	if m.Story.Start != "Intro" {
		t.Errorf("story start = %q, want Intro", m.Story.Start)
	}
	if len(m.Story.Programs) != 2 {
		t.Errorf("programs count = %d, want 2", len(m.Story.Programs))
	}

	overrides, err := m.VariableOverrides()
	if err != nil {
		t.Fatalf("VariableOverrides failed: %v", err)
	}
	if v := overrides["$gold"]; !v.Equal(bytecode.NumberValue(10)) {
		t.Errorf("$gold = %v, want 10", v)
	}
	if v := overrides["$name"]; !v.Equal(bytecode.StringValue("traveller")) {
		t.Errorf("$name = %v, want traveller", v)
	}
	if v := overrides["$brave"]; !v.Equal(bytecode.BoolValue(true)) {
		t.Errorf("$brave = %v, want true", v)
	}
	if v := overrides["$luck"]; !v.Equal(bytecode.NumberValue(0.5)) {
		t.Errorf("$luck = %v, want 0.5", v)
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[story]
name = "minimal"
programs = ["story.stbc"]
`
	if err := os.WriteFile(filepath.Join(dir, "strand.toml"), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Default start node should be "Start"
	if m.Story.Start != "Start" {
		t.Errorf("default start = %q, want Start", m.Story.Start)
	}
	overrides, err := m.VariableOverrides()
	if err != nil {
		t.Fatalf("VariableOverrides failed: %v", err)
	}
	if overrides != nil {
		t.Errorf("overrides = %v, want nil for empty table", overrides)
	}
}

func TestFindAndLoad(t *testing.T) {
	// Create nested directory structure
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}

	tomlContent := `[story]
name = "found-story"
programs = ["story.stbc"]
`
	if err := os.WriteFile(filepath.Join(dir, "strand.toml"), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	// Should find manifest when starting from a deep subdirectory
	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Story.Name != "found-story" {
		t.Errorf("story name = %q, want found-story", m.Story.Name)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	m, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no strand.toml exists")
	}
}

func TestProgramPaths(t *testing.T) {
	m := &Manifest{
		Dir: "/story",
		Story: Story{
			Programs: []string{"intro.stbc", "market.stbc"},
		},
	}

	paths := m.ProgramPaths()
	if len(paths) != 2 {
		t.Fatalf("expected 2 paths, got %d", len(paths))
	}
	if paths[0] != "/story/intro.stbc" {
		t.Errorf("paths[0] = %q, want /story/intro.stbc", paths[0])
	}
	if paths[1] != "/story/market.stbc" {
		t.Errorf("paths[1] = %q, want /story/market.stbc", paths[1])
	}
}

func TestVariableOverridesRejectsTables(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[story]
name = "bad-vars"
programs = ["story.stbc"]

[variables]
"$nested" = { a = 1 }
`
	if err := os.WriteFile(filepath.Join(dir, "strand.toml"), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := m.VariableOverrides(); err == nil {
		t.Error("expected an error for a table-valued variable")
	}
}
