package server

import (
	"testing"

	"github.com/strandvm/strand/vm"
)

func TestSessionStoreCreateGetDestroy(t *testing.T) {
	store := NewSessionStore()

	session := store.Create(&vm.Checkpoint{Node: "Start"}, vm.NewMapStore())
	if session.ID == "" {
		t.Fatal("session ID is empty")
	}

	got, ok := store.Get(session.ID)
	if !ok {
		t.Fatal("session not found after Create")
	}
	if got != session {
		t.Error("Get returned a different session")
	}

	store.Destroy(session.ID)
	if _, ok := store.Get(session.ID); ok {
		t.Error("session still present after Destroy")
	}
}

func TestSessionStoreUniqueIDs(t *testing.T) {
	store := NewSessionStore()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		s := store.Create(&vm.Checkpoint{Node: "Start"}, vm.NewMapStore())
		if seen[s.ID] {
			t.Fatalf("duplicate session ID %s", s.ID)
		}
		seen[s.ID] = true
	}
	if store.Len() != 50 {
		t.Errorf("store size = %d, want 50", store.Len())
	}
}

func TestSessionStoreRestoreKeepsID(t *testing.T) {
	store := NewSessionStore()
	session := store.Restore("fixed-id", &vm.Checkpoint{Node: "Start"}, vm.NewMapStore())
	if session.ID != "fixed-id" {
		t.Errorf("restored ID = %q", session.ID)
	}
	if _, ok := store.Get("fixed-id"); !ok {
		t.Error("restored session not retrievable")
	}
}
