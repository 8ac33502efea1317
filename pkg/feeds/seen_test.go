package feeds

import (
	"fmt"
	"path/filepath"
	"testing"
)

func TestSeenStoreMarkSeen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")
	s, err := OpenSeenStore(path)
	if err != nil {
		t.Fatalf("OpenSeenStore: %v", err)
	}
	if !s.Fresh() {
		t.Fatal("missing file should open fresh")
	}

	if !s.MarkSeen("a") {
		t.Fatal("first MarkSeen should report new")
	}
	if s.MarkSeen("a") {
		t.Fatal("second MarkSeen should report already seen")
	}
}

func TestSeenStorePersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")
	s, err := OpenSeenStore(path)
	if err != nil {
		t.Fatalf("OpenSeenStore: %v", err)
	}
	s.MarkSeen("a")
	s.MarkSeen("b")
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reopened, err := OpenSeenStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Fresh() {
		t.Fatal("persisted store should not be fresh")
	}
	if reopened.MarkSeen("a") || reopened.MarkSeen("b") {
		t.Fatal("persisted IDs should survive a reopen")
	}
	if !reopened.MarkSeen("c") {
		t.Fatal("new IDs should still register")
	}
}

func TestSeenStoreEvictsOldest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")
	s, err := OpenSeenStore(path)
	if err != nil {
		t.Fatalf("OpenSeenStore: %v", err)
	}

	for i := 0; i < seenLimit+10; i++ {
		s.MarkSeen(fmt.Sprintf("id-%d", i))
	}

	if !s.MarkSeen("id-0") {
		t.Fatal("oldest ID should have been evicted")
	}
	if s.MarkSeen(fmt.Sprintf("id-%d", seenLimit+9)) {
		t.Fatal("newest ID should still be tracked")
	}
}
