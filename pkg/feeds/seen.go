package feeds

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// seenLimit caps how many delivered item IDs are kept; feeds only return a
// small window of recent items, so old IDs can be dropped.
const seenLimit = 2000

// SeenStore remembers which feed item IDs were already delivered,
// persisted as JSON with atomic saves.
type SeenStore struct {
	path  string
	mu    sync.Mutex
	ids   map[string]struct{}
	order []string
	fresh bool
}

type seenFile struct {
	Version int      `json:"version"`
	IDs     []string `json:"ids"`
}

func OpenSeenStore(path string) (*SeenStore, error) {
	s := &SeenStore{
		path: path,
		ids:  make(map[string]struct{}),
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var f seenFile
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse seen store %s: %w", path, err)
		}
		for _, id := range f.IDs {
			s.ids[id] = struct{}{}
			s.order = append(s.order, id)
		}
	case os.IsNotExist(err):
		s.fresh = true
	default:
		return nil, fmt.Errorf("failed to read seen store %s: %w", path, err)
	}

	return s, nil
}

// Fresh reports whether the store had no persisted state when opened. The
// scheduler uses this to swallow the initial backlog instead of flooding
// every subscriber on first start.
func (s *SeenStore) Fresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fresh
}

// MarkSeen records the ID and reports whether it was new.
func (s *SeenStore) MarkSeen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	s.order = append(s.order, id)

	for len(s.order) > seenLimit {
		delete(s.ids, s.order[0])
		s.order = s.order[1:]
	}
	return true
}

// Save persists the current set using temp file + rename.
func (s *SeenStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fresh = false
	f := seenFile{Version: 1, IDs: s.order}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal seen store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create seen store dir: %w", err)
	}

	tempFile := s.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempFile, s.path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
