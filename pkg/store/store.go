// Package store persists channel subscriptions and the game catalog as
// JSON files. Saves are atomic (temp file + rename) and mutations of a
// single channel's record are serialized with a per-key lock so concurrent
// subscribe/unsubscribe/prefix commands cannot lose updates.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Record is the persisted association between a channel and its game
// subscriptions and prefix override. ChannelKey has the form
// "platform:chatID".
type Record struct {
	ChannelKey string   `json:"channel_key"`
	GameSubs   []string `json:"game_subs,omitempty"`
	Prefix     string   `json:"prefix,omitempty"`
	Disabled   bool     `json:"disabled,omitempty"`
}

// Outcome reports what a subscribe/unsubscribe call actually changed.
type Outcome int

const (
	OutcomeNewlySubscribed Outcome = iota
	OutcomeAlreadySubscribed
	OutcomeUnsubscribed
	OutcomeNeverSubscribed
)

type fileFormat struct {
	Version int       `json:"version"`
	Records []*Record `json:"records"`
}

type Store struct {
	path    string
	mu      sync.RWMutex
	records map[string]*Record
	locks   keyedMutex
}

// keyedMutex hands out one mutex per channel key, making each channel's
// read-modify-write a critical section without serializing unrelated
// channels.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	return m
}

func Open(path string) (*Store, error) {
	s := &Store{
		path:    path,
		records: make(map[string]*Record),
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var f fileFormat
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("failed to parse subscriber store %s: %w", path, err)
		}
		for _, r := range f.Records {
			s.records[r.ChannelKey] = r
		}
	case os.IsNotExist(err):
		// fresh store
	default:
		return nil, fmt.Errorf("failed to read subscriber store %s: %w", path, err)
	}

	return s, nil
}

// Subscribe adds game to the channel's subscription set. The set never
// contains duplicates; subscribing twice reports OutcomeAlreadySubscribed.
func (s *Store) Subscribe(channelKey, game string) (Outcome, error) {
	unlock := s.lockKey(channelKey)
	defer unlock()

	s.mu.Lock()
	rec, ok := s.records[channelKey]
	if !ok {
		rec = &Record{ChannelKey: channelKey}
		s.records[channelKey] = rec
	}
	for _, g := range rec.GameSubs {
		if g == game {
			s.mu.Unlock()
			return OutcomeAlreadySubscribed, nil
		}
	}
	rec.GameSubs = append(rec.GameSubs, game)
	err := s.saveLocked()
	s.mu.Unlock()

	if err != nil {
		return OutcomeNewlySubscribed, err
	}
	return OutcomeNewlySubscribed, nil
}

// Unsubscribe removes game from the channel's subscription set. Removing a
// game that was never subscribed reports OutcomeNeverSubscribed and leaves
// persisted state untouched.
func (s *Store) Unsubscribe(channelKey, game string) (Outcome, error) {
	unlock := s.lockKey(channelKey)
	defer unlock()

	s.mu.Lock()
	rec, ok := s.records[channelKey]
	if !ok {
		s.mu.Unlock()
		return OutcomeNeverSubscribed, nil
	}

	idx := -1
	for i, g := range rec.GameSubs {
		if g == game {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return OutcomeNeverSubscribed, nil
	}

	rec.GameSubs = append(rec.GameSubs[:idx], rec.GameSubs[idx+1:]...)
	s.pruneLocked(channelKey)
	err := s.saveLocked()
	s.mu.Unlock()

	return OutcomeUnsubscribed, err
}

// Prefix returns the channel's prefix override, or def when none is set.
func (s *Store) Prefix(channelKey, def string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rec, ok := s.records[channelKey]; ok && rec.Prefix != "" {
		return rec.Prefix
	}
	return def
}

func (s *Store) SetPrefix(channelKey, prefix string) error {
	unlock := s.lockKey(channelKey)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[channelKey]
	if !ok {
		rec = &Record{ChannelKey: channelKey}
		s.records[channelKey] = rec
	}
	rec.Prefix = prefix
	return s.saveLocked()
}

// ResetPrefix clears the channel's prefix override. A record left with no
// subscriptions and no prefix is removed entirely.
func (s *Store) ResetPrefix(channelKey string) error {
	unlock := s.lockKey(channelKey)
	defer unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[channelKey]
	if !ok {
		return nil
	}
	rec.Prefix = ""
	s.pruneLocked(channelKey)
	return s.saveLocked()
}

// SubscribersOf returns the records subscribed to game, sorted by key for
// deterministic fan-out order.
func (s *Store) SubscribersOf(game string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Record
	for _, rec := range s.records {
		if rec.Disabled {
			continue
		}
		for _, g := range rec.GameSubs {
			if g == game {
				out = append(out, *rec)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelKey < out[j].ChannelKey })
	return out
}

// All returns a snapshot of every non-disabled record, sorted by key.
func (s *Store) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		if rec.Disabled {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelKey < out[j].ChannelKey })
	return out
}

// Get returns a copy of the channel's record.
func (s *Store) Get(channelKey string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[channelKey]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

func (s *Store) lockKey(channelKey string) func() {
	m := s.locks.get(channelKey)
	m.Lock()
	return m.Unlock
}

// pruneLocked drops the record when it carries no information anymore.
// Must be called with s.mu held.
func (s *Store) pruneLocked(channelKey string) {
	rec, ok := s.records[channelKey]
	if !ok {
		return
	}
	if len(rec.GameSubs) == 0 && rec.Prefix == "" && !rec.Disabled {
		delete(s.records, channelKey)
	}
}

// saveLocked writes the store atomically using temp file + rename.
// Must be called with s.mu held.
func (s *Store) saveLocked() error {
	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	f := fileFormat{Version: 1, Records: make([]*Record, 0, len(keys))}
	for _, k := range keys {
		f.Records = append(f.Records, s.records[k])
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal subscriber store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create store dir: %w", err)
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
