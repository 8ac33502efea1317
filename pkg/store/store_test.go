package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "subscribers.json")
	s, err := Open(path)
	require.NoError(t, err)
	return s, path
}

func TestSubscribeOutcomes(t *testing.T) {
	s, _ := openTestStore(t)

	outcome, err := s.Subscribe("telegram:1", "factorio")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNewlySubscribed, outcome)

	outcome, err = s.Subscribe("telegram:1", "factorio")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadySubscribed, outcome)

	rec, ok := s.Get("telegram:1")
	require.True(t, ok)
	assert.Equal(t, []string{"factorio"}, rec.GameSubs, "no duplicates")
}

func TestUnsubscribeOutcomes(t *testing.T) {
	s, _ := openTestStore(t)

	outcome, err := s.Unsubscribe("telegram:1", "factorio")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNeverSubscribed, outcome, "unknown channel")

	_, err = s.Subscribe("telegram:1", "factorio")
	require.NoError(t, err)

	outcome, err = s.Unsubscribe("telegram:1", "rimworld")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNeverSubscribed, outcome, "known channel, unknown game")

	outcome, err = s.Unsubscribe("telegram:1", "factorio")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnsubscribed, outcome)
}

func TestRecordPrunedWhenEmpty(t *testing.T) {
	s, _ := openTestStore(t)

	_, err := s.Subscribe("telegram:1", "factorio")
	require.NoError(t, err)
	_, err = s.Unsubscribe("telegram:1", "factorio")
	require.NoError(t, err)

	_, ok := s.Get("telegram:1")
	assert.False(t, ok, "empty record should be pruned")

	// A prefix override keeps the record alive through unsubscribe.
	require.NoError(t, s.SetPrefix("discord:2", "!"))
	_, err = s.Subscribe("discord:2", "factorio")
	require.NoError(t, err)
	_, err = s.Unsubscribe("discord:2", "factorio")
	require.NoError(t, err)

	rec, ok := s.Get("discord:2")
	require.True(t, ok)
	assert.Equal(t, "!", rec.Prefix)

	require.NoError(t, s.ResetPrefix("discord:2"))
	_, ok = s.Get("discord:2")
	assert.False(t, ok)
}

func TestPrefixDefaulting(t *testing.T) {
	s, _ := openTestStore(t)

	assert.Equal(t, "/", s.Prefix("telegram:1", "/"), "no record")

	require.NoError(t, s.SetPrefix("telegram:1", "!"))
	assert.Equal(t, "!", s.Prefix("telegram:1", "/"))

	require.NoError(t, s.ResetPrefix("telegram:1"))
	assert.Equal(t, "/", s.Prefix("telegram:1", "/"))
}

func TestPersistenceRoundTrip(t *testing.T) {
	s, path := openTestStore(t)

	_, err := s.Subscribe("telegram:1", "factorio")
	require.NoError(t, err)
	_, err = s.Subscribe("discord:2", "rimworld")
	require.NoError(t, err)
	require.NoError(t, s.SetPrefix("discord:2", "!"))

	reopened, err := Open(path)
	require.NoError(t, err)

	rec, ok := reopened.Get("discord:2")
	require.True(t, ok)
	assert.Equal(t, []string{"rimworld"}, rec.GameSubs)
	assert.Equal(t, "!", rec.Prefix)

	subs := reopened.SubscribersOf("factorio")
	require.Len(t, subs, 1)
	assert.Equal(t, "telegram:1", subs[0].ChannelKey)
}

func TestSubscribersOfSortedAndFiltered(t *testing.T) {
	s, _ := openTestStore(t)

	for _, key := range []string{"telegram:9", "discord:1", "slack:5"} {
		_, err := s.Subscribe(key, "factorio")
		require.NoError(t, err)
	}
	_, err := s.Subscribe("telegram:2", "rimworld")
	require.NoError(t, err)

	subs := s.SubscribersOf("factorio")
	require.Len(t, subs, 3)
	assert.Equal(t, "discord:1", subs[0].ChannelKey)
	assert.Equal(t, "slack:5", subs[1].ChannelKey)
	assert.Equal(t, "telegram:9", subs[2].ChannelKey)

	all := s.All()
	assert.Len(t, all, 4)
}

func TestConcurrentSubscribes(t *testing.T) {
	s, _ := openTestStore(t)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Subscribe("telegram:1", fmt.Sprintf("game-%d", i))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	rec, ok := s.Get("telegram:1")
	require.True(t, ok)
	assert.Len(t, rec.GameSubs, n, "no lost updates")
}

func TestOpenRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subscribers.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Open(path)
	assert.Error(t, err)
}
