package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogResolve(t *testing.T) {
	c := NewCatalog([]Game{
		{Name: "factorio", Label: "Factorio", Aliases: []string{"facto"}},
		{Name: "rimworld", Label: "RimWorld"},
	})

	tests := []struct {
		alias string
		want  string
		ok    bool
	}{
		{"factorio", "factorio", true},
		{"Factorio", "factorio", true}, // label, any case
		{"FACTO", "factorio", true},    // alias, any case
		{"  rimworld ", "rimworld", true},
		{"minecraft", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		game, ok := c.Resolve(tt.alias)
		assert.Equal(t, tt.ok, ok, "alias %q", tt.alias)
		if ok {
			assert.Equal(t, tt.want, game.Name, "alias %q", tt.alias)
		}
	}
}

func TestCatalogGamesKeepsDeclarationOrder(t *testing.T) {
	c := NewCatalog([]Game{
		{Name: "zzz", Label: "ZZZ"},
		{Name: "aaa", Label: "AAA"},
	})
	games := c.Games()
	require.Len(t, games, 2)
	assert.Equal(t, "zzz", games[0].Name)
	assert.Equal(t, "aaa", games[1].Name)
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "games.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"name": "factorio", "label": "Factorio", "aliases": ["facto"]}
	]`), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)

	game, ok := c.Resolve("facto")
	require.True(t, ok)
	assert.Equal(t, "Factorio", game.Label)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
