package store

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Game is one entry of the game catalog. Name is the canonical identifier
// used in subscriber records and feed sources; Label is the display form.
type Game struct {
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Aliases []string `json:"aliases,omitempty"`
}

type Catalog struct {
	games   []Game
	byAlias map[string]int
}

// LoadCatalog reads the game catalog JSON file. The canonical name and the
// label resolve as aliases too, all case-insensitively.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read game catalog %s: %w", path, err)
	}

	var games []Game
	if err := json.Unmarshal(data, &games); err != nil {
		return nil, fmt.Errorf("failed to parse game catalog %s: %w", path, err)
	}

	return NewCatalog(games), nil
}

func NewCatalog(games []Game) *Catalog {
	c := &Catalog{
		games:   games,
		byAlias: make(map[string]int),
	}
	for i, g := range games {
		c.byAlias[normalizeAlias(g.Name)] = i
		c.byAlias[normalizeAlias(g.Label)] = i
		for _, a := range g.Aliases {
			c.byAlias[normalizeAlias(a)] = i
		}
	}
	return c
}

// Resolve maps a user-typed alias to its catalog entry.
func (c *Catalog) Resolve(alias string) (Game, bool) {
	i, ok := c.byAlias[normalizeAlias(alias)]
	if !ok {
		return Game{}, false
	}
	return c.games[i], true
}

// Games returns the catalog entries in declaration order.
func (c *Catalog) Games() []Game {
	return c.games
}

func normalizeAlias(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
