// Package feeds polls external sources (RSS, subreddit listings) for game
// updates and fans new items out to subscribed channels through the bus.
package feeds

import (
	"context"
	"fmt"
	"time"

	"github.com/gamewatch/gamewatch/pkg/config"
)

// Update is one new item discovered on a feed source.
type Update struct {
	ID        string    `json:"id"`
	Game      string    `json:"game"`
	Title     string    `json:"title"`
	URL       string    `json:"url,omitempty"`
	Summary   string    `json:"summary,omitempty"`
	Source    string    `json:"source"`
	Published time.Time `json:"published,omitempty"`
}

// Source fetches the current items of one external feed. Fetch returns the
// newest items first; the scheduler handles dedup, so returning items it
// has already seen is fine.
type Source interface {
	Name() string
	Game() string
	Fetch(ctx context.Context) ([]Update, error)
}

// NewSource builds a source from its config entry.
func NewSource(cfg config.FeedSourceConfig) (Source, error) {
	switch cfg.Type {
	case "rss":
		if cfg.URL == "" {
			return nil, fmt.Errorf("rss source %q has no url", cfg.Name)
		}
		return NewRSSSource(cfg.Name, cfg.Game, cfg.URL), nil
	case "subreddit":
		if cfg.Subreddit == "" {
			return nil, fmt.Errorf("subreddit source %q has no subreddit", cfg.Name)
		}
		return NewSubredditSource(cfg.Name, cfg.Game, cfg.Subreddit), nil
	default:
		return nil, fmt.Errorf("unknown feed source type %q", cfg.Type)
	}
}
