package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const userAgent = "gamewatch/1.0 (+https://github.com/gamewatch/gamewatch)"

// SubredditSource polls a subreddit's public "new" listing.
type SubredditSource struct {
	name      string
	game      string
	subreddit string
	baseURL   string
	client    *http.Client
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Name       string  `json:"name"` // fullname, e.g. "t3_abc123"
	Title      string  `json:"title"`
	Permalink  string  `json:"permalink"`
	Selftext   string  `json:"selftext"`
	CreatedUTC float64 `json:"created_utc"`
	Stickied   bool    `json:"stickied"`
}

func NewSubredditSource(name, game, subreddit string) *SubredditSource {
	return &SubredditSource{
		name:      name,
		game:      game,
		subreddit: subreddit,
		baseURL:   "https://www.reddit.com",
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *SubredditSource) Name() string { return s.name }
func (s *SubredditSource) Game() string { return s.game }

func (s *SubredditSource) Fetch(ctx context.Context) ([]Update, error) {
	url := fmt.Sprintf("%s/r/%s/new.json?limit=25", s.baseURL, s.subreddit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	// Reddit rejects default Go user agents with 429s.
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch r/%s: %w", s.subreddit, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("r/%s listing returned status %d", s.subreddit, resp.StatusCode)
	}

	var listing redditListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("failed to decode r/%s listing: %w", s.subreddit, err)
	}

	updates := make([]Update, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		post := child.Data
		if post.Stickied {
			continue
		}
		updates = append(updates, Update{
			ID:        s.name + "/" + post.Name,
			Game:      s.game,
			Title:     post.Title,
			URL:       s.baseURL + post.Permalink,
			Summary:   post.Selftext,
			Source:    s.name,
			Published: time.Unix(int64(post.CreatedUTC), 0).UTC(),
		})
	}

	return updates, nil
}
