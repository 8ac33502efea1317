package feeds

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"
)

const rssFetchTimeout = 30 * time.Second

// RSSSource polls one RSS/Atom feed.
type RSSSource struct {
	name   string
	game   string
	url    string
	parser *gofeed.Parser
}

func NewRSSSource(name, game, url string) *RSSSource {
	parser := gofeed.NewParser()
	parser.UserAgent = userAgent
	return &RSSSource{
		name:   name,
		game:   game,
		url:    url,
		parser: parser,
	}
}

func (s *RSSSource) Name() string { return s.name }
func (s *RSSSource) Game() string { return s.game }

func (s *RSSSource) Fetch(ctx context.Context) ([]Update, error) {
	ctx, cancel := context.WithTimeout(ctx, rssFetchTimeout)
	defer cancel()

	feed, err := s.parser.ParseURLWithContext(s.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed %s: %w", s.url, err)
	}

	updates := make([]Update, 0, len(feed.Items))
	for _, item := range feed.Items {
		id := item.GUID
		if id == "" {
			id = item.Link
		}
		if id == "" {
			// Feed without GUIDs or links; derive a stable ID from the
			// item content so dedupe still works across polls.
			id = uuid.NewSHA1(uuid.NameSpaceURL,
				[]byte(s.url+"|"+item.Title+"|"+item.Published)).String()
		}

		u := Update{
			ID:      s.name + "/" + id,
			Game:    s.game,
			Title:   item.Title,
			URL:     item.Link,
			Summary: item.Description,
			Source:  s.name,
		}
		if item.PublishedParsed != nil {
			u.Published = *item.PublishedParsed
		}
		updates = append(updates, u)
	}

	return updates, nil
}
