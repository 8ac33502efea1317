package feeds

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/adhocore/gronx"

	"github.com/gamewatch/gamewatch/pkg/bus"
	"github.com/gamewatch/gamewatch/pkg/logger"
	"github.com/gamewatch/gamewatch/pkg/markdown"
	"github.com/gamewatch/gamewatch/pkg/ratelimit"
	"github.com/gamewatch/gamewatch/pkg/store"
)

// Scheduler polls all feed sources on a cron expression or a fixed
// interval and relays new items to subscribed channels through the bus.
type Scheduler struct {
	sources  []Source
	store    *store.Store
	catalog  *store.Catalog
	seen     *SeenStore
	bus      *bus.MessageBus
	limiter  *ratelimit.Limiter
	schedule string        // cron expression, checked once a minute
	interval time.Duration // used when schedule is empty
	gron     gronx.Gronx
	lastPoll time.Time
}

func NewScheduler(
	sources []Source,
	st *store.Store,
	catalog *store.Catalog,
	seen *SeenStore,
	messageBus *bus.MessageBus,
	limiter *ratelimit.Limiter,
	schedule string,
	interval time.Duration,
) (*Scheduler, error) {
	g := gronx.New()
	if schedule != "" && !g.IsValid(schedule) {
		return nil, fmt.Errorf("invalid feed schedule %q", schedule)
	}
	return &Scheduler{
		sources:  sources,
		store:    st,
		catalog:  catalog,
		seen:     seen,
		bus:      messageBus,
		limiter:  limiter,
		schedule: schedule,
		interval: interval,
		gron:     *g,
	}, nil
}

// Run polls until the context is cancelled. The first poll happens
// immediately so a fresh process primes its seen set right away.
func (s *Scheduler) Run(ctx context.Context) {
	if len(s.sources) == 0 {
		logger.WarnC("feeds", "No feed sources configured, scheduler idle")
		return
	}

	logger.InfoCF("feeds", "Feed scheduler started", map[string]any{
		"sources":  len(s.sources),
		"schedule": s.schedule,
		"interval": s.interval.String(),
	})

	s.poll(ctx)

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.InfoC("feeds", "Feed scheduler stopped")
			return
		case <-ticker.C:
			if s.due() {
				s.poll(ctx)
			}
		}
	}
}

func (s *Scheduler) due() bool {
	if s.schedule != "" {
		due, err := s.gron.IsDue(s.schedule, time.Now())
		if err != nil {
			logger.ErrorCF("feeds", "Schedule check failed", map[string]any{
				"schedule": s.schedule, "error": err.Error(),
			})
			return false
		}
		return due
	}
	return time.Since(s.lastPoll) >= s.interval
}

// poll fetches every source concurrently and dispatches what is new.
// Transient fetch failures are logged and skipped; the cycle completes
// for the remaining sources.
func (s *Scheduler) poll(ctx context.Context) {
	s.lastPoll = time.Now()
	initial := s.seen.Fresh()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		updates []Update
	)

	for _, src := range s.sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			items, err := src.Fetch(ctx)
			if err != nil {
				logger.WarnCF("feeds", "Feed fetch failed", map[string]any{
					"source": src.Name(), "error": err.Error(),
				})
				return
			}
			mu.Lock()
			updates = append(updates, items...)
			mu.Unlock()
		}(src)
	}
	wg.Wait()

	delivered := 0
	for _, u := range updates {
		if !s.seen.MarkSeen(u.ID) {
			continue
		}
		if initial {
			// First run primes the seen set without notifying anyone.
			continue
		}
		delivered += s.dispatch(ctx, u)
	}

	if err := s.seen.Save(); err != nil {
		logger.ErrorCF("feeds", "Failed to persist seen items", map[string]any{
			"error": err.Error(),
		})
	}

	logger.InfoCF("feeds", "Poll cycle completed", map[string]any{
		"fetched":   len(updates),
		"delivered": delivered,
	})
}

// dispatch fans one update out to every channel subscribed to its game and
// returns how many messages were queued.
func (s *Scheduler) dispatch(ctx context.Context, u Update) int {
	subs := s.store.SubscribersOf(u.Game)
	if len(subs) == 0 {
		return 0
	}

	content := s.render(u)
	notification := &bus.Notification{
		Game:      u.Game,
		Title:     u.Title,
		URL:       u.URL,
		Summary:   u.Summary,
		Source:    u.Source,
		Published: u.Published,
	}

	sent := 0
	for _, rec := range subs {
		platform, chatID, ok := splitChannelKey(rec.ChannelKey)
		if !ok {
			logger.WarnCF("feeds", "Malformed channel key in subscriber record", map[string]any{
				"channel_key": rec.ChannelKey,
			})
			continue
		}
		if err := s.limiter.Wait(ctx, rec.ChannelKey); err != nil {
			return sent
		}
		s.bus.PublishOutbound(bus.OutboundMessage{
			Channel:      platform,
			ChatID:       chatID,
			Content:      content,
			Notification: notification,
		})
		sent++
	}
	return sent
}

func (s *Scheduler) render(u Update) string {
	label := u.Game
	if s.catalog != nil {
		if game, ok := s.catalog.Resolve(u.Game); ok {
			label = game.Label
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s** update", label)
	if u.Source != "" {
		fmt.Fprintf(&b, " (%s)", u.Source)
	}
	b.WriteString(":\n")
	if u.URL != "" {
		fmt.Fprintf(&b, "[%s](%s)", u.Title, u.URL)
	} else {
		b.WriteString(u.Title)
	}
	if u.Summary != "" {
		b.WriteString("\n\n")
		b.WriteString(u.Summary)
	}
	return markdown.Truncate(b.String(), markdown.DefaultBudget)
}

func splitChannelKey(key string) (platform, chatID string, ok bool) {
	parts := strings.SplitN(key, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
