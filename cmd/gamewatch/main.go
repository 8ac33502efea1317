package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gamewatch/gamewatch/pkg/bus"
	"github.com/gamewatch/gamewatch/pkg/channels"
	"github.com/gamewatch/gamewatch/pkg/commands"
	"github.com/gamewatch/gamewatch/pkg/config"
	"github.com/gamewatch/gamewatch/pkg/feeds"
	"github.com/gamewatch/gamewatch/pkg/logger"
	"github.com/gamewatch/gamewatch/pkg/ratelimit"
	"github.com/gamewatch/gamewatch/pkg/store"
)

var (
	version   = "dev"
	gitCommit string
	buildTime string
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:          "gamewatch",
		Short:        "Game update notification bot for Telegram, Discord and Slack",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json", "path to the config file")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gamewatch %s", version)
			if gitCommit != "" {
				fmt.Printf(" (git: %s)", gitCommit)
			}
			fmt.Println()
			if buildTime != "" {
				fmt.Printf("  Build: %s\n", buildTime)
			}
			fmt.Printf("  Go: %s\n", runtime.Version())
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(configPath); err == nil {
				return fmt.Errorf("%s already exists, not overwriting", configPath)
			}
			if err := config.Save(config.DefaultConfig(), configPath); err != nil {
				return err
			}
			fmt.Printf("Wrote %s. Fill in your bot tokens and run `gamewatch`.\n", configPath)
			return nil
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	if cfg.Log.File != "" {
		if err := logger.EnableFileLogging(cfg.Log.File); err != nil {
			logger.WarnCF("main", "File logging disabled", map[string]any{
				"file":  cfg.Log.File,
				"error": err.Error(),
			})
		}
	}

	logger.InfoCF("main", "Starting gamewatch", map[string]any{
		"version": version,
		"config":  configPath,
	})

	subscribers, err := store.Open(cfg.Store.SubscribersPath)
	if err != nil {
		return err
	}

	// A missing catalog disables the game commands but the bot still
	// answers help/about and serves its prefix surface.
	catalog, err := store.LoadCatalog(cfg.Store.CatalogPath)
	if err != nil {
		logger.WarnCF("main", "Game catalog unavailable, game commands disabled", map[string]any{
			"path":  cfg.Store.CatalogPath,
			"error": err.Error(),
		})
		catalog = nil
	}

	messageBus := bus.NewMessageBus()
	defer messageBus.Close()

	manager, err := channels.NewManager(cfg, messageBus)
	if err != nil {
		return err
	}

	resolver := commands.NewResolver(cfg.Bot.OwnerIDs)
	for _, name := range manager.GetEnabledChannels() {
		if ch, ok := manager.GetChannel(name); ok {
			if provider, ok := ch.(channels.RoleHintProvider); ok {
				resolver.RegisterHints(name, provider)
			}
		}
	}

	registry, err := commands.NewRegistry(cfg.Bot.DefaultPrefix, commands.BuiltinCommands())
	if err != nil {
		return err
	}

	env := &commands.Env{
		BotName:       cfg.Bot.Name,
		DefaultPrefix: cfg.Bot.DefaultPrefix,
		Registry:      registry,
		Store:         subscribers,
		Catalog:       catalog,
		Resolver:      resolver,
		Sender:        manager,
	}
	loop := commands.NewLoop(messageBus, env, manager)

	if err := manager.StartAll(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		manager.StopAll(stopCtx)
	}()

	go loop.Run(ctx)

	if cfg.Feeds.Enabled {
		if err := startFeeds(ctx, cfg, subscribers, catalog, messageBus); err != nil {
			return err
		}
	} else {
		logger.InfoC("main", "Feed polling disabled")
	}

	<-ctx.Done()
	logger.InfoC("main", "Shutting down")
	return nil
}

func startFeeds(ctx context.Context, cfg *config.Config, subscribers *store.Store, catalog *store.Catalog, messageBus *bus.MessageBus) error {
	sources := make([]feeds.Source, 0, len(cfg.Feeds.Sources))
	for _, sc := range cfg.Feeds.Sources {
		src, err := feeds.NewSource(sc)
		if err != nil {
			logger.WarnCF("main", "Skipping feed source", map[string]any{
				"source": sc.Name,
				"error":  err.Error(),
			})
			continue
		}
		sources = append(sources, src)
	}

	seen, err := feeds.OpenSeenStore(cfg.Feeds.SeenPath)
	if err != nil {
		return err
	}

	limiter := ratelimit.NewLimiter(cfg.RateLimits.NotificationsPerMinute)
	scheduler, err := feeds.NewScheduler(
		sources,
		subscribers,
		catalog,
		seen,
		messageBus,
		limiter,
		cfg.Feeds.Schedule,
		time.Duration(cfg.Feeds.IntervalMinutes)*time.Minute,
	)
	if err != nil {
		return err
	}

	go scheduler.Run(ctx)
	return nil
}
