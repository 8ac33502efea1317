package channels

import (
	"context"
	"fmt"
	"sync"

	"github.com/gamewatch/gamewatch/pkg/bus"
	"github.com/gamewatch/gamewatch/pkg/config"
	"github.com/gamewatch/gamewatch/pkg/logger"
	"github.com/gamewatch/gamewatch/pkg/utils"
)

const defaultChannelQueueSize = 100

type channelWorker struct {
	ch    Channel
	queue chan bus.OutboundMessage
	done  chan struct{}
}

// Manager owns the enabled channel adapters and routes outbound messages
// from the bus to per-channel worker queues.
type Manager struct {
	channels     map[string]Channel
	workers      map[string]*channelWorker
	bus          *bus.MessageBus
	config       *config.Config
	dispatchStop context.CancelFunc
	mu           sync.RWMutex
}

func NewManager(cfg *config.Config, messageBus *bus.MessageBus) (*Manager, error) {
	m := &Manager{
		channels: make(map[string]Channel),
		workers:  make(map[string]*channelWorker),
		bus:      messageBus,
		config:   cfg,
	}

	m.initChannels()
	return m, nil
}

// initChannel looks up a factory by name and creates the channel. A failed
// adapter is logged and skipped; the rest of the process keeps running.
func (m *Manager) initChannel(name, displayName string) {
	f, ok := getFactory(name)
	if !ok {
		logger.WarnCF("channels", "Factory not registered", map[string]any{
			"channel": displayName,
		})
		return
	}
	ch, err := f(m.config, m.bus)
	if err != nil {
		logger.ErrorCF("channels", "Failed to initialize channel", map[string]any{
			"channel": displayName,
			"error":   err.Error(),
		})
		return
	}
	m.channels[name] = ch
	m.workers[name] = &channelWorker{
		ch:    ch,
		queue: make(chan bus.OutboundMessage, defaultChannelQueueSize),
		done:  make(chan struct{}),
	}
	logger.InfoCF("channels", "Channel enabled", map[string]any{
		"channel": displayName,
	})
}

func (m *Manager) initChannels() {
	logger.InfoC("channels", "Initializing channel manager")

	if m.config.Channels.Telegram.Enabled {
		if m.config.Channels.Telegram.Token != "" {
			m.initChannel("telegram", "Telegram")
		} else {
			logger.WarnC("channels", "Telegram enabled but no token configured, skipping")
		}
	}
	if m.config.Channels.Discord.Enabled {
		if m.config.Channels.Discord.Token != "" {
			m.initChannel("discord", "Discord")
		} else {
			logger.WarnC("channels", "Discord enabled but no token configured, skipping")
		}
	}
	if m.config.Channels.Slack.Enabled {
		if m.config.Channels.Slack.BotToken != "" {
			m.initChannel("slack", "Slack")
		} else {
			logger.WarnC("channels", "Slack enabled but no bot token configured, skipping")
		}
	}

	logger.InfoCF("channels", "Channel initialization completed", map[string]any{
		"enabled_channels": len(m.channels),
	})
}

func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.channels) == 0 {
		logger.WarnC("channels", "No channels enabled")
		return nil
	}

	dispatchCtx, cancel := context.WithCancel(ctx)
	m.dispatchStop = cancel

	for name, channel := range m.channels {
		logger.InfoCF("channels", "Starting channel", map[string]any{
			"channel": name,
		})
		if err := channel.Start(ctx); err != nil {
			logger.ErrorCF("channels", "Failed to start channel", map[string]any{
				"channel": name,
				"error":   err.Error(),
			})
		}
	}

	for name, w := range m.workers {
		go m.runWorker(dispatchCtx, name, w)
	}
	go m.dispatchOutbound(dispatchCtx)

	logger.InfoC("channels", "All channels started")
	return nil
}

func (m *Manager) StopAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	logger.InfoC("channels", "Stopping all channels")

	if m.dispatchStop != nil {
		m.dispatchStop()
		m.dispatchStop = nil
	}

	for _, w := range m.workers {
		close(w.queue)
	}
	for _, w := range m.workers {
		<-w.done
	}

	for name, channel := range m.channels {
		if err := channel.Stop(ctx); err != nil {
			logger.ErrorCF("channels", "Error stopping channel", map[string]any{
				"channel": name,
				"error":   err.Error(),
			})
		}
	}

	logger.InfoC("channels", "All channels stopped")
	return nil
}

// runWorker processes outbound messages for a single channel, splitting
// messages that exceed the channel's maximum message length.
func (m *Manager) runWorker(ctx context.Context, name string, w *channelWorker) {
	defer close(w.done)
	for {
		select {
		case msg, ok := <-w.queue:
			if !ok {
				return
			}
			maxLen := 0
			if mlp, ok := w.ch.(MessageLengthProvider); ok {
				maxLen = mlp.MaxMessageLength()
			}
			if maxLen > 0 && len([]rune(msg.Content)) > maxLen {
				for _, chunk := range utils.SplitMessage(msg.Content, maxLen) {
					chunkMsg := msg
					chunkMsg.Content = chunk
					if err := w.ch.Send(ctx, chunkMsg); err != nil {
						logger.ErrorCF("channels", "Error sending chunk", map[string]any{
							"channel": name, "error": err.Error(),
						})
					}
				}
			} else {
				if err := w.ch.Send(ctx, msg); err != nil {
					logger.ErrorCF("channels", "Error sending message", map[string]any{
						"channel": name, "error": err.Error(),
					})
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) dispatchOutbound(ctx context.Context) {
	logger.InfoC("channels", "Outbound dispatcher started")

	for {
		msg, ok := m.bus.ConsumeOutbound(ctx)
		if !ok {
			select {
			case <-ctx.Done():
				logger.InfoC("channels", "Outbound dispatcher stopped")
				return
			default:
				continue
			}
		}

		m.mu.RLock()
		w, exists := m.workers[msg.Channel]
		m.mu.RUnlock()

		if !exists {
			logger.WarnCF("channels", "Unknown channel for outbound message", map[string]any{
				"channel": msg.Channel,
			})
			continue
		}

		select {
		case w.queue <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) GetChannel(name string) (Channel, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	channel, ok := m.channels[name]
	return channel, ok
}

func (m *Manager) GetEnabledChannels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	return names
}

// SendToChannel queues a message for the named channel, bypassing the bus.
// Command handlers reply through this path.
func (m *Manager) SendToChannel(ctx context.Context, channelName, chatID, content string) error {
	m.mu.RLock()
	w, exists := m.workers[channelName]
	m.mu.RUnlock()

	if !exists {
		return fmt.Errorf("channel %s not found", channelName)
	}

	select {
	case w.queue <- bus.OutboundMessage{Channel: channelName, ChatID: chatID, Content: content}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
