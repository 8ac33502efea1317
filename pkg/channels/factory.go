package channels

import (
	"github.com/gamewatch/gamewatch/pkg/bus"
	"github.com/gamewatch/gamewatch/pkg/config"
)

// Factory builds a channel adapter from the process config.
type Factory func(cfg *config.Config, messageBus *bus.MessageBus) (Channel, error)

var factories = map[string]Factory{}

func registerFactory(name string, f Factory) {
	factories[name] = f
}

func getFactory(name string) (Factory, bool) {
	f, ok := factories[name]
	return f, ok
}
