package brokers

import (
	"fmt"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/tradecraft/src/eventmodels"
)

type SessionFactoryFunc func(cfg *eventmodels.BridgeConfigYAML) (IBrokerSession, error)

var sessionRegistry = map[string]SessionFactoryFunc{}

// Register adds a broker variant to the registry. Broker packages register
// themselves in init, so importing a broker package is what makes it
// selectable.
func Register(name string, factory SessionFactoryFunc) {
	sessionRegistry[strings.ToLower(name)] = factory
}

func Available() []string {
	names := make([]string, 0, len(sessionRegistry))
	for name := range sessionRegistry {
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

// NewFromConfig builds the configured broker session. The session is owned
// by the caller: lifecycle is Connect/Disconnect around the process context,
// never ambient global state.
func NewFromConfig(cfg *eventmodels.BridgeConfigYAML) (IBrokerSession, error) {
	factory, found := sessionRegistry[strings.ToLower(cfg.Broker)]
	if !found {
		return nil, fmt.Errorf("NewFromConfig: unknown broker %q, available: %v", cfg.Broker, Available())
	}

	session, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("NewFromConfig: failed to create %s session: %w", cfg.Broker, err)
	}

	log.Infof("using broker %s", cfg.Broker)

	return session, nil
}
