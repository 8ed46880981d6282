package venue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/avelsh/crossarb/internal/domain"
)

// Connector is a complete venue integration: the Client surface the engine
// consumes plus the session lifecycle and the event streams that drive it.
type Connector interface {
	Client

	// Run maintains the venue session (stream subscriptions, balance and
	// position polling) until the context is cancelled.
	Run(ctx context.Context) error

	// Triggers delivers market-movement notifications.
	Triggers() <-chan Trigger

	// Fills delivers fills on the engine's own resting orders.
	Fills() <-chan domain.FillEvent
}

// Settings carries one venue's configuration into its connector factory.
type Settings struct {
	Name      string
	WsHost    string
	RestHost  string
	ApiKey    string
	ApiSecret string
	TakerFee  float64
	MakerFee  float64
	Markets   map[string]string // coin -> venue market id
}

// Factory constructs a Connector for one configured venue.
type Factory func(settings Settings, logger *slog.Logger) (Connector, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// Register makes a connector factory available under the given venue name.
// Connector packages call it from init; registering the same name twice
// panics.
func Register(name string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if f == nil {
		panic("venue: Register factory is nil")
	}
	if _, dup := factories[name]; dup {
		panic("venue: Register called twice for " + name)
	}
	factories[name] = f
}

// Open constructs the connector registered under settings.Name.
func Open(settings Settings, logger *slog.Logger) (Connector, error) {
	factoriesMu.RLock()
	f, ok := factories[settings.Name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("venue: no connector registered for %q", settings.Name)
	}
	return f(settings, logger)
}

// Registered lists the venue names with a registered connector factory.
func Registered() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	out := make([]string, 0, len(factories))
	for name := range factories {
		out = append(out, name)
	}
	return out
}
