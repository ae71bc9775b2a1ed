// Package plugin defines the module framework that printdeck subsystems
// plug into: lifecycle, HTTP routes, events, and shared persistence.
package plugin

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Route represents an HTTP route exposed by a plugin.
type Route struct {
	Method  string
	Path    string
	Handler http.HandlerFunc
}

// Plugin defines the interface that all printdeck modules implement.
type Plugin interface {
	// Name returns the plugin's unique identifier (e.g., "discovery", "dispatch").
	Name() string

	// Version returns the plugin's semantic version.
	Version() string

	// Init initializes the plugin with its configuration subtree and a named logger.
	Init(config *viper.Viper, logger *zap.Logger) error

	// Start begins the plugin's background operations.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the plugin.
	Stop() error

	// Routes returns the HTTP routes this plugin exposes.
	Routes() []Route
}

// Event is a message published on the in-process event bus.
type Event struct {
	Topic     string
	Source    string
	Timestamp time.Time
	Payload   any
}

// EventHandler processes a single event.
type EventHandler func(ctx context.Context, e Event)

// EventBus is the in-process publish/subscribe fabric shared by plugins.
// Subscribe and SubscribeAll return an unsubscribe function.
type EventBus interface {
	Publish(ctx context.Context, event Event) error
	PublishAsync(ctx context.Context, event Event)
	Subscribe(topic string, handler EventHandler) func()
	SubscribeAll(handler EventHandler) func()
}

// Migration is a single schema change applied by a Store, namespaced per
// plugin and tracked so it runs at most once.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// Store is the shared durable store handed to plugins.
type Store interface {
	// DB returns the underlying database handle for direct queries.
	DB() *sql.DB

	// Tx runs fn inside a transaction, committing on nil error.
	Tx(ctx context.Context, fn func(tx *sql.Tx) error) error

	// Migrate applies pending migrations for the named plugin.
	Migrate(ctx context.Context, pluginName string, migrations []Migration) error
}
