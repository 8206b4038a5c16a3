// Package internal provides the App struct that wires all components of the
// onboarding system together and initializes the CLI layer.
package internal

import (
	"os"
	"path/filepath"
	"time"

	"github.com/tomaspereira-au/onboard-agent/internal/cli"
	"github.com/tomaspereira-au/onboard-agent/internal/core"
	"github.com/tomaspereira-au/onboard-agent/internal/observability"
	"github.com/tomaspereira-au/onboard-agent/internal/storage"
	"github.com/tomaspereira-au/onboard-agent/pkg/models"
)

// App holds all service dependencies for the onboarding system.
type App struct {
	BasePath string

	Config *models.Config

	Store    storage.SessionStore
	EventLog observability.EventLog
	Notifier observability.Notifier
	Ctrl     *core.Controller
}

// NewApp creates and wires all components. basePath is the root directory
// where configuration and session data live.
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	cfg, err := core.NewConfigManager(basePath).Load()
	if err != nil {
		// A malformed config file falls back to defaults; the process
		// still serves conversations.
		cfg = core.DefaultConfig()
	}
	app.Config = cfg

	storageRoot := cfg.Storage.Dir
	if storageRoot == "" {
		storageRoot = basePath
	}
	app.Store = storage.NewSessionStore(storageRoot)

	eventLogPath := filepath.Join(basePath, ".onboard_events.jsonl")
	app.EventLog, err = observability.NewJSONLEventLog(eventLogPath)
	if err != nil {
		// Non-fatal: run without operator events if the log can't be created.
		app.EventLog = nil
	}

	if cfg.Notifications.Enabled && cfg.Notifications.WebhookURL != "" {
		app.Notifier = observability.NewWebhookNotifier(cfg.Notifications.WebhookURL)
	}

	opts := core.ControllerOpts{
		Store:     app.Store,
		Validator: core.NewValidator(cfg.Validation),
	}
	if app.EventLog != nil {
		opts.Events = &eventLogAdapter{log: app.EventLog}
	}
	if app.Notifier != nil {
		opts.Notifier = app.Notifier
	}
	app.Ctrl = core.NewController(opts)

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Ctrl = app.Ctrl
	cli.Store = app.Store
	cli.EventLog = app.EventLog

	return app, nil
}

// Close releases resources held by the App. Safe to call when EventLog is nil.
func (a *App) Close() error {
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the data directory: ONBOARD_HOME env var, else
// the current directory.
func ResolveBasePath() string {
	if home := os.Getenv("ONBOARD_HOME"); home != "" {
		return home
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

// eventLogAdapter adapts observability.EventLog to core.EventLogger.
type eventLogAdapter struct {
	log observability.EventLog
}

func (a *eventLogAdapter) LogEvent(level, eventType, sessionID string, data map[string]any) {
	// Event log failures must never interrupt a conversation turn.
	_ = a.log.Write(observability.Event{
		Time:    time.Now().UTC(),
		Level:   level,
		Type:    eventType,
		Session: sessionID,
		Data:    data,
	})
}
