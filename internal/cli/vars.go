package cli

import (
	"github.com/tomaspereira-au/onboard-agent/internal/core"
	"github.com/tomaspereira-au/onboard-agent/internal/observability"
	"github.com/tomaspereira-au/onboard-agent/internal/storage"
)

// Service instances, set during app initialization in internal/app.go.
var (
	BasePath string
	Ctrl     *core.Controller
	Store    storage.SessionStore
	EventLog observability.EventLog
)
