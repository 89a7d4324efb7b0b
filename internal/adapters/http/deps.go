package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/globetrace/internal/adapters/postgres"
	"github.com/samirrijal/globetrace/internal/adapters/valkey"
	"github.com/samirrijal/globetrace/internal/core/ports"
	"github.com/samirrijal/globetrace/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers. Everything but
// Scenes is optional; handlers answer 503 for the parts left nil.
type Dependencies struct {
	Scenes    *usecases.SceneService
	Traces    *usecases.TraceService
	Geo       *usecases.GeolocationService
	Scheduler ports.TraceScheduler
	NATS      *nats.Conn
	DB        *postgres.DB
	Cache     *valkey.Cache
	Version   string
}
