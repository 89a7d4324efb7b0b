package ports

import (
	"context"

	"github.com/samirrijal/globetrace/internal/core/domain"
)

// Tracer runs a traceroute towards target and reports every TTL step.
type Tracer interface {
	Trace(ctx context.Context, target string) ([]domain.Hop, error)
}

// Geolocator resolves an IP address to a position.
type Geolocator interface {
	Locate(ctx context.Context, ip string) (*domain.Location, error)
}

// EventPublisher publishes trace progress to a message broker.
type EventPublisher interface {
	PublishTraceEvent(ctx context.Context, event *domain.TraceEvent) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// TraceScheduler hands a trace off to a background worker and returns the
// run identifier.
type TraceScheduler interface {
	Schedule(ctx context.Context, target string) (string, error)
}
