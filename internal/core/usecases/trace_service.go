package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"net/netip"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/globetrace/internal/core/domain"
	"github.com/samirrijal/globetrace/internal/core/ports"
	"github.com/samirrijal/globetrace/internal/pkg/logging"
	"github.com/samirrijal/globetrace/internal/pkg/metrics"
	"github.com/samirrijal/globetrace/internal/pkg/telemetry"
)

var hostnameRe = regexp.MustCompile(`^([A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?\.)*[A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?\.?$`)

// NormalizeTarget trims input and checks it is an IP literal or a hostname.
func NormalizeTarget(input string) (string, error) {
	target := strings.TrimSpace(input)
	switch {
	case target == "":
		return "", fmt.Errorf("%w: empty", domain.ErrInvalidTarget)
	case len(target) > 253:
		return "", fmt.Errorf("%w: longer than 253 characters", domain.ErrInvalidTarget)
	case strings.HasPrefix(target, "-"):
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidTarget, target)
	}
	if addr, err := netip.ParseAddr(target); err == nil {
		return addr.String(), nil
	}
	if !hostnameRe.MatchString(target) {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidTarget, target)
	}
	return strings.ToLower(target), nil
}

// TraceService runs traceroutes and records their results.
type TraceService struct {
	tracer ports.Tracer
	geo    *GeolocationService
	repo   ports.TraceRepository
	events ports.EventPublisher
	cache  ports.CacheService
	ttl    int
	now    func() time.Time
}

const traceCacheTTL = 3600

// NewTraceService creates a new TraceService. repo and events may be nil.
func NewTraceService(
	tracer ports.Tracer,
	geo *GeolocationService,
	repo ports.TraceRepository,
	events ports.EventPublisher,
) *TraceService {
	return &TraceService{tracer: tracer, geo: geo, repo: repo, events: events, ttl: traceCacheTTL, now: time.Now}
}

// WithCache keeps finished traces in cache for ttlSeconds so Get can serve
// them without the repository.
func (s *TraceService) WithCache(cache ports.CacheService, ttlSeconds int) *TraceService {
	s.cache = cache
	if ttlSeconds > 0 {
		s.ttl = ttlSeconds
	}
	return s
}

// Run traces the route to target, geolocates every hop, publishes progress
// and stores the result when a repository is configured.
func (s *TraceService) Run(ctx context.Context, target string) (*domain.Trace, error) {
	target, err := NormalizeTarget(target)
	if err != nil {
		return nil, err
	}

	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanTraceRun)
	defer span.End()

	trace := &domain.Trace{ID: uuid.NewString(), Target: target, StartedAt: s.now().UTC()}
	span.SetAttributes(
		attribute.String(telemetry.AttrTraceID, trace.ID),
		attribute.String(telemetry.AttrTraceTarget, target),
	)

	hops, err := s.Traceroute(ctx, target)
	if err != nil {
		metrics.TracesTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	trace.Hops = s.Locate(ctx, hops)
	trace.FinishedAt = s.now().UTC()

	metrics.TracesTotal.WithLabelValues("ok").Inc()
	metrics.TraceDuration.Observe(trace.FinishedAt.Sub(trace.StartedAt).Seconds())
	span.SetAttributes(
		attribute.Int(telemetry.AttrHopCount, len(trace.Hops)),
		attribute.Int(telemetry.AttrLocatedCount, len(trace.Located())),
	)

	if err := s.Record(ctx, trace); err != nil {
		logging.FromContext(ctx).Warn("trace not stored", "trace_id", trace.ID, "error", err)
	}
	return trace, nil
}

// Traceroute runs the tracer alone.
func (s *TraceService) Traceroute(ctx context.Context, target string) ([]domain.Hop, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanTraceroute)
	defer span.End()

	hops, err := s.tracer.Trace(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("traceroute %s: %w", target, err)
	}
	return hops, nil
}

// Locate geolocates hops.
func (s *TraceService) Locate(ctx context.Context, hops []domain.Hop) []domain.LocatedHop {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanGeolocate)
	defer span.End()

	return s.geo.LocateHops(ctx, hops)
}

// Record publishes the hop and completion events for trace and saves it.
// Publishing is best effort; the returned error is the save error.
func (s *TraceService) Record(ctx context.Context, trace *domain.Trace) error {
	s.Publish(ctx, trace)
	return s.Save(ctx, trace)
}

// Save caches trace and stores it when a repository is configured.
func (s *TraceService) Save(ctx context.Context, trace *domain.Trace) error {
	s.Remember(ctx, trace)
	if s.repo == nil {
		return nil
	}
	if err := s.repo.Save(ctx, trace); err != nil {
		return fmt.Errorf("save trace %s: %w", trace.ID, err)
	}
	return nil
}

// Publish sends a hop event per located hop followed by a done event.
// Failures are logged and stop the remaining events.
func (s *TraceService) Publish(ctx context.Context, trace *domain.Trace) {
	if s.events == nil {
		return
	}
	log := logging.FromContext(ctx)
	for i := range trace.Hops {
		hop := trace.Hops[i]
		if hop.Location == nil {
			continue
		}
		ev := &domain.TraceEvent{TraceID: trace.ID, Kind: domain.EventHop, Hop: &hop}
		if err := s.events.PublishTraceEvent(ctx, ev); err != nil {
			log.Warn("publish hop event", "trace_id", trace.ID, "error", err)
			return
		}
	}
	done := &domain.TraceEvent{TraceID: trace.ID, Kind: domain.EventDone, Trace: trace}
	if err := s.events.PublishTraceEvent(ctx, done); err != nil {
		log.Warn("publish done event", "trace_id", trace.ID, "error", err)
	}
}

// Remember caches trace. It is a no-op without a cache.
func (s *TraceService) Remember(ctx context.Context, trace *domain.Trace) {
	if s.cache == nil || trace == nil {
		return
	}
	data, err := json.Marshal(trace)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, traceCacheKey(trace.ID), data, s.ttl); err != nil {
		logging.FromContext(ctx).Debug("cache trace", "trace_id", trace.ID, "error", err)
	}
}

// HandleEvent caches the trace carried by a done event, so traces run by
// the worker can be served straight away.
func (s *TraceService) HandleEvent(ctx context.Context, ev *domain.TraceEvent) error {
	if ev.Kind == domain.EventDone && ev.Trace != nil {
		s.Remember(ctx, ev.Trace)
	}
	return nil
}

// Get returns a finished trace from cache or the repository.
func (s *TraceService) Get(ctx context.Context, id string) (*domain.Trace, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, traceCacheKey(id)); err == nil {
			var t domain.Trace
			if json.Unmarshal(data, &t) == nil {
				metrics.CacheHits.WithLabelValues("trace").Inc()
				return &t, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("trace").Inc()
	}

	if s.repo == nil {
		if s.cache != nil {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrUnavailable
	}
	trace, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Remember(ctx, trace)
	return trace, nil
}

func traceCacheKey(id string) string {
	return "trace:" + id
}

// ListRecent returns stored traces, newest first, and the total count.
func (s *TraceService) ListRecent(ctx context.Context, offset, limit int) ([]domain.Trace, int, error) {
	if s.repo == nil {
		return nil, 0, domain.ErrUnavailable
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListRecent(ctx, offset, limit)
}
