package usecases_test

import (
	"context"
	"errors"
	"sync"

	"github.com/samirrijal/globetrace/internal/core/domain"
)

// --- Mock Tracer ---

type mockTracer struct {
	traceFn func(ctx context.Context, target string) ([]domain.Hop, error)
}

func (m *mockTracer) Trace(ctx context.Context, target string) ([]domain.Hop, error) {
	if m.traceFn != nil {
		return m.traceFn(ctx, target)
	}
	return nil, nil
}

// --- Mock Geolocator ---

type mockGeolocator struct {
	mu        sync.Mutex
	calls     int
	locations map[string]*domain.Location
}

func (m *mockGeolocator) Locate(ctx context.Context, ip string) (*domain.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if loc, ok := m.locations[ip]; ok {
		cp := *loc
		cp.IP = ip
		return &cp, nil
	}
	return nil, errors.New("no location")
}

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, errors.New("valkey nil message")
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Mock TraceRepository ---

type mockTraceRepo struct {
	saved []*domain.Trace
}

func (m *mockTraceRepo) Save(ctx context.Context, trace *domain.Trace) error {
	m.saved = append(m.saved, trace)
	return nil
}

func (m *mockTraceRepo) GetByID(ctx context.Context, id string) (*domain.Trace, error) {
	for _, t := range m.saved {
		if t.ID == id {
			return t, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockTraceRepo) ListRecent(ctx context.Context, offset, limit int) ([]domain.Trace, int, error) {
	var out []domain.Trace
	for _, t := range m.saved {
		out = append(out, *t)
	}
	return out, len(out), nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	events []*domain.TraceEvent
}

func (m *mockPublisher) PublishTraceEvent(ctx context.Context, event *domain.TraceEvent) error {
	m.events = append(m.events, event)
	return nil
}

var (
	madrid = &domain.Location{Lon: -3.70, Lat: 40.42, City: "Madrid", Source: "mock"}
	paris  = &domain.Location{Lon: 2.35, Lat: 48.86, City: "Paris", Source: "mock"}
	// Antipode of Madrid.
	antiMadrid = &domain.Location{Lon: 176.30, Lat: -40.42, City: "Antipodes", Source: "mock"}
)
