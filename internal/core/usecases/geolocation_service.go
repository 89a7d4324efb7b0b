package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"net/netip"

	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/globetrace/internal/core/domain"
	"github.com/samirrijal/globetrace/internal/core/ports"
	"github.com/samirrijal/globetrace/internal/pkg/logging"
	"github.com/samirrijal/globetrace/internal/pkg/metrics"
)

// Shared address space (RFC 6598) shows up in most carrier-grade NAT paths.
var cgnatPrefix = netip.MustParsePrefix("100.64.0.0/10")

// GeolocationService resolves hop addresses to positions.
type GeolocationService struct {
	provider    ports.Geolocator
	cache       ports.CacheService
	ttlSeconds  int
	concurrency int
}

// NewGeolocationService creates a new GeolocationService. cache may be nil.
func NewGeolocationService(provider ports.Geolocator, cache ports.CacheService, ttlSeconds, concurrency int) *GeolocationService {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &GeolocationService{
		provider:    provider,
		cache:       cache,
		ttlSeconds:  ttlSeconds,
		concurrency: concurrency,
	}
}

// Routable reports whether addr could be geolocated by a public provider.
func Routable(addr netip.Addr) bool {
	addr = addr.Unmap()
	return !(addr.IsPrivate() ||
		addr.IsLoopback() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsMulticast() ||
		addr.IsUnspecified() ||
		cgnatPrefix.Contains(addr))
}

// Locate returns the position of ip.
func (s *GeolocationService) Locate(ctx context.Context, ip string) (*domain.Location, error) {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidIP, ip)
	}
	if !Routable(addr) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotRoutable, addr)
	}
	ip = addr.Unmap().String()

	cacheKey := "geo:ip:" + ip
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var loc domain.Location
			if err := json.Unmarshal(data, &loc); err == nil {
				metrics.CacheHits.WithLabelValues("geolocate").Inc()
				return &loc, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("geolocate").Inc()
	}

	loc, err := s.provider.Locate(ctx, ip)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(loc); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, s.ttlSeconds)
		}
	}

	return loc, nil
}

// LocateHops geolocates every responding hop. Lookups run concurrently;
// a hop whose lookup fails keeps a nil Location.
func (s *GeolocationService) LocateHops(ctx context.Context, hops []domain.Hop) []domain.LocatedHop {
	log := logging.FromContext(ctx)
	out := make([]domain.LocatedHop, len(hops))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, hop := range hops {
		out[i].Hop = hop
		if !hop.Responded() {
			continue
		}
		g.Go(func() error {
			loc, err := s.Locate(ctx, hop.Address)
			if err != nil {
				log.Debug("hop not located", "ttl", hop.TTL, "ip", hop.Address, "error", err)
				return nil
			}
			out[i].Location = loc
			return nil
		})
	}
	_ = g.Wait()

	for _, h := range out {
		located := "false"
		if h.Location != nil {
			located = "true"
		}
		metrics.HopsTotal.WithLabelValues(located).Inc()
	}
	return out
}
