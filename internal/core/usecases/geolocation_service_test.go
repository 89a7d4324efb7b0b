package usecases_test

import (
	"context"
	"errors"
	"net/netip"
	"testing"

	"github.com/samirrijal/globetrace/internal/core/domain"
	"github.com/samirrijal/globetrace/internal/core/usecases"
)

func TestRoutable(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"8.8.8.8", true},
		{"2001:4860:4860::8888", true},
		{"192.168.1.1", false},
		{"10.0.0.1", false},
		{"172.16.5.4", false},
		{"127.0.0.1", false},
		{"169.254.1.1", false},
		{"100.64.0.1", false},
		{"224.0.0.1", false},
		{"0.0.0.0", false},
		{"::ffff:192.168.1.1", false},
		{"fe80::1", false},
	}
	for _, tt := range tests {
		if got := usecases.Routable(netip.MustParseAddr(tt.addr)); got != tt.want {
			t.Errorf("Routable(%s) = %v, want %v", tt.addr, got, tt.want)
		}
	}
}

func TestGeolocationService_Locate_InvalidIP(t *testing.T) {
	svc := usecases.NewGeolocationService(&mockGeolocator{}, nil, 60, 1)
	_, err := svc.Locate(context.Background(), "not-an-ip")
	if !errors.Is(err, domain.ErrInvalidIP) {
		t.Errorf("expected ErrInvalidIP, got %v", err)
	}
}

func TestGeolocationService_Locate_PrivateSkipsProvider(t *testing.T) {
	geo := &mockGeolocator{}
	svc := usecases.NewGeolocationService(geo, nil, 60, 1)

	_, err := svc.Locate(context.Background(), "192.168.0.1")
	if !errors.Is(err, domain.ErrNotRoutable) {
		t.Errorf("expected ErrNotRoutable, got %v", err)
	}
	if geo.calls != 0 {
		t.Errorf("provider should not be called, got %d calls", geo.calls)
	}
}

func TestGeolocationService_Locate_UsesCache(t *testing.T) {
	geo := &mockGeolocator{locations: map[string]*domain.Location{"8.8.8.8": madrid}}
	cache := newMockCache()
	svc := usecases.NewGeolocationService(geo, cache, 60, 1)

	for i := 0; i < 3; i++ {
		loc, err := svc.Locate(context.Background(), "8.8.8.8")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if loc.City != "Madrid" {
			t.Errorf("expected Madrid, got %s", loc.City)
		}
	}
	if geo.calls != 1 {
		t.Errorf("expected 1 provider call, got %d", geo.calls)
	}
	if _, ok := cache.data["geo:ip:8.8.8.8"]; !ok {
		t.Error("expected cache entry geo:ip:8.8.8.8")
	}
}

func TestGeolocationService_LocateHops(t *testing.T) {
	geo := &mockGeolocator{locations: map[string]*domain.Location{
		"8.8.8.8": madrid,
		"1.1.1.1": paris,
	}}
	svc := usecases.NewGeolocationService(geo, nil, 60, 2)

	hops := []domain.Hop{
		{TTL: 1, Address: "192.168.1.1"},
		{TTL: 2, Timeouts: 3},
		{TTL: 3, Address: "8.8.8.8"},
		{TTL: 4, Address: "9.9.9.9"},
		{TTL: 5, Address: "1.1.1.1"},
	}
	got := svc.LocateHops(context.Background(), hops)

	if len(got) != len(hops) {
		t.Fatalf("expected %d hops, got %d", len(hops), len(got))
	}
	for i, h := range got {
		if h.TTL != hops[i].TTL {
			t.Errorf("hop %d: order changed, got TTL %d", i, h.TTL)
		}
	}
	if got[0].Location != nil || got[1].Location != nil || got[3].Location != nil {
		t.Error("private, silent and unknown hops must stay unlocated")
	}
	if got[2].Location == nil || got[2].Location.City != "Madrid" {
		t.Errorf("expected TTL 3 in Madrid, got %+v", got[2].Location)
	}
	if got[4].Location == nil || got[4].Location.City != "Paris" {
		t.Errorf("expected TTL 5 in Paris, got %+v", got[4].Location)
	}
	if geo.calls != 3 {
		t.Errorf("expected 3 provider calls, got %d", geo.calls)
	}
}
