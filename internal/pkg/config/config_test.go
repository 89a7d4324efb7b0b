package config

import (
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("globetrace-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Telemetry.ServiceName != "globetrace-test" {
		t.Errorf("expected service name globetrace-test, got %s", cfg.Telemetry.ServiceName)
	}
	if cfg.Globe.ArcPoints != 50 {
		t.Errorf("expected 50 arc points, got %d", cfg.Globe.ArcPoints)
	}
	if cfg.Globe.BorderRadius != 1.01 {
		t.Errorf("expected border radius 1.01, got %f", cfg.Globe.BorderRadius)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("GLOBETRACE_GEO_PROVIDER", "mmdb")
	t.Setenv("GLOBETRACE_TRACEROUTE_MAX_HOPS", "12")

	cfg, err := Load("globetrace-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Geo.Provider != "mmdb" {
		t.Errorf("expected provider mmdb, got %s", cfg.Geo.Provider)
	}
	if cfg.Traceroute.MaxHops != 12 {
		t.Errorf("expected max hops 12, got %d", cfg.Traceroute.MaxHops)
	}
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := Config{
		Server:     ServerConfig{Port: 0, ReadTimeout: 1, WriteTimeout: 1},
		Database:   DatabaseConfig{Enabled: true},
		Traceroute: TracerouteConfig{Binary: "traceroute", MaxHops: 30, Queries: 1, WaitSeconds: 1, TimeoutSeconds: 1},
		Geo:        GeoConfig{Provider: "carrier-pigeon", RequestsPerMinute: 1, Concurrency: 1},
		Globe:      GlobeConfig{ArcPoints: 1, SphereSteps: 100},
	}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.port", "database.host", "geo.provider", "globe.arc_points"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in error, got: %v", want, err)
		}
	}
}

func TestValidate_DisabledDatabaseNotChecked(t *testing.T) {
	cfg := Config{
		Server:     ServerConfig{Port: 8080, ReadTimeout: 1, WriteTimeout: 1},
		Traceroute: TracerouteConfig{Binary: "traceroute", MaxHops: 30, Queries: 1, WaitSeconds: 1, TimeoutSeconds: 1},
		Geo:        GeoConfig{Provider: "ipapi", APIURL: "http://ip-api.com", RequestsPerMinute: 45, Concurrency: 4},
		Globe:      GlobeConfig{ArcPoints: 50, SphereSteps: 100},
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
