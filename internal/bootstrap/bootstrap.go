// Package bootstrap builds the core services from configuration. It is
// shared by the api, worker and CLI binaries.
package bootstrap

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/samirrijal/globetrace/internal/adapters/borders"
	"github.com/samirrijal/globetrace/internal/adapters/geoip"
	"github.com/samirrijal/globetrace/internal/adapters/traceroute"
	"github.com/samirrijal/globetrace/internal/core/domain"
	"github.com/samirrijal/globetrace/internal/core/ports"
	"github.com/samirrijal/globetrace/internal/core/usecases"
	"github.com/samirrijal/globetrace/internal/pkg/config"
)

// Geolocator returns the provider selected by cfg.Provider. The returned
// close func releases the offline database, if one was opened.
func Geolocator(cfg config.GeoConfig) (ports.Geolocator, func(), error) {
	api := func() *geoip.APIClient {
		apiCfg := geoip.DefaultAPIConfig()
		apiCfg.BaseURL = cfg.APIURL
		apiCfg.RequestsPerMinute = cfg.RequestsPerMinute
		return geoip.NewAPIClient(apiCfg)
	}

	switch cfg.Provider {
	case "mmdb":
		db, err := geoip.OpenMMDB(cfg.MMDBPath)
		if err != nil {
			return nil, nil, err
		}
		return db, func() { _ = db.Close() }, nil
	case "chain":
		db, err := geoip.OpenMMDB(cfg.MMDBPath)
		if err != nil {
			slog.Warn("mmdb unavailable, falling back to ip-api only", "path", cfg.MMDBPath, "error", err)
			return geoip.NewChain(api()), func() {}, nil
		}
		return geoip.NewChain(db, api()), func() { _ = db.Close() }, nil
	case "ipapi", "":
		return api(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown geo provider %q", cfg.Provider)
	}
}

// Tracer returns a traceroute runner configured from cfg.
func Tracer(cfg config.TracerouteConfig) *traceroute.Runner {
	return traceroute.NewRunner(traceroute.Config{
		Binary:      cfg.Binary,
		MaxHops:     cfg.MaxHops,
		Queries:     cfg.Queries,
		WaitSeconds: cfg.WaitSeconds,
		Timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
	})
}

// RenderOptions overlays the configured radii and resolution on the
// default styling.
func RenderOptions(cfg config.GlobeConfig) usecases.RenderOptions {
	opts := usecases.DefaultRenderOptions()
	if cfg.SphereRadius > 0 {
		opts.SphereRadius = cfg.SphereRadius
	}
	if cfg.BorderRadius > 0 {
		opts.BorderRadius = cfg.BorderRadius
	}
	if cfg.ArcRadius > 0 {
		opts.ArcRadius = cfg.ArcRadius
	}
	if cfg.ArcPoints > 1 {
		opts.ArcPoints = cfg.ArcPoints
	}
	if cfg.SphereSteps > 1 {
		opts.SphereSteps = cfg.SphereSteps
	}
	return opts
}

// RenderContext loads the border file and prepares the static globe. A
// missing file leaves the globe without borders.
func RenderContext(cfg config.GlobeConfig) *usecases.RenderContext {
	var rings []domain.BorderRing
	if cfg.BordersPath != "" {
		var err error
		rings, err = borders.LoadFile(cfg.BordersPath)
		if err != nil {
			slog.Warn("borders not loaded", "path", cfg.BordersPath, "error", err)
		}
	}
	rc := usecases.NewRenderContext(rings, RenderOptions(cfg))
	slog.Info("globe ready", "borders", rc.BorderCount())
	return rc
}
