package geoip

import (
	"context"
	"errors"
	"fmt"

	"github.com/samirrijal/globetrace/internal/core/domain"
	"github.com/samirrijal/globetrace/internal/core/ports"
	"github.com/samirrijal/globetrace/internal/pkg/logging"
)

// Chain tries each provider in order and returns the first location found.
type Chain struct {
	providers []ports.Geolocator
}

// NewChain creates a new Chain.
func NewChain(providers ...ports.Geolocator) *Chain {
	return &Chain{providers: providers}
}

// Locate implements ports.Geolocator.
func (c *Chain) Locate(ctx context.Context, ip string) (*domain.Location, error) {
	if len(c.providers) == 0 {
		return nil, fmt.Errorf("geoip: no providers: %w", domain.ErrUnavailable)
	}

	var errs []error
	for i, p := range c.providers {
		loc, err := p.Locate(ctx, ip)
		if err == nil {
			return loc, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logging.FromContext(ctx).Debug("geolocation provider miss", "provider", i, "ip", ip, "error", err)
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}
