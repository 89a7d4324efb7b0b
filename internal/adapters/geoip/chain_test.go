package geoip

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/globetrace/internal/core/domain"
)

type stubProvider struct {
	loc   *domain.Location
	err   error
	calls int
}

func (s *stubProvider) Locate(ctx context.Context, ip string) (*domain.Location, error) {
	s.calls++
	return s.loc, s.err
}

func TestChain_FirstSuccessWins(t *testing.T) {
	miss := &stubProvider{err: ErrNoLocation}
	hit := &stubProvider{loc: &domain.Location{City: "Bilbao", Source: SourceIPAPI}}
	never := &stubProvider{loc: &domain.Location{City: "Elsewhere"}}

	loc, err := NewChain(miss, hit, never).Locate(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, "Bilbao", loc.City)
	assert.Equal(t, 0, never.calls)
}

func TestChain_AllFail(t *testing.T) {
	a := &stubProvider{err: ErrNoLocation}
	b := &stubProvider{err: &LookupError{IP: "1.2.3.4", Message: "reserved range"}}

	_, err := NewChain(a, b).Locate(context.Background(), "1.2.3.4")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoLocation))
	assert.True(t, errors.Is(err, ErrLookupFailed))
}

func TestChain_Empty(t *testing.T) {
	_, err := NewChain().Locate(context.Background(), "1.2.3.4")
	assert.True(t, errors.Is(err, domain.ErrUnavailable))
}
