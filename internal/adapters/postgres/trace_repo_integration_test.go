//go:build integration

package postgres_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/globetrace/internal/adapters/postgres"
	"github.com/samirrijal/globetrace/internal/core/domain"
	"github.com/samirrijal/globetrace/internal/pkg/config"
)

// setupTestDB connects to the database from config and applies migrations.
func setupTestDB(t *testing.T) *postgres.DB {
	t.Helper()
	cfg, err := config.Load("globetrace-test")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	_, err = db.Migrate(ctx)
	require.NoError(t, err)
	return db
}

func TestTraceRepo_RoundTrip(t *testing.T) {
	db := setupTestDB(t)
	repo := postgres.NewTraceRepo(db)
	ctx := context.Background()

	start := time.Now().UTC().Truncate(time.Microsecond)
	trace := &domain.Trace{
		ID:     uuid.NewString(),
		Target: "example.com",
		Hops: []domain.LocatedHop{
			{Hop: domain.Hop{TTL: 1, Address: "10.0.0.1", RTTs: []float64{0.4}}},
			{
				Hop:      domain.Hop{TTL: 2, Address: "8.8.8.8", RTTs: []float64{12.1}},
				Location: &domain.Location{IP: "8.8.8.8", Lon: -77.5, Lat: 39.03, City: "Ashburn", Source: "ipapi"},
			},
		},
		StartedAt:  start,
		FinishedAt: start.Add(3 * time.Second),
	}
	require.NoError(t, repo.Save(ctx, trace))
	require.NoError(t, repo.Save(ctx, trace), "save is an upsert")

	got, err := repo.GetByID(ctx, trace.ID)
	require.NoError(t, err)
	assert.Equal(t, trace.Target, got.Target)
	require.Len(t, got.Hops, 2)
	assert.Nil(t, got.Hops[0].Location)
	assert.Equal(t, "Ashburn", got.Hops[1].Location.City)
	assert.True(t, trace.StartedAt.Equal(got.StartedAt))

	list, total, err := repo.ListRecent(ctx, 0, 5)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, total, 1)
	assert.NotEmpty(t, list)
}

func TestTraceRepo_GetByID_NotFound(t *testing.T) {
	repo := postgres.NewTraceRepo(setupTestDB(t))

	_, err := repo.GetByID(context.Background(), uuid.NewString())
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
