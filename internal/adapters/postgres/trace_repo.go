package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/globetrace/internal/core/domain"
)

// TraceRepo implements ports.TraceRepository.
type TraceRepo struct {
	db *DB
}

func NewTraceRepo(db *DB) *TraceRepo {
	return &TraceRepo{db: db}
}

func (r *TraceRepo) Save(ctx context.Context, t *domain.Trace) error {
	hops, err := json.Marshal(t.Hops)
	if err != nil {
		return fmt.Errorf("encode hops: %w", err)
	}
	_, err = r.db.Pool.Exec(ctx, `
		INSERT INTO traces (id, target, hops, started_at, finished_at, error)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			hops = EXCLUDED.hops,
			finished_at = EXCLUDED.finished_at,
			error = EXCLUDED.error
	`, t.ID, t.Target, hops, t.StartedAt, t.FinishedAt, t.Error)
	return err
}

func (r *TraceRepo) GetByID(ctx context.Context, id string) (*domain.Trace, error) {
	row := r.db.Pool.QueryRow(ctx, `
		SELECT id::text, target, hops, started_at, finished_at, error
		FROM traces
		WHERE id = $1
	`, id)

	t, err := scanTrace(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *TraceRepo) ListRecent(ctx context.Context, offset, limit int) ([]domain.Trace, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM traces`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx, `
		SELECT id::text, target, hops, started_at, finished_at, error
		FROM traces
		ORDER BY started_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	traces := make([]domain.Trace, 0, limit)
	for rows.Next() {
		t, err := scanTrace(rows)
		if err != nil {
			return nil, 0, err
		}
		traces = append(traces, *t)
	}
	return traces, total, rows.Err()
}

func scanTrace(row pgx.Row) (*domain.Trace, error) {
	var t domain.Trace
	var hops []byte
	if err := row.Scan(&t.ID, &t.Target, &hops, &t.StartedAt, &t.FinishedAt, &t.Error); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(hops, &t.Hops); err != nil {
		return nil, fmt.Errorf("decode hops of %s: %w", t.ID, err)
	}
	return &t, nil
}
