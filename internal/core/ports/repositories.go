package ports

import (
	"context"

	"github.com/samirrijal/globetrace/internal/core/domain"
)

// TraceRepository persists completed traces.
type TraceRepository interface {
	Save(ctx context.Context, trace *domain.Trace) error
	GetByID(ctx context.Context, id string) (*domain.Trace, error)
	ListRecent(ctx context.Context, offset, limit int) ([]domain.Trace, int, error)
}
