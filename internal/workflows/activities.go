package workflows

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/globetrace/internal/core/domain"
	"github.com/samirrijal/globetrace/internal/core/usecases"
	"github.com/samirrijal/globetrace/internal/pkg/metrics"
)

// TraceActivities holds the activity implementations for TraceWorkflow.
type TraceActivities struct {
	Traces *usecases.TraceService
}

// RunTraceroute runs traceroute towards target. Bad targets and a missing
// binary are not retried.
func (a *TraceActivities) RunTraceroute(ctx context.Context, target string) ([]domain.Hop, error) {
	target, err := usecases.NormalizeTarget(target)
	if err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), "InvalidTarget", err)
	}
	hops, err := a.Traces.Traceroute(ctx, target)
	if errors.Is(err, domain.ErrUnavailable) {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), "Unavailable", err)
	}
	if err != nil {
		metrics.TracesTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	activity.GetLogger(ctx).Info("traceroute finished", "target", target, "hops", len(hops))
	return hops, nil
}

// LocateHops geolocates every responding hop. Lookups that fail leave the
// hop without a location, so this never fails.
func (a *TraceActivities) LocateHops(ctx context.Context, hops []domain.Hop) ([]domain.LocatedHop, error) {
	return a.Traces.Locate(ctx, hops), nil
}

// SaveTrace stores the finished trace.
func (a *TraceActivities) SaveTrace(ctx context.Context, trace domain.Trace) error {
	return a.Traces.Save(ctx, &trace)
}

// PublishTrace announces the finished trace on the event bus.
func (a *TraceActivities) PublishTrace(ctx context.Context, trace domain.Trace) error {
	a.Traces.Publish(ctx, &trace)
	metrics.TracesTotal.WithLabelValues("ok").Inc()
	metrics.TraceDuration.Observe(trace.FinishedAt.Sub(trace.StartedAt).Seconds())
	return nil
}
