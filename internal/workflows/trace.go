package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/globetrace/internal/core/domain"
)

// TraceInput is the input for TraceWorkflow.
type TraceInput struct {
	TraceID string
	Target  string
	// TracerouteTimeout bounds one traceroute run.
	TracerouteTimeout time.Duration
}

// TraceWorkflow runs a traceroute, geolocates the hops, stores the trace and
// then publishes it. A failed save is retried by Temporal; a failed publish
// only loses the live events, so it is logged and the trace still returned.
func TraceWorkflow(ctx workflow.Context, input TraceInput) (*domain.Trace, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting trace workflow", "target", input.Target, "traceID", input.TraceID)

	timeout := input.TracerouteTimeout
	if timeout <= 0 {
		timeout = 75 * time.Second
	}

	trace := &domain.Trace{ID: input.TraceID, Target: input.Target, StartedAt: workflow.Now(ctx).UTC()}

	traceCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: timeout + 10*time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})
	var hops []domain.Hop
	if err := workflow.ExecuteActivity(traceCtx, "RunTraceroute", input.Target).Get(ctx, &hops); err != nil {
		return nil, err
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})

	if err := workflow.ExecuteActivity(ctx, "LocateHops", hops).Get(ctx, &trace.Hops); err != nil {
		return nil, err
	}
	trace.FinishedAt = workflow.Now(ctx).UTC()

	if err := workflow.ExecuteActivity(ctx, "SaveTrace", *trace).Get(ctx, nil); err != nil {
		return nil, err
	}
	if err := workflow.ExecuteActivity(ctx, "PublishTrace", *trace).Get(ctx, nil); err != nil {
		logger.Warn("publish failed", "traceID", trace.ID, "error", err)
	}

	logger.Info("Trace workflow finished", "traceID", trace.ID, "hops", len(trace.Hops))
	return trace, nil
}
