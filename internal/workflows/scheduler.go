package workflows

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/globetrace/internal/core/usecases"
)

// Scheduler implements ports.TraceScheduler by starting TraceWorkflow on a
// Temporal task queue. The workflow ID doubles as the trace ID.
type Scheduler struct {
	client            client.Client
	taskQueue         string
	tracerouteTimeout time.Duration
}

// NewScheduler creates a new Scheduler.
func NewScheduler(c client.Client, taskQueue string, tracerouteTimeout time.Duration) *Scheduler {
	return &Scheduler{client: c, taskQueue: taskQueue, tracerouteTimeout: tracerouteTimeout}
}

// Schedule starts a trace towards target and returns its ID.
func (s *Scheduler) Schedule(ctx context.Context, target string) (string, error) {
	target, err := usecases.NormalizeTarget(target)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	opts := client.StartWorkflowOptions{
		ID:        id,
		TaskQueue: s.taskQueue,
	}
	run, err := s.client.ExecuteWorkflow(ctx, opts, TraceWorkflow, TraceInput{
		TraceID:           id,
		Target:            target,
		TracerouteTimeout: s.tracerouteTimeout,
	})
	if err != nil {
		return "", fmt.Errorf("start trace workflow: %w", err)
	}
	return run.GetID(), nil
}
