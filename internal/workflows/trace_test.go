package workflows

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/globetrace/internal/core/domain"
	"github.com/samirrijal/globetrace/internal/core/usecases"
)

type mockTracer struct{ mock.Mock }

func (m *mockTracer) Trace(ctx context.Context, target string) ([]domain.Hop, error) {
	args := m.Called(ctx, target)
	hops, _ := args.Get(0).([]domain.Hop)
	return hops, args.Error(1)
}

type mockGeolocator struct{ mock.Mock }

func (m *mockGeolocator) Locate(ctx context.Context, ip string) (*domain.Location, error) {
	args := m.Called(ctx, ip)
	loc, _ := args.Get(0).(*domain.Location)
	return loc, args.Error(1)
}

type mockRepo struct{ mock.Mock }

func (m *mockRepo) Save(ctx context.Context, trace *domain.Trace) error {
	return m.Called(ctx, trace).Error(0)
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (*domain.Trace, error) {
	args := m.Called(ctx, id)
	tr, _ := args.Get(0).(*domain.Trace)
	return tr, args.Error(1)
}

func (m *mockRepo) ListRecent(ctx context.Context, offset, limit int) ([]domain.Trace, int, error) {
	args := m.Called(ctx, offset, limit)
	return nil, args.Int(1), args.Error(2)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishTraceEvent(ctx context.Context, ev *domain.TraceEvent) error {
	return m.Called(ctx, ev).Error(0)
}

func newActivities(tracer *mockTracer, geo *mockGeolocator, repo *mockRepo, pub *mockPublisher) *TraceActivities {
	geoSvc := usecases.NewGeolocationService(geo, nil, 60, 2)
	return &TraceActivities{Traces: usecases.NewTraceService(tracer, geoSvc, repo, pub)}
}

func TestTraceWorkflow(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()

	tracer := &mockTracer{}
	tracer.On("Trace", mock.Anything, "1.1.1.1").Return([]domain.Hop{
		{TTL: 1, Address: "8.8.8.8", RTTs: []float64{4.2}},
		{TTL: 2, Timeouts: 3},
		{TTL: 3, Address: "1.1.1.1", RTTs: []float64{18.9}},
	}, nil)
	geo := &mockGeolocator{}
	geo.On("Locate", mock.Anything, "8.8.8.8").Return(&domain.Location{IP: "8.8.8.8", Lon: -122.08, Lat: 37.39, Source: "ipapi"}, nil)
	geo.On("Locate", mock.Anything, "1.1.1.1").Return(&domain.Location{IP: "1.1.1.1", Lon: 151.2, Lat: -33.87, Source: "ipapi"}, nil)
	repo := &mockRepo{}
	repo.On("Save", mock.Anything, mock.MatchedBy(func(tr *domain.Trace) bool {
		return tr.ID == "trace-1" && len(tr.Hops) == 3
	})).Return(nil)
	pub := &mockPublisher{}
	pub.On("PublishTraceEvent", mock.Anything, mock.Anything).Return(nil)

	env.RegisterActivity(newActivities(tracer, geo, repo, pub))
	env.ExecuteWorkflow(TraceWorkflow, TraceInput{TraceID: "trace-1", Target: "1.1.1.1", TracerouteTimeout: time.Second})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var trace domain.Trace
	require.NoError(t, env.GetWorkflowResult(&trace))
	assert.Equal(t, "trace-1", trace.ID)
	assert.Len(t, trace.Hops, 3)
	assert.Len(t, trace.Located(), 2)
	assert.False(t, trace.FinishedAt.Before(trace.StartedAt))

	repo.AssertExpectations(t)
	// two hop events and one done event
	pub.AssertNumberOfCalls(t, "PublishTraceEvent", 3)
}

func TestTraceWorkflow_InvalidTargetNotRetried(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()

	tracer := &mockTracer{}
	env.RegisterActivity(newActivities(tracer, &mockGeolocator{}, &mockRepo{}, &mockPublisher{}))
	env.ExecuteWorkflow(TraceWorkflow, TraceInput{TraceID: "trace-2", Target: "-n"})

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	tracer.AssertNotCalled(t, "Trace", mock.Anything, mock.Anything)
}

func TestTraceWorkflow_MissingBinaryNotRetried(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()

	tracer := &mockTracer{}
	tracer.On("Trace", mock.Anything, "example.com").Return(nil, domain.ErrUnavailable)
	env.RegisterActivity(newActivities(tracer, &mockGeolocator{}, &mockRepo{}, &mockPublisher{}))
	env.ExecuteWorkflow(TraceWorkflow, TraceInput{TraceID: "trace-3", Target: "example.com"})

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	tracer.AssertNumberOfCalls(t, "Trace", 1)
}

func TestTraceWorkflow_SaveFailureFailsWorkflow(t *testing.T) {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()

	tracer := &mockTracer{}
	tracer.On("Trace", mock.Anything, "10.0.0.1").Return([]domain.Hop{{TTL: 1, Address: "10.0.0.1"}}, nil)
	repo := &mockRepo{}
	repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("db down"))
	pub := &mockPublisher{}

	env.RegisterActivity(newActivities(tracer, &mockGeolocator{}, repo, pub))
	env.ExecuteWorkflow(TraceWorkflow, TraceInput{TraceID: "trace-4", Target: "10.0.0.1"})

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	repo.AssertNumberOfCalls(t, "Save", 3)
	pub.AssertNotCalled(t, "PublishTraceEvent", mock.Anything, mock.Anything)
}
