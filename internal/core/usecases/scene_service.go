package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samirrijal/globetrace/internal/core/domain"
	"github.com/samirrijal/globetrace/internal/pkg/geospatial"
	"github.com/samirrijal/globetrace/internal/pkg/logging"
	"github.com/samirrijal/globetrace/internal/pkg/metrics"
	"github.com/samirrijal/globetrace/internal/pkg/telemetry"
)

// SceneService turns user input into scene descriptions.
type SceneService struct {
	render *RenderContext
	traces *TraceService
}

// NewSceneService creates a new SceneService. traces may be nil, in which
// case only the base globe can be drawn.
func NewSceneService(render *RenderContext, traces *TraceService) *SceneService {
	return &SceneService{render: render, traces: traces}
}

// BaseScene returns the globe with borders and no trace.
func (s *SceneService) BaseScene() *domain.Scene {
	return s.render.newScene()
}

// Options returns the geometry and styling scenes are drawn with.
func (s *SceneService) Options() RenderOptions {
	return s.render.Options()
}

// TraceScene draws a previously recorded trace.
func (s *SceneService) TraceScene(ctx context.Context, id string) (*domain.Scene, error) {
	if s.traces == nil {
		return nil, fmt.Errorf("tracing: %w", domain.ErrUnavailable)
	}
	trace, err := s.traces.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.BuildTraceScene(ctx, trace), nil
}

// HandleInput is the request/response form of the interactive session:
// blank input draws the bare globe, anything else is traced and drawn.
func (s *SceneService) HandleInput(ctx context.Context, input string) (*domain.Scene, error) {
	if strings.TrimSpace(input) == "" {
		return s.BaseScene(), nil
	}
	if s.traces == nil {
		return nil, fmt.Errorf("tracing: %w", domain.ErrUnavailable)
	}

	trace, err := s.traces.Run(ctx, input)
	if err != nil {
		return nil, err
	}
	return s.BuildTraceScene(ctx, trace), nil
}

// BuildTraceScene draws trace on top of the base globe: a marker per located
// hop and a great-circle arc between consecutive located hops.
func (s *SceneService) BuildTraceScene(ctx context.Context, trace *domain.Trace) *domain.Scene {
	_, span := telemetry.Tracer().Start(ctx, telemetry.SpanSceneBuild)
	defer span.End()

	opts := s.render.opts
	scene := s.render.newScene()
	scene.Target = trace.Target
	scene.TraceID = trace.ID

	located := trace.Located()
	for _, h := range located {
		p := geospatial.Project(lonLat(h.Location), opts.ArcRadius)
		scene.Markers = append(scene.Markers, domain.Marker{
			Label: markerLabel(h),
			IP:    h.Address,
			City:  h.Location.City,
			TTL:   h.TTL,
			X:     p.X,
			Y:     p.Y,
			Z:     p.Z,
		})
	}

	for i := 1; i < len(located); i++ {
		from, to := located[i-1], located[i]
		a, b := lonLat(from.Location), lonLat(to.Location)

		pts, err := geospatial.Arc(a, b, opts.ArcPoints, opts.ArcRadius)
		if err != nil {
			reason := err.Error()
			if errors.Is(err, geospatial.ErrDegenerateArc) {
				metrics.DegenerateArcs.Inc()
				reason = "antipodal endpoints"
			}
			logging.FromContext(ctx).Warn("arc skipped",
				"trace_id", trace.ID, "from_ttl", from.TTL, "to_ttl", to.TTL, "error", err)
			scene.Skipped = append(scene.Skipped, domain.SkippedLeg{FromTTL: from.TTL, ToTTL: to.TTL, Reason: reason})
			continue
		}

		xs, ys, zs := geospatial.Columns(pts)
		scene.Lines = append(scene.Lines, domain.Polyline{
			Name:  fmt.Sprintf("hop %d → %d", from.TTL, to.TTL),
			Kind:  domain.KindArc,
			X:     xs,
			Y:     ys,
			Z:     zs,
			Color: opts.ArcColor,
			Width: opts.ArcWidth,
		})
		scene.Legs = append(scene.Legs, domain.Leg{
			FromTTL:    from.TTL,
			ToTTL:      to.TTL,
			DistanceKm: geospatial.DistanceKm(a, b),
		})
	}
	return scene
}

func lonLat(l *domain.Location) geospatial.LonLat {
	return geospatial.LonLat{Lon: l.Lon, Lat: l.Lat}
}

func markerLabel(h domain.LocatedHop) string {
	if h.Location.City != "" {
		return fmt.Sprintf("%d: %s (%s)", h.TTL, h.Address, h.Location.City)
	}
	return fmt.Sprintf("%d: %s", h.TTL, h.Address)
}
