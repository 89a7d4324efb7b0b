package usecases_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/samirrijal/globetrace/internal/core/domain"
	"github.com/samirrijal/globetrace/internal/core/usecases"
	"github.com/samirrijal/globetrace/internal/pkg/geospatial"
)

func testBorders() []domain.BorderRing {
	return []domain.BorderRing{
		{Country: "Square", Points: []geospatial.LonLat{{Lon: 0, Lat: 0}, {Lon: 10, Lat: 0}, {Lon: 10, Lat: 10}, {Lon: 0, Lat: 10}, {Lon: 0, Lat: 0}}},
		{Country: "Dot", Points: []geospatial.LonLat{{Lon: 5, Lat: 5}}},
	}
}

func testRender() *usecases.RenderContext {
	opts := usecases.DefaultRenderOptions()
	opts.SphereSteps = 8
	opts.ArcPoints = 5
	return usecases.NewRenderContext(testBorders(), opts)
}

func TestRenderContext_ProjectsBorders(t *testing.T) {
	rc := testRender()
	if rc.BorderCount() != 1 {
		t.Fatalf("expected 1 border (single-point ring dropped), got %d", rc.BorderCount())
	}

	scene := usecases.NewSceneService(rc, nil).BaseScene()
	line := scene.Lines[0]
	if line.Kind != domain.KindBorder || line.Name != "Square" {
		t.Errorf("unexpected border line: %s %s", line.Kind, line.Name)
	}
	for i := range line.X {
		r := math.Sqrt(line.X[i]*line.X[i] + line.Y[i]*line.Y[i] + line.Z[i]*line.Z[i])
		if math.Abs(r-1.01) > 1e-9 {
			t.Errorf("border point %d at radius %f, want 1.01", i, r)
		}
	}
	if len(scene.Surface.Mesh.X) != 8 {
		t.Errorf("expected 8x8 sphere mesh, got %d rows", len(scene.Surface.Mesh.X))
	}
	if scene.Background != "black" {
		t.Errorf("expected black background, got %s", scene.Background)
	}
}

func TestSceneService_BaseSceneIsolated(t *testing.T) {
	svc := usecases.NewSceneService(testRender(), nil)

	a := svc.BaseScene()
	a.Lines = append(a.Lines, domain.Polyline{Kind: domain.KindArc})

	if b := svc.BaseScene(); len(b.Lines) != 1 {
		t.Errorf("base scene was mutated: %d lines", len(b.Lines))
	}
}

func TestSceneService_HandleInput_Blank(t *testing.T) {
	svc := usecases.NewSceneService(testRender(), nil)

	scene, err := svc.HandleInput(context.Background(), "  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scene.Markers) != 0 || scene.Target != "" {
		t.Error("blank input must produce the bare globe")
	}
}

func TestSceneService_HandleInput_Trace(t *testing.T) {
	hops := []domain.Hop{
		{TTL: 1, Address: "192.168.1.1"},
		{TTL: 2, Address: "8.8.8.8"},
		{TTL: 3, Address: "1.1.1.1"},
		{TTL: 4, Address: "9.9.9.9"},
		{TTL: 5, Address: "1.0.0.1"},
	}
	traces, _, _ := newTraceFixture(hops, map[string]*domain.Location{
		"8.8.8.8": madrid,
		"1.1.1.1": paris,
		"9.9.9.9": paris,
		"1.0.0.1": madrid,
	})
	svc := usecases.NewSceneService(testRender(), traces)

	scene, err := svc.HandleInput(context.Background(), "1.0.0.1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scene.Target != "1.0.0.1" || scene.TraceID == "" {
		t.Errorf("unexpected target/trace id: %q %q", scene.Target, scene.TraceID)
	}
	if len(scene.Markers) != 4 {
		t.Errorf("expected 4 markers, got %d", len(scene.Markers))
	}
	if scene.Markers[0].Label != "2: 8.8.8.8 (Madrid)" {
		t.Errorf("unexpected label %q", scene.Markers[0].Label)
	}

	var arcs []domain.Polyline
	for _, l := range scene.Lines {
		if l.Kind == domain.KindArc {
			arcs = append(arcs, l)
		}
	}
	if len(arcs) != 3 || len(scene.Legs) != 3 {
		t.Fatalf("expected 3 arcs and legs, got %d and %d", len(arcs), len(scene.Legs))
	}
	for _, a := range arcs {
		if len(a.X) != 5 {
			t.Errorf("expected 5 arc points, got %d", len(a.X))
		}
	}
	// Paris → Paris is a zero-length leg, still drawn.
	if scene.Legs[1].DistanceKm != 0 {
		t.Errorf("expected zero distance for coincident hops, got %f", scene.Legs[1].DistanceKm)
	}
	if d := scene.Legs[0].DistanceKm; d < 1000 || d > 1100 {
		t.Errorf("Madrid → Paris should be ~1050 km, got %f", d)
	}
}

func TestSceneService_BuildTraceScene_SkipsAntipodal(t *testing.T) {
	svc := usecases.NewSceneService(testRender(), nil)
	trace := &domain.Trace{
		ID:     "t1",
		Target: "example.com",
		Hops: []domain.LocatedHop{
			{Hop: domain.Hop{TTL: 1, Address: "8.8.8.8"}, Location: madrid},
			{Hop: domain.Hop{TTL: 2, Address: "9.9.9.9"}, Location: antiMadrid},
			{Hop: domain.Hop{TTL: 3, Address: "1.1.1.1"}, Location: paris},
		},
	}

	scene := svc.BuildTraceScene(context.Background(), trace)
	if len(scene.Skipped) != 1 {
		t.Fatalf("expected 1 skipped leg, got %d", len(scene.Skipped))
	}
	if s := scene.Skipped[0]; s.FromTTL != 1 || s.ToTTL != 2 || s.Reason != "antipodal endpoints" {
		t.Errorf("unexpected skipped leg: %+v", s)
	}
	if len(scene.Legs) != 1 || scene.Legs[0].FromTTL != 2 {
		t.Errorf("expected only leg 2 → 3, got %+v", scene.Legs)
	}
}

func TestSceneService_HandleInput_NoTracer(t *testing.T) {
	svc := usecases.NewSceneService(testRender(), nil)
	if _, err := svc.HandleInput(context.Background(), "8.8.8.8"); err == nil {
		t.Error("expected error without trace service")
	}
}

func TestSceneService_TraceScene(t *testing.T) {
	hops := []domain.Hop{
		{TTL: 1, Address: "8.8.8.8", RTTs: []float64{1}},
		{TTL: 2, Address: "9.9.9.9", RTTs: []float64{2}},
	}
	traces, _, _ := newTraceFixture(hops, map[string]*domain.Location{"8.8.8.8": madrid, "9.9.9.9": paris})
	svc := usecases.NewSceneService(testRender(), traces)

	trace, err := traces.Run(context.Background(), "9.9.9.9")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	scene, err := svc.TraceScene(context.Background(), trace.ID)
	if err != nil {
		t.Fatalf("TraceScene: %v", err)
	}
	if scene.TraceID != trace.ID {
		t.Errorf("expected trace id %s, got %s", trace.ID, scene.TraceID)
	}
	if len(scene.Legs) != 1 {
		t.Errorf("expected 1 leg, got %d", len(scene.Legs))
	}

	if _, err := svc.TraceScene(context.Background(), "0b5d7c8e-2f7a-4a4e-9d55-3d7c0b8f9a10"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
