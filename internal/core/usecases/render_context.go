package usecases

import (
	"github.com/samirrijal/globetrace/internal/core/domain"
	"github.com/samirrijal/globetrace/internal/pkg/geospatial"
)

// RenderOptions controls globe geometry and styling.
type RenderOptions struct {
	SphereRadius float64
	BorderRadius float64 // slightly above the sphere so borders are not occluded
	ArcRadius    float64
	ArcPoints    int
	SphereSteps  int
	Background   string
	SphereColor  string
	BorderColor  string
	BorderWidth  float64
	ArcColor     string
	ArcWidth     float64
}

// DefaultRenderOptions returns the stock black-globe styling.
func DefaultRenderOptions() RenderOptions {
	return RenderOptions{
		SphereRadius: 1.0,
		BorderRadius: 1.01,
		ArcRadius:    1.02,
		ArcPoints:    geospatial.DefaultArcPoints,
		SphereSteps:  geospatial.DefaultSphereSteps,
		Background:   "black",
		SphereColor:  "black",
		BorderColor:  "white",
		BorderWidth:  2,
		ArcColor:     "#ff3b30",
		ArcWidth:     4,
	}
}

// RenderContext holds everything a scene needs that does not change between
// requests: the sphere mesh and the projected country borders. Build it once
// at startup and share it; it is never mutated.
type RenderContext struct {
	opts    RenderOptions
	surface domain.Surface
	borders []domain.Polyline
}

// NewRenderContext projects borders and meshes the occlusion sphere.
func NewRenderContext(borders []domain.BorderRing, opts RenderOptions) *RenderContext {
	if opts.ArcPoints < 2 {
		opts.ArcPoints = geospatial.DefaultArcPoints
	}

	rc := &RenderContext{
		opts: opts,
		surface: domain.Surface{
			Mesh:  geospatial.SphereMesh(opts.SphereRadius, opts.SphereSteps),
			Color: opts.SphereColor,
		},
		borders: make([]domain.Polyline, 0, len(borders)),
	}

	for _, ring := range borders {
		if len(ring.Points) < 2 {
			continue
		}
		xs, ys, zs := geospatial.Columns(geospatial.ProjectPath(ring.Points, opts.BorderRadius))
		rc.borders = append(rc.borders, domain.Polyline{
			Name:  ring.Country,
			Kind:  domain.KindBorder,
			X:     xs,
			Y:     ys,
			Z:     zs,
			Color: opts.BorderColor,
			Width: opts.BorderWidth,
		})
	}
	return rc
}

// Options returns the options the context was built with.
func (rc *RenderContext) Options() RenderOptions {
	return rc.opts
}

// BorderCount returns the number of drawn border rings.
func (rc *RenderContext) BorderCount() int {
	return len(rc.borders)
}

func (rc *RenderContext) newScene() *domain.Scene {
	lines := make([]domain.Polyline, len(rc.borders))
	copy(lines, rc.borders)
	return &domain.Scene{
		Background: rc.opts.Background,
		Surface:    rc.surface,
		Lines:      lines,
	}
}
