package http

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/globetrace/internal/core/usecases"
	"github.com/samirrijal/globetrace/internal/pkg/geospatial"
)

const maxArcPoints = 10000

// ProjectResponse is a single projected coordinate.
type ProjectResponse struct {
	Input  geospatial.LonLat `json:"input"`
	Radius float64           `json:"radius"`
	Point  geospatial.Vec3   `json:"point"`
}

// ProjectBatchRequest is the columnar projection input.
type ProjectBatchRequest struct {
	Lons   []float64 `json:"lons"`
	Lats   []float64 `json:"lats"`
	Radius *float64  `json:"radius,omitempty"`
}

// ProjectBatchResponse holds projected columns.
type ProjectBatchResponse struct {
	Radius float64   `json:"radius"`
	X      []float64 `json:"x"`
	Y      []float64 `json:"y"`
	Z      []float64 `json:"z"`
}

// ArcResponse is a sampled great-circle arc.
type ArcResponse struct {
	From          geospatial.LonLat `json:"from"`
	To            geospatial.LonLat `json:"to"`
	Radius        float64           `json:"radius"`
	SeparationRad float64           `json:"separation_rad"`
	DistanceKm    float64           `json:"distance_km"`
	Points        []geospatial.Vec3 `json:"points"`
}

// TraceRequest starts a trace.
type TraceRequest struct {
	Target string `json:"target"`
}

// ScheduledTrace is returned when a trace was handed to the worker.
type ScheduledTrace struct {
	WorkflowID string `json:"workflow_id"`
	Target     string `json:"target"`
}

// SceneHandler returns the base globe, or the traced globe when a target
// query parameter is given.
func SceneHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		target := c.Query("target")
		scene, err := deps.Scenes.HandleInput(c.UserContext(), target)
		if err != nil {
			return errFromDomain(c, err)
		}
		if strings.TrimSpace(target) == "" {
			c.Set("Cache-Control", "public, max-age=3600")
		} else {
			c.Set("Cache-Control", "no-store")
		}
		return c.JSON(scene)
	}
}

// ProjectHandler projects one lon/lat pair.
func ProjectHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lon, err := requiredFloat(c, "lon")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		lat, err := requiredFloat(c, "lat")
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		radius, err := optionalFloat(c, "radius", deps.Scenes.Options().SphereRadius)
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		p := geospatial.LonLat{Lon: lon, Lat: lat}
		if err := checkPoint(radius, p); err != nil {
			return errFromDomain(c, err)
		}

		return c.JSON(ProjectResponse{Input: p, Radius: radius, Point: geospatial.Project(p, radius)})
	}
}

// ProjectBatchHandler projects parallel lon and lat columns.
func ProjectBatchHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req ProjectBatchRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		radius := deps.Scenes.Options().SphereRadius
		if req.Radius != nil {
			radius = *req.Radius
		}
		if err := checkPoint(radius); err != nil {
			return errFromDomain(c, err)
		}

		xs, ys, zs, err := geospatial.ProjectColumns(req.Lons, req.Lats, radius)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		return c.JSON(ProjectBatchResponse{Radius: radius, X: xs, Y: ys, Z: zs})
	}
}

// ArcHandler samples the great-circle arc between two points.
func ArcHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var coords [4]float64
		for i, name := range []string{"from_lon", "from_lat", "to_lon", "to_lat"} {
			v, err := requiredFloat(c, name)
			if err != nil {
				return errBadRequest(c, err.Error())
			}
			coords[i] = v
		}
		opts := deps.Scenes.Options()
		radius, err := optionalFloat(c, "radius", opts.ArcRadius)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		n := c.QueryInt("points", opts.ArcPoints)
		if n > maxArcPoints {
			return errBadRequest(c, fmt.Sprintf("points must be at most %d", maxArcPoints))
		}

		from := geospatial.LonLat{Lon: coords[0], Lat: coords[1]}
		to := geospatial.LonLat{Lon: coords[2], Lat: coords[3]}
		pts, err := geospatial.Arc(from, to, n, radius)
		if err != nil {
			return errFromDomain(c, err)
		}

		return c.JSON(ArcResponse{
			From:          from,
			To:            to,
			Radius:        radius,
			SeparationRad: geospatial.AngularSeparation(from, to),
			DistanceKm:    geospatial.DistanceKm(from, to),
			Points:        pts,
		})
	}
}

// GeolocateHandler looks up a single IP address.
func GeolocateHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Geo == nil {
			return errUnavailable(c, "geolocation not configured")
		}
		loc, err := deps.Geo.Locate(c.UserContext(), c.Params("ip"))
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(loc)
	}
}

// CreateTraceHandler runs a trace, or schedules it on the worker when
// ?async=true and a scheduler is configured.
func CreateTraceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req TraceRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		if c.QueryBool("async", false) {
			if deps.Scheduler == nil {
				return errUnavailable(c, "background tracing not configured")
			}
			target, err := usecases.NormalizeTarget(req.Target)
			if err != nil {
				return errFromDomain(c, err)
			}
			id, err := deps.Scheduler.Schedule(c.UserContext(), target)
			if err != nil {
				return errFromDomain(c, err)
			}
			return c.Status(fiber.StatusAccepted).JSON(ScheduledTrace{WorkflowID: id, Target: target})
		}

		if deps.Traces == nil {
			return errUnavailable(c, "tracing not configured")
		}
		trace, err := deps.Traces.Run(c.UserContext(), req.Target)
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Location("/v1/traces/" + trace.ID)
		return c.Status(fiber.StatusCreated).JSON(trace)
	}
}

// ListTracesHandler returns stored traces, newest first.
func ListTracesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Traces == nil {
			return errUnavailable(c, "tracing not configured")
		}
		offset, limit := pageParams(c, 20, 100)

		traces, total, err := deps.Traces.ListRecent(c.UserContext(), offset, limit)
		if err != nil {
			return errFromDomain(c, err)
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: traces, Pagination: pg})
	}
}

// GetTraceHandler returns one stored trace.
func GetTraceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Traces == nil {
			return errUnavailable(c, "tracing not configured")
		}
		trace, err := deps.Traces.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(trace)
	}
}

// TraceSceneHandler draws a stored trace on the globe.
func TraceSceneHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		scene, err := deps.Scenes.TraceScene(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(scene)
	}
}

func requiredFloat(c *fiber.Ctx, name string) (float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return v, nil
}

func optionalFloat(c *fiber.Ctx, name string, def float64) (float64, error) {
	if c.Query(name) == "" {
		return def, nil
	}
	return requiredFloat(c, name)
}

// checkPoint applies the projection preconditions Project itself leaves to
// the caller.
func checkPoint(radius float64, points ...geospatial.LonLat) error {
	if math.IsNaN(radius) || math.IsInf(radius, 0) {
		return geospatial.ErrNonFinite
	}
	if radius < 0 {
		return geospatial.ErrNegativeRadius
	}
	for _, p := range points {
		if !p.Finite() {
			return geospatial.ErrNonFinite
		}
	}
	return nil
}
