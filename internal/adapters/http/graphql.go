package http

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/globetrace/internal/core/domain"
	"github.com/samirrijal/globetrace/internal/pkg/geospatial"
)

var errTracingUnavailable = errors.New("tracing not configured")

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	vec3Type := graphql.NewObject(graphql.ObjectConfig{
		Name: "Vec3",
		Fields: graphql.Fields{
			"x": &graphql.Field{Type: graphql.Float},
			"y": &graphql.Field{Type: graphql.Float},
			"z": &graphql.Field{Type: graphql.Float},
		},
	})

	arcType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Arc",
		Fields: graphql.Fields{
			"radius":         &graphql.Field{Type: graphql.Float},
			"separation_rad": &graphql.Field{Type: graphql.Float},
			"distance_km":    &graphql.Field{Type: graphql.Float},
			"points":         &graphql.Field{Type: graphql.NewList(vec3Type)},
		},
	})

	locationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Location",
		Fields: graphql.Fields{
			"ip":           &graphql.Field{Type: graphql.String},
			"lon":          &graphql.Field{Type: graphql.Float},
			"lat":          &graphql.Field{Type: graphql.Float},
			"city":         &graphql.Field{Type: graphql.String},
			"region":       &graphql.Field{Type: graphql.String},
			"country":      &graphql.Field{Type: graphql.String},
			"country_code": &graphql.Field{Type: graphql.String},
			"isp":          &graphql.Field{Type: graphql.String},
			"source":       &graphql.Field{Type: graphql.String},
		},
	})

	hopType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Hop",
		Fields: graphql.Fields{
			"ttl":      &graphql.Field{Type: graphql.Int},
			"address":  &graphql.Field{Type: graphql.String},
			"host":     &graphql.Field{Type: graphql.String},
			"rtts_ms":  &graphql.Field{Type: graphql.NewList(graphql.Float)},
			"timeouts": &graphql.Field{Type: graphql.Int},
			"location": &graphql.Field{Type: locationType},
		},
	})

	traceType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Trace",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.String},
			"target":      &graphql.Field{Type: graphql.String},
			"hops":        &graphql.Field{Type: graphql.NewList(hopType)},
			"started_at":  &graphql.Field{Type: graphql.String},
			"finished_at": &graphql.Field{Type: graphql.String},
			"error":       &graphql.Field{Type: graphql.String},
		},
	})

	opts := deps.Scenes.Options()

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"project": &graphql.Field{
				Type:        vec3Type,
				Description: "Project a lon/lat pair onto a sphere",
				Args: graphql.FieldConfigArgument{
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: opts.SphereRadius},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					pt := geospatial.LonLat{Lon: p.Args["lon"].(float64), Lat: p.Args["lat"].(float64)}
					radius := p.Args["radius"].(float64)
					if err := checkPoint(radius, pt); err != nil {
						return nil, err
					}
					return geospatial.Project(pt, radius), nil
				},
			},
			"arc": &graphql.Field{
				Type:        arcType,
				Description: "Sample the great-circle arc between two points",
				Args: graphql.FieldConfigArgument{
					"from_lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"from_lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"to_lon":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"to_lat":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"points":   &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: opts.ArcPoints},
					"radius":   &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: opts.ArcRadius},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					from := geospatial.LonLat{Lon: p.Args["from_lon"].(float64), Lat: p.Args["from_lat"].(float64)}
					to := geospatial.LonLat{Lon: p.Args["to_lon"].(float64), Lat: p.Args["to_lat"].(float64)}
					radius := p.Args["radius"].(float64)
					n := p.Args["points"].(int)
					if n > maxArcPoints {
						return nil, fmt.Errorf("points must be at most %d", maxArcPoints)
					}
					pts, err := geospatial.Arc(from, to, n, radius)
					if err != nil {
						return nil, err
					}
					return ArcResponse{
						From:          from,
						To:            to,
						Radius:        radius,
						SeparationRad: geospatial.AngularSeparation(from, to),
						DistanceKm:    geospatial.DistanceKm(from, to),
						Points:        pts,
					}, nil
				},
			},
			"geolocate": &graphql.Field{
				Type:        locationType,
				Description: "Geolocate a public IP address",
				Args: graphql.FieldConfigArgument{
					"ip": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Geo == nil {
						return nil, domain.ErrUnavailable
					}
					return deps.Geo.Locate(p.Context, p.Args["ip"].(string))
				},
			},
			"trace": &graphql.Field{
				Type:        traceType,
				Description: "Get a recorded trace by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Traces == nil {
						return nil, errTracingUnavailable
					}
					t, err := deps.Traces.Get(p.Context, p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					return traceView(t), nil
				},
			},
			"traces": &graphql.Field{
				Type:        graphql.NewList(traceType),
				Description: "Recent traces, newest first",
				Args: graphql.FieldConfigArgument{
					"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Traces == nil {
						return nil, errTracingUnavailable
					}
					list, _, err := deps.Traces.ListRecent(p.Context, p.Args["offset"].(int), p.Args["limit"].(int))
					if err != nil {
						return nil, err
					}
					out := make([]map[string]interface{}, len(list))
					for i := range list {
						out[i] = traceView(&list[i])
					}
					return out, nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"runTrace": &graphql.Field{
				Type:        traceType,
				Description: "Trace the route to a host or IP and geolocate every hop",
				Args: graphql.FieldConfigArgument{
					"target": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if deps.Traces == nil {
						return nil, errTracingUnavailable
					}
					t, err := deps.Traces.Run(p.Context, p.Args["target"].(string))
					if err != nil {
						return nil, err
					}
					return traceView(t), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// traceView flattens a trace for the default field resolver, which does not
// follow embedded structs.
func traceView(t *domain.Trace) map[string]interface{} {
	hops := make([]map[string]interface{}, len(t.Hops))
	for i, h := range t.Hops {
		hops[i] = map[string]interface{}{
			"ttl":      h.TTL,
			"address":  h.Address,
			"host":     h.Host,
			"rtts_ms":  h.RTTs,
			"timeouts": h.Timeouts,
		}
		if h.Location != nil {
			hops[i]["location"] = h.Location
		}
	}
	return map[string]interface{}{
		"id":          t.ID,
		"target":      t.Target,
		"hops":        hops,
		"started_at":  t.StartedAt.Format(time.RFC3339Nano),
		"finished_at": t.FinishedAt.Format(time.RFC3339Nano),
		"error":       t.Error,
	}
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
