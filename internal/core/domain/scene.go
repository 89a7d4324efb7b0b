package domain

import "github.com/samirrijal/globetrace/internal/pkg/geospatial"

// Polyline kinds.
const (
	KindBorder = "border"
	KindArc    = "arc"
)

// Scene is a renderer-neutral description of the globe: one surface, a set
// of 3D polylines and hop markers. Coordinates are stored column-wise so a
// browser plotting library can consume them directly.
type Scene struct {
	Background string       `json:"background"`
	Surface    Surface      `json:"surface"`
	Lines      []Polyline   `json:"lines"`
	Markers    []Marker     `json:"markers,omitempty"`
	Legs       []Leg        `json:"legs,omitempty"`
	Skipped    []SkippedLeg `json:"skipped,omitempty"`
	Target     string       `json:"target,omitempty"`
	TraceID    string       `json:"trace_id,omitempty"`
}

// Surface is the opaque occlusion sphere.
type Surface struct {
	Mesh  geospatial.Mesh `json:"mesh"`
	Color string          `json:"color"`
}

// Polyline is a connected 3D line.
type Polyline struct {
	Name  string    `json:"name,omitempty"`
	Kind  string    `json:"kind"`
	X     []float64 `json:"x"`
	Y     []float64 `json:"y"`
	Z     []float64 `json:"z"`
	Color string    `json:"color"`
	Width float64   `json:"width"`
}

// Marker labels a located hop.
type Marker struct {
	Label string  `json:"label"`
	IP    string  `json:"ip"`
	City  string  `json:"city,omitempty"`
	TTL   int     `json:"ttl"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
}

// Leg is a drawn arc between two located hops.
type Leg struct {
	FromTTL    int     `json:"from_ttl"`
	ToTTL      int     `json:"to_ttl"`
	DistanceKm float64 `json:"distance_km"`
}

// SkippedLeg is a hop pair whose arc could not be drawn.
type SkippedLeg struct {
	FromTTL int    `json:"from_ttl"`
	ToTTL   int    `json:"to_ttl"`
	Reason  string `json:"reason"`
}

// BorderRing is the exterior ring of one country polygon.
type BorderRing struct {
	Country string              `json:"country"`
	Points  []geospatial.LonLat `json:"points"`
}
