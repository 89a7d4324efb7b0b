package geospatial

import (
	"errors"
	"fmt"
	"math"
)

// DefaultArcPoints is the number of samples drawn along a hop-to-hop arc.
const DefaultArcPoints = 50

// degenerateEpsilon bounds how close to 0 or π the angular separation may
// get before the slerp weights lose precision (~0.6 m on Earth).
const degenerateEpsilon = 1e-7

var (
	ErrDegenerateArc  = errors.New("geospatial: degenerate arc")
	ErrTooFewPoints   = errors.New("geospatial: arc needs at least 2 points")
	ErrNonFinite      = errors.New("geospatial: coordinates and radius must be finite")
	ErrNegativeRadius = errors.New("geospatial: radius must not be negative")
)

// DegenerateArcError is returned by Arc when the endpoints are antipodal and
// no unique great circle joins them.
type DegenerateArcError struct {
	From       LonLat
	To         LonLat
	Separation float64 // radians
}

func (e *DegenerateArcError) Error() string {
	return fmt.Sprintf("geospatial: no unique great circle between (%.4f, %.4f) and (%.4f, %.4f): separation %.9f rad",
		e.From.Lon, e.From.Lat, e.To.Lon, e.To.Lat, e.Separation)
}

// Is makes errors.Is(err, ErrDegenerateArc) match.
func (e *DegenerateArcError) Is(target error) bool {
	return target == ErrDegenerateArc
}

// AngularSeparation returns the central angle between a and b in radians.
func AngularSeparation(a, b LonLat) float64 {
	d := Project(a, 1).Dot(Project(b, 1))
	return math.Acos(clamp(d, -1, 1))
}

// Arc samples n points along the minor great-circle arc from `from` to `to`
// on the sphere of radius r. The first and last points are the projected
// endpoints. Coincident endpoints yield n copies of the same point.
func Arc(from, to LonLat, n int, r float64) ([]Vec3, error) {
	if n < 2 {
		return nil, ErrTooFewPoints
	}
	if !from.Finite() || !to.Finite() || !isFinite(r) {
		return nil, ErrNonFinite
	}
	if r < 0 {
		return nil, ErrNegativeRadius
	}

	p1, p2 := Project(from, 1), Project(to, 1)
	omega := math.Acos(clamp(p1.Dot(p2), -1, 1))

	out := make([]Vec3, n)
	switch {
	case omega < degenerateEpsilon:
		start := p1.Scale(r)
		for i := range out {
			out[i] = start
		}
		return out, nil
	case math.Pi-omega < degenerateEpsilon:
		return nil, &DegenerateArcError{From: from, To: to, Separation: omega}
	}

	sinOmega := math.Sin(omega)
	last := float64(n - 1)
	for i := range out {
		t := float64(i) / last
		a := math.Sin((1-t)*omega) / sinOmega
		b := math.Sin(t*omega) / sinOmega
		out[i] = p1.Scale(a).Add(p2.Scale(b)).Unit().Scale(r)
	}
	out[0], out[n-1] = p1.Scale(r), p2.Scale(r)
	return out, nil
}

// PathAngle sums the central angles between consecutive points.
func PathAngle(points []Vec3) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += angleBetween(points[i-1], points[i])
	}
	return total
}

func angleBetween(a, b Vec3) float64 {
	cross := Vec3{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
	return math.Atan2(cross.Norm(), a.Dot(b))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
