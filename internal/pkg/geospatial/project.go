// Package geospatial holds the coordinate geometry behind the globe:
// lon/lat to Cartesian projection, great-circle interpolation and the
// occlusion sphere mesh.
package geospatial

import (
	"errors"
	"math"
)

// LonLat is a geographic position in degrees.
type LonLat struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Vec3 is a Cartesian point. Points produced by Project lie on a sphere
// centred at the origin.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

var ErrLengthMismatch = errors.New("geospatial: lon and lat sequences differ in length")

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Scale returns v multiplied by k.
func (v Vec3) Scale(k float64) Vec3 { return Vec3{v.X * k, v.Y * k, v.Z * k} }

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float64 { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

// Norm returns the Euclidean length of v.
func (v Vec3) Norm() float64 { return math.Sqrt(v.Dot(v)) }

// Unit returns v scaled to length 1. The zero vector is returned unchanged.
func (v Vec3) Unit() Vec3 {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return v.Scale(1 / n)
}

// Project maps p onto the sphere of radius r.
func Project(p LonLat, r float64) Vec3 {
	lon, lat := toRad(p.Lon), toRad(p.Lat)
	return Vec3{
		X: r * math.Cos(lat) * math.Cos(lon),
		Y: r * math.Cos(lat) * math.Sin(lon),
		Z: r * math.Sin(lat),
	}
}

// ProjectPath projects every point of path, preserving order.
func ProjectPath(path []LonLat, r float64) []Vec3 {
	out := make([]Vec3, len(path))
	for i, p := range path {
		out[i] = Project(p, r)
	}
	return out
}

// ProjectColumns is the columnar form of ProjectPath: parallel lon and lat
// slices in, parallel x, y and z slices out.
func ProjectColumns(lons, lats []float64, r float64) (xs, ys, zs []float64, err error) {
	if len(lons) != len(lats) {
		return nil, nil, nil, ErrLengthMismatch
	}
	xs = make([]float64, len(lons))
	ys = make([]float64, len(lons))
	zs = make([]float64, len(lons))
	for i := range lons {
		v := Project(LonLat{Lon: lons[i], Lat: lats[i]}, r)
		xs[i], ys[i], zs[i] = v.X, v.Y, v.Z
	}
	return xs, ys, zs, nil
}

// Columns splits points into parallel coordinate slices.
func Columns(points []Vec3) (xs, ys, zs []float64) {
	xs = make([]float64, len(points))
	ys = make([]float64, len(points))
	zs = make([]float64, len(points))
	for i, p := range points {
		xs[i], ys[i], zs[i] = p.X, p.Y, p.Z
	}
	return xs, ys, zs
}

// Finite reports whether both coordinates are finite numbers.
func (p LonLat) Finite() bool {
	return isFinite(p.Lon) && isFinite(p.Lat)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
