package geospatial

import "math"

// DefaultSphereSteps is the grid resolution of the occlusion sphere.
const DefaultSphereSteps = 100

// Mesh is a parametric surface grid; X[i][j], Y[i][j] and Z[i][j] together
// form one vertex.
type Mesh struct {
	X [][]float64 `json:"x"`
	Y [][]float64 `json:"y"`
	Z [][]float64 `json:"z"`
}

// SphereMesh builds a steps×steps grid over the sphere of radius r, with
// rows running around the equator and columns from the south pole to the
// north pole.
func SphereMesh(r float64, steps int) Mesh {
	if steps < 2 {
		steps = 2
	}
	u := Linspace(0, 2*math.Pi, steps)
	v := Linspace(-math.Pi/2, math.Pi/2, steps)

	m := Mesh{
		X: make([][]float64, steps),
		Y: make([][]float64, steps),
		Z: make([][]float64, steps),
	}
	for i, ui := range u {
		m.X[i] = make([]float64, steps)
		m.Y[i] = make([]float64, steps)
		m.Z[i] = make([]float64, steps)
		cu, su := math.Cos(ui), math.Sin(ui)
		for j, vj := range v {
			cv := math.Cos(vj)
			m.X[i][j] = r * cu * cv
			m.Y[i][j] = r * su * cv
			m.Z[i][j] = r * math.Sin(vj)
		}
	}
	return m
}

// Linspace returns n evenly spaced values over [start, stop], both included.
func Linspace(start, stop float64, n int) []float64 {
	switch {
	case n <= 0:
		return nil
	case n == 1:
		return []float64{start}
	}
	out := make([]float64, n)
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}
