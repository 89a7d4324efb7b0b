// Package borders loads country outlines from a GeoJSON FeatureCollection
// (Natural Earth admin-0 countries).
package borders

import (
	"fmt"
	"io"
	"os"

	geojson "github.com/paulmach/go.geojson"

	"github.com/samirrijal/globetrace/internal/core/domain"
	"github.com/samirrijal/globetrace/internal/pkg/geospatial"
)

var nameProperties = []string{"NAME", "ADMIN", "name"}

// LoadFile reads and decodes the collection at path.
func LoadFile(path string) ([]domain.BorderRing, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open borders %s: %w", path, err)
	}
	defer f.Close()

	rings, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("borders %s: %w", path, err)
	}
	return rings, nil
}

// Decode returns the exterior ring of every polygon in the collection.
// Geometries other than Polygon and MultiPolygon are skipped.
func Decode(r io.Reader) ([]domain.BorderRing, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}

	var rings []domain.BorderRing
	for _, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		name := featureName(f)
		switch {
		case f.Geometry.IsPolygon():
			if ring, ok := exterior(name, f.Geometry.Polygon); ok {
				rings = append(rings, ring)
			}
		case f.Geometry.IsMultiPolygon():
			for _, poly := range f.Geometry.MultiPolygon {
				if ring, ok := exterior(name, poly); ok {
					rings = append(rings, ring)
				}
			}
		}
	}
	return rings, nil
}

func exterior(name string, poly [][][]float64) (domain.BorderRing, bool) {
	if len(poly) == 0 || len(poly[0]) == 0 {
		return domain.BorderRing{}, false
	}
	pts := make([]geospatial.LonLat, 0, len(poly[0]))
	for _, p := range poly[0] {
		if len(p) < 2 {
			continue
		}
		pts = append(pts, geospatial.LonLat{Lon: p[0], Lat: p[1]})
	}
	return domain.BorderRing{Country: name, Points: pts}, len(pts) > 0
}

func featureName(f *geojson.Feature) string {
	for _, key := range nameProperties {
		if s, ok := f.Properties[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
