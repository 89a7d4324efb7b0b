package borders

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCollection = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"NAME": "Squareland"},
      "geometry": {
        "type": "Polygon",
        "coordinates": [
          [[0,0],[10,0],[10,10],[0,10],[0,0]],
          [[2,2],[3,2],[3,3],[2,2]]
        ]
      }
    },
    {
      "type": "Feature",
      "properties": {"ADMIN": "Islands"},
      "geometry": {
        "type": "MultiPolygon",
        "coordinates": [
          [[[20,20],[21,20],[21,21],[20,20]]],
          [[[30,-5],[31,-5],[31,-4],[30,-5]]]
        ]
      }
    },
    {
      "type": "Feature",
      "properties": {"name": "Capital"},
      "geometry": {"type": "Point", "coordinates": [5, 5]}
    }
  ]
}`

func TestDecode(t *testing.T) {
	rings, err := Decode(strings.NewReader(sampleCollection))
	require.NoError(t, err)
	require.Len(t, rings, 3)

	assert.Equal(t, "Squareland", rings[0].Country)
	assert.Len(t, rings[0].Points, 5, "holes are not border rings")
	assert.Equal(t, 10.0, rings[0].Points[1].Lon)
	assert.Equal(t, 0.0, rings[0].Points[1].Lat)

	assert.Equal(t, "Islands", rings[1].Country)
	assert.Equal(t, "Islands", rings[2].Country)
	assert.Equal(t, -5.0, rings[2].Points[0].Lat)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"type": "FeatureCollection", "features": [`))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "countries.geojson")
	require.NoError(t, os.WriteFile(path, []byte(sampleCollection), 0o600))

	rings, err := LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, rings, 3)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.geojson"))
	assert.Error(t, err)
}
