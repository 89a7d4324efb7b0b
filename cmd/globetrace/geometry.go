package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/samirrijal/globetrace/internal/pkg/geospatial"
)

var (
	projectRadius float64
	arcPoints     int
	arcRadius     float64
)

var projectCmd = &cobra.Command{
	Use:     "project <lon> <lat>",
	Short:   "Project a position onto a sphere",
	Example: "  globetrace project --radius 1.01 -- -3.70 40.42",
	Args:    cobra.ExactArgs(2),
	RunE:    runProject,
}

var arcCmd = &cobra.Command{
	Use:     "arc <lon1> <lat1> <lon2> <lat2>",
	Short:   "Sample the great-circle arc between two positions",
	Example: "  globetrace arc --points 20 -- -3.70 40.42 -74.01 40.71",
	Args:    cobra.ExactArgs(4),
	RunE:    runArc,
}

func init() {
	rootCmd.AddCommand(projectCmd, arcCmd)

	projectCmd.Flags().Float64Var(&projectRadius, "radius", 1.0, "sphere radius")
	arcCmd.Flags().IntVar(&arcPoints, "points", geospatial.DefaultArcPoints, "number of samples, endpoints included")
	arcCmd.Flags().Float64Var(&arcRadius, "radius", 1.02, "sphere radius")
}

func runProject(cmd *cobra.Command, args []string) error {
	if projectRadius < 0 {
		return fmt.Errorf("radius must not be negative")
	}
	p, err := parseLonLat(args[0], args[1])
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), geospatial.Project(p, projectRadius))
}

func runArc(cmd *cobra.Command, args []string) error {
	from, err := parseLonLat(args[0], args[1])
	if err != nil {
		return err
	}
	to, err := parseLonLat(args[2], args[3])
	if err != nil {
		return err
	}
	points, err := geospatial.Arc(from, to, arcPoints, arcRadius)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), map[string]any{
		"from":           from,
		"to":             to,
		"separation_rad": geospatial.AngularSeparation(from, to),
		"distance_km":    geospatial.DistanceKm(from, to),
		"points":         points,
	})
}

// parseLonLat parses a longitude and latitude in degrees.
func parseLonLat(lonStr, latStr string) (geospatial.LonLat, error) {
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return geospatial.LonLat{}, fmt.Errorf("lon %q: %w", lonStr, err)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return geospatial.LonLat{}, fmt.Errorf("lat %q: %w", latStr, err)
	}
	p := geospatial.LonLat{Lon: lon, Lat: lat}
	if !p.Finite() {
		return geospatial.LonLat{}, fmt.Errorf("position (%s, %s) is not finite", lonStr, latStr)
	}
	return p, nil
}
