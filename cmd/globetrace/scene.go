package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/samirrijal/globetrace/internal/bootstrap"
	"github.com/samirrijal/globetrace/internal/core/usecases"
)

var (
	sceneTarget  string
	sceneBorders string
	sceneOut     string
)

var sceneCmd = &cobra.Command{
	Use:   "scene",
	Short: "Print the globe scene, traced towards --target when one is given",
	Example: `  globetrace scene --out globe.json
  globetrace scene --target example.com --borders data/countries.geojson`,
	Args: cobra.NoArgs,
	RunE: runScene,
}

var traceCmd = &cobra.Command{
	Use:     "trace <target>",
	Short:   "Trace the route to target and print the located hops",
	Example: "  globetrace trace 1.1.1.1",
	Args:    cobra.ExactArgs(1),
	RunE:    runTrace,
}

func init() {
	rootCmd.AddCommand(sceneCmd, traceCmd)

	sceneCmd.Flags().StringVar(&sceneTarget, "target", "", "IP address or hostname to trace")
	sceneCmd.Flags().StringVar(&sceneBorders, "borders", "", "GeoJSON border file (overrides globe.borders_path)")
	sceneCmd.Flags().StringVar(&sceneOut, "out", "", "write the scene to this file instead of stdout")
}

// services builds the trace and scene services without any storage; the
// CLI only prints what it computes.
func services() (*usecases.TraceService, *usecases.SceneService, func(), error) {
	provider, closeGeo, err := bootstrap.Geolocator(cfg.Geo)
	if err != nil {
		return nil, nil, nil, err
	}
	geo := usecases.NewGeolocationService(provider, nil, cfg.Geo.CacheTTLSeconds, cfg.Geo.Concurrency)
	traces := usecases.NewTraceService(bootstrap.Tracer(cfg.Traceroute), geo, nil, nil)
	scenes := usecases.NewSceneService(bootstrap.RenderContext(cfg.Globe), traces)
	return traces, scenes, closeGeo, nil
}

func runScene(cmd *cobra.Command, args []string) error {
	if sceneBorders != "" {
		cfg.Globe.BordersPath = sceneBorders
	}
	_, scenes, closeGeo, err := services()
	if err != nil {
		return err
	}
	defer closeGeo()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	scene, err := scenes.HandleInput(ctx, sceneTarget)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if sceneOut != "" {
		f, err := os.Create(sceneOut)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	return writeJSON(w, scene)
}

func runTrace(cmd *cobra.Command, args []string) error {
	traces, _, closeGeo, err := services()
	if err != nil {
		return err
	}
	defer closeGeo()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	trace, err := traces.Run(ctx, args[0])
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), trace)
}
