package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/samirrijal/globetrace/internal/pkg/config"
	"github.com/samirrijal/globetrace/internal/pkg/logging"
)

var (
	logLevel string
	cfg      *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "globetrace",
	Short: "Trace routes and draw them on a wireframe globe",
	Long: `globetrace runs traceroute towards a host, geolocates every hop and draws
the path as great-circle arcs over a wireframe globe. Every command prints JSON
to stdout; logs go to stderr.`,
	SilenceUsage:      true,
	PersistentPreRunE: persistentPreRun,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn or error")
}

func persistentPreRun(cmd *cobra.Command, args []string) error {
	logging.Setup(logLevel, "text")

	// Pure geometry commands work without configuration
	if cmd.Name() == "project" || cmd.Name() == "arc" {
		return nil
	}

	var err error
	cfg, err = config.Load("globetrace-cli")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
