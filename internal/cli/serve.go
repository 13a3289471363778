package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/blank-marketing/blank/internal/daemon"
)

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to listen on (overrides config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Blank dashboard API server",
	Long: `Start the local progression API at localhost:7420.
Widgets subscribe to /api/progression/live for real-time updates.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return err
	}

	// Override config from flags
	if serveHost != "" {
		cfg.API.Host = serveHost
	}
	if servePort > 0 {
		cfg.API.Port = servePort
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	log, err := daemon.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	d, err := daemon.NewWithConfig(cfg, log)
	if err != nil {
		return err
	}
	defer d.Close()

	return d.Serve(context.Background())
}
