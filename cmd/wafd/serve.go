package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Em-Cyborg/WAF-Service/bootstrap"
	"github.com/Em-Cyborg/WAF-Service/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the console server",
	Long: `Start the WAF console server.

The server will:
  - Load configuration from wafconsole.yaml (or --config)
  - Or load configuration from WAFCONSOLE_* environment variables
  - Connect to the monitor server
  - Serve the console API: events, traffic, billing, payments, sessions

Environment variables (for Docker deployments):
  WAFCONSOLE_MONITOR_URL        - Monitor server URL (required)
  WAFCONSOLE_SERVER_PORT        - Server port (default: 8080)
  WAFCONSOLE_GATEWAY_MODE       - Payment gateway: toss or dummy
  WAFCONSOLE_DATABASE_DRIVER    - Order store: memory or sqlite
  WAFCONSOLE_LOG_LEVEL          - Log level: debug, info, warn, error

Examples:
  wafd serve
  wafd serve --config /etc/wafconsole/config.yaml

  # Docker (env vars only):
  WAFCONSOLE_MONITOR_URL=http://monitor:9000 wafd serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	if !hasConfigFile && !config.HasEnvConfig() {
		fmt.Println("No configuration found.")
		fmt.Println()
		fmt.Printf("Option 1: Create %s\n", cfgFile)
		fmt.Println("Option 2: Set WAFCONSOLE_MONITOR_URL environment variable")
		fmt.Println()
		fmt.Println("Example (env vars):")
		fmt.Println("  WAFCONSOLE_MONITOR_URL=http://monitor:9000 wafd serve")
		return nil
	}

	if !hasConfigFile {
		fmt.Println("Running with environment variables (no config file)")
	}

	app, err := bootstrap.New(cfgFile)
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
