package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wafd",
	Short: "Management console for WAF-protected domains",
	Long: `wafd is the management console backend for WAF-protected domains.

It sits in front of a monitor server and provides live event streaming,
traffic and billing reports, point payments, and session management for
the console UI.

Quick start:
  wafd serve      # Start the console server

Management:
  wafd validate   # Validate configuration
  wafd version    # Print version information`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "wafconsole.yaml", "config file path")
}
