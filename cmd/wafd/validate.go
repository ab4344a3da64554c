package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Em-Cyborg/WAF-Service/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("configuration invalid: %w", err)
		}
		fmt.Println("Configuration valid")
		fmt.Printf("  Monitor:  %s\n", cfg.Monitor.URL)
		fmt.Printf("  Gateway:  %s\n", cfg.Gateway.Mode)
		fmt.Printf("  Database: %s\n", cfg.Database.Driver)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
