package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0"
	configPath string
	debugLog   bool

	rootCmd = &cobra.Command{
		Use:   "kartta",
		Short: "Multi-cloud resource discovery and dependency mapping",
		Long: `Kartta - Cloud Discovery Engine

Kartta discovers resources across AWS, Azure and GCP, normalizes them
into one canonical model, resolves cross-resource dependencies into a
graph, and caches snapshots so repeated queries don't hammer provider
APIs.`,
		Version: version,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(`Kartta {{.Version}} - Cloud Discovery Engine
`)
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "Enable debug logging")
	rootCmd.PersistentPreRun = func(*cobra.Command, []string) {
		if debugLog {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
	}
}
