package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yairfalse/kartta/internal/daemon"
)

var (
	daemonInterval    time.Duration
	daemonMetricsPort int
)

// daemonCmd runs discovery continuously and serves metrics.
var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run continuous discovery",
	Long: `Run Kartta in daemon mode. Discovery runs at the configured
interval and every snapshot refreshes the cache, so API consumers always
see recent data without triggering scans themselves.

Endpoints:
- Prometheus metrics on /metrics
- Health on /health and /-/healthy
- Job history on /jobs`,
	Example: `  kartta daemon                       # Run with defaults
  kartta daemon --interval 10m        # Scan every 10 minutes
  kartta daemon --metrics-port 9090   # Custom metrics port`,
	RunE: runDaemonCmd,
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().DurationVar(&daemonInterval, "interval", 5*time.Minute, "Discovery interval")
	daemonCmd.Flags().IntVar(&daemonMetricsPort, "metrics-port", 2112, "Metrics HTTP server port")
}

func runDaemonCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	orch, cleanup, err := buildOrchestrator(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	d, err := daemon.New(orch, daemon.Config{
		Interval:    daemonInterval,
		MetricsPort: daemonMetricsPort,
		Scope:       cfg.Scope(),
		RunTimeout:  cfg.Discovery.Timeout,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Starting kartta daemon (interval %s, metrics :%d)\n", daemonInterval, daemonMetricsPort)
	return d.Run(ctx)
}
