// aawgbridge is a wireless-to-wired bridge for phone-to-car projection: it
// bootstraps a Wi-Fi session over a Bluetooth handshake, then shuttles
// framed projection traffic between the phone and the head unit.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aawireless/aawg-bridge/pkg/bluetooth"
	"github.com/aawireless/aawg-bridge/pkg/config"
	"github.com/aawireless/aawg-bridge/pkg/logger"
	"github.com/aawireless/aawg-bridge/pkg/metrics"
	"github.com/aawireless/aawg-bridge/pkg/supervisor"
)

var (
	version   = "0.1.0"
	buildTime = "dev"
	gitCommit = "unknown"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "aawgbridge",
		Short:   "aawgbridge - wireless-to-wired bridge for phone-to-car projection",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildTime),
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newRunCmd(), newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the bridge: Bluetooth bring-up, handshake, and proxy sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
	return cmd
}

func run() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
		File:   cfg.Logging.File,
	})

	sup, err := supervisor.New(toSupervisorConfig(cfg), log.Logger)
	if err != nil {
		return fmt.Errorf("create supervisor: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Endpoint, promhttp.Handler())
		metricsServer = &http.Server{Addr: cfg.Metrics.Address, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("metrics server stopped", "error", err)
			}
		}()
		log.Info("metrics server listening", "address", cfg.Metrics.Address, "endpoint", cfg.Metrics.Endpoint)
	}

	go func() {
		for range sup.NeedRestart() {
			metrics.IncSessionRestart("session_ended")
		}
	}()

	runErr := make(chan error, 1)
	go func() { runErr <- sup.Run(ctx) }()

	log.Info("aawgbridge is running", "tcp_server_port", cfg.TCPServerPort)

	select {
	case <-sigCh:
		log.Info("shutting down")
		cancel()
		<-runErr
	case err := <-runErr:
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("supervisor stopped: %w", err)
		}
	}

	if metricsServer != nil {
		_ = metricsServer.Shutdown(context.Background())
	}

	log.Info("aawgbridge stopped")
	return nil
}

// toSupervisorConfig maps the loaded config.Bundle onto supervisor.Config.
// cfg.MITM is intentionally not translated into a Filter here: no rewrite
// filter is wired yet, so supervisor.Config.Filter stays nil and every MITM toggle
// is a no-op until one exists.
func toSupervisorConfig(cfg *config.Bundle) supervisor.Config {
	return supervisor.Config{
		Wired: cfg.Wired,
		DHU:   cfg.DHU,

		TCPServerPort:    cfg.TCPServerPort,
		TCPDHUPort:       cfg.TCPDHUPort,
		USBAccessoryPath: cfg.USBAccessoryPath,

		Bluetooth: bluetooth.Config{
			Advertise:  cfg.Advertise,
			DongleMode: cfg.DongleMode,
			Alias:      cfg.BTAlias,
			ConnectTo:  cfg.Connect,
			Keepalive:  cfg.Keepalive,
			AcceptWait: cfg.BTTimeout,
		},
		WifiConfig: bluetooth.WifiConfig{
			IPAddr: cfg.Wifi.IPAddr,
			Port:   cfg.Wifi.Port,
			SSID:   cfg.Wifi.SSID,
			WPAKey: cfg.Wifi.WPAKey,
			BSSID:  cfg.Wifi.BSSID,
		},

		StatsInterval: cfg.StatsInterval,
		ReadTimeout:   cfg.ReadTimeout,
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("aawgbridge %s\n", version)
			fmt.Printf("  Commit: %s\n", gitCommit)
			fmt.Printf("  Built:  %s\n", buildTime)
		},
	}
}
