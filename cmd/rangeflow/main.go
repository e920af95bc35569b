package main

import (
	"context"
	"fmt"
	"os"
	"time"

	clientcmd "github.com/rzbill/rangeflow/internal/cmd/client"
	serverrun "github.com/rzbill/rangeflow/internal/cmd/server"
	cfgpkg "github.com/rzbill/rangeflow/internal/config"
	logpkg "github.com/rzbill/rangeflow/pkg/log"
	"github.com/spf13/cobra"
)

func main() {
	// Respect RANGEFLOW_LOG_LEVEL for CLI output before config is loaded.
	level := os.Getenv("RANGEFLOW_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(logpkg.WithLevel(parsed))
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:   "rangeflow",
		Short: "Rangeflow CLI",
		Long:  "Rangeflow serves streaming range scans over a local Pebble store. This CLI manages the server and basic operations.",
	}

	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the rangeflow server",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			dataDir, _ := cmd.Flags().GetString("data-dir")
			httpAddr, _ := cmd.Flags().GetString("http")
			fsyncMode, _ := cmd.Flags().GetString("fsync")
			fsyncIntervalMs, _ := cmd.Flags().GetInt("fsync-interval-ms")
			logLevel, _ := cmd.Flags().GetString("log-level")
			logFormat, _ := cmd.Flags().GetString("log-format")

			cfg, err := cfgpkg.Load(configPath)
			if err != nil {
				return err
			}
			cfgpkg.FromEnv(&cfg)
			if dataDir != "" {
				cfg.DataDir = dataDir
			}
			if httpAddr != "" {
				cfg.HTTPAddr = httpAddr
			}
			if fsyncMode != "" {
				cfg.Fsync = fsyncMode
			}
			if fsyncIntervalMs > 0 {
				cfg.FsyncIntervalMs = fsyncIntervalMs
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if logFormat != "" {
				cfg.Log.Format = logFormat
			}

			mode, err := serverrun.ParseFsync(cfg.Fsync)
			if err != nil {
				return err
			}

			if err := serverrun.Run(context.Background(), serverrun.Options{
				DataDir:       cfg.DataDir,
				HTTPAddr:      cfg.HTTPAddr,
				Fsync:         mode,
				FsyncInterval: time.Duration(cfg.FsyncIntervalMs) * time.Millisecond,
				Config:        cfg,
			}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	serverStartCmd.Flags().String("config", "", "Path to a JSON config file")
	serverStartCmd.Flags().String("data-dir", "", "Data directory (defaults to the OS application data directory)")
	serverStartCmd.Flags().String("http", "", "HTTP listen address (default :8080)")
	serverStartCmd.Flags().String("fsync", "", "Fsync mode: always|interval|never")
	serverStartCmd.Flags().Int("fsync-interval-ms", 0, "When --fsync=interval, group-commit window in ms")
	serverStartCmd.Flags().String("log-level", "", "Log level: debug|info|warn|error")
	serverStartCmd.Flags().String("log-format", "", "Log format: text|json")
	serverCmd.AddCommand(serverStartCmd)
	rootCmd.AddCommand(serverCmd)

	rootCmd.AddCommand(clientcmd.NewScanCommand(apiURL))
	rootCmd.AddCommand(clientcmd.NewAppendCommand(apiURL))
	rootCmd.AddCommand(clientcmd.NewTrimCommand(apiURL))
	rootCmd.AddCommand(clientcmd.NewLoadCommand(apiURL))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func apiURL() string {
	if v := os.Getenv("RANGEFLOW_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:8080"
}
