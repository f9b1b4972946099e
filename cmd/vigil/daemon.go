package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/benaskins/vigil/internal/api"
	"github.com/benaskins/vigil/internal/audit"
	"github.com/benaskins/vigil/internal/config"
	"github.com/benaskins/vigil/internal/daemon"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the vigil daemon",
	Long:  "Start the supervisor daemon. Manages the bitcoind and electrs processes and serves the control API.",
	RunE:  runDaemon,
}

var (
	apiAddr  string
	confPath string
)

func init() {
	daemonCmd.Flags().StringVar(&apiAddr, "api-addr", "", "Optional TCP address for API (e.g. 127.0.0.1:9090)")
	daemonCmd.Flags().StringVar(&confPath, "config", "", "Config file path (default ~/.vigil/config.yaml)")
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	home, err := vigilHome()
	if err != nil {
		return fmt.Errorf("resolving home: %w", err)
	}
	if err := os.MkdirAll(home, 0o700); err != nil {
		return fmt.Errorf("creating vigil home: %w", err)
	}

	// Single-instance guard: two supervisors signalling the same
	// processes would fight each other.
	lock := flock.New(filepath.Join(home, "vigil.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring instance lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another vigil daemon is already running")
	}
	defer lock.Unlock()

	if confPath == "" {
		confPath = config.DefaultPath()
	}
	root := resolveStorageRoot()
	cfg, err := config.Load(confPath, root)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	slog.Info("vigil daemon starting",
		"root", root,
		"binaries", cfg.BinariesDir,
		"node_data", cfg.NodeDataDir,
		"indexer_db", cfg.IndexerDBDir)

	auditLog, err := audit.NewLogger(filepath.Join(home, "audit.log"))
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer auditLog.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	d := daemon.New(cfg, daemon.WithAudit(auditLog))

	go func() {
		if err := d.Start(ctx); err != nil {
			slog.Error("supervision loop error", "error", err)
		}
	}()
	go func() {
		if err := d.WatchDownloads(ctx); err != nil {
			slog.Error("downloads watcher failed", "error", err)
		}
	}()

	socketPath := defaultSocketPath()
	// Remove stale socket
	os.Remove(socketPath)

	srv := api.NewServer(d)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenUnix(socketPath)
	}()

	if apiAddr != "" {
		go func() {
			if err := srv.ListenTCP(apiAddr); err != nil {
				slog.Error("TCP API error", "error", err)
			}
		}()
	}

	slog.Info("vigil daemon ready", "socket", socketPath)

	select {
	case sig := <-sigCh:
		slog.Info("received signal, shutting down", "signal", sig)
	case err := <-errCh:
		if err != nil {
			slog.Error("API server error", "error", err)
		}
	}

	// Staged teardown: stop the managed processes (indexer first, then
	// the node) before tearing down the API and loop.
	d.Shutdown()
	cancel()
	srv.Shutdown(context.Background())
	os.Remove(socketPath)

	slog.Info("vigil daemon stopped")
	return nil
}
