// Command speakflowd serves the speaking-practice API and, when a broker
// is configured, the grading workers.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/felixgeelhaar/speakflow/internal/config"
	"github.com/felixgeelhaar/speakflow/internal/daemon"
	"github.com/felixgeelhaar/speakflow/internal/observe"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := run(ctx)
	stop()
	if err != nil {
		slog.Error("speakflowd exited", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	dir, err := config.EnsureSpeakflowDir()
	if err != nil {
		return fmt.Errorf("ensure speakflow dir: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logFile, err := openLog(dir, logLevel(cfg.LogLevel))
	if err != nil {
		return err
	}
	defer logFile.Close()

	pidPath := filepath.Join(dir, "speakflowd.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	tel, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "speakflowd",
		ServiceVersion: Version,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), daemon.ShutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(flushCtx); err != nil {
			slog.Warn("telemetry shutdown", "error", err)
		}
	}()

	server, err := daemon.NewServer(ctx, daemon.ServerConfig{
		Config:    cfg,
		Version:   Version,
		Telemetry: tel,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}
	if err := server.Run(ctx); err != nil {
		return err
	}

	slog.Info("speakflowd stopped")
	return nil
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}
