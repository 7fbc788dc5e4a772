package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/vincentbai/pageview-bridge/internal/analytics"
	"github.com/vincentbai/pageview-bridge/internal/app"
	"github.com/vincentbai/pageview-bridge/internal/bridge"
	"github.com/vincentbai/pageview-bridge/internal/config"
	"github.com/vincentbai/pageview-bridge/internal/database"
	"github.com/vincentbai/pageview-bridge/internal/metrics"
	"github.com/vincentbai/pageview-bridge/internal/server"
)

func main() {
	if err := run(); err != nil {
		slog.Error("pageview bridge failed", "error", err)
		os.Exit(1)
	}
}

// run owns every resource it opens, so deferred cleanup happens before main
// decides the exit code.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		_, _ = io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n")
		return err
	}

	slog.Info("config loaded",
		"addr", cfg.Address,
		"data_dir", cfg.DataDir,
		"backends", cfg.Backends,
		"queue_size", cfg.QueueSize,
		"static_dir", cfg.StaticDir,
		"log_level", cfg.LogLevel,
	)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", cfg.DataDir, err)
	}

	var db *database.Database
	if cfg.HasBackend(config.BackendLocal) {
		db, err = database.NewDatabase(cfg.DatabasePath())
		if err != nil {
			return fmt.Errorf("failed to open pageview store %s: %w", cfg.DatabasePath(), err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				slog.Error("failed to close pageview store", "error", err)
			}
		}()
	}

	client, err := buildClient(cfg, db)
	if err != nil {
		return fmt.Errorf("failed to build analytics client: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	application := app.Init()
	if err := bridge.New(client, slog.Default(), metrics.NewBridge(registry)).Attach(application.Ports.UpdateAnalytics); err != nil {
		return err
	}

	opts := []server.Option{
		server.WithGatherer(registry),
		server.WithQueueSize(cfg.QueueSize),
		server.WithIngressMetrics(metrics.NewIngress(registry)),
	}
	if db != nil {
		opts = append(opts, server.WithPageviews(db))
	}
	if cfg.StaticDir != "" {
		opts = append(opts, server.WithStaticDir(cfg.StaticDir))
	}

	srv := server.NewServer(application, cfg.Address, opts...)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// buildClient assembles the configured backends into one client, in order.
func buildClient(cfg *config.Config, db *database.Database) (analytics.Client, error) {
	var clients []analytics.Client
	for _, backend := range cfg.Backends {
		switch backend {
		case config.BackendLocal:
			if db == nil {
				return nil, fmt.Errorf("backend %q needs an open pageview store", backend)
			}
			clients = append(clients, analytics.NewLocal(db))
		case config.BackendMeasurement:
			m, err := analytics.NewMeasurement(analytics.MeasurementConfig{
				TrackingID: cfg.TrackingID,
				ClientID:   cfg.ClientID,
				CollectURL: cfg.CollectURL,
				Timeout:    cfg.CollectTimeout,
			})
			if err != nil {
				return nil, err
			}
			slog.Info("measurement protocol enabled", "tracking_id", cfg.TrackingID, "client_id", m.ClientID())
			clients = append(clients, m)
		case config.BackendLog:
			clients = append(clients, analytics.NewLogger(slog.Default()))
		case config.BackendNoop:
			clients = append(clients, analytics.Noop{})
		default:
			return nil, fmt.Errorf("unknown analytics backend %q", backend)
		}
	}
	return analytics.Tee(clients...), nil
}

func setupLogger(level, filename string) error {
	writers := []io.Writer{os.Stdout}
	if filename != "" {
		if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
			return err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   filename,
			MaxSize:    25,
			MaxBackups: 10,
			MaxAge:     14,
			Compress:   true,
		})
	}

	h := slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{Level: parseLevel(level)})
	slog.SetDefault(slog.New(h))
	return nil
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
