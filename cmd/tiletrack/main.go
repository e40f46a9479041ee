package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/fr0stylo/tiletrack/internal/adapters/sqlite"
	"github.com/fr0stylo/tiletrack/internal/app/services"
	"github.com/fr0stylo/tiletrack/internal/config"
	"github.com/fr0stylo/tiletrack/internal/db"
	"github.com/fr0stylo/tiletrack/internal/observability"
	"github.com/fr0stylo/tiletrack/internal/tileapi"
)

// Meta key under which the generated client identity is persisted. It must be
// stable across runs or the API treats the integration as a new client.
const clientIDMetaKey = "tile_client_id"

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()

	log := slog.New(observability.WrapSlogHandler(
		slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
	))
	slog.SetDefault(log)

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		// Configuration problems are the one failure mode surfaced to the
		// user directly; everything later only reaches the logs.
		fmt.Fprintf(os.Stderr, "tiletrack: %v\n", err)
		return 2
	}

	dbPath := flag.String("db", cfg.Database.Path, "database path without .sqlite suffix")
	dryRun := flag.Bool("dry-run", false, "run the full pipeline without writing to the store")
	flag.Parse()

	shutdown, err := observability.SetupOpenTelemetry(ctx, log, observability.OpenTelemetryConfig{
		Enabled:           cfg.Observability.Enabled,
		OTLPEndpoint:      cfg.Observability.OTLPEndpoint,
		OTLPTraceHeaders:  cfg.Observability.OTLPTraceHeaders,
		OTLPMetricHeaders: cfg.Observability.OTLPMetricHeaders,
		ServiceName:       cfg.Observability.ServiceName,
		ServiceVer:        cfg.Observability.ServiceVer,
		SamplingRatio:     cfg.Observability.SamplingRatio,
		MetricsConsole:    cfg.Observability.MetricsConsole,
	})
	if err != nil {
		slog.Error("Failed to set up OpenTelemetry", "error", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			slog.Error("OpenTelemetry shutdown failed", "error", err)
		}
	}()

	database, err := db.New(strings.TrimSpace(*dbPath))
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		return 1
	}
	defer func() {
		if err := database.Close(); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}()

	clientID := cfg.API.ClientID
	if clientID == "" {
		clientID, err = database.EnsureMeta(ctx, clientIDMetaKey, uuid.NewString())
		if err != nil {
			slog.Error("Failed to resolve client identity", "error", err)
			return 1
		}
	}

	client := tileapi.NewClient(tileapi.Config{
		BaseURL:    cfg.API.BaseURL,
		ClientID:   clientID,
		AppID:      cfg.API.AppID,
		AppVersion: cfg.API.AppVersion,
		Locale:     cfg.API.Locale,
		UserAgent:  cfg.API.UserAgent,
	}, log)

	svc := services.NewSyncService(sqlite.NewTrackStore(database), client, log, services.SyncOptions{
		Email:      cfg.Account.Email,
		Password:   cfg.Account.Password,
		DeviceName: cfg.Device.Name,
		Track:      cfg.Device.Track,
		DryRun:     *dryRun,
	})

	slog.Info("Starting sync run", "device", cfg.Device.Name, "track", cfg.Device.Track, "dry_run", *dryRun)
	summary, err := svc.Run(ctx)
	if err != nil {
		slog.Error("Sync run failed", "error", err)
		return 1
	}

	slog.Info("Sync run finished",
		"run_id", summary.RunID,
		"device_id", summary.DeviceID,
		"fetched", summary.Fetched,
		"appended", summary.Appended,
	)
	for _, stat := range database.QueryLatencyStats() {
		slog.Debug("Query latency",
			"query", stat.Name, "count", stat.Count,
			"p50", stat.P50, "p95", stat.P95, "max", stat.Max)
	}
	return 0
}
