package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/alfredjeanlab/flowboard/internal/config"
	"github.com/alfredjeanlab/flowboard/internal/events"
	"github.com/alfredjeanlab/flowboard/internal/server"
	"github.com/alfredjeanlab/flowboard/internal/store"
	"github.com/alfredjeanlab/flowboard/internal/store/postgres"
	"github.com/alfredjeanlab/flowboard/internal/store/sqlite"
	snapshot "github.com/alfredjeanlab/flowboard/internal/sync"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the flowboard HTTP and gRPC servers",
	GroupID: "system",
	Args:    cobra.NoArgs,
	// Override PersistentPreRunE so we don't create an HTTP client.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		slog.SetDefault(logger)

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		logger.Info("store opened", "backend", cfg.Backend())

		publisher, err := events.New(cfg.NATSURL)
		if err != nil {
			st.Close()
			return err
		}
		if cfg.NATSURL != "" {
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			logger.Info("events disabled (FLOWBOARD_NATS_URL not set)")
		}

		dashServer := server.NewDashboardServer(st, publisher)
		if cfg.SettingsFile != "" {
			overlay, err := config.LoadSettingsFile(cfg.SettingsFile)
			if err != nil {
				publisher.Close()
				st.Close()
				return err
			}
			dashServer.SetSettingsOverlay(overlay)
			logger.Info("settings overlay loaded", "file", cfg.SettingsFile)
		}

		// Start sync scheduler if any destinations are configured.
		var scheduler *snapshot.Scheduler
		if cfg.SyncEnabled() {
			dests := buildDestinations(context.Background(), cfg, logger)
			if len(dests) > 0 {
				scheduler = snapshot.NewScheduler(st, dests, cfg.SyncInterval, logger)
				scheduler.Start()
				dashServer.SetScheduler(scheduler)
				logger.Info("sync scheduler started", "interval", cfg.SyncInterval)
			}
		}

		// Start gRPC listener (health and reflection).
		grpcServer, healthServer := server.NewGRPCServer(cfg.AuthToken)
		if cfg.GRPCAddr != "" {
			lis, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				if scheduler != nil {
					scheduler.Stop()
				}
				publisher.Close()
				st.Close()
				return err
			}
			go func() {
				logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
				if err := grpcServer.Serve(lis); err != nil {
					logger.Error("gRPC server error", "err", err)
				}
			}()
		}

		// Start HTTP server.
		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           dashServer.NewHTTPHandler(cfg.AuthToken),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		logger.Info("flowboard server started",
			"grpc_addr", cfg.GRPCAddr,
			"http_addr", cfg.HTTPAddr,
			"auth", cfg.AuthToken != "",
		)

		// Wait for SIGINT or SIGTERM.
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		healthServer.SetServingStatus(server.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

		if scheduler != nil {
			scheduler.Stop()
			logger.Info("sync scheduler stopped")
		}

		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := st.Close(); err != nil {
			logger.Error("error closing store", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}

// openStore opens the backend selected by the configuration.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Backend() {
	case config.BackendPostgres:
		return postgres.New(cfg.DatabaseURL)
	case config.BackendSQLite:
		path := cfg.SQLitePath
		if path == "" {
			p, err := sqlite.DefaultPath()
			if err != nil {
				return nil, err
			}
			path = p
		}
		return sqlite.Open(path)
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend())
}

// buildDestinations returns the configured snapshot destinations. A
// destination that fails to initialise is logged and skipped.
func buildDestinations(ctx context.Context, cfg *config.Config, logger *slog.Logger) []snapshot.Destination {
	var dests []snapshot.Destination
	if cfg.SyncS3Bucket != "" {
		s3Dest, err := snapshot.NewS3Destination(ctx,
			cfg.SyncS3Bucket,
			cfg.SyncS3Key,
			cfg.SyncS3Region,
			cfg.SyncS3Endpoint,
		)
		if err != nil {
			logger.Error("failed to create S3 sync destination", "err", err)
		} else {
			dests = append(dests, s3Dest)
			logger.Info("sync destination enabled", "destination", s3Dest.Name())
		}
	}
	if cfg.SyncGitRepo != "" {
		gitDest := snapshot.NewGitDestination(cfg.SyncGitRepo, cfg.SyncGitFile, cfg.SyncGitBranch)
		dests = append(dests, gitDest)
		logger.Info("sync destination enabled", "destination", gitDest.Name())
	}
	return dests
}
