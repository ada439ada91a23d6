package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/joseph-ayodele/doc-classifier/internal/app"
	"github.com/joseph-ayodele/doc-classifier/internal/common"
	"github.com/joseph-ayodele/doc-classifier/internal/export"
	"github.com/joseph-ayodele/doc-classifier/internal/ingest"
	"github.com/joseph-ayodele/doc-classifier/internal/server"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := common.LoadConfig()
	if err != nil {
		app.NewLogger(os.Stderr, "info").Error("failed to load configuration", "error", err)
		os.Exit(2)
	}
	logger := app.NewLogger(os.Stdout, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, closeDB, err := app.OpenDatabase(ctx, cfg, false, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer closeDB()

	svc, err := app.NewService(cfg, db, logger)
	if err != nil {
		logger.Error("failed to build classification service", "error", err)
		os.Exit(1)
	}

	// HTTP API
	httpServer := server.NewHTTPServer(cfg.Server.HTTPAddr, server.NewHTTPHandler(server.Deps{
		Submitter:     svc.Ingest,
		Tasks:         db.Tasks,
		Classifier:    svc.Registry,
		Exporter:      export.NewService(db.Tasks, logger),
		DBPing:        db.Ping,
		StoragePing:   svc.Store.Ping,
		MaxUploadSize: cfg.Server.MaxUploadSize,
	}, logger))

	// gRPC API
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer, healthServer := server.NewGRPCServer(server.NewClassificationService(svc.Registry, db.Tasks, logger), logger)

	serveErr := make(chan error, 2)
	go func() {
		logger.Info("http listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	go func() {
		logger.Info("grpc listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			serveErr <- err
		}
	}()

	if len(cfg.Ingest.WatchDirs) > 0 {
		go func() {
			err := svc.Ingest.Watch(ctx, ingest.WatchConfig{
				Roots:       cfg.Ingest.WatchDirs,
				InitialScan: true,
				Debounce:    cfg.Ingest.Debounce,
				SkipHidden:  true,
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("directory watcher stopped", "error", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serveErr:
		logger.Error("server failed", "error", err)
	}

	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	grpcServer.GracefulStop()
	svc.Queue.Shutdown(shutdownCtx)
	logger.Info("stopped")
}
