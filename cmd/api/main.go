package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fasthttp/router"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	delivery "icon-resolver/internal/adapter/delivery/http"
	handler "icon-resolver/internal/adapter/handler/http"
	"icon-resolver/internal/adapter/remote"
	"icon-resolver/internal/adapter/rpc"
	"icon-resolver/internal/adapter/storage/filesystem"
	"icon-resolver/internal/adapter/storage/memory"
	"icon-resolver/internal/adapter/storage/sqlite"
	"icon-resolver/internal/application"
	"icon-resolver/internal/config"
	"icon-resolver/internal/logger"
	"icon-resolver/internal/pkg/metrics"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// --- Configuration ---
	flags := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	config.BindFlags(flags)
	_ = flags.Parse(os.Args[1:])

	cfgPath, _ := flags.GetString("config-dir")
	cfg, err := config.Load(cfgPath, flags)
	if err != nil {
		log.Fatalf("Failed to load configuration from %s: %v", cfgPath, err)
	}

	// --- Logger ---
	appLogger, err := logger.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to setup logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()
	appLogger.Info("Logger initialized", zap.Any("config", cfg.Logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		appLogger.Fatal("Server stopped with error", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}

func run(ctx context.Context, cfg *config.Config, appLogger *zap.Logger) error {
	appLogger.Info("Initializing dependencies...")

	// Metadata
	db, err := sqlite.Open(cfg.Metadata.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()
	metadata := memory.NewCachedMetadataRepository(
		sqlite.NewMetadataRepository(db, appLogger),
		cfg.Metadata,
		appLogger,
	)

	// Icon cache
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir %s: %w", cfg.Storage.DataDir, err)
	}
	store := filesystem.NewIconStore(osfs.New(cfg.Storage.DataDir), metadata, appLogger)

	// RPC pools
	registry := rpc.NewPoolRegistry(metadata, rpc.DialEthClient, cfg.RPC.MaxWorkers, appLogger)
	defer registry.Close()
	if err := registry.InitializeAll(ctx); err != nil {
		appLogger.Warn("Some rpc pools failed to initialize", zap.Error(err))
	}

	// Image sources
	known, err := remote.LoadKnownIcons(cfg.Icons.WellKnownFile, cfg.Remote.CDNBaseURL)
	if err != nil {
		return err
	}
	images := remote.NewImageFetcher(cfg.Remote, metadata, known, appLogger)
	nft := rpc.NewNFTMetadataFetcher(registry, cfg.RPC.GetCallTimeout(), appLogger)

	// Services
	m := metrics.New(prometheus.DefaultRegisterer)
	iconService := application.NewIconService(ctx, application.IconServiceDeps{
		Store:    store,
		Metadata: metadata,
		Images:   images,
		NFT:      nft,
		InFlight: application.NewInFlightRegistry(),
		Metrics:  m,
	}, cfg.Storage.GetNegativeTTL(), appLogger)
	nodeStatusService := application.NewNodeStatusService(
		registry,
		rpc.NewChecker(cfg.RPC.GetProbeTimeout(), appLogger),
		cfg.RPC.GetProbeTimeout(),
		cfg.RPC.MaxWorkers,
		appLogger,
	)

	// Handlers
	iconHandler := handler.NewIconHandler(iconService, appLogger)
	nodeHandler := handler.NewNodeHandler(nodeStatusService, appLogger)

	// --- HTTP Router & Server ---
	appLogger.Info("Setting up HTTP router...")
	r := router.New()
	delivery.RegisterRoutes(r, iconHandler, nodeHandler, prometheus.DefaultGatherer, appLogger)

	server := &fasthttp.Server{
		Handler: delivery.RequestLogger(r.Handler, appLogger),
		Name:    cfg.App.Name,
	}

	serverAddr := cfg.Server.Host + ":" + cfg.Server.Port
	serveErr := make(chan error, 1)
	go func() {
		appLogger.Info("Starting HTTP server", zap.String("address", serverAddr))
		serveErr <- server.ListenAndServe(serverAddr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen on %s: %w", serverAddr, err)
		}
		return nil
	case <-ctx.Done():
	}

	appLogger.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		appLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}

	appLogger.Info("Waiting for background icon fetches...")
	iconService.Wait()
	return nil
}
