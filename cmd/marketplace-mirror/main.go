package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/feral-file/marketplace-mirror/internal/adapter"
	"github.com/feral-file/marketplace-mirror/internal/api/server"
	"github.com/feral-file/marketplace-mirror/internal/backfill"
	"github.com/feral-file/marketplace-mirror/internal/config"
	"github.com/feral-file/marketplace-mirror/internal/domain"
	"github.com/feral-file/marketplace-mirror/internal/logger"
	"github.com/feral-file/marketplace-mirror/internal/mirror"
	"github.com/feral-file/marketplace-mirror/internal/providers/marketplace"
	"github.com/feral-file/marketplace-mirror/internal/reconciler"
	"github.com/feral-file/marketplace-mirror/internal/sink"
	"github.com/feral-file/marketplace-mirror/internal/store"
)

const serviceName = "marketplace-mirror"

var (
	configFile = flag.String("config", "", "Path to configuration file")
	envPath    = flag.String("env", "config/", "Path to environment files")
)

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	// Load configuration
	config.ChdirRepoRoot()
	cfg, err := config.LoadMirrorConfig(*configFile, *envPath)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid config: %v", err))
	}

	runID := ulid.Make().String()

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logger.WithFields(ctx, zap.String("run_id", runID))

	// Initialize logger with sentry integration
	err = logger.Initialize(logger.Config{
		Debug:           cfg.Debug,
		SentryDSN:       cfg.SentryDSN,
		BreadcrumbLevel: zapcore.InfoLevel,
		Tags: map[string]string{
			"service": serviceName,
			"chain":   string(cfg.Ethereum.ChainID),
		},
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Flush(2 * time.Second)
	logger.InfoCtx(ctx, "Starting Marketplace Mirror",
		zap.String("marketplace", cfg.Ethereum.MarketplaceAddress),
		zap.String("store", cfg.Store.Driver))

	// Initialize adapters
	clockAdapter := adapter.NewClock()
	jsonAdapter := adapter.NewJSON()
	natsJS := adapter.NewNatsJetStream()
	fsAdapter := adapter.NewFileSystem()

	// Initialize store
	dataStore, err := openStore(ctx, cfg, jsonAdapter)
	if err != nil {
		logger.ErrorCtx(ctx, err, zap.String("component", "store"))
		return 1
	}

	// Initialize ethereum clients
	gateway, err := openGateway(ctx, cfg.Ethereum, adapter.NewEthClientDialer(), clockAdapter)
	if err != nil {
		logger.ErrorCtx(ctx, err, zap.String("component", "gateway"))
		return 1
	}
	defer gateway.Close()
	logger.InfoCtx(ctx, "Connected to Ethereum", zap.String("chain", string(cfg.Ethereum.ChainID)))

	// Initialize audit sinks
	auditSink, err := openSinks(ctx, cfg, runID, fsAdapter, natsJS, jsonAdapter, clockAdapter)
	if err != nil {
		logger.ErrorCtx(ctx, err, zap.String("component", "sink"))
		return 1
	}
	defer func() {
		if err := auditSink.Close(); err != nil {
			logger.Error(err, zap.String("component", "sink"))
		}
	}()

	orchestrator := backfill.NewOrchestrator(backfill.Config{
		MaxConcurrency: cfg.Backfill.MaxConcurrency,
	}, gateway, dataStore, auditSink, clockAdapter)
	eventReconciler := reconciler.NewReconciler(gateway, dataStore, auditSink, clockAdapter)
	svc := mirror.NewService(dataStore, orchestrator, eventReconciler)

	// Start status server
	var statusServer *server.Server
	if cfg.Server.Enabled {
		statusServer = server.New(server.Config{
			Debug:        cfg.Debug,
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
			IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
		}, svc)
		go func() {
			if err := statusServer.Start(); err != nil {
				logger.ErrorCtx(ctx, err, zap.String("component", "server"))
			}
		}()
	}

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel for mirror errors
	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Run(ctx)
	}()

	exitCode := 0

	// Wait for shutdown signal or error
	select {
	case sig := <-sigCh:
		logger.InfoCtx(ctx, "Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
		if err := <-errCh; err != nil {
			logger.Error(err, zap.String("component", "mirror"))
		}
	case err := <-errCh:
		if err != nil {
			logger.ErrorCtx(ctx, err, zap.String("component", "mirror"), zap.String("phase", string(svc.Phase())))
			exitCode = 1
		}
		cancel()
	}

	if statusServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := statusServer.Shutdown(shutdownCtx); err != nil {
			logger.Error(err, zap.String("component", "server"))
		}
	}

	// Use non-context logger for final shutdown message since context is already canceled
	logger.Info("Marketplace Mirror stopped", zap.String("run_id", runID))
	return exitCode
}

// openStore connects the configured store backend
func openStore(ctx context.Context, cfg *config.MirrorConfig, jsonAdapter adapter.JSON) (store.Store, error) {
	if cfg.Store.Driver == config.StoreDriverMemory {
		logger.WarnCtx(ctx, "Using in-memory store, the mirror is lost on exit")
		return store.NewMemoryStore(jsonAdapter), nil
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := store.ConfigureConnectionPool(db,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
		cfg.Database.ConnMaxIdleTime); err != nil {
		return nil, err
	}
	if err := store.AutoMigrate(db); err != nil {
		return nil, err
	}
	logger.InfoCtx(ctx, "Connected to database", zap.String("host", cfg.Database.Host), zap.String("dbname", cfg.Database.DBName))

	return store.NewPGStore(db), nil
}

// openSinks opens the audit file and, when NATS is configured, the audit stream
func openSinks(
	ctx context.Context,
	cfg *config.MirrorConfig,
	runID string,
	fsAdapter adapter.FileSystem,
	natsJS adapter.NatsJetStream,
	jsonAdapter adapter.JSON,
	clockAdapter adapter.Clock,
) (sink.Sink, error) {
	fileSink, err := sink.NewFileSink(fsAdapter, cfg.Sink.Path)
	if err != nil {
		return nil, err
	}
	logger.InfoCtx(ctx, "Audit file opened", zap.String("path", cfg.Sink.Path))

	if cfg.NATS.URL == "" {
		return fileSink, nil
	}

	streamSink, err := sink.NewJetStreamSink(ctx, sink.JetStreamConfig{
		URL:            cfg.NATS.URL,
		StreamName:     cfg.NATS.StreamName,
		Subject:        cfg.NATS.Subject,
		MaxReconnects:  cfg.NATS.MaxReconnects,
		ReconnectWait:  cfg.NATS.ReconnectWait,
		ConnectionName: cfg.NATS.ConnectionName,
		RunID:          runID,
	}, natsJS, jsonAdapter, adapter.NewJCS(), clockAdapter)
	if err != nil {
		_ = fileSink.Close()
		return nil, err
	}
	logger.InfoCtx(ctx, "Connected to NATS JetStream", zap.String("subject", cfg.NATS.Subject))

	return sink.Multi(fileSink, streamSink), nil
}

// openGateway dials the read and subscribe endpoints and refuses a node serving another chain
func openGateway(ctx context.Context, cfg config.EthereumConfig, dialer adapter.EthClientDialer, clock adapter.Clock) (marketplace.Gateway, error) {
	reader, err := dialer.Dial(ctx, cfg.ReadURL())
	if err != nil {
		return nil, fmt.Errorf("failed to dial Ethereum RPC %s: %w", cfg.ReadURL(), err)
	}
	var subscriber adapter.EthClient
	if cfg.SubscribeURL() != cfg.ReadURL() {
		subscriber, err = dialer.Dial(ctx, cfg.SubscribeURL())
		if err != nil {
			reader.Close()
			return nil, fmt.Errorf("failed to dial Ethereum WebSocket %s: %w", cfg.SubscribeURL(), err)
		}
	}

	gateway, err := marketplace.NewGateway(marketplace.Config{
		ChainID:              cfg.ChainID,
		ContractAddress:      cfg.MarketplaceAddress,
		RetryInitialInterval: cfg.RetryInitialInterval,
		RetryMaxElapsed:      cfg.RetryMaxElapsed,
		RetryMaxAttempts:     cfg.RetryMaxAttempts,
		RequestsPerSecond:    cfg.RequestsPerSecond,
		RequestBurst:         cfg.RequestBurst,
	}, reader, subscriber, clock)
	if err != nil {
		reader.Close()
		if subscriber != nil {
			subscriber.Close()
		}
		return nil, err
	}

	chainID, err := reader.ChainID(ctx)
	if err != nil {
		gateway.Close()
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}
	if actual := domain.EIP155Chain(chainID); actual != cfg.ChainID {
		gateway.Close()
		return nil, fmt.Errorf("connected to %s, configured for %s", actual, cfg.ChainID)
	}
	return gateway, nil
}
