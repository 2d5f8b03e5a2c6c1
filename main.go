// Package main provides the entry point of the gateway campaign broker
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/amirphl/gateway-campaign-broker/app/handlers"
	"github.com/amirphl/gateway-campaign-broker/app/logger"
	"github.com/amirphl/gateway-campaign-broker/app/middleware"
	"github.com/amirphl/gateway-campaign-broker/app/router"
	"github.com/amirphl/gateway-campaign-broker/app/services"
	businessflow "github.com/amirphl/gateway-campaign-broker/business_flow"
	"github.com/amirphl/gateway-campaign-broker/config"
	"github.com/amirphl/gateway-campaign-broker/models"
	"github.com/amirphl/gateway-campaign-broker/repository"
)

// Application represents the main application structure
type Application struct {
	router    router.Router
	config    *config.Config
	logger    *zap.Logger
	db        *gorm.DB
	cache     *redis.Client
	stopFuncs []func()
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Encoding:   cfg.Logging.Encoding,
		Output:     cfg.Logging.Output,
		FilePath:   cfg.Logging.FilePath,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	app, err := initializeApplication(cfg, zl)
	if err != nil {
		zl.Fatal("Failed to initialize application", zap.Error(err))
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		if err := app.router.Start(address); err != nil {
			zl.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-sigChan
	zl.Info("Shutting down gracefully...")

	app.shutdown()

	zl.Info("Server stopped")
}

// shutdown drains the HTTP server and then releases the stores
func (a *Application) shutdown() {
	for _, fn := range a.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := a.router.GetApp().ShutdownWithContext(shutdownCtx); err != nil {
		a.logger.Error("Error during shutdown", zap.Error(err))
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}
	if sqlDB, err := a.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			a.logger.Warn("Failed to close database", zap.Error(err))
		}
	}
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig, zl *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.StatementTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(&models.Campaign{}, &models.AuditLog{}); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	zl.Info("Database connection established",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
		zap.Bool("auto_migrate", cfg.AutoMigrate))

	return db, nil
}

// initializeCache initializes the redis client and verifies connectivity.
// A disabled cache returns a nil client.
func initializeCache(cfg config.CacheConfig, zl *zap.Logger) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	zl.Info("Redis connection established", zap.String("addr", opt.Addr), zap.Int("db", opt.DB))
	return rc, nil
}

// startCacheHealthMonitor periodically pings redis to surface connectivity problems.
// The returned function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration, zl *zap.Logger) func() {
	if client == nil {
		return func() {}
	}
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(monitorCtx, 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					zl.Warn("Redis healthcheck failed", zap.Error(err))
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeApplication wires stores, gateway client, flows and transport
func initializeApplication(cfg *config.Config, zl *zap.Logger) (*Application, error) {
	var stopFuncs []func()

	db, err := initializeDatabase(cfg.Database, zl)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache, zl)
	if err != nil {
		return nil, err
	}
	stopFuncs = append(stopFuncs, startCacheHealthMonitor(context.Background(), rc, 30*time.Second, zl))

	// Without redis the in-flight guard only protects a single replica
	var guard businessflow.InFlightGuard
	if rc != nil {
		guard = businessflow.NewRedisInFlightGuard(rc, cfg.Cache.KeyPrefix, cfg.Cache.LockTTL)
	} else {
		zl.Warn("Cache disabled; using process-local in-flight guard")
		guard = businessflow.NewLocalInFlightGuard()
	}

	version := models.ContractVersion(cfg.Gateway.ContractVersion)
	stateMachine, err := businessflow.NewCampaignStateMachine(version)
	if err != nil {
		return nil, err
	}
	compiler, err := businessflow.NewFilterCompiler(version)
	if err != nil {
		return nil, err
	}
	scheduler := businessflow.NewSendTimeScheduler()

	resolver, err := services.NewEnvironmentResolver(cfg.Gateway, cfg.Deployment)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize gateway environments: %w", err)
	}
	gatewayClient := services.NewGatewayClient(
		resolver,
		services.NewRestyTransport(cfg.Gateway.Timeout),
		cfg.Gateway.APIKeyHeader,
		cfg.Gateway.LogBodyLimit,
		zl.Named("gateway"),
	)

	tokenService, err := services.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}

	campaignRepo := repository.NewCampaignRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	campaignFlow := businessflow.NewCampaignFlow(
		campaignRepo,
		auditRepo,
		gatewayClient,
		compiler,
		scheduler,
		stateMachine,
		guard,
		rc,
		cfg.Cache,
		zl.Named("campaign"),
	)
	callbackFlow := businessflow.NewCallbackFlow(
		campaignRepo,
		auditRepo,
		stateMachine,
		cfg.Callback,
		zl.Named("callback"),
	)

	campaignHandler := handlers.NewCampaignHandler(campaignFlow, zl.Named("http"), cfg.Server.RequestTimeout)
	callbackHandler := handlers.NewCallbackHandler(callbackFlow, cfg.Server.RequestTimeout)
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	r := router.NewFiberRouter(
		cfg.Server,
		cfg.Metrics,
		campaignHandler,
		callbackHandler,
		authMiddleware,
		zl.Named("http"),
	)

	zl.Info("Application initialized",
		zap.String("contract_version", cfg.Gateway.ContractVersion),
		zap.String("default_env", cfg.Gateway.DefaultEnvironment),
		zap.Bool("force_sandbox", cfg.Gateway.ForceSandbox))

	return &Application{
		router:    r,
		config:    cfg,
		logger:    zl,
		db:        db,
		cache:     rc,
		stopFuncs: stopFuncs,
	}, nil
}
