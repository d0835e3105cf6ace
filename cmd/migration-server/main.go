// Package main provides the translation migration server entry point.
// It hosts the migration API, the async job workers, and the maintenance
// loops in a single process.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/i18nhub/translation-migrator/pkg/api"
	"github.com/i18nhub/translation-migrator/pkg/audit"
	"github.com/i18nhub/translation-migrator/pkg/authz"
	"github.com/i18nhub/translation-migrator/pkg/bundlestore"
	"github.com/i18nhub/translation-migrator/pkg/engine"
	"github.com/i18nhub/translation-migrator/pkg/environment"
	"github.com/i18nhub/translation-migrator/pkg/events"
	"github.com/i18nhub/translation-migrator/pkg/ha"
	"github.com/i18nhub/translation-migrator/pkg/jobs"
	"github.com/i18nhub/translation-migrator/pkg/ledger"
	"github.com/i18nhub/translation-migrator/pkg/livestore"
)

func main() {
	var (
		listenAddr     string
		databaseType   string
		databaseDSN    string
		bundleStoreStr string
		envModeStr     string
		eventsModeStr  string
	)

	flag.StringVar(&listenAddr, "listen", ":8080", "Address to listen on")
	flag.StringVar(&databaseType, "db-type", "postgres", "Database type (postgres, mysql, or sqlite)")
	flag.StringVar(&databaseDSN, "db-dsn", "", "Database connection string")
	flag.StringVar(&bundleStoreStr, "bundle-store", "", "Bundle store backend (s3, git, or fs)")
	flag.StringVar(&envModeStr, "environment-mode", "", "Environment mode (single or multi)")
	flag.StringVar(&eventsModeStr, "events", "", "Event backend (nats, log, or none)")
	flag.Parse()

	// Allow env var overrides for the backend selections.
	if bundleStoreStr == "" {
		bundleStoreStr = envOrDefault("MIGRATOR_BUNDLE_STORE", "s3")
	}
	if envModeStr == "" {
		envModeStr = envOrDefault("MIGRATOR_ENVIRONMENT_MODE", string(environment.ModeSingle))
	}
	if eventsModeStr == "" {
		eventsModeStr = envOrDefault("MIGRATOR_EVENTS_MODE", "log")
	}

	// Initialize glog for backwards compatibility
	_ = flag.Set("logtostderr", "true")

	// Set up structured logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("starting migration server",
		"listen", listenAddr,
		"bundleStore", bundleStoreStr,
		"environmentMode", envModeStr,
		"events", eventsModeStr,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Setup database
	gormDB, err := setupDatabase(databaseType, databaseDSN)
	if err != nil {
		glog.Fatalf("Failed to connect to database: %v", err)
	}

	// Stores
	ledgerStore := ledger.NewStore(gormDB)
	liveStore := livestore.NewStore(gormDB)
	auditStore := audit.NewStore(gormDB)
	jobStore := jobs.NewJobStore(gormDB)

	// Run schema setup under the schema lock so concurrent replicas never
	// race on AutoMigrate.
	haCfg := ha.HAConfigFromEnv()
	migrateFn := func() error {
		for _, fn := range []func() error{
			ledgerStore.AutoMigrate,
			liveStore.AutoMigrate,
			auditStore.AutoMigrate,
			jobStore.AutoMigrate,
		} {
			if err := fn(); err != nil {
				return err
			}
		}
		return nil
	}
	if haCfg.SchemaLockEnabled {
		locker := ha.NewSchemaLocker(gormDB)
		if err := locker.WithLock(ctx, migrateFn); err != nil {
			glog.Fatalf("Failed to run schema setup: %v", err)
		}
	} else if err := migrateFn(); err != nil {
		glog.Fatalf("Failed to run schema setup: %v", err)
	}

	// Remote bundle storage
	bundles, err := setupBundleStore(ctx, bundleStoreStr, logger)
	if err != nil {
		glog.Fatalf("Failed to create bundle store: %v", err)
	}

	// Event notifier
	notifier, notifierClose, err := setupNotifier(eventsModeStr, logger)
	if err != nil {
		glog.Fatalf("Failed to create event notifier: %v", err)
	}
	if notifierClose != nil {
		defer notifierClose()
	}

	// Authorization
	authorizer, err := setupAuthorizer(logger)
	if err != nil {
		glog.Fatalf("Failed to create authorizer: %v", err)
	}

	// Engine
	engineCfg := engine.ConfigFromEnv()
	eng := engine.New(ledgerStore, liveStore, bundles, auditStore, notifier, engineCfg, logger)
	go eng.RunMaintenance(ctx)

	// Async job workers
	jobCfg := jobs.JobConfigFromEnv()
	if jobCfg.Enabled {
		pool := jobs.NewWorkerPool(jobStore, eng, jobCfg, logger)
		go pool.Run(ctx)
		logger.Info("job workers started", "concurrency", jobCfg.Concurrency)
	} else {
		logger.Info("job workers disabled")
	}

	// Audit retention
	auditCfg := audit.AuditConfigFromEnv()
	retention := audit.NewRetentionWorker(auditStore, auditCfg.RetentionDays, logger)
	go retention.Run(ctx)

	// HTTP surface
	server := api.NewServer(eng, liveStore, jobStore, auditStore, &api.Config{
		EnvironmentMode: environment.Mode(envModeStr),
		Authorizer:      authorizer,
		AuditConfig:     auditCfg,
		Logger:          logger,
	})
	router := server.MountRoutes()
	router.Handle("/metrics", promhttp.Handler())
	server.MarkReady()

	logger.Info("migration server ready", "listen", listenAddr)

	httpServer := &http.Server{
		Addr:    listenAddr,
		Handler: router,
	}

	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			glog.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	logger.Info("migration server stopped")
}

func setupDatabase(dbType, dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = os.Getenv("DATABASE_DSN")
		if dsn == "" {
			return nil, fmt.Errorf("database DSN is required (use -db-dsn flag or DATABASE_DSN environment variable)")
		}
	}
	if dbType == "" {
		dbType = envOrDefault("DATABASE_TYPE", "postgres")
	}

	var dialector gorm.Dialector
	switch dbType {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown database type %q (expected postgres, mysql, or sqlite)", dbType)
	}

	return gorm.Open(dialector, &gorm.Config{})
}

// setupBundleStore builds the remote bundle backend, optionally wrapped with
// the in-memory manifest/content cache.
func setupBundleStore(ctx context.Context, kind string, logger *slog.Logger) (bundlestore.Store, error) {
	var store bundlestore.Store
	var err error

	switch kind {
	case "s3":
		store, err = bundlestore.NewS3Store(ctx, bundlestore.S3Config{
			Bucket: os.Getenv("MIGRATOR_S3_BUCKET"),
			Prefix: os.Getenv("MIGRATOR_S3_PREFIX"),
			Region: envOrDefault("MIGRATOR_S3_REGION", "us-east-1"),
		})
	case "git":
		store, err = bundlestore.NewGitStore(bundlestore.GitConfig{
			RepoURL:   os.Getenv("MIGRATOR_GIT_REPO_URL"),
			Branch:    os.Getenv("MIGRATOR_GIT_BRANCH"),
			Subdir:    os.Getenv("MIGRATOR_GIT_SUBDIR"),
			AuthToken: os.Getenv("MIGRATOR_GIT_TOKEN"),
			Logger:    logger,
		})
	case "fs":
		store, err = bundlestore.NewFSStore(envOrDefault("MIGRATOR_BUNDLE_DIR", "/bundles"))
	default:
		return nil, fmt.Errorf("unknown bundle store %q (expected s3, git, or fs)", kind)
	}
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("MIGRATOR_BUNDLE_CACHE_SIZE"); v != "" {
		size, convErr := strconv.Atoi(v)
		if convErr != nil || size <= 0 {
			return nil, fmt.Errorf("invalid MIGRATOR_BUNDLE_CACHE_SIZE %q", v)
		}
		ttl := 5 * time.Minute
		if tv := os.Getenv("MIGRATOR_BUNDLE_CACHE_TTL_SECONDS"); tv != "" {
			if secs, convErr := strconv.Atoi(tv); convErr == nil && secs > 0 {
				ttl = time.Duration(secs) * time.Second
			}
		}
		store = bundlestore.NewCachingStore(store, size, ttl)
		logger.Info("bundle cache enabled", "size", size, "ttl", ttl.String())
	}

	return store, nil
}

// setupNotifier builds the event backend. The returned close function is nil
// for backends without a connection.
func setupNotifier(kind string, logger *slog.Logger) (events.Notifier, func(), error) {
	switch kind {
	case "nats":
		notifier, err := events.NewNATSNotifier(events.NATSConfig{
			URL:           envOrDefault("MIGRATOR_NATS_URL", "nats://localhost:4222"),
			SubjectPrefix: os.Getenv("MIGRATOR_NATS_SUBJECT_PREFIX"),
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return notifier, notifier.Close, nil
	case "log":
		return events.NewLogNotifier(logger), nil, nil
	case "none":
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown events mode %q (expected nats, log, or none)", kind)
	}
}

// setupAuthorizer builds the authorizer from MIGRATOR_AUTHZ_MODE. A nil
// return with nil error means authorization is disabled.
func setupAuthorizer(logger *slog.Logger) (authz.Authorizer, error) {
	mode := authz.AuthzMode(envOrDefault("MIGRATOR_AUTHZ_MODE", string(authz.AuthzModeNone)))
	switch mode {
	case authz.AuthzModeNone:
		return nil, nil
	case authz.AuthzModeRoleMap:
		path := envOrDefault("MIGRATOR_AUTHZ_ROLEMAP_PATH", "/config/rolemap.json")
		policy, err := authz.LoadRoleMap(path)
		if err != nil {
			return nil, err
		}
		ttl := 30 * time.Second
		if v := os.Getenv("MIGRATOR_AUTHZ_CACHE_TTL_SECONDS"); v != "" {
			if secs, convErr := strconv.Atoi(v); convErr == nil && secs > 0 {
				ttl = time.Duration(secs) * time.Second
			}
		}
		logger.Info("role-map authorization enabled", "path", path, "cacheTTL", ttl.String())
		return authz.NewCachedAuthorizer(authz.NewRoleMapAuthorizer(policy), ttl), nil
	default:
		return nil, fmt.Errorf("unknown authz mode %q (expected none or rolemap)", mode)
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
