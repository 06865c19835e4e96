package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/edvin/backupd/internal/api"
	mw "github.com/edvin/backupd/internal/api/middleware"
	"github.com/edvin/backupd/internal/config"
	"github.com/edvin/backupd/internal/core"
	"github.com/edvin/backupd/internal/db"
	"github.com/edvin/backupd/internal/logging"
	"github.com/edvin/backupd/internal/metrics"
	"github.com/edvin/backupd/internal/process"
)

func main() {
	if len(os.Args) >= 2 && os.Args[1] == "create-api-key" {
		createAPIKey(os.Args[2:])
		return
	}

	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("backup-api"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *migrateFlag {
		if cfg.StateDatabaseURL == "" {
			logger.Fatal().Msg("-migrate requires DATABASE_URL or STATE_DATABASE_URL")
		}
		logger.Info().Str("schema", db.Schema).Msg("running database migrations")
		if err := db.RunMigrations(ctx, cfg.StateDatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	// The state pool is only opened when a backend needs it.
	var pool *pgxpool.Pool
	var stateDB core.DB
	if cfg.RestoreLockBackend == "postgres" || cfg.APIKeyStore == "postgres" {
		pool, err = db.NewPool(ctx, cfg.StateDatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to state database")
		}
		defer pool.Close()
		stateDB = pool
		if err := metrics.RegisterPgxPoolMetrics(prometheus.DefaultRegisterer, pool); err != nil {
			logger.Warn().Err(err).Msg("failed to register pool metrics")
		}
	}

	runner := process.NewRunner(logger, cfg.ProcessTimeout)
	services, err := core.NewServices(logger, cfg, stateDB, runner)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build services")
	}

	deps := api.Deps{Backups: services.Backup}
	if services.APIKey != nil {
		deps.APIKeys = services.APIKey
		deps.Authn = mw.StoredKeys(services.APIKey)
	} else {
		deps.Authn = mw.StaticKeys(cfg.AdminAPIKeys)
	}
	if pool != nil {
		deps.DB = pool
		deps.Audit = mw.NewAuditLogger(pool, logger)
	}

	srv := api.NewServer(logger, deps)
	defer srv.Close()

	tlsConfig, err := cfg.ServerTLS()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure TLS")
	}

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		TLSConfig:    tlsConfig,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.HTTPWriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	if cfg.MetricsAddr != "" {
		metricsServer := metrics.NewServer(cfg.MetricsAddr)
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
		defer metricsServer.Close()
	}

	go func() {
		logger.Info().
			Str("addr", cfg.HTTPListenAddr).
			Str("backup_root", cfg.BackupRoot).
			Str("lock_backend", cfg.RestoreLockBackend).
			Bool("tls", tlsConfig != nil).
			Msg("starting backup API server")
		var err error
		if tlsConfig != nil {
			err = httpServer.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
}

func createAPIKey(args []string) {
	fs := flag.NewFlagSet("create-api-key", flag.ExitOnError)
	name := fs.String("name", "", "Name for the API key (required)")
	admin := fs.Bool("admin", true, "Grant backup and restore access")
	fs.Parse(args)

	if *name == "" {
		fmt.Fprintln(os.Stderr, "error: --name is required")
		fmt.Fprintln(os.Stderr, "usage: backup-api create-api-key --name <name> [--admin=false]")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.StateDatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "error: DATABASE_URL or STATE_DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.StateDatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	svc := core.NewAPIKeyService(pool)
	key, rawKey, err := svc.Create(ctx, *name, *admin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to create API key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("API key created successfully.\n\n")
	fmt.Printf("  Name:   %s\n", key.Name)
	fmt.Printf("  ID:     %s\n", key.ID)
	fmt.Printf("  Admin:  %t\n", key.IsAdmin)
	fmt.Printf("  Key:    %s\n\n", rawKey)
	fmt.Printf("Save this key, it will not be shown again.\n")
}
