package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edvin/backupd/internal/api"
	mw "github.com/edvin/backupd/internal/api/middleware"
	"github.com/edvin/backupd/internal/backupctl"
	"github.com/edvin/backupd/internal/config"
	"github.com/edvin/backupd/internal/core"
	"github.com/edvin/backupd/internal/db"
	"github.com/edvin/backupd/internal/logging"
	"github.com/edvin/backupd/internal/process"
)

func main() {
	os.Exit(run())
}

func run() int {
	apiURL := flag.String("api", os.Getenv("BACKUPD_API_URL"), "backup-api base URL; empty runs in-process")
	apiKey := flag.String("key", os.Getenv("BACKUPD_API_KEY"), "API key for -api")
	timeout := flag.Duration("timeout", 2*time.Hour, "Request timeout for -api")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, backupctl.Usage)
		fmt.Fprintln(os.Stderr, "\nGlobal flags:")
		flag.PrintDefaults()
	}
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var client *backupctl.Client
	if *apiURL != "" {
		client = backupctl.NewClient(*apiURL, *apiKey, *timeout)
	} else {
		local, cleanup, err := localClient(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		defer cleanup()
		client = local
	}

	return backupctl.Run(ctx, client, flag.Args(), os.Stdout, os.Stderr)
}

// localClient wires the services in-process behind a one-off admin key.
func localClient(ctx context.Context) (*backupctl.Client, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate("backupctl"); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	// stdout carries the JSON result.
	logger := logging.NewLoggerTo(os.Stderr, cfg)

	var stateDB core.DB
	closeDB := func() {}
	if cfg.RestoreLockBackend == "postgres" {
		pool, err := db.NewPool(ctx, cfg.StateDatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to state database: %w", err)
		}
		stateDB = pool
		closeDB = pool.Close
	}

	// The in-process server authenticates with static keys only.
	cfg.APIKeyStore = "static"
	services, err := core.NewServices(logger, cfg, stateDB, process.NewRunner(logger, cfg.ProcessTimeout))
	if err != nil {
		closeDB()
		return nil, nil, err
	}

	raw := make([]byte, 16)
	if _, err := rand.Read(raw); err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("generate session key: %w", err)
	}
	key := hex.EncodeToString(raw)

	srv := api.NewServer(logger, api.Deps{
		Backups: services.Backup,
		Authn:   mw.StaticKeys([]string{key}),
	})
	cleanup := func() {
		srv.Close()
		closeDB()
	}
	return backupctl.NewLocalClient(srv, key), cleanup, nil
}
