package core

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/edvin/backupd/internal/config"
	"github.com/edvin/backupd/internal/db"
	"github.com/edvin/backupd/internal/lock"
	"github.com/edvin/backupd/internal/pgtool"
	"github.com/edvin/backupd/internal/process"
)

// ErrStateDBRequired is returned when a configured backend needs the state
// database but no connection was supplied.
var ErrStateDBRequired = errors.New("state database connection required")

type Services struct {
	Backup *BackupService
	// APIKey is nil unless API_KEY_STORE=postgres.
	APIKey *APIKeyService
	Lock   lock.Locker
}

// NewServices assembles the services for cfg. stateDB may be nil when neither
// the lock nor the key store uses Postgres.
func NewServices(logger zerolog.Logger, cfg *config.Config, stateDB DB, exec process.Executor) (*Services, error) {
	var locker lock.Locker
	switch cfg.RestoreLockBackend {
	case "postgres":
		if stateDB == nil {
			return nil, fmt.Errorf("restore lock backend postgres: %w", ErrStateDBRequired)
		}
		locker = lock.NewPostgresLease(stateDB, lock.DefaultLeaseName, cfg.RestoreLeaseTTL)
	default:
		locker = lock.NewMemory()
	}

	var apiKeys *APIKeyService
	if cfg.APIKeyStore == "postgres" {
		if stateDB == nil {
			return nil, fmt.Errorf("api key store postgres: %w", ErrStateDBRequired)
		}
		apiKeys = NewAPIKeyService(stateDB)
	}

	engine := pgtool.NewPostgres(exec, cfg.DatabaseURL, cfg.PgDumpBin, cfg.PgRestoreBin)
	if stateDB != nil && cfg.SharedStateDB() {
		engine.ExcludeSchema(db.Schema)
	}

	return &Services{
		Backup: NewBackupService(logger, cfg, engine, engine, locker),
		APIKey: apiKeys,
		Lock:   locker,
	}, nil
}
