package core

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/backupd/internal/config"
	"github.com/edvin/backupd/internal/lock"
	"github.com/edvin/backupd/internal/pgtool"
)

func servicesConfig() *config.Config {
	return &config.Config{
		DatabaseURL:        "postgres://app@db/app",
		BackupRoot:         "/backups",
		RestoreLockBackend: "memory",
		APIKeyStore:        "static",
	}
}

func TestNewServices_MemoryLockWithoutDB(t *testing.T) {
	svcs, err := NewServices(zerolog.Nop(), servicesConfig(), nil, &spyExecutor{})
	require.NoError(t, err)

	require.NotNil(t, svcs.Backup)
	assert.Nil(t, svcs.APIKey)
	assert.IsType(t, &lock.Memory{}, svcs.Lock)
	assert.Equal(t, "/backups", svcs.Backup.Root())
}

func TestNewServices_PostgresBackends(t *testing.T) {
	cfg := servicesConfig()
	cfg.RestoreLockBackend = "postgres"
	cfg.APIKeyStore = "postgres"

	svcs, err := NewServices(zerolog.Nop(), cfg, &mockDB{}, &spyExecutor{})
	require.NoError(t, err)

	assert.IsType(t, &lock.PostgresLease{}, svcs.Lock)
	assert.NotNil(t, svcs.APIKey)
}

func TestNewServices_PostgresBackendsNeedDB(t *testing.T) {
	cfg := servicesConfig()
	cfg.RestoreLockBackend = "postgres"
	_, err := NewServices(zerolog.Nop(), cfg, nil, &spyExecutor{})
	assert.ErrorIs(t, err, ErrStateDBRequired)

	cfg = servicesConfig()
	cfg.APIKeyStore = "postgres"
	_, err = NewServices(zerolog.Nop(), cfg, nil, &spyExecutor{})
	assert.ErrorIs(t, err, ErrStateDBRequired)
}

func TestNewServices_SharedStateDBExcludedFromDumps(t *testing.T) {
	cfg := servicesConfig()
	cfg.StateDatabaseURL = cfg.DatabaseURL

	svcs, err := NewServices(zerolog.Nop(), cfg, &mockDB{}, &spyExecutor{})
	require.NoError(t, err)

	engine, ok := svcs.Backup.dumper.(*pgtool.Postgres)
	require.True(t, ok)
	cmd, err := engine.DumpCommand("/b/db.dump")
	require.NoError(t, err)
	assert.Contains(t, cmd.Args, "--exclude-schema")
}
