package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/backupd/internal/model"
)

func TestWriteReadManifest(t *testing.T) {
	dir := t.TempDir()
	version := "1.2.3"
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m := &model.Manifest{
		BackupID:    "2024-01-01_00-00-00__abcd",
		BackupRoot:  "/backups",
		CreatedAt:   created,
		CreatedBy:   "admin@example.com",
		AppVersion:  &version,
		Engine:      model.EnginePostgres,
		Sizes:       model.Sizes{DBDumpBytes: 42, Dirs: map[string]int64{"globalia": 7, "uploads": 0}},
		MissingDirs: []string{"data/uploads"},
		DumpCommand: model.CommandInfo{Bin: "pg_dump", Args: []string{"-Fc"}},
		Result:      model.BackupResult{OK: true, Errors: []string{}},
		Logs: model.BackupLogs{
			DB: &model.CommandLog{Code: 0, DurationMs: 12},
			FS: map[string]string{"globalia": model.DirOK, "uploads": model.DirMissing},
		},
	}

	require.NoError(t, WriteManifest(dir, m))

	raw, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\n  \"backupId\": \"2024-01-01_00-00-00__abcd\"")
	assert.Contains(t, string(raw), `"globaliaBytes"`)

	got, err := ReadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, m.BackupID, got.BackupID)
	assert.True(t, created.Equal(got.CreatedAt))
	assert.Equal(t, "1.2.3", *got.AppVersion)
	assert.Equal(t, m.Sizes, got.Sizes)
	assert.Equal(t, m.MissingDirs, got.MissingDirs)
	assert.Nil(t, got.Env)
	assert.Equal(t, m.Logs.FS, got.Logs.FS)

	leftovers, err := filepath.Glob(filepath.Join(dir, ".manifest-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestReadManifest_Missing(t *testing.T) {
	_, err := ReadManifest(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read manifest")
}

func TestReadManifest_Corrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFile), []byte("{not json"), 0o644))

	_, err := ReadManifest(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse manifest")
}

func TestWriteManifest_MissingDir(t *testing.T) {
	err := WriteManifest(filepath.Join(t.TempDir(), "gone"), &model.Manifest{})
	require.Error(t, err)
}
