package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edvin/backupd/internal/lock"
	"github.com/edvin/backupd/internal/model"
	"github.com/edvin/backupd/internal/snapshot"
)

func writeTestManifest(t *testing.T, dir, id string) {
	t.Helper()
	require.NoError(t, snapshot.WriteManifest(dir, &model.Manifest{
		BackupID:    id,
		CreatedAt:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Engine:      model.EnginePostgres,
		MissingDirs: []string{},
		Result:      model.BackupResult{OK: true, Errors: []string{}},
	}))
}

func TestBackupService_List_MissingRoot(t *testing.T) {
	f := newFixture(t, lock.NewMemory(), testDatabaseURL)

	list, err := f.svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, f.cfg.BackupRoot, list.Root)
	assert.NotNil(t, list.Items)
	assert.Empty(t, list.Items)
}

func TestBackupService_List_SortedNewestFirst(t *testing.T) {
	f := newFixture(t, lock.NewMemory(), testDatabaseURL)
	root := f.cfg.BackupRoot

	ids := []string{
		"2024-01-01_00-00-00__aaaa",
		"2025-06-30_23-59-59__bbbb",
		"2024-12-31_12-00-00__cccc",
	}
	for _, id := range ids {
		writeTestManifest(t, makeSnapshot(t, root, id, true, nil), id)
	}
	// Not listed: invalid names and plain files.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "tmp"), 0o755))
	writeTestFile(t, filepath.Join(root, "2024-02-02_00-00-00__file"), "x")

	list, err := f.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list.Items, 3)

	assert.Equal(t, "2025-06-30_23-59-59__bbbb", list.Items[0].BackupID)
	assert.Equal(t, "2024-12-31_12-00-00__cccc", list.Items[1].BackupID)
	assert.Equal(t, "2024-01-01_00-00-00__aaaa", list.Items[2].BackupID)
	for _, item := range list.Items {
		require.NotNil(t, item.Manifest)
		assert.Equal(t, item.BackupID, item.Manifest.BackupID)
	}
}

func TestBackupService_List_UnreadableManifestIsNil(t *testing.T) {
	f := newFixture(t, lock.NewMemory(), testDatabaseURL)
	root := f.cfg.BackupRoot

	corrupt := makeSnapshot(t, root, "2024-01-02_00-00-00__corr", true, nil)
	writeTestFile(t, filepath.Join(corrupt, snapshot.ManifestFile), "{not json")
	makeSnapshot(t, root, "2024-01-01_00-00-00__none", true, nil)

	list, err := f.svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.Nil(t, list.Items[0].Manifest)
	assert.Nil(t, list.Items[1].Manifest)
}

func TestBackupService_List_IncludesCreatedBackups(t *testing.T) {
	f := newFixture(t, lock.NewMemory(), testDatabaseURL)
	ctx := context.Background()

	m, err := f.svc.Create(ctx, CreateBackupInput{})
	require.NoError(t, err)

	list, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, m.BackupID, list.Items[0].BackupID)
	require.NotNil(t, list.Items[0].Manifest)
	assert.True(t, list.Items[0].Manifest.Result.OK)
}

func TestBackupService_Get(t *testing.T) {
	f := newFixture(t, lock.NewMemory(), testDatabaseURL)
	ctx := context.Background()
	writeTestManifest(t, makeSnapshot(t, f.cfg.BackupRoot, testBackupID, true, nil), testBackupID)

	m, err := f.svc.Get(ctx, testBackupID)
	require.NoError(t, err)
	assert.Equal(t, testBackupID, m.BackupID)

	_, err = f.svc.Get(ctx, "2030-01-01_00-00-00__gone")
	requireCode(t, err, model.ErrNotFound)

	_, err = f.svc.Get(ctx, "../../etc/passwd")
	requireCode(t, err, model.ErrInvalidBackupID)
}
