package core

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/edvin/backupd/internal/model"
	"github.com/edvin/backupd/internal/snapshot"
)

const manifestReadConcurrency = 8

// List returns every snapshot under the backup root, newest first. Directory
// names that are not valid backup IDs are skipped; unreadable manifests are
// reported as nil. A missing root yields an empty list.
func (s *BackupService) List(ctx context.Context) (*model.BackupList, error) {
	list := &model.BackupList{Root: s.root, Items: []model.BackupListItem{}}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn().Err(err).Str("root", s.root).Msg("read backup root")
		}
		return list, nil
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir() && snapshot.ValidID(e.Name()) {
			dirs = append(dirs, e.Name())
		}
	}
	// Fixed-width timestamp prefixes make name order chronological.
	sort.Sort(sort.Reverse(sort.StringSlice(dirs)))

	items := make([]model.BackupListItem, len(dirs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(manifestReadConcurrency)
	for i, id := range dirs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			items[i] = model.BackupListItem{BackupID: id}
			dir, err := snapshot.SafeJoin(s.root, id)
			if err != nil {
				return nil
			}
			if m, err := snapshot.ReadManifest(dir); err == nil {
				items[i].Manifest = m
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	list.Items = items
	return list, nil
}

// Get returns the manifest of one snapshot.
func (s *BackupService) Get(ctx context.Context, backupID string) (*model.Manifest, error) {
	dir, err := snapshot.SafeJoin(s.root, backupID)
	if err != nil {
		return nil, codeError(model.ErrInvalidBackupID, err)
	}
	m, err := snapshot.ReadManifest(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, codeError(model.ErrNotFound, err)
		}
		return nil, codeError(model.ErrBackupFailed, err)
	}
	return m, nil
}

// RestoreStatus reports whether a restore currently holds the lock.
type RestoreStatus struct {
	RestoreInProgress bool `json:"restoreInProgress"`
}

func (s *BackupService) Status(ctx context.Context) (*RestoreStatus, error) {
	held, err := s.lock.Held(ctx)
	if err != nil {
		return nil, codeError(model.ErrLockUnavailable, err)
	}
	return &RestoreStatus{RestoreInProgress: held}, nil
}
