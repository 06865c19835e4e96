package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/backupd/internal/config"
	"github.com/edvin/backupd/internal/metrics"
	"github.com/edvin/backupd/internal/model"
	"github.com/edvin/backupd/internal/pgtool"
	"github.com/edvin/backupd/internal/platform"
	"github.com/edvin/backupd/internal/snapshot"
)

const releaseTimeout = 10 * time.Second

// RestoreInput names the snapshot to restore. ConfirmText must be exactly
// "RESTORE <backupId>".
type RestoreInput struct {
	BackupID    string `json:"backupId"`
	ConfirmText string `json:"confirmText"`
}

// ConfirmText returns the confirmation a caller must echo to restore id.
func ConfirmText(id string) string {
	return "RESTORE " + id
}

// Restore replays a snapshot's dump into the datastore and swaps its data
// directories into place. Validation happens before the lock is taken; the
// lock is released on every path once acquired. Logs are returned with
// PG_RESTORE_FAILED and TIMEOUT errors.
func (s *BackupService) Restore(ctx context.Context, in RestoreInput) (*model.RestoreLogs, error) {
	start := time.Now()
	logs, err := s.restore(ctx, in)
	metrics.ObserveRestore(ErrorCode(err), time.Since(start))
	return logs, err
}

func (s *BackupService) restore(ctx context.Context, in RestoreInput) (*model.RestoreLogs, error) {
	held, err := s.lock.Held(ctx)
	if err != nil {
		return nil, codeError(model.ErrLockUnavailable, err)
	}
	if held {
		return nil, codeError(model.ErrRestoreInProgress, nil)
	}

	if in.BackupID == "" {
		return nil, codeError(model.ErrMissingBackupID, nil)
	}
	if in.ConfirmText != ConfirmText(in.BackupID) {
		return nil, codeError(model.ErrConfirmMismatch, nil)
	}
	backupDir, err := snapshot.SafeJoin(s.root, in.BackupID)
	if err != nil {
		return nil, codeError(model.ErrInvalidBackupID, err)
	}
	dumpPath := filepath.Join(backupDir, "db", dumpFile)
	if fi, err := os.Stat(dumpPath); err != nil || !fi.Mode().IsRegular() {
		return nil, codeError(model.ErrMissingDBDump, err)
	}

	acquired, err := s.lock.TryAcquire(ctx)
	if err != nil {
		return nil, codeError(model.ErrLockUnavailable, err)
	}
	if !acquired {
		return nil, codeError(model.ErrRestoreInProgress, nil)
	}

	log := s.logger.With().Str("backup_id", in.BackupID).Str("op_id", platform.NewID()).Logger()
	metrics.SetRestoreInProgress(true)
	defer func() {
		metrics.SetRestoreInProgress(false)
		// A cancelled request must still free the lease.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := s.lock.Release(releaseCtx); err != nil {
			log.Error().Err(err).Msg("release restore lock")
		}
	}()

	log.Info().Msg("restore started")

	logs := &model.RestoreLogs{
		FS:      make(map[string]string, len(s.dataDirs)),
		Renames: make(map[string]*string, len(s.dataDirs)),
	}

	// The tool runs to completion even if the caller goes away; the runner
	// deadline is the only bound.
	_, res, err := s.restorer.Restore(context.WithoutCancel(ctx), dumpPath)
	if errors.Is(err, pgtool.ErrMissingDatabaseURL) {
		return nil, codeError(model.ErrMissingDatabaseURL, nil)
	}
	if err != nil {
		return nil, codeError(model.ErrPgRestoreFailed, err)
	}
	logs.DB = commandLog(res)
	if code := resultCode(res, model.ErrPgRestoreFailed); code != "" {
		log.Error().Int("code", res.Code).Bool("timed_out", res.TimedOut).Msg("restore tool failed, data directories untouched")
		return logs, codeError(code, nil)
	}

	stamp := s.now().UTC().Format(platform.BackupIDLayout)
	for _, d := range s.dataDirs {
		status, renamed := s.swapDataDir(log, d, filepath.Join(backupDir, "fs", d.Name), stamp)
		logs.FS[d.Name] = status
		logs.Renames[d.Name] = renamed
	}

	log.Info().Interface("fs", logs.FS).Msg("restore finished")
	return logs, nil
}

// swapDataDir stages the snapshot copy next to the live directory, moves the
// live tree aside and renames the staged tree into place. The live path is
// only ever missing between the two renames.
func (s *BackupService) swapDataDir(log zerolog.Logger, d config.DataDir, src, stamp string) (string, *string) {
	log = log.With().Str("dir", d.Name).Logger()
	live := d.Path
	staging := live + ".restore-" + stamp

	inSnapshot := snapshot.IsDir(src)
	if inSnapshot {
		if err := os.MkdirAll(filepath.Dir(live), 0o755); err != nil {
			log.Error().Err(err).Msg("create data directory parent")
			return model.DirFailed, nil
		}
		if err := snapshot.CopyDir(src, staging); err != nil {
			log.Error().Err(err).Msg("stage data directory")
			os.RemoveAll(staging)
			return model.DirFailed, nil
		}
	}

	renamed := moveAside(log, live, stamp)

	if !inSnapshot {
		log.Info().Msg("data directory absent from snapshot")
		return model.DirMissing, renamed
	}

	if err := os.Rename(staging, live); err != nil {
		// The live tree could not be moved aside; merge into it instead.
		log.Warn().Err(err).Msg("atomic swap failed, merging into live directory")
		mergeErr := snapshot.CopyDir(staging, live)
		os.RemoveAll(staging)
		if mergeErr != nil {
			log.Error().Err(mergeErr).Msg("merge data directory")
			return model.DirFailed, renamed
		}
		return model.DirOK, renamed
	}

	if s.removeOld && renamed != nil {
		if err := os.RemoveAll(*renamed); err != nil {
			log.Warn().Err(err).Str("path", *renamed).Msg("remove previous data directory")
		}
	}
	return model.DirOK, renamed
}

// moveAside renames a live directory to <live>.old-<stamp>. Returns nil when
// nothing was moved.
func moveAside(log zerolog.Logger, live, stamp string) *string {
	fi, err := os.Lstat(live)
	if err != nil || !fi.IsDir() {
		return nil
	}
	old := live + ".old-" + stamp
	if err := os.Rename(live, old); err != nil {
		log.Warn().Err(err).Msg("move live directory aside")
		return nil
	}
	return &old
}
