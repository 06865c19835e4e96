package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/backupd/internal/config"
	"github.com/edvin/backupd/internal/lock"
	"github.com/edvin/backupd/internal/metrics"
	"github.com/edvin/backupd/internal/model"
	"github.com/edvin/backupd/internal/pgtool"
	"github.com/edvin/backupd/internal/platform"
	"github.com/edvin/backupd/internal/process"
	"github.com/edvin/backupd/internal/snapshot"
)

const (
	dumpFile      = "db.dump"
	envBackupFile = ".env.backup"
	envSampleFile = ".env.sample"
	envLogKey     = "env"
)

// CreateBackupInput is the request to snapshot the datastore and data directories.
type CreateBackupInput struct {
	IncludeEnv bool   `json:"includeEnv"`
	CreatedBy  string `json:"-"`
}

// BackupService creates, lists and restores backup snapshots under one
// backup root. Backups and restores are synchronous.
type BackupService struct {
	logger     zerolog.Logger
	root       string
	dataDirs   []config.DataDir
	envFile    string
	appVersion string
	removeOld  bool

	dumper   pgtool.DumpEngine
	restorer pgtool.RestoreEngine
	lock     lock.Locker
	now      func() time.Time
}

// NewBackupService creates a BackupService. The lock is shared by every
// caller of this instance and must be the only restore lock in the process.
func NewBackupService(logger zerolog.Logger, cfg *config.Config, dumper pgtool.DumpEngine, restorer pgtool.RestoreEngine, locker lock.Locker) *BackupService {
	return &BackupService{
		logger:     logger.With().Str("component", "backup-service").Logger(),
		root:       cfg.BackupRoot,
		dataDirs:   cfg.DataDirs,
		envFile:    cfg.EnvFile,
		appVersion: cfg.AppVersion,
		removeOld:  cfg.RemoveOldAfterRestore,
		dumper:     dumper,
		restorer:   restorer,
		lock:       locker,
		now:        time.Now,
	}
}

// Root returns the backup root directory.
func (s *BackupService) Root() string {
	return s.root
}

// Create writes a new snapshot. Every step is attempted even when an earlier
// one failed, and the manifest is always written last. A non-nil manifest
// is returned alongside dump errors so callers can report partial results.
func (s *BackupService) Create(ctx context.Context, in CreateBackupInput) (*model.Manifest, error) {
	start := time.Now()
	m, err := s.create(ctx, in)
	metrics.ObserveBackup(ErrorCode(err), time.Since(start))
	return m, err
}

func (s *BackupService) create(ctx context.Context, in CreateBackupInput) (*model.Manifest, error) {
	held, err := s.lock.Held(ctx)
	if err != nil {
		return nil, codeError(model.ErrLockUnavailable, err)
	}
	if held {
		return nil, codeError(model.ErrRestoreInProgress, nil)
	}

	now := s.now()
	backupID := platform.NewBackupID(now)
	backupDir, err := snapshot.SafeJoin(s.root, backupID)
	if err != nil {
		return nil, codeError(model.ErrBackupFailed, err)
	}
	dbDir := filepath.Join(backupDir, "db")
	fsDir := filepath.Join(backupDir, "fs")
	for _, dir := range []string{dbDir, fsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, codeError(model.ErrBackupFailed, fmt.Errorf("create %s: %w", dir, err))
		}
	}

	log := s.logger.With().Str("backup_id", backupID).Str("op_id", platform.NewID()).Logger()
	log.Info().Bool("include_env", in.IncludeEnv).Str("created_by", in.CreatedBy).Msg("backup started")

	createdBy := in.CreatedBy
	if createdBy == "" {
		createdBy = "unknown"
	}
	m := &model.Manifest{
		BackupID:    backupID,
		BackupRoot:  s.root,
		CreatedAt:   now.UTC(),
		CreatedBy:   createdBy,
		IncludesEnv: in.IncludeEnv,
		Engine:      s.dumper.Engine(),
		Sizes:       model.Sizes{Dirs: make(map[string]int64, len(s.dataDirs))},
		MissingDirs: []string{},
		Result:      model.BackupResult{Errors: []string{}},
		Logs:        model.BackupLogs{FS: make(map[string]string, len(s.dataDirs)+1)},
	}
	if s.appVersion != "" {
		v := s.appVersion
		m.AppVersion = &v
	}

	dumpPath := filepath.Join(dbDir, dumpFile)
	info, res, err := s.dumper.Dump(context.WithoutCancel(ctx), dumpPath)
	m.DumpCommand = info
	switch {
	case errors.Is(err, pgtool.ErrMissingDatabaseURL):
		m.Result.Errors = append(m.Result.Errors, model.ErrMissingDatabaseURL)
		log.Warn().Msg("no database URL configured, dump skipped")
	case err != nil:
		m.Result.Errors = append(m.Result.Errors, model.ErrPgDumpFailed)
		log.Error().Err(err).Msg("dump could not start")
	default:
		m.Logs.DB = commandLog(res)
		if code := resultCode(res, model.ErrPgDumpFailed); code != "" {
			m.Result.Errors = append(m.Result.Errors, code)
			log.Error().Int("code", res.Code).Bool("timed_out", res.TimedOut).Msg("dump failed")
		}
	}

	for _, d := range s.dataDirs {
		status := copyDataDir(log, d, filepath.Join(fsDir, d.Name))
		m.Logs.FS[d.Name] = status
		if status == model.DirMissing {
			m.MissingDirs = append(m.MissingDirs, "data/"+d.Name)
		}
	}

	if in.IncludeEnv {
		m.Env, m.Logs.FS[envLogKey] = s.backupEnv(log, filepath.Join(fsDir, envLogKey))
	}

	m.Sizes.DBDumpBytes = snapshot.SizeEstimate(dumpPath)
	for _, d := range s.dataDirs {
		m.Sizes.Dirs[d.Name] = snapshot.SizeEstimate(filepath.Join(fsDir, d.Name))
	}

	m.Result.OK = len(m.Result.Errors) == 0
	if err := snapshot.WriteManifest(backupDir, m); err != nil {
		log.Error().Err(err).Msg("manifest write failed")
		return m, codeError(model.ErrBackupFailed, err)
	}

	if !m.Result.OK {
		log.Warn().Strs("errors", m.Result.Errors).Msg("backup finished with errors")
		return m, codeError(m.Result.Errors[0], nil)
	}
	log.Info().Int64("db_dump_bytes", m.Sizes.DBDumpBytes).Msg("backup finished")
	return m, nil
}

func copyDataDir(log zerolog.Logger, d config.DataDir, dest string) string {
	if !snapshot.IsDir(d.Path) {
		log.Info().Str("dir", d.Name).Str("path", d.Path).Msg("data directory missing")
		return model.DirMissing
	}
	if err := snapshot.CopyDir(d.Path, dest); err != nil {
		log.Error().Err(err).Str("dir", d.Name).Msg("copy data directory")
		return model.DirFailed
	}
	return model.DirOK
}

// backupEnv copies the live env file without overwriting and writes a masked
// sample next to it. Failures only affect this sub-step.
func (s *BackupService) backupEnv(log zerolog.Logger, envDir string) (*model.EnvInfo, string) {
	info := &model.EnvInfo{}

	data, err := os.ReadFile(s.envFile)
	if errors.Is(err, fs.ErrNotExist) {
		log.Info().Str("path", s.envFile).Msg("env file missing")
		return info, model.DirMissing
	}
	if err != nil {
		log.Error().Err(err).Msg("read env file")
		return info, model.DirFailed
	}

	if err := os.MkdirAll(envDir, 0o700); err != nil {
		log.Error().Err(err).Msg("create env backup dir")
		return info, model.DirFailed
	}

	written, err := snapshot.CopyFileExclusive(s.envFile, filepath.Join(envDir, envBackupFile))
	if err != nil {
		log.Error().Err(err).Msg("copy env file")
		return info, model.DirFailed
	}
	info.BackupPath = &written

	samplePath := filepath.Join(envDir, envSampleFile)
	if err := os.WriteFile(samplePath, []byte(snapshot.MaskEnv(string(data))), 0o644); err != nil {
		log.Error().Err(err).Msg("write env sample")
		return info, model.DirFailed
	}
	info.SamplePath = &samplePath

	return info, model.DirOK
}

func commandLog(res process.Result) *model.CommandLog {
	return &model.CommandLog{
		Code:       res.Code,
		Stdout:     process.Summarize(res.Stdout, process.DefaultLogLimit),
		Stderr:     process.Summarize(res.Stderr, process.DefaultLogLimit),
		DurationMs: res.DurationMs,
		TimedOut:   res.TimedOut,
	}
}

// resultCode maps a finished process to TIMEOUT, failCode or "" on success.
func resultCode(res process.Result, failCode string) string {
	switch {
	case res.TimedOut:
		return model.ErrTimeout
	case res.Code != 0:
		return failCode
	}
	return ""
}
