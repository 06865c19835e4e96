package model

// Per-item filesystem status reported in backup and restore logs.
const (
	DirOK      = "OK"
	DirMissing = "MISSING"
	DirFailed  = "FAILED"
)

// Error codes surfaced to operators by the backup and restore endpoints.
const (
	ErrUnauthenticated    = "UNAUTH"
	ErrForbidden          = "FORBIDDEN"
	ErrInvalidJSON        = "INVALID_JSON"
	ErrRestoreInProgress  = "RESTORE_IN_PROGRESS"
	ErrMissingBackupID    = "MISSING_BACKUP_ID"
	ErrConfirmMismatch    = "CONFIRM_MISMATCH"
	ErrInvalidBackupID    = "INVALID_BACKUP_ID"
	ErrMissingDBDump      = "MISSING_DB_DUMP"
	ErrMissingDatabaseURL = "MISSING_DATABASE_URL"
	ErrPgDumpFailed       = "PG_DUMP_FAILED"
	ErrPgRestoreFailed    = "PG_RESTORE_FAILED"
	ErrBackupFailed       = "BACKUP_FAILED"
	ErrTimeout            = "TIMEOUT"
	ErrNotFound           = "NOT_FOUND"
	ErrLockUnavailable    = "LOCK_UNAVAILABLE"
	ErrInvalidRequest     = "INVALID_REQUEST"
	ErrInternal           = "INTERNAL_ERROR"
)
