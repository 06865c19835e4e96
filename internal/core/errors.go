package core

import (
	"errors"
	"fmt"

	"github.com/edvin/backupd/internal/model"
)

// BackupError carries the operator-facing error code of a failed backup or
// restore. Err, when set, is the underlying cause and is only logged.
type BackupError struct {
	Code string
	Err  error
}

func (e *BackupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *BackupError) Unwrap() error {
	return e.Err
}

func codeError(code string, err error) *BackupError {
	return &BackupError{Code: code, Err: err}
}

// ErrorCode returns the code carried by err, "" for nil and BACKUP_FAILED
// for errors that carry none.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var be *BackupError
	if errors.As(err, &be) {
		return be.Code
	}
	return model.ErrBackupFailed
}
