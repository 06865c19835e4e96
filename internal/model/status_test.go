package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirStatusConstants(t *testing.T) {
	assert.Equal(t, "OK", DirOK)
	assert.Equal(t, "MISSING", DirMissing)
	assert.Equal(t, "FAILED", DirFailed)
}

func TestErrorCodesAreDistinct(t *testing.T) {
	codes := []string{
		ErrUnauthenticated, ErrForbidden, ErrInvalidJSON, ErrRestoreInProgress,
		ErrMissingBackupID, ErrConfirmMismatch, ErrInvalidBackupID, ErrMissingDBDump,
		ErrMissingDatabaseURL, ErrPgDumpFailed, ErrPgRestoreFailed, ErrBackupFailed,
		ErrTimeout, ErrNotFound, ErrLockUnavailable, ErrInvalidRequest, ErrInternal,
	}
	seen := map[string]bool{}
	for _, c := range codes {
		assert.False(t, seen[c], "duplicate code %s", c)
		seen[c] = true
	}
}
