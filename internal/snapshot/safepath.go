// Package snapshot holds the filesystem side of backup snapshots: identifier
// validation, path confinement, tree copies, size estimates, env masking and
// manifest persistence.
package snapshot

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var backupIDRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2}__[A-Za-z0-9_-]{4,}$`)

var (
	ErrInvalidBackupID = errors.New("INVALID_BACKUP_ID")
	ErrPathTraversal   = errors.New("PATH_TRAVERSAL")
)

// ValidID reports whether id matches YYYY-MM-DD_HH-MM-SS__<suffix>.
func ValidID(id string) bool {
	return backupIDRe.MatchString(id)
}

// SafeJoin returns the absolute path of backupID under root. It must run
// before any filesystem access keyed by a caller-supplied identifier.
func SafeJoin(root, backupID string) (string, error) {
	if !ValidID(backupID) {
		return "", ErrInvalidBackupID
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve backup root: %w", err)
	}
	full := filepath.Join(absRoot, backupID)

	if full != absRoot && !strings.HasPrefix(full, absRoot+string(filepath.Separator)) {
		return "", ErrPathTraversal
	}
	return full, nil
}
