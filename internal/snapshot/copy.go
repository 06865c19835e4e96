package snapshot

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
)

var (
	ErrNotDir    = errors.New("SRC_NOT_DIR")
	ErrCopyLimit = errors.New("COPYFILE_LIMIT")
)

const maxCopyAttempts = 9999

// CopyDir copies the tree at src into dest, creating dest if needed. Regular
// files and directories are reproduced; symlinks and special files are
// skipped, never followed.
func CopyDir(src, dest string) error {
	st, err := os.Lstat(src)
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}
	if !st.IsDir() {
		return ErrNotDir
	}
	if err := os.MkdirAll(dest, st.Mode().Perm()|0o700); err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("read dir %s: %w", src, err)
	}
	for _, e := range entries {
		from := filepath.Join(src, e.Name())
		to := filepath.Join(dest, e.Name())

		switch {
		case e.IsDir():
			if err := CopyDir(from, to); err != nil {
				return err
			}
		case e.Type().IsRegular():
			if err := copyFile(from, to, os.O_TRUNC); err != nil {
				return err
			}
		default:
			// symlink, socket, device, fifo
		}
	}
	return nil
}

// CopyFileExclusive copies src to dest without ever overwriting. When dest
// exists it tries dest-1, dest-2, ... and returns the path actually written.
func CopyFileExclusive(src, dest string) (string, error) {
	err := copyFile(src, dest, os.O_EXCL)
	if err == nil {
		return dest, nil
	}
	if !errors.Is(err, fs.ErrExist) {
		return "", err
	}

	for i := 1; i < maxCopyAttempts; i++ {
		next := dest + "-" + strconv.Itoa(i)
		err := copyFile(src, next, os.O_EXCL)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
	}
	return "", ErrCopyLimit
}

func copyFile(src, dest string, mode int) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	st, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|mode, st.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", dest, err)
	}
	return nil
}

// SizeEstimate returns the size of a regular file, or the summed size of all
// regular files below a directory. Any error yields 0; symlinks count as 0.
func SizeEstimate(path string) int64 {
	st, err := os.Lstat(path)
	if err != nil {
		return 0
	}
	if st.Mode().IsRegular() {
		return st.Size()
	}
	if !st.IsDir() {
		return 0
	}

	var total int64
	entries, err := os.ReadDir(path)
	if err != nil {
		return 0
	}
	for _, e := range entries {
		p := filepath.Join(path, e.Name())
		switch {
		case e.IsDir():
			total += SizeEstimate(p)
		case e.Type().IsRegular():
			info, err := e.Info()
			if err != nil {
				return 0
			}
			total += info.Size()
		}
	}
	return total
}

// IsDir reports whether path exists and is a directory (not a symlink to one).
func IsDir(path string) bool {
	st, err := os.Lstat(path)
	return err == nil && st.IsDir()
}
