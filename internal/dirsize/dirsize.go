// Package dirsize computes the apparent size of a directory tree.
package dirsize

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"golang.org/x/sys/unix"
)

type inode struct {
	dev uint64
	ino uint64
}

// Size returns the total apparent size in bytes of every entry below root,
// root included. Symlinks are not followed and hard-linked files are
// counted once. Entries that vanish during the walk are skipped.
func Size(root string) (int64, error) {
	seen := make(map[inode]struct{})
	var total int64

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path != root {
				return nil
			}
			return err
		}

		var st unix.Stat_t
		if err := unix.Lstat(path, &st); err != nil {
			if errors.Is(err, unix.ENOENT) && path != root {
				return nil
			}
			return &fs.PathError{Op: "lstat", Path: path, Err: err}
		}

		key := inode{dev: uint64(st.Dev), ino: uint64(st.Ino)}
		if _, dup := seen[key]; dup {
			return nil
		}
		seen[key] = struct{}{}
		total += st.Size
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("measuring %s: %w", root, err)
	}
	return total, nil
}
