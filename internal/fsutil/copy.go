package fsutil

import (
	"io"
	"os"
	"path/filepath"
)

// CopyTree copies src into dst, creating dst and its parents as needed.
// Existing files are overwritten; existing directories are reused. Nested
// directories are copied only when recurse is set. A failure stops the copy
// and leaves already copied entries in place.
func CopyTree(src, dst string, recurse bool) error {
	if err := CreateDirectory(dst); err != nil {
		return err
	}
	entries, err := os.ReadDir(src)
	if err != nil {
		return fsError("readdir", src, err)
	}
	for _, entry := range entries {
		from := filepath.Join(src, entry.Name())
		to := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if !recurse {
				continue
			}
			if err := CopyTree(from, to, recurse); err != nil {
				return err
			}
			continue
		}
		if err := CopyFile(from, to, true); err != nil {
			return err
		}
	}
	return nil
}

// CopyFile copies a single regular file, preserving its permission bits. With
// overwrite unset an existing dst is an error.
func CopyFile(src, dst string, overwrite bool) error {
	in, err := os.Open(src)
	if err != nil {
		return fsError("open", src, err)
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return fsError("stat", src, err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	out, err := os.OpenFile(dst, flags, info.Mode().Perm())
	if err != nil {
		return fsError("create", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fsError("copy", dst, err)
	}
	if err := out.Close(); err != nil {
		return fsError("close", dst, err)
	}
	return nil
}
