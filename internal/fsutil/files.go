package fsutil

import (
	// #nosec G501 -- the digest is only a cache-busting fingerprint
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
)

// HashLength is the number of hex characters HashFile returns.
const HashLength = 8

// CreateDirectory creates path and any missing parents.
func CreateDirectory(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fsError("mkdir", path, err)
	}
	return nil
}

// ReadFile reads the whole file at path.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- build inputs are user-selected paths
	if err != nil {
		return nil, fsError("read", path, err)
	}
	return data, nil
}

// WriteFile writes data to path, creating parent directories first.
func WriteFile(path string, data []byte) error {
	if err := CreateDirectory(filepath.Dir(path)); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fsError("write", path, err)
	}
	return nil
}

// RemoveTree removes path. Directories require recursive unless empty. With
// force set a missing path is not an error.
func RemoveTree(path string, recursive, force bool) error {
	if _, err := os.Lstat(path); err != nil {
		if force && os.IsNotExist(err) {
			return nil
		}
		return fsError("remove", path, err)
	}

	var err error
	if recursive {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		if force && os.IsNotExist(err) {
			return nil
		}
		return fsError("remove", path, err)
	}
	return nil
}

// RemoveTrees removes each path in turn and reports the first failure. Every
// path is attempted.
func RemoveTrees(paths []string, recursive, force bool) error {
	var first error
	for _, p := range paths {
		if err := RemoveTree(p, recursive, force); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// HashFile returns the first HashLength hex characters of the MD5 digest of
// the file at path. The file is streamed, never loaded whole.
func HashFile(path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 -- hashing build outputs
	if err != nil {
		return "", fsError("open", path, err)
	}
	defer func() { _ = f.Close() }()

	h := md5.New() // #nosec G401
	if _, err := io.Copy(h, f); err != nil {
		return "", fsError("hash", path, err)
	}
	return hex.EncodeToString(h.Sum(nil))[:HashLength], nil
}

// Exists reports whether path exists. Errors other than not-exist count as
// existing so callers fail later with a classified error.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !os.IsNotExist(err)
}

// Rename moves src to dst, replacing dst if it exists.
func Rename(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		return fsError("rename", src, err)
	}
	return nil
}
