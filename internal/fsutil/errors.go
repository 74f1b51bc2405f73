// Package fsutil holds the filesystem primitives the build pipeline is built on:
// walking, recursive copy, removal and content hashing.
//
// Every failure leaves this package as a *errors.ClassifiedError in
// CategoryFileSystem and is logged exactly once, at the point where the native
// error is converted. Callers propagate these errors without logging them again.
package fsutil

import (
	"log/slog"

	foundationerrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegen/internal/logfields"
)

// fsError converts a native error into a classified filesystem error and logs it.
func fsError(op, path string, err error) error {
	slog.Error("Filesystem operation failed",
		logfields.Op(op),
		logfields.Path(path),
		logfields.Error(err))
	return foundationerrors.WrapError(err, foundationerrors.CategoryFileSystem, op+" "+path).
		WithContext("op", op).
		WithContext("path", path).
		Build()
}

// IsFSError reports whether err carries a filesystem classification.
func IsFSError(err error) bool {
	c, ok := foundationerrors.AsClassified(err)
	return ok && c.Category() == foundationerrors.CategoryFileSystem
}

// Wrap converts a native error from an operation outside this package into the
// same classified, logged form. A nil err yields nil.
func Wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}
	return fsError(op, path, err)
}
