package build

import (
	"errors"
	"strings"

	ferrors "git.home.luguber.info/inful/sitegen/internal/foundation/errors"
)

// StageError is the failure of one named stage.
type StageError struct {
	Stage string
	Err   error
}

func (e StageError) Error() string {
	return e.Stage + ": " + e.Err.Error()
}

func (e StageError) Unwrap() error {
	return e.Err
}

// BuildError aggregates every stage failure of a build. Its message joins the
// messages of all failures in stage order.
type BuildError struct {
	Failures []StageError
}

var _ ferrors.Categorized = (*BuildError)(nil)

func (e *BuildError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.Error())
	}
	return "build failed: " + strings.Join(msgs, "; ")
}

// Unwrap exposes the stage causes to errors.Is and errors.As.
func (e *BuildError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Category reports CategoryBuild regardless of the stage causes.
func (e *BuildError) Category() ferrors.ErrorCategory {
	return ferrors.CategoryBuild
}

// Stages returns the names of the failed stages.
func (e *BuildError) Stages() []string {
	names := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		names = append(names, f.Stage)
	}
	return names
}

// AsBuildError unwraps err into a *BuildError.
func AsBuildError(err error) (*BuildError, bool) {
	var be *BuildError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
