// Package errors provides the classified error primitives used across sitegen.
//
// Leaf packages convert native failures (I/O, rendering, compression) into a
// ClassifiedError exactly once, at the point where the failure is first seen.
// Callers above them propagate the value unchanged; only the build orchestrator
// aggregates stage failures into its own BuildError type.
//
// Key features:
//   - ErrorCategory: broad classification (config, filesystem, render, build, ...)
//   - ErrorSeverity: impact level (fatal, error, warning, info)
//   - RetryStrategy: retry behavior hint
//   - ErrorBuilder: fluent construction with structured context
//   - CLIErrorAdapter: exit codes and user-facing formatting
//
// Example usage:
//
//	err := errors.WrapError(cause, errors.CategoryFileSystem, "copy file").
//		WithContext("path", src).
//		Build()
package errors
