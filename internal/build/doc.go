// Package build runs the static site build.
//
// Builder.BuildSite is the single full-build entry point used by the CLI and
// the dev server. It cleans the output directory and runs the build stages in
// ordered phases. Stages within a phase run concurrently; every stage runs even
// when an earlier one failed, and all failures are reported together as a
// *BuildError. RenderStyles and RenderPages are the incremental entry points the
// dev server uses between full builds.
package build
