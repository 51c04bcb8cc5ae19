// Package pipeline turns the raw client and server jars into a remapped, patched and merged jar.
//
// A Pipeline is a fixed list of stages ordered by their declared dependencies. Every stage
// writes one artifact into a cache directory and tags it with a fingerprint: the pipeline
// Version plus a digest of the stage's side inputs (configuration values and input files). Jar
// artifacts carry the tag in their manifest, other artifacts in a ".fingerprint" sidecar file.
//
// # Staleness
//
// Before anything runs, every stage is checked in order. A stage is dirty when
//   - the caller asked for a refresh,
//   - an upstream stage it needs is dirty,
//   - one of its outputs is missing, or
//   - the stored fingerprint differs from the current one.
//
// The first dirty stage forces every later stage dirty, whatever its own check says. Outputs of
// dirty stages are deleted before execution starts, so an interrupted run never leaves a stale
// artifact that looks current.
//
// # Execution
//
// Stages run in waves: a stage's wave is one past the deepest wave of the stages it needs.
// Stages of one wave run concurrently, which lets the client and server branches proceed side
// by side until they reconverge at the variant merge.
package pipeline
