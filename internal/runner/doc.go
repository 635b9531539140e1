// Package runner orchestrates one file's journey through the pipeline:
// probe, filename parse, eligibility gate, window determination, boundary
// detection (parallel per window, or the sequential precision mode),
// resolution, and the optional lossless split. Each source is locked
// against concurrent runs; the source file itself is never modified.
package runner
