// Package splitter builds and runs the lossless extraction step: one
// ffmpeg stream-copy invocation per episode in the resolved cut plan. The
// source file is read-only throughout.
package splitter
