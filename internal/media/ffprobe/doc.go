// Package ffprobe inspects media containers: duration, streams, and
// chapter marks. Chapter titles drive the window determiner's
// chapter-based boundary detection.
package ffprobe
