// Package ffmpeg runs the signal-sampling passes the detectors consume:
// silence detection, black-frame detection, scene-change scoring, single
// frame extraction, and audio segment extraction. Parsing is separated
// from process execution so detector tests can feed canned ffmpeg output.
package ffmpeg
