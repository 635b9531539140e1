// Package transcribe sends audio segments to a whisper-style HTTP service
// and returns timed transcript segments. The speech detector matches the
// transcript against episode-end cue phrases.
package transcribe
