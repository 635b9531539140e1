package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// CommandRunner abstracts process execution so scans can be tested with
// canned output.
type CommandRunner interface {
	CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) CombinedOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// ExecRunner returns the default runner that executes real processes.
func ExecRunner() CommandRunner {
	return execRunner{}
}

// Scanner runs ffmpeg signal scans over a time range of a source file.
type Scanner struct {
	binary string
	runner CommandRunner
}

// Option customizes the scanner.
type Option func(*Scanner)

// WithRunner overrides process execution (useful for tests).
func WithRunner(runner CommandRunner) Option {
	return func(s *Scanner) {
		if runner != nil {
			s.runner = runner
		}
	}
}

// NewScanner constructs a scanner around the given ffmpeg binary.
func NewScanner(binary string, opts ...Option) *Scanner {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	scanner := &Scanner{binary: binary, runner: execRunner{}}
	for _, opt := range opts {
		opt(scanner)
	}
	return scanner
}

// Interval is a detected signal span in absolute file seconds.
type Interval struct {
	Start float64
	End   float64
}

// Duration returns the interval length in seconds.
func (i Interval) Duration() float64 {
	if i.End <= i.Start {
		return 0
	}
	return i.End - i.Start
}

// SceneChange is one scene cut with its change magnitude (0..1).
type SceneChange struct {
	Time  float64
	Score float64
}

// SilenceScan detects silent spans inside [start, start+duration] of path.
// Returned intervals use absolute file timestamps.
func (s *Scanner) SilenceScan(ctx context.Context, path string, start, duration, thresholdDB, minDuration float64) ([]Interval, error) {
	filter := fmt.Sprintf("silencedetect=noise=%sdB:d=%s", formatSeconds(thresholdDB), formatSeconds(minDuration))
	output, err := s.run(ctx, path, start, duration, "-af", filter)
	if err != nil {
		return nil, fmt.Errorf("silence scan: %w", err)
	}
	return parseSilence(string(output), start), nil
}

// BlackScan detects black-frame spans inside [start, start+duration] of path.
func (s *Scanner) BlackScan(ctx context.Context, path string, start, duration, minDuration float64) ([]Interval, error) {
	filter := fmt.Sprintf("blackdetect=d=%s:pix_th=0.10", formatSeconds(minDuration))
	output, err := s.run(ctx, path, start, duration, "-vf", filter)
	if err != nil {
		return nil, fmt.Errorf("black scan: %w", err)
	}
	return parseBlack(string(output), start), nil
}

// SceneScan reports scene changes above threshold inside [start, start+duration].
func (s *Scanner) SceneScan(ctx context.Context, path string, start, duration, threshold float64) ([]SceneChange, error) {
	filter := fmt.Sprintf("select='gt(scene,%s)',metadata=print", formatSeconds(threshold))
	output, err := s.run(ctx, path, start, duration, "-vf", filter)
	if err != nil {
		return nil, fmt.Errorf("scene scan: %w", err)
	}
	return parseScene(string(output), start), nil
}

// ExtractFrame writes the video frame nearest to the given timestamp as a JPEG.
func (s *Scanner) ExtractFrame(ctx context.Context, path string, at float64, outPath string) error {
	args := []string{
		"-hide_banner", "-nostats", "-loglevel", "error",
		"-ss", formatSeconds(at),
		"-i", path,
		"-vframes", "1",
		"-q:v", "2",
		"-y", outPath,
	}
	output, err := s.runner.CombinedOutput(ctx, s.binary, args...)
	if err != nil {
		return fmt.Errorf("extract frame at %.2fs: %w: %s", at, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// ExtractAudioSegment writes a mono 16kHz WAV covering [start, start+duration].
func (s *Scanner) ExtractAudioSegment(ctx context.Context, path string, start, duration float64, outPath string) error {
	args := []string{
		"-hide_banner", "-nostats", "-loglevel", "error",
		"-ss", formatSeconds(start),
		"-t", formatSeconds(duration),
		"-i", path,
		"-vn", "-ac", "1", "-ar", "16000",
		"-y", outPath,
	}
	output, err := s.runner.CombinedOutput(ctx, s.binary, args...)
	if err != nil {
		return fmt.Errorf("extract audio at %.2fs: %w: %s", start, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func (s *Scanner) run(ctx context.Context, path string, start, duration float64, filterFlag, filter string) ([]byte, error) {
	args := []string{"-hide_banner", "-nostats"}
	if start > 0 {
		args = append(args, "-ss", formatSeconds(start))
	}
	if duration > 0 {
		args = append(args, "-t", formatSeconds(duration))
	}
	args = append(args, "-i", path, filterFlag, filter, "-f", "null", "-")
	output, err := s.runner.CombinedOutput(ctx, s.binary, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return output, nil
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
