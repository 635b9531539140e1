package splitter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"episplit/internal/boundary"
	"episplit/internal/identification"
	"episplit/internal/logging"
	"episplit/internal/media/ffmpeg"
	"episplit/internal/services"
)

// Job is one lossless extraction: a stream copy of a time range of the
// source into its own file.
type Job struct {
	Episode    int
	Start      float64
	Duration   float64
	OutputPath string
	Args       []string
}

// Plan is the full set of extraction jobs for one source file.
type Plan struct {
	SourcePath string
	Jobs       []Job
}

// Splitter turns a resolved cut plan into ffmpeg stream-copy jobs and
// optionally runs them.
type Splitter struct {
	binary string
	runner ffmpeg.CommandRunner
	namer  Namer
	logger *slog.Logger
}

// Option customizes the splitter.
type Option func(*Splitter)

// WithRunner overrides process execution (useful for tests).
func WithRunner(runner ffmpeg.CommandRunner) Option {
	return func(s *Splitter) {
		if runner != nil {
			s.runner = runner
		}
	}
}

// WithBinary overrides the ffmpeg binary path.
func WithBinary(binary string) Option {
	return func(s *Splitter) {
		if binary != "" {
			s.binary = binary
		}
	}
}

// New builds a splitter writing through the given namer.
func New(namer Namer, logger *slog.Logger, opts ...Option) *Splitter {
	splitter := &Splitter{
		binary: "ffmpeg",
		runner: ffmpeg.ExecRunner(),
		namer:  namer,
		logger: logging.WithComponent(logger, "splitter"),
	}
	for _, opt := range opts {
		opt(splitter)
	}
	return splitter
}

// BuildPlan maps each episode in the cut plan to an extraction job. All
// streams are copied without re-encoding; timestamps are rebased so every
// output starts at zero.
func (s *Splitter) BuildPlan(sourcePath string, info identification.FileInfo, episodes []boundary.Episode) Plan {
	plan := Plan{SourcePath: sourcePath}
	for i, episode := range episodes {
		name := s.namer.Name(sourcePath, info, i)
		args := []string{
			"-hide_banner", "-y",
			"-ss", formatSeconds(episode.Start),
			"-t", formatSeconds(episode.Duration),
			"-i", sourcePath,
			"-map", "0",
			"-c", "copy",
			"-avoid_negative_ts", "make_zero",
			name.Path,
		}
		plan.Jobs = append(plan.Jobs, Job{
			Episode:    name.Episode,
			Start:      episode.Start,
			Duration:   episode.Duration,
			OutputPath: name.Path,
			Args:       args,
		})
	}
	return plan
}

// Execute runs every job in the plan. The source file is never modified;
// a failed job aborts the remaining ones and reports which outputs were
// already written.
func (s *Splitter) Execute(ctx context.Context, plan Plan) error {
	for i, job := range plan.Jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(job.OutputPath), 0o755); err != nil {
			return services.Wrap(services.ErrExternalTool, "splitter", "execute",
				fmt.Sprintf("create output directory for episode %d", job.Episode), err)
		}
		s.logger.Info("extracting episode",
			slog.Int("episode", job.Episode),
			slog.Float64("start", job.Start),
			slog.Float64("duration", job.Duration),
			slog.String("output", job.OutputPath))

		output, err := s.runner.CombinedOutput(ctx, s.binary, job.Args...)
		if err != nil {
			return services.Wrap(services.ErrExternalTool, "splitter", "execute",
				fmt.Sprintf("episode %d failed after %d of %d extractions: %s",
					job.Episode, i, len(plan.Jobs), tail(output, 400)), err)
		}
	}
	return nil
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', 3, 64)
}

func tail(output []byte, max int) string {
	if len(output) <= max {
		return string(output)
	}
	return string(output[len(output)-max:])
}
