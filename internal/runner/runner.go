package runner

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"episplit/internal/config"
	"episplit/internal/detect"
	"episplit/internal/detect/detectors"
	"episplit/internal/detect/precision"
	"episplit/internal/identification/tmdb"
	"episplit/internal/media/ffmpeg"
	"episplit/internal/media/ffprobe"
	"episplit/internal/scancache"
	"episplit/internal/services"
	"episplit/internal/services/transcribe"
	"episplit/internal/services/vision"
)

// cacheRetention bounds how long raw scan output is kept; stale entries
// are pruned when the cache opens.
const cacheRetention = 30 * 24 * time.Hour

// ProbeFunc inspects a media file. Injectable for tests.
type ProbeFunc func(ctx context.Context, binary, path string) (ffprobe.Result, error)

// Runner wires configuration and external services into the detection
// pipeline and drives one file end to end.
type Runner struct {
	cfg         *config.Config
	logger      *slog.Logger
	probe       ProbeFunc
	scanner     *ffmpeg.Scanner
	searcher    tmdb.Searcher
	classifier  detectors.FrameClassifier
	transcriber detectors.Transcriber
	cache       *scancache.Store
	pattern     *precision.Pattern
	workDir     string
	parallel    int
}

// Option customizes the runner, mainly for tests.
type Option func(*Runner)

// WithProbe overrides media inspection.
func WithProbe(probe ProbeFunc) Option {
	return func(r *Runner) {
		if probe != nil {
			r.probe = probe
		}
	}
}

// WithScanner overrides the ffmpeg signal scanner.
func WithScanner(scanner *ffmpeg.Scanner) Option {
	return func(r *Runner) {
		if scanner != nil {
			r.scanner = scanner
		}
	}
}

// WithSearcher overrides the runtime-metadata service.
func WithSearcher(searcher tmdb.Searcher) Option {
	return func(r *Runner) { r.searcher = searcher }
}

// WithClassifier overrides the frame classification service.
func WithClassifier(classifier detectors.FrameClassifier) Option {
	return func(r *Runner) { r.classifier = classifier }
}

// WithTranscriber overrides the transcription service.
func WithTranscriber(transcriber detectors.Transcriber) Option {
	return func(r *Runner) { r.transcriber = transcriber }
}

// WithCache overrides the scan cache; nil disables caching.
func WithCache(cache *scancache.Store) Option {
	return func(r *Runner) { r.cache = cache }
}

// WithWorkDir sets the directory for temporary frames and audio segments.
func WithWorkDir(dir string) Option {
	return func(r *Runner) {
		if dir != "" {
			r.workDir = dir
		}
	}
}

// WithParallelism bounds the phase-2 window worker pool.
func WithParallelism(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.parallel = n
		}
	}
}

// New builds a runner from configuration, constructing the real service
// clients for everything not overridden by options.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	runner := &Runner{
		cfg:      cfg,
		logger:   logger,
		probe:    ffprobe.Inspect,
		scanner:  ffmpeg.NewScanner(cfg.Splitter.FFmpegBinary),
		parallel: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(runner)
	}

	if runner.searcher == nil && cfg.TMDB.APIKey != "" {
		searcher, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "runner", "new", "build metadata client", err)
		}
		runner.searcher = searcher
	}
	if runner.classifier == nil && cfg.Vision.Enabled {
		runner.classifier = vision.NewClient(vision.Config{
			BaseURL:        cfg.Vision.BaseURL,
			Model:          cfg.Vision.Model,
			TimeoutSeconds: cfg.Vision.TimeoutSeconds,
		})
	}
	if runner.transcriber == nil && cfg.Transcribe.Enabled {
		runner.transcriber = transcribe.NewClient(transcribe.Config{
			BaseURL:        cfg.Transcribe.BaseURL,
			Model:          cfg.Transcribe.Model,
			TimeoutSeconds: cfg.Transcribe.TimeoutSeconds,
		})
	}
	pattern, err := precision.ParsePattern(cfg.Precision.Pattern)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "runner", "new", "parse boundary pattern", err)
	}
	runner.pattern = pattern

	if runner.cache == nil && cfg.ScanCache.Enabled {
		cache, err := scancache.Open(cfg.ScanCache.Path)
		if err != nil {
			return nil, services.Wrap(services.ErrConfiguration, "runner", "new", "open scan cache", err)
		}
		if removed, err := cache.Prune(context.Background(), time.Now().Add(-cacheRetention)); err != nil {
			logger.Warn("scan cache prune failed", slog.Any("error", err))
		} else if removed > 0 {
			logger.Debug("pruned stale scan cache entries", slog.Int64("removed", removed))
		}
		runner.cache = cache
	}
	return runner, nil
}

// Close releases held resources.
func (r *Runner) Close() error {
	return r.cache.Close()
}

// buildDetectors assembles the enabled detector set for one source file.
// Signal scans go through the cache when one is configured.
func (r *Runner) buildDetectors(chapters []ffprobe.Chapter) []detect.Detector {
	var built []detect.Detector
	sampler := &detectors.FrameSampler{
		Extractor:  r.scanner,
		Classifier: r.classifier,
		WorkDir:    r.workDir,
	}

	for _, name := range r.cfg.Detection.Detectors {
		switch name {
		case "silence":
			built = append(built, r.cached(&detectors.Silence{
				Scanner:     r.scanner,
				ThresholdDB: r.cfg.Detection.SilenceThresholdDB,
				MinDuration: r.cfg.Detection.SilenceMinDuration,
			}))
		case "black_frame":
			built = append(built, r.cached(&detectors.Black{
				Scanner:     r.scanner,
				MinDuration: r.cfg.Detection.BlackMinDuration,
			}))
		case "scene_change":
			built = append(built, r.cached(&detectors.Scene{
				Scanner:   r.scanner,
				Threshold: r.cfg.Detection.SceneThreshold,
			}))
		case "speech":
			if r.transcriber != nil {
				built = append(built, &detectors.Speech{
					Extractor:   r.scanner,
					Transcriber: r.transcriber,
					WorkDir:     r.workDir,
				})
			}
		case "llm_vision":
			if r.classifier != nil {
				built = append(built, &detectors.Vision{Sampler: sampler, Logger: r.logger})
			}
		case "image_hash":
			built = append(built, &detectors.IntroHash{Extractor: r.scanner, WorkDir: r.workDir})
		case "audio_fingerprint":
			built = append(built, &detectors.AudioFingerprint{
				Extractor: r.scanner,
				Runner:    ffmpeg.ExecRunner(),
				WorkDir:   r.workDir,
			})
		}
	}

	if len(chapters) > 1 {
		built = append(built, &detectors.Chapter{Chapters: chapters})
	}
	return built
}

func (r *Runner) sequencer() *precision.Sequencer {
	sampler := &detectors.FrameSampler{
		Extractor:  r.scanner,
		Classifier: r.classifier,
		WorkDir:    r.workDir,
	}
	return precision.NewSequencer(sampler, r.scanner, precision.Options{
		SampleInterval:    r.cfg.Precision.SampleIntervalSeconds,
		GroupingBuffer:    r.cfg.Precision.PatternGroupingBuffer,
		PostCreditsBuffer: r.cfg.Precision.PostCreditsBuffer,
		Pattern:           r.pattern,
		RefineWithBlack:   r.cfg.Precision.UseBlackFrames,
	}, r.logger)
}
