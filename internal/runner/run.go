package runner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"episplit/internal/boundary"
	"episplit/internal/detect"
	"episplit/internal/detect/cluster"
	"episplit/internal/detect/windows"
	"episplit/internal/identification"
	"episplit/internal/logging"
	"episplit/internal/media/ffprobe"
	"episplit/internal/services"
	"episplit/internal/splitter"
)

const (
	// asymmetricBack and asymmetricForward shape precision windows: most
	// drift makes episodes run short, so the window reaches further back.
	asymmetricBack    = 180
	asymmetricForward = 60
	symmetricHalf     = 120

	// multiEpisodeFactor gates chapterless files: the duration must reach
	// this multiple of the maximum episode length to plausibly hold more
	// than one episode.
	multiEpisodeFactor = 1.5
)

// Report is the outcome of one detection run over one file.
type Report struct {
	RunID      string
	SourcePath string
	Info       identification.FileInfo
	Duration   float64
	Mode       string
	Windows    []detect.Window
	Candidates []boundary.Candidate
	Plan       boundary.Plan
	SplitPlan  splitter.Plan
	Warnings   []string
}

// Scan runs detection and boundary resolution without touching the source
// or writing any output files.
func (r *Runner) Scan(ctx context.Context, path string) (*Report, error) {
	report := &Report{
		RunID:      uuid.NewString(),
		SourcePath: path,
		Mode:       "normal",
	}
	if r.cfg.Precision.Enabled {
		report.Mode = "precision"
	}
	logger := r.logger.With(slog.String(logging.FieldRunID, report.RunID))
	log := logging.WithComponent(logger, "runner")

	probed, err := r.probe(ctx, r.cfg.Splitter.FFprobeBinary, path)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "runner", "probe", "inspect source", err)
	}
	report.Duration = probed.DurationSeconds()

	report.Info = identification.ParseFilename(path)
	if !report.Info.Parsed || report.Info.EpisodeCount < 2 {
		return nil, services.Wrap(services.ErrDegenerateInput, "runner", "gate",
			fmt.Sprintf("filename %q does not describe a multi-episode file", filepath.Base(path)), nil)
	}
	if err := r.gate(report.Duration, probed.Chapters); err != nil {
		return nil, err
	}
	log.Info("source accepted",
		slog.String("title", report.Info.Title),
		slog.Int("episodes", report.Info.EpisodeCount),
		slog.Float64("duration", report.Duration),
		slog.Int64("size_bytes", probed.SizeBytes()))

	if r.cfg.Precision.Enabled {
		if err := r.preflight(ctx); err != nil {
			return nil, err
		}
	}

	src := detect.Source{Path: path, Duration: report.Duration}

	var runtimes *identification.EpisodeRuntimes
	if r.searcher != nil {
		runtimes, err = identification.LookupEpisodeRuntimes(ctx, r.searcher, logger, report.Info)
		if err != nil {
			// Windows degrade to chapter or equal-division placement.
			log.Warn("runtime lookup failed", slog.Any("error", err))
			runtimes = nil
		}
	}

	built, err := windows.Determine(src, report.Info.EpisodeCount, probed.Chapters, runtimes, logger, windows.Options{
		HalfWidth: r.cfg.Detection.WindowSeconds,
	})
	if err != nil {
		return nil, err
	}
	if r.cfg.Precision.Enabled {
		built = reshapeForPrecision(built, r.cfg.Precision.SymmetricWindows)
	}
	report.Windows = built

	report.Candidates, err = r.detectBoundaries(ctx, src, probed.Chapters, built, logger)
	if err != nil {
		return nil, err
	}

	candidates := report.Candidates
	if !r.cfg.Detection.Strict {
		candidates = dropFailed(candidates, log)
	}
	plan, err := boundary.Resolve(candidates, report.Duration, boundary.Constraints{
		MinEpisodeLength: r.cfg.Detection.MinEpisodeMinutes * 60,
		MaxEpisodeLength: r.cfg.Detection.MaxEpisodeMinutes * 60,
	}, logger)
	if err != nil {
		return nil, err
	}
	report.Plan = plan
	report.Warnings = plan.Warnings
	return report, nil
}

// Split runs Scan and then builds (and optionally executes) the lossless
// extraction plan. The source file is locked against concurrent runs and
// never modified.
func (r *Runner) Split(ctx context.Context, path string, execute bool) (*Report, error) {
	lock := flock.New(lockPath(path))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "runner", "lock", "acquire source lock", err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrTransient, "runner", "lock",
			fmt.Sprintf("%s is already being processed", filepath.Base(path)), nil)
	}
	defer func() {
		_ = lock.Unlock()
		_ = os.Remove(lock.Path())
	}()

	report, err := r.Scan(ctx, path)
	if err != nil {
		return nil, err
	}

	split := splitter.New(splitter.Namer{
		OutputDir:  r.cfg.Paths.OutputDir,
		SeasonDirs: r.cfg.Splitter.SeasonDirs,
	}, r.logger, splitter.WithBinary(r.cfg.Splitter.FFmpegBinary))

	report.SplitPlan = split.BuildPlan(path, report.Info, report.Plan.Episodes)
	if !execute {
		return report, nil
	}
	if err := split.Execute(ctx, report.SplitPlan); err != nil {
		return report, err
	}
	return report, nil
}

// healthChecker is implemented by service clients that can verify their
// backend is reachable and serving the configured model.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// preflight verifies the vision service before any sampling starts, so a
// misconfigured endpoint fails the run up front instead of window by window.
func (r *Runner) preflight(ctx context.Context) error {
	checker, ok := r.classifier.(healthChecker)
	if !ok {
		return nil
	}
	if err := checker.HealthCheck(ctx); err != nil {
		return services.Wrap(services.ErrExternalTool, "runner", "preflight", "vision service unavailable", err)
	}
	return nil
}

// gate rejects files that cannot plausibly hold multiple episodes before
// any detection work begins. Chapterless files must run well past one
// maximum episode length; chaptered files get the benefit of the doubt.
func (r *Runner) gate(duration float64, chapters []ffprobe.Chapter) error {
	if duration < r.cfg.Detection.MinFileMinutes*60 {
		return services.Wrap(services.ErrDegenerateInput, "runner", "gate",
			fmt.Sprintf("duration %.1fm is under the %.0fm minimum", duration/60, r.cfg.Detection.MinFileMinutes), nil)
	}
	if len(chapters) > 1 {
		return nil
	}
	if duration < multiEpisodeFactor*r.cfg.Detection.MaxEpisodeMinutes*60 {
		return services.Wrap(services.ErrDegenerateInput, "runner", "gate",
			fmt.Sprintf("duration %.1fm without chapters is too short for multiple episodes", duration/60), nil)
	}
	return nil
}

// detectBoundaries resolves every window to a candidate boundary.
// Standalone chapter windows skip detection entirely; the rest go through
// the precision sequencer or the parallel detector pool.
func (r *Runner) detectBoundaries(ctx context.Context, src detect.Source, chapters []ffprobe.Chapter, built []detect.Window, logger *slog.Logger) ([]boundary.Candidate, error) {
	candidates := make([]boundary.Candidate, len(built))
	var pending []detect.Window
	for i, window := range built {
		if window.Standalone {
			candidates[i] = boundary.Candidate{
				WindowIndex: window.Index,
				Time:        window.BoundaryTime,
				Confidence:  window.Confidence,
				Source:      window.Source.String(),
			}
			continue
		}
		pending = append(pending, window)
		candidates[i] = boundary.Candidate{WindowIndex: window.Index, Failed: true}
	}
	if len(pending) == 0 {
		return candidates, nil
	}

	if r.cfg.Precision.Enabled {
		resolved, err := r.sequencer().Resolve(ctx, src, pending)
		if err != nil {
			return nil, err
		}
		for _, b := range resolved {
			candidate := boundary.Candidate{WindowIndex: b.Window.Index, Failed: b.Failed}
			if !b.Failed {
				candidate.Time = b.Time
				candidate.Confidence = b.Confidence
				candidate.Source = b.Source
			}
			candidates[indexOf(built, b.Window.Index)] = candidate
		}
		return candidates, nil
	}

	detectorSet := r.buildDetectors(chapters)
	clusterer := cluster.New(r.cfg.Detection.ClusterToleranceSeconds)
	log := logging.WithComponent(logger, "phase2")

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.parallel)
	for _, window := range pending {
		window := window
		group.Go(func() error {
			candidate := r.detectWindow(groupCtx, src, window, detectorSet, clusterer, log)
			mu.Lock()
			candidates[indexOf(built, window.Index)] = candidate
			mu.Unlock()
			return groupCtx.Err()
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return candidates, nil
}

// detectWindow runs every detector over one window and clusters the
// result. Detector failures degrade to empty output.
func (r *Runner) detectWindow(ctx context.Context, src detect.Source, window detect.Window, detectorSet []detect.Detector, clusterer *cluster.Clusterer, log *slog.Logger) boundary.Candidate {
	var raws []detect.Raw
	for _, detector := range detectorSet {
		got, err := detector.Detect(ctx, src, window)
		if err != nil {
			log.Warn("detector failed",
				slog.String(logging.FieldDetector, detector.Name()),
				slog.Int(logging.FieldWindow, window.Index),
				slog.Any("error", err))
			continue
		}
		raws = append(raws, got...)
	}

	best, ok := clusterer.Best(raws)
	if !ok {
		log.Warn("no cluster in window", slog.Int(logging.FieldWindow, window.Index))
		return boundary.Candidate{WindowIndex: window.Index, Failed: true}
	}

	candidate := boundary.Candidate{
		WindowIndex: window.Index,
		Time:        best.Center,
		Confidence:  best.Confidence(),
		Source:      describeCluster(best),
	}
	if phrase, ok := nearestSpeech(raws, best.Center); ok {
		candidate.PhraseTime = phrase
		candidate.HasPhrase = true
	}
	log.Info("window resolved",
		slog.Int(logging.FieldWindow, window.Index),
		slog.Float64("boundary", candidate.Time),
		slog.Float64("confidence", candidate.Confidence),
		slog.String("source", candidate.Source))
	return candidate
}

// reshapeForPrecision narrows windows around their centers: asymmetric
// reaches further back than forward, symmetric splits the width evenly.
func reshapeForPrecision(built []detect.Window, symmetric bool) []detect.Window {
	back, forward := float64(asymmetricBack), float64(asymmetricForward)
	if symmetric {
		back, forward = symmetricHalf, symmetricHalf
	}
	reshaped := make([]detect.Window, len(built))
	for i, window := range built {
		if !window.Standalone {
			window.Start = math.Max(0, window.Center-back)
			window.End = window.Center + forward
		}
		reshaped[i] = window
	}
	return reshaped
}

// nearestSpeech finds the cue phrase closest to the boundary.
func nearestSpeech(raws []detect.Raw, boundaryTime float64) (float64, bool) {
	best, found := 0.0, false
	for _, raw := range raws {
		if raw.Kind != detect.KindSpeech {
			continue
		}
		if !found || math.Abs(raw.Timestamp-boundaryTime) < math.Abs(best-boundaryTime) {
			best = raw.Timestamp
			found = true
		}
	}
	return best, found
}

func describeCluster(c cluster.Cluster) string {
	kinds := make([]string, 0, len(c.Kinds))
	for kind := range c.Kinds {
		kinds = append(kinds, kind.String())
	}
	sort.Strings(kinds)
	result := ""
	for i, kind := range kinds {
		if i > 0 {
			result += "+"
		}
		result += kind
	}
	return result
}

func dropFailed(candidates []boundary.Candidate, log *slog.Logger) []boundary.Candidate {
	kept := candidates[:0:0]
	for _, candidate := range candidates {
		if candidate.Failed {
			log.Warn("dropping unresolved boundary", slog.Int(logging.FieldWindow, candidate.WindowIndex))
			continue
		}
		kept = append(kept, candidate)
	}
	return kept
}

func indexOf(built []detect.Window, windowIndex int) int {
	for i, window := range built {
		if window.Index == windowIndex {
			return i
		}
	}
	return 0
}

// lockPath places the per-source lock in the system temp directory, keyed
// by a digest of the absolute path, so read-only source trees still lock.
func lockPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	sum := sha256.Sum256([]byte(abs))
	return filepath.Join(os.TempDir(), "episplit-"+hex.EncodeToString(sum[:8])+".lock")
}
