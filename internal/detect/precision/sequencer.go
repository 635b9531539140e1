package precision

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"episplit/internal/detect"
	"episplit/internal/detect/detectors"
	"episplit/internal/logging"
	"episplit/internal/services"
	"episplit/internal/services/vision"
)

const (
	// DefaultSampleInterval is the dense sampling interval in seconds.
	DefaultSampleInterval = 2
	// DefaultGroupingBuffer joins nearby same-kind detections into clumps
	// and pattern blocks.
	DefaultGroupingBuffer = 10
	// DefaultPostCreditsBuffer is added after a credits transition so
	// post-credits stingers stay with their episode.
	DefaultPostCreditsBuffer = 15
	// expandBy is how far a window grows per fallback expansion step.
	expandBy = 90
	// fallbackHalfWidth and fallbackInterval parametrize the coarse
	// last-resort scan around the predicted center.
	fallbackHalfWidth = 300
	fallbackInterval  = 10
	// creditsMinRun filters single-frame credits noise, same as the
	// coarse vision detector.
	creditsMinRun = 3
	// blackSearchRadius and blackSnapDistance bound black-frame refinement
	// of a resolved boundary.
	blackSearchRadius = 4
	blackSnapDistance = 2.0

	confidenceCeiling   = 0.95
	creditsConfidence   = 0.85
	logoConfidence      = 0.75
	patternFullConf     = 0.85
	patternPartialConf  = 0.7
	blackRefineBonus    = 0.05
	expansionConfFactor = 0.9
)

// Boundary is one resolved episode boundary with the drift it contributed.
type Boundary struct {
	Window     detect.Window
	Time       float64
	Confidence float64
	Source     string
	// Drift is observed boundary minus the drift-adjusted predicted center.
	Drift float64
	// Failed marks an unresolved boundary; Time and Drift are meaningless.
	Failed bool
}

// Options tunes the sequencer.
type Options struct {
	SampleInterval    float64
	GroupingBuffer    float64
	PostCreditsBuffer float64
	// Pattern, when set, replaces clump selection with symbolic matching.
	// Pattern failures never fall back; that asymmetry is intentional.
	Pattern *Pattern
	// RefineWithBlack snaps boundaries to a nearby black frame. It is
	// ignored when a pattern is configured.
	RefineWithBlack bool
}

func (o Options) withDefaults() Options {
	if o.SampleInterval <= 0 {
		o.SampleInterval = DefaultSampleInterval
	}
	if o.GroupingBuffer <= 0 {
		o.GroupingBuffer = DefaultGroupingBuffer
	}
	if o.PostCreditsBuffer <= 0 {
		o.PostCreditsBuffer = DefaultPostCreditsBuffer
	}
	return o
}

// Sequencer resolves boundaries window by window with dense frame sampling.
// Windows are processed in order: each resolved boundary's error against
// its predicted center is accumulated as drift and shifts every later
// window before it is sampled. The accumulator is an explicit value
// threaded through the loop, never package state.
type Sequencer struct {
	sampler *detectors.FrameSampler
	black   detectors.BlackScanner
	opts    Options
	logger  *slog.Logger
}

// NewSequencer builds a sequencer. The black scanner may be nil when
// refinement is disabled.
func NewSequencer(sampler *detectors.FrameSampler, black detectors.BlackScanner, opts Options, logger *slog.Logger) *Sequencer {
	return &Sequencer{
		sampler: sampler,
		black:   black,
		opts:    opts.withDefaults(),
		logger:  logging.WithComponent(logger, "precision"),
	}
}

// Resolve processes the windows sequentially and returns one Boundary per
// window. Failed boundaries are marked rather than dropped so the caller
// can apply its strictness policy; failures do not advance the drift.
func (s *Sequencer) Resolve(ctx context.Context, src detect.Source, windows []detect.Window) ([]Boundary, error) {
	boundaries := make([]Boundary, 0, len(windows))
	drift := 0.0

	for _, window := range windows {
		if err := ctx.Err(); err != nil {
			return boundaries, err
		}
		adjusted := shiftWindow(window, drift)
		if math.Abs(drift) > 1 {
			s.logger.Info("window shifted by accumulated drift",
				slog.Int(logging.FieldWindow, window.Index),
				slog.Float64("drift", drift),
				slog.Float64("center", adjusted.Center))
		}

		boundary, err := s.resolveWindow(ctx, src, adjusted)
		if err != nil {
			s.logger.Warn("boundary unresolved",
				slog.Int(logging.FieldWindow, window.Index),
				slog.Any("error", err))
			boundaries = append(boundaries, Boundary{Window: adjusted, Failed: true})
			continue
		}

		boundary.Window = adjusted
		boundary.Drift = boundary.Time - adjusted.Center
		drift += boundary.Drift
		s.logger.Info("boundary resolved",
			slog.Int(logging.FieldWindow, window.Index),
			slog.Float64("boundary", boundary.Time),
			slog.String("source", boundary.Source),
			slog.Float64("window_drift", boundary.Drift))
		boundaries = append(boundaries, boundary)
	}
	return boundaries, nil
}

// shiftWindow moves a window by the accumulated drift, clamping at zero.
func shiftWindow(window detect.Window, drift float64) detect.Window {
	window.Start = math.Max(0, window.Start+drift)
	window.Center += drift
	window.End += drift
	return window
}

func (s *Sequencer) resolveWindow(ctx context.Context, src detect.Source, window detect.Window) (Boundary, error) {
	samples, err := s.sampleRange(ctx, src, window.Start, window.End, s.opts.SampleInterval)
	if err != nil {
		return Boundary{}, err
	}

	if s.opts.Pattern != nil {
		return s.matchPattern(samples, window)
	}

	if boundary, ok := s.selectBoundary(samples); ok {
		return s.refine(ctx, src, boundary), nil
	}

	// Expansion chain: backward, then forward, then a coarse scan of the
	// uncovered region around the original center.
	backSamples, err := s.sampleRange(ctx, src, math.Max(0, window.Start-expandBy), window.Start, s.opts.SampleInterval)
	if err != nil {
		return Boundary{}, err
	}
	if boundary, ok := s.selectBoundary(append(backSamples, samples...)); ok {
		boundary.Confidence *= expansionConfFactor
		return s.refine(ctx, src, boundary), nil
	}

	forwardSamples, err := s.sampleRange(ctx, src, window.End, window.End+expandBy, s.opts.SampleInterval)
	if err != nil {
		return Boundary{}, err
	}
	if boundary, ok := s.selectBoundary(append(samples, forwardSamples...)); ok {
		boundary.Confidence *= expansionConfFactor
		return s.refine(ctx, src, boundary), nil
	}

	coarse, err := s.coarseScan(ctx, src, window)
	if err != nil {
		return Boundary{}, err
	}
	if boundary, ok := s.selectBoundary(coarse); ok {
		boundary.Confidence *= expansionConfFactor
		boundary.Source += "+coarse"
		return s.refine(ctx, src, boundary), nil
	}

	return Boundary{}, services.Wrap(services.ErrNoDetection, "precision", "resolve_window",
		fmt.Sprintf("no detection after expansion around %.1fs", window.Center), nil)
}

// coarseScan samples the wide fallback region at the coarse interval,
// skipping the stretch the dense passes already covered.
func (s *Sequencer) coarseScan(ctx context.Context, src detect.Source, window detect.Window) ([]sample, error) {
	covered := span{from: math.Max(0, window.Start-expandBy), to: window.End + expandBy}
	region := span{from: math.Max(0, window.Center-fallbackHalfWidth), to: window.Center + fallbackHalfWidth}

	var samples []sample
	for at := region.from; at <= region.to; at += fallbackInterval {
		if at >= covered.from && at <= covered.to {
			continue
		}
		got, err := s.sampleRange(ctx, src, at, at, s.opts.SampleInterval)
		if err != nil {
			return nil, err
		}
		samples = append(samples, got...)
	}
	return samples, nil
}

type span struct {
	from, to float64
}

type sample struct {
	at    float64
	frame vision.FrameClassification
}

// sampleRange classifies frames from 'from' to 'to' inclusive at the given
// interval. Individual frame failures are logged and skipped.
func (s *Sequencer) sampleRange(ctx context.Context, src detect.Source, from, to, interval float64) ([]sample, error) {
	var samples []sample
	for at := from; at <= to; at += interval {
		if err := ctx.Err(); err != nil {
			return samples, err
		}
		frame, err := s.sampler.Sample(ctx, src.Path, at)
		if err != nil {
			s.logger.Warn("frame classification failed",
				slog.Float64("at", at),
				slog.Any("error", err))
			continue
		}
		samples = append(samples, sample{at: at, frame: frame})
	}
	return samples, nil
}

// selectBoundary applies the credits-then-logo selection rule: a credits
// True to False transition restricts candidates to logo clumps at or
// before it and places the cut after the credits plus the post-credits
// buffer; without a transition the first logo clump's start is the cut.
func (s *Sequencer) selectBoundary(samples []sample) (Boundary, bool) {
	transition, hasTransition := creditsTransition(samples)
	clumps := logoClumps(samples, s.opts.GroupingBuffer)

	if hasTransition {
		cut := transition + s.opts.PostCreditsBuffer
		source := "credits"
		for i := len(clumps) - 1; i >= 0; i-- {
			if clumps[i].from <= transition {
				source = "credits+logo"
				break
			}
		}
		// A logo clump beginning inside the buffer means the next episode
		// already started; cut between the credits and the clump.
		for _, clump := range clumps {
			if clump.from > transition && clump.from < cut {
				cut = (transition + clump.from) / 2
				break
			}
		}
		return Boundary{Time: cut, Confidence: creditsConfidence, Source: source}, true
	}

	if len(clumps) > 0 {
		return Boundary{Time: clumps[0].from, Confidence: logoConfidence, Source: "logo"}, true
	}
	return Boundary{}, false
}

// creditsTransition returns the midpoint of the first credits True to
// False transition backed by at least creditsMinRun positive samples.
func creditsTransition(samples []sample) (float64, bool) {
	run := 0
	var lastTrue float64
	for _, sample := range samples {
		if sample.frame.Credits {
			run++
			lastTrue = sample.at
			continue
		}
		if run >= creditsMinRun {
			return (lastTrue + sample.at) / 2, true
		}
		run = 0
	}
	return 0, false
}

// logoClumps groups logo-positive samples into temporally contiguous
// clumps using the grouping buffer.
func logoClumps(samples []sample, buffer float64) []span {
	var clumps []span
	for _, sample := range samples {
		if !sample.frame.Logo {
			continue
		}
		last := len(clumps) - 1
		if last >= 0 && sample.at-clumps[last].to <= buffer {
			clumps[last].to = sample.at
			continue
		}
		clumps = append(clumps, span{from: sample.at, to: sample.at})
	}
	return clumps
}

// matchPattern resolves the boundary via symbolic pattern matching. A
// failed match aborts the boundary outright: pattern mode has no fallback.
func (s *Sequencer) matchPattern(samples []sample, window detect.Window) (Boundary, error) {
	raws := samplesToRaws(samples)
	blocks := MergeBlocks(s.opts.Pattern, raws, s.opts.GroupingBuffer)
	match, ok := s.opts.Pattern.MatchBlocks(blocks, s.opts.GroupingBuffer)
	if !ok {
		return Boundary{}, services.Wrap(services.ErrNoDetection, "precision", "match_pattern",
			fmt.Sprintf("pattern %s matched no blocks around %.1fs", s.opts.Pattern, window.Center), nil)
	}
	confidence := patternFullConf
	source := "pattern"
	if !match.Full {
		confidence = patternPartialConf
		source = "pattern_partial"
	}
	return Boundary{Time: match.Split, Confidence: confidence, Source: source}, nil
}

func samplesToRaws(samples []sample) []detect.Raw {
	var raws []detect.Raw
	for _, sample := range samples {
		if sample.frame.Credits {
			raws = append(raws, detect.Raw{Timestamp: sample.at, Kind: detect.KindLLMCredits})
		}
		if sample.frame.Logo {
			raws = append(raws, detect.Raw{Timestamp: sample.at, Kind: detect.KindLLMLogo})
		}
	}
	return raws
}

// refine snaps the boundary to the nearest black frame midpoint when one
// lies within blackSnapDistance. Refinement is best effort; scan errors
// leave the boundary unchanged.
func (s *Sequencer) refine(ctx context.Context, src detect.Source, boundary Boundary) Boundary {
	if !s.opts.RefineWithBlack || s.black == nil || s.opts.Pattern != nil {
		return boundary
	}
	start := math.Max(0, boundary.Time-blackSearchRadius)
	intervals, err := s.black.BlackScan(ctx, src.Path, start, 2*blackSearchRadius, 0.5)
	if err != nil || len(intervals) == 0 {
		return boundary
	}

	best := intervals[0]
	bestDistance := math.Abs((best.Start+best.End)/2 - boundary.Time)
	for _, interval := range intervals[1:] {
		distance := math.Abs((interval.Start+interval.End)/2 - boundary.Time)
		if distance < bestDistance {
			best = interval
			bestDistance = distance
		}
	}
	if bestDistance > blackSnapDistance {
		return boundary
	}
	boundary.Time = (best.Start + best.End) / 2
	boundary.Confidence = math.Min(boundary.Confidence+blackRefineBonus, confidenceCeiling)
	boundary.Source += "+black"
	return boundary
}
