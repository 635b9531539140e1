package boundary

import (
	"fmt"
	"log/slog"

	"episplit/internal/detect/detectors"
	"episplit/internal/logging"
	"episplit/internal/services"
)

const (
	// inferredFinalFactor scales the confidence of the trailing episode,
	// which has no detected boundary of its own.
	inferredFinalFactor = 0.9
	// minRemainderFactor is the fraction of the minimum episode length a
	// trailing remainder must reach to count as a final episode.
	minRemainderFactor = 0.5
)

// Candidate is one window's winning boundary before validation.
type Candidate struct {
	WindowIndex int
	Time        float64
	Confidence  float64
	Source      string
	// PhraseTime is the end of an episode-end cue phrase heard in the
	// window, when one exists. Boundaries far after the phrase are
	// penalized.
	PhraseTime float64
	HasPhrase  bool
	// Failed marks a window that produced no detection at all.
	Failed bool
}

// Episode is one cut in the final plan.
type Episode struct {
	Index      int
	Start      float64
	Duration   float64
	Confidence float64
	// Inferred marks the trailing episode, which ends at the file end
	// rather than at a detected boundary.
	Inferred bool
}

// End returns the episode's end timestamp.
func (e Episode) End() float64 { return e.Start + e.Duration }

// Constraints are the duration rules the cut plan is validated against.
// Violations warn; they are never auto-corrected.
type Constraints struct {
	MinEpisodeLength float64
	MaxEpisodeLength float64
}

// Plan is the validated, ordered cut list.
type Plan struct {
	Episodes []Episode
	Warnings []string
}

// Resolve turns per-window winning boundaries into the final cut plan.
// Boundaries must be strictly increasing; an inversion is fatal and leaves
// the source untouched. Episodes shorter than the minimum or longer than
// the maximum are reported as warnings for the operator. The stretch after
// the last boundary becomes an inferred final episode when it is long
// enough to plausibly be one, otherwise it is folded into the last episode.
func Resolve(candidates []Candidate, duration float64, constraints Constraints, logger *slog.Logger) (Plan, error) {
	log := logging.WithComponent(logger, "resolver")

	var failed []int
	for _, candidate := range candidates {
		if candidate.Failed {
			failed = append(failed, candidate.WindowIndex)
		}
	}
	if len(failed) > 0 {
		return Plan{}, services.Wrap(services.ErrNoDetection, "resolver", "resolve",
			fmt.Sprintf("%d of %d boundaries unresolved (windows %v)", len(failed), len(candidates), failed), nil)
	}
	if len(candidates) == 0 {
		return Plan{}, services.Wrap(services.ErrNoDetection, "resolver", "resolve", "no boundaries to resolve", nil)
	}

	previous := 0.0
	for _, candidate := range candidates {
		if candidate.Time <= previous {
			return Plan{}, services.Wrap(services.ErrConstraint, "resolver", "resolve",
				fmt.Sprintf("boundary %.1fs in window %d does not increase past %.1fs",
					candidate.Time, candidate.WindowIndex, previous), nil)
		}
		if candidate.Time >= duration {
			return Plan{}, services.Wrap(services.ErrConstraint, "resolver", "resolve",
				fmt.Sprintf("boundary %.1fs in window %d lies beyond the file end %.1fs",
					candidate.Time, candidate.WindowIndex, duration), nil)
		}
		previous = candidate.Time
	}

	plan := Plan{}
	start := 0.0
	for i, candidate := range candidates {
		confidence := candidate.Confidence
		if candidate.HasPhrase {
			penalty := detectors.SpeechPenalty(candidate.PhraseTime, candidate.Time)
			if penalty < 1 {
				log.Info("speech cue penalty applied",
					slog.Int(logging.FieldWindow, candidate.WindowIndex),
					slog.Float64("penalty", penalty))
				confidence *= penalty
			}
		}
		episode := Episode{Index: i, Start: start, Duration: candidate.Time - start, Confidence: confidence}
		plan.warnOnLength(episode, constraints, log)
		plan.Episodes = append(plan.Episodes, episode)
		start = candidate.Time
	}

	remainder := duration - start
	last := &plan.Episodes[len(plan.Episodes)-1]
	if remainder >= minRemainderFactor*constraints.MinEpisodeLength {
		final := Episode{
			Index:      len(plan.Episodes),
			Start:      start,
			Duration:   remainder,
			Confidence: last.Confidence * inferredFinalFactor,
			Inferred:   true,
		}
		plan.warnOnLength(final, constraints, log)
		plan.Episodes = append(plan.Episodes, final)
	} else {
		plan.warn(log, fmt.Sprintf("trailing %.1fs remainder folded into episode %d", remainder, last.Index+1))
		last.Duration += remainder
	}

	return plan, nil
}

func (p *Plan) warnOnLength(episode Episode, constraints Constraints, log *slog.Logger) {
	if constraints.MinEpisodeLength > 0 && episode.Duration < constraints.MinEpisodeLength {
		p.warn(log, fmt.Sprintf("episode %d runs %.1fs, under the %.0fs minimum",
			episode.Index+1, episode.Duration, constraints.MinEpisodeLength))
	}
	if constraints.MaxEpisodeLength > 0 && episode.Duration > constraints.MaxEpisodeLength {
		p.warn(log, fmt.Sprintf("episode %d runs %.1fs, over the %.0fs maximum",
			episode.Index+1, episode.Duration, constraints.MaxEpisodeLength))
	}
}

func (p *Plan) warn(log *slog.Logger, message string) {
	log.Warn(message)
	p.Warnings = append(p.Warnings, message)
}
