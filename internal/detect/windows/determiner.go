package windows

import (
	"log/slog"
	"math"

	"episplit/internal/detect"
	"episplit/internal/identification"
	"episplit/internal/logging"
	"episplit/internal/media/ffprobe"
	"episplit/internal/services"
)

const (
	// DefaultHalfWidth is the default search window half-width in seconds
	// (5 minutes each side of the predicted boundary).
	DefaultHalfWidth = 300

	confidenceChapters         = 0.9
	confidenceRuntimesChapters = 0.85
	confidenceRuntimes         = 0.8
	confidenceCommercials      = 0.7
	confidenceEqualDivision    = 0.5

	// commercialSnapFactor bounds how far (in half-widths) an equal-division
	// center may snap to a commercial break end.
	commercialSnapFactor = 2

	// refinementBonus is added to a window's confidence when a
	// "Commercial 1" chapter pins its right edge.
	refinementBonus   = 0.1
	confidenceCeiling = 0.95
)

// Options tunes window construction.
type Options struct {
	// HalfWidth is the window half-width in seconds; zero means DefaultHalfWidth.
	HalfWidth float64
}

func (o Options) halfWidth() float64 {
	if o.HalfWidth > 0 {
		return o.HalfWidth
	}
	return DefaultHalfWidth
}

// Determine computes one search window per expected internal boundary
// (episodeCount-1 windows). Runtimes may be nil when the metadata lookup
// failed; chapters may be empty.
func Determine(src detect.Source, episodeCount int, chapters []ffprobe.Chapter, runtimes *identification.EpisodeRuntimes, logger *slog.Logger, opts Options) ([]detect.Window, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.WithComponent(logger, "windows")

	if episodeCount < 2 {
		return nil, services.Wrap(services.ErrDegenerateInput, "windows", "determine", "expected episode count must be at least 2", nil)
	}
	half := opts.halfWidth()
	segment := src.Duration / float64(episodeCount)
	if src.Duration <= 0 || segment <= half {
		return nil, services.Wrap(services.ErrDegenerateInput, "windows", "determine", "file too short for expected episode count", nil)
	}

	layout := classifyChapters(chapters)

	var built []detect.Window
	switch {
	case len(layout.episodes) == episodeCount:
		built = windowsFromEpisodeChapters(layout.episodes, half)
		logger.Info("boundaries taken from episode chapters", slog.Int("count", len(built)))
	case runtimes != nil && len(runtimes.Minutes) == episodeCount:
		built = windowsFromRuntimes(src, runtimes, layout, half)
		logger.Info("windows predicted from expected runtimes",
			slog.Int("count", len(built)),
			slog.String("source", built[0].Source.String()))
	case len(layout.commercials) > 0:
		built = windowsFromCommercials(src, episodeCount, layout, half)
		logger.Info("windows snapped to commercial breaks", slog.Int("count", len(built)))
	default:
		built = windowsFromEqualDivision(src, episodeCount, half)
		logger.Info("windows from equal division", slog.Int("count", len(built)))
	}

	built = refineWithCommercialStarts(built, layout.commercial1Starts, half, logger)

	for i := range built {
		built[i].Index = i
		built[i].EpisodeBefore = i + 1
		built[i].EpisodeAfter = i + 2
		clampWindow(&built[i], src.Duration)
		if built[i].Width() <= 0 || built[i].Center <= 0 || built[i].Center >= src.Duration {
			return nil, services.Wrap(services.ErrDegenerateInput, "windows", "determine", "degenerate window", nil)
		}
		if i > 0 && built[i].Center <= built[i-1].Center {
			return nil, services.Wrap(services.ErrDegenerateInput, "windows", "determine", "window centers regress", nil)
		}
	}
	return built, nil
}

// windowsFromEpisodeChapters builds standalone windows: the chapter marks
// are authoritative, so each window carries its final boundary and phase-2
// detection is skipped.
func windowsFromEpisodeChapters(episodes []ffprobe.Chapter, half float64) []detect.Window {
	built := make([]detect.Window, 0, len(episodes)-1)
	for i := 0; i < len(episodes)-1; i++ {
		current, next := episodes[i], episodes[i+1]
		boundary := next.StartSeconds()
		if end := current.EndSeconds(); end > 0 && end <= boundary {
			boundary = (end + next.StartSeconds()) / 2
		}
		built = append(built, detect.Window{
			Start:        boundary - half,
			Center:       boundary,
			End:          boundary + half,
			Source:       detect.WindowFromChapters,
			Confidence:   confidenceChapters,
			Standalone:   true,
			BoundaryTime: boundary,
		})
	}
	return built
}

// windowsFromRuntimes predicts boundaries from cumulative expected episode
// runtimes plus observed commercial time, pro-rating any mismatch between
// the expected total and the actual file duration across all episodes.
func windowsFromRuntimes(src detect.Source, runtimes *identification.EpisodeRuntimes, layout chapterLayout, half float64) []detect.Window {
	episodeCount := len(runtimes.Minutes)

	commercialTotal := 0.0
	for _, chapter := range layout.commercials {
		commercialTotal += chapter.EndSeconds() - chapter.StartSeconds()
	}
	commercialShare := commercialTotal / float64(episodeCount)

	expectedTotal := runtimes.TotalSeconds() + commercialTotal
	scale := 1.0
	if expectedTotal > 0 {
		scale = src.Duration / expectedTotal
	}

	source := detect.WindowFromRuntimes
	confidence := confidenceRuntimes
	if commercialTotal > 0 {
		source = detect.WindowFromRuntimesAndChapters
		confidence = confidenceRuntimesChapters
	}

	built := make([]detect.Window, 0, episodeCount-1)
	cumulative := 0.0
	for i := 0; i < episodeCount-1; i++ {
		cumulative += float64(runtimes.Minutes[i])*60 + commercialShare
		center := cumulative * scale
		built = append(built, detect.Window{
			Start:      center - half,
			Center:     center,
			End:        center + half,
			Source:     source,
			Confidence: confidence,
		})
	}
	return built
}

// windowsFromCommercials snaps equal-division estimates to the nearest
// commercial break end within reach; unsnapped windows stay at the
// equal-division estimate and confidence.
func windowsFromCommercials(src detect.Source, episodeCount int, layout chapterLayout, half float64) []detect.Window {
	built := windowsFromEqualDivision(src, episodeCount, half)
	maxSnap := commercialSnapFactor * half

	for i := range built {
		bestDistance := math.Inf(1)
		bestEnd := 0.0
		for _, chapter := range layout.commercials {
			end := chapter.EndSeconds()
			distance := math.Abs(end - built[i].Center)
			if distance < bestDistance {
				bestDistance = distance
				bestEnd = end
			}
		}
		if bestDistance <= maxSnap {
			built[i].Center = bestEnd
			built[i].Start = bestEnd - half
			built[i].End = bestEnd + half
			built[i].Source = detect.WindowFromCommercials
			built[i].Confidence = confidenceCommercials
		}
	}
	return built
}

func windowsFromEqualDivision(src detect.Source, episodeCount int, half float64) []detect.Window {
	segment := src.Duration / float64(episodeCount)
	built := make([]detect.Window, 0, episodeCount-1)
	for i := 1; i < episodeCount; i++ {
		center := segment * float64(i)
		built = append(built, detect.Window{
			Start:      center - half,
			Center:     center,
			End:        center + half,
			Source:     detect.WindowFromEqualDivision,
			Confidence: confidenceEqualDivision,
		})
	}
	return built
}

// refineWithCommercialStarts pins a window's right edge to a "Commercial 1"
// chapter start: the first break of the next episode cannot precede the
// boundary, so the boundary must lie before it.
func refineWithCommercialStarts(built []detect.Window, starts []float64, half float64, logger *slog.Logger) []detect.Window {
	if len(starts) == 0 {
		return built
	}
	for i := range built {
		if built[i].Standalone {
			continue
		}
		for _, start := range starts {
			if math.Abs(start-built[i].Center) > commercialSnapFactor*half {
				continue
			}
			built[i].End = start
			built[i].Center = start - half/2
			built[i].Start = start - commercialSnapFactor*half
			built[i].Confidence = math.Min(confidenceCeiling, built[i].Confidence+refinementBonus)
			logger.Debug("window refined by first commercial break",
				slog.Int(logging.FieldWindow, i),
				slog.Float64("break_start", start))
			break
		}
	}
	return built
}

func clampWindow(window *detect.Window, duration float64) {
	if window.Start < 0 {
		window.Start = 0
	}
	if window.End > duration {
		window.End = duration
	}
}
