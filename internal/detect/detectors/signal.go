package detectors

import (
	"context"
	"fmt"
	"strconv"

	"episplit/internal/detect"
	"episplit/internal/media/ffmpeg"
)

// durationScoreFactor converts a silent or black span's length into a
// detection score: a 2.5s span scores 25.
const durationScoreFactor = 10

// SilenceScanner is the slice of the ffmpeg scanner the silence detector needs.
type SilenceScanner interface {
	SilenceScan(ctx context.Context, path string, start, duration, thresholdDB, minDuration float64) ([]ffmpeg.Interval, error)
}

// BlackScanner is the slice of the ffmpeg scanner the black-frame detector needs.
type BlackScanner interface {
	BlackScan(ctx context.Context, path string, start, duration, minDuration float64) ([]ffmpeg.Interval, error)
}

// SceneScanner is the slice of the ffmpeg scanner the scene-change detector needs.
type SceneScanner interface {
	SceneScan(ctx context.Context, path string, start, duration, threshold float64) ([]ffmpeg.SceneChange, error)
}

// Silence detects silent audio spans; long silences around a boundary are
// strong evidence of an episode gap.
type Silence struct {
	Scanner     SilenceScanner
	ThresholdDB float64
	MinDuration float64
}

// Name implements detect.Detector.
func (s *Silence) Name() string { return detect.KindSilence.String() }

// Detect implements detect.Detector.
func (s *Silence) Detect(ctx context.Context, src detect.Source, window detect.Window) ([]detect.Raw, error) {
	intervals, err := s.Scanner.SilenceScan(ctx, src.Path, window.Start, window.Width(), s.ThresholdDB, s.MinDuration)
	if err != nil {
		return nil, fmt.Errorf("silence detect: %w", err)
	}
	return intervalsToRaw(intervals, detect.KindSilence, window), nil
}

// Black detects black-frame video spans.
type Black struct {
	Scanner     BlackScanner
	MinDuration float64
}

// Name implements detect.Detector.
func (b *Black) Name() string { return detect.KindBlackFrame.String() }

// Detect implements detect.Detector.
func (b *Black) Detect(ctx context.Context, src detect.Source, window detect.Window) ([]detect.Raw, error) {
	intervals, err := b.Scanner.BlackScan(ctx, src.Path, window.Start, window.Width(), b.MinDuration)
	if err != nil {
		return nil, fmt.Errorf("black detect: %w", err)
	}
	return intervalsToRaw(intervals, detect.KindBlackFrame, window), nil
}

// Scene detects hard scene changes; the magnitude scales the score.
type Scene struct {
	Scanner   SceneScanner
	Threshold float64
}

// Name implements detect.Detector.
func (s *Scene) Name() string { return detect.KindSceneChange.String() }

// Detect implements detect.Detector.
func (s *Scene) Detect(ctx context.Context, src detect.Source, window detect.Window) ([]detect.Raw, error) {
	changes, err := s.Scanner.SceneScan(ctx, src.Path, window.Start, window.Width(), s.Threshold)
	if err != nil {
		return nil, fmt.Errorf("scene detect: %w", err)
	}
	raws := make([]detect.Raw, 0, len(changes))
	for _, change := range changes {
		if !window.Contains(change.Time) {
			continue
		}
		raws = append(raws, detect.Raw{
			Timestamp: change.Time,
			Score:     change.Score * 100,
			Kind:      detect.KindSceneChange,
			Metadata:  map[string]string{"magnitude": strconv.FormatFloat(change.Score, 'f', 3, 64)},
		})
	}
	return raws, nil
}

// intervalsToRaw emits one detection per interval at its midpoint, scored
// by duration.
func intervalsToRaw(intervals []ffmpeg.Interval, kind detect.Kind, window detect.Window) []detect.Raw {
	raws := make([]detect.Raw, 0, len(intervals))
	for _, interval := range intervals {
		midpoint := (interval.Start + interval.End) / 2
		if !window.Contains(midpoint) {
			continue
		}
		raws = append(raws, detect.Raw{
			Timestamp: midpoint,
			Score:     interval.Duration() * durationScoreFactor,
			Kind:      kind,
			Metadata: map[string]string{
				"span_start": strconv.FormatFloat(interval.Start, 'f', 3, 64),
				"span_end":   strconv.FormatFloat(interval.End, 'f', 3, 64),
			},
		})
	}
	return raws
}
