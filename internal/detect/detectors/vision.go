package detectors

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"episplit/internal/detect"
	"episplit/internal/logging"
	"episplit/internal/services/vision"
)

const (
	// DefaultBaseInterval is the coarse sampling interval in seconds.
	DefaultBaseInterval = 10
	// DefaultDenseInterval is the fine sampling interval used once a logo
	// is first observed, so the transition is captured precisely.
	DefaultDenseInterval = 1
	// creditsMinRun filters single-frame noise: a credits sequence must
	// hold for at least this many consecutive samples.
	creditsMinRun = 3
)

// FrameClassifier classifies a single extracted frame.
type FrameClassifier interface {
	ClassifyFrame(ctx context.Context, frame []byte) (vision.FrameClassification, error)
}

// FrameExtractor writes the frame nearest a timestamp as a JPEG.
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, path string, at float64, outPath string) error
}

// FrameSampler couples frame extraction with classification. The precision
// sequencer shares it with the vision detector.
type FrameSampler struct {
	Extractor  FrameExtractor
	Classifier FrameClassifier
	WorkDir    string
}

// Sample extracts and classifies the frame at the given timestamp.
func (s *FrameSampler) Sample(ctx context.Context, path string, at float64) (vision.FrameClassification, error) {
	workDir := s.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	// Parallel window workers share the work dir; the name must be unique.
	frameFile, err := os.CreateTemp(workDir, "frame-*.jpg")
	if err != nil {
		return vision.FrameClassification{}, fmt.Errorf("create frame file: %w", err)
	}
	framePath := frameFile.Name()
	frameFile.Close()
	defer os.Remove(framePath)

	if err := s.Extractor.ExtractFrame(ctx, path, at, framePath); err != nil {
		return vision.FrameClassification{}, fmt.Errorf("extract frame: %w", err)
	}
	frame, err := os.ReadFile(framePath)
	if err != nil {
		return vision.FrameClassification{}, fmt.Errorf("read frame: %w", err)
	}
	return s.Classifier.ClassifyFrame(ctx, frame)
}

// Vision samples frames across the window and classifies them for credits,
// logo, and outro content. Sampling starts at a coarse interval and
// switches to dense sampling once a logo appears, reverting after the
// transition is captured. Each detection is scored by the time interval
// the sampled frame represents.
type Vision struct {
	Sampler       *FrameSampler
	BaseInterval  float64
	DenseInterval float64
	Logger        *slog.Logger
}

// Name implements detect.Detector.
func (v *Vision) Name() string { return "llm_vision" }

// Detect implements detect.Detector.
func (v *Vision) Detect(ctx context.Context, src detect.Source, window detect.Window) ([]detect.Raw, error) {
	logger := logging.WithComponent(v.Logger, "vision-detector")
	base := v.BaseInterval
	if base <= 0 {
		base = DefaultBaseInterval
	}
	dense := v.DenseInterval
	if dense <= 0 {
		dense = DefaultDenseInterval
	}

	var raws []detect.Raw
	interval := base
	logoActive := false

	var creditsRun int
	var creditsLastTrue float64
	var creditsSpanSum float64

	for at := window.Start; at <= window.End; at += interval {
		if err := ctx.Err(); err != nil {
			return raws, err
		}
		classification, err := v.Sampler.Sample(ctx, src.Path, at)
		if err != nil {
			// The classifier retries internally; a persistent failure on one
			// frame must not sink the window.
			logger.Warn("frame classification failed",
				slog.Float64("at", at),
				slog.Int(logging.FieldWindow, window.Index),
				slog.Any("error", err))
			continue
		}

		if classification.Logo {
			raws = append(raws, detect.Raw{
				Timestamp: at,
				Score:     interval,
				Kind:      detect.KindLLMLogo,
				Metadata:  map[string]string{"interval": strconv.FormatFloat(interval, 'f', 1, 64)},
			})
			if !logoActive {
				logoActive = true
				interval = dense
			}
		} else if logoActive {
			// Transition captured; fall back to coarse sampling.
			logoActive = false
			interval = base
		}

		if classification.Outro {
			raws = append(raws, detect.Raw{
				Timestamp: at,
				Score:     interval,
				Kind:      detect.KindLLMOutro,
			})
		}

		if classification.Credits {
			creditsRun++
			creditsLastTrue = at
			creditsSpanSum += interval
		} else {
			if creditsRun >= creditsMinRun {
				raws = append(raws, creditsTransitionRaw(creditsLastTrue, at, creditsRun, creditsSpanSum))
			}
			creditsRun = 0
			creditsSpanSum = 0
		}
	}

	return raws, nil
}

// creditsTransitionRaw places the boundary candidate at the midpoint of the
// credits True to False transition, scored by the seconds the run spanned.
func creditsTransitionRaw(lastTrue, firstFalse float64, run int, spanSum float64) detect.Raw {
	return detect.Raw{
		Timestamp: (lastTrue + firstFalse) / 2,
		Score:     spanSum,
		Kind:      detect.KindLLMCredits,
		Metadata:  map[string]string{"run": strconv.Itoa(run)},
	}
}
