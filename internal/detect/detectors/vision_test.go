package detectors

import (
	"context"
	"os"
	"strconv"
	"sync"
	"testing"

	"episplit/internal/detect"
	"episplit/internal/logging"
	"episplit/internal/services/vision"
)

// stampExtractor writes the requested timestamp as the frame payload so the
// classifier can key its answers off it.
type stampExtractor struct{}

func (stampExtractor) ExtractFrame(_ context.Context, _ string, at float64, outPath string) error {
	return os.WriteFile(outPath, []byte(strconv.FormatFloat(at, 'f', 3, 64)), 0o644)
}

type stampClassifier struct {
	classify func(at float64) vision.FrameClassification
}

func (c *stampClassifier) ClassifyFrame(_ context.Context, frame []byte) (vision.FrameClassification, error) {
	at, err := strconv.ParseFloat(string(frame), 64)
	if err != nil {
		return vision.FrameClassification{}, err
	}
	return c.classify(at), nil
}

func newVision(t *testing.T, classify func(at float64) vision.FrameClassification) *Vision {
	t.Helper()
	return &Vision{
		Sampler: &FrameSampler{
			Extractor:  stampExtractor{},
			Classifier: &stampClassifier{classify: classify},
			WorkDir:    t.TempDir(),
		},
		Logger: logging.NewNop(),
	}
}

// pathRecordingExtractor records every frame path it is asked to write.
type pathRecordingExtractor struct {
	mu    sync.Mutex
	paths []string
}

func (e *pathRecordingExtractor) ExtractFrame(_ context.Context, _ string, at float64, outPath string) error {
	e.mu.Lock()
	e.paths = append(e.paths, outPath)
	e.mu.Unlock()
	return os.WriteFile(outPath, []byte(strconv.FormatFloat(at, 'f', 3, 64)), 0o644)
}

func TestFrameSamplerUsesUniqueFramePaths(t *testing.T) {
	extractor := &pathRecordingExtractor{}
	sampler := &FrameSampler{
		Extractor: extractor,
		Classifier: &stampClassifier{classify: func(float64) vision.FrameClassification {
			return vision.FrameClassification{}
		}},
		WorkDir: t.TempDir(),
	}

	for i := 0; i < 2; i++ {
		if _, err := sampler.Sample(context.Background(), "file.mkv", 300); err != nil {
			t.Fatalf("Sample: %v", err)
		}
	}

	if len(extractor.paths) != 2 {
		t.Fatalf("expected 2 extractions, got %d", len(extractor.paths))
	}
	if extractor.paths[0] == extractor.paths[1] {
		t.Fatalf("same timestamp reused frame path %s", extractor.paths[0])
	}
	for _, path := range extractor.paths {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Errorf("frame file %s not removed after sampling", path)
		}
	}
}

func TestVisionDensifiesAroundLogo(t *testing.T) {
	detector := newVision(t, func(at float64) vision.FrameClassification {
		return vision.FrameClassification{Logo: at >= 30 && at <= 33}
	})

	window := detect.Window{Start: 0, Center: 30, End: 60}
	raws, err := detector.Detect(context.Background(), detect.Source{Path: "file.mkv"}, window)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}

	var logos []detect.Raw
	for _, raw := range raws {
		if raw.Kind == detect.KindLLMLogo {
			logos = append(logos, raw)
		}
	}
	if len(logos) != 4 {
		t.Fatalf("expected 4 logo detections (30,31,32,33), got %d", len(logos))
	}
	if logos[0].Timestamp != 30 || logos[0].Score != DefaultBaseInterval {
		t.Errorf("first logo = %f score %f, want 30 at coarse interval score", logos[0].Timestamp, logos[0].Score)
	}
	for _, raw := range logos[1:] {
		if raw.Score != DefaultDenseInterval {
			t.Errorf("dense logo at %f scored %f, want %d", raw.Timestamp, raw.Score, DefaultDenseInterval)
		}
	}
}

func TestVisionEmitsCreditsTransitionMidpoint(t *testing.T) {
	detector := newVision(t, func(at float64) vision.FrameClassification {
		return vision.FrameClassification{Credits: at >= 20 && at <= 40}
	})

	window := detect.Window{Start: 0, Center: 30, End: 60}
	raws, err := detector.Detect(context.Background(), detect.Source{Path: "file.mkv"}, window)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(raws) != 1 {
		t.Fatalf("expected 1 credits transition, got %d detections", len(raws))
	}
	raw := raws[0]
	if raw.Kind != detect.KindLLMCredits {
		t.Fatalf("kind = %s, want llm_credits", raw.Kind)
	}
	if raw.Timestamp != 45 {
		t.Errorf("timestamp = %f, want midpoint of 40 and 50", raw.Timestamp)
	}
	if raw.Score != 30 {
		t.Errorf("score = %f, want 3 samples x 10s interval", raw.Score)
	}
}

func TestVisionIgnoresShortCreditsRuns(t *testing.T) {
	detector := newVision(t, func(at float64) vision.FrameClassification {
		return vision.FrameClassification{Credits: at == 20 || at == 30}
	})

	window := detect.Window{Start: 0, Center: 30, End: 60}
	raws, err := detector.Detect(context.Background(), detect.Source{Path: "file.mkv"}, window)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(raws) != 0 {
		t.Fatalf("expected a 2-sample run to be dropped, got %d detections", len(raws))
	}
}
