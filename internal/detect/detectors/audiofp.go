package detectors

import (
	"context"
	"encoding/json"
	"fmt"
	"math/bits"
	"os"
	"strconv"
	"sync"

	"episplit/internal/detect"
	"episplit/internal/media/ffmpeg"
)

const (
	fpRegionSeconds   = 60
	fpMatchThreshold  = 0.4
	fpReferenceOffset = 5
)

// AudioFingerprint confirms episode starts by matching the recurring intro
// music. It extracts short audio regions, fingerprints them with fpcalc,
// and slides the reference fingerprint across each candidate region. Like
// the image hash detector it only confirms, so the clusterer ignores it.
type AudioFingerprint struct {
	Extractor AudioExtractor
	Runner    ffmpeg.CommandRunner
	Binary    string
	WorkDir   string

	referenceOnce sync.Once
	reference     []uint32
	referenceErr  error
}

// Name implements detect.Detector.
func (d *AudioFingerprint) Name() string { return detect.KindAudioFingerprint.String() }

// Detect implements detect.Detector.
func (d *AudioFingerprint) Detect(ctx context.Context, src detect.Source, window detect.Window) ([]detect.Raw, error) {
	d.referenceOnce.Do(func() {
		d.reference, d.referenceErr = d.fingerprintRegion(ctx, src.Path, fpReferenceOffset, fpRegionSeconds)
	})
	if d.referenceErr != nil {
		return nil, fmt.Errorf("audio fingerprint: reference region: %w", d.referenceErr)
	}
	if len(d.reference) == 0 {
		return nil, nil
	}

	length := window.End - window.Center
	candidate, err := d.fingerprintRegion(ctx, src.Path, window.Center, length)
	if err != nil {
		return nil, fmt.Errorf("audio fingerprint: candidate region: %w", err)
	}
	if len(candidate) < len(d.reference) {
		return nil, nil
	}

	bestScore, bestOffset := bestAlignment(d.reference, candidate)
	if bestScore < fpMatchThreshold {
		return nil, nil
	}

	// fpcalc emits roughly 8 fingerprint items per second of audio.
	matchAt := window.Center + float64(bestOffset)/8
	return []detect.Raw{{
		Timestamp: matchAt,
		Score:     bestScore * fpRegionSeconds,
		Kind:      detect.KindAudioFingerprint,
		Metadata:  map[string]string{"match": strconv.FormatFloat(bestScore, 'f', 2, 64)},
	}}, nil
}

func (d *AudioFingerprint) fingerprintRegion(ctx context.Context, path string, start, length float64) ([]uint32, error) {
	if length <= 0 {
		return nil, nil
	}
	workDir := d.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	wavFile, err := os.CreateTemp(workDir, "audiofp-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create audio file: %w", err)
	}
	wavPath := wavFile.Name()
	wavFile.Close()
	defer os.Remove(wavPath)

	if err := d.Extractor.ExtractAudioSegment(ctx, path, start, length, wavPath); err != nil {
		return nil, fmt.Errorf("extract audio: %w", err)
	}

	binary := d.Binary
	if binary == "" {
		binary = "fpcalc"
	}
	output, err := d.Runner.CombinedOutput(ctx, binary, "-raw", "-json", wavPath)
	if err != nil {
		return nil, fmt.Errorf("fpcalc: %w", err)
	}

	var result struct {
		Fingerprint []uint32 `json:"fingerprint"`
	}
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("fpcalc output: %w", err)
	}
	return result.Fingerprint, nil
}

// bestAlignment slides reference across candidate and returns the highest
// normalized similarity and the offset where it occurred. Per-item
// similarity is 1 minus the hamming fraction; random fingerprints score
// around 0.5, so the mean is rescaled to put chance at 0.
func bestAlignment(reference, candidate []uint32) (float64, int) {
	bestScore := 0.0
	bestOffset := 0
	for offset := 0; offset+len(reference) <= len(candidate); offset++ {
		var sum float64
		for i, ref := range reference {
			distance := bits.OnesCount32(ref ^ candidate[offset+i])
			sum += 1 - float64(distance)/32
		}
		mean := sum / float64(len(reference))
		score := (mean - 0.5) * 2
		if score > bestScore {
			bestScore = score
			bestOffset = offset
		}
	}
	return bestScore, bestOffset
}
