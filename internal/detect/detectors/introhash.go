package detectors

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"os"
	"strconv"
	"sync"

	"episplit/internal/detect"
)

const (
	introRegionSeconds   = 90
	introFrameInterval   = 3
	introMatchThreshold  = 0.7
	introMinConsecutive  = 3
	introMaxGapFactor    = 1.5
	introReferenceOffset = 5
)

type frameHashes struct {
	at   float64
	avg  Hash64
	diff Hash64
}

// IntroHash confirms episode starts by matching recurring intro imagery:
// frames after a candidate boundary are hashed and compared against the
// first episode's intro region. Its detections are confirmations, not
// boundary evidence, so the clusterer ignores them.
type IntroHash struct {
	Extractor FrameExtractor
	WorkDir   string

	referenceOnce sync.Once
	reference     []frameHashes
	referenceErr  error
}

// Name implements detect.Detector.
func (d *IntroHash) Name() string { return detect.KindImageHash.String() }

// Detect implements detect.Detector.
func (d *IntroHash) Detect(ctx context.Context, src detect.Source, window detect.Window) ([]detect.Raw, error) {
	d.referenceOnce.Do(func() {
		d.reference, d.referenceErr = d.hashRegion(ctx, src.Path, introReferenceOffset, introRegionSeconds)
	})
	if d.referenceErr != nil {
		return nil, fmt.Errorf("intro hash: reference region: %w", d.referenceErr)
	}
	if len(d.reference) == 0 {
		return nil, nil
	}

	// Candidate episode starts lie in the right half of the window.
	candidates, err := d.hashRegion(ctx, src.Path, window.Center, window.End-window.Center)
	if err != nil {
		return nil, fmt.Errorf("intro hash: candidate region: %w", err)
	}

	var matches []float64
	for _, candidate := range candidates {
		best := 0.0
		for _, ref := range d.reference {
			similarity := FrameSimilarity(candidate.avg, candidate.diff, ref.avg, ref.diff)
			if similarity > best {
				best = similarity
			}
		}
		if best >= introMatchThreshold {
			matches = append(matches, candidate.at)
		}
	}

	var raws []detect.Raw
	maxGap := introMaxGapFactor * introFrameInterval
	runStart := 0
	for i := 1; i <= len(matches); i++ {
		if i < len(matches) && matches[i]-matches[i-1] <= maxGap {
			continue
		}
		run := matches[runStart:i]
		if len(run) >= introMinConsecutive {
			raws = append(raws, detect.Raw{
				Timestamp: run[0],
				Score:     float64(len(run)) * introFrameInterval,
				Kind:      detect.KindImageHash,
				Metadata:  map[string]string{"matched_frames": strconv.Itoa(len(run))},
			})
		}
		runStart = i
	}
	return raws, nil
}

func (d *IntroHash) hashRegion(ctx context.Context, path string, start, length float64) ([]frameHashes, error) {
	if length <= 0 {
		return nil, nil
	}
	workDir := d.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	var hashes []frameHashes
	for at := start; at < start+length; at += introFrameInterval {
		if err := ctx.Err(); err != nil {
			return hashes, err
		}
		frameFile, err := os.CreateTemp(workDir, "introhash-*.jpg")
		if err != nil {
			return hashes, fmt.Errorf("create frame file: %w", err)
		}
		framePath := frameFile.Name()
		frameFile.Close()
		if err := d.Extractor.ExtractFrame(ctx, path, at, framePath); err != nil {
			os.Remove(framePath)
			continue
		}
		img, err := decodeImage(framePath)
		os.Remove(framePath)
		if err != nil {
			continue
		}
		hashes = append(hashes, frameHashes{at: at, avg: AverageHash(img), diff: DifferenceHash(img)})
	}
	return hashes, nil
}

func decodeImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	return img, err
}
