package ffmpeg

import (
	"context"
	"math"
	"strings"
	"testing"
)

const silenceOutput = `
[silencedetect @ 0x55] silence_start: 110.52
[silencedetect @ 0x55] silence_end: 113.04 | silence_duration: 2.52
[silencedetect @ 0x55] silence_start: 290.1
`

func TestParseSilenceAppliesOffsetAndDropsUnterminated(t *testing.T) {
	intervals := parseSilence(silenceOutput, 3000)
	if len(intervals) != 1 {
		t.Fatalf("expected 1 interval, got %d", len(intervals))
	}
	got := intervals[0]
	if math.Abs(got.Start-3110.52) > 1e-9 || math.Abs(got.End-3113.04) > 1e-9 {
		t.Fatalf("unexpected interval %+v", got)
	}
	if math.Abs(got.Duration()-2.52) > 1e-9 {
		t.Fatalf("unexpected duration %v", got.Duration())
	}
}

func TestParseBlack(t *testing.T) {
	output := `[blackdetect @ 0x55] black_start: 12.5 black_end: 14.25 black_duration: 1.75`
	intervals := parseBlack(output, 100)
	if len(intervals) != 1 {
		t.Fatalf("expected 1 interval, got %d", len(intervals))
	}
	if intervals[0].Start != 112.5 || intervals[0].End != 114.25 {
		t.Fatalf("unexpected interval %+v", intervals[0])
	}
}

const sceneOutput = `
[Parsed_metadata_1 @ 0x55] frame:0    pts:312500  pts_time:12.5
[Parsed_metadata_1 @ 0x55] lavfi.scene_score=0.612
[Parsed_metadata_1 @ 0x55] frame:1    pts:515000  pts_time:20.6
[Parsed_metadata_1 @ 0x55] lavfi.scene_score=0.43
`

func TestParseScenePairsTimeWithScore(t *testing.T) {
	changes := parseScene(sceneOutput, 0)
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}
	if changes[0].Time != 12.5 || changes[0].Score != 0.612 {
		t.Fatalf("unexpected first change %+v", changes[0])
	}
	if changes[1].Time != 20.6 || changes[1].Score != 0.43 {
		t.Fatalf("unexpected second change %+v", changes[1])
	}
}

type fakeRunner struct {
	output []byte
	args   []string
}

func (f *fakeRunner) CombinedOutput(_ context.Context, _ string, args ...string) ([]byte, error) {
	f.args = args
	return f.output, nil
}

func TestSilenceScanBuildsFilterAndOffsets(t *testing.T) {
	runner := &fakeRunner{output: []byte(silenceOutput)}
	scanner := NewScanner("ffmpeg", WithRunner(runner))

	intervals, err := scanner.SilenceScan(context.Background(), "show.mkv", 3000, 600, -50, 1.5)
	if err != nil {
		t.Fatalf("SilenceScan: %v", err)
	}
	if len(intervals) != 1 {
		t.Fatalf("expected 1 interval, got %d", len(intervals))
	}
	joined := strings.Join(runner.args, " ")
	if !strings.Contains(joined, "-ss 3000") || !strings.Contains(joined, "-t 600") {
		t.Fatalf("expected seek args, got %q", joined)
	}
	if !strings.Contains(joined, "silencedetect=noise=-50dB:d=1.5") {
		t.Fatalf("expected silencedetect filter, got %q", joined)
	}
}
