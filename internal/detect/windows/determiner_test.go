package windows

import (
	"errors"
	"math"
	"strconv"
	"testing"

	"episplit/internal/detect"
	"episplit/internal/identification"
	"episplit/internal/media/ffprobe"
	"episplit/internal/services"
)

func chapter(title string, start, end float64) ffprobe.Chapter {
	return ffprobe.Chapter{
		StartTime: strconv.FormatFloat(start, 'f', 6, 64),
		EndTime:   strconv.FormatFloat(end, 'f', 6, 64),
		Tags:      map[string]string{"title": title},
	}
}

func TestDetermineFromEpisodeChaptersIsStandalone(t *testing.T) {
	src := detect.Source{Path: "show.mkv", Duration: 4230}
	chapters := []ffprobe.Chapter{
		chapter("Episode 1", 0, 1410),
		chapter("Episode 2", 1410, 2820),
		chapter("Episode 3", 2820, 4230),
	}
	built, err := Determine(src, 3, chapters, nil, nil, Options{})
	if err != nil {
		t.Fatalf("Determine: %v", err)
	}
	if len(built) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(built))
	}
	for i, window := range built {
		if !window.Standalone {
			t.Fatalf("window %d should be standalone", i)
		}
		if window.Source != detect.WindowFromChapters {
			t.Fatalf("window %d source = %v", i, window.Source)
		}
		if window.Confidence != 0.9 {
			t.Fatalf("window %d confidence = %v", i, window.Confidence)
		}
	}
	if math.Abs(built[0].BoundaryTime-1410) > 1e-9 {
		t.Fatalf("boundary 0 = %v, want 1410", built[0].BoundaryTime)
	}
	if math.Abs(built[1].BoundaryTime-2820) > 1e-9 {
		t.Fatalf("boundary 1 = %v, want 2820", built[1].BoundaryTime)
	}
}

func TestDetermineFromRuntimesCentersAtCumulativeSums(t *testing.T) {
	// 175-minute file, three episodes of 58/59/58 minutes, no commercials.
	src := detect.Source{Path: "show.mkv", Duration: 175 * 60}
	runtimes := &identification.EpisodeRuntimes{Minutes: []int{58, 59, 58}}

	built, err := Determine(src, 3, nil, runtimes, nil, Options{})
	if err != nil {
		t.Fatalf("Determine: %v", err)
	}
	if len(built) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(built))
	}
	if built[0].Source != detect.WindowFromRuntimes || built[0].Confidence != 0.8 {
		t.Fatalf("unexpected source/confidence %v/%v", built[0].Source, built[0].Confidence)
	}
	if math.Abs(built[0].Center-58*60) > 300 {
		t.Fatalf("window 0 center %v not within 5m of 58m", built[0].Center)
	}
	if math.Abs(built[1].Center-117*60) > 300 {
		t.Fatalf("window 1 center %v not within 5m of 117m", built[1].Center)
	}
	for _, window := range built {
		if window.Start < 0 || window.End > src.Duration {
			t.Fatalf("window %+v exceeds file bounds", window)
		}
	}
}

func TestDetermineProRatesDurationMismatch(t *testing.T) {
	// Expected total 120m but the file is 130m: predictions scale by 13/12.
	src := detect.Source{Path: "show.mkv", Duration: 130 * 60}
	runtimes := &identification.EpisodeRuntimes{Minutes: []int{60, 60}}

	built, err := Determine(src, 2, nil, runtimes, nil, Options{})
	if err != nil {
		t.Fatalf("Determine: %v", err)
	}
	want := 60.0 * 60 * (130.0 / 120.0)
	if math.Abs(built[0].Center-want) > 1e-6 {
		t.Fatalf("center = %v, want %v", built[0].Center, want)
	}
}

func TestDetermineEqualDivisionFallback(t *testing.T) {
	src := detect.Source{Path: "show.mkv", Duration: 5400}
	built, err := Determine(src, 3, nil, nil, nil, Options{})
	if err != nil {
		t.Fatalf("Determine: %v", err)
	}
	if built[0].Source != detect.WindowFromEqualDivision || built[0].Confidence != 0.5 {
		t.Fatalf("unexpected source/confidence %v/%v", built[0].Source, built[0].Confidence)
	}
	if math.Abs(built[0].Center-1800) > 1e-9 || math.Abs(built[1].Center-3600) > 1e-9 {
		t.Fatalf("unexpected centers %v/%v", built[0].Center, built[1].Center)
	}
}

func TestDetermineSnapsToCommercialBreaks(t *testing.T) {
	src := detect.Source{Path: "show.mkv", Duration: 3600}
	chapters := []ffprobe.Chapter{
		chapter("Commercial 2", 1700, 1820),
	}
	built, err := Determine(src, 2, chapters, nil, nil, Options{})
	if err != nil {
		t.Fatalf("Determine: %v", err)
	}
	if built[0].Source != detect.WindowFromCommercials {
		t.Fatalf("source = %v", built[0].Source)
	}
	if math.Abs(built[0].Center-1820) > 1e-9 {
		t.Fatalf("center = %v, want snap to 1820", built[0].Center)
	}
	if built[0].Confidence != 0.7 {
		t.Fatalf("confidence = %v", built[0].Confidence)
	}
}

func TestDetermineRejectsShortFiles(t *testing.T) {
	src := detect.Source{Path: "short.mkv", Duration: 600}
	_, err := Determine(src, 3, nil, nil, nil, Options{})
	if err == nil {
		t.Fatal("expected degenerate input error")
	}
	if !errors.Is(err, services.ErrDegenerateInput) {
		t.Fatalf("expected degenerate input marker, got %v", err)
	}
}

func TestDetermineRejectsSingleEpisode(t *testing.T) {
	src := detect.Source{Path: "show.mkv", Duration: 3600}
	if _, err := Determine(src, 1, nil, nil, nil, Options{}); err == nil {
		t.Fatal("expected error for single-episode file")
	}
}
