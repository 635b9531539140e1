package splitter

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"episplit/internal/boundary"
	"episplit/internal/identification"
	"episplit/internal/logging"
)

type recordingRunner struct {
	calls [][]string
	fail  bool
}

func (r *recordingRunner) CombinedOutput(_ context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	if r.fail {
		return []byte("muxing failed"), errors.New("exit status 1")
	}
	return nil, nil
}

func testInfo() identification.FileInfo {
	return identification.FileInfo{
		Title:        "some show",
		Season:       1,
		FirstEpisode: 4,
		EpisodeCount: 3,
		Parsed:       true,
	}
}

func TestNamerHonorsFirstEpisodeOffset(t *testing.T) {
	namer := Namer{OutputDir: "/out"}

	name := namer.Name("/media/Some.Show.S01E04-E06.mkv", testInfo(), 2)
	if name.Episode != 6 {
		t.Errorf("episode = %d, want 6", name.Episode)
	}
	if filepath.Base(name.Path) != "Some Show - S01E06.mkv" {
		t.Errorf("path = %q, want Some Show - S01E06.mkv", name.Path)
	}
}

func TestNamerSeasonDirs(t *testing.T) {
	namer := Namer{OutputDir: "/out", SeasonDirs: true}

	name := namer.Name("/media/Some.Show.S01E04-E06.mkv", testInfo(), 0)
	if filepath.Dir(name.Path) != filepath.Join("/out", "Season 01") {
		t.Errorf("directory = %q, want /out/Season 01", filepath.Dir(name.Path))
	}
}

func TestNamerKeepsAcronyms(t *testing.T) {
	info := testInfo()
	info.Title = "NCIS los angeles"

	name := Namer{OutputDir: "/out"}.Name("/media/src.mkv", info, 0)
	if !strings.HasPrefix(filepath.Base(name.Path), "NCIS Los Angeles") {
		t.Errorf("path = %q, want NCIS preserved", name.Path)
	}
}

func TestBuildPlanEmitsStreamCopyJobs(t *testing.T) {
	splitter := New(Namer{OutputDir: "/out"}, logging.NewNop())
	episodes := []boundary.Episode{
		{Index: 0, Start: 0, Duration: 3480},
		{Index: 1, Start: 3480, Duration: 3540},
		{Index: 2, Start: 7020, Duration: 3480, Inferred: true},
	}

	plan := splitter.BuildPlan("/media/Some.Show.S01E04-E06.mkv", testInfo(), episodes)
	if len(plan.Jobs) != 3 {
		t.Fatalf("job count = %d, want 3", len(plan.Jobs))
	}

	first := plan.Jobs[0]
	joined := strings.Join(first.Args, " ")
	for _, want := range []string{"-ss 0.000", "-t 3480.000", "-map 0", "-c copy", "-avoid_negative_ts make_zero"} {
		if !strings.Contains(joined, want) {
			t.Errorf("args %q missing %q", joined, want)
		}
	}
	if plan.Jobs[2].Episode != 6 {
		t.Errorf("last episode number = %d, want 6", plan.Jobs[2].Episode)
	}
}

func TestExecuteRunsEveryJob(t *testing.T) {
	runner := &recordingRunner{}
	splitter := New(Namer{OutputDir: t.TempDir()}, logging.NewNop(), WithRunner(runner), WithBinary("ffmpeg-test"))
	episodes := []boundary.Episode{
		{Index: 0, Start: 0, Duration: 3480},
		{Index: 1, Start: 3480, Duration: 3540},
	}

	plan := splitter.BuildPlan("/media/Some.Show.S01E04-E06.mkv", testInfo(), episodes)
	if err := splitter.Execute(context.Background(), plan); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("ffmpeg invocations = %d, want 2", len(runner.calls))
	}
	if runner.calls[0][0] != "ffmpeg-test" {
		t.Errorf("binary = %q, want ffmpeg-test", runner.calls[0][0])
	}
}

func TestExecuteStopsOnFailure(t *testing.T) {
	runner := &recordingRunner{fail: true}
	splitter := New(Namer{OutputDir: t.TempDir()}, logging.NewNop(), WithRunner(runner))
	episodes := []boundary.Episode{
		{Index: 0, Start: 0, Duration: 3480},
		{Index: 1, Start: 3480, Duration: 3540},
	}

	plan := splitter.BuildPlan("/media/src.mkv", testInfo(), episodes)
	err := splitter.Execute(context.Background(), plan)
	if err == nil {
		t.Fatal("expected an error")
	}
	if len(runner.calls) != 1 {
		t.Fatalf("ffmpeg invocations = %d, want 1 before aborting", len(runner.calls))
	}
	if !strings.Contains(err.Error(), "muxing failed") {
		t.Errorf("error %q does not carry the tool output", err)
	}
}
