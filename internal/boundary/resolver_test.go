package boundary

import (
	"errors"
	"math"
	"testing"

	"episplit/internal/logging"
	"episplit/internal/services"
)

func TestResolveBuildsOrderedCutPlan(t *testing.T) {
	// 175-minute file, three episodes of roughly 58-59-58 minutes.
	candidates := []Candidate{
		{WindowIndex: 0, Time: 3480, Confidence: 0.9},
		{WindowIndex: 1, Time: 7020, Confidence: 0.85},
	}

	plan, err := Resolve(candidates, 10500, Constraints{MinEpisodeLength: 900, MaxEpisodeLength: 5400}, logging.NewNop())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(plan.Episodes) != 3 {
		t.Fatalf("episode count = %d, want 3", len(plan.Episodes))
	}

	wantStarts := []float64{0, 3480, 7020}
	wantDurations := []float64{3480, 3540, 3480}
	for i, episode := range plan.Episodes {
		if episode.Start != wantStarts[i] || episode.Duration != wantDurations[i] {
			t.Errorf("episode %d = start %f duration %f, want %f / %f",
				i, episode.Start, episode.Duration, wantStarts[i], wantDurations[i])
		}
	}

	// Adjacent episodes must tile the file with no gap or overlap.
	for i := 1; i < len(plan.Episodes); i++ {
		if plan.Episodes[i].Start != plan.Episodes[i-1].End() {
			t.Errorf("gap between episode %d end %f and episode %d start %f",
				i-1, plan.Episodes[i-1].End(), i, plan.Episodes[i].Start)
		}
	}
	if plan.Episodes[len(plan.Episodes)-1].End() != 10500 {
		t.Errorf("plan does not reach the file end")
	}
	if len(plan.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", plan.Warnings)
	}
}

func TestResolveInfersFinalEpisode(t *testing.T) {
	candidates := []Candidate{{WindowIndex: 0, Time: 3600, Confidence: 0.9}}

	plan, err := Resolve(candidates, 7200, Constraints{MinEpisodeLength: 900}, logging.NewNop())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	final := plan.Episodes[len(plan.Episodes)-1]
	if !final.Inferred {
		t.Fatal("final episode must be marked inferred")
	}
	want := 0.9 * 0.9
	if math.Abs(final.Confidence-want) > 1e-9 {
		t.Errorf("inferred confidence = %f, want %f", final.Confidence, want)
	}
}

func TestResolveFoldsShortRemainder(t *testing.T) {
	// 200 seconds after the last boundary is under half the minimum; it
	// joins the last episode instead of becoming one.
	candidates := []Candidate{{WindowIndex: 0, Time: 3600, Confidence: 0.9}}

	plan, err := Resolve(candidates, 3800, Constraints{MinEpisodeLength: 900}, logging.NewNop())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(plan.Episodes) != 1 {
		t.Fatalf("episode count = %d, want 1", len(plan.Episodes))
	}
	if plan.Episodes[0].End() != 3800 {
		t.Errorf("episode end = %f, want extended to 3800", plan.Episodes[0].End())
	}
	if len(plan.Warnings) == 0 {
		t.Error("expected a folded-remainder warning")
	}
}

func TestResolveRejectsInvertedBoundaries(t *testing.T) {
	candidates := []Candidate{
		{WindowIndex: 0, Time: 7020, Confidence: 0.9},
		{WindowIndex: 1, Time: 3480, Confidence: 0.9},
	}

	_, err := Resolve(candidates, 10500, Constraints{}, logging.NewNop())
	if !errors.Is(err, services.ErrConstraint) {
		t.Fatalf("error = %v, want constraint violation", err)
	}
}

func TestResolveRejectsUnresolvedWindows(t *testing.T) {
	candidates := []Candidate{
		{WindowIndex: 0, Time: 3480, Confidence: 0.9},
		{WindowIndex: 1, Failed: true},
	}

	_, err := Resolve(candidates, 10500, Constraints{}, logging.NewNop())
	if !errors.Is(err, services.ErrNoDetection) {
		t.Fatalf("error = %v, want no-detection", err)
	}
}

func TestResolveWarnsOnLengthViolations(t *testing.T) {
	candidates := []Candidate{
		{WindowIndex: 0, Time: 600, Confidence: 0.9},
		{WindowIndex: 1, Time: 7200, Confidence: 0.9},
	}

	plan, err := Resolve(candidates, 9000, Constraints{MinEpisodeLength: 900, MaxEpisodeLength: 5400}, logging.NewNop())
	if err != nil {
		t.Fatalf("length violations must warn, not fail: %v", err)
	}
	if len(plan.Episodes) != 3 {
		t.Fatalf("episode count = %d, want 3", len(plan.Episodes))
	}
	if len(plan.Warnings) != 2 {
		t.Errorf("warnings = %v, want one under-minimum and one over-maximum", plan.Warnings)
	}
}

func TestResolveAppliesSpeechPenalty(t *testing.T) {
	// Boundary 90 seconds after the cue phrase takes the full late
	// penalty of 0.8.
	candidates := []Candidate{
		{WindowIndex: 0, Time: 3600, Confidence: 0.9, HasPhrase: true, PhraseTime: 3510},
	}

	plan, err := Resolve(candidates, 7200, Constraints{MinEpisodeLength: 900}, logging.NewNop())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := 0.9 * 0.8
	if math.Abs(plan.Episodes[0].Confidence-want) > 1e-9 {
		t.Errorf("confidence = %f, want %f", plan.Episodes[0].Confidence, want)
	}
}
