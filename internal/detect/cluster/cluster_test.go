package cluster

import (
	"math"
	"reflect"
	"testing"

	"episplit/internal/detect"
)

func TestGroupMergesWithinTolerance(t *testing.T) {
	clusterer := New(60)
	raws := []detect.Raw{
		{Timestamp: 3480, Score: 25, Kind: detect.KindSilence},
		{Timestamp: 3482, Score: 5, Kind: detect.KindBlackFrame},
		{Timestamp: 3700, Score: 40, Kind: detect.KindSceneChange},
	}
	clusters := clusterer.Group(raws)
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	first := clusters[0]
	if len(first.Members) != 2 {
		t.Fatalf("expected silence+black merged, got %d members", len(first.Members))
	}
	if len(first.Kinds) != 2 {
		t.Fatalf("expected 2 distinct kinds, got %d", len(first.Kinds))
	}
	// Score-weighted center: (3480*25 + 3482*5) / 30.
	want := (3480.0*25 + 3482.0*5) / 30.0
	if math.Abs(first.Center-want) > 1e-9 {
		t.Fatalf("center = %v, want %v", first.Center, want)
	}
}

func TestGroupIsDeterministic(t *testing.T) {
	clusterer := New(60)
	raws := []detect.Raw{
		{Timestamp: 100, Score: 10, Kind: detect.KindSilence},
		{Timestamp: 100, Score: 20, Kind: detect.KindSceneChange},
		{Timestamp: 130, Score: 5, Kind: detect.KindBlackFrame},
		{Timestamp: 400, Score: 50, Kind: detect.KindSpeech},
	}
	first := clusterer.Group(append([]detect.Raw(nil), raws...))
	second := clusterer.Group(append([]detect.Raw(nil), raws...))
	if !reflect.DeepEqual(first, second) {
		t.Fatal("clustering must be deterministic for identical input")
	}
	// Input order must not matter either.
	reversed := []detect.Raw{raws[3], raws[2], raws[1], raws[0]}
	third := clusterer.Group(reversed)
	if !reflect.DeepEqual(first, third) {
		t.Fatal("clustering must be order independent")
	}
}

func TestDiversityBonusStrictlyIncreasesScore(t *testing.T) {
	clusterer := New(60)
	base := []detect.Raw{
		{Timestamp: 200, Score: 30, Kind: detect.KindSilence},
	}
	withSameKind := append(append([]detect.Raw(nil), base...),
		detect.Raw{Timestamp: 200, Score: 10, Kind: detect.KindSilence})
	withNewKind := append(append([]detect.Raw(nil), base...),
		detect.Raw{Timestamp: 200, Score: 10, Kind: detect.KindBlackFrame})

	sameScore := clusterer.Group(withSameKind)[0].FinalScore()
	newKindScore := clusterer.Group(withNewKind)[0].FinalScore()
	if newKindScore <= sameScore {
		t.Fatalf("diversity bonus must raise score: same-kind %v, new-kind %v", sameScore, newKindScore)
	}
	// Same timestamp, so no proximity penalty: the ratio is exactly 1.5.
	if math.Abs(newKindScore/sameScore-1.5) > 1e-9 {
		t.Fatalf("expected 1.5x diversity multiplier, got %v", newKindScore/sameScore)
	}
}

func TestProximityPenalizesSpread(t *testing.T) {
	clusterer := New(60)
	tight := clusterer.Group([]detect.Raw{
		{Timestamp: 100, Score: 10, Kind: detect.KindSilence},
		{Timestamp: 101, Score: 10, Kind: detect.KindBlackFrame},
	})[0]
	loose := clusterer.Group([]detect.Raw{
		{Timestamp: 100, Score: 10, Kind: detect.KindSilence},
		{Timestamp: 150, Score: 10, Kind: detect.KindBlackFrame},
	})[0]
	if tight.FinalScore() <= loose.FinalScore() {
		t.Fatalf("tighter cluster must outscore looser one: %v vs %v", tight.FinalScore(), loose.FinalScore())
	}
}

func TestConfidenceCapAndComboBoost(t *testing.T) {
	clusterer := New(60)
	combo, ok := clusterer.Best([]detect.Raw{
		{Timestamp: 100, Score: 30, Kind: detect.KindSilence},
		{Timestamp: 100, Score: 10, Kind: detect.KindBlackFrame},
	})
	if !ok {
		t.Fatal("expected a cluster")
	}
	plain, _ := clusterer.Best([]detect.Raw{
		{Timestamp: 100, Score: 30, Kind: detect.KindSilence},
		{Timestamp: 100, Score: 10, Kind: detect.KindSceneChange},
	})
	if combo.Confidence() <= plain.Confidence() {
		t.Fatalf("black+silence combo must boost confidence: %v vs %v", combo.Confidence(), plain.Confidence())
	}

	huge, _ := clusterer.Best([]detect.Raw{
		{Timestamp: 100, Score: 100000, Kind: detect.KindSilence},
		{Timestamp: 100, Score: 100000, Kind: detect.KindBlackFrame},
	})
	if huge.Confidence() > 0.95 {
		t.Fatalf("confidence must cap at 0.95, got %v", huge.Confidence())
	}
}

func TestBestPrefersReliableKindsOnTie(t *testing.T) {
	clusterer := New(10)
	best, ok := clusterer.Best([]detect.Raw{
		{Timestamp: 100, Score: 20, Kind: detect.KindSceneChange},
		{Timestamp: 500, Score: 20, Kind: detect.KindBlackFrame},
	})
	if !ok {
		t.Fatal("expected a cluster")
	}
	if best.Center != 500 {
		t.Fatalf("expected black-frame cluster to win tie, got center %v", best.Center)
	}
}

func TestConfirmingKindsExcluded(t *testing.T) {
	clusterer := New(60)
	clusters := clusterer.Group([]detect.Raw{
		{Timestamp: 100, Score: 50, Kind: detect.KindImageHash},
		{Timestamp: 100, Score: 50, Kind: detect.KindAudioFingerprint},
	})
	if clusters != nil {
		t.Fatalf("intro confirmers must not form clusters, got %d", len(clusters))
	}
}
