package scancache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"episplit/internal/detect"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "scans.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testKey(t *testing.T, params string) Key {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.mkv")
	if err := os.WriteFile(path, []byte("mkv"), 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}
	key, err := KeyFor(path, "silence", params)
	if err != nil {
		t.Fatalf("KeyFor: %v", err)
	}
	return key
}

func TestGetMissesOnEmptyStore(t *testing.T) {
	store := openTestStore(t)

	_, ok, err := store.Get(context.Background(), testKey(t, "th=-50,d=1.5"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected a miss on an empty store")
	}
}

func TestPutThenGetRoundTrips(t *testing.T) {
	store := openTestStore(t)
	key := testKey(t, "th=-50,d=1.5")
	raws := []detect.Raw{
		{Timestamp: 3599.25, Score: 25, Kind: detect.KindSilence, Metadata: map[string]string{"span_start": "3598.000"}},
		{Timestamp: 7180.5, Score: 18, Kind: detect.KindSilence},
	}

	if err := store.Put(context.Background(), key, raws); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected a hit")
	}
	if len(got) != 2 {
		t.Fatalf("detections = %d, want 2", len(got))
	}
	if got[0].Timestamp != 3599.25 || got[0].Kind != detect.KindSilence {
		t.Errorf("first detection = %+v", got[0])
	}
	if got[0].Metadata["span_start"] != "3598.000" {
		t.Errorf("metadata lost in round trip: %+v", got[0].Metadata)
	}
}

func TestChangedParamsMiss(t *testing.T) {
	store := openTestStore(t)
	key := testKey(t, "th=-50,d=1.5")

	if err := store.Put(context.Background(), key, []detect.Raw{{Timestamp: 1}}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	other := key
	other.Params = "th=-40,d=1.5"
	_, ok, err := store.Get(context.Background(), other)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("different parameters must not hit the cache")
	}
}

func TestChangedFileMisses(t *testing.T) {
	store := openTestStore(t)
	key := testKey(t, "d=0.5")

	if err := store.Put(context.Background(), key, []detect.Raw{{Timestamp: 1}}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	touched := key
	touched.ModTime = key.ModTime.Add(time.Minute)
	_, ok, err := store.Get(context.Background(), touched)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("a touched file must not hit the cache")
	}
}

func TestUnknownKindMisses(t *testing.T) {
	store := openTestStore(t)
	key := testKey(t, "th=-50,d=1.5")
	raws := []detect.Raw{
		{Timestamp: 3599.25, Score: 25, Kind: detect.KindSilence},
		{Timestamp: 7180.5, Score: 18, Kind: detect.Kind(99)},
	}

	if err := store.Put(context.Background(), key, raws); err != nil {
		t.Fatalf("Put: %v", err)
	}
	_, ok, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("an entry with an unknown detector kind must miss")
	}
}

func TestPruneRemovesOldEntries(t *testing.T) {
	store := openTestStore(t)
	key := testKey(t, "d=0.5")

	if err := store.Put(context.Background(), key, []detect.Raw{{Timestamp: 1}}); err != nil {
		t.Fatalf("Put: %v", err)
	}

	removed, err := store.Prune(context.Background(), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	_, ok, err := store.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("pruned entry must be gone")
	}
}
