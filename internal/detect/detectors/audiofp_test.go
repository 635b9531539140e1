package detectors

import (
	"context"
	"encoding/json"
	"testing"

	"episplit/internal/detect"
)

type fakeFpcalc struct {
	fingerprints [][]uint32
	calls        int
}

func (f *fakeFpcalc) CombinedOutput(_ context.Context, _ string, _ ...string) ([]byte, error) {
	fingerprint := f.fingerprints[f.calls]
	f.calls++
	return json.Marshal(map[string]any{"fingerprint": fingerprint})
}

func TestAudioFingerprintConfirmsIntroMatch(t *testing.T) {
	reference := []uint32{0xDEADBEEF, 0x12345678, 0xCAFEBABE, 0x0F0F0F0F}
	candidate := make([]uint32, 0, 16)
	for i := 0; i < 8; i++ {
		candidate = append(candidate, 0xAAAA5555)
	}
	candidate = append(candidate, reference...)
	candidate = append(candidate, 0x5555AAAA, 0x5555AAAA, 0x5555AAAA, 0x5555AAAA)

	detector := &AudioFingerprint{
		Extractor: &fakeAudioExtractor{payload: []byte("RIFF")},
		Runner:    &fakeFpcalc{fingerprints: [][]uint32{reference, candidate}},
		WorkDir:   t.TempDir(),
	}

	window := detect.Window{Start: 3300, Center: 3600, End: 3900}
	raws, err := detector.Detect(context.Background(), detect.Source{Path: "file.mkv"}, window)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(raws) != 1 {
		t.Fatalf("expected 1 confirmation, got %d", len(raws))
	}
	raw := raws[0]
	if raw.Kind != detect.KindAudioFingerprint {
		t.Errorf("kind = %s, want audio_fingerprint", raw.Kind)
	}
	if !raw.Kind.Confirming() {
		t.Error("audio fingerprint detections must be confirming only")
	}
	if raw.Timestamp != 3601 {
		t.Errorf("timestamp = %f, want center + 8 items / 8 per second = 3601", raw.Timestamp)
	}
}

func TestAudioFingerprintStaysQuietWithoutMatch(t *testing.T) {
	reference := []uint32{0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF}
	candidate := []uint32{0xAAAAAAAA, 0x55555555, 0xAAAAAAAA, 0x55555555, 0xAAAAAAAA}

	detector := &AudioFingerprint{
		Extractor: &fakeAudioExtractor{payload: []byte("RIFF")},
		Runner:    &fakeFpcalc{fingerprints: [][]uint32{reference, candidate}},
		WorkDir:   t.TempDir(),
	}

	window := detect.Window{Start: 3300, Center: 3600, End: 3900}
	raws, err := detector.Detect(context.Background(), detect.Source{Path: "file.mkv"}, window)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(raws) != 0 {
		t.Fatalf("expected no confirmation, got %d", len(raws))
	}
}
