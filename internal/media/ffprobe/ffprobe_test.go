package ffprobe

import "testing"

const samplePayload = `{
  "streams": [
    {"index": 0, "codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080},
    {"index": 1, "codec_type": "audio", "codec_name": "aac", "channels": 2}
  ],
  "chapters": [
    {"id": 0, "start_time": "0.000000", "end_time": "1410.500000", "tags": {"title": "Episode 1"}},
    {"id": 1, "start_time": "1410.500000", "end_time": "2821.000000", "tags": {"title": "Episode 2"}}
  ],
  "format": {"filename": "show.mkv", "nb_streams": 2, "duration": "2821.000000", "size": "1000000"}
}`

func TestParseExtractsChapters(t *testing.T) {
	result, err := Parse([]byte(samplePayload))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := result.DurationSeconds(); got != 2821 {
		t.Fatalf("duration = %v, want 2821", got)
	}
	if result.VideoStreamCount() != 1 || result.AudioStreamCount() != 1 {
		t.Fatalf("stream counts = %d video / %d audio", result.VideoStreamCount(), result.AudioStreamCount())
	}
	if len(result.Chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(result.Chapters))
	}
	first := result.Chapters[0]
	if first.Title() != "Episode 1" {
		t.Fatalf("chapter title = %q", first.Title())
	}
	if first.EndSeconds() != 1410.5 {
		t.Fatalf("chapter end = %v", first.EndSeconds())
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse([]byte("not json")); err == nil {
		t.Fatal("expected parse error")
	}
}
