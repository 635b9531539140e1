package detectors

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"episplit/internal/detect"
	"episplit/internal/services/transcribe"
)

const (
	// speechScore is the fixed score of an episode-end cue phrase.
	speechScore = 50
	// SpeechSoftWindow is how far after the cue phrase a boundary may fall
	// without penalty.
	SpeechSoftWindow = 30
	// SpeechHardWindow is the distance beyond which a boundary is penalized.
	SpeechHardWindow = 60
)

// episodeEndPhrases are the broadcast cues that precede an episode end.
var episodeEndPhrases = []string{
	"stay tuned",
	"scenes from next week",
	"next week on",
	"next time on",
	"coming up next",
	"we now return to",
	"brought to you by",
}

// Transcriber is the slice of the transcription client the speech detector needs.
type Transcriber interface {
	Transcribe(ctx context.Context, wav []byte) ([]transcribe.Segment, error)
}

// AudioExtractor extracts a window's audio as a WAV file for transcription.
type AudioExtractor interface {
	ExtractAudioSegment(ctx context.Context, path string, start, duration float64, outPath string) error
}

// Speech transcribes the window's audio and emits a detection at the end
// of each episode-end cue phrase. The boundary is expected within
// SpeechSoftWindow seconds after the phrase; the resolver penalizes
// boundaries further than SpeechHardWindow.
type Speech struct {
	Extractor   AudioExtractor
	Transcriber Transcriber
	WorkDir     string
}

// Name implements detect.Detector.
func (s *Speech) Name() string { return detect.KindSpeech.String() }

// Detect implements detect.Detector.
func (s *Speech) Detect(ctx context.Context, src detect.Source, window detect.Window) ([]detect.Raw, error) {
	workDir := s.WorkDir
	if workDir == "" {
		workDir = os.TempDir()
	}
	wavFile, err := os.CreateTemp(workDir, "speech-*.wav")
	if err != nil {
		return nil, fmt.Errorf("speech detect: create audio file: %w", err)
	}
	wavPath := wavFile.Name()
	wavFile.Close()
	defer os.Remove(wavPath)

	if err := s.Extractor.ExtractAudioSegment(ctx, src.Path, window.Start, window.Width(), wavPath); err != nil {
		return nil, fmt.Errorf("speech detect: extract audio: %w", err)
	}
	wav, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, fmt.Errorf("speech detect: read audio: %w", err)
	}
	segments, err := s.Transcriber.Transcribe(ctx, wav)
	if err != nil {
		return nil, fmt.Errorf("speech detect: transcribe: %w", err)
	}

	var raws []detect.Raw
	for _, segment := range segments {
		phrase, ok := matchEndPhrase(segment.Text)
		if !ok {
			continue
		}
		// Segment times are relative to the extracted window audio.
		phraseEnd := window.Start + segment.End
		if !window.Contains(phraseEnd) {
			continue
		}
		raws = append(raws, detect.Raw{
			Timestamp: phraseEnd,
			Score:     speechScore,
			Kind:      detect.KindSpeech,
			Metadata: map[string]string{
				"phrase":      phrase,
				"soft_window": strconv.Itoa(SpeechSoftWindow),
			},
		})
	}
	return raws, nil
}

func matchEndPhrase(text string) (string, bool) {
	lowered := strings.ToLower(text)
	for _, phrase := range episodeEndPhrases {
		if strings.Contains(lowered, phrase) {
			return phrase, true
		}
	}
	return "", false
}

// SpeechPenalty scales a boundary's confidence by its distance after the
// cue phrase: within the soft window there is no penalty, beyond the hard
// window the penalty is fixed, in between it ramps linearly.
func SpeechPenalty(phraseTime, boundary float64) float64 {
	distance := boundary - phraseTime
	switch {
	case distance < 0:
		// Boundary before the phrase contradicts the cue entirely.
		return 0.7
	case distance <= SpeechSoftWindow:
		return 1.0
	case distance >= SpeechHardWindow:
		return 0.8
	default:
		ramp := (distance - SpeechSoftWindow) / (SpeechHardWindow - SpeechSoftWindow)
		return 1.0 - 0.2*ramp
	}
}
