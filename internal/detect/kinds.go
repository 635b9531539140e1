package detect

import "fmt"

// Kind is the closed enumeration of detector kinds. The clusterer's
// diversity bonus counts distinct kinds, so every detection must carry
// exactly one of these tags.
type Kind int

const (
	KindSilence Kind = iota
	KindBlackFrame
	KindSceneChange
	KindSpeech
	KindLLMCredits
	KindLLMLogo
	KindLLMOutro
	KindImageHash
	KindAudioFingerprint
	KindChapter
	kindCount
)

var kindNames = [...]string{
	KindSilence:          "silence",
	KindBlackFrame:       "black_frame",
	KindSceneChange:      "scene_change",
	KindSpeech:           "speech",
	KindLLMCredits:       "llm_credits",
	KindLLMLogo:          "llm_logo",
	KindLLMOutro:         "llm_outro",
	KindImageHash:        "image_hash",
	KindAudioFingerprint: "audio_fingerprint",
	KindChapter:          "chapter",
}

func (k Kind) String() string {
	if k < 0 || k >= kindCount {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Valid reports whether the kind is a member of the closed enumeration.
func (k Kind) Valid() bool {
	return k >= 0 && k < kindCount
}

// ParseKind resolves a kind name to its enumeration value.
func ParseKind(name string) (Kind, error) {
	for kind, kindName := range kindNames {
		if kindName == name {
			return Kind(kind), nil
		}
	}
	return 0, fmt.Errorf("unknown detector kind %q", name)
}

// Confirming reports whether the kind confirms episode starts (intro
// pattern matching) rather than contributing boundary evidence. Confirming
// detections are excluded from raw-cluster scoring.
func (k Kind) Confirming() bool {
	return k == KindImageHash || k == KindAudioFingerprint
}
