package vision

import "strings"

// frameClassificationPrompt forces a fixed-format response the parser can
// read without a JSON round trip; small local models follow this format far
// more reliably than structured output.
const frameClassificationPrompt = `Analyze this single video frame from a TV broadcast.
Answer EXACTLY in this format, one item per line, nothing else:
CREDITS: YES or NO (rolling or static end credits)
LOGO: YES or NO (network or production company logo card)
OUTRO: YES or NO (closing scene, "The End", fade-out title)
TITLE_CARD: YES or NO (episode title card)
PREVIOUSLY_ON: YES or NO (recap of earlier episodes)
CONFIDENCE: HIGH or MEDIUM or LOW`

// parseClassification reads the fixed YES/NO response format. Confidence
// maps HIGH/MEDIUM/LOW to 0.9/0.7/0.5 and defaults to 0.6 when the line is
// missing or malformed.
func parseClassification(content string) FrameClassification {
	result := FrameClassification{Confidence: 0.6, Raw: content}
	for _, line := range strings.Split(content, "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.ToUpper(strings.TrimSpace(key))
		value = strings.ToUpper(strings.TrimSpace(value))
		affirmative := strings.HasPrefix(value, "YES")
		switch key {
		case "CREDITS":
			result.Credits = affirmative
		case "LOGO":
			result.Logo = affirmative
		case "OUTRO":
			result.Outro = affirmative
		case "TITLE_CARD":
			result.TitleCard = affirmative
		case "PREVIOUSLY_ON":
			result.PreviouslyOn = affirmative
		case "CONFIDENCE":
			switch {
			case strings.HasPrefix(value, "HIGH"):
				result.Confidence = 0.9
			case strings.HasPrefix(value, "MEDIUM"):
				result.Confidence = 0.7
			case strings.HasPrefix(value, "LOW"):
				result.Confidence = 0.5
			}
		}
	}
	return result
}
