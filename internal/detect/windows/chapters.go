package windows

import (
	"regexp"
	"strconv"
	"strings"

	"episplit/internal/media/ffprobe"
)

const (
	commercialMinDuration = 15
	commercialMaxDuration = 300
)

var episodeTitlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^episode\s*\d+$`),
	regexp.MustCompile(`(?i)^e\d+$`),
	regexp.MustCompile(`(?i)^part\s*\d+$`),
	regexp.MustCompile(`(?i)^s\d+\s*e\d+$`),
	regexp.MustCompile(`(?i)^chapter\s*\d+\s*-\s*episode\s*\d+$`),
}

var nonEpisodePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^menu`),
	regexp.MustCompile(`(?i)^scene\s*\d+$`),
	regexp.MustCompile(`(?i)^commercial`),
	regexp.MustCompile(`(?i)^credits?$`),
	regexp.MustCompile(`(?i)^intro$`),
	regexp.MustCompile(`(?i)^outro$`),
	regexp.MustCompile(`(?i)^preview$`),
	regexp.MustCompile(`(?i)^recap$`),
	regexp.MustCompile(`(?i)^previously`),
}

var commercialNumberPattern = regexp.MustCompile(`(?i)^commercial\s*(\d+)$`)

// chapterLayout is the classified view of a file's chapter marks.
type chapterLayout struct {
	// episodes holds chapters whose titles mark true episode starts, in
	// file order.
	episodes []ffprobe.Chapter
	// commercials holds commercial-length break chapters.
	commercials []ffprobe.Chapter
	// commercial1Starts holds the start times of chapters titled
	// "Commercial 1", which mark the first break after an episode start.
	commercial1Starts []float64
}

// classifyChapters buckets chapter marks into episode markers and
// commercial breaks. Titles that match neither pattern set are ignored:
// bare numbered chapters carry no boundary signal on their own.
func classifyChapters(chapters []ffprobe.Chapter) chapterLayout {
	var layout chapterLayout
	for _, chapter := range chapters {
		title := strings.TrimSpace(chapter.Title())
		if title == "" {
			continue
		}
		if isEpisodeTitle(title) {
			layout.episodes = append(layout.episodes, chapter)
			continue
		}
		if match := commercialNumberPattern.FindStringSubmatch(title); match != nil {
			if number, err := strconv.Atoi(match[1]); err == nil && number == 1 {
				layout.commercial1Starts = append(layout.commercial1Starts, chapter.StartSeconds())
			}
		}
		if isNonEpisodeTitle(title) {
			duration := chapter.EndSeconds() - chapter.StartSeconds()
			if duration >= commercialMinDuration && duration <= commercialMaxDuration {
				layout.commercials = append(layout.commercials, chapter)
			}
		}
	}
	return layout
}

func isEpisodeTitle(title string) bool {
	for _, pattern := range episodeTitlePatterns {
		if pattern.MatchString(title) {
			return true
		}
	}
	return false
}

func isNonEpisodeTitle(title string) bool {
	for _, pattern := range nonEpisodePatterns {
		if pattern.MatchString(title) {
			return true
		}
	}
	return false
}
