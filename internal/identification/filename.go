package identification

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// FileInfo holds the metadata parsed from a multi-episode filename.
type FileInfo struct {
	Title        string
	Season       int
	FirstEpisode int
	EpisodeCount int
	Parsed       bool
}

// LastEpisode returns the final episode number covered by the file.
func (f FileInfo) LastEpisode() int {
	if f.EpisodeCount <= 0 {
		return f.FirstEpisode
	}
	return f.FirstEpisode + f.EpisodeCount - 1
}

var (
	// S01E01-E03, S01E01-03, S1E1-E3
	rangePattern = regexp.MustCompile(`(?i)s(\d{1,2})\s*e(\d{1,3})\s*[-–]\s*e?(\d{1,3})`)
	// S01E01E02E03
	concatPattern = regexp.MustCompile(`(?i)s(\d{1,2})((?:e\d{1,3}){2,})`)
	episodeToken  = regexp.MustCompile(`(?i)e(\d{1,3})`)
	// Single S01E01 (one episode, not splittable, but still parsed)
	singlePattern = regexp.MustCompile(`(?i)s(\d{1,2})\s*e(\d{1,3})`)
)

// ParseFilename extracts title, season, and episode range from a source
// path. A file that does not match any multi-episode pattern returns
// Parsed=false with a best-effort cleaned title.
func ParseFilename(path string) FileInfo {
	base := filepath.Base(path)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}

	if match := rangePattern.FindStringSubmatchIndex(base); match != nil {
		season, _ := strconv.Atoi(base[match[2]:match[3]])
		first, _ := strconv.Atoi(base[match[4]:match[5]])
		last, _ := strconv.Atoi(base[match[6]:match[7]])
		if last >= first {
			return FileInfo{
				Title:        cleanTitle(base[:match[0]]),
				Season:       season,
				FirstEpisode: first,
				EpisodeCount: last - first + 1,
				Parsed:       true,
			}
		}
	}

	if match := concatPattern.FindStringSubmatchIndex(base); match != nil {
		season, _ := strconv.Atoi(base[match[2]:match[3]])
		tokens := episodeToken.FindAllStringSubmatch(base[match[4]:match[5]], -1)
		if len(tokens) >= 2 {
			first, _ := strconv.Atoi(tokens[0][1])
			return FileInfo{
				Title:        cleanTitle(base[:match[0]]),
				Season:       season,
				FirstEpisode: first,
				EpisodeCount: len(tokens),
				Parsed:       true,
			}
		}
	}

	if match := singlePattern.FindStringSubmatchIndex(base); match != nil {
		season, _ := strconv.Atoi(base[match[2]:match[3]])
		first, _ := strconv.Atoi(base[match[4]:match[5]])
		return FileInfo{
			Title:        cleanTitle(base[:match[0]]),
			Season:       season,
			FirstEpisode: first,
			EpisodeCount: 1,
			Parsed:       true,
		}
	}

	return FileInfo{Title: cleanTitle(base)}
}

func cleanTitle(value string) string {
	replacer := strings.NewReplacer(".", " ", "_", " ")
	cleaned := replacer.Replace(value)
	cleaned = strings.Trim(cleaned, " -[](){}")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return "unknown"
	}
	return cleaned
}
