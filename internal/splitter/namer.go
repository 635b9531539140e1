package splitter

import (
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"episplit/internal/identification"
)

// Namer builds output paths for split episodes.
type Namer struct {
	OutputDir string
	// SeasonDirs nests output under a "Season NN" directory.
	SeasonDirs bool
}

// EpisodeName is one output file placement.
type EpisodeName struct {
	// Episode is the absolute episode number, honoring the first-episode
	// offset from the source filename: S01E04-E06 splits into E04..E06.
	Episode int
	Path    string
}

// Name returns the output path for the idx-th episode (zero based) cut
// from the source described by info.
func (n Namer) Name(sourcePath string, info identification.FileInfo, idx int) EpisodeName {
	episode := info.FirstEpisode + idx
	if info.FirstEpisode == 0 {
		episode = idx + 1
	}

	title := displayTitle(info.Title)
	ext := filepath.Ext(sourcePath)
	if ext == "" {
		ext = ".mkv"
	}
	filename := fmt.Sprintf("%s - S%02dE%02d%s", title, info.Season, episode, ext)

	dir := n.OutputDir
	if dir == "" {
		dir = filepath.Dir(sourcePath)
	}
	if n.SeasonDirs {
		dir = filepath.Join(dir, fmt.Sprintf("Season %02d", info.Season))
	}
	return EpisodeName{Episode: episode, Path: filepath.Join(dir, filename)}
}

// displayTitle normalizes a parsed title into display casing. Words that
// arrive fully uppercase are assumed to be acronyms and kept as-is.
func displayTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return "Unknown"
	}
	caser := cases.Title(language.Und)
	words := strings.Fields(title)
	for i, word := range words {
		if word == strings.ToUpper(word) && len(word) > 1 {
			continue
		}
		words[i] = caser.String(word)
	}
	return strings.Join(words, " ")
}
