package ffmpeg

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	silenceStartRe = regexp.MustCompile(`silence_start:\s*(-?\d+(?:\.\d+)?)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*(-?\d+(?:\.\d+)?)`)
	blackRe        = regexp.MustCompile(`black_start:\s*(-?\d+(?:\.\d+)?)\s+black_end:\s*(-?\d+(?:\.\d+)?)`)
	ptsTimeRe      = regexp.MustCompile(`pts_time:(-?\d+(?:\.\d+)?)`)
	sceneScoreRe   = regexp.MustCompile(`lavfi\.scene_score=(-?\d+(?:\.\d+)?)`)
)

// parseSilence pairs silence_start/silence_end lines from silencedetect
// stderr. Seek offset is added so intervals carry absolute timestamps;
// a trailing unterminated silence is dropped.
func parseSilence(output string, offset float64) []Interval {
	var intervals []Interval
	var pendingStart *float64

	for _, line := range strings.Split(output, "\n") {
		if match := silenceStartRe.FindStringSubmatch(line); match != nil {
			value, err := strconv.ParseFloat(match[1], 64)
			if err == nil {
				start := value + offset
				pendingStart = &start
			}
			continue
		}
		if match := silenceEndRe.FindStringSubmatch(line); match != nil && pendingStart != nil {
			value, err := strconv.ParseFloat(match[1], 64)
			if err == nil {
				intervals = append(intervals, Interval{Start: *pendingStart, End: value + offset})
			}
			pendingStart = nil
		}
	}
	return intervals
}

func parseBlack(output string, offset float64) []Interval {
	var intervals []Interval
	for _, line := range strings.Split(output, "\n") {
		match := blackRe.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		start, err1 := strconv.ParseFloat(match[1], 64)
		end, err2 := strconv.ParseFloat(match[2], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		intervals = append(intervals, Interval{Start: start + offset, End: end + offset})
	}
	return intervals
}

// parseScene walks metadata=print output, pairing each frame's pts_time
// with the lavfi.scene_score line that follows it.
func parseScene(output string, offset float64) []SceneChange {
	var changes []SceneChange
	var pendingTime *float64

	for _, line := range strings.Split(output, "\n") {
		if match := ptsTimeRe.FindStringSubmatch(line); match != nil {
			value, err := strconv.ParseFloat(match[1], 64)
			if err == nil {
				at := value + offset
				pendingTime = &at
			}
			continue
		}
		if match := sceneScoreRe.FindStringSubmatch(line); match != nil && pendingTime != nil {
			score, err := strconv.ParseFloat(match[1], 64)
			if err == nil {
				changes = append(changes, SceneChange{Time: *pendingTime, Score: score})
			}
			pendingTime = nil
		}
	}
	return changes
}
