package detectors

import (
	"context"

	"episplit/internal/detect"
	"episplit/internal/media/ffprobe"
)

// chapterScore is the fixed evidence weight of a chapter transition inside
// a window. Chapter marks are treated as the most reliable single signal
// alongside black frames.
const chapterScore = 50

// Chapter emits detections at chapter transitions that fall inside the
// window. Files whose chapters name true episodes never reach this
// detector; those boundaries are standalone.
type Chapter struct {
	Chapters []ffprobe.Chapter
}

// Name implements detect.Detector.
func (c *Chapter) Name() string { return detect.KindChapter.String() }

// Detect implements detect.Detector.
func (c *Chapter) Detect(_ context.Context, _ detect.Source, window detect.Window) ([]detect.Raw, error) {
	var raws []detect.Raw
	for _, chapter := range c.Chapters {
		start := chapter.StartSeconds()
		if start <= 0 || !window.Contains(start) {
			continue
		}
		raws = append(raws, detect.Raw{
			Timestamp: start,
			Score:     chapterScore,
			Kind:      detect.KindChapter,
			Metadata:  map[string]string{"title": chapter.Title()},
		})
	}
	return raws, nil
}
