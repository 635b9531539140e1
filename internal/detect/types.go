package detect

import (
	"context"
	"fmt"
)

// Source identifies the file under analysis. Immutable for the duration of
// a run.
type Source struct {
	Path     string
	Duration float64
}

// Raw is a single scored, timestamped observation from one detector.
// Raw detections exist only within one window's evaluation.
type Raw struct {
	Timestamp float64
	Score     float64
	Kind      Kind
	Metadata  map[string]string
}

// WindowSource records which strategy produced a search window.
type WindowSource int

const (
	WindowFromChapters WindowSource = iota
	WindowFromRuntimesAndChapters
	WindowFromRuntimes
	WindowFromCommercials
	WindowFromEqualDivision
)

func (s WindowSource) String() string {
	switch s {
	case WindowFromChapters:
		return "chapters"
	case WindowFromRuntimesAndChapters:
		return "runtimes+chapters"
	case WindowFromRuntimes:
		return "runtimes"
	case WindowFromCommercials:
		return "commercials"
	case WindowFromEqualDivision:
		return "equal_division"
	default:
		return fmt.Sprintf("window_source(%d)", int(s))
	}
}

// Window is a bounded time range within which one boundary is expected.
// EpisodeBefore and EpisodeAfter are 1-based positions within the file.
type Window struct {
	Index         int
	Start         float64
	Center        float64
	End           float64
	Source        WindowSource
	Confidence    float64
	EpisodeBefore int
	EpisodeAfter  int

	// Standalone marks windows whose boundary comes straight from an
	// authoritative chapter mark; phase-2 detection is skipped and
	// BoundaryTime is final.
	Standalone   bool
	BoundaryTime float64
}

// Width returns the window length in seconds.
func (w Window) Width() float64 {
	if w.End <= w.Start {
		return 0
	}
	return w.End - w.Start
}

// Contains reports whether the timestamp lies within [Start, End].
func (w Window) Contains(timestamp float64) bool {
	return timestamp >= w.Start && timestamp <= w.End
}

// Detector emits zero or more raw detections scoped to one window. A
// detector failure must never fail the run; callers log it and treat the
// window as empty for that detector.
type Detector interface {
	Name() string
	Detect(ctx context.Context, src Source, window Window) ([]Raw, error)
}
