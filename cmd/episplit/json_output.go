package main

import (
	"encoding/json"
	"io"

	"episplit/internal/runner"
)

type reportView struct {
	RunID            string         `json:"run_id"`
	Source           string         `json:"source"`
	Title            string         `json:"title"`
	Season           int            `json:"season"`
	FirstEpisode     int            `json:"first_episode"`
	ExpectedEpisodes int            `json:"expected_episodes"`
	DurationSeconds  float64        `json:"duration_seconds"`
	Mode             string         `json:"mode"`
	Boundaries       []boundaryView `json:"boundaries"`
	Episodes         []episodeView  `json:"episodes"`
	Jobs             []jobView      `json:"jobs,omitempty"`
	Warnings         []string       `json:"warnings,omitempty"`
}

type boundaryView struct {
	Window       int     `json:"window"`
	SearchStart  float64 `json:"search_start"`
	SearchEnd    float64 `json:"search_end"`
	WindowSource string  `json:"window_source"`
	Time         float64 `json:"time,omitempty"`
	Confidence   float64 `json:"confidence,omitempty"`
	Evidence     string  `json:"evidence,omitempty"`
	Failed       bool    `json:"failed,omitempty"`
}

type episodeView struct {
	Episode    int     `json:"episode"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Duration   float64 `json:"duration"`
	Confidence float64 `json:"confidence"`
	Inferred   bool    `json:"inferred,omitempty"`
}

type jobView struct {
	Episode  int     `json:"episode"`
	Output   string  `json:"output"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

func newReportView(report *runner.Report) reportView {
	view := reportView{
		RunID:            report.RunID,
		Source:           report.SourcePath,
		Title:            report.Info.Title,
		Season:           report.Info.Season,
		FirstEpisode:     report.Info.FirstEpisode,
		ExpectedEpisodes: report.Info.EpisodeCount,
		DurationSeconds:  report.Duration,
		Mode:             report.Mode,
		Warnings:         report.Warnings,
	}

	for i, candidate := range report.Candidates {
		b := boundaryView{
			Window: candidate.WindowIndex + 1,
			Failed: candidate.Failed,
		}
		if i < len(report.Windows) {
			window := report.Windows[i]
			b.SearchStart = window.Start
			b.SearchEnd = window.End
			b.WindowSource = window.Source.String()
		}
		if !candidate.Failed {
			b.Time = candidate.Time
			b.Confidence = candidate.Confidence
			b.Evidence = candidate.Source
		}
		view.Boundaries = append(view.Boundaries, b)
	}

	first := report.Info.FirstEpisode
	if first <= 0 {
		first = 1
	}
	for _, episode := range report.Plan.Episodes {
		view.Episodes = append(view.Episodes, episodeView{
			Episode:    first + episode.Index,
			Start:      episode.Start,
			End:        episode.End(),
			Duration:   episode.Duration,
			Confidence: episode.Confidence,
			Inferred:   episode.Inferred,
		})
	}
	for _, job := range report.SplitPlan.Jobs {
		view.Jobs = append(view.Jobs, jobView{
			Episode:  job.Episode,
			Output:   job.OutputPath,
			Start:    job.Start,
			Duration: job.Duration,
		})
	}
	return view
}

func writeJSON(w io.Writer, view reportView) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(view)
}
