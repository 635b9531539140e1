package main

import (
	"fmt"
	"io"
	"strconv"

	"episplit/internal/runner"
)

// renderReport prints the human-readable view of one run: the source
// summary, the boundary table, the episode plan, and (after a split) the
// extraction jobs.
func renderReport(w io.Writer, report *runner.Report, withJobs bool) {
	info := report.Info
	fmt.Fprintf(w, "Source:   %s\n", report.SourcePath)
	fmt.Fprintf(w, "Run:      %s (%s mode)\n", report.RunID, report.Mode)
	fmt.Fprintf(w, "Title:    %s S%02dE%02d-E%02d (%d episodes expected)\n",
		info.Title, info.Season, info.FirstEpisode, info.LastEpisode(), info.EpisodeCount)
	fmt.Fprintf(w, "Duration: %s\n\n", formatClock(report.Duration))

	fmt.Fprintln(w, renderBoundaryTable(report))
	fmt.Fprintln(w)
	fmt.Fprintln(w, renderEpisodeTable(report))

	if withJobs && len(report.SplitPlan.Jobs) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, renderJobTable(report))
	}

	for _, warning := range report.Warnings {
		fmt.Fprintf(w, "\nwarning: %s\n", warning)
	}
}

func renderBoundaryTable(report *runner.Report) string {
	headers := []string{"#", "SEARCH RANGE", "WINDOW SOURCE", "BOUNDARY", "CONF", "EVIDENCE"}

	rows := make([][]string, 0, len(report.Candidates))
	for i, candidate := range report.Candidates {
		row := []string{strconv.Itoa(candidate.WindowIndex + 1), "", "", "", "", ""}
		if i < len(report.Windows) {
			window := report.Windows[i]
			row[1] = formatClock(window.Start) + " - " + formatClock(window.End)
			row[2] = window.Source.String()
		}
		if candidate.Failed {
			row[5] = "unresolved"
		} else {
			row[3] = formatClock(candidate.Time)
			row[4] = formatConfidence(candidate.Confidence)
			row[5] = candidate.Source
		}
		rows = append(rows, row)
	}
	return renderTable(headers, rows, 0, 3, 4)
}

func renderEpisodeTable(report *runner.Report) string {
	headers := []string{"EPISODE", "START", "END", "LENGTH", "CONF", "NOTE"}

	first := report.Info.FirstEpisode
	if first <= 0 {
		first = 1
	}

	rows := make([][]string, 0, len(report.Plan.Episodes))
	for _, episode := range report.Plan.Episodes {
		note := ""
		if episode.Inferred {
			note = "inferred from remainder"
		}
		rows = append(rows, []string{
			fmt.Sprintf("S%02dE%02d", report.Info.Season, first+episode.Index),
			formatClock(episode.Start),
			formatClock(episode.End()),
			formatClock(episode.Duration),
			formatConfidence(episode.Confidence),
			note,
		})
	}
	return renderTable(headers, rows, 1, 2, 3, 4)
}

func renderJobTable(report *runner.Report) string {
	headers := []string{"EPISODE", "START", "LENGTH", "OUTPUT"}

	rows := make([][]string, 0, len(report.SplitPlan.Jobs))
	for _, job := range report.SplitPlan.Jobs {
		rows = append(rows, []string{
			fmt.Sprintf("S%02dE%02d", report.Info.Season, job.Episode),
			formatClock(job.Start),
			formatClock(job.Duration),
			job.OutputPath,
		})
	}
	return renderTable(headers, rows, 1, 2)
}

// formatClock renders seconds as h:mm:ss, truncating fractions.
func formatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int(seconds)
	return fmt.Sprintf("%d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

func formatConfidence(value float64) string {
	return strconv.FormatFloat(value, 'f', 2, 64)
}
