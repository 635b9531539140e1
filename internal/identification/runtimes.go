package identification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"episplit/internal/identification/tmdb"
	"episplit/internal/logging"
)

// EpisodeRuntimes carries the expected runtime in minutes for each episode
// covered by a source file, in episode order.
type EpisodeRuntimes struct {
	ShowID  int64
	Minutes []int
}

// TotalSeconds returns the summed expected runtime in seconds.
func (r EpisodeRuntimes) TotalSeconds() float64 {
	total := 0
	for _, minutes := range r.Minutes {
		total += minutes
	}
	return float64(total) * 60
}

// LookupEpisodeRuntimes resolves the show on TMDB and returns per-episode
// runtimes for the file's episode range. A missing runtime for any covered
// episode is an error; the caller degrades to equal division.
func LookupEpisodeRuntimes(ctx context.Context, searcher tmdb.Searcher, logger *slog.Logger, info FileInfo) (*EpisodeRuntimes, error) {
	if searcher == nil {
		return nil, errors.New("tmdb searcher is nil")
	}
	if !info.Parsed || info.EpisodeCount < 1 {
		return nil, errors.New("file info lacks an episode range")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	response, err := searcher.SearchTV(ctx, info.Title, 0)
	if err != nil {
		return nil, fmt.Errorf("search show: %w", err)
	}
	best := selectBestShow(response)
	if best == nil {
		return nil, fmt.Errorf("no tmdb match for %q", info.Title)
	}
	logger.Debug("matched show",
		slog.String("title", strings.TrimSpace(best.Name)),
		slog.Int64("tmdb_id", best.ID),
		slog.Int64("votes", best.VoteCount))

	details, err := searcher.GetSeasonDetails(ctx, best.ID, info.Season)
	if err != nil {
		return nil, fmt.Errorf("season details: %w", err)
	}

	byNumber := make(map[int]tmdb.Episode, len(details.Episodes))
	for _, episode := range details.Episodes {
		byNumber[episode.EpisodeNumber] = episode
	}

	minutes := make([]int, 0, info.EpisodeCount)
	for number := info.FirstEpisode; number <= info.LastEpisode(); number++ {
		episode, ok := byNumber[number]
		if !ok || episode.Runtime <= 0 {
			return nil, fmt.Errorf("no runtime for s%02de%02d", info.Season, number)
		}
		minutes = append(minutes, episode.Runtime)
	}

	return &EpisodeRuntimes{ShowID: best.ID, Minutes: minutes}, nil
}

// selectBestShow prefers the match with the strongest vote signal; ties go
// to popularity.
func selectBestShow(response *tmdb.Response) *tmdb.Result {
	if response == nil || len(response.Results) == 0 {
		return nil
	}
	best := &response.Results[0]
	for i := 1; i < len(response.Results); i++ {
		candidate := &response.Results[i]
		if candidate.VoteCount > best.VoteCount ||
			(candidate.VoteCount == best.VoteCount && candidate.Popularity > best.Popularity) {
			best = candidate
		}
	}
	return best
}
