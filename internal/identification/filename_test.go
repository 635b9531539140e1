package identification

import "testing"

func TestParseFilename(t *testing.T) {
	cases := []struct {
		name string
		path string
		want FileInfo
	}{
		{
			name: "dash range",
			path: "/media/Some.Show.S01E01-E03.1080p.mkv",
			want: FileInfo{Title: "Some Show", Season: 1, FirstEpisode: 1, EpisodeCount: 3, Parsed: true},
		},
		{
			name: "range without second e",
			path: "Some Show s02e04-06.mkv",
			want: FileInfo{Title: "Some Show", Season: 2, FirstEpisode: 4, EpisodeCount: 3, Parsed: true},
		},
		{
			name: "concatenated episodes",
			path: "Some_Show_S01E01E02.mkv",
			want: FileInfo{Title: "Some Show", Season: 1, FirstEpisode: 1, EpisodeCount: 2, Parsed: true},
		},
		{
			name: "single episode",
			path: "Some.Show.S03E07.mkv",
			want: FileInfo{Title: "Some Show", Season: 3, FirstEpisode: 7, EpisodeCount: 1, Parsed: true},
		},
		{
			name: "no pattern degrades to title",
			path: "home.video.mkv",
			want: FileInfo{Title: "home video"},
		},
		{
			name: "empty base degrades to unknown",
			path: "....mkv",
			want: FileInfo{Title: "unknown"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseFilename(tc.path)
			if got != tc.want {
				t.Fatalf("ParseFilename(%q) = %+v, want %+v", tc.path, got, tc.want)
			}
		})
	}
}

func TestLastEpisode(t *testing.T) {
	info := FileInfo{FirstEpisode: 4, EpisodeCount: 3}
	if got := info.LastEpisode(); got != 6 {
		t.Fatalf("LastEpisode = %d, want 6", got)
	}
}
