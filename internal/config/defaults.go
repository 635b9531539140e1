package config

// Default returns the configuration used before any file overrides apply.
func Default() Config {
	return Config{
		Paths: Paths{
			CacheDir: "~/.cache/episplit",
		},
		TMDB: TMDB{
			BaseURL:  "https://api.themoviedb.org/3",
			Language: "en-US",
		},
		Vision: Vision{
			Enabled:        false,
			BaseURL:        "http://localhost:11434",
			Model:          "llava",
			TimeoutSeconds: 30,
		},
		Transcribe: Transcribe{
			Enabled:        false,
			TimeoutSeconds: 60,
		},
		Detection: Detection{
			Detectors:               []string{"silence", "black_frame", "scene_change"},
			WindowSeconds:           300,
			ClusterToleranceSeconds: 60,
			MinEpisodeMinutes:       15,
			MaxEpisodeMinutes:       90,
			MinFileMinutes:          30,
			SilenceThresholdDB:      -50,
			SilenceMinDuration:      1.5,
			BlackMinDuration:        0.5,
			SceneThreshold:          0.4,
			Strict:                  true,
		},
		Precision: Precision{
			SampleIntervalSeconds: 2,
			PostCreditsBuffer:     15,
			PatternGroupingBuffer: 10,
			UseBlackFrames:        true,
		},
		Splitter: Splitter{
			FFmpegBinary:  "ffmpeg",
			FFprobeBinary: "ffprobe",
			SeasonDirs:    true,
		},
		ScanCache: ScanCache{
			Enabled: true,
		},
		Logging: Logging{
			Format: "auto",
			Level:  "info",
		},
	}
}
