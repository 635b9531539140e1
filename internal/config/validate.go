package config

import (
	"fmt"
	"strings"

	"episplit/internal/services"
)

var knownDetectors = map[string]struct{}{
	"silence":           {},
	"black_frame":       {},
	"scene_change":      {},
	"speech":            {},
	"llm_vision":        {},
	"image_hash":        {},
	"audio_fingerprint": {},
}

var knownLogFormats = map[string]struct{}{
	"auto":    {},
	"console": {},
	"json":    {},
}

var knownLogLevels = map[string]struct{}{
	"debug": {},
	"info":  {},
	"warn":  {},
	"error": {},
}

// Validate reports the first configuration problem found, tagged as a
// configuration error so the run never starts.
func (c *Config) Validate() error {
	for _, name := range c.Detection.Detectors {
		if _, ok := knownDetectors[name]; !ok {
			return configErr("detection", fmt.Sprintf("unknown detector %q", name))
		}
	}
	if len(c.Detection.Detectors) == 0 {
		return configErr("detection", "at least one detector must be enabled")
	}
	if c.Detection.WindowSeconds <= 0 {
		return configErr("detection", "window_seconds must be positive")
	}
	if c.Detection.ClusterToleranceSeconds <= 0 {
		return configErr("detection", "cluster_tolerance_seconds must be positive")
	}
	if c.Detection.MinEpisodeMinutes <= 0 {
		return configErr("detection", "min_episode_minutes must be positive")
	}
	if c.Detection.MaxEpisodeMinutes <= c.Detection.MinEpisodeMinutes {
		return configErr("detection", "max_episode_minutes must exceed min_episode_minutes")
	}
	if c.Detection.MinFileMinutes < 0 {
		return configErr("detection", "min_file_minutes must not be negative")
	}
	if c.Detection.SceneThreshold <= 0 || c.Detection.SceneThreshold >= 1 {
		return configErr("detection", "scene_threshold must be between 0 and 1 exclusive")
	}

	if enabled(c.Detection.Detectors, "llm_vision") && !c.Vision.Enabled {
		return configErr("detection", "llm_vision detector requires [vision] enabled")
	}
	if enabled(c.Detection.Detectors, "speech") && !c.Transcribe.Enabled {
		return configErr("detection", "speech detector requires [transcribe] enabled")
	}

	if c.Precision.Enabled {
		if c.TMDB.APIKey == "" {
			return configErr("precision", "precision mode requires a tmdb api_key for runtime windows")
		}
		if !c.Vision.Enabled {
			return configErr("precision", "precision mode requires [vision] enabled")
		}
		if c.Precision.SampleIntervalSeconds <= 0 {
			return configErr("precision", "sample_interval_seconds must be positive")
		}
		if c.Precision.PostCreditsBuffer < 0 {
			return configErr("precision", "post_credits_buffer_seconds must not be negative")
		}
		if c.Precision.PatternGroupingBuffer <= 0 {
			return configErr("precision", "pattern_grouping_buffer_seconds must be positive")
		}
		if c.Precision.Pattern != "" {
			if err := validatePatternSyntax(c.Precision.Pattern); err != nil {
				return configErr("precision", err.Error())
			}
		}
	}

	if c.Vision.Enabled {
		if c.Vision.BaseURL == "" {
			return configErr("vision", "base_url required when enabled")
		}
		if c.Vision.Model == "" {
			return configErr("vision", "model required when enabled")
		}
		if c.Vision.TimeoutSeconds <= 0 {
			return configErr("vision", "timeout_seconds must be positive")
		}
	}
	if c.Transcribe.Enabled {
		if c.Transcribe.BaseURL == "" {
			return configErr("transcribe", "base_url required when enabled")
		}
		if c.Transcribe.TimeoutSeconds <= 0 {
			return configErr("transcribe", "timeout_seconds must be positive")
		}
	}

	if c.ScanCache.Enabled && c.ScanCache.Path == "" {
		return configErr("scan_cache", "path required when enabled and no cache_dir is set")
	}

	if _, ok := knownLogFormats[c.Logging.Format]; !ok {
		return configErr("logging", fmt.Sprintf("unsupported format %q", c.Logging.Format))
	}
	if _, ok := knownLogLevels[c.Logging.Level]; !ok {
		return configErr("logging", fmt.Sprintf("unsupported level %q", c.Logging.Level))
	}

	return nil
}

// validatePatternSyntax checks the boundary pattern DSL shape: dash-separated
// codes from {c, l, s} with exactly one split marker. The typed parse happens
// once at run setup.
func validatePatternSyntax(pattern string) error {
	splits := 0
	for _, code := range strings.Split(pattern, "-") {
		switch code {
		case "c", "l":
		case "s":
			splits++
		default:
			return fmt.Errorf("pattern %q: unknown code %q", pattern, code)
		}
	}
	if splits != 1 {
		return fmt.Errorf("pattern %q: exactly one split marker required", pattern)
	}
	return nil
}

func enabled(names []string, want string) bool {
	for _, name := range names {
		if name == want {
			return true
		}
	}
	return false
}

func configErr(section, message string) error {
	return services.Wrap(services.ErrConfiguration, "config", section, message, nil)
}
