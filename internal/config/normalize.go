package config

import (
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	for _, field := range []*string{&c.Paths.OutputDir, &c.Paths.LogDir, &c.Paths.CacheDir, &c.ScanCache.Path} {
		trimmed := strings.TrimSpace(*field)
		if trimmed == "" {
			*field = ""
			continue
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return err
		}
		*field = expanded
	}

	c.TMDB.APIKey = strings.TrimSpace(c.TMDB.APIKey)
	c.TMDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.BaseURL), "/")
	c.TMDB.Language = strings.TrimSpace(c.TMDB.Language)
	if c.TMDB.Language == "" {
		c.TMDB.Language = "en-US"
	}

	c.Vision.BaseURL = strings.TrimRight(strings.TrimSpace(c.Vision.BaseURL), "/")
	c.Vision.Model = strings.TrimSpace(c.Vision.Model)
	c.Transcribe.BaseURL = strings.TrimRight(strings.TrimSpace(c.Transcribe.BaseURL), "/")
	c.Transcribe.Model = strings.TrimSpace(c.Transcribe.Model)

	normalized := make([]string, 0, len(c.Detection.Detectors))
	seen := map[string]struct{}{}
	for _, name := range c.Detection.Detectors {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		normalized = append(normalized, name)
	}
	c.Detection.Detectors = normalized

	c.Precision.Pattern = strings.ToLower(strings.TrimSpace(c.Precision.Pattern))

	c.Splitter.FFmpegBinary = strings.TrimSpace(c.Splitter.FFmpegBinary)
	if c.Splitter.FFmpegBinary == "" {
		c.Splitter.FFmpegBinary = "ffmpeg"
	}
	c.Splitter.FFprobeBinary = strings.TrimSpace(c.Splitter.FFprobeBinary)
	if c.Splitter.FFprobeBinary == "" {
		c.Splitter.FFprobeBinary = "ffprobe"
	}

	if c.ScanCache.Enabled && c.ScanCache.Path == "" && c.Paths.CacheDir != "" {
		c.ScanCache.Path = filepath.Join(c.Paths.CacheDir, "scans.db")
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "auto"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	return nil
}
