package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	CacheDir  string `toml:"cache_dir"`
}

// TMDB contains configuration for the runtime-metadata service.
type TMDB struct {
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
	Language string `toml:"language"`
}

// Vision contains configuration for the frame-classification service.
type Vision struct {
	Enabled        bool   `toml:"enabled"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Transcribe contains configuration for the speech transcription service.
type Transcribe struct {
	Enabled        bool   `toml:"enabled"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Detection contains configuration for the normal two-phase detection run.
type Detection struct {
	Detectors               []string `toml:"detectors"`
	WindowSeconds           float64  `toml:"window_seconds"`
	ClusterToleranceSeconds float64  `toml:"cluster_tolerance_seconds"`
	MinEpisodeMinutes       float64  `toml:"min_episode_minutes"`
	MaxEpisodeMinutes       float64  `toml:"max_episode_minutes"`
	MinFileMinutes          float64  `toml:"min_file_minutes"`
	SilenceThresholdDB      float64  `toml:"silence_threshold_db"`
	SilenceMinDuration      float64  `toml:"silence_min_duration_seconds"`
	BlackMinDuration        float64  `toml:"black_min_duration_seconds"`
	SceneThreshold          float64  `toml:"scene_threshold"`
	Strict                  bool     `toml:"strict"`
}

// Precision contains configuration for precision mode on clean sources.
type Precision struct {
	Enabled               bool    `toml:"enabled"`
	SymmetricWindows      bool    `toml:"symmetric_windows"`
	SampleIntervalSeconds float64 `toml:"sample_interval_seconds"`
	PostCreditsBuffer     float64 `toml:"post_credits_buffer_seconds"`
	Pattern               string  `toml:"pattern"`
	PatternGroupingBuffer float64 `toml:"pattern_grouping_buffer_seconds"`
	// UseBlackFrames snaps resolved boundaries to nearby black frames.
	// Ignored when a pattern is configured.
	UseBlackFrames bool `toml:"use_black_frames"`
}

// Splitter contains configuration for the lossless extraction step.
type Splitter struct {
	FFmpegBinary  string `toml:"ffmpeg_binary"`
	FFprobeBinary string `toml:"ffprobe_binary"`
	SeasonDirs    bool   `toml:"season_dirs"`
}

// ScanCache contains configuration for the detector scan cache.
type ScanCache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for episplit.
type Config struct {
	Paths      Paths      `toml:"paths"`
	TMDB       TMDB       `toml:"tmdb"`
	Vision     Vision     `toml:"vision"`
	Transcribe Transcribe `toml:"transcribe"`
	Detection  Detection  `toml:"detection"`
	Precision  Precision  `toml:"precision"`
	Splitter   Splitter   `toml:"splitter"`
	ScanCache  ScanCache  `toml:"scan_cache"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/episplit/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("episplit.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
