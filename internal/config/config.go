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

// Paths contains the directories and files winnow reads and writes.
type Paths struct {
	SourceDir       string `toml:"source_dir"`
	DestinationDir  string `toml:"destination_dir"`
	CachePath       string `toml:"cache_path"`
	HistoryPath     string `toml:"history_path"`
	TranslationPath string `toml:"translation_path"`
}

// Targets contains the tag substrings that select images for relocation.
type Targets struct {
	Tags []string `toml:"tags"`
}

// Tagger contains connection and threshold settings for the tagging model
// service.
type Tagger struct {
	Endpoint           string  `toml:"endpoint"`
	ModelRepository    string  `toml:"model_repository"`
	GeneralThreshold   float64 `toml:"general_threshold"`
	CharacterThreshold float64 `toml:"character_threshold"`
	GeneralMCut        bool    `toml:"general_mcut"`
	CharacterMCut      bool    `toml:"character_mcut"`
	TimeoutSeconds     int     `toml:"timeout_seconds"`
	RetryAttempts      int     `toml:"retry_attempts"`
}

// Pipeline contains concurrency settings for the staged processing engine.
type Pipeline struct {
	// Concurrency caps in-flight items across all stages combined.
	// Zero selects the automatic default (logical CPUs minus one, minimum 1).
	Concurrency int `toml:"concurrency"`
	// InputEdge is the square edge, in pixels, images are resized to before
	// they are submitted to the tagging model.
	InputEdge int `toml:"input_edge"`
}

// Watch contains settings for the live filesystem watch mode.
type Watch struct {
	SettleIntervalMillis int `toml:"settle_interval_ms"`
	SettleTimeoutSeconds int `toml:"settle_timeout_seconds"`
	QueueSize            int `toml:"queue_size"`
}

// Metrics contains settings for the Prometheus endpoint served in watch mode.
type Metrics struct {
	Enabled bool   `toml:"enabled"`
	Bind    string `toml:"bind"`
}

// History contains settings for the run journal.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	Directory     string `toml:"directory"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for winnow.
//
// Configuration sections by subsystem:
//   - Paths: source/destination directories, cache, history, and lexicon files
//   - Targets: tag substrings that select images for relocation
//   - Tagger: tagging service endpoint, model repository, and thresholds
//   - Pipeline: bounded-concurrency settings for the staged engine
//   - Watch: live-watch settle timing and ingestion queue size
//   - Metrics: Prometheus endpoint served alongside watch mode
//   - History: run journal toggle
//   - Logging: log format, level, directory, and retention
type Config struct {
	Paths    Paths    `toml:"paths"`
	Targets  Targets  `toml:"targets"`
	Tagger   Tagger   `toml:"tagger"`
	Pipeline Pipeline `toml:"pipeline"`
	Watch    Watch    `toml:"watch"`
	Metrics  Metrics  `toml:"metrics"`
	History  History  `toml:"history"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/winnow/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
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

	defaultPath, err := expandPath("~/.config/winnow/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("winnow.toml")
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

// EnsureDirectories creates the directories winnow writes to. The source
// directory is never created here; a missing source is a startup error, not
// something to paper over.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.DestinationDir, 0o755); err != nil {
		return fmt.Errorf("create destination directory %q: %w", c.Paths.DestinationDir, err)
	}
	for _, path := range []string{c.Paths.CachePath, c.Paths.HistoryPath} {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create parent directory for %q: %w", path, err)
		}
	}
	if dir := strings.TrimSpace(c.Logging.Directory); dir != "" {
		// Best-effort so a read-only log location does not block a run.
		_ = os.MkdirAll(dir, 0o755)
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

func defaultCachePath() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "winnow", "tagcache.json")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/winnow/tagcache.json"
	}
	return filepath.Join(home, ".cache", "winnow", "tagcache.json")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	sample := sampleConfig

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
