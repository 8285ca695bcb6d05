package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable. Target tags may be empty here;
// commands that only read the cache or history still work without them, and
// the sorter refuses to start a run with an empty target set.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTagger(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateMetrics(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.SourceDir) == "" {
		return errors.New("paths.source_dir is required")
	}
	if strings.TrimSpace(c.Paths.DestinationDir) == "" {
		return errors.New("paths.destination_dir is required")
	}
	if c.Paths.SourceDir == c.Paths.DestinationDir {
		return errors.New("paths.source_dir and paths.destination_dir must differ")
	}
	if strings.TrimSpace(c.Paths.CachePath) == "" {
		return errors.New("paths.cache_path is required")
	}
	return nil
}

func (c *Config) validateTagger() error {
	parsed, err := url.Parse(c.Tagger.Endpoint)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return fmt.Errorf("tagger.endpoint must be an http(s) URL, got %q", c.Tagger.Endpoint)
	}
	if strings.TrimSpace(c.Tagger.ModelRepository) == "" {
		return errors.New("tagger.model_repository is required")
	}
	if err := ensureUnitInterval(map[string]float64{
		"tagger.general_threshold":   c.Tagger.GeneralThreshold,
		"tagger.character_threshold": c.Tagger.CharacterThreshold,
	}); err != nil {
		return err
	}
	if err := ensurePositive(map[string]int{
		"tagger.timeout_seconds": c.Tagger.TimeoutSeconds,
		"tagger.retry_attempts":  c.Tagger.RetryAttempts,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.Concurrency < 0 {
		return fmt.Errorf("pipeline.concurrency must not be negative, got %d", c.Pipeline.Concurrency)
	}
	return ensurePositive(map[string]int{
		"pipeline.input_edge": c.Pipeline.InputEdge,
	})
}

func (c *Config) validateWatch() error {
	if err := ensurePositive(map[string]int{
		"watch.settle_interval_ms":     c.Watch.SettleIntervalMillis,
		"watch.settle_timeout_seconds": c.Watch.SettleTimeoutSeconds,
		"watch.queue_size":             c.Watch.QueueSize,
	}); err != nil {
		return err
	}
	if interval, timeout := c.Watch.SettleIntervalMillis, c.Watch.SettleTimeoutSeconds*1000; interval >= timeout {
		return fmt.Errorf("watch.settle_interval_ms (%d) must be shorter than watch.settle_timeout_seconds (%ds)", interval, c.Watch.SettleTimeoutSeconds)
	}
	return nil
}

func (c *Config) validateMetrics() error {
	if !c.Metrics.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Metrics.Bind); err != nil {
		return fmt.Errorf("metrics.bind must be host:port, got %q", c.Metrics.Bind)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format must be auto, console, or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return ensurePositive(map[string]int{
		"logging.retention_days": c.Logging.RetentionDays,
	})
}

func ensurePositive(values map[string]int) error {
	for name, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %d", name, value)
		}
	}
	return nil
}

func ensureUnitInterval(values map[string]float64) error {
	for name, value := range values {
		if value <= 0 || value > 1 {
			return fmt.Errorf("%s must be in (0, 1], got %g", name, value)
		}
	}
	return nil
}
