package config

import (
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTargets()
	c.normalizeTagger()
	c.normalizePipeline()
	c.normalizeWatch()
	c.normalizeMetrics()
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.SourceDir) == "" {
		c.Paths.SourceDir = defaultSourceDir
	}
	if strings.TrimSpace(c.Paths.DestinationDir) == "" {
		c.Paths.DestinationDir = defaultDestinationDir
	}
	if strings.TrimSpace(c.Paths.CachePath) == "" {
		c.Paths.CachePath = defaultCachePath()
	}
	if strings.TrimSpace(c.Paths.HistoryPath) == "" {
		c.Paths.HistoryPath = defaultHistoryPath
	}

	var err error
	if c.Paths.SourceDir, err = expandPath(c.Paths.SourceDir); err != nil {
		return err
	}
	if c.Paths.DestinationDir, err = expandPath(c.Paths.DestinationDir); err != nil {
		return err
	}
	if c.Paths.CachePath, err = expandPath(c.Paths.CachePath); err != nil {
		return err
	}
	if c.Paths.HistoryPath, err = expandPath(c.Paths.HistoryPath); err != nil {
		return err
	}
	if strings.TrimSpace(c.Paths.TranslationPath) != "" {
		if c.Paths.TranslationPath, err = expandPath(c.Paths.TranslationPath); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) normalizeTargets() {
	cleaned := make([]string, 0, len(c.Targets.Tags))
	for _, tag := range c.Targets.Tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		cleaned = append(cleaned, trimmed)
	}
	c.Targets.Tags = cleaned
}

func (c *Config) normalizeTagger() {
	if endpoint := strings.TrimSpace(os.Getenv("WINNOW_TAGGER_ENDPOINT")); endpoint != "" {
		c.Tagger.Endpoint = endpoint
	}
	c.Tagger.Endpoint = strings.TrimRight(strings.TrimSpace(c.Tagger.Endpoint), "/")
	if c.Tagger.Endpoint == "" {
		c.Tagger.Endpoint = defaultTaggerEndpoint
	}
	c.Tagger.ModelRepository = strings.TrimSpace(c.Tagger.ModelRepository)
	if c.Tagger.ModelRepository == "" {
		c.Tagger.ModelRepository = defaultModelRepository
	}
	if c.Tagger.GeneralThreshold <= 0 {
		c.Tagger.GeneralThreshold = defaultGeneralThreshold
	}
	if c.Tagger.CharacterThreshold <= 0 {
		c.Tagger.CharacterThreshold = defaultCharacterThreshold
	}
	if c.Tagger.TimeoutSeconds <= 0 {
		c.Tagger.TimeoutSeconds = defaultTaggerTimeoutSeconds
	}
	if c.Tagger.RetryAttempts <= 0 {
		c.Tagger.RetryAttempts = defaultTaggerRetryAttempts
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.Concurrency < 0 {
		c.Pipeline.Concurrency = 0
	}
	if c.Pipeline.InputEdge <= 0 {
		c.Pipeline.InputEdge = defaultInputEdge
	}
}

func (c *Config) normalizeWatch() {
	if c.Watch.SettleIntervalMillis <= 0 {
		c.Watch.SettleIntervalMillis = defaultSettleIntervalMillis
	}
	if c.Watch.SettleTimeoutSeconds <= 0 {
		c.Watch.SettleTimeoutSeconds = defaultSettleTimeoutSeconds
	}
	if c.Watch.QueueSize <= 0 {
		c.Watch.QueueSize = defaultWatchQueueSize
	}
}

func (c *Config) normalizeMetrics() {
	c.Metrics.Bind = strings.TrimSpace(c.Metrics.Bind)
	if c.Metrics.Bind == "" {
		c.Metrics.Bind = defaultMetricsBind
	}
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "auto"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if strings.TrimSpace(c.Logging.Directory) == "" {
		c.Logging.Directory = defaultLogDir
	}
	var err error
	if c.Logging.Directory, err = expandPath(c.Logging.Directory); err != nil {
		return err
	}
	if c.Logging.RetentionDays <= 0 {
		c.Logging.RetentionDays = defaultLogRetentionDays
	}
	return nil
}
