package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"winnow/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The source directory is created eagerly because winnow never creates it on
// behalf of the user.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.SourceDir = filepath.Join(base, "source")
	cfgVal.Paths.DestinationDir = filepath.Join(base, "sorted")
	cfgVal.Paths.CachePath = filepath.Join(base, "cache", "tags.json")
	cfgVal.Paths.HistoryPath = filepath.Join(base, "history", "history.db")
	cfgVal.Paths.TranslationPath = ""
	cfgVal.Targets.Tags = []string{"cat"}
	cfgVal.Logging.Directory = filepath.Join(base, "logs")
	cfgVal.Metrics.Bind = "127.0.0.1:0"

	if err := os.MkdirAll(cfgVal.Paths.SourceDir, 0o755); err != nil {
		t.Fatalf("mkdir source dir: %v", err)
	}

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithTargetTags overrides the relocation target tag list on the test config.
func WithTargetTags(tags ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Targets.Tags = tags
	}
}

// WithHistoryDisabled turns the run journal off for the test.
func WithHistoryDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = false
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DestinationDir)
}
