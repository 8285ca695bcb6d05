package config

const (
	defaultSourceDir      = "~/Pictures/unsorted"
	defaultDestinationDir = "~/Pictures/sorted"
	defaultHistoryPath    = "~/.local/share/winnow/history.db"
	defaultLogDir         = "~/.local/share/winnow/logs"

	defaultTaggerEndpoint  = "http://127.0.0.1:8787"
	defaultModelRepository = "SmilingWolf/wd-swinv2-tagger-v3"

	defaultGeneralThreshold   = 0.35
	defaultCharacterThreshold = 0.85

	defaultTaggerTimeoutSeconds = 120
	defaultTaggerRetryAttempts  = 3

	defaultInputEdge = 448

	defaultSettleIntervalMillis = 400
	defaultSettleTimeoutSeconds = 30
	defaultWatchQueueSize       = 64

	defaultMetricsBind = "127.0.0.1:9808"

	defaultLogRetentionDays = 30
)

// Default returns a Config populated with default values.
func Default() Config {
	return Config{
		Paths: Paths{
			SourceDir:      defaultSourceDir,
			DestinationDir: defaultDestinationDir,
			CachePath:      defaultCachePath(),
			HistoryPath:    defaultHistoryPath,
		},
		Targets: Targets{
			Tags: nil,
		},
		Tagger: Tagger{
			Endpoint:           defaultTaggerEndpoint,
			ModelRepository:    defaultModelRepository,
			GeneralThreshold:   defaultGeneralThreshold,
			CharacterThreshold: defaultCharacterThreshold,
			GeneralMCut:        false,
			CharacterMCut:      false,
			TimeoutSeconds:     defaultTaggerTimeoutSeconds,
			RetryAttempts:      defaultTaggerRetryAttempts,
		},
		Pipeline: Pipeline{
			Concurrency: 0,
			InputEdge:   defaultInputEdge,
		},
		Watch: Watch{
			SettleIntervalMillis: defaultSettleIntervalMillis,
			SettleTimeoutSeconds: defaultSettleTimeoutSeconds,
			QueueSize:            defaultWatchQueueSize,
		},
		Metrics: Metrics{
			Enabled: false,
			Bind:    defaultMetricsBind,
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format:        "auto",
			Level:         "info",
			Directory:     defaultLogDir,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
