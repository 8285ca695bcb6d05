package preflight

import (
	"context"

	"winnow/internal/config"
	"winnow/internal/services"
	"winnow/internal/tagger"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every applicable check for the given config. The tagger
// may be nil when connectivity should not be probed.
func RunAll(ctx context.Context, cfg *config.Config, tag tagger.Tagger) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckSourceDirectory(cfg.Paths.SourceDir))
	results = append(results, CheckDestinationDirectory(cfg.Paths.DestinationDir))
	results = append(results, CheckFreeSpace(cfg.Paths.DestinationDir))
	results = append(results, CheckCacheFile(cfg.Paths.CachePath))

	if cfg.Paths.TranslationPath != "" {
		results = append(results, CheckTranslation(cfg.Paths.TranslationPath))
	}
	if cfg.History.Enabled {
		results = append(results, CheckHistory(cfg.Paths.HistoryPath))
	}
	if tag != nil {
		results = append(results, CheckTagger(ctx, tag))
	}

	return results
}

// Gate runs the checks a processing run cannot start without. The first
// failure aborts with a wrapped configuration or external-service error.
func Gate(ctx context.Context, cfg *config.Config, tag tagger.Tagger) error {
	if cfg == nil {
		return services.Wrap(services.ErrConfiguration, "preflight", "gate", "configuration required", nil)
	}
	if result := CheckSourceDirectory(cfg.Paths.SourceDir); !result.Passed {
		return services.Wrap(services.ErrConfiguration, "preflight", "source directory", result.Detail, nil)
	}
	if result := CheckDestinationDirectory(cfg.Paths.DestinationDir); !result.Passed {
		return services.Wrap(services.ErrConfiguration, "preflight", "destination directory", result.Detail, nil)
	}
	if len(cfg.Targets.Tags) == 0 {
		return services.Wrap(services.ErrConfiguration, "preflight", "targets", "no target tags configured", nil)
	}
	if tag != nil {
		if result := CheckTagger(ctx, tag); !result.Passed {
			return services.Wrap(services.ErrExternalService, "preflight", "tagging service", result.Detail, nil)
		}
	}
	return nil
}
