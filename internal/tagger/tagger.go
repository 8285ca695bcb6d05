package tagger

import (
	"context"
	"image"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"winnow/internal/resilience"
)

const (
	defaultEndpoint    = "http://127.0.0.1:8787"
	defaultInputEdge   = 448
	defaultHTTPTimeout = 120 * time.Second

	deepDanbooruMarker = "deepdanbooru"
)

// Config captures the runtime settings required to talk to the tagging service.
type Config struct {
	Endpoint        string
	ModelRepository string
	InputEdge       int
	TimeoutSeconds  int
	RetryAttempts   int
}

// Input is a prepared model input: the scaled image encoded as JPEG plus the
// dimensions of the original image.
type Input struct {
	Data   []byte
	Width  int
	Height int
}

// Prediction is the categorized outcome of one inference call. Categories
// holds only tags that survived the cutoffs; Description is the caption form
// of the general tags, strongest first.
type Prediction struct {
	Description string
	Categories  map[string]map[string]float64
}

// Tagger is the inference capability consumed by the pipeline.
type Tagger interface {
	Prepare(img image.Image) (Input, error)
	Predict(ctx context.Context, input Input, thresholds Thresholds) (Prediction, error)
	HealthCheck(ctx context.Context) error
}

// Option customizes the client.
type Option func(*service)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *service) {
		if client != nil {
			s.client = client
		}
	}
}

// WithResilience overrides the retry and breaker policy.
func WithResilience(cfg resilience.Config) Option {
	return func(s *service) {
		s.resilience = cfg
	}
}

// WithSleeper overrides how retry waits are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(s *service) {
		s.sleeper = sleeper
	}
}

// New builds the client matching the configured model repository.
func New(cfg Config, logger *slog.Logger, opts ...Option) Tagger {
	svc := newService(cfg, logger, opts...)
	if strings.Contains(strings.ToLower(svc.cfg.ModelRepository), deepDanbooruMarker) {
		return &deepDanbooruClient{service: svc}
	}
	return &wdClient{service: svc}
}
