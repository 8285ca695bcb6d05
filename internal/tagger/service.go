package tagger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"winnow/internal/resilience"
)

const (
	predictPath = "/predict"
	healthPath  = "/health"
)

// service carries the HTTP plumbing shared by both client variants.
type service struct {
	cfg    Config
	client *http.Client
	exec   *resilience.Executor

	resilience resilience.Config
	sleeper    func(time.Duration)
}

func newService(cfg Config, logger *slog.Logger, opts ...Option) *service {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	res := resilience.DefaultConfig()
	if cfg.RetryAttempts > 0 {
		res.RetryMaxAttempts = cfg.RetryAttempts
	}
	s := &service{
		cfg: Config{
			Endpoint:        strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
			ModelRepository: strings.TrimSpace(cfg.ModelRepository),
			InputEdge:       cfg.InputEdge,
			TimeoutSeconds:  cfg.TimeoutSeconds,
			RetryAttempts:   cfg.RetryAttempts,
		},
		client:     &http.Client{Timeout: timeout},
		resilience: res,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.Endpoint == "" {
		s.cfg.Endpoint = defaultEndpoint
	}
	if s.cfg.InputEdge <= 0 {
		s.cfg.InputEdge = defaultInputEdge
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	var execOpts []resilience.Option
	if s.sleeper != nil {
		execOpts = append(execOpts, resilience.WithSleeper(s.sleeper))
	}
	s.exec = resilience.NewExecutor(s.resilience, logger, execOpts...)
	return s
}

// Prepare scales the decoded image to the configured model input edge.
func (s *service) Prepare(img image.Image) (Input, error) {
	return prepareInput(img, s.cfg.InputEdge)
}

// HealthCheck verifies the inference service responds on its health endpoint.
func (s *service) HealthCheck(ctx context.Context) error {
	return s.exec.Execute(ctx, "health", func(ctx context.Context) error {
		return s.sendOnce(ctx, http.MethodGet, healthPath, nil, nil)
	}, resilience.HTTPClassifier)
}

func (s *service) postJSON(ctx context.Context, operation, path string, payload, out any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("tagger request: encode payload: %w", err)
	}
	return s.exec.Execute(ctx, operation, func(ctx context.Context) error {
		return s.sendOnce(ctx, http.MethodPost, path, encoded, out)
	}, resilience.HTTPClassifier)
}

func (s *service) sendOnce(ctx context.Context, method, path string, encoded []byte, out any) error {
	var body io.Reader
	if encoded != nil {
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.cfg.Endpoint+path, body)
	if err != nil {
		return fmt.Errorf("tagger request: %w", err)
	}
	if encoded != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("tagger request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("tagger request: read response: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := resilience.ParseRetryAfter(resp.Header.Get("Retry-After"))
		return &resilience.StatusError{
			StatusCode: resp.StatusCode,
			Body:       string(raw),
			RetryAfter: retryAfter,
		}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("tagger request: decode response: %w", err)
	}
	return nil
}
