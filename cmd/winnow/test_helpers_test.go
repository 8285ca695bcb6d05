package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// cliEnv is one CLI test sandbox: temp directories plus a config file the
// --config flag points at.
type cliEnv struct {
	configPath  string
	sourceDir   string
	destDir     string
	cachePath   string
	historyPath string
}

// newCLIEnv lays out the sandbox and writes a minimal config. Settings not
// written fall back to defaults during load.
func newCLIEnv(t *testing.T, endpoint string) *cliEnv {
	t.Helper()

	base := t.TempDir()
	env := &cliEnv{
		configPath:  filepath.Join(base, "config.toml"),
		sourceDir:   filepath.Join(base, "source"),
		destDir:     filepath.Join(base, "sorted"),
		cachePath:   filepath.Join(base, "cache", "tags.json"),
		historyPath: filepath.Join(base, "history", "history.db"),
	}
	if err := os.MkdirAll(env.sourceDir, 0o755); err != nil {
		t.Fatalf("mkdir source dir: %v", err)
	}

	content := fmt.Sprintf(`[paths]
source_dir = %q
destination_dir = %q
cache_path = %q
history_path = %q

[targets]
tags = ["cat"]

[tagger]
endpoint = %q
retry_attempts = 1

[logging]
directory = %q
level = "warn"
format = "json"
`, env.sourceDir, env.destDir, env.cachePath, env.historyPath, endpoint, filepath.Join(base, "logs"))
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return env
}

func runCLI(t *testing.T, configPath string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if configPath != "" {
		args = append([]string{"--config", configPath}, args...)
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// newTagServer fakes the tagging service: always healthy, and every
// prediction scores the given general tags at 0.9.
func newTagServer(t *testing.T, tags ...string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/health":
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPost && r.URL.Path == "/predict":
			var req struct {
				ModelRepository string `json:"model_repo"`
				Image           []byte `json:"image"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode predict request: %v", err)
			}
			if len(req.Image) == 0 {
				t.Error("predict request carried no image bytes")
			}
			general := make(map[string]float64, len(tags))
			for _, tag := range tags {
				general[tag] = 0.9
			}
			payload := map[string]any{
				"general":   general,
				"character": map[string]float64{},
				"rating":    map[string]float64{"general": 0.9},
			}
			if err := json.NewEncoder(w).Encode(payload); err != nil {
				t.Errorf("encode predict response: %v", err)
			}
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
