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

type indexEntry struct {
	placeID string
	name    string
	address string
	lat     float64
	lon     float64
}

// newIndexServer serves the legacy place search endpoints. A query naming an
// entry returns it; anything else returns ZERO_RESULTS.
func newIndexServer(t *testing.T, entries ...indexEntry) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		query := strings.ToLower(q.Get("keyword") + " " + q.Get("input"))
		var results []map[string]any
		for _, e := range entries {
			if !strings.Contains(query, strings.ToLower(e.name)) {
				continue
			}
			results = append(results, map[string]any{
				"place_id":          e.placeID,
				"name":              e.name,
				"formatted_address": e.address,
				"vicinity":          e.address,
				"geometry": map[string]any{
					"location": map[string]any{"lat": e.lat, "lng": e.lon},
				},
			})
		}
		payload := map[string]any{"status": "ZERO_RESULTS"}
		if len(results) > 0 {
			payload["status"] = "OK"
			if strings.HasSuffix(r.URL.Path, "nearbysearch/json") {
				payload["results"] = results
			} else {
				payload["candidates"] = results
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	}))
	t.Cleanup(server.Close)
	return server
}

type cliTestEnv struct {
	baseDir     string
	configPath  string
	reportDir   string
	cacheDir    string
	definitions string
}

func setupCLITestEnv(t *testing.T, indexURL string) *cliTestEnv {
	t.Helper()
	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("GOOGLE_MAPS_API_KEY", "")

	env := &cliTestEnv{
		baseDir:     base,
		configPath:  filepath.Join(base, "config.toml"),
		reportDir:   filepath.Join(base, "reports"),
		cacheDir:    filepath.Join(base, "cache"),
		definitions: filepath.Join(base, "definitions.toml"),
	}
	writeTestConfig(t, env, indexURL)
	return env
}

func writeTestConfig(t *testing.T, env *cliTestEnv, indexURL string) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
report_dir = %q
cache_dir = %q

[provider]
kind = "google"
google_api_key = "test-key"
google_api = "legacy"
google_base_url = %q
timeout_seconds = 5
retry_delay_ms = 1
max_attempts = 2

[batch]
delay_ms = 0
state = "all"

[resolver]
definitions_path = %q

[snapshot]
enabled = true
backend = "file"

[logging]
format = "console"
level = "error"
`,
		filepath.Join(env.baseDir, "data"),
		filepath.Join(env.baseDir, "logs"),
		env.reportDir,
		env.cacheDir,
		indexURL,
		env.definitions,
	)
	if err := os.WriteFile(env.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	fullArgs := append([]string{}, args...)
	if configPath != "" {
		fullArgs = append([]string{"--config", configPath}, fullArgs...)
	}
	cmd.SetArgs(fullArgs)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\nfull output:\n%s", needle, haystack)
	}
}
