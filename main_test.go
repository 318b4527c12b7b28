package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"repo-index/config"
	"repo-index/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

// stubAPI serves two repositories for alice. Listing the contents of
// "broken" fails; "alpha" holds three files with distinct commit dates.
func stubAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/users/alice/repos", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") != "1" {
			writeJSON(w, http.StatusOK, `[]`)
			return
		}
		writeJSON(w, http.StatusOK, `[{"name":"alpha","html_url":"https://github.com/alice/alpha"},{"name":"broken"}]`)
	})
	mux.HandleFunc("/users/nobody/repos", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[]`)
	})
	mux.HandleFunc("/repos/alice/alpha/contents/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `[
			{"type":"file","name":"old.txt","path":"old.txt","size":0,"html_url":"https://github.com/alice/alpha/blob/main/old.txt"},
			{"type":"file","name":"new.go","path":"new.go","size":2048,"html_url":"https://github.com/alice/alpha/blob/main/new.go"},
			{"type":"file","name":"mid.md","path":"mid.md","size":512,"html_url":"https://github.com/alice/alpha/blob/main/mid.md"}
		]`)
	})
	mux.HandleFunc("/repos/alice/broken/contents/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{"message":"boom"}`)
	})
	mux.HandleFunc("/repos/alice/alpha/commits", func(w http.ResponseWriter, r *http.Request) {
		dates := map[string]string{
			"new.go":  "2024-05-03T10:00:00Z",
			"mid.md":  "2024-05-02T10:00:00Z",
			"old.txt": "2024-05-01T10:00:00Z",
		}
		writeJSON(w, http.StatusOK, fmt.Sprintf(
			`[{"sha":"abc","commit":{"committer":{"date":%q}}}]`, dates[r.URL.Query().Get("path")]))
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

// isolate keeps REPO_INDEX_* variables from the host out of the run.
func isolate(t *testing.T) string {
	t.Helper()
	for _, key := range []string{
		"REPO_INDEX_USER", "REPO_INDEX_OUTPUT", "REPO_INDEX_API_URL", "REPO_INDEX_FALLBACK",
		"REPO_INDEX_METRICS_FILE", "REPO_INDEX_LOG_LEVEL", "REPO_INDEX_LOG_FORMAT",
		"REPO_INDEX_PER_PAGE", "REPO_INDEX_PROGRESS",
	} {
		t.Setenv(key, "")
	}
	return t.TempDir()
}

func runArgs(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	base := []string{"-env-file", filepath.Join(dir, "absent.env"), "-progress=false", "-log-level", "error"}
	err := run(context.Background(), append(base, args...), &stdout, &stderr)
	return stdout.String(), err
}

func TestRunWritesIndex(t *testing.T) {
	dir := isolate(t)
	ts := stubAPI(t)
	output := filepath.Join(dir, "site", "index.html")
	metricsFile := filepath.Join(dir, "repo_index.prom")

	stdout, err := runArgs(t, dir,
		"-user", "https://github.com/alice", "-api-url", ts.URL, "-output", output, "-metrics-file", metricsFile)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	page := string(data)

	assert.Contains(t, page, `id="repoCount">2<`)
	assert.Contains(t, page, `id="totalCount">3<`)
	assert.NotContains(t, page, `data-repo="broken"`)

	names := regexp.MustCompile(`data-name="([^"]+)"`).FindAllStringSubmatch(page, -1)
	require.Len(t, names, 3)
	assert.Equal(t, []string{"new.go", "mid.md", "old.txt"}, []string{names[0][1], names[1][1], names[2][1]})
	assert.Contains(t, page, "2.0 KB</span>")
	assert.Contains(t, page, "0 KB</span>")
	assert.Contains(t, page, `<a href="https://github.com/alice/alpha" class="repo-badge"`)
	assert.Contains(t, page, `<a href="https://github.com/alice" target="_blank"`)

	assert.Contains(t, stdout, "[-] Account: alice")
	assert.Contains(t, stdout, "[-] Files indexed: 3")
	assert.Contains(t, stdout, "1 requests failed")

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "repo_index_files 3\n")
	assert.Contains(t, string(prom), "repo_index_fetch_errors_total 1\n")
	assert.Contains(t, string(prom), `repo_index_api_requests_total{code="500",method="get"} 1`)
}

func TestRunWithoutRepositoriesStillWritesIndex(t *testing.T) {
	dir := isolate(t)
	ts := stubAPI(t)
	output := filepath.Join(dir, "index.html")

	_, err := runArgs(t, dir, "-user", "nobody", "-api-url", ts.URL, "-output", output)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Contains(t, string(data), `id="repoCount">0<`)
	assert.Contains(t, string(data), `id="totalCount">0<`)
	assert.Equal(t, 0, strings.Count(string(data), `<li class="file-item"`))
}

func TestRunConfigFileAndFlagPrecedence(t *testing.T) {
	dir := isolate(t)
	ts := stubAPI(t)
	fromFile := filepath.Join(dir, "from-file.html")
	fromFlag := filepath.Join(dir, "from-flag.html")

	cfgPath := filepath.Join(dir, "repo-index.yaml")
	cfg := config.DefaultConfig()
	cfg.User = "nobody"
	cfg.APIURL = ts.URL
	cfg.Output = fromFile
	require.NoError(t, config.SaveConfig(cfgPath, cfg))

	_, err := runArgs(t, dir, "-config", cfgPath, "-output", fromFlag)
	require.NoError(t, err)

	assert.FileExists(t, fromFlag)
	assert.NoFileExists(t, fromFile)
}

func TestRunRejectsInvalidConfiguration(t *testing.T) {
	dir := isolate(t)
	output := filepath.Join(dir, "index.html")

	_, err := runArgs(t, dir, "-fallback", "yesterday", "-output", output)
	assert.ErrorContains(t, err, "invalid configuration")
	assert.NoFileExists(t, output)

	_, err = runArgs(t, dir, "-no-such-flag")
	assert.Error(t, err)

	_, err = runArgs(t, dir, "-user", "not a user!", "-output", output)
	assert.ErrorContains(t, err, "failed to parse account")
}

func TestRunFailsWhenOutputCannotBeWritten(t *testing.T) {
	dir := isolate(t)
	ts := stubAPI(t)
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := runArgs(t, dir, "-user", "nobody", "-api-url", ts.URL, "-output", filepath.Join(blocker, "index.html"))
	assert.ErrorContains(t, err, "failed to write")
}

func TestRunSaveConfig(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "saved.yaml")

	stdout, err := runArgs(t, dir, "-user", "octocat", "-fallback", "skip", "-save-config", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "Configuration written to")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "octocat", cfg.User)
	assert.Equal(t, "skip", cfg.Fallback)
	assert.False(t, cfg.Progress)
}

func TestNewHTTPClientHasNoTimeout(t *testing.T) {
	c := newHTTPClient(metrics.New())

	assert.Zero(t, c.Timeout)
	assert.NotNil(t, c.Transport)
}
